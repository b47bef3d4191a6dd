// Package config loads, validates, and defaults Photowall's TOML
// configuration, with PHOTOWALL_* environment variable overrides applied on
// top of the file. Every behavioral tunable of the wall (swap cadence,
// animation durations, layout probabilities, prefetch policy) lives here so
// the engine itself carries no magic numbers.
package config

// Package logging assembles the structured slog loggers shared by every
// photowall component.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and defines the standardized field keys (component, row, photo,
// album) so engine, scheduler, and server code tag log lines the same way.
// A no-op logger is provided for tests and wiring code that cannot fail.
package logging

// Package main hosts the Photowall CLI entrypoint and command graph.
//
// The Cobra-based command tree covers running the slideshow daemon in the
// foreground, serving the photo library standalone, inspecting a running
// daemon over its HTTP API, rescanning the album index, and configuration
// scaffolding. It centralizes configuration resolution and logging setup so
// subcommands can focus on user experience instead of wiring.
package main

// Package engine wires one display session together: photo store, wall,
// choreographers, swap scheduler, transition manager, progressive loader,
// and watchdog, plus the supervisor that rebuilds the whole session when a
// full reload is requested.
package engine

// Package scheduler runs the periodic photo swap loop: alternate rows,
// dwell-weighted victim selection, slot-shaped replacement draw, adjacent
// space expansion, and handoff to the row's choreographer. It also accepts
// deferred out-of-band swaps from the watchdog.
package scheduler

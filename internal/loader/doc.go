// Package loader stages album image loading: a small low-quality batch for
// first paint, the remainder in the background, then a throttled pass that
// promotes loaded photos to the sharper tier. It also owns the pause gate
// that defers upgrades while a swap choreography is running.
package loader

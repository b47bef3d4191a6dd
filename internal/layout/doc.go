// Package layout holds the pure row geometry math: slot width patterns that
// fill a fixed column budget, panorama sizing and panning, and the
// space-expansion walk that frees adjacent slots for an incoming photo. All
// functions are deterministic given their random source and never touch the
// wall itself.
package layout

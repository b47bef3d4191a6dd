package layout

import (
	"math/rand/v2"
	"strings"
)

// PatternOptions steers slot pattern generation.
type PatternOptions struct {
	// TotalColumns is the row's column budget (4 normally, 5 on wide viewports).
	TotalColumns int
	// LandscapeCount and PortraitCount describe the current photo supply.
	LandscapeCount int
	PortraitCount  int
	// WideSlotProbability is the chance of a width-2 slot when both photo
	// types are available.
	WideSlotProbability float64
	// AvoidSignature is the other row's pattern signature. Generation retries
	// a few times to land on a different one; this is a soft preference and
	// the avoided signature can still be returned.
	AvoidSignature string
	// AvoidRetries caps the regeneration attempts.
	AvoidRetries int
}

// GeneratePattern produces slot widths summing exactly to the column budget,
// each width 1 or 2. Width choice is greedy per remaining slot: width 2 is
// preferred with WideSlotProbability while landscapes remain, a single
// remaining column forces width 1, and an exhausted supply on one side forces
// the other width.
func GeneratePattern(rng *rand.Rand, opts PatternOptions) []int {
	retries := opts.AvoidRetries
	if retries < 0 {
		retries = 0
	}
	pattern := generateOnce(rng, opts)
	if opts.AvoidSignature == "" {
		return pattern
	}
	for attempt := 0; attempt < retries && Signature(pattern) == opts.AvoidSignature; attempt++ {
		pattern = generateOnce(rng, opts)
	}
	return pattern
}

func generateOnce(rng *rand.Rand, opts PatternOptions) []int {
	remaining := opts.TotalColumns
	landscapes := opts.LandscapeCount
	portraits := opts.PortraitCount
	prob := opts.WideSlotProbability

	var widths []int
	for remaining > 0 {
		width := 1
		switch {
		case remaining == 1:
			// forced
		case landscapes <= 0 && portraits <= 0:
			if rng.Float64() < 0.5 {
				width = 2
			}
		case portraits <= 0:
			width = 2
		case landscapes <= 0:
			// forced narrow
		default:
			if rng.Float64() < prob {
				width = 2
			}
		}

		widths = append(widths, width)
		remaining -= width
		if width == 2 {
			if landscapes > 0 {
				landscapes--
			}
		} else if portraits > 0 {
			portraits--
		}
	}
	return widths
}

// Signature maps a pattern to a compact string: width 2 becomes 'L', width 1
// becomes 'P'. Two rows comparing signatures is how the soft "look different"
// preference is expressed.
func Signature(widths []int) string {
	var b strings.Builder
	for _, w := range widths {
		if w == 2 {
			b.WriteByte('L')
		} else {
			b.WriteByte('P')
		}
	}
	return b.String()
}

// Sum returns the total columns a pattern occupies.
func Sum(widths []int) int {
	total := 0
	for _, w := range widths {
		total += w
	}
	return total
}

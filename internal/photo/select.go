package photo

import "time"

// SelectReplacement picks which displayed photo the next swap should replace,
// weighted by time on screen. Photos with a zero DisplayTime are still
// settling into the wall and are not eligible. Every eligible photo's weight
// is its age clamped below by floor, so a photo placed moments ago remains
// selectable instead of carrying a near-zero weight. (The alternative hard
// dwell-time gate is deliberately not used; see DESIGN.md.)
//
// random must be in [0,1); the draw walks the cumulative weights and returns
// the first photo whose cumulative weight reaches random*total. If floating
// point drift leaves the walk short, the last eligible photo is returned.
// Returns nil when no photo is eligible.
func SelectReplacement(displayed []*Photo, now time.Time, floor time.Duration, random float64) *Photo {
	type weighted struct {
		photo  *Photo
		weight float64
	}

	eligible := make([]weighted, 0, len(displayed))
	total := 0.0
	for _, p := range displayed {
		if p == nil || !p.Displayed() {
			continue
		}
		weight := float64(now.Sub(p.DisplayTime).Milliseconds())
		if min := float64(floor.Milliseconds()); weight < min {
			weight = min
		}
		eligible = append(eligible, weighted{photo: p, weight: weight})
		total += weight
	}
	if len(eligible) == 0 || total <= 0 {
		return nil
	}

	target := random * total
	cumulative := 0.0
	for _, w := range eligible {
		cumulative += w.weight
		if cumulative >= target {
			return w.photo
		}
	}
	return eligible[len(eligible)-1].photo
}

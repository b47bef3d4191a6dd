package animation

// easeOutBack eases toward 1 with a single overshoot whose magnitude grows
// with the overshoot parameter. At overshoot 0 it degrades to a smooth
// cubic-out curve.
func easeOutBack(t, overshoot float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	s := 1.70158 * (1 + overshoot*10)
	u := t - 1
	return 1 + (s+1)*u*u*u + s*u*u
}

// easeOutCubic is the plain settling curve used for shrink and fade.
func easeOutCubic(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	u := 1 - t
	return 1 - u*u*u
}

package mathx

import "golang.org/x/exp/constraints"

// Clamp restricts v to [lo, hi]. Used by the AOI load curve (§4.6).
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp linearly interpolates between a and b at t in [0,1].
func Lerp[T constraints.Float](a, b, t T) T {
	return a + (b-a)*t
}

package gamemath

import "math"

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampSpeed clamps a value to [-max, max].
func ClampSpeed(speed, max float64) float64 {
	return Clamp(speed, -max, max)
}

// Approach moves current toward target by at most maxStep.
func Approach(current, target, maxStep float64) float64 {
	if maxStep <= 0 {
		return current
	}
	d := target - current
	if math.Abs(d) <= maxStep {
		return target
	}
	if d > 0 {
		return current + maxStep
	}
	return current - maxStep
}

// BlendFactor returns where target sits between from and to, clamped to [0, 1].
// A zero or negative span yields 1 so the newer sample wins.
func BlendFactor(target, from, to float64) float64 {
	span := to - from
	if span <= 0 {
		return 1
	}
	return Clamp((target-from)/span, 0, 1)
}

// Lerp interpolates between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

package gamemath

import "math"

// AckermannAngles returns the left and right front wheel angles for a steer
// input in [-1, 1] (positive turns left). The inner wheel follows a tighter
// circle than the outer one, so it steers harder.
func AckermannAngles(steer, wheelbase, track, turnRadius float64) (left, right float64) {
	steer = Clamp(steer, -1, 1)
	if steer == 0 || wheelbase <= 0 || turnRadius <= 0 {
		return 0, 0
	}
	// Full lock reaches turnRadius; partial input widens the circle.
	r := turnRadius / math.Abs(steer)
	inner := math.Atan(wheelbase / math.Max(r-track/2, 1e-6))
	outer := math.Atan(wheelbase / (r + track/2))
	if steer > 0 {
		return inner, outer
	}
	return -outer, -inner
}

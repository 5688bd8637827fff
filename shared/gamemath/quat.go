package gamemath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Up is the world up axis. Forward is -Z.
var Up = mgl64.Vec3{0, 1, 0}

// LerpVec3 interpolates componentwise.
func LerpVec3(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return mgl64.Vec3{
		Lerp(a[0], b[0], t),
		Lerp(a[1], b[1], t),
		Lerp(a[2], b[2], t),
	}
}

// Slerp interpolates along the shortest arc and returns a unit quaternion.
func Slerp(a, b mgl64.Quat, t float64) mgl64.Quat {
	a = NormalizeQuat(a)
	b = NormalizeQuat(b)
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	return NormalizeQuat(mgl64.QuatSlerp(a, b, t))
}

// NormalizeQuat returns q scaled to unit length; degenerate input becomes identity.
func NormalizeQuat(q mgl64.Quat) mgl64.Quat {
	l := q.Len()
	if l < 1e-9 || math.IsNaN(l) || math.IsInf(l, 0) {
		return mgl64.QuatIdent()
	}
	if math.Abs(l-1) < 1e-12 {
		return q
	}
	return q.Scale(1 / l)
}

// SanitizeQuat replaces only degenerate quaternions, leaving every other value
// bit-identical.
func SanitizeQuat(q mgl64.Quat) mgl64.Quat {
	l := q.Len()
	if l < 1e-6 || math.IsNaN(l) || math.IsInf(l, 0) {
		return mgl64.QuatIdent()
	}
	return q
}

// YawOf returns the heading of q around the up axis, in radians. A yaw of zero
// faces -Z.
func YawOf(q mgl64.Quat) float64 {
	fwd := NormalizeQuat(q).Rotate(mgl64.Vec3{0, 0, -1})
	if math.Abs(fwd[0]) < 1e-12 && math.Abs(fwd[2]) < 1e-12 {
		return 0
	}
	return math.Atan2(-fwd[0], -fwd[2])
}

// YawQuat builds a rotation of yaw radians around the up axis.
func YawQuat(yaw float64) mgl64.Quat {
	return mgl64.QuatRotate(yaw, Up)
}

// Horizontal drops the vertical component of v.
func Horizontal(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v[0], 0, v[2]}
}

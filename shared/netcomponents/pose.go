package netcomponents

import (
	"github.com/automoto/convoy-mp/shared/gamemath"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/yohamta/donburi"
)

// Pose is what the presentation layer needs to place an entity for a frame.
type Pose struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
	Velocity    mgl64.Vec3
	View        mgl64.Quat
}

var NetPose = donburi.NewComponentType[Pose]()

// LerpPose interpolates between two poses: linear for position and velocity,
// spherical for both orientations.
func LerpPose(from, to Pose, t float64) Pose {
	return Pose{
		Position:    gamemath.LerpVec3(from.Position, to.Position, t),
		Orientation: gamemath.Slerp(from.Orientation, to.Orientation, t),
		Velocity:    gamemath.LerpVec3(from.Velocity, to.Velocity, t),
		View:        gamemath.Slerp(from.View, to.View, t),
	}
}

// LerpWheel interpolates a single wheel pose.
func LerpWheel(from, to WheelPose, t float64) WheelPose {
	return WheelPose{
		Position:    gamemath.LerpVec3(from.Position, to.Position, t),
		Orientation: gamemath.Slerp(from.Orientation, to.Orientation, t),
	}
}

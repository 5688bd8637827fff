package netcomponents

import (
	"github.com/automoto/convoy-mp/shared/netconfig"
	"github.com/go-gl/mathgl/mgl64"
)

// PlayerState is one player's authoritative state inside a snapshot.
type PlayerState struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat // body orientation
	Velocity    mgl64.Vec3
	View        mgl64.Quat // aim direction, distinct from the body
	Actions     netconfig.ActionMask

	// LastProcessedInputSeq is the newest input sequence the server applied for
	// the client owning this player.
	LastProcessedInputSeq uint16
}

// Pose returns the presentable part of the state.
func (p PlayerState) Pose() Pose {
	return Pose{
		Position:    p.Position,
		Orientation: p.Orientation,
		Velocity:    p.Velocity,
		View:        p.View,
	}
}

// NpcState is a server-driven character. NPCs are never predicted.
type NpcState struct {
	ID          string
	Position    mgl64.Vec3
	Orientation mgl64.Quat
	Velocity    mgl64.Vec3
	View        mgl64.Quat
	Actions     netconfig.ActionMask
}

func (n NpcState) Pose() Pose {
	return Pose{
		Position:    n.Position,
		Orientation: n.Orientation,
		Velocity:    n.Velocity,
		View:        n.View,
	}
}

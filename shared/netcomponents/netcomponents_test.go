package netcomponents

import (
	"math"
	"testing"

	"github.com/automoto/convoy-mp/shared/gamemath"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLerpPose_Midpoint(t *testing.T) {
	from := Pose{
		Position:    mgl64.Vec3{0, 0, 0},
		Orientation: gamemath.YawQuat(0),
		Velocity:    mgl64.Vec3{2, 0, 0},
		View:        gamemath.YawQuat(0),
	}
	to := Pose{
		Position:    mgl64.Vec3{10, 2, -4},
		Orientation: gamemath.YawQuat(math.Pi / 2),
		Velocity:    mgl64.Vec3{4, 0, 0},
		View:        gamemath.YawQuat(-math.Pi / 2),
	}

	mid := LerpPose(from, to, 0.5)
	assert.Equal(t, mgl64.Vec3{5, 1, -2}, mid.Position)
	assert.Equal(t, mgl64.Vec3{3, 0, 0}, mid.Velocity)
	assert.InDelta(t, math.Pi/4, gamemath.YawOf(mid.Orientation), 1e-9)
	assert.InDelta(t, -math.Pi/4, gamemath.YawOf(mid.View), 1e-9)
}

func TestLerpWheels_CountMismatchHoldsNewer(t *testing.T) {
	a := []WheelPose{{Position: mgl64.Vec3{0, 0, 0}, Orientation: mgl64.QuatIdent()}}
	b := []WheelPose{
		{Position: mgl64.Vec3{1, 0, 0}, Orientation: mgl64.QuatIdent()},
		{Position: mgl64.Vec3{2, 0, 0}, Orientation: mgl64.QuatIdent()},
	}
	assert.Equal(t, b, LerpWheels(a, b, 0.3))

	c := []WheelPose{{Position: mgl64.Vec3{4, 0, 0}, Orientation: mgl64.QuatIdent()}}
	got := LerpWheels(a, c, 0.25)
	require.Len(t, got, 1)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, got[0].Position)
}

func TestWorldSnapshot_Occupancy(t *testing.T) {
	snap := &WorldSnapshot{
		Vehicles: []VehicleState{
			{ID: "truck", Seats: []Seat{{Occupant: "alice"}, {Occupant: ""}, {Occupant: "bob"}}},
			{ID: "kart", Seats: []Seat{{}}},
		},
	}

	occ := snap.OccupancyOf("bob")
	assert.Equal(t, "truck", occ.VehicleID)
	assert.Equal(t, 2, occ.Seat)
	assert.True(t, occ.Sitting())
	assert.False(t, occ.Driving())

	assert.True(t, snap.OccupancyOf("alice").Driving())
	assert.False(t, snap.OccupancyOf("carol").Sitting())
	assert.False(t, snap.OccupancyOf("").Sitting())

	driver, ok := snap.Vehicles[0].Driver()
	assert.True(t, ok)
	assert.Equal(t, "alice", driver)
	_, ok = snap.Vehicles[1].Driver()
	assert.False(t, ok)
}

func TestWorldSnapshot_NilLookups(t *testing.T) {
	var snap *WorldSnapshot
	_, ok := snap.Player("x")
	assert.False(t, ok)
	_, ok = snap.Vehicle("x")
	assert.False(t, ok)
	_, ok = snap.Npc("x")
	assert.False(t, ok)
}

func TestHoldable_Variants(t *testing.T) {
	for _, h := range []Holdable{Empty{}, Pistol{Ammo: 7, Magazine: 12, Reloading: true}, Flashlight{On: true}} {
		kind, payload := EncodeHoldable(h)
		assert.Equal(t, h.Kind(), kind)
		got, err := DecodeHoldable(kind, payload)
		require.NoError(t, err)
		assert.Equal(t, h, got)
	}
}

func TestHoldable_DecodeErrors(t *testing.T) {
	_, err := DecodeHoldable(ItemKind(99), nil)
	assert.ErrorIs(t, err, ErrUnknownItem)

	_, err = DecodeHoldable(ItemPistol, []byte{1})
	assert.ErrorIs(t, err, ErrItemPayload)

	_, err = DecodeHoldable(ItemFlashlight, nil)
	assert.ErrorIs(t, err, ErrItemPayload)
}

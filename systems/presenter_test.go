package systems

import (
	"testing"

	"github.com/automoto/convoy-mp/components"
	"github.com/automoto/convoy-mp/shared/netcomponents"
	"github.com/automoto/convoy-mp/tags"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

func TestWorldPresenter_CreatesEntitiesPerKind(t *testing.T) {
	world := donburi.NewWorld()
	p := NewWorldPresenter(world)

	p.SetPose(playerKey("bob"), netcomponents.Pose{Position: mgl64.Vec3{1, 2, 3}})
	p.SetPose(vehicleKey("truck"), netcomponents.Pose{Position: mgl64.Vec3{4, 5, 6}})
	p.SetWheels("truck", []netcomponents.WheelPose{{Position: mgl64.Vec3{1, 0, 0}}})

	assert.Equal(t, 1, donburi.NewQuery(filter.Contains(tags.Player)).Count(world))
	assert.Equal(t, 1, donburi.NewQuery(filter.Contains(tags.Vehicle)).Count(world))
	assert.ElementsMatch(t, []components.EntityKey{playerKey("bob"), vehicleKey("truck")}, p.Keys())

	pose, ok := p.Pose(vehicleKey("truck"))
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{4, 5, 6}, pose.Position)

	// Updating reuses the entity.
	p.SetPose(playerKey("bob"), netcomponents.Pose{Position: mgl64.Vec3{9, 9, 9}})
	assert.Equal(t, 1, donburi.NewQuery(filter.Contains(tags.Player)).Count(world))
}

func TestWorldPresenter_LocalTag(t *testing.T) {
	world := donburi.NewWorld()
	p := NewWorldPresenter(world)

	p.SetPose(playerKey("me"), netcomponents.Pose{})
	p.SetLocalID("me")
	p.SetPose(playerKey("bob"), netcomponents.Pose{})

	local := map[string]bool{}
	p.EachPresented(func(key components.EntityKey, _ netcomponents.Pose, isLocal bool) {
		local[key.ID] = isLocal
	})
	assert.Equal(t, map[string]bool{"me": true, "bob": false}, local)
}

func TestWorldPresenter_RemoveAndClear(t *testing.T) {
	world := donburi.NewWorld()
	p := NewWorldPresenter(world)
	p.SetPose(playerKey("bob"), netcomponents.Pose{})
	p.SetOccupancy("eve", components.SeatInfo{VehicleID: "truck", Seat: 2, Sitting: true})

	seat, ok := p.Occupancy("eve")
	require.True(t, ok)
	assert.Equal(t, 2, seat.Seat)

	p.Remove(playerKey("bob"))
	_, ok = p.Pose(playerKey("bob"))
	assert.False(t, ok)
	p.Remove(playerKey("nobody"))

	p.Clear()
	assert.Empty(t, p.Keys())
	assert.Zero(t, world.Len())
}

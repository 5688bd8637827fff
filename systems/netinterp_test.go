package systems

import (
	"testing"

	"github.com/automoto/convoy-mp/components"
	"github.com/automoto/convoy-mp/config"
	"github.com/automoto/convoy-mp/network"
	"github.com/automoto/convoy-mp/shared/gamemath"
	"github.com/automoto/convoy-mp/shared/netcomponents"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"
)

type profileMap map[string]Profile

func (m profileMap) Profile(id string) (Profile, bool) {
	p, ok := m[id]
	return p, ok
}

func playerAt(x float64) netcomponents.PlayerState {
	return netcomponents.PlayerState{
		Position:    mgl64.Vec3{x, 0, 0},
		Orientation: mgl64.QuatIdent(),
		Velocity:    mgl64.Vec3{x, 0, 0},
		View:        mgl64.QuatIdent(),
	}
}

type interpRig struct {
	interp    *Interpolator
	history   *network.History
	clock     *fakeClock
	presenter *WorldPresenter
}

func newInterpRig(t *testing.T, profiles ProfileSource) *interpRig {
	t.Helper()
	history := network.NewHistory(network.DefaultHistoryCapacity)
	clock := &fakeClock{}
	presenter := NewWorldPresenter(donburi.NewWorld())
	ip := NewInterpolator(config.Default().Interp, history, clock, presenter, profiles, nil)
	ip.SetServerTickRate(30)
	return &interpRig{interp: ip, history: history, clock: clock, presenter: presenter}
}

func (r *interpRig) push(t *testing.T, snaps ...*netcomponents.WorldSnapshot) {
	t.Helper()
	for _, s := range snaps {
		accepted, _ := r.history.Push(s)
		require.True(t, accepted)
	}
}

func playerKey(id string) components.EntityKey {
	return components.EntityKey{Kind: components.KindPlayer, ID: id}
}

func vehicleKey(id string) components.EntityKey {
	return components.EntityKey{Kind: components.KindVehicle, ID: id}
}

func TestInterpolator_Delay(t *testing.T) {
	r := newInterpRig(t, nil)
	assert.Equal(t, 100.0, r.interp.Delay())

	r.clock.ping = 200
	assert.InDelta(t, 2*1000.0/30+100, r.interp.Delay(), 1e-9)

	r.interp.SetServerTickRate(10)
	assert.InDelta(t, 300, r.interp.Delay(), 1e-9)
}

func TestInterpolator_BlendsBetweenSnapshots(t *testing.T) {
	r := newInterpRig(t, nil)
	r.push(t,
		&netcomponents.WorldSnapshot{ServerTime: 100, Players: map[string]netcomponents.PlayerState{"bob": playerAt(0)}},
		&netcomponents.WorldSnapshot{ServerTime: 200, Players: map[string]netcomponents.PlayerState{"bob": {
			Position:    mgl64.Vec3{10, 0, 0},
			Orientation: gamemath.YawQuat(1),
			Velocity:    mgl64.Vec3{10, 0, 0},
			View:        gamemath.YawQuat(-1),
		}}},
	)
	r.clock.now = 250

	res := r.interp.Update("me")
	require.False(t, res.Skipped)
	assert.Equal(t, 150.0, res.Target)
	assert.Equal(t, 0.5, res.T)

	pose, ok := r.presenter.Pose(playerKey("bob"))
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{5, 0, 0}, pose.Position)
	assert.Equal(t, mgl64.Vec3{5, 0, 0}, pose.Velocity)
	assert.InDelta(t, 0.5, gamemath.YawOf(pose.Orientation), 1e-9)
	assert.InDelta(t, -0.5, gamemath.YawOf(pose.View), 1e-9)
}

func TestInterpolator_HoldsAtHead(t *testing.T) {
	r := newInterpRig(t, nil)
	r.push(t,
		&netcomponents.WorldSnapshot{ServerTime: 100, Players: map[string]netcomponents.PlayerState{"bob": playerAt(0)}},
		&netcomponents.WorldSnapshot{ServerTime: 200, Players: map[string]netcomponents.PlayerState{"bob": playerAt(10)}},
	)
	r.clock.now = 5000

	res := r.interp.Update("me")
	require.False(t, res.Skipped)
	assert.Zero(t, res.T)
	pose, _ := r.presenter.Pose(playerKey("bob"))
	assert.Equal(t, mgl64.Vec3{10, 0, 0}, pose.Position, "no extrapolation past the newest snapshot")
}

func TestInterpolator_SkipsWithoutHistory(t *testing.T) {
	r := newInterpRig(t, nil)
	res := r.interp.Update("me")
	assert.True(t, res.Skipped)

	r.push(t, &netcomponents.WorldSnapshot{ServerTime: 100, Players: map[string]netcomponents.PlayerState{"bob": playerAt(0)}})
	r.clock.now = 150
	assert.True(t, r.interp.Update("me").Skipped)
	assert.Empty(t, r.presenter.Keys())
}

func TestInterpolator_SkipsLocalPlayer(t *testing.T) {
	r := newInterpRig(t, nil)
	players := map[string]netcomponents.PlayerState{"me": playerAt(3), "bob": playerAt(4)}
	r.push(t,
		&netcomponents.WorldSnapshot{ServerTime: 100, Players: players},
		&netcomponents.WorldSnapshot{ServerTime: 200, Players: players},
	)
	r.presenter.SetPose(playerKey("me"), netcomponents.Pose{Position: mgl64.Vec3{7, 0, 0}})
	r.clock.now = 250

	r.interp.Update("me")
	pose, ok := r.presenter.Pose(playerKey("me"))
	require.True(t, ok, "the predicted local player is never pruned")
	assert.Equal(t, mgl64.Vec3{7, 0, 0}, pose.Position)
	_, ok = r.presenter.Pose(playerKey("bob"))
	assert.True(t, ok)
}

func TestInterpolator_SharedVehicle(t *testing.T) {
	profiles := profileMap{"bob": {Nickname: "Bob", Color: 0xff0000ff, Coins: 12, Held: netcomponents.Flashlight{On: true}}}
	r := newInterpRig(t, profiles)

	truck := func(x float64, seats ...string) netcomponents.VehicleState {
		v := netcomponents.VehicleState{
			ID:          "truck",
			Position:    mgl64.Vec3{x, 0, 0},
			Orientation: mgl64.QuatIdent(),
			Wheels:      []netcomponents.WheelPose{{Position: mgl64.Vec3{x, 0, 0}, Orientation: mgl64.QuatIdent()}},
		}
		for _, s := range seats {
			v.Seats = append(v.Seats, netcomponents.Seat{Occupant: s})
		}
		return v
	}
	players := map[string]netcomponents.PlayerState{"me": playerAt(1), "bob": playerAt(1)}
	r.push(t,
		&netcomponents.WorldSnapshot{ServerTime: 100, Players: players, Vehicles: []netcomponents.VehicleState{truck(0, "me", "bob")}},
		&netcomponents.WorldSnapshot{ServerTime: 200, Players: players, Vehicles: []netcomponents.VehicleState{truck(10, "me", "bob")}},
	)
	r.clock.now = 250
	r.interp.Update("me")

	seat, ok := r.presenter.Occupancy("bob")
	require.True(t, ok)
	assert.Equal(t, components.SeatInfo{
		VehicleID: "truck",
		Seat:      1,
		Sitting:   true,
		Nickname:  "Bob",
		Color:     0xff0000ff,
		Coins:     12,
		Held:      netcomponents.Flashlight{On: true},
	}, seat)

	pose, _ := r.presenter.Pose(playerKey("bob"))
	assert.Equal(t, netcomponents.Pose{}, pose, "passengers of the local vehicle are not blended")

	_, ok = r.presenter.Pose(vehicleKey("truck"))
	assert.False(t, ok, "the driven vehicle belongs to prediction")
}

func TestInterpolator_BlendsVehicleWheels(t *testing.T) {
	r := newInterpRig(t, nil)
	kart := func(x float64) netcomponents.VehicleState {
		return netcomponents.VehicleState{
			ID:          "kart",
			Position:    mgl64.Vec3{x, 0, 0},
			Orientation: mgl64.QuatIdent(),
			Wheels: []netcomponents.WheelPose{
				{Position: mgl64.Vec3{x - 1, 0, 0}, Orientation: mgl64.QuatIdent()},
				{Position: mgl64.Vec3{x + 1, 0, 0}, Orientation: mgl64.QuatIdent()},
			},
			Seats: []netcomponents.Seat{{Occupant: "bob"}},
		}
	}
	r.push(t,
		&netcomponents.WorldSnapshot{ServerTime: 100, Vehicles: []netcomponents.VehicleState{kart(0)}},
		&netcomponents.WorldSnapshot{ServerTime: 200, Vehicles: []netcomponents.VehicleState{kart(4)}},
	)
	r.clock.now = 225

	r.interp.Update("me")
	pose, ok := r.presenter.Pose(vehicleKey("kart"))
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, pose.Position)

	wheels, ok := r.presenter.Wheels("kart")
	require.True(t, ok)
	require.Len(t, wheels, 2)
	assert.Equal(t, mgl64.Vec3{0, 0, 0}, wheels[0].Position)
	assert.Equal(t, mgl64.Vec3{2, 0, 0}, wheels[1].Position)
}

func TestInterpolator_Npcs(t *testing.T) {
	r := newInterpRig(t, nil)
	npc := func(x float64) netcomponents.NpcState {
		return netcomponents.NpcState{ID: "guard", Position: mgl64.Vec3{0, 0, x}, Orientation: mgl64.QuatIdent(), View: mgl64.QuatIdent()}
	}
	r.push(t,
		&netcomponents.WorldSnapshot{ServerTime: 100, Npcs: []netcomponents.NpcState{npc(0)}},
		&netcomponents.WorldSnapshot{ServerTime: 200, Npcs: []netcomponents.NpcState{npc(-8)}},
	)
	r.clock.now = 275

	r.interp.Update("me")
	pose, ok := r.presenter.Pose(components.EntityKey{Kind: components.KindNpc, ID: "guard"})
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{0, 0, -6}, pose.Position)
}

func TestInterpolator_RemovesDepartedEntities(t *testing.T) {
	r := newInterpRig(t, nil)
	r.push(t,
		&netcomponents.WorldSnapshot{ServerTime: 100, Players: map[string]netcomponents.PlayerState{"bob": playerAt(0), "eve": playerAt(0)}},
		&netcomponents.WorldSnapshot{ServerTime: 200, Players: map[string]netcomponents.PlayerState{"bob": playerAt(1), "eve": playerAt(1)}},
	)
	r.clock.now = 250
	r.interp.Update("me")
	require.Len(t, r.presenter.Keys(), 2)

	r.push(t,
		&netcomponents.WorldSnapshot{ServerTime: 300, Players: map[string]netcomponents.PlayerState{"bob": playerAt(2)}},
		&netcomponents.WorldSnapshot{ServerTime: 400, Players: map[string]netcomponents.PlayerState{"bob": playerAt(3)}},
	)
	r.clock.now = 450
	r.interp.Update("me")

	_, ok := r.presenter.Pose(playerKey("eve"))
	assert.False(t, ok)
	assert.ElementsMatch(t, []components.EntityKey{playerKey("bob")}, r.presenter.Keys())
}

package session

import (
	"context"
	"testing"

	"github.com/automoto/convoy-mp/components"
	"github.com/automoto/convoy-mp/config"
	"github.com/automoto/convoy-mp/network"
	"github.com/automoto/convoy-mp/shared/messages"
	"github.com/automoto/convoy-mp/shared/netcomponents"
	"github.com/automoto/convoy-mp/shared/netconfig"
	"github.com/automoto/convoy-mp/shared/protocol"
	"github.com/automoto/convoy-mp/systems"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"
)

const tick = 1.0 / 60

type manualClock struct{ ms float64 }

func (m *manualClock) now() float64 { return m.ms }

type recordingSink struct{ frames [][]byte }

func (s *recordingSink) SendInput(frame []byte) error {
	s.frames = append(s.frames, frame)
	return nil
}

type rig struct {
	session   *Session
	local     *manualClock
	sink      *recordingSink
	presenter *systems.WorldPresenter
}

func newRig(t *testing.T) *rig {
	t.Helper()
	local := &manualClock{}
	sink := &recordingSink{}
	presenter := systems.NewWorldPresenter(donburi.NewWorld())
	s := New(config.Default(), Deps{
		Clock:     network.NewClock(local.now),
		Sink:      sink,
		Presenter: presenter,
	})
	return &rig{session: s, local: local, sink: sink, presenter: presenter}
}

func encode(t *testing.T, snap *netcomponents.WorldSnapshot) []byte {
	t.Helper()
	data, err := protocol.EncodeSnapshot(snap)
	require.NoError(t, err)
	return data
}

func player(x, z float64, ack uint16) netcomponents.PlayerState {
	return netcomponents.PlayerState{
		Position:              mgl64.Vec3{x, 0, z},
		Orientation:           mgl64.QuatIdent(),
		View:                  mgl64.QuatIdent(),
		LastProcessedInputSeq: ack,
	}
}

func vehicle(id string, x float64, occupants ...string) netcomponents.VehicleState {
	v := netcomponents.VehicleState{
		ID:          id,
		Position:    mgl64.Vec3{x, 0, 0},
		Orientation: mgl64.QuatIdent(),
	}
	for _, o := range occupants {
		v.Seats = append(v.Seats, netcomponents.Seat{Occupant: o})
	}
	return v
}

var idle = systems.InputSample{View: mgl64.QuatIdent()}

func TestSession_DropsMalformedFrame(t *testing.T) {
	r := newRig(t)
	err := r.session.HandleSnapshot([]byte{1, 2, 3})
	assert.True(t, IsMalformed(err))
	assert.Zero(t, r.session.History().Len())
}

func TestSession_DropsOutOfOrderSnapshot(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.session.HandleSnapshot(encode(t, &netcomponents.WorldSnapshot{ServerTime: 200})))
	require.NoError(t, r.session.HandleSnapshot(encode(t, &netcomponents.WorldSnapshot{ServerTime: 100})))
	assert.Equal(t, 1, r.session.History().Len())
	assert.Equal(t, 200.0, r.session.History().Latest().ServerTime)
}

func TestSession_ReconcilesLocalPlayer(t *testing.T) {
	r := newRig(t)
	r.session.SetLocalID("me")
	require.NoError(t, r.session.HandleSnapshot(encode(t, &netcomponents.WorldSnapshot{
		Players: map[string]netcomponents.PlayerState{"me": player(0, -20, 0)},
	})))

	stats := r.session.Advance(1.5*tick, idle)
	assert.Equal(t, 1, stats.Ticks)
	assert.Equal(t, systems.ReconcileSnapped, stats.Reconcile.Outcome)
	require.Len(t, r.sink.frames, 1)

	pose, ok := r.presenter.Pose(components.EntityKey{Kind: components.KindPlayer, ID: "me"})
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{0, 0, -20}, pose.Position)
}

func TestSession_AcknowledgedInputsLeavePending(t *testing.T) {
	r := newRig(t)
	r.session.SetLocalID("me")
	forward := systems.InputSample{Actions: netconfig.MaskOf(netconfig.MoveForward), View: mgl64.QuatIdent()}

	for i := 0; i < 5; i++ {
		r.session.Advance(tick*1.01, forward)
	}
	require.Equal(t, uint16(5), r.session.Player().LastSeq())

	pos, _ := r.session.Player().Body().Pose()
	r.local.ms = 1000
	require.NoError(t, r.session.HandleSnapshot(encode(t, &netcomponents.WorldSnapshot{
		ServerTime: 1000,
		Players:    map[string]netcomponents.PlayerState{"me": player(pos[0], pos[2], 3)},
	})))
	r.session.Advance(tick, forward)

	var seqs []uint16
	for _, p := range r.session.Player().Pending() {
		seqs = append(seqs, p.Seq)
	}
	assert.Equal(t, []uint16{4, 5, 6}, seqs)
}

func TestSession_TickBudget(t *testing.T) {
	r := newRig(t)
	assert.Zero(t, r.session.Advance(tick*3, idle).Ticks, "no ticks before joining")
	assert.Empty(t, r.sink.frames)

	r.session.SetLocalID("me")
	assert.Equal(t, 3, r.session.Advance(tick*3.5, idle).Ticks)
	assert.Equal(t, config.Default().Simulation.MaxTicksPerFrame, r.session.Advance(1, idle).Ticks)
}

func TestSession_DrivingSwitchesEngines(t *testing.T) {
	r := newRig(t)
	r.session.SetLocalID("me")
	r.session.Advance(tick, idle)
	require.Equal(t, uint16(1), r.session.Player().LastSeq())

	require.NoError(t, r.session.HandleSnapshot(encode(t, &netcomponents.WorldSnapshot{
		ServerTime: 100,
		Players:    map[string]netcomponents.PlayerState{"me": player(3, 0, 1)},
		Vehicles:   []netcomponents.VehicleState{vehicle("truck", 3, "me")},
	})))
	assert.Equal(t, ModeDriving, r.session.Mode())
	require.True(t, r.session.Vehicle().Active())
	assert.Equal(t, "truck", r.session.Vehicle().VehicleID())
	assert.Zero(t, r.session.Player().LastSeq(), "the player engine restarts when seated")

	r.session.Advance(tick, systems.InputSample{Actions: netconfig.MaskOf(netconfig.MoveForward), View: mgl64.QuatIdent()})
	assert.Len(t, r.session.Vehicle().Pending(), 1)
	_, ok := r.presenter.Pose(components.EntityKey{Kind: components.KindVehicle, ID: "truck"})
	assert.True(t, ok)

	require.NoError(t, r.session.HandleSnapshot(encode(t, &netcomponents.WorldSnapshot{
		ServerTime: 200,
		Players:    map[string]netcomponents.PlayerState{"me": player(6, 0, 0)},
		Vehicles:   []netcomponents.VehicleState{vehicle("truck", 3)},
	})))
	assert.Equal(t, ModeOnFoot, r.session.Mode())
	assert.False(t, r.session.Vehicle().Active())
	_, ok = r.presenter.Pose(components.EntityKey{Kind: components.KindVehicle, ID: "truck"})
	assert.False(t, ok)
}

func TestSession_PassengerIsPinned(t *testing.T) {
	r := newRig(t)
	r.session.SetLocalID("me")
	require.NoError(t, r.session.HandleSnapshot(encode(t, &netcomponents.WorldSnapshot{
		Players:  map[string]netcomponents.PlayerState{"me": player(2, 2, 0), "bob": player(2, 2, 0)},
		Vehicles: []netcomponents.VehicleState{vehicle("truck", 2, "bob", "me")},
	})))
	require.Equal(t, ModePassenger, r.session.Mode())

	r.session.Advance(tick, systems.InputSample{Actions: netconfig.MaskOf(netconfig.MoveForward), View: mgl64.QuatIdent()})
	pos, _ := r.session.Player().Body().Pose()
	assert.Equal(t, mgl64.Vec3{2, 0, 2}, pos)
	assert.Len(t, r.sink.frames, 1, "passenger input is still sent")
}

func TestSession_ClockSamples(t *testing.T) {
	r := newRig(t)
	assert.False(t, r.session.ApplyClockSample(network.ClockSample{LocalSend: 10, ServerMs: 100, LocalRecv: 5}))
	assert.False(t, r.session.Clock().Synced())

	assert.True(t, r.session.ApplyClockSample(network.ClockSample{LocalSend: 0, ServerMs: 1000, LocalRecv: 40}))
	assert.True(t, r.session.Clock().Synced())
	assert.Equal(t, 40.0, r.session.Clock().Ping())
}

func TestSession_ProfileWithBadItemKeepsRest(t *testing.T) {
	r := newRig(t)
	err := r.session.HandleProfile(messages.PlayerProfile{ID: "bob", Nickname: "Bob", Coins: 3, HeldKind: 77})
	assert.ErrorIs(t, err, netcomponents.ErrUnknownItem)

	prof, ok := r.session.Profiles().Profile("bob")
	require.True(t, ok)
	assert.Equal(t, "Bob", prof.Nickname)
	assert.Equal(t, netcomponents.Empty{}, prof.Held)

	kind, payload := netcomponents.EncodeHoldable(netcomponents.Pistol{Ammo: 5, Magazine: 8})
	require.NoError(t, r.session.HandleProfile(messages.PlayerProfile{ID: "bob", HeldKind: uint8(kind), HeldData: payload}))
	prof, _ = r.session.Profiles().Profile("bob")
	assert.Equal(t, netcomponents.Pistol{Ammo: 5, Magazine: 8}, prof.Held)
}

func TestSession_ResetClearsEverything(t *testing.T) {
	r := newRig(t)
	r.session.SetLocalID("me")
	r.session.ApplyClockSample(network.ClockSample{LocalSend: 0, ServerMs: 1000, LocalRecv: 40})
	require.NoError(t, r.session.HandleProfile(messages.PlayerProfile{ID: "bob"}))
	require.NoError(t, r.session.HandleSnapshot(encode(t, &netcomponents.WorldSnapshot{
		ServerTime: 100,
		Players:    map[string]netcomponents.PlayerState{"me": player(0, 0, 0)},
		Vehicles:   []netcomponents.VehicleState{vehicle("truck", 0, "me")},
	})))
	r.session.Advance(tick*3, idle)
	require.NotEmpty(t, r.session.Vehicle().Pending())

	r.session.Reset()
	assert.Zero(t, r.session.History().Len())
	assert.Empty(t, r.session.Player().Pending())
	assert.Zero(t, r.session.Player().LastSeq())
	assert.False(t, r.session.Vehicle().Active())
	assert.Empty(t, r.session.Vehicle().Pending())
	assert.False(t, r.session.Clock().Synced())
	assert.Zero(t, r.session.Profiles().Len())
	assert.Empty(t, r.presenter.Keys())
	assert.Empty(t, r.session.LocalID())
	assert.Equal(t, ModeOnFoot, r.session.Mode())
}

type fakeLink struct {
	state    network.ClientState
	id       string
	tickRate int
	frames   [][]byte
	profiles []messages.PlayerProfile
}

func (l *fakeLink) RoundTrip(context.Context, float64) (float64, error) { return 0, nil }
func (l *fakeLink) Connect(string, messages.JoinRequest)                {}
func (l *fakeLink) SendInput([]byte) error                              { return nil }
func (l *fakeLink) State() network.ClientState                          { return l.state }
func (l *fakeLink) LastError() error                                    { return nil }
func (l *fakeLink) LocalID() string                                     { return l.id }
func (l *fakeLink) TickRate() int                                       { return l.tickRate }
func (l *fakeLink) Disconnect()                                         {}

func (l *fakeLink) DrainWorldFrames() [][]byte {
	out := l.frames
	l.frames = nil
	return out
}

func (l *fakeLink) DrainProfiles() []messages.PlayerProfile {
	out := l.profiles
	l.profiles = nil
	return out
}

var _ network.Link = (*fakeLink)(nil)

func TestSession_PumpDrainsLink(t *testing.T) {
	r := newRig(t)
	link := &fakeLink{
		state:    network.StateJoinedGame,
		id:       "me",
		tickRate: 20,
		frames: [][]byte{
			encode(t, &netcomponents.WorldSnapshot{ServerTime: 100, Players: map[string]netcomponents.PlayerState{"bob": player(0, 0, 0)}}),
			{0xff},
			encode(t, &netcomponents.WorldSnapshot{ServerTime: 200, Players: map[string]netcomponents.PlayerState{"bob": player(4, 0, 0)}}),
		},
		profiles: []messages.PlayerProfile{{ID: "bob", Nickname: "Bob"}},
	}

	assert.Equal(t, 2, r.session.Pump(link))
	assert.Equal(t, "me", r.session.LocalID())
	assert.Equal(t, 2, r.session.History().Len())
	assert.Equal(t, 1, r.session.Profiles().Len())

	// 20 Hz puts the delay at 100 ms; render halfway between the snapshots.
	r.local.ms = 250
	stats := r.session.Advance(tick, idle)
	assert.False(t, stats.Interp.Skipped)
	pose, ok := r.presenter.Pose(components.EntityKey{Kind: components.KindPlayer, ID: "bob"})
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{2, 0, 0}, pose.Position)

	seat, _ := r.presenter.Occupancy("bob")
	assert.Equal(t, "Bob", seat.Nickname)
}

func TestSession_ResetIgnoresEndedLink(t *testing.T) {
	r := newRig(t)
	r.session.SetLocalID("p1")
	require.NoError(t, r.session.HandleSnapshot(encode(t, &netcomponents.WorldSnapshot{
		ServerTime: 49000, Players: map[string]netcomponents.PlayerState{"p1": player(0, 0, 0)},
	})))

	// The old connection still holds an id and a late frame when it drops.
	link := &fakeLink{
		state: network.StateDisconnected,
		id:    "p1",
		frames: [][]byte{encode(t, &netcomponents.WorldSnapshot{
			ServerTime: 50000, Players: map[string]netcomponents.PlayerState{"p1": player(0, 0, 0)},
		})},
	}
	r.session.Reset()
	assert.Zero(t, r.session.Pump(link))
	assert.Empty(t, r.session.LocalID())
	assert.Zero(t, r.session.History().Len())

	// A restarted server clock is accepted once the new join lands.
	link.state = network.StateJoinedGame
	link.id = "p7"
	link.frames = [][]byte{encode(t, &netcomponents.WorldSnapshot{
		ServerTime: 100, Players: map[string]netcomponents.PlayerState{"p7": player(0, 0, 0)},
	})}
	assert.Equal(t, 1, r.session.Pump(link))
	assert.Equal(t, "p7", r.session.LocalID())
	require.NotNil(t, r.session.History().Latest())
	assert.Equal(t, 100.0, r.session.History().Latest().ServerTime)
}

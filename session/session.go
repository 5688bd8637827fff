// Package session drives the client core from one goroutine: network
// arrival, the fixed simulation step and the per-frame interpolation pass.
package session

import (
	"errors"
	"math"

	"github.com/automoto/convoy-mp/components"
	"github.com/automoto/convoy-mp/config"
	"github.com/automoto/convoy-mp/network"
	"github.com/automoto/convoy-mp/shared/leveldata"
	"github.com/automoto/convoy-mp/shared/messages"
	"github.com/automoto/convoy-mp/shared/netcomponents"
	"github.com/automoto/convoy-mp/shared/protocol"
	"github.com/automoto/convoy-mp/systems"
	"github.com/automoto/convoy-mp/telemetry"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// localBody is the physics key of the locally controlled character.
const localBody = "local"

// Mode says which engine owns the local input.
type Mode int

const (
	ModeOnFoot Mode = iota
	ModeDriving
	ModePassenger
)

func (m Mode) String() string {
	switch m {
	case ModeOnFoot:
		return "on_foot"
	case ModeDriving:
		return "driving"
	case ModePassenger:
		return "passenger"
	}
	return "unknown"
}

// Deps are the collaborators a Session is built from.
type Deps struct {
	Clock     *network.Clock
	Sink      systems.InputSink
	Presenter systems.Presenter
	Level     *leveldata.CollisionData // nil for an open plane
	Logger    *zap.Logger
	Metrics   *telemetry.Metrics
}

// FrameStats describes one Advance call.
type FrameStats struct {
	Ticks     int
	Mode      Mode
	Reconcile systems.ReconcileResult // last non-idle reconciliation this frame
	Interp    systems.InterpResult
}

// Session owns the client core's state. It is not safe for concurrent use;
// every method runs on the game loop goroutine.
type Session struct {
	cfg     config.Config
	root    *zap.Logger
	logger  *zap.Logger
	metrics *telemetry.Metrics

	clock     *network.Clock
	history   *network.History
	physics   *systems.PhysicsWorld
	player    *systems.PlayerPrediction
	vehicle   *systems.VehiclePrediction
	interp    *systems.Interpolator
	presenter systems.Presenter
	profiles  *Profiles
	sink      systems.InputSink

	localID     string
	mode        Mode
	seat        netcomponents.Occupancy
	accumulator float64
	lastView    mgl64.Quat
}

func New(cfg config.Config, deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = network.NewClock(network.MonotonicMs())
	}

	s := &Session{
		cfg:       cfg,
		root:      logger,
		logger:    logger.Named("session"),
		metrics:   deps.Metrics,
		clock:     clock,
		history:   network.NewHistory(cfg.Network.HistoryCapacity),
		physics:   systems.NewPhysicsWorld(deps.Level, cfg.Physics.PixelsPerUnit, cfg.Player, cfg.Vehicle),
		presenter: deps.Presenter,
		profiles:  NewProfiles(),
		sink:      deps.Sink,
		seat:      netcomponents.Occupancy{Seat: -1},
		lastView:  mgl64.QuatIdent(),
	}
	s.player = systems.NewPlayerPrediction(cfg.Player, s.physics.Player(localBody), clock, s.sink, logger, s.metrics)
	s.vehicle = systems.NewVehiclePrediction(cfg.Vehicle, clock, s.sink, logger, s.metrics)
	s.interp = systems.NewInterpolator(cfg.Interp, s.history, clock, s.presenter, s.profiles, s.metrics)
	s.interp.SetServerTickRate(cfg.Network.ServerTickRate)
	return s
}

func (s *Session) LocalID() string                     { return s.localID }
func (s *Session) Mode() Mode                          { return s.mode }
func (s *Session) Clock() *network.Clock               { return s.clock }
func (s *Session) History() *network.History           { return s.history }
func (s *Session) Player() *systems.PlayerPrediction   { return s.player }
func (s *Session) Vehicle() *systems.VehiclePrediction { return s.vehicle }
func (s *Session) Profiles() *Profiles                 { return s.profiles }

// SetLocalID names the player this client controls.
func (s *Session) SetLocalID(id string) {
	if id == s.localID {
		return
	}
	s.localID = id
	if lp, ok := s.presenter.(interface{ SetLocalID(string) }); ok {
		lp.SetLocalID(id)
	}
	s.logger.Info("local player", zap.String("id", id))
}

// SetServerTickRate adapts interpolation to the server's announced rate.
func (s *Session) SetServerTickRate(hz int) {
	s.interp.SetServerTickRate(hz)
}

// HandleSnapshot decodes one world frame, stores it and hands the local
// entity's authoritative state to its engine. A malformed frame changes
// nothing.
func (s *Session) HandleSnapshot(data []byte) error {
	snap, err := protocol.DecodeSnapshot(data)
	if err != nil {
		s.metrics.SnapshotDropped(telemetry.DropMalformed)
		s.logger.Debug("dropping world frame", zap.Int("bytes", len(data)), zap.Error(err))
		return err
	}

	accepted, evicted := s.history.Push(snap)
	if !accepted {
		s.metrics.SnapshotDropped(telemetry.DropOutOfOrder)
		s.logger.Debug("dropping out of order snapshot", zap.Float64("server_time", snap.ServerTime))
		return nil
	}
	if evicted {
		s.metrics.HistoryEvicted()
	}
	s.metrics.SnapshotDecoded()

	s.observe(snap)
	return nil
}

// observe switches engines on seat changes and feeds the active one.
func (s *Session) observe(snap *netcomponents.WorldSnapshot) {
	if s.localID == "" {
		return
	}
	occ := snap.OccupancyOf(s.localID)
	mode := ModeOnFoot
	switch {
	case occ.Driving():
		mode = ModeDriving
	case occ.Sitting():
		mode = ModePassenger
	}

	if mode != s.mode || occ.VehicleID != s.seat.VehicleID {
		s.switchMode(mode, occ, snap)
	}
	s.seat = occ

	if mode == ModeDriving {
		if state, ok := snap.Vehicle(occ.VehicleID); ok {
			s.vehicle.Observe(state, snap.ServerTime)
		}
		return
	}
	if state, ok := snap.Player(s.localID); ok {
		s.player.Observe(state, snap.ServerTime)
	}
}

func (s *Session) switchMode(mode Mode, occ netcomponents.Occupancy, snap *netcomponents.WorldSnapshot) {
	s.logger.Info("seat change",
		zap.Stringer("from", s.mode),
		zap.Stringer("to", mode),
		zap.String("vehicle", occ.VehicleID))

	if s.mode == ModeDriving && s.presenter != nil {
		s.presenter.Remove(components.EntityKey{Kind: components.KindVehicle, ID: s.vehicle.VehicleID()})
	}
	s.player.Reset()
	if mode == ModeDriving {
		state, _ := snap.Vehicle(occ.VehicleID)
		s.vehicle.Attach(occ.VehicleID, s.physics.Vehicle(occ.VehicleID), state)
	} else {
		s.vehicle.Detach()
	}
	s.mode = mode
}

// HandleProfile stores a player profile for presentation.
func (s *Session) HandleProfile(msg messages.PlayerProfile) error {
	if err := s.profiles.Apply(msg); err != nil {
		s.logger.Warn("profile item", zap.Error(err))
		return err
	}
	return nil
}

// ApplyClockSample feeds one time-sync round trip to the clock.
func (s *Session) ApplyClockSample(sample network.ClockSample) bool {
	ok := s.clock.RecordRoundTrip(sample.LocalSend, sample.ServerMs, sample.LocalRecv)
	if !ok {
		s.logger.Debug("rejected clock sample",
			zap.Float64("send", sample.LocalSend),
			zap.Float64("recv", sample.LocalRecv))
		return false
	}
	s.logger.Debug("clock sample",
		zap.Float64("offset_ms", s.clock.Offset()),
		zap.Float64("ping_ms", s.clock.Ping()))
	return true
}

// Pump drains everything the link has buffered since the last frame. Nothing
// is taken from a link that is not joined, so a reset session is not refilled
// from a connection that already ended.
func (s *Session) Pump(link network.Link) int {
	if link.State() != network.StateJoinedGame {
		return 0
	}
	if id := link.LocalID(); id != "" {
		s.SetLocalID(id)
	}
	if hz := link.TickRate(); hz > 0 {
		s.SetServerTickRate(hz)
	}

	handled := 0
	for _, frame := range link.DrainWorldFrames() {
		if err := s.HandleSnapshot(frame); err == nil {
			handled++
		}
	}
	for _, profile := range link.DrainProfiles() {
		// Bad items are already logged; the profile is kept regardless.
		_ = s.HandleProfile(profile)
	}
	return handled
}

// Advance runs the fixed-step simulation for frameDt seconds of wall time,
// then the interpolation pass.
func (s *Session) Advance(frameDt float64, in systems.InputSample) FrameStats {
	stats := FrameStats{Mode: s.mode}
	if in.View == (mgl64.Quat{}) {
		in.View = s.lastView
	}
	s.lastView = in.View

	if s.localID != "" && frameDt > 0 {
		dt := s.cfg.Simulation.TickDt()
		s.accumulator += frameDt
		for s.accumulator >= dt && stats.Ticks < s.cfg.Simulation.MaxTicksPerFrame {
			if res := s.tick(dt, in); res.Outcome != systems.ReconcileIdle {
				stats.Reconcile = res
			}
			s.accumulator -= dt
			stats.Ticks++
		}
		if s.accumulator >= dt {
			s.logger.Debug("simulation behind, dropping time", zap.Float64("seconds", s.accumulator))
			s.accumulator = math.Mod(s.accumulator, dt)
		}
		s.presentLocal()
	}

	if s.presenter != nil {
		stats.Interp = s.interp.Update(s.localID)
	}
	return stats
}

func (s *Session) tick(dt float64, in systems.InputSample) systems.ReconcileResult {
	switch s.mode {
	case ModeDriving:
		res := s.vehicle.Reconcile()
		s.vehicle.Predict(dt, in)
		return res
	case ModePassenger:
		res := s.player.Reconcile()
		s.player.Predict(dt, in)
		s.pinToSeat()
		return res
	default:
		res := s.player.Reconcile()
		s.player.Predict(dt, in)
		return res
	}
}

// pinToSeat holds a passenger at its last authoritative position. Inputs are
// still sent so the server sees interact and horn presses.
func (s *Session) pinToSeat() {
	latest := s.history.Latest()
	state, ok := latest.Player(s.localID)
	if !ok {
		return
	}
	body := s.player.Body()
	body.SetPose(state.Position, state.Orientation)
	body.SetVelocity(mgl64.Vec3{})
}

func (s *Session) presentLocal() {
	if s.presenter == nil {
		return
	}
	playerKey := components.EntityKey{Kind: components.KindPlayer, ID: s.localID}

	if s.mode == ModeDriving && s.vehicle.Active() {
		body := s.vehicle.Body()
		pos, orientation := body.Pose()
		pose := netcomponents.Pose{Position: pos, Orientation: orientation, Velocity: body.Velocity(), View: s.lastView}
		s.presenter.SetPose(components.EntityKey{Kind: components.KindVehicle, ID: s.vehicle.VehicleID()}, pose)
		s.presenter.SetWheels(s.vehicle.VehicleID(), body.Wheels())
		s.presenter.SetPose(playerKey, pose)
		return
	}

	body := s.player.Body()
	pos, orientation := body.Pose()
	s.presenter.SetPose(playerKey, netcomponents.Pose{
		Position:    pos,
		Orientation: orientation,
		Velocity:    body.Velocity(),
		View:        s.lastView,
	})
}

// Reset drops all state tied to the current connection: history, pending
// inputs and sequence numbers of both engines, the clock offset, profiles,
// presentation and physics bodies.
func (s *Session) Reset() {
	s.history.Clear()
	s.vehicle.Detach()
	s.physics.Clear()
	s.player = systems.NewPlayerPrediction(s.cfg.Player, s.physics.Player(localBody), s.clock, s.sink, s.root, s.metrics)
	s.clock.Reset()
	s.profiles.Clear()
	if s.presenter != nil {
		s.presenter.Clear()
	}
	s.localID = ""
	s.mode = ModeOnFoot
	s.seat = netcomponents.Occupancy{Seat: -1}
	s.accumulator = 0
	s.lastView = mgl64.QuatIdent()
	s.logger.Info("session reset")
}

// IsMalformed reports whether err came from a bad world frame.
func IsMalformed(err error) bool {
	return errors.Is(err, protocol.ErrMalformedMessage)
}

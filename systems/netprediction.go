package systems

import (
	"errors"
	"math"

	"github.com/automoto/convoy-mp/config"
	"github.com/automoto/convoy-mp/network"
	"github.com/automoto/convoy-mp/shared/gamemath"
	"github.com/automoto/convoy-mp/shared/netcomponents"
	"github.com/automoto/convoy-mp/shared/netconfig"
	"github.com/automoto/convoy-mp/shared/protocol"
	"github.com/automoto/convoy-mp/telemetry"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// ServerClock is what prediction and interpolation read from network.Clock.
type ServerClock interface {
	EstimateServerNow() float64
	Ping() float64
}

// InputSink receives one encoded input frame per predicted tick.
type InputSink interface {
	SendInput(frame []byte) error
}

// InputSample is the local input captured for one tick.
type InputSample struct {
	Actions netconfig.ActionMask
	View    mgl64.Quat
	ViewPos mgl64.Vec3
}

type ReconcileOutcome int

const (
	ReconcileIdle      ReconcileOutcome = iota // no authoritative state to apply
	ReconcileStale                             // acknowledgement older than one applied
	ReconcileDeadZone                          // error too small to correct
	ReconcileCorrected                         // partial blend toward the server
	ReconcileSnapped                           // hard snap plus replay
)

func (o ReconcileOutcome) String() string {
	switch o {
	case ReconcileIdle:
		return "idle"
	case ReconcileStale:
		return "stale"
	case ReconcileDeadZone:
		return "dead_zone"
	case ReconcileCorrected:
		return "corrected"
	case ReconcileSnapped:
		return "snapped"
	}
	return "unknown"
}

// ReconcileResult reports what one reconciliation did.
type ReconcileResult struct {
	Outcome ReconcileOutcome
	Error   float64 // distance between server and rewound prediction
	Dropped int     // acknowledged inputs discarded
}

// deadZone is the error below which no correction is applied.
func deadZone(c config.CorrectionConfig, pingMs float64) float64 {
	return c.DeadZoneBase + c.DeadZonePerPingMs*pingMs
}

// correctionFactor is the share of the error corrected in one go. It shrinks
// as ping grows and halves while the entity is moving.
func correctionFactor(c config.CorrectionConfig, pingMs, horizontalSpeed float64) float64 {
	f := math.Max(c.MinFactor, c.BaseFactor*c.FactorPingMs/math.Max(pingMs, c.FactorPingMs))
	if horizontalSpeed > c.MovingSpeed {
		f *= c.MovingScale
	}
	return f
}

func capLength(v mgl64.Vec3, max float64) mgl64.Vec3 {
	if l := v.Len(); l > max && l > 0 {
		return v.Mul(max / l)
	}
	return v
}

// rewind estimates where the entity was when the server state was taken.
// ageMs is clamped to zero so a future-dated snapshot never extrapolates.
func rewind(position, velocity mgl64.Vec3, ageMs float64) mgl64.Vec3 {
	if ageMs <= 0 {
		return position
	}
	return position.Sub(velocity.Mul(ageMs / 1000))
}

// predictor holds what player and vehicle prediction share: the pending
// input list, the outbound sink and the server clock.
type predictor struct {
	entity  string
	buffer  network.PredictionBuffer
	clock   ServerClock
	sink    InputSink
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

func newPredictor(entity string, clock ServerClock, sink InputSink, logger *zap.Logger, metrics *telemetry.Metrics) predictor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return predictor{
		entity:  entity,
		clock:   clock,
		sink:    sink,
		logger:  logger.Named("prediction").With(zap.String("entity", entity)),
		metrics: metrics,
	}
}

func (p *predictor) emit(in network.PendingInput) {
	if p.sink == nil {
		return
	}
	frame := protocol.EncodeInputFrame(protocol.InputFrame{
		Seq:      in.Seq,
		Actions:  in.Actions,
		Dt:       in.Dt,
		ViewQuat: in.ViewQuat,
		ViewPos:  in.ViewPos,
	})
	err := p.sink.SendInput(frame)
	p.metrics.InputSent(p.entity, err == nil)
	if err != nil && !errors.Is(err, network.ErrNotConnected) {
		p.logger.Warn("send input", zap.Uint16("seq", in.Seq), zap.Error(err))
	}
}

// ageOf is how long ago, on the server clock, the server measured the state in
// a snapshot. Transit time is included. Never negative.
func (p *predictor) ageOf(serverTime float64) float64 {
	if p.clock == nil {
		return 0
	}
	return math.Max(0, p.clock.EstimateServerNow()-serverTime)
}

func (p *predictor) ping() float64 {
	if p.clock == nil {
		return 0
	}
	return p.clock.Ping()
}

func (p *predictor) record(res ReconcileResult) {
	p.metrics.Reconciled(p.entity, res.Outcome.String(), res.Error)
	if res.Outcome == ReconcileSnapped {
		p.logger.Debug("hard snap", zap.Float64("error", res.Error), zap.Int("replayed", p.buffer.Len()))
	}
}

// Pending returns the unacknowledged inputs in send order.
func (p *predictor) Pending() []network.PendingInput {
	return p.buffer.Unacknowledged()
}

// LastSeq is the newest sequence number handed out.
func (p *predictor) LastSeq() uint16 {
	return p.buffer.LastSeq()
}

// PlayerPrediction predicts and reconciles the locally controlled character.
type PlayerPrediction struct {
	predictor
	cfg  config.PlayerConfig
	body Body

	simTime      float64 // seconds of predicted simulation
	lastGrounded float64
	lastJump     float64

	server     *netcomponents.PlayerState
	serverTime float64
}

func NewPlayerPrediction(cfg config.PlayerConfig, body Body, clock ServerClock, sink InputSink,
	logger *zap.Logger, metrics *telemetry.Metrics) *PlayerPrediction {
	p := &PlayerPrediction{
		predictor: newPredictor("player", clock, sink, logger, metrics),
		cfg:       cfg,
		body:      body,
	}
	p.resetTimers()
	return p
}

func (p *PlayerPrediction) Body() Body { return p.body }

// Observe stores the local player's authoritative state from a snapshot. Only
// the newest observation is kept until the next Reconcile.
func (p *PlayerPrediction) Observe(state netcomponents.PlayerState, serverTime float64) {
	if p.server != nil && serverTime <= p.serverTime {
		return
	}
	s := state
	p.server = &s
	p.serverTime = serverTime
}

// Predict runs one fixed tick: it numbers and records the input, sends it and
// advances the body.
func (p *PlayerPrediction) Predict(dt float64, in InputSample) network.PendingInput {
	pending := network.PendingInput{
		Seq:      p.buffer.NextSeq(),
		Actions:  in.Actions,
		Dt:       dt,
		ViewQuat: in.View,
		ViewPos:  in.ViewPos,
	}

	if p.body.Grounded() {
		p.lastGrounded = p.simTime
	}
	if in.Actions.Has(netconfig.Jump) &&
		p.simTime-p.lastGrounded <= p.cfg.CoyoteTime.Seconds() &&
		p.simTime-p.lastJump >= p.cfg.JumpCooldown.Seconds() {
		pending.Jumped = true
		p.lastJump = p.simTime
		p.lastGrounded = math.Inf(-1)
	}

	p.step(pending)
	p.simTime += dt

	p.buffer.Store(pending)
	p.emit(pending)
	return pending
}

// step applies one recorded input to the body.
func (p *PlayerPrediction) step(in network.PendingInput) {
	yaw := gamemath.YawOf(in.ViewQuat)
	wish := mgl64.Vec3{
		in.Actions.Axis(netconfig.MoveRight, netconfig.MoveLeft),
		0,
		-in.Actions.Axis(netconfig.MoveForward, netconfig.MoveBack),
	}
	horizontal := mgl64.Vec3{}
	if l := wish.Len(); l > 0 {
		horizontal = gamemath.YawQuat(yaw).Rotate(wish.Mul(1 / l)).Mul(p.speedFor(in.Actions))
	}

	pos, _ := p.body.Pose()
	p.body.SetPose(pos, gamemath.YawQuat(yaw))
	vel := p.body.Velocity()
	p.body.SetVelocity(mgl64.Vec3{horizontal[0], vel[1], horizontal[2]})
	if in.Jumped {
		p.body.ApplyJumpImpulse()
	}
	p.body.Step(in.Dt)
}

func (p *PlayerPrediction) speedFor(actions netconfig.ActionMask) float64 {
	switch {
	case actions.Has(netconfig.Aim):
		return p.cfg.AimSpeed
	case actions.Has(netconfig.Sprint):
		return p.cfg.SprintSpeed
	default:
		return p.cfg.WalkSpeed
	}
}

// Reconcile applies the newest observed server state, if any.
func (p *PlayerPrediction) Reconcile() ReconcileResult {
	if p.server == nil {
		return ReconcileResult{Outcome: ReconcileIdle}
	}
	server := *p.server
	p.server = nil

	ack := server.LastProcessedInputSeq
	if p.buffer.IsStale(ack) {
		res := ReconcileResult{Outcome: ReconcileStale}
		p.record(res)
		return res
	}

	c := p.cfg.Correction
	pos, orientation := p.body.Pose()
	vel := p.body.Velocity()
	errVec := server.Position.Sub(rewind(pos, vel, p.ageOf(p.serverTime)))
	res := ReconcileResult{Error: errVec.Len()}
	ping := p.ping()

	switch {
	case res.Error > c.SnapThreshold:
		p.body.SetPose(server.Position, server.Orientation)
		p.body.SetVelocity(server.Velocity)
		res.Dropped = p.buffer.Acknowledge(ack)
		p.replay()
		res.Outcome = ReconcileSnapped
	case res.Error > deadZone(c, ping):
		// The nudge lands on the present state, which already holds every
		// pending input; replaying them again would move the body twice.
		factor := correctionFactor(c, ping, gamemath.Horizontal(vel).Len())
		p.body.SetPose(pos.Add(capLength(errVec.Mul(factor), c.MaxCorrection)), orientation)
		res.Dropped = p.buffer.Acknowledge(ack)
		res.Outcome = ReconcileCorrected
	default:
		res.Dropped = p.buffer.Acknowledge(ack)
		res.Outcome = ReconcileDeadZone
	}

	p.record(res)
	return res
}

// replay re-simulates every retained input on the current body state.
func (p *PlayerPrediction) replay() {
	for _, in := range p.buffer.Unacknowledged() {
		p.step(in)
	}
}

// Reset forgets pending inputs, numbering, timers and server state.
func (p *PlayerPrediction) Reset() {
	p.buffer.Reset()
	p.server = nil
	p.serverTime = 0
	p.resetTimers()
}

func (p *PlayerPrediction) resetTimers() {
	p.simTime = 0
	p.lastGrounded = math.Inf(-1)
	p.lastJump = math.Inf(-1)
}

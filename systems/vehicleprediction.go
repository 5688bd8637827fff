package systems

import (
	"github.com/automoto/convoy-mp/config"
	"github.com/automoto/convoy-mp/network"
	"github.com/automoto/convoy-mp/shared/gamemath"
	"github.com/automoto/convoy-mp/shared/netcomponents"
	"github.com/automoto/convoy-mp/shared/netconfig"
	"github.com/automoto/convoy-mp/telemetry"
	"go.uber.org/zap"
)

// VehiclePrediction predicts and reconciles the vehicle the local player
// drives.
type VehiclePrediction struct {
	predictor
	cfg config.VehicleConfig

	vehicleID string
	body      VehicleBody

	// Current front wheel angles; they chase the Ackermann targets at
	// cfg.SteerRate.
	steerLeft, steerRight float64

	server     *netcomponents.VehicleState
	serverTime float64
}

func NewVehiclePrediction(cfg config.VehicleConfig, clock ServerClock, sink InputSink,
	logger *zap.Logger, metrics *telemetry.Metrics) *VehiclePrediction {
	return &VehiclePrediction{
		predictor: newPredictor("vehicle", clock, sink, logger, metrics),
		cfg:       cfg,
	}
}

// Attach starts driving vehicleID with body, placing the body at state.
// Attaching to another vehicle drops everything pending for the old one.
func (v *VehiclePrediction) Attach(vehicleID string, body VehicleBody, state netcomponents.VehicleState) {
	if v.vehicleID == vehicleID && v.body == body {
		return
	}
	v.Reset()
	v.vehicleID = vehicleID
	v.body = body
	body.SetPose(state.Position, state.Orientation)
	body.SetVelocity(state.Velocity)
	body.SetAngularVelocity(state.AngularVelocity)
}

// Detach stops driving.
func (v *VehiclePrediction) Detach() {
	v.Reset()
	v.vehicleID = ""
	v.body = nil
}

func (v *VehiclePrediction) VehicleID() string { return v.vehicleID }

func (v *VehiclePrediction) Body() VehicleBody { return v.body }

func (v *VehiclePrediction) Active() bool { return v.body != nil }

// Observe stores the driven vehicle's authoritative state from a snapshot.
func (v *VehiclePrediction) Observe(state netcomponents.VehicleState, serverTime float64) {
	if state.ID != v.vehicleID {
		return
	}
	if v.server != nil && serverTime <= v.serverTime {
		return
	}
	s := state
	v.server = &s
	v.serverTime = serverTime
}

// Predict runs one fixed tick of driving. Without an attached vehicle nothing
// is numbered, stored or sent.
func (v *VehiclePrediction) Predict(dt float64, in InputSample) network.PendingInput {
	if v.body == nil {
		return network.PendingInput{}
	}
	pending := network.PendingInput{
		Seq:      v.buffer.NextSeq(),
		Actions:  in.Actions,
		Dt:       dt,
		ViewQuat: in.View,
		ViewPos:  in.ViewPos,
	}

	steer := in.Actions.Axis(netconfig.MoveLeft, netconfig.MoveRight)
	targetLeft, targetRight := 0.0, 0.0
	if steer != 0 {
		targetLeft, targetRight = gamemath.AckermannAngles(steer, v.cfg.Wheelbase, v.cfg.Track, v.cfg.TurnRadius)
	}
	maxStep := v.cfg.SteerRate * dt
	v.steerLeft = gamemath.Approach(v.steerLeft, targetLeft, maxStep)
	v.steerRight = gamemath.Approach(v.steerRight, targetRight, maxStep)
	pending.SteerLeft, pending.SteerRight = v.steerLeft, v.steerRight

	v.step(pending)
	v.buffer.Store(pending)
	v.emit(pending)
	return pending
}

// controls derives body controls from a recorded input and the body's
// current speed.
func (v *VehiclePrediction) controls(in network.PendingInput) VehicleControls {
	_, orientation := v.body.Pose()
	speed := forwardSpeed(orientation, v.body.Velocity())

	c := VehicleControls{
		Throttle:   in.Actions.Axis(netconfig.MoveForward, netconfig.MoveBack),
		SteerLeft:  in.SteerLeft,
		SteerRight: in.SteerRight,
	}
	if in.Actions.Has(netconfig.MoveBack) && speed > v.cfg.BrakeThreshold {
		c.Brake = true
		c.Throttle = 0
	}
	return c
}

func (v *VehiclePrediction) step(in network.PendingInput) {
	v.body.SetControls(v.controls(in))
	v.body.Step(in.Dt)
}

// Reconcile applies the newest observed server state, if any.
func (v *VehiclePrediction) Reconcile() ReconcileResult {
	if v.server == nil || v.body == nil {
		return ReconcileResult{Outcome: ReconcileIdle}
	}
	server := *v.server
	v.server = nil

	ack := server.LastProcessedInputSeq
	if v.buffer.IsStale(ack) {
		res := ReconcileResult{Outcome: ReconcileStale}
		v.record(res)
		return res
	}

	c := v.cfg.Correction
	pos, orientation := v.body.Pose()
	vel := v.body.Velocity()
	errVec := server.Position.Sub(rewind(pos, vel, v.ageOf(v.serverTime)))
	res := ReconcileResult{Error: errVec.Len()}
	ping := v.ping()

	switch {
	case res.Error > c.SnapThreshold:
		v.body.SetPose(server.Position, server.Orientation)
		v.body.SetVelocity(server.Velocity)
		v.body.SetAngularVelocity(server.AngularVelocity)
		res.Dropped = v.buffer.Acknowledge(ack)
		v.replay()
		res.Outcome = ReconcileSnapped
	case res.Error > deadZone(c, ping):
		// The nudge lands on the present state, which already holds every
		// pending input; replaying them again would move the vehicle twice.
		factor := correctionFactor(c, ping, gamemath.Horizontal(vel).Len())
		v.body.SetPose(
			pos.Add(capLength(errVec.Mul(factor), c.MaxCorrection)),
			gamemath.Slerp(orientation, server.Orientation, factor))
		v.body.SetVelocity(server.Velocity)
		v.body.SetAngularVelocity(server.AngularVelocity)
		res.Dropped = v.buffer.Acknowledge(ack)
		res.Outcome = ReconcileCorrected
	default:
		res.Dropped = v.buffer.Acknowledge(ack)
		res.Outcome = ReconcileDeadZone
	}

	v.record(res)
	return res
}

func (v *VehiclePrediction) replay() {
	for _, in := range v.buffer.Unacknowledged() {
		v.step(in)
	}
}

// Steering returns the current front wheel angles.
func (v *VehiclePrediction) Steering() (left, right float64) {
	return v.steerLeft, v.steerRight
}

// Reset forgets pending inputs, numbering, steering and server state. The
// attached body stays.
func (v *VehiclePrediction) Reset() {
	v.buffer.Reset()
	v.server = nil
	v.serverTime = 0
	v.steerLeft, v.steerRight = 0, 0
}

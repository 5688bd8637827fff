package systems

import (
	"math"

	"github.com/automoto/convoy-mp/config"
	"github.com/automoto/convoy-mp/shared/gamemath"
	"github.com/automoto/convoy-mp/shared/leveldata"
	"github.com/automoto/convoy-mp/shared/netcomponents"
	"github.com/automoto/convoy-mp/tags"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/solarlune/resolv"
)

// Body is the physics collaborator for one controllable character. The
// prediction engine treats it as an opaque integrator.
type Body interface {
	Pose() (position mgl64.Vec3, orientation mgl64.Quat)
	SetPose(position mgl64.Vec3, orientation mgl64.Quat)
	Velocity() mgl64.Vec3
	SetVelocity(v mgl64.Vec3)
	ApplyJumpImpulse()
	Grounded() bool
	Step(dt float64)
}

// VehicleControls is one tick of driver intent as the body consumes it.
type VehicleControls struct {
	Throttle   float64 // -1..1, negative reverses
	Brake      bool
	SteerLeft  float64 // front wheel angles, radians, positive turns left
	SteerRight float64
}

// VehicleBody is the physics collaborator for a drivable vehicle.
type VehicleBody interface {
	Pose() (position mgl64.Vec3, orientation mgl64.Quat)
	SetPose(position mgl64.Vec3, orientation mgl64.Quat)
	Velocity() mgl64.Vec3
	SetVelocity(v mgl64.Vec3)
	AngularVelocity() mgl64.Vec3
	SetAngularVelocity(w mgl64.Vec3)
	SetControls(c VehicleControls)
	Wheels() []netcomponents.WheelPose
	Step(dt float64)
}

// PhysicsWorld is the reference collaborator: a flat ground plane at y=0 and
// obstacle footprints on the XZ plane. Collision runs in map pixels through a
// resolv space; positions stay in world units.
type PhysicsWorld struct {
	space *resolv.Space
	ppu   float64

	playerCfg  config.PlayerConfig
	vehicleCfg config.VehicleConfig

	players  map[string]*PlayerBody
	vehicles map[string]*VehicleRig
}

// NewPhysicsWorld builds the collision space from level data. A nil level
// gives an open plane.
func NewPhysicsWorld(level *leveldata.CollisionData, pixelsPerUnit float64,
	playerCfg config.PlayerConfig, vehicleCfg config.VehicleConfig) *PhysicsWorld {
	if pixelsPerUnit <= 0 {
		pixelsPerUnit = 1
	}
	w, h := 1024, 1024
	if level != nil && level.MapWidth > 0 && level.MapHeight > 0 {
		w, h = level.MapWidth, level.MapHeight
	}

	pw := &PhysicsWorld{
		space:      resolv.NewSpace(w, h, 16, 16),
		ppu:        pixelsPerUnit,
		playerCfg:  playerCfg,
		vehicleCfg: vehicleCfg,
		players:    make(map[string]*PlayerBody),
		vehicles:   make(map[string]*VehicleRig),
	}

	if level != nil {
		for _, r := range level.SolidRects {
			obj := resolv.NewObject(r.X, r.Y, r.W, r.H, tags.ResolvSolid)
			obj.SetShape(resolv.NewRectangle(0, 0, r.W, r.H))
			pw.space.Add(obj)
		}
	}
	return pw
}

// Player returns the body for id, creating it at the origin on first use.
func (pw *PhysicsWorld) Player(id string) *PlayerBody {
	if b, ok := pw.players[id]; ok {
		return b
	}
	side := 2 * pw.playerCfg.Radius * pw.ppu
	b := &PlayerBody{
		world:       pw,
		cfg:         pw.playerCfg,
		orientation: mgl64.QuatIdent(),
		grounded:    true,
		obj:         resolv.NewObject(-side/2, -side/2, side, side, tags.ResolvPlayer),
	}
	b.obj.SetShape(resolv.NewRectangle(0, 0, side, side))
	pw.space.Add(b.obj)
	pw.players[id] = b
	return b
}

// Vehicle returns the rig for id, creating it at the origin on first use.
func (pw *PhysicsWorld) Vehicle(id string) *VehicleRig {
	if v, ok := pw.vehicles[id]; ok {
		return v
	}
	side := 2 * pw.vehicleCfg.HalfWidth * pw.ppu
	v := &VehicleRig{
		world:       pw,
		cfg:         pw.vehicleCfg,
		orientation: mgl64.QuatIdent(),
		obj:         resolv.NewObject(-side/2, -side/2, side, side, tags.ResolvVehicle),
	}
	v.obj.SetShape(resolv.NewRectangle(0, 0, side, side))
	pw.space.Add(v.obj)
	pw.vehicles[id] = v
	return v
}

// Clear removes every body, keeping the obstacles.
func (pw *PhysicsWorld) Clear() {
	for id, b := range pw.players {
		pw.space.Remove(b.obj)
		delete(pw.players, id)
	}
	for id, v := range pw.vehicles {
		pw.space.Remove(v.obj)
		delete(pw.vehicles, id)
	}
}

// sweep moves a footprint by (dx, dz) world units, one axis at a time,
// stopping at solids. It reports which axes were blocked.
func (pw *PhysicsWorld) sweep(obj *resolv.Object, pos *mgl64.Vec3, dx, dz float64) (blockedX, blockedZ bool) {
	place := func() {
		obj.X = pos[0]*pw.ppu - obj.W/2
		obj.Y = pos[2]*pw.ppu - obj.H/2
		obj.Update()
	}
	place()

	if dx != 0 {
		if check := obj.Check(dx*pw.ppu, 0, tags.ResolvSolid); check != nil {
			if solids := check.ObjectsByTags(tags.ResolvSolid); len(solids) > 0 {
				dx = check.ContactWithObject(solids[0]).X() / pw.ppu
				blockedX = true
			}
		}
		pos[0] += dx
		place()
	}
	if dz != 0 {
		if check := obj.Check(0, dz*pw.ppu, tags.ResolvSolid); check != nil {
			if solids := check.ObjectsByTags(tags.ResolvSolid); len(solids) > 0 {
				dz = check.ContactWithObject(solids[0]).Y() / pw.ppu
				blockedZ = true
			}
		}
		pos[2] += dz
		place()
	}
	return blockedX, blockedZ
}

// PlayerBody is a character with gravity and a ground plane at y=0.
type PlayerBody struct {
	world *PhysicsWorld
	cfg   config.PlayerConfig
	obj   *resolv.Object

	position    mgl64.Vec3
	orientation mgl64.Quat
	velocity    mgl64.Vec3
	grounded    bool
}

func (b *PlayerBody) Pose() (mgl64.Vec3, mgl64.Quat) { return b.position, b.orientation }

func (b *PlayerBody) SetPose(position mgl64.Vec3, orientation mgl64.Quat) {
	b.position = position
	b.orientation = orientation
	b.grounded = position[1] <= 0
}

func (b *PlayerBody) Velocity() mgl64.Vec3     { return b.velocity }
func (b *PlayerBody) SetVelocity(v mgl64.Vec3) { b.velocity = v }
func (b *PlayerBody) Grounded() bool           { return b.grounded }

func (b *PlayerBody) ApplyJumpImpulse() {
	b.velocity[1] = b.cfg.JumpSpeed
	b.grounded = false
}

func (b *PlayerBody) Step(dt float64) {
	if !b.grounded || b.velocity[1] != 0 {
		b.velocity[1] -= b.cfg.Gravity * dt
	}

	blockedX, blockedZ := b.world.sweep(b.obj, &b.position, b.velocity[0]*dt, b.velocity[2]*dt)
	if blockedX {
		b.velocity[0] = 0
	}
	if blockedZ {
		b.velocity[2] = 0
	}

	b.position[1] += b.velocity[1] * dt
	if b.position[1] <= 0 {
		b.position[1] = 0
		b.velocity[1] = 0
		b.grounded = true
	} else {
		b.grounded = false
	}
}

// VehicleRig is a kinematic bicycle-model car: the two front wheel angles
// are averaged into one yaw rate.
type VehicleRig struct {
	world *PhysicsWorld
	cfg   config.VehicleConfig
	obj   *resolv.Object

	position        mgl64.Vec3
	orientation     mgl64.Quat
	velocity        mgl64.Vec3
	angularVelocity mgl64.Vec3
	controls        VehicleControls
	wheelSpin       float64
}

func (v *VehicleRig) Pose() (mgl64.Vec3, mgl64.Quat) { return v.position, v.orientation }

func (v *VehicleRig) SetPose(position mgl64.Vec3, orientation mgl64.Quat) {
	v.position = position
	v.orientation = orientation
}

func (v *VehicleRig) Velocity() mgl64.Vec3            { return v.velocity }
func (v *VehicleRig) SetVelocity(vel mgl64.Vec3)      { v.velocity = vel }
func (v *VehicleRig) AngularVelocity() mgl64.Vec3     { return v.angularVelocity }
func (v *VehicleRig) SetAngularVelocity(w mgl64.Vec3) { v.angularVelocity = w }
func (v *VehicleRig) SetControls(c VehicleControls)   { v.controls = c }
func (v *VehicleRig) Controls() VehicleControls       { return v.controls }

// ForwardSpeed is the signed speed along the vehicle's facing.
func (v *VehicleRig) ForwardSpeed() float64 {
	return forwardSpeed(v.orientation, v.velocity)
}

func forwardSpeed(orientation mgl64.Quat, velocity mgl64.Vec3) float64 {
	fwd := gamemath.Horizontal(gamemath.NormalizeQuat(orientation).Rotate(mgl64.Vec3{0, 0, -1}))
	if l := fwd.Len(); l > 1e-9 {
		fwd = fwd.Mul(1 / l)
	}
	return velocity.Dot(fwd)
}

func (v *VehicleRig) Step(dt float64) {
	c := v.cfg
	speed := v.ForwardSpeed()

	switch {
	case v.controls.Brake:
		speed = gamemath.Approach(speed, 0, c.BrakeDecel*dt)
	case v.controls.Throttle != 0:
		speed = gamemath.Clamp(speed+v.controls.Throttle*c.Acceleration*dt, -c.ReverseSpeed, c.MaxSpeed)
	default:
		speed = gamemath.Approach(speed, 0, c.RollingDrag*dt)
	}

	yawRate := 0.0
	if c.Wheelbase > 0 {
		yawRate = speed * (math.Tan(v.controls.SteerLeft) + math.Tan(v.controls.SteerRight)) / (2 * c.Wheelbase)
	}
	if yawRate != 0 {
		v.orientation = gamemath.NormalizeQuat(gamemath.YawQuat(yawRate * dt).Mul(v.orientation))
	}
	v.angularVelocity = mgl64.Vec3{0, yawRate, 0}

	fwd := gamemath.Horizontal(v.orientation.Rotate(mgl64.Vec3{0, 0, -1}))
	if l := fwd.Len(); l > 1e-9 {
		fwd = fwd.Mul(1 / l)
	}
	v.velocity = fwd.Mul(speed)

	blockedX, blockedZ := v.world.sweep(v.obj, &v.position, v.velocity[0]*dt, v.velocity[2]*dt)
	if blockedX || blockedZ {
		v.velocity = mgl64.Vec3{}
		speed = 0
	}
	if c.WheelRadius > 0 {
		v.wheelSpin = math.Mod(v.wheelSpin+speed*dt/c.WheelRadius, 2*math.Pi)
	}
}

// Wheels returns front-left, front-right, rear-left, rear-right.
func (v *VehicleRig) Wheels() []netcomponents.WheelPose {
	c := v.cfg
	halfTrack, halfBase := c.Track/2, c.Wheelbase/2
	spin := mgl64.QuatRotate(-v.wheelSpin, mgl64.Vec3{1, 0, 0})

	layout := []struct {
		local mgl64.Vec3
		steer float64
	}{
		{mgl64.Vec3{-halfTrack, c.WheelRadius, -halfBase}, v.controls.SteerLeft},
		{mgl64.Vec3{halfTrack, c.WheelRadius, -halfBase}, v.controls.SteerRight},
		{mgl64.Vec3{-halfTrack, c.WheelRadius, halfBase}, 0},
		{mgl64.Vec3{halfTrack, c.WheelRadius, halfBase}, 0},
	}

	out := make([]netcomponents.WheelPose, len(layout))
	for i, w := range layout {
		out[i] = netcomponents.WheelPose{
			Position:    v.position.Add(v.orientation.Rotate(w.local)),
			Orientation: gamemath.NormalizeQuat(v.orientation.Mul(gamemath.YawQuat(w.steer)).Mul(spin)),
		}
	}
	return out
}

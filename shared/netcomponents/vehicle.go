package netcomponents

import "github.com/go-gl/mathgl/mgl64"

// DriverSeat is the seat index whose occupant drives the vehicle.
const DriverSeat = 0

// WheelPose is one wheel's world pose.
type WheelPose struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

// Seat is one seat of a vehicle. An empty Occupant means the seat is free.
type Seat struct {
	Occupant string
	Offset   mgl64.Vec3 // seat-local position
}

// VehicleState is one vehicle's authoritative state inside a snapshot.
type VehicleState struct {
	ID              string
	Position        mgl64.Vec3
	Orientation     mgl64.Quat
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3
	Horn            bool
	Wheels          []WheelPose
	Seats           []Seat

	LastProcessedInputSeq uint16
}

func (v VehicleState) Pose() Pose {
	return Pose{
		Position:    v.Position,
		Orientation: v.Orientation,
		Velocity:    v.Velocity,
		View:        v.Orientation,
	}
}

// Driver returns the occupant of the driver seat.
func (v VehicleState) Driver() (string, bool) {
	if len(v.Seats) <= DriverSeat || v.Seats[DriverSeat].Occupant == "" {
		return "", false
	}
	return v.Seats[DriverSeat].Occupant, true
}

// SeatOf returns the seat index occupied by id, or -1.
func (v VehicleState) SeatOf(id string) int {
	if id == "" {
		return -1
	}
	for i, s := range v.Seats {
		if s.Occupant == id {
			return i
		}
	}
	return -1
}

// LerpWheels blends wheel poses pairwise. Mismatched wheel counts hold the
// newer layout.
func LerpWheels(from, to []WheelPose, t float64) []WheelPose {
	if len(from) != len(to) {
		out := make([]WheelPose, len(to))
		copy(out, to)
		return out
	}
	out := make([]WheelPose, len(to))
	for i := range to {
		out[i] = LerpWheel(from[i], to[i], t)
	}
	return out
}

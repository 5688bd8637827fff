package components

import (
	"github.com/automoto/convoy-mp/shared/netcomponents"
	"github.com/yohamta/donburi"
)

// EntityKind says which snapshot list a presented entity comes from.
type EntityKind uint8

const (
	KindPlayer EntityKind = iota
	KindVehicle
	KindNpc
)

func (k EntityKind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindVehicle:
		return "vehicle"
	case KindNpc:
		return "npc"
	}
	return "unknown"
}

// EntityKey names one networked entity.
type EntityKey struct {
	Kind EntityKind
	ID   string
}

// NetIdentityData links a presentation entity to its snapshot id.
type NetIdentityData struct {
	Key EntityKey
}

// NetWheelsData holds the blended wheel poses of a vehicle.
type NetWheelsData struct {
	Wheels []netcomponents.WheelPose
}

// SeatInfo is the discrete, non-blended state of a player: where it sits and
// its profile.
type SeatInfo struct {
	VehicleID string
	Seat      int
	Sitting   bool
	Nickname  string
	Color     uint32
	Coins     int
	Held      netcomponents.Holdable
}

type NetOccupancyData struct {
	SeatInfo
}

var (
	NetIdentity  = donburi.NewComponentType[NetIdentityData]()
	NetWheels    = donburi.NewComponentType[NetWheelsData]()
	NetOccupancy = donburi.NewComponentType[NetOccupancyData]()
)

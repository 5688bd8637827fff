package netcomponents

// WorldSnapshot is one decoded, timestamped copy of the authoritative world.
// It is never mutated after decode.
type WorldSnapshot struct {
	ServerTime float64 // ms, server clock
	Players    map[string]PlayerState
	Vehicles   []VehicleState
	Npcs       []NpcState
}

// Player looks up a player by id.
func (s *WorldSnapshot) Player(id string) (PlayerState, bool) {
	if s == nil {
		return PlayerState{}, false
	}
	p, ok := s.Players[id]
	return p, ok
}

// Vehicle looks up a vehicle by id.
func (s *WorldSnapshot) Vehicle(id string) (VehicleState, bool) {
	if s == nil {
		return VehicleState{}, false
	}
	for _, v := range s.Vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return VehicleState{}, false
}

// Npc looks up an NPC by id.
func (s *WorldSnapshot) Npc(id string) (NpcState, bool) {
	if s == nil {
		return NpcState{}, false
	}
	for _, n := range s.Npcs {
		if n.ID == id {
			return n, true
		}
	}
	return NpcState{}, false
}

// Occupancy describes where a player sits, if anywhere.
type Occupancy struct {
	VehicleID string
	Seat      int
}

// Sitting reports whether the player occupies any seat.
func (o Occupancy) Sitting() bool {
	return o.VehicleID != ""
}

// Driving reports whether the player holds the driver seat.
func (o Occupancy) Driving() bool {
	return o.Sitting() && o.Seat == DriverSeat
}

// OccupancyOf scans the vehicles' seats for playerID.
func (s *WorldSnapshot) OccupancyOf(playerID string) Occupancy {
	if s == nil || playerID == "" {
		return Occupancy{Seat: -1}
	}
	for _, v := range s.Vehicles {
		if seat := v.SeatOf(playerID); seat >= 0 {
			return Occupancy{VehicleID: v.ID, Seat: seat}
		}
	}
	return Occupancy{Seat: -1}
}

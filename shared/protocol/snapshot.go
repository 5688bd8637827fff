package protocol

import (
	"sort"

	"github.com/automoto/convoy-mp/shared/gamemath"
	"github.com/automoto/convoy-mp/shared/netcomponents"
	"github.com/automoto/convoy-mp/shared/netconfig"
)

// Smallest possible encodings, used to bound preallocation from untrusted counts.
const (
	minPlayerSize  = 1 + 14*4 + 2 + 2
	minVehicleSize = 1 + 13*4 + 1 + 1 + 1 + 2
	minNpcSize     = 1 + 14*4 + 2
)

// DecodeSnapshot parses one world snapshot. Any read past the end of data
// returns an error wrapping ErrMalformedMessage and no snapshot. Bytes after
// the NPC section are ignored.
func DecodeSnapshot(data []byte) (*netcomponents.WorldSnapshot, error) {
	r := &reader{buf: data}
	snap := &netcomponents.WorldSnapshot{}

	snap.ServerTime = r.f64("server time")

	n := int(r.u16("player count"))
	snap.Players = make(map[string]netcomponents.PlayerState, bounded(n, r, minPlayerSize))
	for i := 0; i < n && r.err == nil; i++ {
		id := r.str("player id")
		p := netcomponents.PlayerState{
			Position:    r.vec3("player position"),
			Orientation: gamemath.SanitizeQuat(r.quat("player orientation")),
			Velocity:    r.vec3("player velocity"),
			View:        gamemath.SanitizeQuat(r.quat("player view")),
			Actions:     netconfig.ActionMask(r.u16("player actions")),
		}
		p.LastProcessedInputSeq = r.u16("player ack")
		snap.Players[id] = p
	}

	n = int(r.u16("vehicle count"))
	snap.Vehicles = make([]netcomponents.VehicleState, 0, bounded(n, r, minVehicleSize))
	for i := 0; i < n && r.err == nil; i++ {
		snap.Vehicles = append(snap.Vehicles, readVehicle(r))
	}

	n = int(r.u16("npc count"))
	snap.Npcs = make([]netcomponents.NpcState, 0, bounded(n, r, minNpcSize))
	for i := 0; i < n && r.err == nil; i++ {
		snap.Npcs = append(snap.Npcs, netcomponents.NpcState{
			ID:          r.str("npc id"),
			Position:    r.vec3("npc position"),
			Orientation: gamemath.SanitizeQuat(r.quat("npc orientation")),
			Velocity:    r.vec3("npc velocity"),
			View:        gamemath.SanitizeQuat(r.quat("npc view")),
			Actions:     netconfig.ActionMask(r.u16("npc actions")),
		})
	}

	if r.err != nil {
		return nil, r.err
	}
	return snap, nil
}

func readVehicle(r *reader) netcomponents.VehicleState {
	v := netcomponents.VehicleState{
		ID:              r.str("vehicle id"),
		Position:        r.vec3("vehicle position"),
		Orientation:     gamemath.SanitizeQuat(r.quat("vehicle orientation")),
		Velocity:        r.vec3("vehicle velocity"),
		AngularVelocity: r.vec3("vehicle angular velocity"),
		Horn:            r.u8("vehicle horn") != 0,
	}

	wheels := int(r.u8("wheel count"))
	v.Wheels = make([]netcomponents.WheelPose, 0, wheels)
	for i := 0; i < wheels && r.err == nil; i++ {
		v.Wheels = append(v.Wheels, netcomponents.WheelPose{
			Position:    r.vec3("wheel position"),
			Orientation: gamemath.SanitizeQuat(r.quat("wheel orientation")),
		})
	}

	seats := int(r.u8("seat count"))
	v.Seats = make([]netcomponents.Seat, 0, seats)
	for i := 0; i < seats && r.err == nil; i++ {
		v.Seats = append(v.Seats, netcomponents.Seat{
			Occupant: r.str("seat occupant"),
			Offset:   r.vec3("seat offset"),
		})
	}

	v.LastProcessedInputSeq = r.u16("vehicle ack")
	return v
}

func bounded(n int, r *reader, minSize int) int {
	if left := (len(r.buf) - r.off) / minSize; n > left {
		return left
	}
	return n
}

// EncodeSnapshot writes snap in the layout DecodeSnapshot reads. Players go out
// in id order so equal snapshots encode to equal bytes.
func EncodeSnapshot(snap *netcomponents.WorldSnapshot) ([]byte, error) {
	w := &writer{buf: make([]byte, 0, 256)}
	w.f64(snap.ServerTime)

	ids := make([]string, 0, len(snap.Players))
	for id := range snap.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	w.count16(len(ids), "players")
	for _, id := range ids {
		p := snap.Players[id]
		w.str(id, "player id")
		w.vec3(p.Position)
		w.quat(p.Orientation)
		w.vec3(p.Velocity)
		w.quat(p.View)
		w.u16(uint16(p.Actions))
		w.u16(p.LastProcessedInputSeq)
	}

	w.count16(len(snap.Vehicles), "vehicles")
	for _, v := range snap.Vehicles {
		w.str(v.ID, "vehicle id")
		w.vec3(v.Position)
		w.quat(v.Orientation)
		w.vec3(v.Velocity)
		w.vec3(v.AngularVelocity)
		if v.Horn {
			w.u8(1)
		} else {
			w.u8(0)
		}
		w.count8(len(v.Wheels), "wheels")
		for _, wh := range v.Wheels {
			w.vec3(wh.Position)
			w.quat(wh.Orientation)
		}
		w.count8(len(v.Seats), "seats")
		for _, s := range v.Seats {
			w.str(s.Occupant, "seat occupant")
			w.vec3(s.Offset)
		}
		w.u16(v.LastProcessedInputSeq)
	}

	w.count16(len(snap.Npcs), "npcs")
	for _, n := range snap.Npcs {
		w.str(n.ID, "npc id")
		w.vec3(n.Position)
		w.quat(n.Orientation)
		w.vec3(n.Velocity)
		w.quat(n.View)
		w.u16(uint16(n.Actions))
	}

	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}

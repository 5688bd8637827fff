package systems

import (
	"math"

	"github.com/automoto/convoy-mp/components"
	"github.com/automoto/convoy-mp/config"
	"github.com/automoto/convoy-mp/network"
	"github.com/automoto/convoy-mp/shared/gamemath"
	"github.com/automoto/convoy-mp/shared/netcomponents"
	"github.com/automoto/convoy-mp/telemetry"
)

// ProfileSource looks up the slow-changing part of a player.
type ProfileSource interface {
	Profile(id string) (Profile, bool)
}

// Profile is a decoded messages.PlayerProfile.
type Profile struct {
	Nickname string
	Color    uint32
	Coins    int
	Held     netcomponents.Holdable
}

// InterpResult describes one interpolation pass.
type InterpResult struct {
	Skipped bool    // not enough history yet
	Target  float64 // server time rendered, ms
	T       float64 // blend factor between the bracketing snapshots
}

// Interpolator renders every remote entity a fixed delay in the past,
// blending between the two snapshots around that moment.
type Interpolator struct {
	cfg       config.InterpConfig
	history   *network.History
	clock     ServerClock
	presenter Presenter
	profiles  ProfileSource
	metrics   *telemetry.Metrics

	tickIntervalMs float64
}

func NewInterpolator(cfg config.InterpConfig, history *network.History, clock ServerClock,
	presenter Presenter, profiles ProfileSource, metrics *telemetry.Metrics) *Interpolator {
	return &Interpolator{
		cfg:            cfg,
		history:        history,
		clock:          clock,
		presenter:      presenter,
		profiles:       profiles,
		metrics:        metrics,
		tickIntervalMs: 1000.0 / 30,
	}
}

// SetServerTickRate adapts the delay to the server's snapshot cadence.
func (ip *Interpolator) SetServerTickRate(hz int) {
	if hz > 0 {
		ip.tickIntervalMs = 1000 / float64(hz)
	}
}

// Delay is how far behind the estimated server clock remote entities render.
func (ip *Interpolator) Delay() float64 {
	return math.Max(ip.cfg.MinDelayMs, ip.cfg.TickMultiplier*ip.tickIntervalMs+ip.cfg.PingFactor*ip.clock.Ping())
}

// Update blends every remote entity for this frame. localID is never touched;
// neither is the vehicle localID is driving.
func (ip *Interpolator) Update(localID string) InterpResult {
	target := ip.clock.EstimateServerNow() - ip.Delay()
	older, newer := ip.history.Bracket(target)
	if older == nil {
		ip.metrics.InterpolationSkipped()
		return InterpResult{Skipped: true, Target: target}
	}

	t := 0.0
	discrete := older
	if newer != nil {
		t = gamemath.BlendFactor(target, older.ServerTime, newer.ServerTime)
		discrete = newer
	} else {
		newer = older
	}

	local := discrete.OccupancyOf(localID)
	present := make(map[components.EntityKey]bool)

	for id, from := range older.Players {
		if id == localID {
			continue
		}
		key := components.EntityKey{Kind: components.KindPlayer, ID: id}
		present[key] = true

		to, ok := newer.Players[id]
		if !ok {
			to = from
		}
		occ := discrete.OccupancyOf(id)
		ip.presenter.SetOccupancy(id, ip.seatInfo(id, occ))

		// Passengers sharing the local player's vehicle ride with it.
		if local.Sitting() && occ.VehicleID == local.VehicleID {
			continue
		}
		ip.presenter.SetPose(key, netcomponents.LerpPose(from.Pose(), to.Pose(), t))
	}

	for _, from := range older.Vehicles {
		if local.Driving() && from.ID == local.VehicleID {
			continue
		}
		key := components.EntityKey{Kind: components.KindVehicle, ID: from.ID}
		present[key] = true

		to, ok := newer.Vehicle(from.ID)
		if !ok {
			to = from
		}
		ip.presenter.SetPose(key, netcomponents.LerpPose(from.Pose(), to.Pose(), t))
		ip.presenter.SetWheels(from.ID, netcomponents.LerpWheels(from.Wheels, to.Wheels, t))
	}

	for _, from := range older.Npcs {
		key := components.EntityKey{Kind: components.KindNpc, ID: from.ID}
		present[key] = true

		to, ok := newer.Npc(from.ID)
		if !ok {
			to = from
		}
		ip.presenter.SetPose(key, netcomponents.LerpPose(from.Pose(), to.Pose(), t))
	}

	ip.prune(older, newer, localID, local, present)
	return InterpResult{Target: target, T: t}
}

func (ip *Interpolator) seatInfo(id string, occ netcomponents.Occupancy) components.SeatInfo {
	info := components.SeatInfo{
		VehicleID: occ.VehicleID,
		Seat:      occ.Seat,
		Sitting:   occ.Sitting(),
		Held:      netcomponents.Empty{},
	}
	if ip.profiles != nil {
		if p, ok := ip.profiles.Profile(id); ok {
			info.Nickname = p.Nickname
			info.Color = p.Color
			info.Coins = p.Coins
			if p.Held != nil {
				info.Held = p.Held
			}
		}
	}
	return info
}

// prune removes presentation entities absent from both snapshots. The local
// player and its driven vehicle belong to prediction and are kept.
func (ip *Interpolator) prune(older, newer *netcomponents.WorldSnapshot, localID string,
	local netcomponents.Occupancy, present map[components.EntityKey]bool) {
	for _, key := range ip.presenter.Keys() {
		if present[key] {
			continue
		}
		switch key.Kind {
		case components.KindPlayer:
			if key.ID == localID {
				continue
			}
			if _, ok := newer.Player(key.ID); ok {
				continue
			}
		case components.KindVehicle:
			if local.Driving() && key.ID == local.VehicleID {
				continue
			}
			if _, ok := newer.Vehicle(key.ID); ok {
				continue
			}
		case components.KindNpc:
			if _, ok := newer.Npc(key.ID); ok {
				continue
			}
		}
		ip.presenter.Remove(key)
	}
}

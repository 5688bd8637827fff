package systems

import (
	"github.com/automoto/convoy-mp/archetypes"
	"github.com/automoto/convoy-mp/components"
	"github.com/automoto/convoy-mp/shared/netcomponents"
	"github.com/automoto/convoy-mp/tags"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

// Presenter receives per-frame state for every networked entity. The core
// only pushes into it; it never reads presentation state back except to
// learn which keys exist.
type Presenter interface {
	SetPose(key components.EntityKey, pose netcomponents.Pose)
	SetWheels(vehicleID string, wheels []netcomponents.WheelPose)
	SetOccupancy(playerID string, seat components.SeatInfo)
	Remove(key components.EntityKey)
	Keys() []components.EntityKey
	Clear()
}

// WorldPresenter stores presentation state as donburi entities, one per
// networked entity.
type WorldPresenter struct {
	world    donburi.World
	entities map[components.EntityKey]donburi.Entity
	localID  string
}

func NewWorldPresenter(world donburi.World) *WorldPresenter {
	return &WorldPresenter{
		world:    world,
		entities: make(map[components.EntityKey]donburi.Entity),
	}
}

func (p *WorldPresenter) World() donburi.World { return p.world }

// SetLocalID marks the player entity with that id as the local one.
func (p *WorldPresenter) SetLocalID(id string) {
	p.localID = id
	if entry, ok := p.lookup(components.EntityKey{Kind: components.KindPlayer, ID: id}); ok && !entry.HasComponent(tags.Local) {
		entry.AddComponent(tags.Local)
	}
}

func (p *WorldPresenter) lookup(key components.EntityKey) (*donburi.Entry, bool) {
	e, ok := p.entities[key]
	if !ok || !p.world.Valid(e) {
		return nil, false
	}
	return p.world.Entry(e), true
}

func (p *WorldPresenter) entry(key components.EntityKey) *donburi.Entry {
	if entry, ok := p.lookup(key); ok {
		return entry
	}
	var extra []donburi.IComponentType
	if key.Kind == components.KindPlayer && key.ID == p.localID && p.localID != "" {
		extra = append(extra, tags.Local)
	}
	entry := archetypes.ForKind(key.Kind).Spawn(p.world, extra...)
	components.NetIdentity.SetValue(entry, components.NetIdentityData{Key: key})
	p.entities[key] = entry.Entity()
	return entry
}

func (p *WorldPresenter) SetPose(key components.EntityKey, pose netcomponents.Pose) {
	netcomponents.NetPose.SetValue(p.entry(key), pose)
}

func (p *WorldPresenter) SetWheels(vehicleID string, wheels []netcomponents.WheelPose) {
	entry := p.entry(components.EntityKey{Kind: components.KindVehicle, ID: vehicleID})
	components.NetWheels.SetValue(entry, components.NetWheelsData{Wheels: wheels})
}

func (p *WorldPresenter) SetOccupancy(playerID string, seat components.SeatInfo) {
	entry := p.entry(components.EntityKey{Kind: components.KindPlayer, ID: playerID})
	components.NetOccupancy.SetValue(entry, components.NetOccupancyData{SeatInfo: seat})
}

func (p *WorldPresenter) Remove(key components.EntityKey) {
	if e, ok := p.entities[key]; ok {
		if p.world.Valid(e) {
			p.world.Remove(e)
		}
		delete(p.entities, key)
	}
}

func (p *WorldPresenter) Keys() []components.EntityKey {
	keys := make([]components.EntityKey, 0, len(p.entities))
	for k := range p.entities {
		keys = append(keys, k)
	}
	return keys
}

func (p *WorldPresenter) Clear() {
	for k := range p.entities {
		p.Remove(k)
	}
}

// Pose reads back the presented pose of key.
func (p *WorldPresenter) Pose(key components.EntityKey) (netcomponents.Pose, bool) {
	entry, ok := p.lookup(key)
	if !ok {
		return netcomponents.Pose{}, false
	}
	return *netcomponents.NetPose.Get(entry), true
}

// Occupancy reads back the presented seat info of a player.
func (p *WorldPresenter) Occupancy(playerID string) (components.SeatInfo, bool) {
	entry, ok := p.lookup(components.EntityKey{Kind: components.KindPlayer, ID: playerID})
	if !ok {
		return components.SeatInfo{}, false
	}
	return components.NetOccupancy.Get(entry).SeatInfo, true
}

// Wheels reads back the presented wheels of a vehicle.
func (p *WorldPresenter) Wheels(vehicleID string) ([]netcomponents.WheelPose, bool) {
	entry, ok := p.lookup(components.EntityKey{Kind: components.KindVehicle, ID: vehicleID})
	if !ok {
		return nil, false
	}
	return components.NetWheels.Get(entry).Wheels, true
}

// EachPresented visits every presented entity that carries a pose.
func (p *WorldPresenter) EachPresented(fn func(key components.EntityKey, pose netcomponents.Pose, local bool)) {
	donburi.NewQuery(filter.Contains(components.NetIdentity, netcomponents.NetPose)).Each(p.world, func(entry *donburi.Entry) {
		fn(components.NetIdentity.Get(entry).Key, *netcomponents.NetPose.Get(entry), entry.HasComponent(tags.Local))
	})
}

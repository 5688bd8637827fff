package archetypes

import (
	"github.com/automoto/convoy-mp/components"
	"github.com/automoto/convoy-mp/shared/netcomponents"
	"github.com/automoto/convoy-mp/tags"
	"github.com/yohamta/donburi"
)

var (
	Player = newArchetype(
		tags.Player,
		components.NetIdentity,
		netcomponents.NetPose,
		components.NetOccupancy,
	)
	Vehicle = newArchetype(
		tags.Vehicle,
		components.NetIdentity,
		netcomponents.NetPose,
		components.NetWheels,
	)
	Npc = newArchetype(
		tags.Npc,
		components.NetIdentity,
		netcomponents.NetPose,
	)
)

// ForKind returns the archetype presenting entities of kind k.
func ForKind(k components.EntityKind) *archetype {
	switch k {
	case components.KindVehicle:
		return Vehicle
	case components.KindNpc:
		return Npc
	default:
		return Player
	}
}

type archetype struct {
	components []donburi.IComponentType
}

func newArchetype(cs ...donburi.IComponentType) *archetype {
	return &archetype{
		components: cs,
	}
}

func (a *archetype) Spawn(world donburi.World, cs ...donburi.IComponentType) *donburi.Entry {
	all := make([]donburi.IComponentType, 0, len(a.components)+len(cs))
	all = append(all, a.components...)
	all = append(all, cs...)
	return world.Entry(world.Create(all...))
}

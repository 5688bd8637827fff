package tags

import "github.com/yohamta/donburi"

var (
	Player  = donburi.NewTag().SetName("Player")
	Vehicle = donburi.NewTag().SetName("Vehicle")
	Npc     = donburi.NewTag().SetName("Npc")
	Local   = donburi.NewTag().SetName("Local")
)

// Resolv tags for physics collision
const (
	ResolvSolid   = "solid"
	ResolvPlayer  = "Player"
	ResolvVehicle = "Vehicle"
)

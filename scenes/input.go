package scenes

import (
	"github.com/automoto/convoy-mp/shared/netconfig"
	"github.com/hajimehoshi/ebiten/v2"
)

// KeyBindings maps each action to the keys that press it.
type KeyBindings map[netconfig.ActionID][]ebiten.Key

func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		netconfig.MoveForward:  {ebiten.KeyW, ebiten.KeyArrowUp},
		netconfig.MoveBack:     {ebiten.KeyS, ebiten.KeyArrowDown},
		netconfig.MoveLeft:     {ebiten.KeyA, ebiten.KeyArrowLeft},
		netconfig.MoveRight:    {ebiten.KeyD, ebiten.KeyArrowRight},
		netconfig.Jump:         {ebiten.KeySpace},
		netconfig.Sprint:       {ebiten.KeyShiftLeft},
		netconfig.Interact:     {ebiten.KeyF},
		netconfig.Reload:       {ebiten.KeyR},
		netconfig.Shoot:        {ebiten.KeyJ},
		netconfig.Aim:          {ebiten.KeyK},
		netconfig.SpawnVehicle: {ebiten.KeyV},
		netconfig.UseHorn:      {ebiten.KeyH},
		netconfig.Slot1:        {ebiten.Key1},
		netconfig.Slot2:        {ebiten.Key2},
		netconfig.Slot3:        {ebiten.Key3},
		netconfig.Slot4:        {ebiten.Key4},
	}
}

// Capture builds the action mask from the keys currently held.
func (kb KeyBindings) Capture(pressed func(ebiten.Key) bool) netconfig.ActionMask {
	var mask netconfig.ActionMask
	for action, keys := range kb {
		for _, k := range keys {
			if pressed(k) {
				mask = mask.With(action)
				break
			}
		}
	}
	return mask
}

// Package netconfig defines lightweight types shared between the client core and
// the wire codec. It must have zero dependencies on ebiten or any graphics library
// so headless tools and tests can link it.
package netconfig

import "strings"

// ActionID represents a logical game action. Each action owns one fixed bit of
// the 16-bit input mask sent to and echoed by the server.
type ActionID uint8

const (
	MoveForward ActionID = iota
	MoveBack
	MoveLeft
	MoveRight
	Jump
	Sprint
	Interact
	Reload
	Shoot
	Aim
	SpawnVehicle
	UseHorn
	Slot1
	Slot2
	Slot3
	Slot4
	ActionCount // Must be last - used for array sizing
)

var actionNames = [ActionCount]string{
	MoveForward:  "forward",
	MoveBack:     "back",
	MoveLeft:     "left",
	MoveRight:    "right",
	Jump:         "jump",
	Sprint:       "sprint",
	Interact:     "interact",
	Reload:       "reload",
	Shoot:        "shoot",
	Aim:          "aim",
	SpawnVehicle: "spawn_vehicle",
	UseHorn:      "horn",
	Slot1:        "slot1",
	Slot2:        "slot2",
	Slot3:        "slot3",
	Slot4:        "slot4",
}

func (a ActionID) String() string {
	if a < ActionCount {
		return actionNames[a]
	}
	return "unknown"
}

// ActionMask is the wire form of the pressed action set.
type ActionMask uint16

// MaskOf builds a mask with the given actions set.
func MaskOf(actions ...ActionID) ActionMask {
	var m ActionMask
	for _, a := range actions {
		m = m.With(a)
	}
	return m
}

// Has reports whether action a is set.
func (m ActionMask) Has(a ActionID) bool {
	if a >= ActionCount {
		return false
	}
	return m&(1<<a) != 0
}

// With returns m with action a set.
func (m ActionMask) With(a ActionID) ActionMask {
	if a >= ActionCount {
		return m
	}
	return m | 1<<a
}

// Without returns m with action a cleared.
func (m ActionMask) Without(a ActionID) ActionMask {
	if a >= ActionCount {
		return m
	}
	return m &^ (1 << a)
}

// Set returns m with action a set or cleared depending on pressed.
func (m ActionMask) Set(a ActionID, pressed bool) ActionMask {
	if pressed {
		return m.With(a)
	}
	return m.Without(a)
}

// Actions decodes the mask into its actions, lowest bit first.
func (m ActionMask) Actions() []ActionID {
	var out []ActionID
	for a := ActionID(0); a < ActionCount; a++ {
		if m.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

// Directional reports whether any of the four movement actions is set.
func (m ActionMask) Directional() bool {
	return m.Has(MoveForward) || m.Has(MoveBack) ||
		m.Has(MoveLeft) || m.Has(MoveRight)
}

func (m ActionMask) String() string {
	actions := m.Actions()
	if len(actions) == 0 {
		return "none"
	}
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.String()
	}
	return strings.Join(names, "|")
}

// Axis returns +1 when only pos is set, -1 when only neg is set and 0 otherwise.
func (m ActionMask) Axis(pos, neg ActionID) float64 {
	v := 0.0
	if m.Has(pos) {
		v++
	}
	if m.Has(neg) {
		v--
	}
	return v
}

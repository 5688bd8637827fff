package netconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionMask_BitPositions(t *testing.T) {
	assert.Equal(t, ActionMask(1), MaskOf(MoveForward))
	assert.Equal(t, ActionMask(1<<4), MaskOf(Jump))
	assert.Equal(t, ActionMask(1<<11), MaskOf(UseHorn))
	assert.Equal(t, ActionMask(1<<15), MaskOf(Slot4))
	assert.Equal(t, 16, int(ActionCount))
}

func TestActionMask_SetAndClear(t *testing.T) {
	m := MaskOf(MoveLeft, Sprint)
	assert.True(t, m.Has(MoveLeft))
	assert.True(t, m.Has(Sprint))
	assert.False(t, m.Has(Jump))

	m = m.Without(MoveLeft).With(Jump)
	assert.False(t, m.Has(MoveLeft))
	assert.True(t, m.Has(Jump))

	assert.Equal(t, m.With(Aim), m.Set(Aim, true))
	assert.Equal(t, m, m.Set(Aim, false))
}

func TestActionMask_ActionsOrderIndependent(t *testing.T) {
	a := MaskOf(Shoot, MoveForward, Slot2)
	b := MaskOf(Slot2, Shoot, MoveForward)
	assert.Equal(t, a, b)
	assert.Equal(t, []ActionID{MoveForward, Shoot, Slot2}, a.Actions())
}

func TestActionMask_OutOfRangeIgnored(t *testing.T) {
	m := MaskOf(ActionCount, ActionID(200))
	assert.Equal(t, ActionMask(0), m)
	assert.False(t, ActionMask(0xFFFF).Has(ActionCount))
}

func TestActionMask_Axis(t *testing.T) {
	assert.Equal(t, 1.0, MaskOf(MoveForward).Axis(MoveForward, MoveBack))
	assert.Equal(t, -1.0, MaskOf(MoveBack).Axis(MoveForward, MoveBack))
	assert.Equal(t, 0.0, MaskOf(MoveForward, MoveBack).Axis(MoveForward, MoveBack))
	assert.True(t, MaskOf(MoveRight).Directional())
	assert.False(t, MaskOf(Jump).Directional())
}

func TestActionMask_String(t *testing.T) {
	assert.Equal(t, "none", ActionMask(0).String())
	assert.Equal(t, "forward|jump", MaskOf(Jump, MoveForward).String())
}

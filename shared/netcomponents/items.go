package netcomponents

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownItem = errors.New("unknown item kind")
	ErrItemPayload = errors.New("bad item payload")
)

// ItemKind tags the variant of a held item on the wire.
type ItemKind uint8

const (
	ItemEmpty ItemKind = iota
	ItemPistol
	ItemFlashlight
)

func (k ItemKind) String() string {
	switch k {
	case ItemEmpty:
		return "empty"
	case ItemPistol:
		return "pistol"
	case ItemFlashlight:
		return "flashlight"
	}
	return fmt.Sprintf("item(%d)", uint8(k))
}

// Holdable is the closed set of things a hand can hold.
type Holdable interface {
	Kind() ItemKind
	holdable()
}

type Empty struct{}

type Pistol struct {
	Ammo      uint8
	Magazine  uint8
	Reloading bool
}

type Flashlight struct {
	On bool
}

func (Empty) Kind() ItemKind      { return ItemEmpty }
func (Pistol) Kind() ItemKind     { return ItemPistol }
func (Flashlight) Kind() ItemKind { return ItemFlashlight }

func (Empty) holdable()      {}
func (Pistol) holdable()     {}
func (Flashlight) holdable() {}

// EncodeHoldable flattens h into its kind tag and payload.
func EncodeHoldable(h Holdable) (ItemKind, []byte) {
	switch v := h.(type) {
	case Pistol:
		return ItemPistol, []byte{v.Ammo, v.Magazine, boolByte(v.Reloading)}
	case Flashlight:
		return ItemFlashlight, []byte{boolByte(v.On)}
	default:
		return ItemEmpty, nil
	}
}

// DecodeHoldable rebuilds the variant named by kind. Each variant checks its
// own payload length.
func DecodeHoldable(kind ItemKind, payload []byte) (Holdable, error) {
	switch kind {
	case ItemEmpty:
		return Empty{}, nil
	case ItemPistol:
		if len(payload) != 3 {
			return nil, fmt.Errorf("%w: pistol wants 3 bytes, got %d", ErrItemPayload, len(payload))
		}
		return Pistol{Ammo: payload[0], Magazine: payload[1], Reloading: payload[2] != 0}, nil
	case ItemFlashlight:
		if len(payload) != 1 {
			return nil, fmt.Errorf("%w: flashlight wants 1 byte, got %d", ErrItemPayload, len(payload))
		}
		return Flashlight{On: payload[0] != 0}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownItem, uint8(kind))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

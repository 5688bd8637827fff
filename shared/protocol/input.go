package protocol

import (
	"math"

	"github.com/automoto/convoy-mp/shared/netconfig"
	"github.com/go-gl/mathgl/mgl64"
)

// InputFrameSize is the encoded length of one InputFrame.
const InputFrameSize = 2 + 2 + 1 + 4*4 + 3*4

// InputFrame is one tick of local input as sent to the server.
type InputFrame struct {
	Seq      uint16
	Actions  netconfig.ActionMask
	Dt       float64 // seconds, quantized to 1/255 on the wire
	ViewQuat mgl64.Quat
	ViewPos  mgl64.Vec3
}

// EncodeInputFrame packs f into InputFrameSize bytes.
func EncodeInputFrame(f InputFrame) []byte {
	w := &writer{buf: make([]byte, 0, InputFrameSize)}
	w.u16(f.Seq)
	w.u16(uint16(f.Actions))
	w.u8(quantizeDt(f.Dt))
	w.quat(f.ViewQuat)
	w.vec3(f.ViewPos)
	return w.buf
}

// DecodeInputFrame is the inverse of EncodeInputFrame, up to dt quantization.
func DecodeInputFrame(data []byte) (InputFrame, error) {
	r := &reader{buf: data}
	f := InputFrame{
		Seq:      r.u16("input seq"),
		Actions:  netconfig.ActionMask(r.u16("input actions")),
		Dt:       float64(r.u8("input dt")) / 255,
		ViewQuat: r.quat("input view"),
		ViewPos:  r.vec3("input view position"),
	}
	if r.err != nil {
		return InputFrame{}, r.err
	}
	return f, nil
}

func quantizeDt(dt float64) uint8 {
	if math.IsNaN(dt) || dt <= 0 {
		return 0
	}
	q := math.Round(dt * 255)
	if q > 255 {
		return 255
	}
	return uint8(q)
}

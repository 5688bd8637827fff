package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// reader walks a payload once, front to back. The first short read sticks and
// every later read returns zero values.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) take(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf)-r.off < n {
		r.err = fmt.Errorf("%w: %s needs %d bytes at offset %d, have %d",
			ErrMalformedMessage, what, n, r.off, len(r.buf)-r.off)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8(what string) uint8 {
	b := r.take(1, what)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16(what string) uint16 {
	b := r.take(2, what)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) f32(what string) float64 {
	b := r.take(4, what)
	if b == nil {
		return 0
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}

func (r *reader) f64(what string) float64 {
	b := r.take(8, what)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func (r *reader) str(what string) string {
	n := int(r.u8(what + " length"))
	b := r.take(n, what)
	if b == nil {
		return ""
	}
	return string(b)
}

func (r *reader) vec3(what string) mgl64.Vec3 {
	return mgl64.Vec3{r.f32(what), r.f32(what), r.f32(what)}
}

// quat reads x, y, z, w.
func (r *reader) quat(what string) mgl64.Quat {
	x, y, z, w := r.f32(what), r.f32(what), r.f32(what), r.f32(what)
	return mgl64.Quat{W: w, V: mgl64.Vec3{x, y, z}}
}

type writer struct {
	buf []byte
	err error
}

func (w *writer) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) u16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *writer) f32(v float64) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(float32(v)))
}

func (w *writer) f64(v float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
}

func (w *writer) str(s, what string) {
	if len(s) > math.MaxUint8 {
		w.fail("%s %q is %d bytes, limit %d", what, s, len(s), math.MaxUint8)
		return
	}
	w.u8(uint8(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) count16(n int, what string) {
	if n > math.MaxUint16 {
		w.fail("%d %s exceed %d", n, what, math.MaxUint16)
		return
	}
	w.u16(uint16(n))
}

func (w *writer) count8(n int, what string) {
	if n > math.MaxUint8 {
		w.fail("%d %s exceed %d", n, what, math.MaxUint8)
		return
	}
	w.u8(uint8(n))
}

func (w *writer) vec3(v mgl64.Vec3) {
	w.f32(v[0])
	w.f32(v[1])
	w.f32(v[2])
}

func (w *writer) quat(q mgl64.Quat) {
	w.f32(q.V[0])
	w.f32(q.V[1])
	w.f32(q.V[2])
	w.f32(q.W)
}

func (w *writer) fail(format string, args ...any) {
	if w.err == nil {
		w.err = fmt.Errorf("%w: "+format, append([]any{ErrMalformedMessage}, args...)...)
	}
}

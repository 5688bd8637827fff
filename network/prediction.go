package network

import (
	"github.com/automoto/convoy-mp/shared/netconfig"
	"github.com/go-gl/mathgl/mgl64"
)

// predictionBufferSize bounds the unacknowledged inputs kept for replay. It
// stays well inside the half range where u16 serial comparison is valid.
const predictionBufferSize = 1024

// PendingInput is one predicted tick the server has not acknowledged yet.
type PendingInput struct {
	Seq      uint16
	Actions  netconfig.ActionMask
	Dt       float64
	ViewQuat mgl64.Quat
	ViewPos  mgl64.Vec3

	// Decisions taken while predicting, so replay repeats them instead of
	// re-deriving them from timers and steering state that have moved on.
	Jumped     bool
	SteerLeft  float64
	SteerRight float64
}

// SeqAfter reports whether a comes after b, allowing for u16 wrap.
func SeqAfter(a, b uint16) bool {
	return int16(a-b) > 0
}

// PredictionBuffer holds unacknowledged inputs in send order and hands out
// sequence numbers. The first sequence is 1; numbering wraps at 65535.
type PredictionBuffer struct {
	inputs  []PendingInput
	lastSeq uint16
	acked   uint16
	hasAck  bool
}

// NextSeq advances and returns the sequence number for a new input.
func (pb *PredictionBuffer) NextSeq() uint16 {
	pb.lastSeq++
	return pb.lastSeq
}

// Store appends in. The oldest input is dropped once the buffer is full.
func (pb *PredictionBuffer) Store(in PendingInput) {
	if len(pb.inputs) >= predictionBufferSize {
		pb.inputs = pb.inputs[1:]
	}
	pb.inputs = append(pb.inputs, in)
}

// IsStale reports whether ack is older than one already applied.
func (pb *PredictionBuffer) IsStale(ack uint16) bool {
	return pb.hasAck && SeqAfter(pb.acked, ack)
}

// Acknowledge drops every input at or before ack and returns how many went.
// Stale acknowledgements drop nothing.
func (pb *PredictionBuffer) Acknowledge(ack uint16) int {
	if pb.IsStale(ack) {
		return 0
	}
	pb.acked = ack
	pb.hasAck = true

	keep := 0
	for keep < len(pb.inputs) && !SeqAfter(pb.inputs[keep].Seq, ack) {
		keep++
	}
	dropped := keep
	pb.inputs = append(pb.inputs[:0], pb.inputs[keep:]...)
	return dropped
}

// Unacknowledged returns the retained inputs in send order. The slice is
// shared; callers must not keep it across Store or Acknowledge.
func (pb *PredictionBuffer) Unacknowledged() []PendingInput {
	return pb.inputs
}

func (pb *PredictionBuffer) Len() int { return len(pb.inputs) }

// LastSeq is the most recently issued sequence number, 0 before the first.
func (pb *PredictionBuffer) LastSeq() uint16 { return pb.lastSeq }

// Reset clears inputs, numbering and acknowledgement state.
func (pb *PredictionBuffer) Reset() {
	pb.inputs = pb.inputs[:0]
	pb.lastSeq = 0
	pb.acked = 0
	pb.hasAck = false
}

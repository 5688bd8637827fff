package network

import (
	"sort"

	"github.com/automoto/convoy-mp/shared/netcomponents"
)

// DefaultHistoryCapacity is how many snapshots History keeps by default.
const DefaultHistoryCapacity = 50

// History is a bounded timeline of snapshots in strictly increasing server
// time, oldest first.
type History struct {
	snaps    []*netcomponents.WorldSnapshot
	capacity int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		snaps:    make([]*netcomponents.WorldSnapshot, 0, capacity),
		capacity: capacity,
	}
}

// Push appends snap, evicting the oldest snapshot once over capacity. A
// snapshot not newer than the newest buffered one is rejected, which covers
// duplicates and out-of-order arrivals.
func (h *History) Push(snap *netcomponents.WorldSnapshot) (accepted, evicted bool) {
	if snap == nil {
		return false, false
	}
	if n := len(h.snaps); n > 0 && snap.ServerTime <= h.snaps[n-1].ServerTime {
		return false, false
	}
	if len(h.snaps) == h.capacity {
		copy(h.snaps, h.snaps[1:])
		h.snaps[len(h.snaps)-1] = nil
		h.snaps = h.snaps[:len(h.snaps)-1]
		evicted = true
	}
	h.snaps = append(h.snaps, snap)
	return true, evicted
}

// Bracket returns the newest snapshot at or before target and the one after
// it. newer is nil when older is the newest; both are nil when every buffered
// snapshot is after target.
func (h *History) Bracket(target float64) (older, newer *netcomponents.WorldSnapshot) {
	i := sort.Search(len(h.snaps), func(i int) bool {
		return h.snaps[i].ServerTime > target
	})
	if i == 0 {
		return nil, nil
	}
	older = h.snaps[i-1]
	if i < len(h.snaps) {
		newer = h.snaps[i]
	}
	return older, newer
}

// Latest returns the newest snapshot, or nil.
func (h *History) Latest() *netcomponents.WorldSnapshot {
	if len(h.snaps) == 0 {
		return nil
	}
	return h.snaps[len(h.snaps)-1]
}

func (h *History) Len() int { return len(h.snaps) }

func (h *History) Capacity() int { return h.capacity }

// Snapshots returns the buffered snapshots, oldest first.
func (h *History) Snapshots() []*netcomponents.WorldSnapshot {
	out := make([]*netcomponents.WorldSnapshot, len(h.snaps))
	copy(out, h.snaps)
	return out
}

func (h *History) Clear() {
	clear(h.snaps)
	h.snaps = h.snaps[:0]
}

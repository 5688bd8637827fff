package network

import "time"

// Clock estimates the server clock from round-trip samples. All times are in
// milliseconds. Until the first sample the offset is zero and Synced reports
// false; callers keep working with local time in that case.
type Clock struct {
	now    func() float64
	offset float64
	ping   float64
	synced bool
}

// NewClock returns a clock reading local time from now. A nil now uses a
// monotonic clock starting at zero.
func NewClock(now func() float64) *Clock {
	if now == nil {
		now = MonotonicMs()
	}
	return &Clock{now: now}
}

// MonotonicMs returns a function reporting milliseconds elapsed since the call.
func MonotonicMs() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start)) / float64(time.Millisecond)
	}
}

// LocalNow is the local clock reading.
func (c *Clock) LocalNow() float64 {
	return c.now()
}

// RecordRoundTrip folds in one sample. The server is assumed to have read its
// clock halfway through the round trip. The newest sample replaces the old
// estimate outright. Samples that came back before they were sent are ignored.
func (c *Clock) RecordRoundTrip(localSend, serverReported, localRecv float64) bool {
	rtt := localRecv - localSend
	if rtt < 0 {
		return false
	}
	c.offset = serverReported + rtt/2 - localRecv
	c.ping = rtt
	c.synced = true
	return true
}

// EstimateServerNow maps the local clock onto the server clock.
func (c *Clock) EstimateServerNow() float64 {
	return c.now() + c.offset
}

func (c *Clock) Offset() float64 { return c.offset }

// Ping is the round-trip time of the latest sample.
func (c *Clock) Ping() float64 { return c.ping }

func (c *Clock) Synced() bool { return c.synced }

// Reset forgets every sample.
func (c *Clock) Reset() {
	c.offset = 0
	c.ping = 0
	c.synced = false
}

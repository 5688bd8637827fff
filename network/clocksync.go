package network

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ClockSample is one completed time-sync round trip, ready for
// Clock.RecordRoundTrip.
type ClockSample struct {
	LocalSend float64
	ServerMs  float64
	LocalRecv float64
}

// RoundTripper performs one time-sync exchange: it sends clientSendMs and
// returns the server's clock reading from the reply.
type RoundTripper interface {
	RoundTrip(ctx context.Context, clientSendMs float64) (serverMs float64, err error)
}

// RunClockSync performs a burst of samples round trips spaced at least spacing
// apart and publishes each success on out. Failed exchanges are logged and
// skipped. It returns when the burst is done or ctx ends.
func RunClockSync(ctx context.Context, rt RoundTripper, now func() float64, samples int,
	spacing time.Duration, out chan<- ClockSample, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Every(spacing), 1)

	for i := 0; i < samples; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		send := now()
		serverMs, err := rt.RoundTrip(ctx, send)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("time sync failed", zap.Int("sample", i), zap.Error(err))
			continue
		}
		sample := ClockSample{LocalSend: send, ServerMs: serverMs, LocalRecv: now()}

		select {
		case out <- sample:
		case <-ctx.Done():
			return ctx.Err()
		}
		logger.Debug("time sync sample",
			zap.Int("sample", i),
			zap.Float64("rtt_ms", sample.LocalRecv-sample.LocalSend))
	}
	return nil
}

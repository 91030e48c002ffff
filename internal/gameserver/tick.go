package gameserver

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Ticker drives the engine's simulation loop at a fixed cadence. Each
// iteration is scheduled against the ideal timeline rather than the
// previous wakeup, so slow ticks do not accumulate drift.
type Ticker struct {
	interval time.Duration
	tick     func(context.Context)
	logger   *zap.Logger
}

// NewTicker creates a Ticker invoking tick every interval.
//
// Precondition: interval > 0; tick and logger must be non-nil.
func NewTicker(interval time.Duration, tick func(context.Context), logger *zap.Logger) *Ticker {
	return &Ticker{interval: interval, tick: tick, logger: logger}
}

// Run loops until ctx is cancelled. A panic in one tick is recovered and
// logged; the loop continues.
//
// Postcondition: Returns ctx.Err() once cancelled.
func (t *Ticker) Run(ctx context.Context) error {
	next := time.Now().Add(t.interval)
	timer := time.NewTimer(t.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			t.safeTick(ctx)

			next = next.Add(t.interval)
			wait := time.Until(next)
			if wait < 0 {
				// A tick overran the whole interval. Resynchronize instead
				// of firing a burst of catch-up ticks.
				t.logger.Warn("tick overran interval",
					zap.Duration("interval", t.interval),
					zap.Duration("behind", -wait),
				)
				next = time.Now().Add(t.interval)
				wait = t.interval
			}
			timer.Reset(wait)
		}
	}
}

func (t *Ticker) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic in simulation tick", zap.Any("panic", r))
		}
	}()
	t.tick(ctx)
}

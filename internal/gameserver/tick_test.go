package gameserver

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestTickerFiresRepeatedly(t *testing.T) {
	var count atomic.Int64
	ticker := NewTicker(5*time.Millisecond, func(context.Context) {
		count.Add(1)
	}, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := ticker.Run(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, count.Load(), int64(5))
}

func TestTickerRecoversFromPanic(t *testing.T) {
	var count atomic.Int64
	ticker := NewTicker(5*time.Millisecond, func(context.Context) {
		if count.Add(1) == 1 {
			panic("boom")
		}
	}, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = ticker.Run(ctx)

	assert.GreaterOrEqual(t, count.Load(), int64(2), "loop must survive a panicking tick")
}

func TestTickerStopsOnCancel(t *testing.T) {
	ticker := NewTicker(time.Hour, func(context.Context) {}, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ticker.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

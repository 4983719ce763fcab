// Package shotclock drives the running shot clock. Exactly one process, the
// one hosting the control panel, runs a Ticker; overlays only observe.
package shotclock

import (
	"context"
	"log/slog"
	"time"

	"github.com/playperu/scoreboard/internal/state"
)

// Clock is the part of the state manager a Ticker needs.
type Clock interface {
	TickShotClock(ctx context.Context, opts ...state.Option) (expired bool, err error)
}

type Ticker struct {
	clock    Clock
	interval time.Duration
	logger   *slog.Logger
}

func New(clock Clock, interval time.Duration, logger *slog.Logger) *Ticker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Ticker{clock: clock, interval: interval, logger: logger}
}

// Run ticks the clock every interval until ctx is cancelled. A failed tick
// is logged and the next one tried as usual.
func (t *Ticker) Run(ctx context.Context) error {
	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tk.C:
			expired, err := t.clock.TickShotClock(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				t.logger.Warn("shot clock tick failed", "error", err)
				continue
			}
			if expired {
				t.logger.Info("shot clock expired")
			}
		}
	}
}

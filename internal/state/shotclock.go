package state

import (
	"context"
	"fmt"

	"github.com/playperu/scoreboard/internal/notify"
	"github.com/playperu/scoreboard/internal/scoreboard"
)

func clockMsg(action string) message {
	return msg(notify.TypeShotClockChanged, map[string]any{"action": action})
}

func clockOp(fn func(*scoreboard.ShotClock) error) func(*scoreboard.MatchState) error {
	return func(st *scoreboard.MatchState) error {
		return fn(&st.Modules.ShotClock)
	}
}

// StartShotClock runs the clock and forces it enabled. An expired clock
// restarts from its full duration.
func (m *Manager) StartShotClock(ctx context.Context, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, clockMsg("start"), clockOp(func(sc *scoreboard.ShotClock) error {
		if sc.CurrentTime == 0 {
			sc.CurrentTime = sc.Duration
		}
		sc.Running = true
		sc.Enabled = true
		return nil
	}))
}

// StopShotClock pauses the clock, keeping the remaining time.
func (m *Manager) StopShotClock(ctx context.Context, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, clockMsg("stop"), clockOp(func(sc *scoreboard.ShotClock) error {
		if !sc.Running {
			return errNoChange
		}
		sc.Running = false
		return nil
	}))
}

func (m *Manager) ResetShotClock(ctx context.Context, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, clockMsg("reset"), clockOp(func(sc *scoreboard.ShotClock) error {
		sc.Running = false
		sc.CurrentTime = sc.Duration
		return nil
	}))
}

// UpdateShotClockTime sets the remaining seconds, clamped at 0.
func (m *Manager) UpdateShotClockTime(ctx context.Context, seconds int, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, clockMsg("time"), clockOp(func(sc *scoreboard.ShotClock) error {
		sc.CurrentTime = max(seconds, 0)
		return nil
	}))
}

// SetShotClockDuration changes the full duration and reloads the clock.
func (m *Manager) SetShotClockDuration(ctx context.Context, seconds int, opts ...Option) (scoreboard.MatchState, error) {
	if seconds <= 0 {
		return scoreboard.MatchState{}, fmt.Errorf("%w: duration must be positive", scoreboard.ErrInvalidArgument)
	}
	return m.update(ctx, opts, clockMsg("duration"), clockOp(func(sc *scoreboard.ShotClock) error {
		sc.Duration = seconds
		sc.CurrentTime = seconds
		return nil
	}))
}

func (m *Manager) SetExtensionDuration(ctx context.Context, seconds int, opts ...Option) (scoreboard.MatchState, error) {
	if seconds < 0 {
		return scoreboard.MatchState{}, fmt.Errorf("%w: extension duration must not be negative", scoreboard.ErrInvalidArgument)
	}
	return m.update(ctx, opts, clockMsg("extensionDuration"), clockOp(func(sc *scoreboard.ShotClock) error {
		sc.ExtensionDuration = seconds
		return nil
	}))
}

func (m *Manager) SetMaxExtensions(ctx context.Context, count int, opts ...Option) (scoreboard.MatchState, error) {
	if count < 0 {
		return scoreboard.MatchState{}, fmt.Errorf("%w: max extensions must not be negative", scoreboard.ErrInvalidArgument)
	}
	return m.update(ctx, opts, clockMsg("maxExtensions"), clockOp(func(sc *scoreboard.ShotClock) error {
		sc.MaxExtensions = count
		return nil
	}))
}

// AddPlayerExtension grants player n an extension and adds its time to the
// clock. Past maxExtensions it does nothing.
func (m *Manager) AddPlayerExtension(ctx context.Context, n int, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, msg(notify.TypeShotClockChanged, map[string]any{"action": "extension", "player": n}),
		func(st *scoreboard.MatchState) error {
			p, err := st.Player(n)
			if err != nil {
				return fmt.Errorf("player %d: %w", n, err)
			}
			sc := &st.Modules.ShotClock
			if p.Extensions >= sc.MaxExtensions {
				return errNoChange
			}
			p.Extensions++
			sc.CurrentTime += sc.ExtensionDuration
			return nil
		})
}

// RemovePlayerExtension takes back one extension from player n, optionally
// subtracting its time from the clock. At zero it does nothing.
func (m *Manager) RemovePlayerExtension(ctx context.Context, n int, refundTime bool, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, msg(notify.TypeShotClockChanged, map[string]any{"action": "extension", "player": n}),
		func(st *scoreboard.MatchState) error {
			p, err := st.Player(n)
			if err != nil {
				return fmt.Errorf("player %d: %w", n, err)
			}
			if p.Extensions <= 0 {
				return errNoChange
			}
			p.Extensions--
			if refundTime {
				sc := &st.Modules.ShotClock
				sc.CurrentTime = max(sc.CurrentTime-sc.ExtensionDuration, 0)
			}
			return nil
		})
}

// ToggleShotClockVisibility flips visibility; enabled follows visible.
func (m *Manager) ToggleShotClockVisibility(ctx context.Context, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, clockMsg("visibility"), clockOp(func(sc *scoreboard.ShotClock) error {
		sc.Visible = !sc.Visible
		sc.Enabled = sc.Visible
		if !sc.Enabled {
			sc.Running = false
		}
		return nil
	}))
}

// TickShotClock advances a running clock by one second. It reports true when
// this tick expired the clock, which then stops; SHOT_CLOCK_EXPIRED is sent
// unless broadcasting is disabled. Ticks on a stopped clock change nothing.
func (m *Manager) TickShotClock(ctx context.Context, opts ...Option) (expired bool, err error) {
	o := callOptions{broadcast: true}
	for _, opt := range opts {
		opt(&o)
	}

	_, err = m.update(ctx, []Option{WithoutBroadcast()}, message{}, clockOp(func(sc *scoreboard.ShotClock) error {
		expired = false
		if !sc.Running {
			return errNoChange
		}
		if sc.CurrentTime <= 1 {
			expired = sc.CurrentTime == 1
			sc.CurrentTime = 0
			sc.Running = false
			return nil
		}
		sc.CurrentTime--
		return nil
	}))
	if err != nil {
		return false, err
	}
	if expired && o.broadcast {
		m.announce(ctx, msg(notify.TypeShotClockExpired, nil))
	}
	return expired, nil
}

package state

import (
	"context"
	"fmt"
	"sort"

	"github.com/playperu/scoreboard/internal/notify"
	"github.com/playperu/scoreboard/internal/scoreboard"
)

func trackerOp(fn func(*scoreboard.BallTracker) error) func(*scoreboard.MatchState) error {
	return func(st *scoreboard.MatchState) error {
		return fn(&st.Modules.Billiards.BallTracker)
	}
}

func trackerMsg(field string) message {
	return msg(notify.TypeBallTrackerChanged, map[string]any{"field": field})
}

func (m *Manager) SetBallTrackerEnabled(ctx context.Context, enabled bool, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, trackerMsg("enabled"), trackerOp(func(bt *scoreboard.BallTracker) error {
		bt.Enabled = enabled
		return nil
	}))
}

// SetGameType switches the rack; pocketed balls that no longer exist are
// dropped.
func (m *Manager) SetGameType(ctx context.Context, gt scoreboard.GameType, opts ...Option) (scoreboard.MatchState, error) {
	if gt.BallCount() == 0 {
		return scoreboard.MatchState{}, fmt.Errorf("%w: unknown game type %q", scoreboard.ErrInvalidArgument, gt)
	}
	return m.update(ctx, opts, trackerMsg("gameType"), trackerOp(func(bt *scoreboard.BallTracker) error {
		bt.GameType = gt
		bt.Pocketed = cleanBalls(bt.Pocketed, gt.BallCount())
		return nil
	}))
}

// SetPlayerBallSet assigns set to player n and the complementary set to the
// other player. Unassigning one player unassigns both.
func (m *Manager) SetPlayerBallSet(ctx context.Context, n int, set scoreboard.BallSet, opts ...Option) (scoreboard.MatchState, error) {
	if !set.Valid() {
		return scoreboard.MatchState{}, fmt.Errorf("%w: unknown ball set %q", scoreboard.ErrInvalidArgument, set)
	}
	if !scoreboard.ValidPlayer(n) {
		return scoreboard.MatchState{}, fmt.Errorf("player %d: %w", n, scoreboard.ErrInvalidPlayer)
	}
	return m.update(ctx, opts, trackerMsg("ballSets"), trackerOp(func(bt *scoreboard.BallTracker) error {
		other := set.Complement()
		if n == 1 {
			bt.Player1Set, bt.Player2Set = set, other
		} else {
			bt.Player2Set, bt.Player1Set = set, other
		}
		return nil
	}))
}

// ToggleBallPocketed marks ball as pocketed, or un-marks it.
func (m *Manager) ToggleBallPocketed(ctx context.Context, ball int, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, trackerMsg("pocketed"), trackerOp(func(bt *scoreboard.BallTracker) error {
		if ball < 1 || ball > bt.GameType.BallCount() {
			return fmt.Errorf("%w: ball %d not in a %s rack", scoreboard.ErrInvalidArgument, ball, bt.GameType)
		}
		for i, b := range bt.Pocketed {
			if b == ball {
				bt.Pocketed = append(bt.Pocketed[:i:i], bt.Pocketed[i+1:]...)
				return nil
			}
		}
		bt.Pocketed = append(bt.Pocketed, ball)
		sort.Ints(bt.Pocketed)
		return nil
	}))
}

// ClearPocketedBalls re-racks: assignments and game type stay.
func (m *Manager) ClearPocketedBalls(ctx context.Context, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, trackerMsg("pocketed"), trackerOp(func(bt *scoreboard.BallTracker) error {
		bt.Pocketed = []int{}
		return nil
	}))
}

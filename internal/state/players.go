package state

import (
	"context"
	"fmt"
	"strings"

	"github.com/playperu/scoreboard/internal/notify"
	"github.com/playperu/scoreboard/internal/scoreboard"
)

func playerOp(n int, fn func(*scoreboard.Player) error) func(*scoreboard.MatchState) error {
	return func(st *scoreboard.MatchState) error {
		p, err := st.Player(n)
		if err != nil {
			return fmt.Errorf("player %d: %w", n, err)
		}
		return fn(p)
	}
}

func scoreMsg(n int) message {
	return msg(notify.TypePlayerScoreChanged, map[string]any{"player": n}, notify.TypeScoreUpdate)
}

// IncrementScore adds amount (at least 1) to player n's score.
func (m *Manager) IncrementScore(ctx context.Context, n, amount int, opts ...Option) (scoreboard.MatchState, error) {
	if amount < 1 {
		return scoreboard.MatchState{}, fmt.Errorf("%w: amount must be positive", scoreboard.ErrInvalidArgument)
	}
	return m.update(ctx, opts, scoreMsg(n), playerOp(n, func(p *scoreboard.Player) error {
		p.Score += amount
		return nil
	}))
}

// DecrementScore subtracts amount from player n's score, never going below 0.
func (m *Manager) DecrementScore(ctx context.Context, n, amount int, opts ...Option) (scoreboard.MatchState, error) {
	if amount < 1 {
		return scoreboard.MatchState{}, fmt.Errorf("%w: amount must be positive", scoreboard.ErrInvalidArgument)
	}
	return m.update(ctx, opts, scoreMsg(n), playerOp(n, func(p *scoreboard.Player) error {
		if p.Score == 0 {
			return errNoChange
		}
		p.Score = max(p.Score-amount, 0)
		return nil
	}))
}

func (m *Manager) SetScore(ctx context.Context, n, score int, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, scoreMsg(n), playerOp(n, func(p *scoreboard.Player) error {
		p.Score = max(score, 0)
		return nil
	}))
}

func (m *Manager) ResetScores(ctx context.Context, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, msg(notify.TypePlayerScoreChanged, map[string]any{"reset": true}, notify.TypeScoreUpdate),
		func(st *scoreboard.MatchState) error {
			st.MatchData.Player1.Score = 0
			st.MatchData.Player2.Score = 0
			return nil
		})
}

// ResetMatch clears everything that belongs to a single match while keeping
// the player names and the production setup (logos, ads, UI).
func (m *Manager) ResetMatch(ctx context.Context, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, msg(notify.TypeStateChanged, map[string]any{"reset": "match"}, notify.TypeScoreUpdate),
		func(st *scoreboard.MatchState) error {
			for n := 1; n <= 2; n++ {
				p, _ := st.Player(n)
				p.Score = 0
				p.Timeouts = 0
				p.Extensions = 0
			}
			sc := &st.Modules.ShotClock
			sc.Running = false
			sc.CurrentTime = sc.Duration

			bt := &st.Modules.Billiards.BallTracker
			bt.Player1Set = scoreboard.BallSetUnassigned
			bt.Player2Set = scoreboard.BallSetUnassigned
			bt.Pocketed = []int{}
			return nil
		})
}

// CompleteReset overwrites the document with defaults, optionally keeping the
// player names.
func (m *Manager) CompleteReset(ctx context.Context, preserveNames bool, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, msg(notify.TypeStateChanged, map[string]any{"reset": "complete"}, notify.TypeUIRefresh),
		func(st *scoreboard.MatchState) error {
			fresh := scoreboard.DefaultMatchState(m.id)
			if preserveNames {
				fresh.MatchData.Player1.Name = st.MatchData.Player1.Name
				fresh.MatchData.Player2.Name = st.MatchData.Player2.Name
			}
			*st = fresh
			return nil
		})
}

// SetPlayerName trims and truncates name; an empty name resets to "Player N".
func (m *Manager) SetPlayerName(ctx context.Context, n int, name string, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, msg(notify.TypePlayerNameChanged, map[string]any{"player": n}),
		playerOp(n, func(p *scoreboard.Player) error {
			p.Name = scoreboard.NormalizePlayerName(n, name)
			return nil
		}))
}

// SetPlayerFargoInfo sets the Fargo rating and the derived display line.
func (m *Manager) SetPlayerFargoInfo(ctx context.Context, n int, fargo string, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, msg(notify.TypePlayerNameChanged, map[string]any{"player": n, "field": "ratings"}),
		playerOp(n, func(p *scoreboard.Player) error {
			p.Ratings.Fargo = strings.TrimSpace(fargo)
			p.FargoInfo = p.Ratings.DisplayText()
			return nil
		}))
}

// SetPlayerRatings replaces all ratings and the derived display line.
func (m *Manager) SetPlayerRatings(ctx context.Context, n int, r scoreboard.Ratings, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, msg(notify.TypePlayerNameChanged, map[string]any{"player": n, "field": "ratings"}),
		playerOp(n, func(p *scoreboard.Player) error {
			p.Ratings = scoreboard.Ratings{
				Fargo:      strings.TrimSpace(r.Fargo),
				Robustness: strings.TrimSpace(r.Robustness),
			}
			p.FargoInfo = p.Ratings.DisplayText()
			return nil
		}))
}

func (m *Manager) SetPlayerColor(ctx context.Context, n int, color string, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, msg(notify.TypeThemeChanged, map[string]any{"player": n}),
		playerOp(n, func(p *scoreboard.Player) error {
			p.Color = strings.TrimSpace(color)
			return nil
		}))
}

// SetPlayerPhoto points player n at an asset id; empty clears it.
func (m *Manager) SetPlayerPhoto(ctx context.Context, n int, assetID string, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, msg(notify.TypePlayerNameChanged, map[string]any{"player": n, "field": "photo"}),
		playerOp(n, func(p *scoreboard.Player) error {
			p.PhotoAssetID = assetID
			return nil
		}))
}

func (m *Manager) SetPlayerTimeouts(ctx context.Context, n, timeouts int, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, msg(notify.TypeStateChanged, map[string]any{"player": n, "field": "timeouts"}),
		playerOp(n, func(p *scoreboard.Player) error {
			p.Timeouts = max(timeouts, 0)
			return nil
		}))
}

// LoadRosterPlayer copies a roster entry into seat n by value. The score and
// match counters of the seat are left alone.
func (m *Manager) LoadRosterPlayer(ctx context.Context, n int, e scoreboard.RosterEntry, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, msg(notify.TypePlayerNameChanged, map[string]any{"player": n, "field": "roster"}),
		playerOp(n, func(p *scoreboard.Player) error {
			p.Name = scoreboard.NormalizePlayerName(n, e.Name)
			p.Ratings = scoreboard.Ratings{Fargo: strings.TrimSpace(e.Rating)}
			p.FargoInfo = p.Ratings.DisplayText()
			p.Country = e.Country
			p.PhotoURL = e.PhotoURL
			return nil
		}))
}

// SetInfoTab sets the text of info tab 1 (race) or 2 (wager).
func (m *Manager) SetInfoTab(ctx context.Context, tab int, text string, opts ...Option) (scoreboard.MatchState, error) {
	if tab != 1 && tab != 2 {
		return scoreboard.MatchState{}, fmt.Errorf("%w: info tab must be 1 or 2", scoreboard.ErrInvalidArgument)
	}
	return m.update(ctx, opts, msg(notify.TypeStateChanged, map[string]any{"infoTab": tab}),
		func(st *scoreboard.MatchState) error {
			if tab == 1 {
				st.MatchData.InfoTab1 = strings.TrimSpace(text)
			} else {
				st.MatchData.InfoTab2 = strings.TrimSpace(text)
			}
			return nil
		})
}

func (m *Manager) SetActiveSport(ctx context.Context, sport string, opts ...Option) (scoreboard.MatchState, error) {
	sport = strings.TrimSpace(sport)
	if sport == "" {
		return scoreboard.MatchState{}, fmt.Errorf("%w: empty sport", scoreboard.ErrInvalidArgument)
	}
	return m.update(ctx, opts, msg(notify.TypeStateChanged, map[string]any{"activeSport": sport}, notify.TypeUIRefresh),
		func(st *scoreboard.MatchState) error {
			st.MatchData.ActiveSport = sport
			return nil
		})
}

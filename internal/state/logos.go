package state

import (
	"context"
	"fmt"
	"strings"

	"github.com/playperu/scoreboard/internal/notify"
	"github.com/playperu/scoreboard/internal/scoreboard"
)

func slotOp(slot string, fn func(*scoreboard.LogoSlot) error) func(*scoreboard.MatchState) error {
	return func(st *scoreboard.MatchState) error {
		if !scoreboard.IsLogoSlot(slot) {
			return fmt.Errorf("%w: unknown logo slot %q", scoreboard.ErrInvalidArgument, slot)
		}
		s, ok := st.LogoSlots[slot]
		if !ok {
			s = scoreboard.DefaultLogoSlot()
		}
		if err := fn(&s); err != nil {
			return err
		}
		st.LogoSlots[slot] = s
		return nil
	}
}

func slotMsg(slot string) message {
	return msg(notify.TypeLogoSlotChanged, map[string]any{"slot": slot}, notify.TypeAdsRefresh)
}

// SetLogoSlot places asset assetID in slot and activates it. The asset is
// not checked for existence; a dangling id renders as an empty slot.
func (m *Manager) SetLogoSlot(ctx context.Context, slot, assetID string, opts ...Option) (scoreboard.MatchState, error) {
	assetID = strings.TrimSpace(assetID)
	if assetID == "" {
		return scoreboard.MatchState{}, fmt.Errorf("%w: empty asset id", scoreboard.ErrInvalidArgument)
	}
	return m.update(ctx, opts, slotMsg(slot), slotOp(slot, func(s *scoreboard.LogoSlot) error {
		s.AssetID = &assetID
		s.Active = true
		return nil
	}))
}

func (m *Manager) SetLogoSlotActive(ctx context.Context, slot string, active bool, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, slotMsg(slot), slotOp(slot, func(s *scoreboard.LogoSlot) error {
		s.Active = active
		return nil
	}))
}

// SetLogoSlotOpacity sets opacity clamped to [0, 1].
func (m *Manager) SetLogoSlotOpacity(ctx context.Context, slot string, opacity float64, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, slotMsg(slot), slotOp(slot, func(s *scoreboard.LogoSlot) error {
		s.Opacity = scoreboard.ClampOpacity(opacity)
		return nil
	}))
}

// SetLogoSlotSpan sets how many grid cells the slot covers, clamped to 1..3.
func (m *Manager) SetLogoSlotSpan(ctx context.Context, slot string, span int, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, slotMsg(slot), slotOp(slot, func(s *scoreboard.LogoSlot) error {
		s.Span = scoreboard.ClampSpan(span)
		return nil
	}))
}

func (m *Manager) SetLogoSlotTitle(ctx context.Context, slot, title, frame string, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, slotMsg(slot), slotOp(slot, func(s *scoreboard.LogoSlot) error {
		s.Title = strings.TrimSpace(title)
		s.Frame = strings.TrimSpace(frame)
		return nil
	}))
}

// ClearLogoSlot empties and deactivates slot.
func (m *Manager) ClearLogoSlot(ctx context.Context, slot string, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, slotMsg(slot), slotOp(slot, func(s *scoreboard.LogoSlot) error {
		*s = scoreboard.DefaultLogoSlot()
		return nil
	}))
}

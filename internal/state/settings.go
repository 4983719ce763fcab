package state

import (
	"context"
	"strings"

	"github.com/playperu/scoreboard/internal/notify"
	"github.com/playperu/scoreboard/internal/scoreboard"
)

// SetAdvertising replaces the advertising module settings.
func (m *Manager) SetAdvertising(ctx context.Context, ads scoreboard.Advertising, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, msg(notify.TypeAdsRefresh, nil), func(st *scoreboard.MatchState) error {
		ads.BackgroundColor = strings.TrimSpace(ads.BackgroundColor)
		if ads.BackgroundColor == "" {
			ads.BackgroundColor = st.Modules.Advertising.BackgroundColor
		}
		st.Modules.Advertising = ads
		return nil
	})
}

func (m *Manager) SetAdsBackground(ctx context.Context, color string, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, msg(notify.TypeAdsBackgroundChanged, map[string]any{"color": color}), func(st *scoreboard.MatchState) error {
		st.Modules.Advertising.BackgroundColor = strings.TrimSpace(color)
		return nil
	})
}

// SetUISettings replaces the UI settings. A skin or theme change is announced
// as THEME_CHANGED, anything else as UI_REFRESH.
func (m *Manager) SetUISettings(ctx context.Context, ui scoreboard.UISettings, opts ...Option) (scoreboard.MatchState, error) {
	return m.updateNote(ctx, opts, func(st *scoreboard.MatchState) (message, error) {
		if ui.OverlaySkin == "" {
			ui.OverlaySkin = st.UISettings.OverlaySkin
		}
		note := msg(notify.TypeUIRefresh, nil)
		if ui.OverlaySkin != st.UISettings.OverlaySkin || ui.Theme != st.UISettings.Theme {
			note = msg(notify.TypeThemeChanged, map[string]any{"skin": ui.OverlaySkin, "theme": ui.Theme})
		}
		st.UISettings = ui
		return note, nil
	})
}

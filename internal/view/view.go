// Package view turns a MatchState into the snapshot an overlay renders.
package view

import (
	"strconv"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

// Resolver maps an asset id to an image URL, or "" when the asset is gone.
type Resolver interface {
	ImageURL(assetID string) string
}

// View is a full render snapshot. Renderers get a new one on every change
// and must produce the same output for the same View.
type View struct {
	UpdatedAt   string         `json:"updatedAt,omitempty"`
	Skin        string         `json:"skin"`
	Theme       string         `json:"theme"`
	Scoreboard  bool           `json:"showScoreboard"`
	Sport       string         `json:"sport"`
	Players     [2]PlayerView  `json:"players"`
	InfoTabs    [2]string      `json:"infoTabs"`
	ShotClock   ShotClockView  `json:"shotClock"`
	Slots       []SlotView     `json:"slots"`
	Advertising AdsView        `json:"advertising"`
	Balls       *BallTrackView `json:"balls,omitempty"`
}

type PlayerView struct {
	Name       string `json:"name"`
	Score      int    `json:"score"`
	Rating     string `json:"rating,omitempty"`
	Color      string `json:"color,omitempty"`
	Country    string `json:"country,omitempty"`
	PhotoURL   string `json:"photoUrl,omitempty"`
	Timeouts   int    `json:"timeouts"`
	Extensions int    `json:"extensions"`
	// ExtensionsLeft is how many extensions the player may still call.
	ExtensionsLeft int `json:"extensionsLeft"`
}

type ShotClockView struct {
	Visible bool   `json:"visible"`
	Running bool   `json:"running"`
	Seconds int    `json:"seconds"`
	Text    string `json:"text"`
	Warning bool   `json:"warning"`
	Expired bool   `json:"expired"`
}

// warnAt is the remaining time at which the shot clock is shown as urgent.
const warnAt = 10

type SlotView struct {
	ID       string  `json:"id"`
	ImageURL string  `json:"imageUrl,omitempty"`
	Visible  bool    `json:"visible"`
	Span     int     `json:"span"`
	Opacity  float64 `json:"opacity"`
	Title    string  `json:"title,omitempty"`
	Frame    string  `json:"frame,omitempty"`
}

type AdsView struct {
	Enabled    bool   `json:"enabled"`
	Top        bool   `json:"top"`
	Left       bool   `json:"left"`
	Right      bool   `json:"right"`
	Background string `json:"background"`
	Borders    bool   `json:"borders"`
	Dividers   bool   `json:"dividers"`
}

type BallTrackView struct {
	GameType string     `json:"gameType"`
	Sets     [2]string  `json:"sets"`
	Balls    []BallView `json:"balls"`
}

type BallView struct {
	Number   int    `json:"number"`
	Pocketed bool   `json:"pocketed"`
	Group    string `json:"group"`
}

// Project builds the View for st. It never fails: missing values render as
// defaults and dangling asset references as empty images.
func Project(st scoreboard.MatchState, r Resolver) View {
	resolve := func(id string) string {
		if id == "" || r == nil {
			return ""
		}
		return r.ImageURL(id)
	}

	sc := st.Modules.ShotClock
	v := View{
		UpdatedAt:  st.UpdatedAt,
		Skin:       orDefault(st.UISettings.OverlaySkin, "default"),
		Theme:      orDefault(st.UISettings.Theme, "dark"),
		Scoreboard: st.UISettings.ShowScoreboard,
		Sport:      orDefault(st.MatchData.ActiveSport, scoreboard.DefaultSport),
		InfoTabs:   [2]string{st.MatchData.InfoTab1, st.MatchData.InfoTab2},
		ShotClock: ShotClockView{
			Visible: sc.Enabled && sc.Visible,
			Running: sc.Running,
			Seconds: max(sc.CurrentTime, 0),
			Text:    strconv.Itoa(max(sc.CurrentTime, 0)),
			Warning: sc.CurrentTime > 0 && sc.CurrentTime <= warnAt,
			Expired: sc.CurrentTime <= 0,
		},
		Advertising: AdsView{
			Enabled:    st.Modules.Advertising.Enabled,
			Top:        st.Modules.Advertising.ShowTop,
			Left:       st.Modules.Advertising.ShowLeft,
			Right:      st.Modules.Advertising.ShowRight,
			Background: orDefault(st.Modules.Advertising.BackgroundColor, "#000000"),
			Borders:    st.Modules.Advertising.ShowBorders,
			Dividers:   st.Modules.Advertising.ShowDividers,
		},
	}

	for i := range v.Players {
		p, _ := st.Player(i + 1)
		photo := resolve(p.PhotoAssetID)
		if photo == "" {
			photo = p.PhotoURL
		}
		if !st.UISettings.ShowPlayerPhotos {
			photo = ""
		}
		rating := p.FargoInfo
		if rating == "" {
			rating = p.Ratings.DisplayText()
		}
		v.Players[i] = PlayerView{
			Name:           scoreboard.NormalizePlayerName(i+1, p.Name),
			Score:          max(p.Score, 0),
			Rating:         rating,
			Color:          p.Color,
			Country:        p.Country,
			PhotoURL:       photo,
			Timeouts:       p.Timeouts,
			Extensions:     p.Extensions,
			ExtensionsLeft: max(sc.MaxExtensions-p.Extensions, 0),
		}
	}

	if st.UISettings.ShowLogoSlots {
		for _, id := range scoreboard.LogoSlotIDs {
			slot, ok := st.LogoSlots[id]
			if !ok {
				slot = scoreboard.DefaultLogoSlot()
			}
			sv := SlotView{
				ID:      id,
				Span:    scoreboard.ClampSpan(slot.Span),
				Opacity: scoreboard.ClampOpacity(slot.Opacity),
				Title:   slot.Title,
				Frame:   slot.Frame,
			}
			if slot.AssetID != nil {
				sv.ImageURL = resolve(*slot.AssetID)
			}
			sv.Visible = slot.Active && sv.ImageURL != ""
			v.Slots = append(v.Slots, sv)
		}
	}

	if bt := st.Modules.Billiards.BallTracker; bt.Enabled {
		v.Balls = projectBalls(bt)
	}
	return v
}

func projectBalls(bt scoreboard.BallTracker) *BallTrackView {
	gt := bt.GameType
	if gt.BallCount() == 0 {
		gt = scoreboard.GameType8Ball
	}
	pocketed := map[int]bool{}
	for _, b := range bt.Pocketed {
		pocketed[b] = true
	}
	out := &BallTrackView{
		GameType: string(gt),
		Sets:     [2]string{string(bt.Player1Set), string(bt.Player2Set)},
	}
	for n := 1; n <= gt.BallCount(); n++ {
		out.Balls = append(out.Balls, BallView{Number: n, Pocketed: pocketed[n], Group: ballGroup(gt, n)})
	}
	return out
}

// ballGroup classifies a ball for 8-ball; other games have no groups.
func ballGroup(gt scoreboard.GameType, n int) string {
	if gt != scoreboard.GameType8Ball {
		return ""
	}
	switch {
	case n < 8:
		return string(scoreboard.BallSetSolids)
	case n == 8:
		return "eight"
	default:
		return string(scoreboard.BallSetStripes)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

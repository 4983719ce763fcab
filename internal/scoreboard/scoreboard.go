// Package scoreboard defines the core domain types of the overlay: the live
// MatchState document, assets and roster entries.
package scoreboard

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// CurrentSchemaVersion is the MatchState layout written by this build.
const CurrentSchemaVersion = 3

// MaxNameLength caps player names, counted in runes.
const MaxNameLength = 29

type MatchState struct {
	ID            string              `json:"id"`
	SchemaVersion int                 `json:"schemaVersion"`
	MatchData     MatchData           `json:"matchData"`
	Modules       Modules             `json:"modules"`
	LogoSlots     map[string]LogoSlot `json:"logoSlots"`
	UISettings    UISettings          `json:"uiSettings"`
	UpdatedAt     string              `json:"updatedAt,omitempty"`
}

type MatchData struct {
	Player1     Player `json:"player1"`
	Player2     Player `json:"player2"`
	InfoTab1    string `json:"infoTab1"`
	InfoTab2    string `json:"infoTab2"`
	ActiveSport string `json:"activeSport"`
}

type Player struct {
	Name         string  `json:"name"`
	FargoInfo    string  `json:"fargoInfo"`
	Ratings      Ratings `json:"ratings"`
	Score        int     `json:"score"`
	Timeouts     int     `json:"timeouts"`
	Extensions   int     `json:"extensions"`
	Color        string  `json:"color,omitempty"`
	Country      string  `json:"country,omitempty"`
	PhotoAssetID string  `json:"photoAssetId,omitempty"`
	PhotoURL     string  `json:"photoUrl,omitempty"`
}

type Ratings struct {
	Fargo      string `json:"fargo,omitempty"`
	Robustness string `json:"robustness,omitempty"`
}

// DisplayText renders ratings in the legacy single-line form kept in
// Player.FargoInfo for older overlay skins.
func (r Ratings) DisplayText() string {
	switch {
	case r.Fargo == "":
		return ""
	case r.Robustness == "":
		return "Fargo " + r.Fargo
	default:
		return "Fargo " + r.Fargo + " (" + r.Robustness + ")"
	}
}

type Modules struct {
	ShotClock   ShotClock   `json:"shotClock"`
	Advertising Advertising `json:"advertising"`
	Billiards   Billiards   `json:"billiards"`
}

type ShotClock struct {
	Enabled           bool `json:"enabled"`
	Visible           bool `json:"visible"`
	Running           bool `json:"running"`
	CurrentTime       int  `json:"currentTime"`
	Duration          int  `json:"duration"`
	ExtensionDuration int  `json:"extensionDuration"`
	MaxExtensions     int  `json:"maxExtensions"`
}

type Advertising struct {
	Enabled         bool   `json:"enabled"`
	ShowTop         bool   `json:"showTop"`
	ShowLeft        bool   `json:"showLeft"`
	ShowRight       bool   `json:"showRight"`
	BackgroundColor string `json:"backgroundColor"`
	ShowBorders     bool   `json:"showBorders"`
	ShowDividers    bool   `json:"showDividers"`
}

type Billiards struct {
	BallTracker BallTracker `json:"ballTracker"`
}

type GameType string

const (
	GameType8Ball  GameType = "8ball"
	GameType9Ball  GameType = "9ball"
	GameType10Ball GameType = "10ball"
)

// BallCount is the number of object balls on the table for the game type.
func (g GameType) BallCount() int {
	switch g {
	case GameType9Ball:
		return 9
	case GameType10Ball:
		return 10
	case GameType8Ball:
		return 15
	}
	return 0
}

type BallSet string

const (
	BallSetUnassigned BallSet = "unassigned"
	BallSetSolids     BallSet = "solids"
	BallSetStripes    BallSet = "stripes"
)

// Complement returns the set the opposing player receives.
func (b BallSet) Complement() BallSet {
	switch b {
	case BallSetSolids:
		return BallSetStripes
	case BallSetStripes:
		return BallSetSolids
	}
	return BallSetUnassigned
}

func (b BallSet) Valid() bool {
	return b == BallSetUnassigned || b == BallSetSolids || b == BallSetStripes
}

type BallTracker struct {
	Enabled    bool     `json:"enabled"`
	GameType   GameType `json:"gameType"`
	Player1Set BallSet  `json:"player1Set"`
	Player2Set BallSet  `json:"player2Set"`
	Pocketed   []int    `json:"pocketed"`
}

type LogoSlot struct {
	AssetID *string `json:"assetId"`
	Active  bool    `json:"active"`
	Span    int     `json:"span"`
	Opacity float64 `json:"opacity"`
	Title   string  `json:"title,omitempty"`
	Frame   string  `json:"frame,omitempty"`
}

type UISettings struct {
	ShowScoreboard   bool   `json:"showScoreboard"`
	OverlaySkin      string `json:"overlaySkin"`
	Theme            string `json:"theme"`
	ShowLogoSlots    bool   `json:"showLogoSlots"`
	ShowPlayerPhotos bool   `json:"showPlayerPhotos"`
}

// LogoSlotIDs lists every named placement in render order.
var LogoSlotIDs = []string{
	"T1", "T2", "T3", "T4", "T5", "T6",
	"L1", "L2", "L3",
	"R1", "R2", "R3",
	"tableTopLeft", "tableTopRight",
}

// IsLogoSlot reports whether id names a known placement.
func IsLogoSlot(id string) bool {
	for _, s := range LogoSlotIDs {
		if s == id {
			return true
		}
	}
	return false
}

func DefaultLogoSlot() LogoSlot {
	return LogoSlot{Span: 1, Opacity: 1}
}

// DefaultMatchState returns the document seeded on first load.
func DefaultMatchState(id string) MatchState {
	slots := make(map[string]LogoSlot, len(LogoSlotIDs))
	for _, s := range LogoSlotIDs {
		slots[s] = DefaultLogoSlot()
	}
	return MatchState{
		ID:            id,
		SchemaVersion: CurrentSchemaVersion,
		MatchData: MatchData{
			Player1:     Player{Name: DefaultPlayerName(1)},
			Player2:     Player{Name: DefaultPlayerName(2)},
			ActiveSport: "billiards",
		},
		Modules: Modules{
			ShotClock: ShotClock{
				Enabled:           true,
				Visible:           true,
				CurrentTime:       30,
				Duration:          30,
				ExtensionDuration: 30,
				MaxExtensions:     1,
			},
			Advertising: Advertising{
				ShowTop:         true,
				BackgroundColor: "#000000",
				ShowBorders:     true,
			},
			Billiards: Billiards{
				BallTracker: BallTracker{
					GameType:   GameType8Ball,
					Player1Set: BallSetUnassigned,
					Player2Set: BallSetUnassigned,
					Pocketed:   []int{},
				},
			},
		},
		LogoSlots: slots,
		UISettings: UISettings{
			ShowScoreboard: true,
			OverlaySkin:    "default",
			Theme:          "dark",
			ShowLogoSlots:  true,
		},
	}
}

// Player returns a pointer to player n (1 or 2) for in-place mutation.
func (m *MatchState) Player(n int) (*Player, error) {
	switch n {
	case 1:
		return &m.MatchData.Player1, nil
	case 2:
		return &m.MatchData.Player2, nil
	}
	return nil, ErrInvalidPlayer
}

// ValidPlayer reports whether n addresses one of the two seats.
func ValidPlayer(n int) bool {
	return n == 1 || n == 2
}

func DefaultPlayerName(n int) string {
	return "Player " + strconv.Itoa(n)
}

// NormalizePlayerName trims, truncates to MaxNameLength runes and falls back
// to the default seat name when nothing is left.
func NormalizePlayerName(n int, name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = strings.TrimSpace(string([]rune(name)[:MaxNameLength]))
	}
	if name == "" {
		return DefaultPlayerName(n)
	}
	return name
}

func ClampOpacity(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func ClampSpan(v int) int {
	if v < 1 {
		return 1
	}
	if v > 3 {
		return 3
	}
	return v
}

// Timestamp formats t the way every stored document records time.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

package notify

// Message types. Messages are triggers: receivers re-read state from the
// store, payloads only say what kind of thing changed.
const (
	TypeStateChanged         = "STATE_CHANGED"
	TypePlayerScoreChanged   = "PLAYER_SCORE_CHANGED"
	TypePlayerNameChanged    = "PLAYER_NAME_CHANGED"
	TypeLogoSlotChanged      = "LOGO_SLOT_CHANGED"
	TypeAdsRefresh           = "ADS_REFRESH"
	TypeAdsBackgroundChanged = "ADS_BACKGROUND_CHANGED"
	TypeThemeChanged         = "THEME_CHANGED"
	TypeShotClockChanged     = "SHOT_CLOCK_CHANGED"
	TypeShotClockExpired     = "SHOT_CLOCK_EXPIRED"
	TypeBallTrackerChanged   = "BALL_TRACKER_CHANGED"
	TypeRosterChanged        = "ROSTER_CHANGED"
	TypeAssetsChanged        = "ASSETS_CHANGED"

	// Legacy types still emitted for older overlay skins.
	TypeScoreUpdate = "SCORE_UPDATE"
	TypeUIRefresh   = "UI_REFRESH"
)

var knownTypes = map[string]bool{
	TypeStateChanged:         true,
	TypePlayerScoreChanged:   true,
	TypePlayerNameChanged:    true,
	TypeLogoSlotChanged:      true,
	TypeAdsRefresh:           true,
	TypeAdsBackgroundChanged: true,
	TypeThemeChanged:         true,
	TypeShotClockChanged:     true,
	TypeShotClockExpired:     true,
	TypeBallTrackerChanged:   true,
	TypeRosterChanged:        true,
	TypeAssetsChanged:        true,
	TypeScoreUpdate:          true,
	TypeUIRefresh:            true,
}

// Known reports whether typ is part of the message taxonomy.
func Known(typ string) bool {
	return knownTypes[typ]
}

// Meta identifies a single message and the notifier that sent it.
type Meta struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Timestamp int64  `json:"timestamp"`
}

// Envelope is the wire format shared with browser overlays.
type Envelope struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
	Meta    Meta           `json:"_meta"`
}

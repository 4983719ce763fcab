package scoreboard

type AssetType string

const (
	AssetSponsor       AssetType = "sponsor"
	AssetPlayerPhoto   AssetType = "player_photo"
	AssetAdvertisement AssetType = "advertisement"
	AssetLogo          AssetType = "logo"
	AssetAd            AssetType = "ad"
)

func (t AssetType) Valid() bool {
	switch t {
	case AssetSponsor, AssetPlayerPhoto, AssetAdvertisement, AssetLogo, AssetAd:
		return true
	}
	return false
}

// Asset is the metadata record of an uploaded image. The bytes live in a
// separate blob table keyed by the same id.
type Asset struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename,omitempty"`
	MIME      string    `json:"mime"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Size      int64     `json:"size"`
	Type      AssetType `json:"type"`
	Tags      []string  `json:"tags"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`
}

// HasTag reports whether the asset carries tag.
func (a Asset) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// RosterEntry is a saved player profile. It is copied by value into
// MatchData when loaded, never referenced live.
type RosterEntry struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Rating    string `json:"rating"`
	Country   string `json:"country"`
	PhotoURL  string `json:"photoUrl"`
	Sport     string `json:"sport"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

const DefaultSport = "billiards"

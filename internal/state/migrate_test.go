package state

import (
	"testing"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

func TestDetectVersion(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]any
		want int
	}{
		{"flat", map[string]any{"player1Name": "A"}, 0},
		{"empty", map[string]any{}, 0},
		{"nested with top-level clock", map[string]any{"matchData": map[string]any{}, "shotClock": map[string]any{}}, 1},
		{"nested without modules", map[string]any{"matchData": map[string]any{}}, 1},
		{"modules without slots", map[string]any{"matchData": map[string]any{}, "modules": map[string]any{}}, 2},
		{"explicit", map[string]any{"schemaVersion": float64(2)}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := detectVersion(tt.doc); got != tt.want {
				t.Errorf("version = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMigrateCurrentIsUnchanged(t *testing.T) {
	doc, err := toMap(scoreboard.DefaultMatchState("current"))
	if err != nil {
		t.Fatal(err)
	}
	res := Migrate(doc, "current")
	if res.Changed {
		t.Error("current document reported as changed")
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestMigrateUnversionedCurrentShapeIsUnchanged(t *testing.T) {
	doc, err := toMap(scoreboard.DefaultMatchState("current"))
	if err != nil {
		t.Fatal(err)
	}
	delete(doc, "schemaVersion")

	res := Migrate(doc, "current")
	if res.From != scoreboard.CurrentSchemaVersion {
		t.Fatalf("from = %d, want %d", res.From, scoreboard.CurrentSchemaVersion)
	}
	if res.Changed {
		t.Error("unversioned document of the current shape reported as changed")
	}
}

func TestMigrateVersion1(t *testing.T) {
	doc := map[string]any{
		"matchData": map[string]any{
			"player1":     map[string]any{"name": "Alice", "score": float64(2)},
			"player2":     map[string]any{"name": "", "score": float64(-4)},
			"shotClock":   map[string]any{"isRunning": true, "time": float64(9), "extensionTime": float64(15)},
			"ballTracker": map[string]any{"gameType": "9ball", "pocketed": []any{float64(3), float64(14), float64(3)}},
		},
		"logoSlots": map[string]any{"T1": "sponsor-a", "X7": "ignored"},
	}
	res := Migrate(doc, "current")
	if res.From != 1 || !res.Changed {
		t.Fatalf("from=%d changed=%v", res.From, res.Changed)
	}
	st := res.State
	if st.MatchData.Player2.Name != "Player 2" || st.MatchData.Player2.Score != 0 {
		t.Errorf("player2 = %+v", st.MatchData.Player2)
	}
	sc := st.Modules.ShotClock
	if !sc.Running || sc.CurrentTime != 9 || sc.ExtensionDuration != 15 || sc.Duration != 30 {
		t.Errorf("shot clock = %+v", sc)
	}
	bt := st.Modules.Billiards.BallTracker
	if bt.GameType != scoreboard.GameType9Ball || len(bt.Pocketed) != 1 || bt.Pocketed[0] != 3 {
		t.Errorf("ball tracker = %+v", bt)
	}
	if slot := st.LogoSlots["T1"]; slot.AssetID == nil || *slot.AssetID != "sponsor-a" || !slot.Active {
		t.Errorf("T1 = %+v", slot)
	}
	if _, ok := st.LogoSlots["X7"]; ok {
		t.Error("unknown slot kept")
	}
}

func TestMigrateMalformedSectionKeepsRest(t *testing.T) {
	doc := map[string]any{
		"schemaVersion": float64(3),
		"matchData": map[string]any{
			"player1": map[string]any{"name": "Alice"},
			"player2": "not a player",
		},
	}
	res := Migrate(doc, "current")
	if len(res.Warnings) == 0 {
		t.Error("expected a warning for the malformed player")
	}
	if res.State.MatchData.Player1.Name != "Alice" {
		t.Errorf("player1 = %q", res.State.MatchData.Player1.Name)
	}
	if res.State.MatchData.Player2.Name != "Player 2" {
		t.Errorf("player2 = %q", res.State.MatchData.Player2.Name)
	}
}

package state

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

// Schema versions:
//
//	0  flat legacy document: player1Name, player1Score, raceInfo, shotClock, ...
//	1  nested matchData, shot clock still at the top level or in matchData
//	2  shot clock under modules.shotClock
//	3  logoSlots, uiSettings, modules.advertising and modules.billiards present
//
// steps[i] turns a version i document into version i+1. Each step works on
// its own copy of the input.
var steps = []func(map[string]any) (map[string]any, []string){
	flatToNested,
	moveShotClock,
	fillModules,
}

// MigrationResult describes what Migrate did to a stored document.
type MigrationResult struct {
	State    scoreboard.MatchState
	From     int
	Changed  bool
	Warnings []string
}

// Migrate upgrades a raw stored document to the current layout. Unknown fields
// are dropped and missing parts fall back to defaults; it never fails.
func Migrate(doc map[string]any, id string) MigrationResult {
	from, _ := detectVersion(doc)

	var warnings []string
	cur := doc
	for v := from; v < len(steps); v++ {
		next, w := steps[v](cur)
		warnings = append(warnings, w...)
		cur = next
	}

	st, w := decodeState(cur, id)
	warnings = append(warnings, w...)

	return MigrationResult{
		State:    st,
		From:     from,
		Changed:  from < scoreboard.CurrentSchemaVersion,
		Warnings: warnings,
	}
}

// detectVersion reads schemaVersion, or classifies an unversioned document
// by the keys it carries.
func detectVersion(doc map[string]any) (version int, explicit bool) {
	if v, ok := toInt(doc["schemaVersion"]); ok && v >= 0 {
		return v, true
	}

	md, hasMatchData := doc["matchData"].(map[string]any)
	if !hasMatchData {
		return 0, false
	}
	if _, ok := doc["shotClock"]; ok {
		return 1, false
	}
	if _, ok := md["shotClock"]; ok {
		return 1, false
	}
	modules, hasModules := doc["modules"].(map[string]any)
	if !hasModules {
		return 1, false
	}
	_, hasSlots := doc["logoSlots"]
	_, hasUI := doc["uiSettings"]
	_, hasAds := modules["advertising"]
	_, hasBilliards := modules["billiards"]
	if !hasSlots || !hasUI || !hasAds || !hasBilliards {
		return 2, false
	}
	return scoreboard.CurrentSchemaVersion, false
}

// flatToNested maps the flat legacy fields onto matchData.
func flatToNested(doc map[string]any) (map[string]any, []string) {
	var warnings []string
	out := map[string]any{}
	for _, k := range []string{"shotClock", "logoSlots", "uiSettings", "modules", "advertising"} {
		if v, ok := doc[k]; ok {
			out[k] = deepCopy(v)
		}
	}

	player := func(n int) map[string]any {
		p := map[string]any{}
		prefixes := []string{"player" + strconv.Itoa(n), "p" + strconv.Itoa(n)}
		field := func(dst string, suffixes ...string) {
			for _, pre := range prefixes {
				for _, suf := range suffixes {
					if v, ok := doc[pre+suf]; ok && v != nil {
						p[dst] = v
						return
					}
				}
			}
		}
		field("name", "Name")
		field("fargoInfo", "Fargo", "FargoInfo")
		field("color", "Color")
		for _, k := range []string{"score", "timeouts", "extensions"} {
			for _, pre := range prefixes {
				raw, ok := doc[pre+capitalize(k)]
				if !ok {
					continue
				}
				if n, ok := toInt(raw); ok {
					p[k] = n
				} else {
					warnings = append(warnings, fmt.Sprintf("%s%s: not a number", pre, capitalize(k)))
				}
				break
			}
		}
		return p
	}

	md := map[string]any{
		"player1": player(1),
		"player2": player(2),
	}
	if v, ok := firstString(doc, "raceInfo", "race", "infoTab1"); ok {
		md["infoTab1"] = v
	}
	if v, ok := firstString(doc, "wagerInfo", "wager", "infoTab2"); ok {
		md["infoTab2"] = v
	}
	if v, ok := firstString(doc, "activeSport", "sport"); ok {
		md["activeSport"] = v
	}
	if v, ok := doc["ballTracker"]; ok {
		md["ballTracker"] = deepCopy(v)
	}
	out["matchData"] = md
	return out, warnings
}

// moveShotClock folds both legacy shot clock locations into modules.shotClock.
func moveShotClock(doc map[string]any) (map[string]any, []string) {
	out := deepCopy(doc).(map[string]any)
	var warnings []string

	merged := map[string]any{}
	absorb := func(where string, v any) {
		if v == nil {
			return
		}
		legacy, ok := v.(map[string]any)
		if !ok {
			warnings = append(warnings, where+": not an object")
			return
		}
		for k, val := range canonicalShotClock(legacy) {
			merged[k] = val
		}
	}

	absorb("shotClock", out["shotClock"])
	delete(out, "shotClock")
	if md, ok := out["matchData"].(map[string]any); ok {
		absorb("matchData.shotClock", md["shotClock"])
		delete(md, "shotClock")
	}

	modules, ok := out["modules"].(map[string]any)
	if !ok {
		modules = map[string]any{}
		out["modules"] = modules
	}
	absorb("modules.shotClock", modules["shotClock"])
	modules["shotClock"] = merged
	return out, warnings
}

var shotClockAliases = map[string]string{
	"enabled":           "enabled",
	"visible":           "visible",
	"isVisible":         "visible",
	"running":           "running",
	"isRunning":         "running",
	"currentTime":       "currentTime",
	"time":              "currentTime",
	"timeLeft":          "currentTime",
	"duration":          "duration",
	"extensionDuration": "extensionDuration",
	"extensionTime":     "extensionDuration",
	"maxExtensions":     "maxExtensions",
}

func canonicalShotClock(legacy map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range legacy {
		if name, ok := shotClockAliases[k]; ok {
			out[name] = v
		}
	}
	return out
}

// fillModules relocates ball tracker and advertising data and upgrades logo
// slots stored as bare asset ids.
func fillModules(doc map[string]any) (map[string]any, []string) {
	out := deepCopy(doc).(map[string]any)
	var warnings []string

	modules, ok := out["modules"].(map[string]any)
	if !ok {
		modules = map[string]any{}
		out["modules"] = modules
	}

	if md, ok := out["matchData"].(map[string]any); ok {
		if bt, ok := md["ballTracker"]; ok {
			if _, exists := modules["billiards"]; !exists {
				modules["billiards"] = map[string]any{"ballTracker": bt}
			}
			delete(md, "ballTracker")
		}
	}
	if ads, ok := out["advertising"]; ok {
		if _, exists := modules["advertising"]; !exists {
			modules["advertising"] = ads
		}
		delete(out, "advertising")
	}

	if slots, ok := out["logoSlots"].(map[string]any); ok {
		for id, v := range slots {
			if assetID, ok := v.(string); ok {
				slot := map[string]any{"active": assetID != ""}
				if assetID != "" {
					slot["assetId"] = assetID
				}
				slots[id] = slot
			}
		}
	} else if v, exists := out["logoSlots"]; exists && v != nil {
		warnings = append(warnings, "logoSlots: not an object")
		delete(out, "logoSlots")
	}
	return out, warnings
}

// decodeState overlays doc on the default document section by section so a
// malformed section only loses itself.
func decodeState(doc map[string]any, id string) (scoreboard.MatchState, []string) {
	st := scoreboard.DefaultMatchState(id)
	var warnings []string

	apply := func(name string, src, dst any) {
		if src == nil {
			return
		}
		data, err := json.Marshal(src)
		if err == nil {
			err = json.Unmarshal(data, dst)
		}
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", name, err))
		}
	}
	object := func(name string, v any) map[string]any {
		if v == nil {
			return nil
		}
		obj, ok := v.(map[string]any)
		if !ok {
			warnings = append(warnings, name+": not an object")
		}
		return obj
	}

	if md := object("matchData", doc["matchData"]); md != nil {
		apply("matchData.player1", md["player1"], &st.MatchData.Player1)
		apply("matchData.player2", md["player2"], &st.MatchData.Player2)
		apply("matchData.infoTab1", md["infoTab1"], &st.MatchData.InfoTab1)
		apply("matchData.infoTab2", md["infoTab2"], &st.MatchData.InfoTab2)
		apply("matchData.activeSport", md["activeSport"], &st.MatchData.ActiveSport)
	}
	if mods := object("modules", doc["modules"]); mods != nil {
		apply("modules.shotClock", mods["shotClock"], &st.Modules.ShotClock)
		apply("modules.advertising", mods["advertising"], &st.Modules.Advertising)
		apply("modules.billiards", mods["billiards"], &st.Modules.Billiards)
	}
	if slots := object("logoSlots", doc["logoSlots"]); slots != nil {
		for slotID, v := range slots {
			if !scoreboard.IsLogoSlot(slotID) {
				continue
			}
			slot := scoreboard.DefaultLogoSlot()
			apply("logoSlots."+slotID, v, &slot)
			st.LogoSlots[slotID] = slot
		}
	}
	apply("uiSettings", doc["uiSettings"], &st.UISettings)

	normalize(&st)
	st.ID = id
	st.SchemaVersion = scoreboard.CurrentSchemaVersion
	if ts, ok := doc["updatedAt"].(string); ok {
		st.UpdatedAt = ts
	}
	return st, warnings
}

// normalize enforces the value ranges every consumer relies on.
func normalize(st *scoreboard.MatchState) {
	for n := 1; n <= 2; n++ {
		p, _ := st.Player(n)
		p.Name = scoreboard.NormalizePlayerName(n, p.Name)
		p.Score = max(p.Score, 0)
		p.Timeouts = max(p.Timeouts, 0)
		p.Extensions = max(p.Extensions, 0)
	}

	sc := &st.Modules.ShotClock
	if sc.Duration <= 0 {
		sc.Duration = scoreboard.DefaultMatchState("").Modules.ShotClock.Duration
	}
	sc.CurrentTime = max(sc.CurrentTime, 0)
	sc.ExtensionDuration = max(sc.ExtensionDuration, 0)
	sc.MaxExtensions = max(sc.MaxExtensions, 0)

	bt := &st.Modules.Billiards.BallTracker
	if bt.GameType.BallCount() == 0 {
		bt.GameType = scoreboard.GameType8Ball
	}
	if !bt.Player1Set.Valid() || bt.Player1Set == "" {
		bt.Player1Set = scoreboard.BallSetUnassigned
	}
	if !bt.Player2Set.Valid() || bt.Player2Set == "" {
		bt.Player2Set = scoreboard.BallSetUnassigned
	}
	bt.Pocketed = cleanBalls(bt.Pocketed, bt.GameType.BallCount())

	if st.LogoSlots == nil {
		st.LogoSlots = map[string]scoreboard.LogoSlot{}
	}
	for _, id := range scoreboard.LogoSlotIDs {
		slot, ok := st.LogoSlots[id]
		if !ok {
			slot = scoreboard.DefaultLogoSlot()
		}
		slot.Span = scoreboard.ClampSpan(slot.Span)
		slot.Opacity = scoreboard.ClampOpacity(slot.Opacity)
		if slot.AssetID != nil && *slot.AssetID == "" {
			slot.AssetID = nil
		}
		st.LogoSlots[id] = slot
	}
}

// cleanBalls drops out-of-range and duplicate ball numbers and sorts the rest.
func cleanBalls(balls []int, count int) []int {
	seen := map[int]bool{}
	out := []int{}
	for _, b := range balls {
		if b < 1 || b > count || seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	sort.Ints(out)
	return out
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}

func firstString(doc map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := doc[k].(string); ok {
			return s, true
		}
	}
	return "", false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	}
	return v
}

package view

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/playperu/scoreboard/internal/assets"
	"github.com/playperu/scoreboard/internal/docstore"
	"github.com/playperu/scoreboard/internal/notify"
	"github.com/playperu/scoreboard/internal/scoreboard"
	"github.com/playperu/scoreboard/internal/state"
)

type mapResolver map[string]string

func (m mapResolver) ImageURL(id string) string { return m[id] }

func TestProjectDefaults(t *testing.T) {
	v := Project(scoreboard.DefaultMatchState("current"), nil)

	if v.Players[0].Name != "Player 1" || v.Players[1].Name != "Player 2" {
		t.Errorf("players = %+v", v.Players)
	}
	if !v.ShotClock.Visible || v.ShotClock.Text != "30" || v.ShotClock.Warning {
		t.Errorf("shot clock = %+v", v.ShotClock)
	}
	if len(v.Slots) != len(scoreboard.LogoSlotIDs) {
		t.Errorf("slots = %d", len(v.Slots))
	}
	for _, s := range v.Slots {
		if s.Visible {
			t.Errorf("slot %s visible in default state", s.ID)
		}
	}
	if v.Balls != nil {
		t.Error("ball tracker shown while disabled")
	}
}

func TestProjectToleratesZeroState(t *testing.T) {
	v := Project(scoreboard.MatchState{}, nil)
	if v.Players[0].Name != "Player 1" || v.Skin != "default" || v.Sport != scoreboard.DefaultSport {
		t.Errorf("zero projection = %+v", v)
	}
	if !v.ShotClock.Expired {
		t.Error("zero clock not expired")
	}
}

func TestProjectDanglingAsset(t *testing.T) {
	st := scoreboard.DefaultMatchState("current")
	live, gone := "live", "gone"
	st.LogoSlots["T1"] = scoreboard.LogoSlot{AssetID: &live, Active: true, Span: 2, Opacity: 0.5}
	st.LogoSlots["T2"] = scoreboard.LogoSlot{AssetID: &gone, Active: true, Span: 1, Opacity: 1}
	st.MatchData.Player1.PhotoAssetID = "gone"
	st.MatchData.Player1.PhotoURL = "https://example.org/p1.jpg"
	st.UISettings.ShowPlayerPhotos = true

	v := Project(st, mapResolver{"live": "/api/assets/live"})
	slots := map[string]SlotView{}
	for _, s := range v.Slots {
		slots[s.ID] = s
	}
	if s := slots["T1"]; !s.Visible || s.ImageURL != "/api/assets/live" || s.Span != 2 {
		t.Errorf("T1 = %+v", s)
	}
	if s := slots["T2"]; s.Visible || s.ImageURL != "" {
		t.Errorf("dangling T2 = %+v", s)
	}
	if v.Players[0].PhotoURL != "https://example.org/p1.jpg" {
		t.Errorf("photo fallback = %q", v.Players[0].PhotoURL)
	}
}

func TestProjectBallTracker(t *testing.T) {
	st := scoreboard.DefaultMatchState("current")
	st.Modules.Billiards.BallTracker.Enabled = true
	st.Modules.Billiards.BallTracker.Pocketed = []int{3, 8}

	v := Project(st, nil)
	if v.Balls == nil || len(v.Balls.Balls) != 15 {
		t.Fatalf("balls = %+v", v.Balls)
	}
	if b := v.Balls.Balls[2]; !b.Pocketed || b.Group != "solids" {
		t.Errorf("ball 3 = %+v", b)
	}
	if b := v.Balls.Balls[8]; b.Pocketed || b.Group != "stripes" {
		t.Errorf("ball 9 = %+v", b)
	}
}

type recorder struct {
	mu    sync.Mutex
	views []View
	ch    chan View
}

func newRecorder() *recorder { return &recorder{ch: make(chan View, 64)} }

func (r *recorder) Render(v View) {
	r.mu.Lock()
	r.views = append(r.views, v)
	r.mu.Unlock()
	select {
	case r.ch <- v:
	default:
	}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

func (r *recorder) waitFor(t *testing.T, pred func(View) bool) View {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-r.ch:
			if pred(v) {
				return v
			}
		case <-deadline:
			t.Fatal("timed out waiting for view")
			return View{}
		}
	}
}

func setup(t *testing.T, n *notify.Notifier) (*state.Manager, *assets.Service) {
	t.Helper()
	store, err := docstore.Open(context.Background(), filepath.Join(t.TempDir(), "view.db"), slog.Default(), 20*time.Millisecond)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	m := state.New(store, n, slog.Default(), "current")
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return m, assets.New(store, n, slog.Default(), 0)
}

func TestControllerFollowsState(t *testing.T) {
	hub := notify.NewHub()
	control := notify.New(hub, slog.Default())
	defer control.Close()
	overlay := notify.New(hub, slog.Default())
	defer overlay.Close()

	m, _ := setup(t, control)
	rec := newRecorder()
	c := NewController(m, overlay, rec, nil, nil, slog.Default())
	c.Start(context.Background())

	rec.waitFor(t, func(v View) bool { return v.Players[0].Score == 0 })
	if _, err := m.IncrementScore(context.Background(), 1, 2); err != nil {
		t.Fatalf("increment: %v", err)
	}
	rec.waitFor(t, func(v View) bool { return v.Players[0].Score == 2 })

	c.Close()
	before := rec.count()
	m.IncrementScore(context.Background(), 1, 1)
	time.Sleep(150 * time.Millisecond)
	if rec.count() != before {
		t.Errorf("rendered %d times after Close", rec.count()-before)
	}
}

func TestCatalogResolvesAndReleases(t *testing.T) {
	m, svc := setup(t, nil)
	ctx := context.Background()

	var buf bytes.Buffer
	png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)))
	res := svc.Upload(ctx, assets.UploadRequest{ID: "sponsor", Data: buf.Bytes()})
	if !res.Success {
		t.Fatalf("upload: %s", res.Error)
	}
	if _, err := m.SetLogoSlot(ctx, "T1", "sponsor"); err != nil {
		t.Fatalf("set slot: %v", err)
	}

	cat := NewCatalog(svc, "/api/assets")
	rec := newRecorder()
	c := NewController(m, nil, rec, cat, nil, slog.Default())
	c.Start(ctx)

	rec.waitFor(t, func(v View) bool {
		return v.Slots[0].Visible && strings.HasPrefix(v.Slots[0].ImageURL, "/api/assets/sponsor/blob?v=")
	})

	if err := svc.Delete(ctx, "sponsor"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rec.waitFor(t, func(v View) bool { return !v.Slots[0].Visible && v.Slots[0].ImageURL == "" })

	c.Close()
	if cat.ImageURL("sponsor") != "" {
		t.Error("catalog kept urls after Close")
	}
}

package docstore

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	if path == "" {
		path = filepath.Join(t.TempDir(), "store.db")
	}
	s, err := Open(context.Background(), path, slog.Default(), 20*time.Millisecond)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type doc struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}

func TestPutGet(t *testing.T) {
	s := openTestStore(t, "")
	ctx := context.Background()

	if err := s.Put(ctx, MatchStates, "current", doc{ID: "current", Score: 3}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := Get[doc](ctx, s, MatchStates, "current")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Score != 3 {
		t.Errorf("score = %d, want 3", got.Score)
	}

	// Replace, not merge.
	if err := s.Put(ctx, MatchStates, "current", map[string]any{"id": "current"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, _ = Get[doc](ctx, s, MatchStates, "current")
	if got.Score != 0 {
		t.Errorf("score after replace = %d, want 0", got.Score)
	}
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t, "")

	_, err := Get[doc](context.Background(), s, MatchStates, "missing")
	if !errors.Is(err, scoreboard.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutRejectsEmptyID(t *testing.T) {
	s := openTestStore(t, "")

	err := s.Put(context.Background(), MatchStates, "", doc{})
	if !errors.Is(err, scoreboard.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestModify(t *testing.T) {
	s := openTestStore(t, "")
	ctx := context.Background()
	s.Put(ctx, MatchStates, "current", doc{ID: "current", Score: 1})

	got, err := Modify(ctx, s, MatchStates, "current", func(d *doc) error {
		d.Score += 4
		return nil
	})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if got.Score != 5 {
		t.Errorf("returned score = %d, want 5", got.Score)
	}

	stored, _ := Get[doc](ctx, s, MatchStates, "current")
	if stored.Score != 5 {
		t.Errorf("stored score = %d, want 5", stored.Score)
	}

	_, err = Modify(ctx, s, MatchStates, "current", func(d *doc) error {
		d.Score = 100
		return scoreboard.ErrInvalidPlayer
	})
	if !errors.Is(err, scoreboard.ErrInvalidPlayer) {
		t.Fatalf("expected callback error, got %v", err)
	}
	stored, _ = Get[doc](ctx, s, MatchStates, "current")
	if stored.Score != 5 {
		t.Errorf("aborted modify was written: score = %d", stored.Score)
	}

	_, err = Modify(ctx, s, MatchStates, "nope", func(d *doc) error { return nil })
	if !errors.Is(err, scoreboard.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertAssignsIncreasingIDs(t *testing.T) {
	s := openTestStore(t, "")
	ctx := context.Background()

	type entry struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	first, err := s.Insert(ctx, Roster, func(id string) any { return entry{ID: id, Name: "Ann"} })
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	second, err := s.Insert(ctx, Roster, func(id string) any { return entry{ID: id, Name: "Ben"} })
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if first == second {
		t.Fatalf("ids not unique: %s", first)
	}

	got, err := Get[entry](ctx, s, Roster, second)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Ben" || got.ID != second {
		t.Errorf("got %+v", got)
	}

	if _, err := s.Insert(ctx, Assets, func(string) any { return nil }); !errors.Is(err, scoreboard.ErrInvalidArgument) {
		t.Errorf("insert into assets: expected ErrInvalidArgument, got %v", err)
	}
}

func TestFind(t *testing.T) {
	s := openTestStore(t, "")
	ctx := context.Background()

	for _, a := range []scoreboard.Asset{
		{ID: "a", Type: scoreboard.AssetLogo, Size: 30},
		{ID: "b", Type: scoreboard.AssetSponsor, Size: 10},
		{ID: "c", Type: scoreboard.AssetLogo, Size: 20},
		{ID: "d", Type: scoreboard.AssetLogo, Size: 5},
	} {
		if err := s.Put(ctx, Assets, a.ID, a); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	got, err := Find(ctx, s, Assets, Query[scoreboard.Asset]{
		Match: func(a scoreboard.Asset) bool { return a.Type == scoreboard.AssetLogo },
		Less:  func(a, b scoreboard.Asset) bool { return a.Size < b.Size },
		Limit: 2,
	})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 2 || got[0].ID != "d" || got[1].ID != "c" {
		t.Errorf("got %+v, want [d c]", got)
	}
}

func TestDeleteDropsBlob(t *testing.T) {
	s := openTestStore(t, "")
	ctx := context.Background()

	if err := s.PutWithBlob(ctx, "img", scoreboard.Asset{ID: "img"}, []byte{1, 2, 3}); err != nil {
		t.Fatalf("put: %v", err)
	}
	blob, err := s.Blob(ctx, "img")
	if err != nil || len(blob) != 3 {
		t.Fatalf("blob = %v, %v", blob, err)
	}

	if err := s.Delete(ctx, Assets, "img"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Blob(ctx, "img"); !errors.Is(err, scoreboard.ErrNotFound) {
		t.Errorf("blob after delete: %v", err)
	}
	if err := s.Delete(ctx, Assets, "img"); !errors.Is(err, scoreboard.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func waitDoc(t *testing.T, ch <-chan doc) doc {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return doc{}
}

func TestObserveDeliversInitialAndChanges(t *testing.T) {
	s := openTestStore(t, "")
	ctx := context.Background()
	s.Put(ctx, MatchStates, "current", doc{ID: "current", Score: 1})

	ch := make(chan doc, 16)
	cancel := ObserveDoc(s, MatchStates, "current", func(d doc, err error) {
		if err == nil {
			ch <- d
		}
	})
	defer cancel()

	if got := waitDoc(t, ch); got.Score != 1 {
		t.Errorf("initial score = %d, want 1", got.Score)
	}

	s.Put(ctx, MatchStates, "current", doc{ID: "current", Score: 2})
	if got := waitDoc(t, ch); got.Score != 2 {
		t.Errorf("score after write = %d, want 2", got.Score)
	}

	// Writes to other documents do not wake this observer.
	s.Put(ctx, MatchStates, "other", doc{ID: "other", Score: 9})
	select {
	case d := <-ch:
		t.Errorf("unexpected snapshot %+v", d)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestObserveCancelIsSynchronous(t *testing.T) {
	s := openTestStore(t, "")
	ctx := context.Background()
	s.Put(ctx, MatchStates, "current", doc{ID: "current"})

	ch := make(chan doc, 16)
	cancel := ObserveDoc(s, MatchStates, "current", func(d doc, err error) { ch <- d })
	waitDoc(t, ch)

	cancel()
	cancel() // idempotent

	s.Put(ctx, MatchStates, "current", doc{ID: "current", Score: 7})
	select {
	case d := <-ch:
		t.Errorf("callback after cancel: %+v", d)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestObserveSeesOtherPeer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	control := openTestStore(t, path)
	overlay := openTestStore(t, path)
	ctx := context.Background()

	control.Put(ctx, MatchStates, "current", doc{ID: "current", Score: 0})

	ch := make(chan doc, 16)
	cancel := ObserveDoc(overlay, MatchStates, "current", func(d doc, err error) {
		if err == nil {
			ch <- d
		}
	})
	defer cancel()
	waitDoc(t, ch)

	control.Put(ctx, MatchStates, "current", doc{ID: "current", Score: 4})
	if got := waitDoc(t, ch); got.Score != 4 {
		t.Errorf("overlay saw score %d, want 4", got.Score)
	}
}

func TestObserveQuery(t *testing.T) {
	s := openTestStore(t, "")
	ctx := context.Background()

	ch := make(chan []scoreboard.Asset, 16)
	cancel := ObserveQuery(s, Assets, Query[scoreboard.Asset]{
		Match: func(a scoreboard.Asset) bool { return a.Type == scoreboard.AssetSponsor },
	}, func(list []scoreboard.Asset, err error) {
		if err == nil {
			ch <- list
		}
	})
	defer cancel()

	wait := func() []scoreboard.Asset {
		select {
		case l := <-ch:
			return l
		case <-time.After(2 * time.Second):
			t.Fatal("timed out")
		}
		return nil
	}

	if got := wait(); len(got) != 0 {
		t.Errorf("initial result = %v, want empty", got)
	}
	s.Put(ctx, Assets, "s1", scoreboard.Asset{ID: "s1", Type: scoreboard.AssetSponsor})
	if got := wait(); len(got) != 1 {
		t.Errorf("result after put = %v, want 1 asset", got)
	}
}

package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/playperu/scoreboard/internal/assets"
	"github.com/playperu/scoreboard/internal/docstore"
	"github.com/playperu/scoreboard/internal/handler/health"
	"github.com/playperu/scoreboard/internal/notify"
	"github.com/playperu/scoreboard/internal/roster"
	"github.com/playperu/scoreboard/internal/scoreboard"
	"github.com/playperu/scoreboard/internal/state"
)

func newTestServer(t *testing.T) (*Server, *state.Manager) {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := docstore.Open(ctx, filepath.Join(t.TempDir(), "server.db"), logger, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hub := notify.NewHub()
	control := notify.New(hub, logger)
	overlay := notify.New(hub, logger)
	t.Cleanup(func() {
		control.Close()
		overlay.Close()
		hub.Close()
	})

	mgr := state.New(store, control, logger, "current")
	if err := mgr.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	srv := New(":0", logger, Deps{
		State:    mgr,
		Assets:   assets.New(store, control, logger, assets.DefaultMaxBytes),
		Roster:   roster.New(store, control, mgr, logger),
		Notifier: overlay,
		Channel:  hub,
		Checks: map[string]health.Checker{
			"sqlite":    health.CheckerFunc(store.Ping),
			"broadcast": health.CheckerFunc(func(context.Context) error { return nil }),
		},
		CORSOrigins: []string{"*"},
	})
	return srv, mgr
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) scoreboard.MatchState {
	t.Helper()
	var st scoreboard.MatchState
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	return st
}

func TestStateEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if st := decodeState(t, rec); st.MatchData.Player1.Name != "Player 1" {
		t.Errorf("player1 = %q", st.MatchData.Player1.Name)
	}

	rec = do(t, h, http.MethodPatch, "/api/state", `{"matchData":{"infoTab1":"Race to 7"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d: %s", rec.Code, rec.Body)
	}
	if st := decodeState(t, rec); st.MatchData.InfoTab1 != "Race to 7" || st.MatchData.Player2.Name != "Player 2" {
		t.Errorf("merge result = %+v", st.MatchData)
	}

	rec = do(t, h, http.MethodGet, "/api/state/value?path=matchData.infoTab1", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Race to 7") {
		t.Errorf("value = %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodGet, "/api/state/value?path=matchData.nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing path status = %d, want 404", rec.Code)
	}
}

func TestPlayerEndpoints(t *testing.T) {
	srv, mgr := newTestServer(t)
	h := srv.Handler()

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		score  int
	}{
		{"increment default", http.MethodPost, "/api/players/1/score/increment", "", http.StatusOK, 1},
		{"increment amount", http.MethodPost, "/api/players/1/score/increment", `{"amount":3}`, http.StatusOK, 4},
		{"decrement floors at zero", http.MethodPost, "/api/players/1/score/decrement", `{"amount":10}`, http.StatusOK, 0},
		{"set score", http.MethodPut, "/api/players/1/score", `{"score":5}`, http.StatusOK, 5},
		{"negative set stores zero", http.MethodPut, "/api/players/1/score", `{"score":-2}`, http.StatusOK, 0},
		{"invalid seat", http.MethodPost, "/api/players/3/score/increment", "", http.StatusBadRequest, 0},
		{"non numeric seat", http.MethodPost, "/api/players/x/score/increment", "", http.StatusBadRequest, 0},
		{"bad json", http.MethodPut, "/api/players/1/score", `{"score":`, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body)
			}
			st, err := mgr.State(context.Background())
			if err != nil {
				t.Fatalf("state: %v", err)
			}
			if st.MatchData.Player1.Score != tt.score {
				t.Errorf("score = %d, want %d", st.MatchData.Player1.Score, tt.score)
			}
		})
	}

	rec := do(t, h, http.MethodPatch, "/api/players/2", `{"name":"  Bob  ","fargo":"610"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch player status = %d: %s", rec.Code, rec.Body)
	}
	if p := decodeState(t, rec).MatchData.Player2; p.Name != "Bob" || p.Ratings.Fargo != "610" {
		t.Errorf("player2 = %+v", p)
	}
}

func TestShotClockEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPatch, "/api/shotclock", `{"duration":45}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d: %s", rec.Code, rec.Body)
	}
	if sc := decodeState(t, rec).Modules.ShotClock; sc.Duration != 45 || sc.CurrentTime != 45 {
		t.Errorf("clock = %+v", sc)
	}

	rec = do(t, h, http.MethodPost, "/api/shotclock/start", "")
	if sc := decodeState(t, rec).Modules.ShotClock; !sc.Running {
		t.Errorf("clock not running after start: %+v", sc)
	}

	rec = do(t, h, http.MethodPost, "/api/players/1/extensions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("extension status = %d", rec.Code)
	}
	st := decodeState(t, rec)
	if st.MatchData.Player1.Extensions != 1 {
		t.Errorf("extensions = %d, want 1", st.MatchData.Player1.Extensions)
	}

	rec = do(t, h, http.MethodPatch, "/api/shotclock", `{"duration":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero duration status = %d, want 400", rec.Code)
	}
}

func TestLogoSlotEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPut, "/api/logos/T1", `{"assetId":"sponsor","opacity":2,"title":"Main"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d: %s", rec.Code, rec.Body)
	}
	slot := decodeState(t, rec).LogoSlots["T1"]
	if slot.AssetID == nil || *slot.AssetID != "sponsor" || !slot.Active || slot.Opacity != 1 || slot.Title != "Main" {
		t.Errorf("slot = %+v", slot)
	}

	rec = do(t, h, http.MethodDelete, "/api/logos/T1", "")
	if slot := decodeState(t, rec).LogoSlots["T1"]; slot.AssetID != nil || slot.Active {
		t.Errorf("cleared slot = %+v", slot)
	}

	if rec := do(t, h, http.MethodPut, "/api/logos/Z9", `{"active":true}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown slot status = %d, want 404", rec.Code)
	}
}

func TestResetEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	do(t, h, http.MethodPatch, "/api/players/1", `{"name":"Alice"}`)
	do(t, h, http.MethodPut, "/api/players/1/score", `{"score":4}`)

	rec := do(t, h, http.MethodPost, "/api/reset", "")
	st := decodeState(t, rec)
	if st.MatchData.Player1.Score != 0 || st.MatchData.Player1.Name != "Alice" {
		t.Errorf("after match reset: %+v", st.MatchData.Player1)
	}

	rec = do(t, h, http.MethodPost, "/api/reset", `{"scope":"complete"}`)
	if st := decodeState(t, rec); st.MatchData.Player1.Name != "Player 1" {
		t.Errorf("after complete reset name = %q", st.MatchData.Player1.Name)
	}

	if rec := do(t, h, http.MethodPost, "/api/reset", `{"scope":"everything"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad scope status = %d, want 400", rec.Code)
	}
}

func multipartUpload(t *testing.T, filename, contentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(data)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestAssetEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	var img bytes.Buffer
	if err := png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 8, 4))); err != nil {
		t.Fatalf("encode: %v", err)
	}

	body, ct := multipartUpload(t, "logo.png", "image/png", img.Bytes(), map[string]string{
		"id": "sponsor", "type": "sponsor", "tags": "Gold,main",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/assets", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body)
	}
	var res assets.UploadResult
	json.NewDecoder(rec.Body).Decode(&res)
	if !res.Success || res.Asset == nil || res.Asset.Width != 8 || res.Asset.Height != 4 {
		t.Fatalf("upload result = %+v", res)
	}

	rec = do(t, h, http.MethodGet, "/api/assets/sponsor/blob?v=1", "")
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), img.Bytes()) {
		t.Fatalf("blob status = %d, %d bytes", rec.Code, rec.Body.Len())
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("blob content-type = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); !strings.Contains(got, "immutable") {
		t.Errorf("versioned blob cache-control = %q", got)
	}

	rec = do(t, h, http.MethodGet, "/api/assets?tag=gold", "")
	if !strings.Contains(rec.Body.String(), `"sponsor"`) {
		t.Errorf("list by tag = %s", rec.Body)
	}

	body, ct = multipartUpload(t, "fake.gif", "image/gif", img.Bytes(), nil)
	req = httptest.NewRequest(http.MethodPost, "/api/assets", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("spoofed upload status = %d, want 422", rec.Code)
	}

	if rec := do(t, h, http.MethodDelete, "/api/assets/sponsor", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/assets/sponsor", ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestRosterEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/roster/import",
		strings.NewReader("Name,Fargo,Country\nJohn Doe,520,USA\n,400,\n"))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body)
	}
	var res roster.ImportResult
	json.NewDecoder(rec.Body).Decode(&res)
	if len(res.Imported) != 1 || res.Skipped != 1 {
		t.Fatalf("import result = %+v", res)
	}
	id := res.Imported[0].ID

	rec = do(t, h, http.MethodPost, "/api/roster/"+strconv.FormatInt(id, 10)+"/load", `{"player":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("load status = %d: %s", rec.Code, rec.Body)
	}
	p := decodeState(t, rec).MatchData.Player2
	if p.Name != "John Doe" || p.Ratings.Fargo != "520" || p.Country != "USA" {
		t.Errorf("player2 = %+v", p)
	}

	if rec := do(t, h, http.MethodPost, "/api/roster/"+strconv.FormatInt(id, 10)+"/load", `{"player":3}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad seat status = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/roster/9999", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing entry status = %d, want 404", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/roster?q=john", ""); !strings.Contains(rec.Body.String(), "John Doe") {
		t.Errorf("search = %s", rec.Body)
	}
}

func TestViewEventsStreamSnapshots(t *testing.T) {
	srv, mgr := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := srv.handlers.startFeeds(ctx)
	defer stop()

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/state/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content-type = %q", got)
	}

	if _, err := mgr.SetPlayerName(context.Background(), 1, "Efren"); err != nil {
		t.Fatalf("set name: %v", err)
	}

	found := make(chan struct{})
	go func() {
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
		for sc.Scan() {
			if strings.HasPrefix(sc.Text(), "data: ") && strings.Contains(sc.Text(), "Efren") {
				close(found)
				return
			}
		}
	}()

	select {
	case <-found:
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot with the new name")
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv.Handler(), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var report health.Report
	json.NewDecoder(rec.Body).Decode(&report)
	if report.Status != "ok" || len(report.Checks) != 2 {
		t.Errorf("report = %+v", report)
	}
}

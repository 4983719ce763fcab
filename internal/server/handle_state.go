package server

import (
	"log/slog"
	"net/http"

	"github.com/playperu/scoreboard/internal/assets"
	"github.com/playperu/scoreboard/internal/notify"
	"github.com/playperu/scoreboard/internal/roster"
	"github.com/playperu/scoreboard/internal/scoreboard"
	"github.com/playperu/scoreboard/internal/state"
	"github.com/playperu/scoreboard/internal/view"
)

type handlers struct {
	logger   *slog.Logger
	state    *state.Manager
	assets   *assets.Service
	roster   *roster.Service
	notifier *notify.Notifier
	broker   *Broker
}

func newHandlers(logger *slog.Logger, deps Deps) *handlers {
	return &handlers{
		logger:   logger,
		state:    deps.State,
		assets:   deps.Assets,
		roster:   deps.Roster,
		notifier: deps.Notifier,
		broker:   NewBroker(),
	}
}

// respondState is the common tail of every mutation handler.
func (h *handlers) respondState(w http.ResponseWriter, r *http.Request, st scoreboard.MatchState, err error) {
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handlers) handleGetState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := h.state.State(r.Context())
		h.respondState(w, r, st, err)
	}
}

func (h *handlers) handlePutState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var full scoreboard.MatchState
		if err := readJSON(w, r, &full); err != nil {
			h.writeErr(w, r, err)
			return
		}
		st, err := h.state.SetState(r.Context(), full)
		h.respondState(w, r, st, err)
	}
}

func (h *handlers) handlePatchState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var partial map[string]any
		if err := readJSON(w, r, &partial); err != nil {
			h.writeErr(w, r, err)
			return
		}
		st, err := h.state.MergeState(r.Context(), partial)
		h.respondState(w, r, st, err)
	}
}

// ValueResponse carries a single dot-path value.
type ValueResponse struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

func (h *handlers) handleGetValue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		v, err := h.state.Value(r.Context(), path)
		if err != nil {
			h.writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ValueResponse{Path: path, Value: v})
	}
}

func (h *handlers) handlePutValue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ValueResponse
		if err := readJSON(w, r, &req); err != nil {
			h.writeErr(w, r, err)
			return
		}
		st, err := h.state.SetValue(r.Context(), req.Path, req.Value)
		h.respondState(w, r, st, err)
	}
}

// handleGetView returns the latest overlay snapshot, or projects one on
// demand before the feed has produced any.
func (h *handlers) handleGetView() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if data := h.broker.Latest(topicView); data != nil {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			w.Write(data)
			return
		}
		st, err := h.state.State(r.Context())
		if err != nil {
			h.writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view.Project(st, nil))
	}
}

// ResetRequest selects what a reset clears.
type ResetRequest struct {
	// Scope is "match" (default), "scores" or "complete".
	Scope         string `json:"scope"`
	PreserveNames bool   `json:"preserveNames"`
}

func (h *handlers) handleReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResetRequest
		if r.ContentLength != 0 {
			if err := readJSON(w, r, &req); err != nil {
				h.writeErr(w, r, err)
				return
			}
		}

		var (
			st  scoreboard.MatchState
			err error
		)
		switch req.Scope {
		case "", "match":
			st, err = h.state.ResetMatch(r.Context())
		case "scores":
			st, err = h.state.ResetScores(r.Context())
		case "complete":
			st, err = h.state.CompleteReset(r.Context(), req.PreserveNames)
		default:
			writeError(w, http.StatusBadRequest, "scope must be match, scores or complete")
			return
		}
		h.respondState(w, r, st, err)
	}
}

// MatchInfoRequest updates the match-level text fields; absent fields are
// left alone.
type MatchInfoRequest struct {
	InfoTab1    *string `json:"infoTab1,omitempty"`
	InfoTab2    *string `json:"infoTab2,omitempty"`
	ActiveSport *string `json:"activeSport,omitempty"`
}

func (h *handlers) handlePatchMatch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MatchInfoRequest
		if err := readJSON(w, r, &req); err != nil {
			h.writeErr(w, r, err)
			return
		}
		ctx := r.Context()
		st, err := h.state.State(ctx)
		if err == nil && req.InfoTab1 != nil {
			st, err = h.state.SetInfoTab(ctx, 1, *req.InfoTab1)
		}
		if err == nil && req.InfoTab2 != nil {
			st, err = h.state.SetInfoTab(ctx, 2, *req.InfoTab2)
		}
		if err == nil && req.ActiveSport != nil {
			st, err = h.state.SetActiveSport(ctx, *req.ActiveSport)
		}
		h.respondState(w, r, st, err)
	}
}

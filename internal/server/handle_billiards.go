package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

// BallTrackerRequest toggles the tracker or switches game; absent fields are
// left alone.
type BallTrackerRequest struct {
	Enabled  *bool                `json:"enabled,omitempty"`
	GameType *scoreboard.GameType `json:"gameType,omitempty"`
}

func (h *handlers) handlePatchBallTracker() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BallTrackerRequest
		if err := readJSON(w, r, &req); err != nil {
			h.writeErr(w, r, err)
			return
		}
		ctx := r.Context()
		st, err := h.state.State(ctx)
		if err == nil && req.Enabled != nil {
			st, err = h.state.SetBallTrackerEnabled(ctx, *req.Enabled)
		}
		if err == nil && req.GameType != nil {
			st, err = h.state.SetGameType(ctx, *req.GameType)
		}
		h.respondState(w, r, st, err)
	}
}

type BallSetRequest struct {
	Set scoreboard.BallSet `json:"set"`
}

func (h *handlers) handleSetBallSet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BallSetRequest
		if err := readJSON(w, r, &req); err != nil {
			h.writeErr(w, r, err)
			return
		}
		st, err := h.state.SetPlayerBallSet(r.Context(), seatFrom(r), req.Set)
		h.respondState(w, r, st, err)
	}
}

func (h *handlers) handleToggleBall() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ball, err := strconv.Atoi(chi.URLParam(r, "ball"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "ball must be a number")
			return
		}
		st, err := h.state.ToggleBallPocketed(r.Context(), ball)
		h.respondState(w, r, st, err)
	}
}

func (h *handlers) handleClearBalls() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := h.state.ClearPocketedBalls(r.Context())
		h.respondState(w, r, st, err)
	}
}

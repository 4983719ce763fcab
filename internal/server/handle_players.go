package server

import (
	"net/http"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

// AmountRequest is the body of score increments and decrements. A zero
// amount means 1.
type AmountRequest struct {
	Amount int `json:"amount"`
}

func (h *handlers) handleScoreStep(up bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := AmountRequest{Amount: 1}
		if r.ContentLength != 0 {
			if err := readJSON(w, r, &req); err != nil {
				h.writeErr(w, r, err)
				return
			}
			if req.Amount == 0 {
				req.Amount = 1
			}
		}
		n := seatFrom(r)
		var (
			st  scoreboard.MatchState
			err error
		)
		if up {
			st, err = h.state.IncrementScore(r.Context(), n, req.Amount)
		} else {
			st, err = h.state.DecrementScore(r.Context(), n, req.Amount)
		}
		h.respondState(w, r, st, err)
	}
}

type ScoreRequest struct {
	Score int `json:"score"`
}

func (h *handlers) handleSetScore() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScoreRequest
		if err := readJSON(w, r, &req); err != nil {
			h.writeErr(w, r, err)
			return
		}
		st, err := h.state.SetScore(r.Context(), seatFrom(r), req.Score)
		h.respondState(w, r, st, err)
	}
}

// PlayerRequest edits a seat; absent fields are left alone.
type PlayerRequest struct {
	Name         *string             `json:"name,omitempty"`
	Fargo        *string             `json:"fargo,omitempty"`
	Ratings      *scoreboard.Ratings `json:"ratings,omitempty"`
	Color        *string             `json:"color,omitempty"`
	PhotoAssetID *string             `json:"photoAssetId,omitempty"`
	Timeouts     *int                `json:"timeouts,omitempty"`
}

func (h *handlers) handlePatchPlayer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlayerRequest
		if err := readJSON(w, r, &req); err != nil {
			h.writeErr(w, r, err)
			return
		}
		ctx, n := r.Context(), seatFrom(r)

		st, err := h.state.State(ctx)
		if err == nil && req.Name != nil {
			st, err = h.state.SetPlayerName(ctx, n, *req.Name)
		}
		if err == nil && req.Ratings != nil {
			st, err = h.state.SetPlayerRatings(ctx, n, *req.Ratings)
		} else if err == nil && req.Fargo != nil {
			st, err = h.state.SetPlayerFargoInfo(ctx, n, *req.Fargo)
		}
		if err == nil && req.Color != nil {
			st, err = h.state.SetPlayerColor(ctx, n, *req.Color)
		}
		if err == nil && req.PhotoAssetID != nil {
			st, err = h.state.SetPlayerPhoto(ctx, n, *req.PhotoAssetID)
		}
		if err == nil && req.Timeouts != nil {
			st, err = h.state.SetPlayerTimeouts(ctx, n, *req.Timeouts)
		}
		h.respondState(w, r, st, err)
	}
}

func (h *handlers) handleAddExtension() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := h.state.AddPlayerExtension(r.Context(), seatFrom(r))
		h.respondState(w, r, st, err)
	}
}

// handleRemoveExtension takes an extension back; ?refund=true also removes
// its time from the clock.
func (h *handlers) handleRemoveExtension() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refund := r.URL.Query().Get("refund") == "true"
		st, err := h.state.RemovePlayerExtension(r.Context(), seatFrom(r), refund)
		h.respondState(w, r, st, err)
	}
}

package server

import (
	"context"
	"net/http"

	"github.com/playperu/scoreboard/internal/scoreboard"
	"github.com/playperu/scoreboard/internal/state"
)

func (h *handlers) handleClockAction(action func(context.Context, ...state.Option) (scoreboard.MatchState, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := action(r.Context())
		h.respondState(w, r, st, err)
	}
}

// ShotClockRequest changes shot clock settings; absent fields are left alone.
type ShotClockRequest struct {
	Duration          *int `json:"duration,omitempty"`
	ExtensionDuration *int `json:"extensionDuration,omitempty"`
	MaxExtensions     *int `json:"maxExtensions,omitempty"`
	CurrentTime       *int `json:"currentTime,omitempty"`
}

func (h *handlers) handlePatchShotClock() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ShotClockRequest
		if err := readJSON(w, r, &req); err != nil {
			h.writeErr(w, r, err)
			return
		}
		ctx := r.Context()
		st, err := h.state.State(ctx)
		if err == nil && req.Duration != nil {
			st, err = h.state.SetShotClockDuration(ctx, *req.Duration)
		}
		if err == nil && req.ExtensionDuration != nil {
			st, err = h.state.SetExtensionDuration(ctx, *req.ExtensionDuration)
		}
		if err == nil && req.MaxExtensions != nil {
			st, err = h.state.SetMaxExtensions(ctx, *req.MaxExtensions)
		}
		if err == nil && req.CurrentTime != nil {
			st, err = h.state.UpdateShotClockTime(ctx, *req.CurrentTime)
		}
		h.respondState(w, r, st, err)
	}
}

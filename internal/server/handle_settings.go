package server

import (
	"net/http"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

func (h *handlers) handlePutAdvertising() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scoreboard.Advertising
		if err := readJSON(w, r, &req); err != nil {
			h.writeErr(w, r, err)
			return
		}
		st, err := h.state.SetAdvertising(r.Context(), req)
		h.respondState(w, r, st, err)
	}
}

type BackgroundRequest struct {
	Color string `json:"color"`
}

func (h *handlers) handlePutAdsBackground() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BackgroundRequest
		if err := readJSON(w, r, &req); err != nil {
			h.writeErr(w, r, err)
			return
		}
		st, err := h.state.SetAdsBackground(r.Context(), req.Color)
		h.respondState(w, r, st, err)
	}
}

func (h *handlers) handlePutUISettings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scoreboard.UISettings
		if err := readJSON(w, r, &req); err != nil {
			h.writeErr(w, r, err)
			return
		}
		st, err := h.state.SetUISettings(r.Context(), req)
		h.respondState(w, r, st, err)
	}
}

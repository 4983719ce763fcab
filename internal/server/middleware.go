package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

type ctxKey int

const (
	ctxKeySeat ctxKey = iota
	ctxKeySlot
)

// seatMiddleware resolves {player} to seat 1 or 2.
func seatMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(chi.URLParam(r, "player"))
		if err != nil || !scoreboard.ValidPlayer(n) {
			writeError(w, http.StatusBadRequest, scoreboard.ErrInvalidPlayer.Error())
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeySeat, n)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// slotMiddleware rejects unknown logo slot ids.
func slotMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slot := chi.URLParam(r, "slot")
		if !scoreboard.IsLogoSlot(slot) {
			writeError(w, http.StatusNotFound, "unknown logo slot")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeySlot, slot)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func seatFrom(r *http.Request) int {
	return r.Context().Value(ctxKeySeat).(int)
}

func slotFrom(r *http.Request) string {
	return r.Context().Value(ctxKeySlot).(string)
}

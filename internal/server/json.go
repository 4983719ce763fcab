package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

// maxJSONBody bounds request bodies outside of uploads.
const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", scoreboard.ErrInvalidArgument, err)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, scoreboard.ErrInvalidPlayer), errors.Is(err, scoreboard.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, scoreboard.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, scoreboard.ErrBlocked):
		return http.StatusConflict
	case errors.Is(err, scoreboard.ErrUploadRejected):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeErr answers with the status for err. Server-side failures are
// logged and their detail kept out of the response.
func (h *handlers) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

// Package health serves /healthz for the scoreboard service.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// Checker verifies that an infrastructure dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a func to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

type Handler struct {
	checks   map[string]Checker
	optional map[string]bool
	logger   *slog.Logger
}

// NewHandler checks every entry of checks. A failing check named in optional
// degrades the report without failing it: the overlay keeps working on the
// live query when broadcasting is down.
func NewHandler(logger *slog.Logger, checks map[string]Checker, optional ...string) *Handler {
	opt := make(map[string]bool, len(optional))
	for _, name := range optional {
		opt[name] = true
	}
	return &Handler{checks: checks, optional: opt, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.check)
	return r
}

type Result struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// Report is the /healthz response body.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]Result `json:"checks"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var mu sync.Mutex
	report := Report{Status: "ok", Checks: make(map[string]Result, len(h.checks))}

	var g errgroup.Group
	for name, c := range h.checks {
		g.Go(func() error {
			start := time.Now()
			err := c.Check(ctx)
			res := Result{Status: "ok", LatencyMS: time.Since(start).Milliseconds()}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				h.logger.Error("health check failed", "name", name, "error", err)
				res.Status, res.Error = "error", err.Error()
				switch {
				case !h.optional[name]:
					report.Status = "error"
				case report.Status == "ok":
					report.Status = "degraded"
				}
			}
			report.Checks[name] = res
			return nil
		})
	}
	g.Wait()

	status := http.StatusOK
	if report.Status == "error" {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(report)
}

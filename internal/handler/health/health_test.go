package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/playperu/scoreboard/internal/handler/health"
)

type mockChecker struct{ err error }

func (m mockChecker) Check(_ context.Context) error { return m.err }

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]health.Checker
		wantStatus int
		wantReport string
		wantChecks map[string]string
	}{
		{
			name: "all healthy",
			checks: map[string]health.Checker{
				"sqlite":    mockChecker{},
				"broadcast": mockChecker{},
			},
			wantStatus: http.StatusOK,
			wantReport: "ok",
			wantChecks: map[string]string{"sqlite": "ok", "broadcast": "ok"},
		},
		{
			name: "sqlite down",
			checks: map[string]health.Checker{
				"sqlite":    mockChecker{err: errors.New("locked")},
				"broadcast": mockChecker{},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantReport: "error",
			wantChecks: map[string]string{"sqlite": "error", "broadcast": "ok"},
		},
		{
			name: "broadcast down is degraded",
			checks: map[string]health.Checker{
				"sqlite":    mockChecker{},
				"broadcast": mockChecker{err: errors.New("refused")},
			},
			wantStatus: http.StatusOK,
			wantReport: "degraded",
			wantChecks: map[string]string{"sqlite": "ok", "broadcast": "error"},
		},
		{
			name: "both down",
			checks: map[string]health.Checker{
				"sqlite":    mockChecker{err: errors.New("db")},
				"broadcast": health.CheckerFunc(func(context.Context) error { return errors.New("nats") }),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantReport: "error",
			wantChecks: map[string]string{"sqlite": "error", "broadcast": "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.NewHandler(slog.Default(), tt.checks, "broadcast")

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body health.Report
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if body.Status != tt.wantReport {
				t.Errorf("report status = %q, want %q", body.Status, tt.wantReport)
			}
			for name, want := range tt.wantChecks {
				if got := body.Checks[name].Status; got != want {
					t.Errorf("%s status = %q, want %q", name, got, want)
				}
			}
		})
	}
}

package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mixzter/duel/internal/database"
	"github.com/mixzter/duel/internal/handler/health"
)

type mockChecker struct{ err error }

func (m mockChecker) Check(_ context.Context) error { return m.err }

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func serve(t *testing.T, checks map[string]health.Checker) (int, map[string]struct{ Status string }) {
	t.Helper()
	h := health.NewHandler(quiet, checks)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	var body map[string]struct{ Status string }
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return rec.Code, body
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]health.Checker
		wantStatus int
		wantBody   map[string]string
	}{
		{
			name:       "store healthy",
			checks:     map[string]health.Checker{"sqlite": mockChecker{}},
			wantStatus: http.StatusOK,
			wantBody:   map[string]string{"sqlite": "ok"},
		},
		{
			name:       "store down",
			checks:     map[string]health.Checker{"sqlite": mockChecker{err: errors.New("locked")}},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   map[string]string{"sqlite": "error"},
		},
		{
			name: "one of two down",
			checks: map[string]health.Checker{
				"sqlite": mockChecker{},
				"redis":  mockChecker{err: errors.New("refused")},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   map[string]string{"sqlite": "ok", "redis": "error"},
		},
		{
			name: "check func",
			checks: map[string]health.Checker{
				"catalog": health.CheckFunc(func(context.Context) error { return nil }),
			},
			wantStatus: http.StatusOK,
			wantBody:   map[string]string{"catalog": "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := serve(t, tt.checks)

			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			for name, want := range tt.wantBody {
				if got := body[name].Status; got != want {
					t.Errorf("%s status = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestRealDependencies(t *testing.T) {
	// Real SQLite in-memory DB and a Redis client pointed at a closed port.
	db, err := database.Open(context.Background(), database.Memory)
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:        "localhost:1",
		DialTimeout: 10 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	status, body := serve(t, map[string]health.Checker{
		"sqlite": health.CheckFunc(db.PingContext),
		"redis":  health.CheckFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
	})

	if status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", status)
	}
	if body["sqlite"].Status != "ok" || body["redis"].Status != "error" {
		t.Errorf("body = %+v", body)
	}
}

package api

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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadinessHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: connection refused") }

	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus int
		wantBody   ReadinessResponse
	}{
		{
			name:       "no checks",
			checks:     nil,
			wantStatus: http.StatusOK,
			wantBody:   ReadinessResponse{Status: "ok"},
		},
		{
			name:       "all checks pass",
			checks:     map[string]CheckFunc{"redis": ok, "postgres": ok},
			wantStatus: http.StatusOK,
			wantBody: ReadinessResponse{
				Status: "ok",
				Checks: map[string]string{"redis": "ok", "postgres": "ok"},
			},
		},
		{
			name:       "one check fails",
			checks:     map[string]CheckFunc{"redis": down, "postgres": ok},
			wantStatus: http.StatusServiceUnavailable,
			wantBody: ReadinessResponse{
				Status: "unavailable",
				Checks: map[string]string{"redis": "unavailable", "postgres": "ok"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewReadinessHandler(tt.checks, time.Second, logger)
			rec := httptest.NewRecorder()

			h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var got ReadinessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.wantBody, got)
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}

func TestReadinessHandler_CheckTimeout(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	slow := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	h := NewReadinessHandler(map[string]CheckFunc{"slow": slow}, 10*time.Millisecond, logger)
	rec := httptest.NewRecorder()

	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

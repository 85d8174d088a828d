package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"github.com/chelorossi/backend-challenge/internal/api/shared"
	"github.com/chelorossi/backend-challenge/internal/platform/logger"
)

func TestTraceMiddleware(t *testing.T) {
	log, buf := logger.NewTestLogger(t)

	var seenTrace string
	handler := TraceMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenTrace = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tasks", nil))

	assert.Len(t, seenTrace, 32)
	assert.Equal(t, seenTrace, rec.Header().Get(TraceHeader))

	started := logger.RequireEntry(t, buf, "request started")
	assert.Equal(t, seenTrace, started["trace_id"])
	assert.Equal(t, http.MethodPost, started["method"])

	inside := logger.RequireEntry(t, buf, "inside handler")
	assert.Equal(t, seenTrace, inside["trace_id"])
}

func TestTraceMiddlewareReusesRequestID(t *testing.T) {
	log, buf := logger.NewTestLogger(t)

	var seenTrace string
	handler := chimw.RequestID(TraceMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenTrace = shared.GetTraceID(r.Context())
	})))

	req := httptest.NewRequest(http.MethodPost, "/tasks", nil)
	req.Header.Set(chimw.RequestIDHeader, "upstream-id-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "upstream-id-42", seenTrace)
	assert.Equal(t, "upstream-id-42", rec.Header().Get(TraceHeader))
	assert.Equal(t, "upstream-id-42", logger.RequireEntry(t, buf, "request started")["trace_id"])
}

package api

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/chelorossi/backend-challenge/internal/api/shared"
	"github.com/chelorossi/backend-challenge/internal/platform/logger"
)

// CheckFunc reports whether a dependency is reachable.
type CheckFunc func(ctx context.Context) error

// ReadinessResponse is the body of GET /ready.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ReadinessHandler runs a named set of dependency checks.
type ReadinessHandler struct {
	checks  map[string]CheckFunc
	timeout time.Duration
	logger  *slog.Logger
}

// NewReadinessHandler creates a ReadinessHandler. Each check gets timeout to
// answer; a non-positive timeout means two seconds.
func NewReadinessHandler(checks map[string]CheckFunc, timeout time.Duration, logger *slog.Logger) *ReadinessHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ReadinessHandler{
		checks:  checks,
		timeout: timeout,
		logger:  logger.With("component", "readiness"),
	}
}

// Ready handles GET /ready. It answers 200 when every check passes and 503
// otherwise, listing each check's outcome.
func (h *ReadinessHandler) Ready(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := ReadinessResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		err := h.checks[name](ctx)
		cancel()

		if err != nil {
			log.Warn("readiness check failed", "check", name, "error", err)
			resp.Status = "unavailable"
			resp.Checks[name] = "unavailable"
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	shared.RespondWithJSON(w, r, status, resp)
}

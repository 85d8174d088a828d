package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/chelorossi/backend-challenge/internal/api/shared"
	"github.com/chelorossi/backend-challenge/internal/domain"
	"github.com/chelorossi/backend-challenge/internal/platform/logger"
	"github.com/google/uuid"
)

// TaskSubmitter queues validated tasks. It is satisfied by *task.Producer.
type TaskSubmitter interface {
	Submit(ctx context.Context, t domain.Task) (uuid.UUID, error)
}

// TaskHandler handles task submission requests.
type TaskHandler struct {
	producer     TaskSubmitter
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewTaskHandler creates a TaskHandler. A nil producer makes every
// submission fail with a server configuration error.
func NewTaskHandler(producer TaskSubmitter, maxBodyBytes int64, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		producer:     producer,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.With("component", "task_handler"),
	}
}

// CreateTask handles POST /tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if h.producer == nil {
		HandleAPIError(w, r, errNotConfigured)
		return
	}

	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, err)
		return
	}

	t, err := domain.ValidateSubmission(req.Submission())
	if err != nil {
		log.Debug("task submission rejected", "error", err)
		HandleAPIError(w, r, err)
		return
	}

	taskID, err := h.producer.Submit(r.Context(), t)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	log.Info("task submission accepted",
		"task_id", taskID,
		"priority", t.Priority)

	shared.RespondWithJSON(w, r, http.StatusOK, CreateTaskResponse{
		TaskID:  taskID,
		Message: msgTaskCreated,
	})
}

// Health handles GET /health.
func Health(w http.ResponseWriter, _ *http.Request) {
	shared.RespondWithText(w, http.StatusOK, msgHealthResponse)
}

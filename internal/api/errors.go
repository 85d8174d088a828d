package api

import (
	"errors"
	"net/http"

	"github.com/chelorossi/backend-challenge/internal/api/shared"
	"github.com/chelorossi/backend-challenge/internal/domain"
	"github.com/chelorossi/backend-challenge/internal/task"
)

// Client-facing messages
const (
	msgBodyRequired   = "Request body is required"
	msgInvalidJSON    = "Invalid JSON"
	msgBodyTooLarge   = "Request body too large"
	msgQueueFailure   = "Failed to queue task for processing"
	msgNotConfigured  = "Server configuration error"
	msgUnexpected     = "An unexpected error occurred"
	msgTaskCreated    = "Task created successfully"
	msgHealthResponse = "OK"
)

// errNotConfigured is reported when the handler has no producer.
var errNotConfigured = errors.New("task producer is not configured")

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, shared.ErrEmptyBody),
		errors.Is(err, shared.ErrInvalidJSON),
		errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest

	case errors.Is(err, shared.ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-safe message for err. Validation
// errors are returned verbatim since they only describe the submission.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return msgUnexpected
	}

	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return validationErr.Error()
	case errors.Is(err, shared.ErrEmptyBody):
		return msgBodyRequired
	case errors.Is(err, shared.ErrInvalidJSON):
		return msgInvalidJSON
	case errors.Is(err, shared.ErrBodyTooLarge):
		return msgBodyTooLarge
	case errors.Is(err, task.ErrPublish):
		return msgQueueFailure
	case errors.Is(err, errNotConfigured):
		return msgNotConfigured
	default:
		return msgUnexpected
	}
}

// HandleAPIError writes the mapped status and safe message for err and logs
// the details.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatusCode(err)

	var opts []shared.ResponseOption
	if status == http.StatusRequestEntityTooLarge {
		opts = append(opts, shared.WithElevatedLogLevel())
	}

	shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err, opts...)
}

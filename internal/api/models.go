package api

import (
	"github.com/chelorossi/backend-challenge/internal/domain"
	"github.com/google/uuid"
)

// CreateTaskRequest is the body of POST /tasks.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`
}

// Submission converts the request into a domain submission.
func (r CreateTaskRequest) Submission() domain.Submission {
	return domain.Submission{
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		DueDate:     r.DueDate,
	}
}

// CreateTaskResponse is returned when a task was queued.
type CreateTaskResponse struct {
	TaskID  uuid.UUID `json:"task_id"`
	Message string    `json:"message"`
}

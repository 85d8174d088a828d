package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Field limits for task submissions
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
)

// dueDateLayouts are the accepted ISO 8601 forms: a date, optionally
// followed by "T" or a space and a time with or without seconds, optionally
// followed by "Z" or a numeric offset. Fractional seconds are accepted after
// the seconds field. Layouts without a zone are interpreted as UTC.
var dueDateLayouts = buildDueDateLayouts()

func buildDueDateLayouts() []string {
	layouts := make([]string, 0, 13)
	for _, sep := range []string{"T", " "} {
		for _, clock := range []string{"15:04:05", "15:04"} {
			for _, zone := range []string{"Z07:00", "-0700", ""} {
				layouts = append(layouts, "2006-01-02"+sep+clock+zone)
			}
		}
	}
	return append(layouts, "2006-01-02")
}

// Submission is the raw, caller-supplied form of a task.
type Submission struct {
	Title       string `json:"title"       validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Priority    string `json:"priority"    validate:"required,oneof=low medium high"`
	DueDate     string `json:"due_date"    validate:"omitempty,iso8601"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so messages match the request body
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("iso8601", func(fl validator.FieldLevel) bool {
		_, err := ParseDueDate(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(fmt.Sprintf("register iso8601 validation: %v", err))
	}

	return v
}

// Normalize returns a copy of s with surrounding whitespace removed from every
// field. Priority matching stays case-sensitive.
func (s Submission) Normalize() Submission {
	return Submission{
		Title:       strings.TrimSpace(s.Title),
		Description: strings.TrimSpace(s.Description),
		Priority:    strings.TrimSpace(s.Priority),
		DueDate:     strings.TrimSpace(s.DueDate),
	}
}

// ValidateSubmission normalizes and validates a raw submission and, only when
// it is well formed, returns a new Task with a freshly generated ID.
// It performs no I/O; the same input always yields the same validation outcome.
func ValidateSubmission(raw Submission) (Task, error) {
	sub := raw.Normalize()

	if err := validate.Struct(sub); err != nil {
		return Task{}, toValidationError(err)
	}

	var due *time.Time
	if sub.DueDate != "" {
		// Already checked by the iso8601 rule
		parsed, _ := ParseDueDate(sub.DueDate)
		due = &parsed
	}

	return Task{
		ID:          uuid.New(),
		Title:       sub.Title,
		Description: sub.Description,
		Priority:    Priority(sub.Priority),
		DueDate:     due,
	}, nil
}

// ParseDueDate parses an ISO 8601 timestamp into UTC. A trailing "Z" and
// numeric offsets are both accepted; values without a zone are treated as UTC.
func ParseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDueDate
	}

	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDueDate, s)
}

// toValidationError converts validator output into a client-safe ValidationError.
func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewValidationError("body", "is invalid")
	}

	problems := make([]FieldProblem, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, FieldProblem{
			Field:   fe.Field(),
			Message: problemMessage(fe),
		})
	}
	return &ValidationError{Problems: problems}
}

func problemMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "iso8601":
		return "must be a valid ISO 8601 timestamp"
	default:
		return "is invalid"
	}
}

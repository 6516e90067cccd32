package tracker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/taskboard/tracker-core/internal/core/domain"
	"github.com/taskboard/tracker-core/internal/core/ports"
)

// ProjectDraft is the client-side project payload, validated before any
// optimistic apply.
type ProjectDraft struct {
	Name        string `validate:"required"`
	Description string
	StartDate   string `validate:"omitempty,datetime=2006-01-02"`
	EndDate     string `validate:"omitempty,datetime=2006-01-02"`
}

func (d ProjectDraft) project() domain.Project {
	return domain.Project{
		Name:        d.Name,
		Description: d.Description,
		StartDate:   d.StartDate,
		EndDate:     d.EndDate,
	}
}

// TaskDraft is the client-side task payload.
type TaskDraft struct {
	Title       string            `validate:"required"`
	Description string
	Status      domain.TaskStatus `validate:"omitempty,oneof=todo in_progress done blocked"`
	ProjectID   int64             `validate:"required"`
	AssigneeID  *int64
	DueDate     *string `validate:"omitempty,datetime=2006-01-02"`
}

func (d TaskDraft) task() domain.Task {
	status := d.Status
	if status == "" {
		status = domain.StatusTodo
	}
	return domain.Task{
		Title:       d.Title,
		Description: d.Description,
		Status:      status,
		ProjectID:   d.ProjectID,
		AssigneeID:  d.AssigneeID,
		DueDate:     d.DueDate,
	}
}

// checkStruct runs validator tags over v and converts failures into the
// field-level Validation error the forms expect.
func (c *Client) checkStruct(v any) error {
	err := c.validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[strings.ToLower(fe.Field())] = fieldError(fe)
		}
		return ports.ValidationErr(fields)
	}
	return ports.UnknownErr(0, err)
}

// fieldError converts a single ValidationError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date in %s format", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

// fieldErr builds a single-field Validation error for checks the tag
// language cannot express (referential and date-range invariants). cause is
// carried so callers can still match the domain sentinel with errors.Is.
func fieldErr(field string, cause error) error {
	return &ports.RemoteError{
		Kind:   ports.KindValidation,
		Fields: map[string]string{field: cause.Error()},
		Status: 422,
		Err:    cause,
	}
}

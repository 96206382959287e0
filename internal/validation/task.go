// Package validation checks task input at the API boundary, before it
// reaches the task service.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/St1cky1/tasklist/internal/entity"
	"github.com/go-playground/validator/v10"
)

const dateLayout = time.DateOnly

type CreateTaskRequest struct {
	Title       string  `json:"title" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Category    string  `json:"category" validate:"required,category"`
	DueDate     string  `json:"due_date" validate:"omitempty,datetime=2006-01-02,notpast"`
}

// UpdateTaskRequest accepts a category for symmetry with create, but the
// task service never changes it.
type UpdateTaskRequest struct {
	Title       string  `json:"title" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Category    string  `json:"category" validate:"omitempty,category"`
	DueDate     string  `json:"due_date" validate:"omitempty,datetime=2006-01-02,notpast"`
}

// Errors maps JSON field names to messages.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e Errors) Unwrap() error { return entity.ErrInvalidTaskData }

var messages = map[string]string{
	"required": "The field '%s' is required.",
	"max":      "The field '%s' must be no longer than %s characters.",
	"category": "The field '%s' must be one of %s.",
	"datetime": "The field '%s' must be a date formatted as YYYY-MM-DD.",
	"notpast":  "The field '%s' cannot be in the past.",
}

type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// New builds a validator; now decides what "today" is for due dates.
func New(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	v := &Validator{validate: validator.New(validator.WithRequiredStructEnabled()), now: now}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return entity.Category(fl.Field().String()).Valid()
	})
	_ = v.validate.RegisterValidation("notpast", v.notPast)

	return v
}

func (v *Validator) notPast(fl validator.FieldLevel) bool {
	due, err := time.Parse(dateLayout, fl.Field().String())
	if err != nil {
		// format errors are reported by the datetime tag
		return true
	}
	y, m, d := v.now().UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return !due.Before(today)
}

// Struct normalises and validates a request in place.
func (v *Validator) Struct(req any) error {
	switch r := req.(type) {
	case *CreateTaskRequest:
		r.Title, r.Description = normalise(r.Title, r.Description)
		r.Category = strings.TrimSpace(r.Category)
		r.DueDate = strings.TrimSpace(r.DueDate)
	case *UpdateTaskRequest:
		r.Title, r.Description = normalise(r.Title, r.Description)
		r.Category = strings.TrimSpace(r.Category)
		r.DueDate = strings.TrimSpace(r.DueDate)
	}

	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate request: %w", err)
	}

	out := make(Errors, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	msg, ok := messages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("Field '%s' is invalid: %s", fe.Field(), fe.Tag())
	}
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf(msg, fe.Field(), fe.Param())
	case "category":
		return fmt.Sprintf(msg, fe.Field(), categoryList())
	default:
		return fmt.Sprintf(msg, fe.Field())
	}
}

func categoryList() string {
	names := make([]string, 0, len(entity.Categories))
	for _, c := range entity.Categories {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

// normalise blanks a whitespace-only title and drops a blank description.
func normalise(title string, description *string) (string, *string) {
	if strings.TrimSpace(title) == "" {
		title = ""
	}
	if description == nil || strings.TrimSpace(*description) == "" {
		return title, nil
	}
	return title, description
}

// ToTask converts a validated request into a task owned by userID.
func (r *CreateTaskRequest) ToTask(userID string) *entity.Task {
	return &entity.Task{
		Title:       r.Title,
		Description: r.Description,
		UserID:      userID,
		Category:    entity.Category(r.Category),
		DueDate:     parseDate(r.DueDate),
	}
}

// ToTask converts a validated request into an update of task id. The owner
// is always the caller.
func (r *UpdateTaskRequest) ToTask(id int, userID string) *entity.Task {
	return &entity.Task{
		ID:          id,
		Title:       r.Title,
		Description: r.Description,
		UserID:      userID,
		Category:    entity.Category(r.Category),
		DueDate:     parseDate(r.DueDate),
	}
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &d
}

package entity

import (
	"math"
	"time"
)

type Category string

const (
	CategoryWork     Category = "Work"
	CategoryPersonal Category = "Personal"
	CategoryShopping Category = "Shopping"
	CategoryHealth   Category = "Health"
	CategoryOther    Category = "Other"
)

// Categories is the closed set a task category must belong to.
var Categories = []Category{
	CategoryWork,
	CategoryPersonal,
	CategoryShopping,
	CategoryHealth,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Filter is the completion status predicate of a listing request.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterCompleted  Filter = "completed"
	FilterIncomplete Filter = "incomplete"
)

// ParseFilter never fails: anything other than the exact lower-case names,
// including "Completed" or " completed", lists all tasks.
func ParseFilter(s string) Filter {
	switch Filter(s) {
	case FilterCompleted:
		return FilterCompleted
	case FilterIncomplete:
		return FilterIncomplete
	default:
		return FilterAll
	}
}

// MaxTaskID is the largest id a task can have; ids are stored as 32-bit
// serials.
const MaxTaskID = math.MaxInt32

// ValidTaskID reports whether id can name a stored task.
func ValidTaskID(id int) bool {
	return id > 0 && id <= MaxTaskID
}

type Task struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	IsCompleted bool       `json:"is_completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UserID      string     `json:"user_id"`
	Category    Category   `json:"category"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// Snapshot is the flat form of a task used in audit payloads.
func (t *Task) Snapshot() map[string]any {
	values := map[string]any{
		"title":        t.Title,
		"description":  t.Description,
		"is_completed": t.IsCompleted,
		"category":     t.Category,
		"user_id":      t.UserID,
	}
	if t.DueDate != nil {
		values["due_date"] = t.DueDate.Format(time.DateOnly)
	} else {
		values["due_date"] = nil
	}
	return values
}

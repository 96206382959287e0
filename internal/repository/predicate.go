package repository

import (
	"strings"

	"github.com/St1cky1/tasklist/internal/entity"
)

// Writable task columns. Update only accepts these.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldDueDate     = "due_date"
	FieldIsCompleted = "is_completed"
)

var writableFields = map[string]bool{
	FieldTitle:       true,
	FieldDescription: true,
	FieldDueDate:     true,
	FieldIsCompleted: true,
}

// TaskPredicate describes which task rows a query may see. It can only be
// built through OwnedBy, so every read carries an owner.
type TaskPredicate struct {
	userID string
	id     int
	byID   bool
	status entity.Filter
	search string
}

// OwnedBy restricts a query to the tasks of a single user.
func OwnedBy(userID string) TaskPredicate {
	return TaskPredicate{userID: userID, status: entity.FilterAll}
}

func (p TaskPredicate) WithID(id int) TaskPredicate {
	p.id = id
	p.byID = true
	return p
}

func (p TaskPredicate) WithStatus(f entity.Filter) TaskPredicate {
	p.status = entity.ParseFilter(string(f))
	return p
}

// WithSearch keeps the search lower-cased; a blank string disables it.
func (p TaskPredicate) WithSearch(search string) TaskPredicate {
	p.search = strings.ToLower(strings.TrimSpace(search))
	return p
}

func (p TaskPredicate) Owner() string         { return p.userID }
func (p TaskPredicate) Status() entity.Filter { return p.status }
func (p TaskPredicate) Search() string        { return p.search }

func (p TaskPredicate) ID() (int, bool) { return p.id, p.byID }

// Matches evaluates the predicate in process.
func (p TaskPredicate) Matches(t *entity.Task) bool {
	if t == nil || t.UserID != p.userID {
		return false
	}
	if p.byID && t.ID != p.id {
		return false
	}
	switch p.status {
	case entity.FilterCompleted:
		if !t.IsCompleted {
			return false
		}
	case entity.FilterIncomplete:
		if t.IsCompleted {
			return false
		}
	}
	if p.search == "" {
		return true
	}
	if strings.Contains(strings.ToLower(t.Title), p.search) {
		return true
	}
	return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), p.search)
}

package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/St1cky1/tasklist/internal/entity"
)

// MemoryTaskRepository keeps tasks in process, in insertion order.
type MemoryTaskRepository struct {
	mu     sync.RWMutex
	tasks  []*entity.Task
	nextID int
}

func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{nextID: 1}
}

func (r *MemoryTaskRepository) Find(_ context.Context, pred TaskPredicate) ([]entity.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []entity.Task{}
	for _, t := range r.tasks {
		if pred.Matches(t) {
			result = append(result, cloneTask(t))
		}
	}
	slices.SortStableFunc(result, func(a, b entity.Task) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return result, nil
}

func (r *MemoryTaskRepository) Insert(_ context.Context, task *entity.Task) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := cloneTask(task)
	stored.ID = r.nextID
	r.nextID++
	r.tasks = append(r.tasks, &stored)
	return stored.ID, nil
}

func (r *MemoryTaskRepository) Update(_ context.Context, task *entity.Task, fields ...string) error {
	values, err := fieldValues(task, fields)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.lookup(task)
	if stored == nil {
		return nil
	}
	src := cloneTask(task)
	for _, fv := range values {
		switch fv.column {
		case FieldTitle:
			stored.Title = src.Title
		case FieldDescription:
			stored.Description = src.Description
		case FieldDueDate:
			stored.DueDate = src.DueDate
		case FieldIsCompleted:
			stored.IsCompleted = src.IsCompleted
		}
	}
	return nil
}

func (r *MemoryTaskRepository) Delete(_ context.Context, task *entity.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks = slices.DeleteFunc(r.tasks, func(t *entity.Task) bool {
		return t.ID == task.ID && t.UserID == task.UserID
	})
	return nil
}

func (r *MemoryTaskRepository) lookup(task *entity.Task) *entity.Task {
	for _, t := range r.tasks {
		if t.ID == task.ID && t.UserID == task.UserID {
			return t
		}
	}
	return nil
}

// cloneTask copies pointer fields so callers never share storage.
func cloneTask(t *entity.Task) entity.Task {
	c := *t
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	return c
}

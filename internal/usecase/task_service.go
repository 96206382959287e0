package usecase

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/St1cky1/tasklist/internal/entity"
	"github.com/St1cky1/tasklist/internal/repository"
)

// AuditPublisher receives a message for every mutation that hit a task.
type AuditPublisher interface {
	PublishAuditMessage(ctx context.Context, message *entity.AuditMessage) error
}

type Option func(*TaskService)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) { s.now = now }
}

// WithAuditPublisher enables the audit feed.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *TaskService) { s.audit = p }
}

// TaskService answers task queries and applies mutations, always on behalf
// of one user. A task owned by someone else is treated as absent.
type TaskService struct {
	taskRepo repository.ITaskRepository
	audit    AuditPublisher
	now      func() time.Time
}

func NewTaskService(taskRepo repository.ITaskRepository, opts ...Option) *TaskService {
	s := &TaskService{
		taskRepo: taskRepo,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListForUser returns the user's tasks matching filter and search, newest first.
func (s *TaskService) ListForUser(ctx context.Context, userID string, filter entity.Filter, search string) ([]entity.Task, error) {
	pred := repository.OwnedBy(userID).
		WithStatus(filter).
		WithSearch(search)

	tasks, err := s.taskRepo.Find(ctx, pred)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if tasks == nil {
		return []entity.Task{}, nil
	}

	slices.SortStableFunc(tasks, func(a, b entity.Task) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return tasks, nil
}

// GetByID reports found=false both for a missing id and for another user's task.
func (s *TaskService) GetByID(ctx context.Context, id int, userID string) (*entity.Task, bool, error) {
	tasks, err := s.taskRepo.Find(ctx, repository.OwnedBy(userID).WithID(id))
	if err != nil {
		return nil, false, fmt.Errorf("get task %d: %w", id, err)
	}
	if len(tasks) == 0 {
		return nil, false, nil
	}
	task := tasks[0]
	return &task, true, nil
}

// Create stores a new task for task.UserID. Input is assumed validated.
func (s *TaskService) Create(ctx context.Context, task *entity.Task) (*entity.Task, error) {
	created := *task
	created.ID = 0
	created.IsCompleted = false
	created.CreatedAt = s.now().UTC()

	id, err := s.taskRepo.Insert(ctx, &created)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	created.ID = id

	s.sendAuditMessage(ctx, entity.ActionCreate, &created, nil, &created)
	return &created, nil
}

// Update copies title, description and due date onto the caller's own task.
// Category, completion, creation time and owner are left alone. A task the
// caller does not own is silently skipped.
func (s *TaskService) Update(ctx context.Context, task *entity.Task) error {
	existing, found, err := s.GetByID(ctx, task.ID, task.UserID)
	if err != nil || !found {
		return err
	}

	old := *existing
	existing.Title = task.Title
	existing.Description = task.Description
	existing.DueDate = task.DueDate

	err = s.taskRepo.Update(ctx, existing,
		repository.FieldTitle,
		repository.FieldDescription,
		repository.FieldDueDate,
	)
	if err != nil {
		return fmt.Errorf("update task %d: %w", task.ID, err)
	}

	s.sendAuditMessage(ctx, entity.ActionUpdate, existing, &old, existing)
	return nil
}

// Delete removes the caller's task permanently; unknown ids are ignored.
func (s *TaskService) Delete(ctx context.Context, id int, userID string) error {
	existing, found, err := s.GetByID(ctx, id, userID)
	if err != nil || !found {
		return err
	}

	if err := s.taskRepo.Delete(ctx, existing); err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}

	s.sendAuditMessage(ctx, entity.ActionDelete, existing, existing, nil)
	return nil
}

// ToggleComplete flips the completion flag of the caller's task.
func (s *TaskService) ToggleComplete(ctx context.Context, id int, userID string) error {
	existing, found, err := s.GetByID(ctx, id, userID)
	if err != nil || !found {
		return err
	}

	old := *existing
	existing.IsCompleted = !existing.IsCompleted

	if err := s.taskRepo.Update(ctx, existing, repository.FieldIsCompleted); err != nil {
		return fmt.Errorf("toggle task %d: %w", id, err)
	}

	s.sendAuditMessage(ctx, entity.ActionToggle, existing, &old, existing)
	return nil
}

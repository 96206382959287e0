package repository

import (
	"context"

	"github.com/St1cky1/tasklist/internal/entity"
)

// ITaskRepository is the storage contract of the task engine. Find returns
// rows newest first, ties in insertion order. Update and Delete address the
// row by both id and owner of the given task.
type ITaskRepository interface {
	Find(ctx context.Context, pred TaskPredicate) ([]entity.Task, error)
	Insert(ctx context.Context, task *entity.Task) (int, error)
	Update(ctx context.Context, task *entity.Task, fields ...string) error
	Delete(ctx context.Context, task *entity.Task) error
}

// ITaskAuditRepository - интерфейс для TaskAuditRepository
type ITaskAuditRepository interface {
	Create(ctx context.Context, audit *entity.TaskAudit) error
}

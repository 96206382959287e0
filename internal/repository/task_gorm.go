package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/St1cky1/tasklist/internal/entity"
	"gorm.io/gorm"
)

// taskRow is the GORM model of the tasks table.
type taskRow struct {
	ID          int       `gorm:"primaryKey;autoIncrement"`
	Title       string    `gorm:"size:100;not null"`
	Description *string   `gorm:"size:500"`
	IsCompleted bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"not null;index:idx_tasks_user_created,priority:2"`
	UserID      string    `gorm:"not null;index:idx_tasks_user_created,priority:1"`
	Category    string    `gorm:"size:32;not null"`
	DueDate     *time.Time
}

func (taskRow) TableName() string { return "tasks" }

func (row taskRow) toEntity() entity.Task {
	return entity.Task{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		IsCompleted: row.IsCompleted,
		CreatedAt:   row.CreatedAt,
		UserID:      row.UserID,
		Category:    entity.Category(row.Category),
		DueDate:     row.DueDate,
	}
}

// GormTaskRepository stores tasks through GORM, used with SQLite.
type GormTaskRepository struct {
	db *gorm.DB
}

func NewGormTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

// AutoMigrate creates or updates the tasks table.
func (r *GormTaskRepository) AutoMigrate() error {
	if err := r.db.AutoMigrate(&taskRow{}); err != nil {
		return fmt.Errorf("failed to migrate tasks: %w", err)
	}
	return nil
}

func (r *GormTaskRepository) Find(ctx context.Context, pred TaskPredicate) ([]entity.Task, error) {
	q := r.db.WithContext(ctx).Model(&taskRow{}).Where("user_id = ?", pred.userID)
	if pred.byID {
		q = q.Where("id = ?", pred.id)
	}
	switch pred.status {
	case entity.FilterCompleted:
		q = q.Where("is_completed = ?", true)
	case entity.FilterIncomplete:
		q = q.Where("is_completed = ?", false)
	}

	var rows []taskRow
	if err := q.Order("created_at DESC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find tasks: %w", err)
	}

	// SQLite's lower() folds ASCII only, so search runs on the loaded rows.
	tasks := make([]entity.Task, 0, len(rows))
	for _, row := range rows {
		task := row.toEntity()
		if pred.Matches(&task) {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (r *GormTaskRepository) Insert(ctx context.Context, task *entity.Task) (int, error) {
	row := taskRow{
		Title:       task.Title,
		Description: task.Description,
		IsCompleted: task.IsCompleted,
		CreatedAt:   task.CreatedAt,
		UserID:      task.UserID,
		Category:    string(task.Category),
		DueDate:     task.DueDate,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("failed to create task: %w", err)
	}
	return row.ID, nil
}

func (r *GormTaskRepository) Update(ctx context.Context, task *entity.Task, fields ...string) error {
	values, err := fieldValues(task, fields)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	// A map is used so nil description and due date are written as NULL.
	updates := make(map[string]any, len(values))
	for _, fv := range values {
		updates[fv.column] = fv.value
	}

	err = r.db.WithContext(ctx).
		Model(&taskRow{}).
		Where("id = ? AND user_id = ?", task.ID, task.UserID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update task %d: %w", task.ID, err)
	}
	return nil
}

func (r *GormTaskRepository) Delete(ctx context.Context, task *entity.Task) error {
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", task.ID, task.UserID).
		Delete(&taskRow{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete task %d: %w", task.ID, err)
	}
	return nil
}

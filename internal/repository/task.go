package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/St1cky1/tasklist/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `id, title, description, is_completed, created_at, user_id, category, due_date`

// TaskRepository stores tasks in Postgres.
type TaskRepository struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{
		db: db,
	}
}

func (r *TaskRepository) Find(ctx context.Context, pred TaskPredicate) ([]entity.Task, error) {
	where, args := pred.postgresWhere()
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + where + ` ORDER BY created_at DESC, id ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}

	scanned, err := pgx.CollectRows(rows, scanTask)
	if err != nil {
		return nil, fmt.Errorf("scan tasks: %w", err)
	}

	// Search is folded in Go; lower() is ASCII-only under the C collation.
	tasks := make([]entity.Task, 0, len(scanned))
	for i := range scanned {
		if pred.Matches(&scanned[i]) {
			tasks = append(tasks, scanned[i])
		}
	}
	return tasks, nil
}

func (r *TaskRepository) Insert(ctx context.Context, task *entity.Task) (int, error) {
	query := `
	INSERT INTO tasks (title, description, is_completed, created_at, user_id, category, due_date)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id
	`

	var id int
	err := r.db.QueryRow(ctx, query,
		task.Title,
		task.Description,
		task.IsCompleted,
		task.CreatedAt,
		task.UserID,
		task.Category,
		task.DueDate,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}

	return id, nil
}

// Update writes the named fields of task to the row it owns.
func (r *TaskRepository) Update(ctx context.Context, task *entity.Task, fields ...string) error {
	values, err := fieldValues(task, fields)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	setClause := make([]string, 0, len(values))
	args := make([]any, 0, len(values)+2)
	for i, fv := range values {
		setClause = append(setClause, fv.column+" = $"+strconv.Itoa(i+1))
		args = append(args, fv.value)
	}
	n := len(args)
	args = append(args, task.ID, task.UserID)

	query := `UPDATE tasks SET ` + strings.Join(setClause, ", ") +
		` WHERE id = $` + strconv.Itoa(n+1) + ` AND user_id = $` + strconv.Itoa(n+2)

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update task %d: %w", task.ID, err)
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, task *entity.Task) error {
	query := `DELETE FROM tasks WHERE id = $1 AND user_id = $2`
	if _, err := r.db.Exec(ctx, query, task.ID, task.UserID); err != nil {
		return fmt.Errorf("delete task %d: %w", task.ID, err)
	}
	return nil
}

func scanTask(row pgx.CollectableRow) (entity.Task, error) {
	var task entity.Task
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.IsCompleted,
		&task.CreatedAt,
		&task.UserID,
		&task.Category,
		&task.DueDate,
	)
	return task, err
}

func (p TaskPredicate) postgresWhere() (string, []any) {
	clauses := []string{"user_id = $1"}
	args := []any{p.userID}
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if p.byID {
		clauses = append(clauses, "id = "+next(p.id))
	}
	switch p.status {
	case entity.FilterCompleted:
		clauses = append(clauses, "is_completed = TRUE")
	case entity.FilterIncomplete:
		clauses = append(clauses, "is_completed = FALSE")
	}
	return strings.Join(clauses, " AND "), args
}

type fieldValue struct {
	column string
	value  any
}

func fieldValues(task *entity.Task, fields []string) ([]fieldValue, error) {
	seen := make(map[string]bool, len(fields))
	values := make([]fieldValue, 0, len(fields))
	for _, f := range fields {
		if !writableFields[f] {
			return nil, fmt.Errorf("field %q is not writable", f)
		}
		if seen[f] {
			continue
		}
		seen[f] = true

		var v any
		switch f {
		case FieldTitle:
			v = task.Title
		case FieldDescription:
			v = task.Description
		case FieldDueDate:
			v = task.DueDate
		case FieldIsCompleted:
			v = task.IsCompleted
		}
		values = append(values, fieldValue{column: f, value: v})
	}
	return values, nil
}

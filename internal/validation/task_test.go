package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/St1cky1/tasklist/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return today }

func strPtr(s string) *string { return &s }

func TestCreateTaskRequest(t *testing.T) {
	v := New(fixedNow)

	tests := []struct {
		name    string
		req     CreateTaskRequest
		invalid []string
	}{
		{"minimal", CreateTaskRequest{Title: "T", Category: "Work"}, nil},
		{"full", CreateTaskRequest{Title: "T", Description: strPtr("d"), Category: "Health", DueDate: "2026-10-15"}, nil},
		{"title exactly 100", CreateTaskRequest{Title: strings.Repeat("x", 100), Category: "Work"}, nil},
		{"title counts runes", CreateTaskRequest{Title: strings.Repeat("é", 100), Category: "Work"}, nil},
		{"missing title", CreateTaskRequest{Category: "Work"}, []string{"title"}},
		{"blank title", CreateTaskRequest{Title: "   ", Category: "Work"}, []string{"title"}},
		{"title too long", CreateTaskRequest{Title: strings.Repeat("x", 101), Category: "Work"}, []string{"title"}},
		{"description too long", CreateTaskRequest{Title: "T", Description: strPtr(strings.Repeat("x", 501)), Category: "Work"}, []string{"description"}},
		{"missing category", CreateTaskRequest{Title: "T"}, []string{"category"}},
		{"unknown category", CreateTaskRequest{Title: "T", Category: "Chores"}, []string{"category"}},
		{"category is case sensitive", CreateTaskRequest{Title: "T", Category: "work"}, []string{"category"}},
		{"due yesterday", CreateTaskRequest{Title: "T", Category: "Work", DueDate: "2026-10-14"}, []string{"due_date"}},
		{"bad date", CreateTaskRequest{Title: "T", Category: "Work", DueDate: "15/10/2026"}, []string{"due_date"}},
		{"everything wrong", CreateTaskRequest{DueDate: "2020-01-01"}, []string{"title", "category", "due_date"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := v.Struct(&req)
			if tt.invalid == nil {
				assert.NoError(t, err)
				return
			}

			var verrs Errors
			require.True(t, errors.As(err, &verrs), "got %v", err)
			assert.True(t, errors.Is(err, entity.ErrInvalidTaskData))
			for _, field := range tt.invalid {
				assert.Contains(t, verrs, field)
			}
			assert.Len(t, verrs, len(tt.invalid))
		})
	}
}

func TestUpdateTaskRequestCategoryOptional(t *testing.T) {
	v := New(fixedNow)

	assert.NoError(t, v.Struct(&UpdateTaskRequest{Title: "T"}))
	assert.NoError(t, v.Struct(&UpdateTaskRequest{Title: "T", Category: "Other"}))

	err := v.Struct(&UpdateTaskRequest{Title: "T", Category: "Nope"})
	var verrs Errors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "The field 'category' must be one of Work, Personal, Shopping, Health, Other.", verrs["category"])
}

func TestErrorMessages(t *testing.T) {
	v := New(fixedNow)
	err := v.Struct(&CreateTaskRequest{Title: strings.Repeat("x", 101), Category: "Work", DueDate: "2026-01-01"})

	var verrs Errors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "The field 'title' must be no longer than 100 characters.", verrs["title"])
	assert.Equal(t, "The field 'due_date' cannot be in the past.", verrs["due_date"])
	assert.Equal(t,
		"validation failed: The field 'due_date' cannot be in the past.; The field 'title' must be no longer than 100 characters.",
		err.Error())
}

func TestToTask(t *testing.T) {
	v := New(fixedNow)

	create := &CreateTaskRequest{Title: "T", Description: strPtr("  "), Category: "Work", DueDate: "2026-12-01"}
	require.NoError(t, v.Struct(create))
	task := create.ToTask("u1")
	assert.Equal(t, "u1", task.UserID)
	assert.Nil(t, task.Description, "blank description is stored as none")
	assert.Equal(t, entity.CategoryWork, task.Category)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), *task.DueDate)
	assert.False(t, task.IsCompleted)

	update := &UpdateTaskRequest{Title: "U"}
	require.NoError(t, v.Struct(update))
	task = update.ToTask(9, "u2")
	assert.Equal(t, 9, task.ID)
	assert.Equal(t, "u2", task.UserID)
	assert.Nil(t, task.DueDate)
}

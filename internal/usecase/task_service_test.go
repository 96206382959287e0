package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/St1cky1/tasklist/internal/entity"
	"github.com/St1cky1/tasklist/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockTaskRepository - мок для ITaskRepository
type MockTaskRepository struct {
	FindFunc   func(ctx context.Context, pred repository.TaskPredicate) ([]entity.Task, error)
	InsertFunc func(ctx context.Context, task *entity.Task) (int, error)
	UpdateFunc func(ctx context.Context, task *entity.Task, fields ...string) error
	DeleteFunc func(ctx context.Context, task *entity.Task) error
}

var _ repository.ITaskRepository = (*MockTaskRepository)(nil)

func (m *MockTaskRepository) Find(ctx context.Context, pred repository.TaskPredicate) ([]entity.Task, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, pred)
	}
	return nil, nil
}

func (m *MockTaskRepository) Insert(ctx context.Context, task *entity.Task) (int, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, task)
	}
	return 0, nil
}

func (m *MockTaskRepository) Update(ctx context.Context, task *entity.Task, fields ...string) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, task, fields...)
	}
	return nil
}

func (m *MockTaskRepository) Delete(ctx context.Context, task *entity.Task) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, task)
	}
	return nil
}

// MockAuditPublisher - мок для AuditPublisher
type MockAuditPublisher struct {
	Messages    []*entity.AuditMessage
	PublishFunc func(ctx context.Context, message *entity.AuditMessage) error
}

func (m *MockAuditPublisher) PublishAuditMessage(ctx context.Context, message *entity.AuditMessage) error {
	m.Messages = append(m.Messages, message)
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, message)
	}
	return nil
}

// stepClock returns t0, t0+1m, t0+2m, ... on successive calls.
func stepClock(t0 time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		t := t0.Add(time.Duration(n) * time.Minute)
		n++
		return t
	}
}

func strPtr(s string) *string { return &s }

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*TaskService, *repository.MemoryTaskRepository) {
	t.Helper()
	repo := repository.NewMemoryTaskRepository()
	opts = append([]Option{WithClock(stepClock(t0))}, opts...)
	return NewTaskService(repo, opts...), repo
}

func mustCreate(t *testing.T, s *TaskService, task entity.Task) *entity.Task {
	t.Helper()
	created, err := s.Create(context.Background(), &task)
	require.NoError(t, err)
	return created
}

func titles(tasks []entity.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.Title)
	}
	return out
}

func TestListForUserScenario(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	milk := mustCreate(t, s, entity.Task{Title: "Buy milk", UserID: "u1", Category: entity.CategoryShopping})
	bread := mustCreate(t, s, entity.Task{Title: "Buy bread", UserID: "u1", Category: entity.CategoryShopping})
	require.NoError(t, s.ToggleComplete(ctx, bread.ID, "u1"))
	require.True(t, bread.CreatedAt.After(milk.CreatedAt))

	all, err := s.ListForUser(ctx, "u1", entity.FilterAll, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Buy bread", "Buy milk"}, titles(all))

	completed, err := s.ListForUser(ctx, "u1", entity.FilterCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Buy bread"}, titles(completed))

	searched, err := s.ListForUser(ctx, "u1", entity.FilterAll, "milk")
	require.NoError(t, err)
	assert.Equal(t, []string{"Buy milk"}, titles(searched))
}

func TestListForUserOnlyReturnsOwnTasks(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	mustCreate(t, s, entity.Task{Title: "mine", UserID: "u1", Category: entity.CategoryWork})
	mustCreate(t, s, entity.Task{Title: "theirs", UserID: "u2", Category: entity.CategoryWork})
	mustCreate(t, s, entity.Task{Title: "also theirs", UserID: "u1-other", Category: entity.CategoryWork})

	for _, filter := range []entity.Filter{entity.FilterAll, entity.FilterCompleted, entity.FilterIncomplete} {
		tasks, err := s.ListForUser(ctx, "u1", filter, "")
		require.NoError(t, err)
		for _, task := range tasks {
			assert.Equal(t, "u1", task.UserID)
		}
	}

	none, err := s.ListForUser(ctx, "nobody", entity.FilterAll, "")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestListForUserFilters(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	a := mustCreate(t, s, entity.Task{Title: "a", UserID: "u1", Category: entity.CategoryWork})
	mustCreate(t, s, entity.Task{Title: "b", UserID: "u1", Category: entity.CategoryWork})
	c := mustCreate(t, s, entity.Task{Title: "c", UserID: "u1", Category: entity.CategoryWork})
	require.NoError(t, s.ToggleComplete(ctx, a.ID, "u1"))
	require.NoError(t, s.ToggleComplete(ctx, c.ID, "u1"))

	tests := []struct {
		name   string
		filter entity.Filter
		want   []string
	}{
		{"all", entity.FilterAll, []string{"c", "b", "a"}},
		{"completed", entity.FilterCompleted, []string{"c", "a"}},
		{"incomplete", entity.FilterIncomplete, []string{"b"}},
		{"unrecognised", entity.Filter("archived"), []string{"c", "b", "a"}},
		{"empty", entity.Filter(""), []string{"c", "b", "a"}},
		{"wrong case", entity.Filter("Completed"), []string{"c", "b", "a"}},
		{"upper case", entity.Filter("INCOMPLETE"), []string{"c", "b", "a"}},
		{"padded", entity.Filter(" incomplete "), []string{"c", "b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := s.ListForUser(ctx, "u1", tt.filter, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(tasks))
		})
	}
}

func TestListForUserSearch(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	mustCreate(t, s, entity.Task{Title: "Write REPORT", UserID: "u1", Category: entity.CategoryWork})
	mustCreate(t, s, entity.Task{Title: "Call mom", Description: strPtr("about the quarterly Report"), UserID: "u1", Category: entity.CategoryPersonal})
	mustCreate(t, s, entity.Task{Title: "Gym", UserID: "u1", Category: entity.CategoryHealth})
	mustCreate(t, s, entity.Task{Title: "100% done", UserID: "u1", Category: entity.CategoryOther})

	tests := []struct {
		name   string
		search string
		want   []string
	}{
		{"title and description, any case", "report", []string{"Call mom", "Write REPORT"}},
		{"padded search is trimmed", "  gym ", []string{"Gym"}},
		{"no match", "dentist", []string{}},
		{"wildcard characters are literal", "%", []string{"100% done"}},
		{"null description never matches", "about", []string{"Call mom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := s.ListForUser(ctx, "u1", entity.FilterAll, tt.search)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(tasks))
		})
	}

	noSearch, err := s.ListForUser(ctx, "u1", entity.FilterAll, "")
	require.NoError(t, err)
	for _, blank := range []string{" ", "\t", "   \n"} {
		tasks, err := s.ListForUser(ctx, "u1", entity.FilterAll, blank)
		require.NoError(t, err)
		assert.Equal(t, noSearch, tasks)
	}
}

func TestListForUserOrdering(t *testing.T) {
	ctx := context.Background()
	same := func() time.Time { return t0 }
	s, _ := newTestService(t, WithClock(same))

	mustCreate(t, s, entity.Task{Title: "first", UserID: "u1", Category: entity.CategoryWork})
	mustCreate(t, s, entity.Task{Title: "second", UserID: "u1", Category: entity.CategoryWork})
	mustCreate(t, s, entity.Task{Title: "third", UserID: "u1", Category: entity.CategoryWork})

	tasks, err := s.ListForUser(ctx, "u1", entity.FilterAll, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, titles(tasks), "ties keep insertion order")

	s2, _ := newTestService(t)
	for i := 0; i < 5; i++ {
		mustCreate(t, s2, entity.Task{Title: "t", UserID: "u1", Category: entity.CategoryWork})
	}
	tasks, err = s2.ListForUser(ctx, "u1", entity.FilterAll, "")
	require.NoError(t, err)
	for i := 1; i < len(tasks); i++ {
		assert.False(t, tasks[i].CreatedAt.After(tasks[i-1].CreatedAt))
	}
}

func TestListForUserPropagatesStorageError(t *testing.T) {
	boom := errors.New("connection refused")
	s := NewTaskService(&MockTaskRepository{
		FindFunc: func(ctx context.Context, pred repository.TaskPredicate) ([]entity.Task, error) {
			return nil, boom
		},
	})

	tasks, err := s.ListForUser(context.Background(), "u1", entity.FilterAll, "")
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, tasks)
}

func TestListForUserBuildsOwnedPredicate(t *testing.T) {
	var got repository.TaskPredicate
	s := NewTaskService(&MockTaskRepository{
		FindFunc: func(ctx context.Context, pred repository.TaskPredicate) ([]entity.Task, error) {
			got = pred
			return nil, nil
		},
	})

	tasks, err := s.ListForUser(context.Background(), "u7", entity.FilterIncomplete, "  Milk ")
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Equal(t, "u7", got.Owner())
	assert.Equal(t, entity.FilterIncomplete, got.Status())
	assert.Equal(t, "milk", got.Search())
	_, byID := got.ID()
	assert.False(t, byID)
}

func TestCreateScenario(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	created, err := s.Create(ctx, &entity.Task{
		Title:       "T",
		UserID:      "u1",
		Category:    entity.CategoryWork,
		IsCompleted: true,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, found, err := s.GetByID(ctx, created.ID, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, t0, got.CreatedAt)
	assert.False(t, got.IsCompleted)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, entity.CategoryWork, got.Category)
}

func TestCreatePropagatesStorageError(t *testing.T) {
	boom := errors.New("unique violation")
	s := NewTaskService(&MockTaskRepository{
		InsertFunc: func(ctx context.Context, task *entity.Task) (int, error) {
			return 0, boom
		},
	})

	created, err := s.Create(context.Background(), &entity.Task{Title: "T", UserID: "u1", Category: entity.CategoryWork})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, created)
}

func TestGetByIDHidesOtherUsersTasks(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	task := mustCreate(t, s, entity.Task{Title: "secret", UserID: "u1", Category: entity.CategoryWork})

	got, found, err := s.GetByID(ctx, task.ID, "u2")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)

	got, found, err = s.GetByID(ctx, task.ID+100, "u1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestUpdateCopiesOnlyEditableFields(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	task := mustCreate(t, s, entity.Task{Title: "old", Description: strPtr("desc"), UserID: "u1", Category: entity.CategoryWork})
	require.NoError(t, s.ToggleComplete(ctx, task.ID, "u1"))

	due := time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)
	err := s.Update(ctx, &entity.Task{
		ID:          task.ID,
		UserID:      "u1",
		Title:       "new",
		Description: nil,
		DueDate:     &due,
		Category:    entity.CategoryHealth,
		IsCompleted: false,
		CreatedAt:   t0.Add(24 * time.Hour),
	})
	require.NoError(t, err)

	got, found, err := s.GetByID(ctx, task.ID, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "new", got.Title)
	assert.Nil(t, got.Description)
	require.NotNil(t, got.DueDate)
	assert.True(t, due.Equal(*got.DueDate))
	assert.Equal(t, entity.CategoryWork, got.Category, "category is not updatable")
	assert.True(t, got.IsCompleted)
	assert.Equal(t, task.CreatedAt, got.CreatedAt)
	assert.Equal(t, "u1", got.UserID)
}

func TestUpdateByNonOwnerIsNoop(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	task := mustCreate(t, s, entity.Task{Title: "mine", UserID: "u1", Category: entity.CategoryWork})

	err := s.Update(ctx, &entity.Task{ID: task.ID, UserID: "u2", Title: "hack"})
	require.NoError(t, err)

	got, found, err := s.GetByID(ctx, task.ID, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "mine", got.Title)
}

func TestUpdateMissingTaskDoesNotWrite(t *testing.T) {
	s := NewTaskService(&MockTaskRepository{
		UpdateFunc: func(ctx context.Context, task *entity.Task, fields ...string) error {
			t.Fatalf("Update must not be called for an absent task")
			return nil
		},
	})

	assert.NoError(t, s.Update(context.Background(), &entity.Task{ID: 9, UserID: "u1", Title: "x"}))
}

func TestUpdateWritesEditableFieldsOnly(t *testing.T) {
	var written []string
	s := NewTaskService(&MockTaskRepository{
		FindFunc: func(ctx context.Context, pred repository.TaskPredicate) ([]entity.Task, error) {
			return []entity.Task{{ID: 3, UserID: pred.Owner(), Title: "t", Category: entity.CategoryWork}}, nil
		},
		UpdateFunc: func(ctx context.Context, task *entity.Task, fields ...string) error {
			written = fields
			return nil
		},
	})

	require.NoError(t, s.Update(context.Background(), &entity.Task{ID: 3, UserID: "u1", Title: "n"}))
	assert.ElementsMatch(t, []string{
		repository.FieldTitle,
		repository.FieldDescription,
		repository.FieldDueDate,
	}, written)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	task := mustCreate(t, s, entity.Task{Title: "mine", UserID: "u1", Category: entity.CategoryWork})

	require.NoError(t, s.Delete(ctx, task.ID, "u2"))
	_, found, err := s.GetByID(ctx, task.ID, "u1")
	require.NoError(t, err)
	assert.True(t, found, "non-owner delete is a no-op")

	require.NoError(t, s.Delete(ctx, task.ID, "u1"))
	_, found, err = s.GetByID(ctx, task.ID, "u1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Delete(ctx, task.ID, "u1"), "deleting twice is a no-op")
}

func TestToggleComplete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	task := mustCreate(t, s, entity.Task{Title: "t", UserID: "u1", Category: entity.CategoryWork})

	require.NoError(t, s.ToggleComplete(ctx, task.ID, "u1"))
	got, _, err := s.GetByID(ctx, task.ID, "u1")
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)

	require.NoError(t, s.ToggleComplete(ctx, task.ID, "u1"))
	got, _, err = s.GetByID(ctx, task.ID, "u1")
	require.NoError(t, err)
	assert.False(t, got.IsCompleted, "two toggles restore the original state")

	require.NoError(t, s.ToggleComplete(ctx, task.ID, "u2"))
	got, _, err = s.GetByID(ctx, task.ID, "u1")
	require.NoError(t, err)
	assert.False(t, got.IsCompleted, "non-owner toggle is a no-op")
}

func TestMutationsPropagateStorageErrors(t *testing.T) {
	boom := errors.New("disk full")
	found := func(ctx context.Context, pred repository.TaskPredicate) ([]entity.Task, error) {
		id, _ := pred.ID()
		return []entity.Task{{ID: id, UserID: pred.Owner()}}, nil
	}
	s := NewTaskService(&MockTaskRepository{
		FindFunc: found,
		UpdateFunc: func(ctx context.Context, task *entity.Task, fields ...string) error {
			return boom
		},
		DeleteFunc: func(ctx context.Context, task *entity.Task) error {
			return boom
		},
	})
	ctx := context.Background()

	assert.ErrorIs(t, s.Update(ctx, &entity.Task{ID: 1, UserID: "u1"}), boom)
	assert.ErrorIs(t, s.Delete(ctx, 1, "u1"), boom)
	assert.ErrorIs(t, s.ToggleComplete(ctx, 1, "u1"), boom)
}

func TestAuditMessages(t *testing.T) {
	ctx := context.Background()
	pub := &MockAuditPublisher{}
	s, _ := newTestService(t, WithAuditPublisher(pub))

	task := mustCreate(t, s, entity.Task{Title: "t", UserID: "u1", Category: entity.CategoryWork})
	require.NoError(t, s.Update(ctx, &entity.Task{ID: task.ID, UserID: "u1", Title: "t2"}))
	require.NoError(t, s.ToggleComplete(ctx, task.ID, "u1"))
	require.NoError(t, s.Delete(ctx, task.ID, "u2"))
	require.NoError(t, s.Delete(ctx, task.ID, "u1"))

	require.Len(t, pub.Messages, 4, "no-op mutations publish nothing")

	create := pub.Messages[0]
	assert.Equal(t, entity.ActionCreate, create.Action)
	assert.Equal(t, task.ID, create.EntityID)
	assert.Equal(t, "u1", create.UserID)
	assert.Nil(t, create.OldValues)
	assert.Equal(t, "t", create.NewValues["title"])

	update := pub.Messages[1]
	assert.Equal(t, entity.ActionUpdate, update.Action)
	assert.Equal(t, map[string]any{"old": "t", "new": "t2"}, update.Changes["title"])
	assert.NotContains(t, update.Changes, "category")

	toggle := pub.Messages[2]
	assert.Equal(t, entity.ActionToggle, toggle.Action)
	assert.Equal(t, map[string]any{"old": false, "new": true}, toggle.Changes["is_completed"])

	del := pub.Messages[3]
	assert.Equal(t, entity.ActionDelete, del.Action)
	assert.Nil(t, del.NewValues)
	assert.Equal(t, "t2", del.OldValues["title"])
}

func TestAuditPublishFailureDoesNotFailMutation(t *testing.T) {
	pub := &MockAuditPublisher{
		PublishFunc: func(ctx context.Context, message *entity.AuditMessage) error {
			return errors.New("broker down")
		},
	}
	s, _ := newTestService(t, WithAuditPublisher(pub))

	created, err := s.Create(context.Background(), &entity.Task{Title: "t", UserID: "u1", Category: entity.CategoryWork})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Len(t, pub.Messages, 1)
}

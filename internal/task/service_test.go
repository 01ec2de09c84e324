package task

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/tasky/internal/model"
	"github.com/hitoshi/tasky/internal/repository"
	"github.com/hitoshi/tasky/internal/security"
)

// --- モック定義 ---

type mockTaskRepo struct {
	listByUserFn        func(ctx context.Context, userID string, filter model.TaskFilter) ([]*model.Task, error)
	findByUserAndIDFn   func(ctx context.Context, userID, id string) (*model.Task, error)
	createFn            func(ctx context.Context, task *model.Task) error
	updateFn            func(ctx context.Context, task *model.Task) error
	deleteByUserAndIDFn func(ctx context.Context, userID, id string) error
}

func (m *mockTaskRepo) ListByUser(ctx context.Context, userID string, filter model.TaskFilter) ([]*model.Task, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID, filter)
	}
	return nil, nil
}

func (m *mockTaskRepo) FindByUserAndID(ctx context.Context, userID, id string) (*model.Task, error) {
	if m.findByUserAndIDFn != nil {
		return m.findByUserAndIDFn(ctx, userID, id)
	}
	return nil, nil
}

func (m *mockTaskRepo) Create(ctx context.Context, task *model.Task) error {
	if m.createFn != nil {
		return m.createFn(ctx, task)
	}
	return nil
}

func (m *mockTaskRepo) Update(ctx context.Context, task *model.Task) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, task)
	}
	return nil
}

func (m *mockTaskRepo) DeleteByUserAndID(ctx context.Context, userID, id string) error {
	if m.deleteByUserAndIDFn != nil {
		return m.deleteByUserAndIDFn(ctx, userID, id)
	}
	return nil
}

// compile-time interface check
var _ repository.TaskRepository = (*mockTaskRepo)(nil)

// --- テスト ---

func TestList_ForwardsUserIDAndFilter(t *testing.T) {
	ctx := context.Background()

	var gotUserID string
	var gotFilter model.TaskFilter

	repo := &mockTaskRepo{
		listByUserFn: func(ctx context.Context, userID string, filter model.TaskFilter) ([]*model.Task, error) {
			gotUserID = userID
			gotFilter = filter
			return []*model.Task{{ID: "task-1", UserID: userID}}, nil
		},
	}

	svc := NewService(repo, security.NewTextSanitizer())

	tasks, err := svc.List(ctx, "user-1", model.TaskFilter{Status: "pending", Priority: "high"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if gotUserID != "user-1" {
		t.Errorf("userID = %q, want %q", gotUserID, "user-1")
	}
	if gotFilter.Status != "pending" || gotFilter.Priority != "high" {
		t.Errorf("filter = %+v, want status=pending priority=high", gotFilter)
	}
	if len(tasks) != 1 {
		t.Errorf("len(tasks) = %d, want 1", len(tasks))
	}
}

func TestList_InvalidFilterValues_ReturnsValidationError(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockTaskRepo{}, security.NewTextSanitizer())

	tests := []struct {
		name   string
		filter model.TaskFilter
	}{
		{"unknown status", model.TaskFilter{Status: "done"}},
		{"unknown priority", model.TaskFilter{Priority: "urgent"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.List(ctx, "user-1", tt.filter)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *model.APIError, got %v", err)
			}
			if apiErr.Code != model.ErrCodeValidation {
				t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeValidation)
			}
		})
	}
}

func TestGet_NotFound_ReturnsTaskNotFoundError(t *testing.T) {
	ctx := context.Background()

	repo := &mockTaskRepo{
		findByUserAndIDFn: func(ctx context.Context, userID, id string) (*model.Task, error) {
			// 他ユーザー所有のタスクもリポジトリはnilを返す
			return nil, nil
		},
	}

	svc := NewService(repo, security.NewTextSanitizer())

	_, err := svc.Get(ctx, "user-1", "someone-elses-task")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeTaskNotFound {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeTaskNotFound)
	}
	if apiErr.Message != "Task not found" {
		t.Errorf("error message = %q, want %q", apiErr.Message, "Task not found")
	}
}

func TestCreate_AppliesDefaults(t *testing.T) {
	ctx := context.Background()

	var created *model.Task
	repo := &mockTaskRepo{
		createFn: func(ctx context.Context, task *model.Task) error {
			created = task
			return nil
		},
	}

	svc := NewService(repo, security.NewTextSanitizer())

	task, err := svc.Create(ctx, "user-1", CreateInput{Title: "Buy milk"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if created == nil {
		t.Fatal("expected task to be created")
	}
	if created.ID == "" {
		t.Error("expected non-empty task ID")
	}
	// 所有者は認証済みユーザーから決定されること
	if created.UserID != "user-1" {
		t.Errorf("userID = %q, want %q", created.UserID, "user-1")
	}
	// デフォルト値が適用されること
	if created.Status != model.TaskStatusPending {
		t.Errorf("status = %q, want %q", created.Status, model.TaskStatusPending)
	}
	if created.Priority != model.TaskPriorityMedium {
		t.Errorf("priority = %q, want %q", created.Priority, model.TaskPriorityMedium)
	}
	if task.Title != "Buy milk" {
		t.Errorf("title = %q, want %q", task.Title, "Buy milk")
	}
}

func TestCreate_SanitizesTitleAndDescription(t *testing.T) {
	ctx := context.Background()

	var created *model.Task
	repo := &mockTaskRepo{
		createFn: func(ctx context.Context, task *model.Task) error {
			created = task
			return nil
		},
	}

	svc := NewService(repo, security.NewTextSanitizer())

	_, err := svc.Create(ctx, "user-1", CreateInput{
		Title:       "  <script>alert(1)</script>Buy milk  ",
		Description: "<b>bold</b> text",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// HTMLタグと前後の空白が除去されること
	if created.Title != "Buy milk" {
		t.Errorf("title = %q, want %q", created.Title, "Buy milk")
	}
	if created.Description != "bold text" {
		t.Errorf("description = %q, want %q", created.Description, "bold text")
	}
}

func TestCreate_InvalidInput_ReturnsValidationError(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockTaskRepo{}, security.NewTextSanitizer())

	longTitle := strings.Repeat("あ", model.TitleMaxLength+1)

	tests := []struct {
		name    string
		input   CreateInput
		wantMsg string
	}{
		{"empty title", CreateInput{Title: ""}, "Title is required"},
		{"whitespace title", CreateInput{Title: "   "}, "Title is required"},
		// サニタイズで空になるタイトルも拒否されること
		{"tags-only title", CreateInput{Title: "<script></script>"}, "Title is required"},
		{"too long title", CreateInput{Title: longTitle}, "Title cannot be more than 100 characters"},
		{"invalid status", CreateInput{Title: "ok", Status: "done"}, "Invalid status: done"},
		{"invalid priority", CreateInput{Title: "ok", Priority: "urgent"}, "Invalid priority: urgent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "user-1", tt.input)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *model.APIError, got %v", err)
			}
			if apiErr.Code != model.ErrCodeValidation {
				t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeValidation)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("error message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
		})
	}
}

func TestCreate_TitleAtMaxLength_Succeeds(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockTaskRepo{}, security.NewTextSanitizer())

	// ちょうど100文字（マルチバイト）は許容されること
	title := strings.Repeat("あ", model.TitleMaxLength)

	task, err := svc.Create(ctx, "user-1", CreateInput{Title: title})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if task.Title != title {
		t.Error("title should be preserved at max length")
	}
}

func TestUpdate_PartialPatch_PreservesOtherFields(t *testing.T) {
	ctx := context.Background()

	due := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	existing := &model.Task{
		ID:          "task-1",
		UserID:      "user-1",
		Title:       "Original title",
		Description: "Original description",
		Status:      model.TaskStatusPending,
		Priority:    model.TaskPriorityLow,
		DueDate:     &due,
	}

	var updated *model.Task
	repo := &mockTaskRepo{
		findByUserAndIDFn: func(ctx context.Context, userID, id string) (*model.Task, error) {
			return existing, nil
		},
		updateFn: func(ctx context.Context, task *model.Task) error {
			updated = task
			return nil
		},
	}

	svc := NewService(repo, security.NewTextSanitizer())

	newStatus := model.TaskStatusCompleted
	_, err := svc.Update(ctx, "user-1", "task-1", model.TaskPatch{Status: &newStatus})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated == nil {
		t.Fatal("expected task to be updated")
	}
	if updated.Status != model.TaskStatusCompleted {
		t.Errorf("status = %q, want %q", updated.Status, model.TaskStatusCompleted)
	}
	// nilフィールドは変更されないこと
	if updated.Title != "Original title" {
		t.Errorf("title = %q, want unchanged", updated.Title)
	}
	if updated.Description != "Original description" {
		t.Errorf("description = %q, want unchanged", updated.Description)
	}
	if updated.Priority != model.TaskPriorityLow {
		t.Errorf("priority = %q, want unchanged", updated.Priority)
	}
	if updated.DueDate == nil || !updated.DueDate.Equal(due) {
		t.Error("due date should be unchanged")
	}
}

func TestUpdate_DueDateClearedByExplicitNil(t *testing.T) {
	ctx := context.Background()

	due := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	existing := &model.Task{
		ID:       "task-1",
		UserID:   "user-1",
		Title:    "Task with deadline",
		Status:   model.TaskStatusPending,
		Priority: model.TaskPriorityLow,
		DueDate:  &due,
	}

	var updated *model.Task
	repo := &mockTaskRepo{
		findByUserAndIDFn: func(ctx context.Context, userID, id string) (*model.Task, error) {
			return existing, nil
		},
		updateFn: func(ctx context.Context, task *model.Task) error {
			updated = task
			return nil
		},
	}

	svc := NewService(repo, security.NewTextSanitizer())

	// DueDateSetのみ指定の場合は期限の解除として扱う
	_, err := svc.Update(ctx, "user-1", "task-1", model.TaskPatch{DueDateSet: true})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated == nil {
		t.Fatal("expected task to be updated")
	}
	if updated.DueDate != nil {
		t.Errorf("due date = %v, want cleared", updated.DueDate)
	}
}

func TestUpdate_DueDateReplaced(t *testing.T) {
	ctx := context.Background()

	oldDue := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	newDue := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	existing := &model.Task{
		ID:       "task-1",
		UserID:   "user-1",
		Title:    "Task with deadline",
		Status:   model.TaskStatusPending,
		Priority: model.TaskPriorityLow,
		DueDate:  &oldDue,
	}

	var updated *model.Task
	repo := &mockTaskRepo{
		findByUserAndIDFn: func(ctx context.Context, userID, id string) (*model.Task, error) {
			return existing, nil
		},
		updateFn: func(ctx context.Context, task *model.Task) error {
			updated = task
			return nil
		},
	}

	svc := NewService(repo, security.NewTextSanitizer())

	_, err := svc.Update(ctx, "user-1", "task-1", model.TaskPatch{DueDate: &newDue, DueDateSet: true})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.DueDate == nil || !updated.DueDate.Equal(newDue) {
		t.Errorf("due date = %v, want %v", updated.DueDate, newDue)
	}
}

func TestUpdate_SanitizesAndValidatesNewTitle(t *testing.T) {
	ctx := context.Background()

	repo := &mockTaskRepo{
		findByUserAndIDFn: func(ctx context.Context, userID, id string) (*model.Task, error) {
			return &model.Task{ID: id, UserID: userID, Title: "Old"}, nil
		},
	}

	svc := NewService(repo, security.NewTextSanitizer())

	// サニタイズで空になるタイトルへの更新は拒否されること
	emptyAfterSanitize := "<script>alert(1)</script>"
	_, err := svc.Update(ctx, "user-1", "task-1", model.TaskPatch{Title: &emptyAfterSanitize})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if apiErr.Message != "Title is required" {
		t.Errorf("error message = %q, want %q", apiErr.Message, "Title is required")
	}
}

func TestUpdate_InvalidEnumValues_ReturnsValidationError(t *testing.T) {
	ctx := context.Background()

	repo := &mockTaskRepo{
		findByUserAndIDFn: func(ctx context.Context, userID, id string) (*model.Task, error) {
			return &model.Task{ID: id, UserID: userID, Title: "Task"}, nil
		},
	}

	svc := NewService(repo, security.NewTextSanitizer())

	badStatus := model.TaskStatus("done")
	_, err := svc.Update(ctx, "user-1", "task-1", model.TaskPatch{Status: &badStatus})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeValidation {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeValidation)
	}
}

func TestUpdate_NotFound_ReturnsTaskNotFoundError(t *testing.T) {
	ctx := context.Background()

	repo := &mockTaskRepo{
		findByUserAndIDFn: func(ctx context.Context, userID, id string) (*model.Task, error) {
			return nil, nil
		},
	}

	svc := NewService(repo, security.NewTextSanitizer())

	title := "New title"
	_, err := svc.Update(ctx, "user-1", "missing-task", model.TaskPatch{Title: &title})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeTaskNotFound {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeTaskNotFound)
	}
}

func TestDelete_ForwardsUserScope(t *testing.T) {
	ctx := context.Background()

	var gotUserID, gotTaskID string
	repo := &mockTaskRepo{
		deleteByUserAndIDFn: func(ctx context.Context, userID, id string) error {
			gotUserID = userID
			gotTaskID = id
			return nil
		},
	}

	svc := NewService(repo, security.NewTextSanitizer())

	if err := svc.Delete(ctx, "user-1", "task-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if gotUserID != "user-1" || gotTaskID != "task-1" {
		t.Errorf("delete scope = (%q, %q), want (user-1, task-1)", gotUserID, gotTaskID)
	}
}

func TestDelete_RepeatedDelete_ReturnsTaskNotFoundError(t *testing.T) {
	ctx := context.Background()

	repo := &mockTaskRepo{
		deleteByUserAndIDFn: func(ctx context.Context, userID, id string) error {
			// 2回目の削除はリポジトリが未検出エラーを返す
			return model.NewTaskNotFoundError()
		},
	}

	svc := NewService(repo, security.NewTextSanitizer())

	err := svc.Delete(ctx, "user-1", "already-deleted")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeTaskNotFound {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeTaskNotFound)
	}
}

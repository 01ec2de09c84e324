// Package task はタスク管理のドメインロジックを提供する。
package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tasky/internal/model"
	"github.com/hitoshi/tasky/internal/repository"
	"github.com/hitoshi/tasky/internal/security"
)

// Service はタスク管理のサービス層。
// すべての操作は認証済みユーザーのIDでスコープされ、
// 他ユーザーのタスクは存在しないものとして扱う。
type Service struct {
	taskRepo  repository.TaskRepository
	sanitizer security.TextSanitizerService
}

// NewService はServiceを生成する。
func NewService(taskRepo repository.TaskRepository, sanitizer security.TextSanitizerService) *Service {
	return &Service{
		taskRepo:  taskRepo,
		sanitizer: sanitizer,
	}
}

// List は指定ユーザーのタスク一覧を作成日時降順で返す。
// filterの空でないフィールドは定義済みの値であることを検証したうえで
// 完全一致条件として適用する。
func (s *Service) List(ctx context.Context, userID string, filter model.TaskFilter) ([]*model.Task, error) {
	if filter.Status != "" && !model.TaskStatus(filter.Status).IsValid() {
		return nil, model.NewValidationError(fmt.Sprintf("Invalid status: %s", filter.Status))
	}
	if filter.Priority != "" && !model.TaskPriority(filter.Priority).IsValid() {
		return nil, model.NewValidationError(fmt.Sprintf("Invalid priority: %s", filter.Priority))
	}

	return s.taskRepo.ListByUser(ctx, userID, filter)
}

// Get は指定ユーザーが所有するタスクを取得する。
// 他ユーザーのタスクIDを指定した場合も未検出エラーを返す。
func (s *Service) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	task, err := s.taskRepo.FindByUserAndID(ctx, userID, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError()
	}

	return task, nil
}

// CreateInput はタスク作成の入力。
// StatusとPriorityが空の場合はデフォルト値（pending / medium）を適用する。
type CreateInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     *time.Time
}

// Create はタスクを作成する。
// 所有者は認証済みユーザーのIDから決定し、クライアントが指定することはできない。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.Task, error) {
	title := s.sanitizer.Sanitize(input.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	status := model.TaskStatusPending
	if input.Status != "" {
		status = model.TaskStatus(input.Status)
		if !status.IsValid() {
			return nil, model.NewValidationError(fmt.Sprintf("Invalid status: %s", input.Status))
		}
	}

	priority := model.TaskPriorityMedium
	if input.Priority != "" {
		priority = model.TaskPriority(input.Priority)
		if !priority.IsValid() {
			return nil, model.NewValidationError(fmt.Sprintf("Invalid priority: %s", input.Priority))
		}
	}

	now := time.Now()
	task := &model.Task{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: s.sanitizer.Sanitize(input.Description),
		Status:      status,
		Priority:    priority,
		DueDate:     input.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}

	slog.Info("task created",
		slog.String("task_id", task.ID),
		slog.String("user_id", userID),
	)

	return task, nil
}

// Update はタスクを部分更新する。
// patchのnilフィールドは変更せず、既存の値を維持する。
// 更新可能なフィールドはmodel.TaskPatchに列挙されたものに限られ、
// それ以外のフィールドがリクエストに含まれていても無視される。
func (s *Service) Update(ctx context.Context, userID, taskID string, patch model.TaskPatch) (*model.Task, error) {
	task, err := s.taskRepo.FindByUserAndID(ctx, userID, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError()
	}

	if patch.Title != nil {
		title := s.sanitizer.Sanitize(*patch.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		task.Title = title
	}
	if patch.Description != nil {
		task.Description = s.sanitizer.Sanitize(*patch.Description)
	}
	if patch.Status != nil {
		if !patch.Status.IsValid() {
			return nil, model.NewValidationError(fmt.Sprintf("Invalid status: %s", *patch.Status))
		}
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		if !patch.Priority.IsValid() {
			return nil, model.NewValidationError(fmt.Sprintf("Invalid priority: %s", *patch.Priority))
		}
		task.Priority = *patch.Priority
	}
	if patch.DueDateSet {
		task.DueDate = patch.DueDate
	}
	task.UpdatedAt = time.Now()

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}

	slog.Info("task updated",
		slog.String("task_id", task.ID),
		slog.String("user_id", userID),
	)

	return task, nil
}

// Delete はタスクを削除する。
// 削除済みのタスクを再度削除しようとした場合も未検出エラーを返す。
func (s *Service) Delete(ctx context.Context, userID, taskID string) error {
	if err := s.taskRepo.DeleteByUserAndID(ctx, userID, taskID); err != nil {
		return err
	}

	slog.Info("task deleted",
		slog.String("task_id", taskID),
		slog.String("user_id", userID),
	)

	return nil
}

// validateTitle はサニタイズ済みタイトルを検証する。
func validateTitle(title string) error {
	if title == "" {
		return model.NewValidationError("Title is required")
	}
	if len([]rune(title)) > model.TitleMaxLength {
		return model.NewValidationError("Title cannot be more than 100 characters")
	}
	return nil
}

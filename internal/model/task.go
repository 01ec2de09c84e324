// Package model はドメインモデルを定義する。
package model

import "time"

// TaskStatus はタスクの進行状態を表す。
type TaskStatus string

const (
	// TaskStatusPending は未着手状態。新規タスクのデフォルト。
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress は作業中状態。
	TaskStatusInProgress TaskStatus = "in-progress"
	// TaskStatusCompleted は完了状態。
	TaskStatusCompleted TaskStatus = "completed"
)

// IsValid はステータス値が定義済みのいずれかであることを検証する。
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// TaskPriority はタスクの優先度を表す。
type TaskPriority string

const (
	// TaskPriorityLow は低優先度。
	TaskPriorityLow TaskPriority = "low"
	// TaskPriorityMedium は中優先度。新規タスクのデフォルト。
	TaskPriorityMedium TaskPriority = "medium"
	// TaskPriorityHigh は高優先度。
	TaskPriorityHigh TaskPriority = "high"
)

// IsValid は優先度値が定義済みのいずれかであることを検証する。
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// TitleMaxLength はタスクタイトルの最大文字数。
const TitleMaxLength = 100

// Task はユーザーが所有するタスクを表す。
// すべてのタスクはちょうど1人のユーザーに属し、
// 所有者の認証済みリクエスト経由でのみ参照・変更できる。
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Status      TaskStatus
	Priority    TaskPriority
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskFilter はタスク一覧の絞り込み条件を表す。
// 空文字列のフィールドは条件として適用しない。
type TaskFilter struct {
	Status   string
	Priority string
}

// TaskPatch はタスクの部分更新を表す。
// nilフィールドは変更せず、既存の値を維持する。
// 更新可能なフィールドはこの構造体に列挙されたものに限る。
// 期限のみnilの解除指定がありうるため、DueDateSetで指定の有無を区別する。
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	Priority    *TaskPriority

	// DueDateSet がtrueの場合のみDueDateを適用する。
	// DueDateSet=true かつ DueDate=nil は期限の解除を表す。
	DueDate    *time.Time
	DueDateSet bool
}

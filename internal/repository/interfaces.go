// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/tasky/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。
	// メールアドレスが既に使用されている場合はmodel.ErrCodeEmailTakenの
	// APIErrorを返す。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は小文字正規化済みメールアドレスでユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByGoogleID はGoogleの外部識別子でユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)

	// LinkGoogleID は既存ユーザーにGoogleの外部識別子を紐付ける。
	LinkGoogleID(ctx context.Context, userID, googleID string) error
}

// TaskRepository はタスクデータの永続化インターフェース。
// すべての参照・変更操作は所有ユーザーIDでスコープされる。
type TaskRepository interface {
	// ListByUser は指定ユーザーのタスク一覧を作成日時降順で返す。
	// filterの空でないフィールドは完全一致条件として適用する。
	ListByUser(ctx context.Context, userID string, filter model.TaskFilter) ([]*model.Task, error)

	// FindByUserAndID は指定ユーザーが所有する指定IDのタスクを取得する。
	// 見つからない場合（他ユーザー所有の場合を含む）はnilを返す。
	FindByUserAndID(ctx context.Context, userID, id string) (*model.Task, error)

	// Create はタスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// Update はタスクの全フィールドを上書き更新する。
	// 所有者が一致しない場合はmodel.ErrCodeTaskNotFoundのAPIErrorを返す。
	Update(ctx context.Context, task *model.Task) error

	// DeleteByUserAndID は指定ユーザーが所有する指定IDのタスクを削除する。
	// タスクが存在しない場合はmodel.ErrCodeTaskNotFoundのAPIErrorを返す。
	// 同一IDの2回目の削除も同様にエラーとなる（冪等ではない）。
	DeleteByUserAndID(ctx context.Context, userID, id string) error
}

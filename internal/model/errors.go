// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError はサービス層からハンドラー境界まで伝搬するドメインエラー。
// ハンドラーがCodeからHTTPステータスを決定し、Messageをそのまま返す。
type APIError struct {
	Code    string // エラーコード
	Message string // クライアントに返すメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeGoogleAccount      = "GOOGLE_ACCOUNT"
	ErrCodeTaskNotFound       = "TASK_NOT_FOUND"
)

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// NewUnauthorizedError は認証エラーを生成する。
// トークンの欠落・改ざん・期限切れ・ユーザー不在のすべてで同一のエラーを返す。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:    ErrCodeUnauthorized,
		Message: "Not authorized",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:    ErrCodeEmailTaken,
		Message: "User already exists",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// ユーザー不在とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidCredentials,
		Message: "Invalid credentials",
	}
}

// NewGoogleAccountError はGoogleアカウントへのパスワードログイン拒否エラーを生成する。
func NewGoogleAccountError() *APIError {
	return &APIError{
		Code:    ErrCodeGoogleAccount,
		Message: "This account uses Google authentication. Please sign in with Google.",
	}
}

// NewTaskNotFoundError はタスク未検出エラーを生成する。
// 他ユーザーが所有するタスクへのアクセスも存在漏洩を避けるため同一のエラーを返す。
func NewTaskNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeTaskNotFound,
		Message: "Task not found",
	}
}

// Package model はドメインモデルを定義する。
package model

import "time"

// AccountType はユーザーの認証方式を表す。
type AccountType string

const (
	// AccountTypeLocal はメールアドレスとパスワードによるローカルアカウント。
	AccountTypeLocal AccountType = "local"
	// AccountTypeGoogle はGoogle OAuthによる外部認証アカウント。
	AccountTypeGoogle AccountType = "google"
)

// User はサービス利用ユーザーを表す。
// ローカルアカウントは登録完了時点で必ずPasswordHashを持つ。
// GoogleアカウントはPasswordHashを持たず、GoogleIDで外部IdPと紐付く。
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string // Googleアカウントの場合は空
	GoogleID     string // ローカルアカウントの場合は空
	AccountType  AccountType
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

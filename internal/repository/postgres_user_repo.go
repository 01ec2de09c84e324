package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/tasky/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const uniqueViolation = "23505"

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// Create はユーザーを作成する。
// サービス層の事前チェックをすり抜けた同時登録はemailの一意制約で検出し、
// メールアドレス重複エラーとして返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, google_id, account_type, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Name, user.Email,
		nullableString(user.PasswordHash), nullableString(user.GoogleID),
		string(user.AccountType), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return model.NewEmailTakenError()
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx,
		`SELECT id, name, email, password_hash, google_id, account_type, created_at, updated_at
		 FROM users WHERE id = $1`, id)
}

// FindByEmail は小文字正規化済みメールアドレスでユーザーを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx,
		`SELECT id, name, email, password_hash, google_id, account_type, created_at, updated_at
		 FROM users WHERE email = $1`, email)
}

// FindByGoogleID はGoogleの外部識別子でユーザーを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return r.findOne(ctx,
		`SELECT id, name, email, password_hash, google_id, account_type, created_at, updated_at
		 FROM users WHERE google_id = $1`, googleID)
}

// LinkGoogleID は既存ユーザーにGoogleの外部識別子を紐付ける。
func (r *PostgresUserRepo) LinkGoogleID(ctx context.Context, userID, googleID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET google_id = $1, updated_at = $2 WHERE id = $3`,
		googleID, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to link google ID: %w", err)
	}
	return nil
}

// findOne は単一ユーザーを取得する共通クエリ処理。
func (r *PostgresUserRepo) findOne(ctx context.Context, query string, arg any) (*model.User, error) {
	user := &model.User{}
	var passwordHash, googleID sql.NullString
	var accountType string

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email,
		&passwordHash, &googleID, &accountType,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	user.PasswordHash = passwordHash.String
	user.GoogleID = googleID.String
	user.AccountType = model.AccountType(accountType)

	return user, nil
}

// nullableString は空文字列をNULLとして保存するための変換を行う。
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)

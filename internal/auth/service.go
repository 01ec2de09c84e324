// Package auth はローカル認証、Google OAuth認証、トークン管理を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tasky/internal/model"
	"github.com/hitoshi/tasky/internal/repository"
)

// passwordMinLength はローカルアカウントのパスワード最小文字数。
const passwordMinLength = 6

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// LoginURL はOAuth同意画面のURLを生成する。
	LoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、プロフィールを取得する。
	ExchangeCode(ctx context.Context, code string) (*GoogleProfile, error)
}

// AuthResult は認証成功時の結果。発行されたトークンとユーザーを返す。
type AuthResult struct {
	Token string
	User  *model.User
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth    OAuthProvider
	userRepo repository.UserRepository
	tokens   *TokenIssuer
	hasher   *PasswordHasher
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	tokens *TokenIssuer,
	hasher *PasswordHasher,
) *Service {
	return &Service{
		oauth:    oauth,
		userRepo: userRepo,
		tokens:   tokens,
		hasher:   hasher,
	}
}

// Register はローカルアカウントを登録し、トークンを発行する。
// メールアドレスは小文字に正規化して保存する。
// 既に同じメールアドレスのユーザーが存在する場合は重複エラーを返す。
func (s *Service) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if err := validateRegistration(name, email, password); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError()
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		AccountType:  model.AccountTypeLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// 同時登録はリポジトリの一意制約で重複エラーになる
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return s.issueFor(user)
}

// Login はローカルアカウントの認証情報を検証し、トークンを発行する。
// ユーザー不在とパスワード不一致は同一のエラーとして返す。
// Googleアカウントへのパスワードログインは専用のエラーで拒否する。
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	if user.AccountType == model.AccountTypeGoogle {
		return nil, model.NewGoogleAccountError()
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))

	return s.issueFor(user)
}

// Authenticate はベアラートークンを検証し、現在のユーザーを解決する。
// トークンの欠落・改ざん・期限切れ・対応するユーザーの不在はすべて
// 同一の認証エラーとして返す。
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, model.NewUnauthorizedError()
	}

	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}

	return user, nil
}

// LoginURL はGoogle OAuth同意画面のURLを生成する。
func (s *Service) LoginURL(state string) string {
	return s.oauth.LoginURL(state)
}

// HandleGoogleCallback はOAuthコールバックを処理し、トークンを発行する。
// 検索順序:
//  1. google_idで既存ユーザーを特定
//  2. 同じメールアドレスのローカルアカウントが存在すればgoogle_idを紐付ける
//  3. どちらも存在しなければパスワードなしのGoogleアカウントを新規作成する
func (s *Service) HandleGoogleCallback(ctx context.Context, code string) (*AuthResult, error) {
	profile, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	user, err := s.userRepo.FindByGoogleID(ctx, profile.Sub)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by google ID: %w", err)
	}

	if user == nil {
		email := normalizeEmail(profile.Email)
		user, err = s.userRepo.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to find user by email: %w", err)
		}

		if user != nil {
			// 同一メールアドレスの既存アカウントにGoogle IDを紐付ける
			if err := s.userRepo.LinkGoogleID(ctx, user.ID, profile.Sub); err != nil {
				return nil, fmt.Errorf("failed to link google ID: %w", err)
			}
			user.GoogleID = profile.Sub
			slog.Info("linked google account",
				slog.String("user_id", user.ID),
			)
		} else {
			now := time.Now()
			user = &model.User{
				ID:          uuid.New().String(),
				Name:        profile.Name,
				Email:       email,
				GoogleID:    profile.Sub,
				AccountType: model.AccountTypeGoogle,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.userRepo.Create(ctx, user); err != nil {
				return nil, fmt.Errorf("failed to create google user: %w", err)
			}
			slog.Info("new google user created",
				slog.String("user_id", user.ID),
				slog.String("email", user.Email),
			)
		}
	} else {
		slog.Info("existing google user logged in",
			slog.String("user_id", user.ID),
		)
	}

	return s.issueFor(user)
}

// issueFor は指定ユーザーのトークンを発行し、結果を組み立てる。
func (s *Service) issueFor(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &AuthResult{
		Token: token,
		User:  user,
	}, nil
}

// validateRegistration は登録入力を検証する。
func validateRegistration(name, email, password string) error {
	if name == "" {
		return model.NewValidationError("Name is required")
	}
	if email == "" {
		return model.NewValidationError("Email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return model.NewValidationError("Invalid email address")
	}
	if len(password) < passwordMinLength {
		return model.NewValidationError("Password must be at least 6 characters")
	}
	return nil
}

// normalizeEmail はメールアドレスを小文字・前後空白なしの正規形に変換する。
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
)

// SessionPhase はクライアント側の認証状態を表す。
type SessionPhase string

const (
	// PhaseIdle は初期化前の状態。
	PhaseIdle SessionPhase = "idle"
	// PhaseLoading はInitによる保存済みトークンの検証中の状態。
	// 検証が完了するまで初期表示はこの状態でブロックされる。
	PhaseLoading SessionPhase = "loading"
	// PhaseAuthenticated はログイン済みの状態。
	PhaseAuthenticated SessionPhase = "authenticated"
	// PhaseUnauthenticated は未ログインの状態。
	PhaseUnauthenticated SessionPhase = "unauthenticated"
	// PhaseError はOAuthコールバック処理の失敗を表す状態。
	PhaseError SessionPhase = "error"
)

// OAuthコールバック失敗時の診断コード。
// クライアントは未認証の入口画面にこのコードを添えて戻る。
const (
	// CallbackErrOAuthFailed はプロバイダーがエラーを返した、
	// またはコールバックのパラメータが不正だったことを示す。
	CallbackErrOAuthFailed = "oauth_failed"
	// CallbackErrNoToken はコールバックにトークンもエラーも
	// 含まれていなかったことを示す。
	CallbackErrNoToken = "no_token"
	// CallbackErrCallbackFailed はトークン保存後のプロフィール取得に
	// 失敗したことを示す。保存したトークンはロールバックされる。
	CallbackErrCallbackFailed = "callback_failed"
)

// CallbackError はOAuthコールバック処理の失敗を表す。
type CallbackError struct {
	Code string
}

// Error はerrorインターフェースを実装する。
func (e *CallbackError) Error() string {
	return fmt.Sprintf("oauth callback failed: %s", e.Code)
}

// SessionState はクライアント側の認証状態コンテナ。
// トークンの保存とユーザーの設定は常に一体で行い、
// トークンだけが保存されてユーザーが不明という中間状態を作らない。
// 唯一の例外はOAuthコールバック処理中で、プロフィール取得に失敗した場合は
// 保存済みトークンをロールバックする。
type SessionState struct {
	mu    sync.Mutex
	api   *Client
	store TokenStore

	phase SessionPhase
	user  *User
}

// NewSessionState はSessionStateを生成する。
// apiとstoreは同一のTokenStoreを共有していること。
func NewSessionState(api *Client, store TokenStore) *SessionState {
	return &SessionState{
		api:   api,
		store: store,
		phase: PhaseIdle,
	}
}

// Init は保存済みトークンからセッションを復元する。
// トークンが無効・期限切れの場合はトークンを破棄し未認証状態にする。
// アプリケーション起動時に1回だけ呼び出す。
func (s *SessionState) Init(ctx context.Context) error {
	s.mu.Lock()
	s.phase = PhaseLoading
	s.mu.Unlock()

	token, err := s.store.Load()
	if err != nil || token == "" {
		s.setUnauthenticated()
		return nil
	}

	user, err := s.api.Profile(ctx)
	if err != nil {
		// 無効なトークンは破棄して未認証に戻す
		if clearErr := s.store.Clear(); clearErr != nil {
			slog.Warn("failed to clear stored token", slog.String("error", clearErr.Error()))
		}
		s.setUnauthenticated()
		return nil
	}

	s.setAuthenticated(user)
	return nil
}

// Login はローカルアカウントでログインし、トークンとユーザーを設定する。
func (s *SessionState) Login(ctx context.Context, email, password string) error {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}

	return s.adopt(resp)
}

// Register はローカルアカウントを登録し、トークンとユーザーを設定する。
func (s *SessionState) Register(ctx context.Context, name, email, password string) error {
	resp, err := s.api.Register(ctx, name, email, password)
	if err != nil {
		return err
	}

	return s.adopt(resp)
}

// CompleteOAuthCallback はOAuthコールバックのクエリパラメータを処理する。
//
// 状態遷移: returned-with-token → トークン保存 → プロフィール取得 →
// authenticated。いずれかの失敗で保存済みトークンを破棄しerrorに遷移し、
// 呼び出し側は返された診断コード付きで未認証の入口画面に戻る。
func (s *SessionState) CompleteOAuthCallback(ctx context.Context, query url.Values) error {
	if errCode := query.Get("error"); errCode != "" {
		s.setError()
		return &CallbackError{Code: CallbackErrOAuthFailed}
	}

	token := query.Get("token")
	if token == "" {
		s.setError()
		return &CallbackError{Code: CallbackErrNoToken}
	}

	if err := s.store.Save(token); err != nil {
		s.setError()
		return &CallbackError{Code: CallbackErrCallbackFailed}
	}

	user, err := s.api.Profile(ctx)
	if err != nil {
		// プロフィール取得失敗時は保存したトークンをロールバックする
		if clearErr := s.store.Clear(); clearErr != nil {
			slog.Warn("failed to roll back stored token", slog.String("error", clearErr.Error()))
		}
		s.setError()
		return &CallbackError{Code: CallbackErrCallbackFailed}
	}

	s.setAuthenticated(user)
	return nil
}

// Logout はトークンを破棄しユーザーをクリアする。
// サーバーへの通知はベストエフォートで、失敗してもローカルの
// ログアウトは妨げない。
func (s *SessionState) Logout(ctx context.Context) error {
	if err := s.api.Logout(ctx); err != nil {
		slog.Warn("logout notification failed", slog.String("error", err.Error()))
	}

	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}

	s.setUnauthenticated()
	return nil
}

// Phase は現在のセッション状態を返す。
func (s *SessionState) Phase() SessionPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// CurrentUser は現在のユーザーを返す。未認証の場合はnilを返す。
func (s *SessionState) CurrentUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// adopt は認証レスポンスのトークンとユーザーを一体で取り込む。
func (s *SessionState) adopt(resp *AuthResponse) error {
	if err := s.store.Save(resp.Token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	user := resp.User
	s.setAuthenticated(&user)
	return nil
}

func (s *SessionState) setAuthenticated(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseAuthenticated
	s.user = user
}

func (s *SessionState) setUnauthenticated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseUnauthenticated
	s.user = nil
}

func (s *SessionState) setError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseError
	s.user = nil
}

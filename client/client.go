// Package client はTasky APIのGoクライアントを提供する。
//
// ClientはREST呼び出しの薄いラッパーで、保存済みトークンを
// Authorizationヘッダーに付与する。SessionStateとTaskStateは
// サーバーリソースをミラーするクライアント側の状態コンテナで、
// 同一のTokenStoreを共有して動作する。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError はサーバーが返した失敗レスポンスを表す。
type APIError struct {
	StatusCode int
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// User はAPIが返すユーザー情報。
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	AccountType string `json:"accountType"`
}

// Task はAPIが返すタスク情報。
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// AuthResponse は認証エンドポイントのレスポンス。
type AuthResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

// TaskFilter はタスク一覧の絞り込み条件。
// 空文字列のフィールドは条件として送信しない。
type TaskFilter struct {
	Status   string
	Priority string
}

// TaskInput はタスク作成の入力。
type TaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// TaskPatch はタスク部分更新の入力。nilフィールドは送信しない。
// 期限の解除はClearDueDateで指定する（サーバーには "dueDate": null として送る）。
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *string
	Priority     *string
	DueDate      *time.Time
	ClearDueDate bool
}

// MarshalJSON は指定されたフィールドのみをリクエストボディに含める。
func (p TaskPatch) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, 5)
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Status != nil {
		fields["status"] = *p.Status
	}
	if p.Priority != nil {
		fields["priority"] = *p.Priority
	}
	if p.ClearDueDate {
		fields["dueDate"] = nil
	} else if p.DueDate != nil {
		fields["dueDate"] = *p.DueDate
	}
	return json.Marshal(fields)
}

// Client はTasky APIへのHTTPクライアント。
// リクエストごとにTokenStoreからトークンを読み、ベアラートークンとして付与する。
type Client struct {
	baseURL string
	store   TokenStore
	httpc   *http.Client
}

// NewClient はClientを生成する。
// baseURLはAPIのルート（例: "http://localhost:8080"）。
// httpcがnilの場合は30秒タイムアウトのデフォルトクライアントを使用する。
func NewClient(baseURL string, store TokenStore, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		httpc:   httpc,
	}
}

// Register はユーザー登録を行う。トークンの保存は呼び出し側の責務とする。
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login はログインを行う。トークンの保存は呼び出し側の責務とする。
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Profile は保存済みトークンで現在のユーザーを取得する。
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/profile", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Logout はサーバーにログアウトを通知する。
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// ListTasks はタスク一覧を取得する。
func (c *Client) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	params := url.Values{}
	if filter.Status != "" {
		params.Set("status", filter.Status)
	}
	if filter.Priority != "" {
		params.Set("priority", filter.Priority)
	}

	path := "/api/tasks"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var tasks []Task
	if err := c.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask はタスク詳細を取得する。
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+id, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// taskMessageResponse は変更操作のレスポンス。
type taskMessageResponse struct {
	Message string `json:"message"`
	Task    Task   `json:"task"`
}

// CreateTask はタスクを作成し、サーバーが採番したレコードを返す。
func (c *Client) CreateTask(ctx context.Context, input TaskInput) (*Task, error) {
	var resp taskMessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/tasks", input, &resp); err != nil {
		return nil, err
	}
	return &resp.Task, nil
}

// UpdateTask はタスクを部分更新し、更新後のレコードを返す。
func (c *Client) UpdateTask(ctx context.Context, id string, patch TaskPatch) (*Task, error) {
	var resp taskMessageResponse
	if err := c.do(ctx, http.MethodPut, "/api/tasks/"+id, patch, &resp); err != nil {
		return nil, err
	}
	return &resp.Task, nil
}

// DeleteTask はタスクを削除する。
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+id, nil, nil)
}

// do はHTTPリクエストを実行し、レスポンスをoutにデコードする。
// 失敗レスポンス（2xx以外）は*APIErrorに変換する。
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, err := c.store.Load(); err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
		}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// errorMessage は失敗レスポンスのボディからmessageフィールドを取り出す。
// デコードできない場合は汎用メッセージを返す。
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return "request failed"
}

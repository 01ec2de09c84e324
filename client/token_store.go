package client

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// TokenStore はクライアント側のトークン永続化インターフェース。
// ブラウザ実装のlocalStorageに相当する。
type TokenStore interface {
	// Load は保存済みトークンを返す。未保存の場合は空文字列を返す。
	Load() (string, error)
	// Save はトークンを保存する。
	Save(token string) error
	// Clear は保存済みトークンを破棄する。未保存でもエラーにならない。
	Clear() error
}

// MemoryTokenStore はプロセス内のみで有効なTokenStore実装。
// 主にテストと短命なツールで使用する。
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryTokenStore はMemoryTokenStoreを生成する。
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// Load は保存済みトークンを返す。
func (s *MemoryTokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

// Save はトークンを保存する。
func (s *MemoryTokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

// Clear は保存済みトークンを破棄する。
func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// FileTokenStore はファイルにトークンを永続化するTokenStore実装。
// アプリケーション再起動をまたいでセッションを維持する。
type FileTokenStore struct {
	mu   sync.Mutex
	path string
}

// NewFileTokenStore はFileTokenStoreを生成する。
// pathはトークンファイルの保存先。
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Load は保存済みトークンを返す。ファイルが存在しない場合は空文字列を返す。
func (s *FileTokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

// Save はトークンを所有者のみ読み書き可能なファイルに保存する。
func (s *FileTokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.WriteFile(s.path, []byte(token), 0o600)
}

// Clear はトークンファイルを削除する。ファイルが存在しなくてもエラーにならない。
func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// compile-time interface check
var (
	_ TokenStore = (*MemoryTokenStore)(nil)
	_ TokenStore = (*FileTokenStore)(nil)
)

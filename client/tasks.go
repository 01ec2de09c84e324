package client

import (
	"context"
	"sync"
)

// TaskState はクライアント側のタスクキャッシュ。
// サーバーが返す作成日時降順の並びを保持し、各操作の成功時に
// キャッシュを更新する。すべての操作は開始時に前回のエラーをクリアし、
// 失敗時は単一のエラーとして保持する。
type TaskState struct {
	mu      sync.Mutex
	api     *Client
	tasks   []Task
	lastErr error
	loading bool
}

// NewTaskState はTaskStateを生成する。
func NewTaskState(api *Client) *TaskState {
	return &TaskState{api: api}
}

// Refresh はサーバーからタスク一覧を取得しキャッシュを丸ごと置き換える。
// 並行して複数のRefreshが走った場合は最後に完了したレスポンスが勝つ。
func (t *TaskState) Refresh(ctx context.Context, filter TaskFilter) error {
	t.mu.Lock()
	t.lastErr = nil
	t.loading = true
	t.mu.Unlock()

	tasks, err := t.api.ListTasks(ctx, filter)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.loading = false
	if err != nil {
		t.lastErr = err
		return err
	}
	t.tasks = tasks
	return nil
}

// Create はタスクを作成し、成功時にキャッシュの先頭へ追加する。
// 新しいタスクが作成日時降順の先頭に来るため、再取得なしで
// サーバーの並びと一致する。
func (t *TaskState) Create(ctx context.Context, input TaskInput) (*Task, error) {
	t.mu.Lock()
	t.lastErr = nil
	t.mu.Unlock()

	task, err := t.api.CreateTask(ctx, input)
	if err != nil {
		t.setErr(err)
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.tasks = append([]Task{*task}, t.tasks...)
	return task, nil
}

// Update はタスクを更新し、成功時にキャッシュ内の同一IDの要素を
// その場で置き換える。キャッシュに存在しない場合は何もしない。
func (t *TaskState) Update(ctx context.Context, id string, patch TaskPatch) (*Task, error) {
	t.mu.Lock()
	t.lastErr = nil
	t.mu.Unlock()

	task, err := t.api.UpdateTask(ctx, id, patch)
	if err != nil {
		t.setErr(err)
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.tasks {
		if t.tasks[i].ID == task.ID {
			t.tasks[i] = *task
			break
		}
	}
	return task, nil
}

// Delete はタスクを削除し、成功時にキャッシュから取り除く。
func (t *TaskState) Delete(ctx context.Context, id string) error {
	t.mu.Lock()
	t.lastErr = nil
	t.mu.Unlock()

	if err := t.api.DeleteTask(ctx, id); err != nil {
		t.setErr(err)
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.tasks[:0]
	for _, task := range t.tasks {
		if task.ID != id {
			kept = append(kept, task)
		}
	}
	t.tasks = kept
	return nil
}

// Tasks はキャッシュのスナップショットを返す。
func (t *TaskState) Tasks() []Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Task, len(t.tasks))
	copy(out, t.tasks)
	return out
}

// Err は最後に失敗した操作のエラーを返す。
func (t *TaskState) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Loading はRefreshが進行中かどうかを返す。
func (t *TaskState) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

func (t *TaskState) setErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastErr = err
}

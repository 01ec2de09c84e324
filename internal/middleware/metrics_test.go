package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type mockStatusRecorder struct {
	statuses  []int
	latencies []time.Duration
}

func (m *mockStatusRecorder) RecordHTTPStatus(statusCode int) {
	m.statuses = append(m.statuses, statusCode)
}

func (m *mockStatusRecorder) RecordRequestLatency(duration time.Duration) {
	m.latencies = append(m.latencies, duration)
}

var _ StatusRecorder = (*mockStatusRecorder)(nil)

func TestMetricsMiddleware_RecordsStatusAndLatency(t *testing.T) {
	recorder := &mockStatusRecorder{}

	handler := NewMetricsMiddleware(recorder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/missing", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(recorder.statuses) != 1 || recorder.statuses[0] != http.StatusNotFound {
		t.Errorf("statuses = %v, want [404]", recorder.statuses)
	}
	if len(recorder.latencies) != 1 {
		t.Errorf("len(latencies) = %d, want 1", len(recorder.latencies))
	}
}

func TestMetricsMiddleware_DefaultStatusIs200(t *testing.T) {
	recorder := &mockStatusRecorder{}

	// WriteHeaderを呼ばないハンドラー
	handler := NewMetricsMiddleware(recorder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(recorder.statuses) != 1 || recorder.statuses[0] != http.StatusOK {
		t.Errorf("statuses = %v, want [200]", recorder.statuses)
	}
}

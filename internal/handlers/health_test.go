package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthCheck(t *testing.T) {
	env := setupTestEnv(t)

	w := httptest.NewRecorder()
	env.h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status before ready = %d, want 503", w.Code)
	}
	var resp HealthResponse
	decodeBody(t, w, &resp)
	if resp.Status != statusStarting || resp.Ready {
		t.Errorf("response = %+v", resp)
	}

	env.h.SetReady(true)
	w = httptest.NewRecorder()
	env.h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	if w.Code != http.StatusOK {
		t.Errorf("status after ready = %d, want 200", w.Code)
	}
	decodeBody(t, w, &resp)
	if resp.Status != statusHealthy || resp.Database != "ok" || resp.NumCPU == 0 {
		t.Errorf("response = %+v", resp)
	}
}

func TestHealthCheckDegraded(t *testing.T) {
	env := setupTestEnv(t)
	env.h.SetReady(true)
	env.db.Close()

	w := httptest.NewRecorder()
	env.h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	var resp HealthResponse
	decodeBody(t, w, &resp)
	if resp.Status != statusDegraded || resp.Database != "unreachable" {
		t.Errorf("response = %+v", resp)
	}
}

func TestLivenessCheck(t *testing.T) {
	h := New(nil, nil, nil, nil)

	tests := []struct {
		method   string
		wantBody bool
	}{
		{http.MethodGet, true},
		{http.MethodHead, false},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.LivenessCheck(w, httptest.NewRequest(tt.method, "/livez", http.NoBody))

			if w.Code != http.StatusOK {
				t.Errorf("status = %d", w.Code)
			}
			if got := w.Body.Len() > 0; got != tt.wantBody {
				t.Errorf("has body = %v, want %v", got, tt.wantBody)
			}
		})
	}
}

func TestReadinessCheck(t *testing.T) {
	h := New(nil, nil, nil, nil)

	w := httptest.NewRecorder()
	h.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status before ready = %d", w.Code)
	}

	h.SetReady(true)
	w = httptest.NewRecorder()
	h.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	if w.Code != http.StatusOK {
		t.Errorf("status after ready = %d", w.Code)
	}
}

type fakeMonitor struct {
	usage  float64
	paused bool
}

func (f *fakeMonitor) Wait(context.Context) error { return nil }

func (f *fakeMonitor) GetStats() (current, limit int64, usage float64) {
	return 80, 100, f.usage
}

func (f *fakeMonitor) IsPaused() bool { return f.paused }

func TestHealthCheckReportsMemory(t *testing.T) {
	env := setupTestEnv(t)
	h := New(env.db, env.svc, nil, &fakeMonitor{usage: 0.8, paused: true})
	h.SetReady(true)

	w := httptest.NewRecorder()
	h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	var resp HealthResponse
	decodeBody(t, w, &resp)
	if resp.MemoryUsage == nil || *resp.MemoryUsage != 0.8 || !resp.MemoryPaused {
		t.Errorf("memory fields = %v, %v", resp.MemoryUsage, resp.MemoryPaused)
	}
}

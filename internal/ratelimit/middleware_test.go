package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/arcadia-sms/arcadia/internal/audit"
)

type captureRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureRecorder) Record(_ context.Context, ev audit.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "forwarded for single",
			remoteAddr: "10.0.0.1:4000",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded for chain takes first",
			remoteAddr: "10.0.0.1:4000",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 70.1.2.3, 10.0.0.1"},
			want:       "203.0.113.7",
		},
		{
			name:       "real ip fallback",
			remoteAddr: "10.0.0.1:4000",
			headers:    map[string]string{"X-Real-IP": "198.51.100.2"},
			want:       "198.51.100.2",
		},
		{
			name:       "forwarded for wins over real ip",
			remoteAddr: "10.0.0.1:4000",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "198.51.100.2"},
			want:       "203.0.113.7",
		},
		{
			name:       "remote addr strips port",
			remoteAddr: "192.0.2.9:51234",
			want:       "192.0.2.9",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.0.2.9",
			want:       "192.0.2.9",
		},
		{
			name: "nothing available",
			want: UnknownClient,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tc.want {
				t.Fatalf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMiddlewareLimitsPerClass(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := &captureRecorder{}
	m := NewMiddleware(NewMemoryLimiter(), map[Class]Policy{
		ClassAuth:    {MaxRequests: 2, Window: time.Minute, BlockFor: 15 * time.Minute},
		ClassDefault: {MaxRequests: 100, Window: time.Minute, BlockFor: time.Minute},
	}, logger, nil, rec)

	handler := m.Limit(ClassAuth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		r.RemoteAddr = "203.0.113.7:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	for i := 0; i < 2; i++ {
		w := do()
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, w.Code)
		}
		if w.Header().Get("X-RateLimit-Limit") != "2" {
			t.Fatalf("missing X-RateLimit-Limit header")
		}
	}

	w := do()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != 1 {
		t.Fatalf("audit events = %d, want 1", len(rec.events))
	}
	if rec.events[0].Type != audit.EventRateLimitBlocked {
		t.Fatalf("event type = %q", rec.events[0].Type)
	}
	if rec.events[0].Action != string(ClassAuth) {
		t.Fatalf("event action = %q", rec.events[0].Action)
	}
}

func TestMiddlewareUnknownClassFallsBack(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewMiddleware(NewMemoryLimiter(), map[Class]Policy{
		ClassDefault: {MaxRequests: 1, Window: time.Minute, BlockFor: time.Minute},
	}, logger, nil, audit.NewLogRecorder(logger))

	handler := m.Limit(Class("unconfigured"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", w.Code)
	}
}

package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"slotbook/pkg/logger"
	"slotbook/pkg/model"

	"github.com/redis/go-redis/v9"
)

func newTestLogger() *logger.Logger {
	return logger.Discard()
}

func withActor(r *http.Request, id string, role model.ActorRole) *http.Request {
	r.Header.Set(HeaderActorID, id)
	r.Header.Set(HeaderActorRole, string(role))
	return r
}

func TestIdentity(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		role    string
		wantOK  bool
		wantKey string
	}{
		{name: "provider", id: "trainer-1", role: "provider", wantOK: true, wantKey: "provider:trainer-1"},
		{name: "role is case insensitive", id: "client-a", role: " Client ", wantOK: true, wantKey: "client:client-a"},
		{name: "missing id", role: "client", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Actor
			var ok bool
			h := Identity()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, ok = ActorFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(HeaderActorID, tt.id)
			req.Header.Set(HeaderActorRole, tt.role)
			h.ServeHTTP(httptest.NewRecorder(), req)

			if ok != tt.wantOK {
				t.Fatalf("ActorFromContext ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Key() != tt.wantKey {
				t.Errorf("Key() = %q, want %q", got.Key(), tt.wantKey)
			}
		})
	}
}

func TestActorRateLimiter_Allow(t *testing.T) {
	rl := NewActorRateLimiter(2, time.Minute)
	defer rl.Stop()

	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow(context.Background(), "client:a"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if ok, _ := rl.Allow(context.Background(), "client:a"); ok {
		t.Error("third request inside the window should be rejected")
	}
	if ok, _ := rl.Allow(context.Background(), "client:b"); !ok {
		t.Error("other actors have their own budget")
	}
	if ok, _ := rl.Allow(context.Background(), ""); !ok {
		t.Error("anonymous requests bypass the limiter")
	}

	now = now.Add(time.Minute)
	if ok, _ := rl.Allow(context.Background(), "client:a"); !ok {
		t.Error("budget should refill after the window")
	}
}

type limiterFunc func(ctx context.Context, key string) (bool, error)

func (f limiterFunc) Allow(ctx context.Context, key string) (bool, error) {
	return f(ctx, key)
}

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		allowed    bool
		err        error
		withActor  bool
		wantStatus int
	}{
		{name: "allowed", allowed: true, withActor: true, wantStatus: http.StatusOK},
		{name: "over budget", allowed: false, withActor: true, wantStatus: http.StatusTooManyRequests},
		{name: "limiter down fails open", err: errors.New("redis: connection refused"), withActor: true, wantStatus: http.StatusOK},
		{name: "anonymous skips limiter", allowed: false, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seenKey string
			limiter := limiterFunc(func(ctx context.Context, key string) (bool, error) {
				seenKey = key
				return tt.allowed, tt.err
			})

			h := Identity()(RateLimit(limiter, nil, newTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations", nil)
			if tt.withActor {
				withActor(req, "client-a", model.RoleClient)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.withActor && seenKey != "client:client-a" {
				t.Errorf("limiter keyed by %q", seenKey)
			}
			if !tt.withActor && seenKey != "" {
				t.Error("limiter should not be consulted without an actor")
			}
		})
	}
}

// fakeScripter answers EVALSHA with a fixed script result.
type fakeScripter struct {
	result any
	err    error
	keys   []string
	args   []any
}

func (f *fakeScripter) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return f.EvalSha(ctx, "", keys, args...)
}

func (f *fakeScripter) EvalSha(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	f.keys, f.args = keys, args
	return redis.NewCmdResult(f.result, f.err)
}

func (f *fakeScripter) EvalRO(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return f.Eval(ctx, script, keys, args...)
}

func (f *fakeScripter) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	return f.EvalSha(ctx, sha1, keys, args...)
}

func (f *fakeScripter) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult([]bool{true}, nil)
}

func (f *fakeScripter) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}

func TestRedisRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name    string
		result  any
		err     error
		want    bool
		wantErr bool
	}{
		{name: "first hit", result: int64(1), want: true},
		{name: "at limit", result: int64(3), want: true},
		{name: "over limit", result: int64(4), want: false},
		{name: "string count", result: "2", want: true},
		{name: "unexpected type", result: []any{}, wantErr: true},
		{name: "redis error", err: errors.New("timeout"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scripter := &fakeScripter{result: tt.result, err: tt.err}
			rl := NewRedisRateLimiter(scripter, 3, 30*time.Second, "")

			got, err := rl.Allow(context.Background(), "client:a")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Allow() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Allow() = %v, want %v", got, tt.want)
			}
			if len(scripter.keys) != 1 || scripter.keys[0] != "slotbook:rl:client:a" {
				t.Errorf("unexpected keys %v", scripter.keys)
			}
			if len(scripter.args) != 1 || scripter.args[0] != int64(30000) {
				t.Errorf("window should be passed in milliseconds, got %v", scripter.args)
			}
		})
	}
}

func TestIdempotency_ReplaysPerActor(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls atomic.Int32
	h := Identity()(Idempotency(store, "", newTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte{byte('0' + n)})
	})))

	send := func(actorID, key string) *httptest.ResponseRecorder {
		req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader("{}")), actorID, model.RoleClient)
		if key != "" {
			req.Header.Set(DefaultIdempotencyHeader, key)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	first := send("client-a", "k1")
	replay := send("client-a", "k1")
	if replay.Body.String() != first.Body.String() || replay.Code != http.StatusCreated {
		t.Errorf("replay = %d %q, want %d %q", replay.Code, replay.Body.String(), first.Code, first.Body.String())
	}
	if replay.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("replayed response should be marked")
	}

	other := send("client-b", "k1")
	if other.Body.String() == first.Body.String() {
		t.Error("another actor must not receive a cached response")
	}

	send("client-a", "")
	if got := calls.Load(); got != 3 {
		t.Errorf("handler calls = %d, want 3", got)
	}
}

func TestIdempotency_SkipsFailuresAndReads(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls atomic.Int32
	h := Identity()(Idempotency(store, "", newTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusOK)
	})))

	for _, method := range []string{http.MethodPost, http.MethodPost, http.MethodGet, http.MethodGet} {
		req := withActor(httptest.NewRequest(method, "/api/v1/reservations", nil), "client-a", model.RoleClient)
		req.Header.Set(DefaultIdempotencyHeader, "k1")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	if got := calls.Load(); got != 4 {
		t.Errorf("handler calls = %d, want 4", got)
	}
}

func TestContentTypeValidation(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		wantStatus  int
	}{
		{name: "json post", method: http.MethodPost, body: "{}", contentType: "application/json; charset=utf-8", wantStatus: http.StatusOK},
		{name: "form post", method: http.MethodPost, body: "a=b", contentType: "application/x-www-form-urlencoded", wantStatus: http.StatusUnsupportedMediaType},
		{name: "empty post", method: http.MethodPost, wantStatus: http.StatusOK},
		{name: "get", method: http.MethodGet, wantStatus: http.StatusOK},
	}

	h := ContentTypeValidation(newTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, "/", body)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestRequestTimeout(t *testing.T) {
	h := RequestTimeout(10*time.Millisecond, newTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "TIMEOUT") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestRequestTimeout_PassesThroughFastResponses(t *testing.T) {
	h := RequestTimeout(time.Second, newTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom", "1")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	if w.Code != http.StatusCreated || w.Body.String() != `{"ok":true}` || w.Header().Get("X-Custom") != "1" {
		t.Errorf("got %d %q %v", w.Code, w.Body.String(), w.Header())
	}
}

func TestRequestTimeout_PanicReachesRecovery(t *testing.T) {
	h := Recovery(newTestLogger())(RequestTimeout(time.Second, newTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestRecovery(t *testing.T) {
	h := RequestLogging(newTestLogger())(Recovery(newTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	h.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if w.Header().Get(RequestIDHeader) != "req-1" {
		t.Error("inbound request id should be echoed")
	}
}

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

// memoryAttemptStore keeps real attempt timestamps so the sliding window
// behaves like the redis store does.
type memoryAttemptStore struct {
	attempts map[string][]time.Time
	failWith error
}

func newMemoryAttemptStore() *memoryAttemptStore {
	return &memoryAttemptStore{attempts: make(map[string][]time.Time)}
}

func (m *memoryAttemptStore) within(key string, window time.Duration, reference time.Time) []time.Time {
	cutoff := reference.Add(-window)
	kept := make([]time.Time, 0, len(m.attempts[key]))
	for _, at := range m.attempts[key] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	return kept
}

func (m *memoryAttemptStore) TrimWindow(_ context.Context, key string, window time.Duration, reference time.Time) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.attempts[key] = m.within(key, window, reference)
	return nil
}

func (m *memoryAttemptStore) CountAttempts(_ context.Context, key string, window time.Duration, reference time.Time) (int, error) {
	if m.failWith != nil {
		return 0, m.failWith
	}
	return len(m.within(key, window, reference)), nil
}

func (m *memoryAttemptStore) RecordAttempt(_ context.Context, key string, at time.Time) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.attempts[key] = append(m.attempts[key], at)
	return nil
}

func (m *memoryAttemptStore) OldestAttempt(_ context.Context, key string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	if m.failWith != nil {
		return time.Time{}, false, m.failWith
	}
	kept := m.within(key, window, reference)
	if len(kept) == 0 {
		return time.Time{}, false, nil
	}
	oldest := kept[0]
	for _, at := range kept[1:] {
		if at.Before(oldest) {
			oldest = at
		}
	}
	return oldest, true, nil
}

func loginRouter(t *testing.T, store RateLimitStore, clock func() time.Time) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).WithClock(clock)

	router := gin.New()
	router.POST("/api/v1/auth/login",
		limiter.RateLimit(RateLimitRule{
			Name:       "auth_login_ip",
			Limit:      3,
			Window:     time.Minute,
			Identifier: ClientIPIdentifier(),
		}),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"access_token": "stub"})
		},
	)
	return router
}

func postLogin(router *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "198.51.100.7:51430"
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestLoginRateLimitCountsDownRemaining(t *testing.T) {
	now := time.Date(2025, 11, 18, 9, 0, 0, 0, time.UTC)
	store := newMemoryAttemptStore()
	router := loginRouter(t, store, func() time.Time { return now })

	for attempt, wantRemaining := range []string{"2", "1", "0"} {
		rr := postLogin(router)
		if rr.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", attempt+1, rr.Code)
		}
		if got := rr.Header().Get("X-RateLimit-Limit"); got != "3" {
			t.Fatalf("attempt %d: expected limit header 3, got %q", attempt+1, got)
		}
		if got := rr.Header().Get("X-RateLimit-Remaining"); got != wantRemaining {
			t.Fatalf("attempt %d: expected remaining %s, got %q", attempt+1, wantRemaining, got)
		}
		if got := rr.Header().Get("Retry-After"); got != "" {
			t.Fatalf("attempt %d: unexpected retry-after %q", attempt+1, got)
		}
	}

	if got := len(store.attempts["auth_login_ip:198.51.100.7"]); got != 3 {
		t.Fatalf("expected 3 recorded attempts, got %d", got)
	}
}

func TestLoginRateLimitBlocksWhenExhausted(t *testing.T) {
	start := time.Date(2025, 11, 18, 9, 0, 0, 0, time.UTC)
	now := start
	store := newMemoryAttemptStore()
	router := loginRouter(t, store, func() time.Time { return now })

	for i := 0; i < 3; i++ {
		if rr := postLogin(router); rr.Code != http.StatusOK {
			t.Fatalf("warm-up attempt %d: expected 200, got %d", i+1, rr.Code)
		}
		now = now.Add(5 * time.Second)
	}

	// Fourth attempt at start+15s. The oldest attempt leaves the window at
	// start+60s, so the client should wait 45 seconds.
	rr := postLogin(router)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "45" {
		t.Fatalf("expected retry-after 45, got %q", got)
	}
	if got := len(store.attempts["auth_login_ip:198.51.100.7"]); got != 3 {
		t.Fatalf("blocked attempt must not be recorded, got %d attempts", got)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rr.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to decode problem body: %v", err)
	}
	if problem.Status != http.StatusTooManyRequests {
		t.Fatalf("unexpected problem status %d", problem.Status)
	}
	if problem.RetryAfter != 45 {
		t.Fatalf("expected problem retry_after 45, got %d", problem.RetryAfter)
	}
	if problem.Instance != "/api/v1/auth/login" {
		t.Fatalf("unexpected problem instance %q", problem.Instance)
	}
	if !strings.Contains(problem.Type, "rate-limit-exceeded") {
		t.Fatalf("unexpected problem type %q", problem.Type)
	}
}

func TestLoginRateLimitRecoversAfterWindow(t *testing.T) {
	start := time.Date(2025, 11, 18, 9, 0, 0, 0, time.UTC)
	now := start
	store := newMemoryAttemptStore()
	router := loginRouter(t, store, func() time.Time { return now })

	for i := 0; i < 3; i++ {
		postLogin(router)
	}
	if rr := postLogin(router); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 while exhausted, got %d", rr.Code)
	}

	now = start.Add(time.Minute + time.Second)
	if rr := postLogin(router); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 after the window passed, got %d", rr.Code)
	}
}

func TestPasswordResetRateLimitFailsOpenOnStoreError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := newMemoryAttemptStore()
	store.failWith = errors.New("redis unavailable")

	limiter := NewRateLimiter(store, zaptest.NewLogger(t))

	router := gin.New()
	router.POST("/api/v1/password/reset/request",
		limiter.RateLimit(RateLimitRule{
			Name:       "password_reset_ip",
			Limit:      3,
			Window:     time.Hour,
			Identifier: ClientIPIdentifier(),
		}),
		func(c *gin.Context) {
			c.Status(http.StatusAccepted)
		},
	)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/password/reset/request", nil)
	req.RemoteAddr = "198.51.100.7:51430"
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202 when failing open, got %d", rr.Code)
	}
	if got := len(store.attempts["password_reset_ip:198.51.100.7"]); got != 0 {
		t.Fatalf("expected no recorded attempts on store failure, got %d", got)
	}
}

func TestRateLimitSkipsWithoutIdentifier(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := newMemoryAttemptStore()
	limiter := NewRateLimiter(store, zaptest.NewLogger(t))

	router := gin.New()
	router.POST("/api/v1/auth/login",
		limiter.RateLimit(RateLimitRule{
			Name:   "auth_login_ip",
			Limit:  1,
			Window: time.Minute,
			Identifier: func(c *gin.Context) (string, bool) {
				return "", false
			},
		}),
		func(c *gin.Context) {
			c.Status(http.StatusOK)
		},
	)

	for i := 0; i < 3; i++ {
		rr := postLogin(router)
		if rr.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200 without identifier, got %d", i+1, rr.Code)
		}
		if got := rr.Header().Get("X-RateLimit-Limit"); got != "" {
			t.Fatalf("attempt %d: unexpected limit header %q", i+1, got)
		}
	}

	if len(store.attempts) != 0 {
		t.Fatalf("expected no recorded attempts, got %v", store.attempts)
	}
}

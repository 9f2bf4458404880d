package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/core/domain"
	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/core/port"
	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/infra/config"
)

type mockAccountRepository struct {
	CreateFn               func(ctx context.Context, account domain.Account) error
	GetByIDFn              func(ctx context.Context, id string) (*domain.Account, error)
	GetByEmailFn           func(ctx context.Context, email string) (*domain.Account, error)
	SetPendingResetFn      func(ctx context.Context, id string, reset domain.PendingReset) error
	CompletePasswordResetFn func(ctx context.Context, id, passwordHash, presentedCode string, changedAt time.Time) error
	UpdatePasswordFn       func(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	UpdateProfileFn        func(ctx context.Context, id string, name *string) error
	UpdateProfilePictureFn func(ctx context.Context, id, pictureURL string) error
}

func (m *mockAccountRepository) Create(ctx context.Context, account domain.Account) error {
	return m.CreateFn(ctx, account)
}

func (m *mockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return m.GetByIDFn(ctx, id)
}

func (m *mockAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return m.GetByEmailFn(ctx, email)
}

func (m *mockAccountRepository) SetPendingReset(ctx context.Context, id string, reset domain.PendingReset) error {
	return m.SetPendingResetFn(ctx, id, reset)
}

func (m *mockAccountRepository) CompletePasswordReset(ctx context.Context, id, passwordHash, presentedCode string, changedAt time.Time) error {
	return m.CompletePasswordResetFn(ctx, id, passwordHash, presentedCode, changedAt)
}

func (m *mockAccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	return m.UpdatePasswordFn(ctx, id, passwordHash, changedAt)
}

func (m *mockAccountRepository) UpdateProfile(ctx context.Context, id string, name *string) error {
	return m.UpdateProfileFn(ctx, id, name)
}

func (m *mockAccountRepository) UpdateProfilePicture(ctx context.Context, id, pictureURL string) error {
	return m.UpdateProfilePictureFn(ctx, id, pictureURL)
}

var _ port.AccountRepository = (*mockAccountRepository)(nil)

type mockEventPublisher struct {
	mu              sync.Mutex
	registered      []domain.AccountRegisteredEvent
	passwordChanges []domain.PasswordChangedEvent
	resetRequests   []domain.PasswordResetRequestedEvent
	err             error
}

func (m *mockEventPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered = append(m.registered, event)
	return m.err
}

func (m *mockEventPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passwordChanges = append(m.passwordChanges, event)
	return m.err
}

func (m *mockEventPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetRequests = append(m.resetRequests, event)
	return m.err
}

var _ port.EventPublisher = (*mockEventPublisher)(nil)

// memoryRateLimitStore keeps attempts in a map so limiter behavior can be
// exercised without Redis.
type memoryRateLimitStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	err      error
}

func newMemoryRateLimitStore() *memoryRateLimitStore {
	return &memoryRateLimitStore{attempts: make(map[string][]time.Time)}
}

func (m *memoryRateLimitStore) TrimWindow(_ context.Context, identifier string, window time.Duration, reference time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := reference.Add(-window)
	kept := m.attempts[identifier][:0]
	for _, at := range m.attempts[identifier] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	m.attempts[identifier] = kept
	return nil
}

func (m *memoryRateLimitStore) CountAttempts(_ context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := reference.Add(-window)
	count := 0
	for _, at := range m.attempts[identifier] {
		if at.After(cutoff) {
			count++
		}
	}
	return count, nil
}

func (m *memoryRateLimitStore) RecordAttempt(_ context.Context, identifier string, at time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[identifier] = append(m.attempts[identifier], at)
	return nil
}

func (m *memoryRateLimitStore) OldestAttempt(_ context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	if m.err != nil {
		return time.Time{}, false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := reference.Add(-window)
	var oldest time.Time
	found := false
	for _, at := range m.attempts[identifier] {
		if !at.After(cutoff) {
			continue
		}
		if !found || at.Before(oldest) {
			oldest = at
			found = true
		}
	}
	return oldest, found, nil
}

var _ port.RateLimitStore = (*memoryRateLimitStore)(nil)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		App: config.AppSettings{
			Name: "phonecare-auth",
			Env:  "test",
		},
		JWT: config.JWTSettings{
			Secret:         "unit-test-secret",
			Issuer:         "phonecare-auth",
			AccessTokenTTL: time.Hour,
		},
		OTP: config.OTPSettings{
			TTL: 10 * time.Minute,
		},
		Password: config.PasswordSettings{
			MinLength:      6,
			ChangeCooldown: 7 * 24 * time.Hour,
		},
		RateLimit: config.RateLimitSettings{
			WindowDuration:           time.Hour,
			LoginMaxAttempts:         5,
			RegisterMaxAttempts:      10,
			PasswordResetMaxAttempts: 3,
		},
	}
}

package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/core/domain"
	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/infra/security"
	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/repository"
)

func newAuthService(t *testing.T, accounts *mockAccountRepository, events *mockEventPublisher) *AuthService {
	t.Helper()

	cfg := testConfig()
	issuer, err := security.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}

	svc, err := NewAuthService(cfg, accounts, newMemoryRateLimitStore(), events, issuer, nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewAuthService returned error: %v", err)
	}
	return svc
}

func TestRegisterCreatesAccount(t *testing.T) {
	var created *domain.Account
	accounts := &mockAccountRepository{
		GetByEmailFn: func(_ context.Context, _ string) (*domain.Account, error) {
			return nil, repository.ErrNotFound
		},
		CreateFn: func(_ context.Context, account domain.Account) error {
			created = &account
			return nil
		},
	}
	events := &mockEventPublisher{}
	svc := newAuthService(t, accounts, events)

	profile, err := svc.Register(context.Background(), RegisterInput{
		Email:    "Jane@Example.com",
		Name:     "Jane",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if created == nil {
		t.Fatal("expected Create to be called")
	}
	if created.Email != "jane@example.com" {
		t.Fatalf("email not normalized: %s", created.Email)
	}
	if created.PasswordHash == "secret1" || created.PasswordHash == "" {
		t.Fatal("password must be stored as a digest")
	}
	if !security.VerifyPassword("secret1", created.PasswordHash) {
		t.Fatal("stored digest does not verify the original password")
	}
	if profile.Email != "jane@example.com" {
		t.Fatalf("unexpected profile email: %s", profile.Email)
	}
	if len(events.registered) != 1 {
		t.Fatalf("expected one registration event, got %d", len(events.registered))
	}
	if events.registered[0].AccountID != created.ID {
		t.Fatalf("event account id mismatch: %s != %s", events.registered[0].AccountID, created.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	existing := &domain.Account{ID: "acct-1", Email: "jane@example.com"}
	accounts := &mockAccountRepository{
		GetByEmailFn: func(_ context.Context, _ string) (*domain.Account, error) {
			return existing, nil
		},
	}
	svc := newAuthService(t, accounts, &mockEventPublisher{})

	_, err := svc.Register(context.Background(), RegisterInput{Email: "jane@example.com", Password: "secret1"})
	if !errors.Is(err, ErrEmailAlreadyRegistered) {
		t.Fatalf("expected ErrEmailAlreadyRegistered, got %v", err)
	}
}

func TestRegisterDuplicateFromConstraint(t *testing.T) {
	accounts := &mockAccountRepository{
		GetByEmailFn: func(_ context.Context, _ string) (*domain.Account, error) {
			return nil, repository.ErrNotFound
		},
		CreateFn: func(_ context.Context, _ domain.Account) error {
			return repository.ErrDuplicate
		},
	}
	svc := newAuthService(t, accounts, &mockEventPublisher{})

	_, err := svc.Register(context.Background(), RegisterInput{Email: "jane@example.com", Password: "secret1"})
	if !errors.Is(err, ErrEmailAlreadyRegistered) {
		t.Fatalf("expected ErrEmailAlreadyRegistered, got %v", err)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	accounts := &mockAccountRepository{
		GetByEmailFn: func(_ context.Context, _ string) (*domain.Account, error) {
			t.Fatal("lookup must not run for a rejected password")
			return nil, nil
		},
	}
	svc := newAuthService(t, accounts, &mockEventPublisher{})

	_, err := svc.Register(context.Background(), RegisterInput{Email: "jane@example.com", Password: "abc"})
	if !errors.Is(err, ErrPasswordPolicyViolation) {
		t.Fatalf("expected ErrPasswordPolicyViolation, got %v", err)
	}
}

func TestLoginSuccess(t *testing.T) {
	hash, err := security.HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	account := &domain.Account{ID: "acct-1", Email: "jane@example.com", PasswordHash: hash}
	accounts := &mockAccountRepository{
		GetByEmailFn: func(_ context.Context, email string) (*domain.Account, error) {
			if email != "jane@example.com" {
				t.Fatalf("unexpected lookup email: %s", email)
			}
			return account, nil
		},
	}
	svc := newAuthService(t, accounts, &mockEventPublisher{})

	result, err := svc.Login(context.Background(), LoginInput{Email: " Jane@Example.com ", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.AccessToken == "" {
		t.Fatal("expected an access token")
	}
	if result.ExpiresIn != time.Hour {
		t.Fatalf("unexpected token lifetime: %s", result.ExpiresIn)
	}
	if result.Account.ID != "acct-1" {
		t.Fatalf("unexpected account id: %s", result.Account.ID)
	}

	claims, err := svc.ParseAccessToken(result.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken returned error: %v", err)
	}
	if claims.Subject != "acct-1" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Email != "jane@example.com" {
		t.Fatalf("unexpected email claim: %s", claims.Email)
	}
}

func TestLoginUnknownEmailAndWrongPasswordLookAlike(t *testing.T) {
	hash, err := security.HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	accounts := &mockAccountRepository{
		GetByEmailFn: func(_ context.Context, email string) (*domain.Account, error) {
			if email == "jane@example.com" {
				return &domain.Account{ID: "acct-1", Email: email, PasswordHash: hash}, nil
			}
			return nil, repository.ErrNotFound
		},
	}
	svc := newAuthService(t, accounts, &mockEventPublisher{})

	_, unknownErr := svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "secret1"})
	_, wrongErr := svc.Login(context.Background(), LoginInput{Email: "jane@example.com", Password: "not-it"})

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", unknownErr)
	}
	if !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("error messages differ: %q vs %q", unknownErr, wrongErr)
	}
}

func TestLoginRateLimited(t *testing.T) {
	accounts := &mockAccountRepository{
		GetByEmailFn: func(_ context.Context, _ string) (*domain.Account, error) {
			return nil, repository.ErrNotFound
		},
	}
	svc := newAuthService(t, accounts, &mockEventPublisher{})
	base := time.Date(2025, 11, 18, 9, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return base })

	for i := 0; i < 5; i++ {
		if _, err := svc.Login(context.Background(), LoginInput{Email: "jane@example.com", Password: "nope"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	_, err := svc.Login(context.Background(), LoginInput{Email: "jane@example.com", Password: "nope"})
	var limitErr *RateLimitExceededError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected RateLimitExceededError, got %v", err)
	}
	if limitErr.Scope != "login" {
		t.Fatalf("unexpected scope: %s", limitErr.Scope)
	}
	if limitErr.RetryAfter <= 0 || limitErr.RetryAfter > time.Hour {
		t.Fatalf("unexpected retry-after: %s", limitErr.RetryAfter)
	}

	// A different identifier keeps its own budget.
	if _, err := svc.Login(context.Background(), LoginInput{Email: "other@example.com", Password: "nope"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("other identifier should not be limited, got %v", err)
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testConfig()
	issuer, err := security.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}
	issuedAt := time.Date(2025, 11, 18, 9, 0, 0, 0, time.UTC)
	issuer.WithClock(func() time.Time { return issuedAt })

	token, err := issuer.Issue("acct-1", "jane@example.com")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	issuer.WithClock(func() time.Time { return issuedAt.Add(2 * time.Hour) })
	svc, err := NewAuthService(cfg, &mockAccountRepository{}, nil, nil, issuer, nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewAuthService returned error: %v", err)
	}

	if _, err := svc.ParseAccessToken(token); !errors.Is(err, ErrExpiredAccessToken) {
		t.Fatalf("expected ErrExpiredAccessToken, got %v", err)
	}
	if _, err := svc.ParseAccessToken("not-a-token"); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected ErrInvalidAccessToken, got %v", err)
	}
}

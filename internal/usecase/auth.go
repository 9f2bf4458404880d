package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/core/domain"
	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/core/port"
	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/infra/config"
	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/infra/security"
	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/repository"
)

const (
	loginRateLimitScope    = "login"
	registerRateLimitScope = "register"
)

// AuthService coordinates registration and authentication flows.
type AuthService struct {
	cfg               *config.AppConfig
	accounts          port.AccountRepository
	events            port.EventPublisher
	tokens            *security.TokenIssuer
	passwordValidator *security.PasswordValidator
	rateLimits        *rateLimitGuard
	logger            *zap.Logger
	now               func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	cfg *config.AppConfig,
	accounts port.AccountRepository,
	rateLimits port.RateLimitStore,
	events port.EventPublisher,
	tokens *security.TokenIssuer,
	validator *security.PasswordValidator,
	logger *zap.Logger,
) (*AuthService, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	if validator == nil {
		validator = security.DefaultPasswordValidator(cfg.Password.MinLength, cfg.Password.MinStrength)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthService{
		cfg:               cfg,
		accounts:          accounts,
		events:            events,
		tokens:            tokens,
		passwordValidator: validator,
		rateLimits:        newRateLimitGuard(rateLimits, logger),
		logger:            logger,
		now:               time.Now,
	}, nil
}

// WithClock allows tests to override the clock used by the service.
func (s *AuthService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// RegisterInput captures the payload for account creation.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
	IP       string
}

// Register creates an account and returns its public projection. The email
// uniqueness index is authoritative: the lookup below is a fast path only,
// and a constraint violation from Create maps to the same error.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (domain.PublicProfile, error) {
	var zero domain.PublicProfile

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return zero, fmt.Errorf("email is required")
	}
	password := strings.TrimSpace(input.Password)
	if password == "" {
		return zero, fmt.Errorf("password is required")
	}

	now := s.now().UTC()
	if err := s.rateLimits.check(ctx, registerRateLimitScope, input.IP, s.cfg.RateLimit.RegisterMaxAttempts, s.cfg.RateLimit.WindowDuration, now); err != nil {
		return zero, err
	}

	if err := s.passwordValidator.Validate(password); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return zero, ErrEmailAlreadyRegistered
	} else if !errors.Is(err, repository.ErrNotFound) {
		return zero, fmt.Errorf("lookup account: %w", err)
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return zero, fmt.Errorf("hash password: %w", err)
	}

	account := domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		RegisteredAt: now,
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		account.Name = &name
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return zero, ErrEmailAlreadyRegistered
		}
		return zero, fmt.Errorf("create account: %w", err)
	}

	s.publishRegisteredEvent(ctx, account)

	return account.Public(), nil
}

// LoginInput captures the payload for authentication.
type LoginInput struct {
	Email    string
	Password string
	IP       string
}

// LoginResult carries the issued token and the authenticated account.
type LoginResult struct {
	AccessToken string
	ExpiresIn   time.Duration
	Account     domain.PublicProfile
}

// Login validates credentials and issues an access token. Unknown email and
// wrong password return the same error so account existence does not leak.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if input.Password == "" {
		return nil, fmt.Errorf("password is required")
	}

	now := s.now().UTC()
	if err := s.rateLimits.check(ctx, loginRateLimitScope, email, s.cfg.RateLimit.LoginMaxAttempts, s.cfg.RateLimit.WindowDuration, now); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if !security.VerifyPassword(input.Password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	return &LoginResult{
		AccessToken: token,
		ExpiresIn:   s.tokens.TTL(),
		Account:     account.Public(),
	}, nil
}

// ParseAccessToken validates the bearer token and returns its claims.
func (s *AuthService) ParseAccessToken(token string) (*security.AccessTokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidAccessToken
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return nil, ErrExpiredAccessToken
		}
		return nil, ErrInvalidAccessToken
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidAccessToken
	}

	return claims, nil
}

func (s *AuthService) publishRegisteredEvent(ctx context.Context, account domain.Account) {
	if s.events == nil {
		return
	}

	event := domain.AccountRegisteredEvent{
		EventID:      uuid.NewString(),
		AccountID:    account.ID,
		Email:        account.Email,
		Name:         account.Name,
		RegisteredAt: account.RegisteredAt,
	}

	if err := s.events.PublishAccountRegistered(ctx, event); err != nil {
		s.logger.Warn("publish account registered event failed", zap.String("account_id", account.ID), zap.Error(err))
	}
}

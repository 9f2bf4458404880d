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
	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/infra/logger"
	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/infra/security"
	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/repository"
)

const passwordResetRateLimitScope = "password_reset"

// PasswordResetService drives the OTP-based reset flow: request issues a
// short-lived numeric code, confirm consumes it exactly once.
type PasswordResetService struct {
	cfg               *config.AppConfig
	accounts          port.AccountRepository
	events            port.EventPublisher
	passwordValidator *security.PasswordValidator
	rateLimits        *rateLimitGuard
	logger            *zap.Logger
	now               func() time.Time
	codeTTL           time.Duration
}

// NewPasswordResetService constructs a PasswordResetService instance.
func NewPasswordResetService(
	cfg *config.AppConfig,
	accounts port.AccountRepository,
	rateLimits port.RateLimitStore,
	events port.EventPublisher,
	validator *security.PasswordValidator,
	log *zap.Logger,
) *PasswordResetService {
	if validator == nil {
		validator = security.DefaultPasswordValidator(cfg.Password.MinLength, cfg.Password.MinStrength)
	}
	if log == nil {
		log = zap.NewNop()
	}

	ttl := cfg.OTP.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &PasswordResetService{
		cfg:               cfg,
		accounts:          accounts,
		events:            events,
		passwordValidator: validator,
		rateLimits:        newRateLimitGuard(rateLimits, log),
		logger:            log,
		now:               time.Now,
		codeTTL:           ttl,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *PasswordResetService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// ResetRequest carries the outcome of a reset request. Code travels only to
// the notification channel; transport must never put it in a response body
// outside development.
type ResetRequest struct {
	AccountID         string
	Email             string
	Code              string
	ExpiresAt         time.Time
	MaskedDestination string
}

// RequestPasswordReset issues a fresh reset code for the account behind the
// email. A repeated request replaces the code already in flight. The caller
// decides whether ErrAccountNotFound is surfaced or masked.
func (s *PasswordResetService) RequestPasswordReset(ctx context.Context, email, ip string) (*ResetRequest, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	now := s.now().UTC()
	if err := s.rateLimits.check(ctx, passwordResetRateLimitScope, email, s.cfg.RateLimit.PasswordResetMaxAttempts, s.cfg.RateLimit.WindowDuration, now); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	code, err := security.GenerateResetCode()
	if err != nil {
		return nil, fmt.Errorf("generate reset code: %w", err)
	}

	reset := domain.PendingReset{
		Code:      code,
		ExpiresAt: now.Add(s.codeTTL),
	}
	if err := s.accounts.SetPendingReset(ctx, account.ID, reset); err != nil {
		return nil, fmt.Errorf("store reset code: %w", err)
	}

	masked := logger.MaskEmail(account.Email)
	s.publishResetRequestedEvent(ctx, account.ID, masked, ip, now, reset.ExpiresAt)

	s.logger.Info("password reset requested",
		zap.String("account_id", account.ID),
		zap.String("email", masked),
		zap.Time("expires_at", reset.ExpiresAt),
	)

	return &ResetRequest{
		AccountID:         account.ID,
		Email:             account.Email,
		Code:              code,
		ExpiresAt:         reset.ExpiresAt,
		MaskedDestination: masked,
	}, nil
}

// ConfirmPasswordReset validates the presented code and swaps the password.
// Wrong code, expired code, consumed code, and unknown email all collapse
// into ErrInvalidOrExpiredCode. The code is compared exactly as submitted,
// with no normalization. The voluntary change cooldown does not apply here.
func (s *PasswordResetService) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || code == "" {
		return ErrInvalidOrExpiredCode
	}

	if err := s.passwordValidator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredCode
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	now := s.now().UTC()
	if !account.PendingReset.Matches(code, now) {
		return ErrInvalidOrExpiredCode
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	// The conditional write is the race guard: if a concurrent confirmation
	// consumed the code after the check above, zero rows match.
	if err := s.accounts.CompletePasswordReset(ctx, account.ID, passwordHash, code, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredCode
		}
		return fmt.Errorf("complete password reset: %w", err)
	}

	s.publishPasswordChangedEvent(ctx, account.ID, now, "reset")

	s.logger.Info("password reset confirmed", zap.String("account_id", account.ID))
	return nil
}

func (s *PasswordResetService) publishResetRequestedEvent(ctx context.Context, accountID, masked, ip string, requestedAt, expiresAt time.Time) {
	if s.events == nil {
		return
	}

	maskedIP := logger.MaskIP(ip)
	event := domain.PasswordResetRequestedEvent{
		EventID:           uuid.NewString(),
		AccountID:         accountID,
		RequestedAt:       requestedAt,
		MaskedDestination: masked,
		IPAddress:         &maskedIP,
		ExpiresAt:         expiresAt,
	}
	if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
		s.logger.Warn("publish password reset requested event failed", zap.String("account_id", accountID), zap.Error(err))
	}
}

func (s *PasswordResetService) publishPasswordChangedEvent(ctx context.Context, accountID string, changedAt time.Time, changedBy string) {
	if s.events == nil {
		return
	}

	event := domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		AccountID: accountID,
		ChangedAt: changedAt,
		ChangedBy: changedBy,
	}
	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed event failed", zap.String("account_id", accountID), zap.Error(err))
	}
}

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

// ProfileService manages account profile data and voluntary password changes.
type ProfileService struct {
	cfg               *config.AppConfig
	accounts          port.AccountRepository
	events            port.EventPublisher
	passwordValidator *security.PasswordValidator
	logger            *zap.Logger
	now               func() time.Time
}

// NewProfileService constructs a ProfileService instance.
func NewProfileService(
	cfg *config.AppConfig,
	accounts port.AccountRepository,
	events port.EventPublisher,
	validator *security.PasswordValidator,
	log *zap.Logger,
) *ProfileService {
	if validator == nil {
		validator = security.DefaultPasswordValidator(cfg.Password.MinLength, cfg.Password.MinStrength)
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &ProfileService{
		cfg:               cfg,
		accounts:          accounts,
		events:            events,
		passwordValidator: validator,
		logger:            log,
		now:               time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *ProfileService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// GetProfile returns the public projection of the account.
func (s *ProfileService) GetProfile(ctx context.Context, accountID string) (domain.PublicProfile, error) {
	var zero domain.PublicProfile

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return zero, ErrAccountNotFound
		}
		return zero, fmt.Errorf("lookup account: %w", err)
	}

	return account.Public(), nil
}

// UpdateProfileInput carries the mutable profile fields. Nil pointers leave
// the corresponding field untouched; NewPassword non-empty requests a
// password change, which also requires CurrentPassword.
type UpdateProfileInput struct {
	Name            *string
	NewPassword     string
	CurrentPassword string
}

// UpdateProfile applies name and optional password changes. A voluntary
// password change is refused until the cooldown since the previous change
// has fully elapsed; a change at exactly the cooldown boundary is allowed.
func (s *ProfileService) UpdateProfile(ctx context.Context, accountID string, input UpdateProfileInput) (domain.PublicProfile, error) {
	var zero domain.PublicProfile

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return zero, ErrAccountNotFound
		}
		return zero, fmt.Errorf("lookup account: %w", err)
	}

	if input.NewPassword != "" {
		now := s.now().UTC()
		if err := s.changePassword(ctx, account, input.CurrentPassword, input.NewPassword, now); err != nil {
			return zero, err
		}
		account.LastPasswordChange = &now
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		var namePtr *string
		if name != "" {
			namePtr = &name
		}
		if err := s.accounts.UpdateProfile(ctx, account.ID, namePtr); err != nil {
			return zero, fmt.Errorf("update profile: %w", err)
		}
		account.Name = namePtr
	}

	return account.Public(), nil
}

// UpdateProfilePicture stores the picture URL and returns the updated profile.
func (s *ProfileService) UpdateProfilePicture(ctx context.Context, accountID, pictureURL string) (domain.PublicProfile, error) {
	var zero domain.PublicProfile

	pictureURL = strings.TrimSpace(pictureURL)
	if pictureURL == "" {
		return zero, fmt.Errorf("picture url is required")
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return zero, ErrAccountNotFound
		}
		return zero, fmt.Errorf("lookup account: %w", err)
	}

	if err := s.accounts.UpdateProfilePicture(ctx, account.ID, pictureURL); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return zero, ErrAccountNotFound
		}
		return zero, fmt.Errorf("update profile picture: %w", err)
	}

	account.ProfilePicture = &pictureURL
	return account.Public(), nil
}

func (s *ProfileService) changePassword(ctx context.Context, account *domain.Account, currentPassword, newPassword string, now time.Time) error {
	if !security.VerifyPassword(currentPassword, account.PasswordHash) {
		return ErrInvalidCredentials
	}

	cooldown := s.cfg.Password.ChangeCooldown
	if account.LastPasswordChange != nil && cooldown > 0 {
		if elapsed := now.Sub(account.LastPasswordChange.UTC()); elapsed < cooldown {
			return ErrPasswordChangeCooldown
		}
	}

	if err := s.passwordValidator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.accounts.UpdatePassword(ctx, account.ID, passwordHash, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}

	s.publishPasswordChangedEvent(ctx, account.ID, now)
	s.logger.Info("password changed", zap.String("account_id", account.ID))
	return nil
}

func (s *ProfileService) publishPasswordChangedEvent(ctx context.Context, accountID string, changedAt time.Time) {
	if s.events == nil {
		return
	}

	event := domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		AccountID: accountID,
		ChangedAt: changedAt,
		ChangedBy: "owner",
	}
	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed event failed", zap.String("account_id", accountID), zap.Error(err))
	}
}

package port

import (
	"context"
	"time"

	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/core/domain"
)

// AccountRepository exposes persistence behavior for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)

	// SetPendingReset attaches a reset code to the account, replacing any
	// code already in flight.
	SetPendingReset(ctx context.Context, id string, reset domain.PendingReset) error

	// CompletePasswordReset swaps the password hash, clears the pending
	// reset and stamps the change time in a single conditional write. The
	// write applies only if the stored code still equals presentedCode and
	// has not expired; otherwise repository.ErrNotFound is returned.
	CompletePasswordReset(ctx context.Context, id string, passwordHash string, presentedCode string, changedAt time.Time) error

	UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error
	UpdateProfile(ctx context.Context, id string, name *string) error
	UpdateProfilePicture(ctx context.Context, id string, pictureURL string) error
}

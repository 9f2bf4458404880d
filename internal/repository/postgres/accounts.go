package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/core/domain"
	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/core/port"
	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const accountsTable = "phonecare.accounts"

var accountColumns = []string{
	"id",
	"email",
	"name",
	"password_hash",
	"profile_picture",
	"registered_at",
	"last_password_change",
	"otp_code",
	"otp_expires_at",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	repo := &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new account row. The unique index on email is the
// authority on duplicates; a violation surfaces as repository.ErrDuplicate.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	var nameValue any
	if account.Name != nil && *account.Name != "" {
		nameValue = *account.Name
	}

	var pictureValue any
	if account.ProfilePicture != nil && *account.ProfilePicture != "" {
		pictureValue = *account.ProfilePicture
	}

	var otpCode, otpExpires any
	if account.PendingReset != nil {
		otpCode = account.PendingReset.Code
		otpExpires = account.PendingReset.ExpiresAt
	}

	query := r.builder.Insert(accountsTable).
		Columns(accountColumns...).
		Values(
			account.ID,
			account.Email,
			nameValue,
			account.PasswordHash,
			pictureValue,
			account.RegisteredAt,
			account.LastPasswordChange,
			otpCode,
			otpExpires,
		)

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves an account by its login email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email})
}

func (r *AccountRepository) getOne(ctx context.Context, pred squirrel.Eq) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From(accountsTable).
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		account    domain.Account
		name       sql.NullString
		picture    sql.NullString
		lastChange *time.Time
		otpCode    sql.NullString
		otpExpires *time.Time
	)

	if err := row.Scan(
		&account.ID,
		&account.Email,
		&name,
		&account.PasswordHash,
		&picture,
		&account.RegisteredAt,
		&lastChange,
		&otpCode,
		&otpExpires,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	if name.Valid {
		val := name.String
		account.Name = &val
	}
	if picture.Valid {
		val := picture.String
		account.ProfilePicture = &val
	}
	account.LastPasswordChange = lastChange
	if otpCode.Valid && otpExpires != nil {
		account.PendingReset = &domain.PendingReset{
			Code:      otpCode.String,
			ExpiresAt: *otpExpires,
		}
	}

	return &account, nil
}

// SetPendingReset attaches a reset code to the account, replacing any
// code already in flight.
func (r *AccountRepository) SetPendingReset(ctx context.Context, id string, reset domain.PendingReset) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("otp_code", reset.Code).
		Set("otp_expires_at", reset.ExpiresAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set pending reset sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set pending reset: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// CompletePasswordReset swaps the password hash, clears the pending reset
// and stamps the change time in one statement. The WHERE clause re-checks
// the stored code and its expiry so two racing confirmations cannot both
// consume it: the first write clears otp_code and the second matches zero
// rows.
func (r *AccountRepository) CompletePasswordReset(ctx context.Context, id string, passwordHash string, presentedCode string, changedAt time.Time) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("password_hash", passwordHash).
		Set("last_password_change", changedAt).
		Set("otp_code", nil).
		Set("otp_expires_at", nil).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"otp_code": presentedCode}).
		Where(squirrel.Gt{"otp_expires_at": changedAt}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build complete password reset sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("complete password reset: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePassword updates the password hash and last change timestamp.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("password_hash", passwordHash).
		Set("last_password_change", changedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateProfile modifies the mutable profile fields.
func (r *AccountRepository) UpdateProfile(ctx context.Context, id string, name *string) error {
	var nameValue any
	if name != nil && *name != "" {
		nameValue = *name
	}

	stmt, args, err := r.builder.Update(accountsTable).
		Set("name", nameValue).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update profile sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateProfilePicture stores the uploaded picture URL.
func (r *AccountRepository) UpdateProfilePicture(ctx context.Context, id string, pictureURL string) error {
	stmt, args, err := r.builder.Update(accountsTable).
		Set("profile_picture", pictureURL).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update profile picture sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update profile picture: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)

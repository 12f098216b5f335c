package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cakely/auth-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, is_verified,
	verify_otp_hash, verify_otp_expires_at, reset_otp_hash, reset_otp_expires_at,
	created_at, updated_at`

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, is_verified)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.IsVerified,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) SetOTP(ctx context.Context, userID string, kind domain.OTPKind, digest string, expiresAt time.Time) error {
	var query string
	switch kind {
	case domain.OTPKindVerify:
		query = `UPDATE users
			 SET verify_otp_hash = $2, verify_otp_expires_at = $3, updated_at = now()
			 WHERE id = $1`
	case domain.OTPKindReset:
		query = `UPDATE users
			 SET reset_otp_hash = $2, reset_otp_expires_at = $3, updated_at = now()
			 WHERE id = $1`
	default:
		return fmt.Errorf("unknown otp kind %q", kind)
	}

	tag, err := r.pool.Exec(ctx, query, userID, digest, expiresAt)
	if err != nil {
		return fmt.Errorf("set %s otp: %w", kind, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ConsumeOTP claims the slot with a single conditional update so that two
// concurrent submissions of the same code cannot both succeed. When the
// claim misses, a follow-up read classifies the failure for the client.
func (r *UserRepository) ConsumeOTP(ctx context.Context, userID string, kind domain.OTPKind, digest string) error {
	var query string
	switch kind {
	case domain.OTPKindVerify:
		query = `UPDATE users
			 SET verify_otp_hash = NULL, verify_otp_expires_at = NULL,
			     is_verified = TRUE, updated_at = now()
			 WHERE id = $1 AND verify_otp_hash = $2 AND verify_otp_expires_at > now()`
	case domain.OTPKindReset:
		query = `UPDATE users
			 SET reset_otp_hash = NULL, reset_otp_expires_at = NULL, updated_at = now()
			 WHERE id = $1 AND reset_otp_hash = $2 AND reset_otp_expires_at > now()`
	default:
		return fmt.Errorf("unknown otp kind %q", kind)
	}

	tag, err := r.pool.Exec(ctx, query, userID, digest)
	if err != nil {
		return fmt.Errorf("consume %s otp: %w", kind, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	return r.classifyConsumeMiss(ctx, userID, kind, digest)
}

func (r *UserRepository) classifyConsumeMiss(ctx context.Context, userID string, kind domain.OTPKind, digest string) error {
	u, err := r.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	hash, expiresAt := u.VerifyOTPHash, u.VerifyOTPExpiresAt
	if kind == domain.OTPKindReset {
		hash, expiresAt = u.ResetOTPHash, u.ResetOTPExpiresAt
	}

	if hash == nil || *hash != digest {
		// Covers cleared slots too: a code consumed once (possibly by a
		// concurrent request) reads as a mismatch afterwards.
		return domain.ErrOTPMismatch
	}
	if expiresAt == nil || !expiresAt.After(time.Now()) {
		return domain.ErrOTPExpired
	}
	return domain.ErrOTPMismatch
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		userID, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET verify_otp_hash      = CASE WHEN verify_otp_expires_at <= $1 THEN NULL ELSE verify_otp_hash END,
		     verify_otp_expires_at = CASE WHEN verify_otp_expires_at <= $1 THEN NULL ELSE verify_otp_expires_at END,
		     reset_otp_hash       = CASE WHEN reset_otp_expires_at  <= $1 THEN NULL ELSE reset_otp_hash END,
		     reset_otp_expires_at  = CASE WHEN reset_otp_expires_at  <= $1 THEN NULL ELSE reset_otp_expires_at END
		 WHERE verify_otp_expires_at <= $1 OR reset_otp_expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("clear expired otps: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsVerified,
		&u.VerifyOTPHash, &u.VerifyOTPExpiresAt, &u.ResetOTPHash, &u.ResetOTPExpiresAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

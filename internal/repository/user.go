package repository

import (
	"context"
	"time"

	"github.com/cakely/auth-service/internal/domain"
)

type UserRepository interface {
	// Create inserts a new user. Returns domain.ErrDuplicateEmail when the
	// email is already taken.
	Create(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// SetOTP writes digest + expiry to the given slot, overwriting any
	// pending code of that kind.
	SetOTP(ctx context.Context, userID string, kind domain.OTPKind, digest string, expiresAt time.Time) error

	// ConsumeOTP atomically clears the slot when digest matches and the
	// expiry is in the future; for the verify kind it also marks the user
	// verified. Returns domain.ErrOTPExpired or domain.ErrOTPMismatch on
	// failure. Two concurrent calls with the same code cannot both succeed.
	ConsumeOTP(ctx context.Context, userID string, kind domain.OTPKind, digest string) error

	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// ClearExpiredOTPs nulls out OTP columns whose expiry is past and
	// reports how many slots were cleared. Pure hygiene: expired codes are
	// already rejected on consume.
	ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}

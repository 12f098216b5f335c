package domain

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAlreadyVerified    = errors.New("account is already verified")
	ErrOTPExpired         = errors.New("otp has expired")
	ErrOTPMismatch        = errors.New("invalid otp")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
)

// OTPKind selects which pair of OTP columns on the user record is
// read and written. The two slots are independent: consuming one
// never touches the other.
type OTPKind string

const (
	OTPKindVerify OTPKind = "verify"
	OTPKindReset  OTPKind = "reset"
)

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	IsVerified   bool

	// Only a SHA-256 digest of a pending code is ever stored.
	VerifyOTPHash      *string
	VerifyOTPExpiresAt *time.Time
	ResetOTPHash       *string
	ResetOTPExpiresAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cakely/auth-service/internal/domain"
	"github.com/cakely/auth-service/internal/email"
	"github.com/cakely/auth-service/internal/metrics"
	"github.com/cakely/auth-service/internal/otp"
	"github.com/cakely/auth-service/internal/repository"
	"github.com/cakely/auth-service/internal/token"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const defaultOTPTTL = 15 * time.Minute

type AuthUsecase struct {
	users  repository.UserRepository
	email  email.Sender
	tokens *token.Service
	otpTTL time.Duration
}

func NewAuthUsecase(users repository.UserRepository, emailSender email.Sender, tokens *token.Service, otpTTL time.Duration) *AuthUsecase {
	if otpTTL <= 0 {
		otpTTL = defaultOTPTTL
	}
	return &AuthUsecase{
		users:  users,
		email:  emailSender,
		tokens: tokens,
		otpTTL: otpTTL,
	}
}

// Register creates an unverified account and returns it with a signed
// session token. It does not send the verification code — that is a
// separate, explicitly requested step.
func (a *AuthUsecase) Register(ctx context.Context, name, emailAddr, password string) (*domain.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	u := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        normalizeEmail(emailAddr),
		PasswordHash: string(hash),
	}

	if err := a.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, "", domain.ErrDuplicateEmail
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	signed, err := a.tokens.Issue(u.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	metrics.RegistrationsTotal.Inc()
	return u, signed, nil
}

// Login checks the credentials and returns a signed session token.
// Unknown email and wrong password yield the same ErrInvalidCredentials
// so the response does not leak which one it was.
func (a *AuthUsecase) Login(ctx context.Context, emailAddr, password string) (*domain.User, string, error) {
	u, err := a.users.FindByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, "", domain.ErrInvalidCredentials
	}

	signed, err := a.tokens.Issue(u.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return u, signed, nil
}

// SendVerifyOTP issues a fresh email-verification code for the user,
// invalidating any previously pending one.
func (a *AuthUsecase) SendVerifyOTP(ctx context.Context, userID string) error {
	u, err := a.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if u.IsVerified {
		return domain.ErrAlreadyVerified
	}
	return a.issueOTP(ctx, u, domain.OTPKindVerify)
}

// VerifyEmail consumes the pending verification code. On success the
// store also flips is_verified in the same atomic update.
func (a *AuthUsecase) VerifyEmail(ctx context.Context, userID, code string) error {
	return a.consumeOTP(ctx, userID, domain.OTPKindVerify, code)
}

// SendResetOTP issues a password-reset code. Unknown emails are reported
// to the caller; the enumeration tradeoff is accepted as given behavior.
func (a *AuthUsecase) SendResetOTP(ctx context.Context, emailAddr string) error {
	u, err := a.users.FindByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	return a.issueOTP(ctx, u, domain.OTPKindReset)
}

// ResetPassword consumes the reset code, then stores the new password
// hash. Existing session tokens stay valid until their own expiry; there
// is no server-side revocation list.
func (a *AuthUsecase) ResetPassword(ctx context.Context, emailAddr, code, newPassword string) error {
	u, err := a.users.FindByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	if err := a.consumeOTP(ctx, u.ID, domain.OTPKindReset, code); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := a.users.UpdatePassword(ctx, u.ID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	metrics.PasswordResetsTotal.Inc()
	return nil
}

func (a *AuthUsecase) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return a.users.FindByID(ctx, userID)
}

func (a *AuthUsecase) issueOTP(ctx context.Context, u *domain.User, kind domain.OTPKind) error {
	code, err := otp.Generate()
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(a.otpTTL)
	if err := a.users.SetOTP(ctx, u.ID, kind, otp.Digest(code), expiresAt); err != nil {
		return fmt.Errorf("store %s otp: %w", kind, err)
	}

	subject, body := otpMail(kind, code, a.otpTTL)
	if err := a.email.Send(ctx, u.Email, subject, body); err != nil {
		return fmt.Errorf("send %s otp: %w", kind, err)
	}

	metrics.OTPIssuedTotal.WithLabelValues(string(kind)).Inc()
	return nil
}

func (a *AuthUsecase) consumeOTP(ctx context.Context, userID string, kind domain.OTPKind, code string) error {
	err := a.users.ConsumeOTP(ctx, userID, kind, otp.Digest(code))

	result := "ok"
	switch {
	case errors.Is(err, domain.ErrOTPExpired):
		result = "expired"
	case errors.Is(err, domain.ErrOTPMismatch):
		result = "mismatch"
	case err != nil:
		result = "error"
	}
	metrics.OTPConsumedTotal.WithLabelValues(string(kind), result).Inc()

	return err
}

func otpMail(kind domain.OTPKind, code string, ttl time.Duration) (subject, body string) {
	minutes := int(ttl.Minutes())
	switch kind {
	case domain.OTPKindReset:
		subject = "Your password reset code"
		body = fmt.Sprintf(
			`<p>Your password reset code is <b>%s</b>. It expires in %d minutes.</p>`,
			code, minutes,
		)
	default:
		subject = "Verify your account"
		body = fmt.Sprintf(
			`<p>Your account verification code is <b>%s</b>. It expires in %d minutes.</p>`,
			code, minutes,
		)
	}
	return subject, body
}

func normalizeEmail(emailAddr string) string {
	return strings.ToLower(strings.TrimSpace(emailAddr))
}

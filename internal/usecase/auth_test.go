package usecase_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/cakely/auth-service/internal/domain"
	"github.com/cakely/auth-service/internal/otp"
	"github.com/cakely/auth-service/internal/token"
	"github.com/cakely/auth-service/internal/usecase"
	"golang.org/x/crypto/bcrypt"
)

// ---- fakes ----

type fakeUserRepo struct {
	create         func(ctx context.Context, u *domain.User) error
	findByID       func(ctx context.Context, id string) (*domain.User, error)
	findByEmail    func(ctx context.Context, email string) (*domain.User, error)
	setOTP         func(ctx context.Context, userID string, kind domain.OTPKind, digest string, expiresAt time.Time) error
	consumeOTP     func(ctx context.Context, userID string, kind domain.OTPKind, digest string) error
	updatePassword func(ctx context.Context, userID, passwordHash string) error
	clearExpired   func(ctx context.Context, now time.Time) (int64, error)
}

func (r *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	return r.create(ctx, u)
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findByID(ctx, id)
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findByEmail(ctx, email)
}

func (r *fakeUserRepo) SetOTP(ctx context.Context, userID string, kind domain.OTPKind, digest string, expiresAt time.Time) error {
	return r.setOTP(ctx, userID, kind, digest, expiresAt)
}

func (r *fakeUserRepo) ConsumeOTP(ctx context.Context, userID string, kind domain.OTPKind, digest string) error {
	return r.consumeOTP(ctx, userID, kind, digest)
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return r.updatePassword(ctx, userID, passwordHash)
}

func (r *fakeUserRepo) ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	return r.clearExpired(ctx, now)
}

type fakeEmailSender struct {
	send func(ctx context.Context, to, subject, body string) error
}

func (s *fakeEmailSender) Send(ctx context.Context, to, subject, body string) error {
	return s.send(ctx, to, subject, body)
}

// ---- helpers ----

const testJWTKey = "test-jwt-secret-at-least-32-chars!!"

var otpInBody = regexp.MustCompile(`<b>([0-9]{6})</b>`)

func testTokens() *token.Service {
	return token.NewService([]byte(testJWTKey), 24*time.Hour)
}

func newUsecase(repo *fakeUserRepo, sender *fakeEmailSender) *usecase.AuthUsecase {
	return usecase.NewAuthUsecase(repo, sender, testTokens(), 15*time.Minute)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

func discardSender() *fakeEmailSender {
	return &fakeEmailSender{send: func(_ context.Context, _, _, _ string) error { return nil }}
}

// ---- Register ----

func TestRegister_TokenResolvesToNewUser(t *testing.T) {
	var created *domain.User
	repo := &fakeUserRepo{
		create: func(_ context.Context, u *domain.User) error {
			created = u
			return nil
		},
	}

	u, signed, err := newUsecase(repo, discardSender()).Register(context.Background(), "Thasuni", "a@x.com", "pw1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created == nil {
		t.Fatal("user was not stored")
	}
	if created.IsVerified {
		t.Error("new user must start unverified")
	}
	if u.ID != created.ID {
		t.Errorf("returned user id %q != stored id %q", u.ID, created.ID)
	}

	userID, err := testTokens().Verify(signed)
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if userID != created.ID {
		t.Errorf("token resolves to %q, want %q", userID, created.ID)
	}
}

func TestRegister_NormalizesEmail(t *testing.T) {
	var created *domain.User
	repo := &fakeUserRepo{
		create: func(_ context.Context, u *domain.User) error {
			created = u
			return nil
		},
	}

	_, _, err := newUsecase(repo, discardSender()).Register(context.Background(), "Pat", "  Pat@Example.COM ", "pw1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Email != "pat@example.com" {
		t.Errorf("email = %q, want %q", created.Email, "pat@example.com")
	}
}

func TestRegister_HashesPassword(t *testing.T) {
	var created *domain.User
	repo := &fakeUserRepo{
		create: func(_ context.Context, u *domain.User) error {
			created = u
			return nil
		},
	}

	_, _, err := newUsecase(repo, discardSender()).Register(context.Background(), "Pat", "pat@example.com", "hunter22")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.PasswordHash == "hunter22" {
		t.Fatal("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("hunter22")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := &fakeUserRepo{
		create: func(_ context.Context, _ *domain.User) error {
			return domain.ErrDuplicateEmail
		},
	}

	_, _, err := newUsecase(repo, discardSender()).Register(context.Background(), "Pat", "pat@example.com", "pw1")
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Errorf("want ErrDuplicateEmail, got %v", err)
	}
}

// ---- Login ----

func TestLogin_UnknownEmailAndWrongPassword_SameError(t *testing.T) {
	stored := &domain.User{ID: "user-1", Email: "pat@example.com", PasswordHash: mustHash(t, "right-password")}

	unknownRepo := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
	}
	_, _, unknownErr := newUsecase(unknownRepo, discardSender()).Login(context.Background(), "nobody@example.com", "whatever")

	knownRepo := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return stored, nil
		},
	}
	_, _, wrongPwErr := newUsecase(knownRepo, discardSender()).Login(context.Background(), "pat@example.com", "wrong-password")

	if !errors.Is(unknownErr, domain.ErrInvalidCredentials) {
		t.Errorf("unknown email: want ErrInvalidCredentials, got %v", unknownErr)
	}
	if !errors.Is(wrongPwErr, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password: want ErrInvalidCredentials, got %v", wrongPwErr)
	}
}

func TestLogin_Success(t *testing.T) {
	stored := &domain.User{ID: "user-1", Email: "pat@example.com", PasswordHash: mustHash(t, "right-password")}
	repo := &fakeUserRepo{
		findByEmail: func(_ context.Context, email string) (*domain.User, error) {
			if email != stored.Email {
				return nil, domain.ErrUserNotFound
			}
			return stored, nil
		},
	}

	u, signed, err := newUsecase(repo, discardSender()).Login(context.Background(), "Pat@Example.com", "right-password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != stored.ID {
		t.Errorf("user id = %q, want %q", u.ID, stored.ID)
	}

	userID, err := testTokens().Verify(signed)
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if userID != stored.ID {
		t.Errorf("token resolves to %q, want %q", userID, stored.ID)
	}
}

// ---- SendVerifyOTP ----

func TestSendVerifyOTP_AlreadyVerified(t *testing.T) {
	repo := &fakeUserRepo{
		findByID: func(_ context.Context, _ string) (*domain.User, error) {
			return &domain.User{ID: "user-1", Email: "pat@example.com", IsVerified: true}, nil
		},
	}

	err := newUsecase(repo, discardSender()).SendVerifyOTP(context.Background(), "user-1")
	if !errors.Is(err, domain.ErrAlreadyVerified) {
		t.Errorf("want ErrAlreadyVerified, got %v", err)
	}
}

func TestSendVerifyOTP_StoresDigestOfEmailedCode(t *testing.T) {
	var storedKind domain.OTPKind
	var storedDigest string
	var storedExpiry time.Time
	var emailBody string

	repo := &fakeUserRepo{
		findByID: func(_ context.Context, _ string) (*domain.User, error) {
			return &domain.User{ID: "user-1", Email: "pat@example.com"}, nil
		},
		setOTP: func(_ context.Context, _ string, kind domain.OTPKind, digest string, expiresAt time.Time) error {
			storedKind, storedDigest, storedExpiry = kind, digest, expiresAt
			return nil
		},
	}
	sender := &fakeEmailSender{
		send: func(_ context.Context, _, _, body string) error {
			emailBody = body
			return nil
		},
	}

	before := time.Now()
	if err := newUsecase(repo, sender).SendVerifyOTP(context.Background(), "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if storedKind != domain.OTPKindVerify {
		t.Errorf("kind = %q, want verify", storedKind)
	}
	if !storedExpiry.After(before) {
		t.Errorf("expiry %v is not in the future", storedExpiry)
	}

	m := otpInBody.FindStringSubmatch(emailBody)
	if m == nil {
		t.Fatalf("email body %q does not contain a 6-digit code", emailBody)
	}
	if got := otp.Digest(m[1]); got != storedDigest {
		t.Errorf("stored digest %q != digest of emailed code %q", storedDigest, got)
	}
}

func TestSendVerifyOTP_EmailError_Propagates(t *testing.T) {
	sendErr := errors.New("smtp unavailable")
	repo := &fakeUserRepo{
		findByID: func(_ context.Context, _ string) (*domain.User, error) {
			return &domain.User{ID: "user-1", Email: "pat@example.com"}, nil
		},
		setOTP: func(_ context.Context, _ string, _ domain.OTPKind, _ string, _ time.Time) error {
			return nil
		},
	}
	sender := &fakeEmailSender{
		send: func(_ context.Context, _, _, _ string) error { return sendErr },
	}

	err := newUsecase(repo, sender).SendVerifyOTP(context.Background(), "user-1")
	if !errors.Is(err, sendErr) {
		t.Errorf("want wrapped sendErr, got %v", err)
	}
}

// ---- VerifyEmail ----

func TestVerifyEmail_PropagatesConsumeResult(t *testing.T) {
	for _, want := range []error{domain.ErrOTPExpired, domain.ErrOTPMismatch} {
		repo := &fakeUserRepo{
			consumeOTP: func(_ context.Context, _ string, kind domain.OTPKind, _ string) error {
				if kind != domain.OTPKindVerify {
					t.Errorf("kind = %q, want verify", kind)
				}
				return want
			},
		}

		err := newUsecase(repo, discardSender()).VerifyEmail(context.Background(), "user-1", "000000")
		if !errors.Is(err, want) {
			t.Errorf("want %v, got %v", want, err)
		}
	}
}

func TestVerifyEmail_SubmitsDigestNotRawCode(t *testing.T) {
	var submitted string
	repo := &fakeUserRepo{
		consumeOTP: func(_ context.Context, _ string, _ domain.OTPKind, digest string) error {
			submitted = digest
			return nil
		},
	}

	if err := newUsecase(repo, discardSender()).VerifyEmail(context.Background(), "user-1", "123456"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if submitted != otp.Digest("123456") {
		t.Errorf("store received %q, want digest of the code", submitted)
	}
}

// ---- SendResetOTP ----

func TestSendResetOTP_UnknownEmail(t *testing.T) {
	repo := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
	}

	err := newUsecase(repo, discardSender()).SendResetOTP(context.Background(), "nobody@example.com")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("want ErrUserNotFound, got %v", err)
	}
}

func TestSendResetOTP_UsesResetSlot(t *testing.T) {
	var storedKind domain.OTPKind
	repo := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return &domain.User{ID: "user-1", Email: "pat@example.com"}, nil
		},
		setOTP: func(_ context.Context, _ string, kind domain.OTPKind, _ string, _ time.Time) error {
			storedKind = kind
			return nil
		},
	}

	if err := newUsecase(repo, discardSender()).SendResetOTP(context.Background(), "pat@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if storedKind != domain.OTPKindReset {
		t.Errorf("kind = %q, want reset", storedKind)
	}
}

// ---- ResetPassword ----

func TestResetPassword_StoresNewHash(t *testing.T) {
	var newHash string
	repo := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return &domain.User{ID: "user-1", Email: "pat@example.com"}, nil
		},
		consumeOTP: func(_ context.Context, _ string, _ domain.OTPKind, _ string) error {
			return nil
		},
		updatePassword: func(_ context.Context, _ string, passwordHash string) error {
			newHash = passwordHash
			return nil
		},
	}

	err := newUsecase(repo, discardSender()).ResetPassword(context.Background(), "pat@example.com", "123456", "brand-new-pw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(newHash), []byte("brand-new-pw")); err != nil {
		t.Errorf("stored hash does not match new password: %v", err)
	}
}

func TestResetPassword_ExpiredOTP_LeavesPasswordUntouched(t *testing.T) {
	updateCalled := false
	repo := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return &domain.User{ID: "user-1", Email: "pat@example.com"}, nil
		},
		consumeOTP: func(_ context.Context, _ string, _ domain.OTPKind, _ string) error {
			return domain.ErrOTPExpired
		},
		updatePassword: func(_ context.Context, _, _ string) error {
			updateCalled = true
			return nil
		},
	}

	err := newUsecase(repo, discardSender()).ResetPassword(context.Background(), "pat@example.com", "123456", "new-pw")
	if !errors.Is(err, domain.ErrOTPExpired) {
		t.Errorf("want ErrOTPExpired, got %v", err)
	}
	if updateCalled {
		t.Error("password must not change when the otp is rejected")
	}
}

func TestResetPassword_UnknownEmail(t *testing.T) {
	repo := &fakeUserRepo{
		findByEmail: func(_ context.Context, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
	}

	err := newUsecase(repo, discardSender()).ResetPassword(context.Background(), "nobody@example.com", "123456", "new-pw")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("want ErrUserNotFound, got %v", err)
	}
}

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cakely/auth-service/internal/domain"
	"github.com/cakely/auth-service/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	Register(ctx context.Context, name, email, password string) (*domain.User, string, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	SendVerifyOTP(ctx context.Context, userID string) error
	VerifyEmail(ctx context.Context, userID, code string) error
	SendResetOTP(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

// CookiePolicy controls how the session cookie is written. Secure also
// switches SameSite from Lax to None so the cookie survives credentialed
// cross-origin requests from the deployed frontend.
type CookiePolicy struct {
	Secure bool
	MaxAge time.Duration
}

type AuthHandler struct {
	auth    authUsecaser
	cookies CookiePolicy
	logger  *slog.Logger
}

func NewAuthHandler(auth authUsecaser, cookies CookiePolicy, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    auth,
		cookies: cookies,
		logger:  logger.With("component", "auth_handler"),
	}
}

type registerRequest struct {
	Name     string `json:"name"     binding:"required"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	_, signed, err := h.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			respondError(c, http.StatusBadRequest, errEmailTaken)
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "register", "error", err)
		respondError(c, http.StatusInternalServerError, errInternalServer)
		return
	}

	h.setSessionCookie(c, signed)
	respondOK(c, http.StatusOK, "Registered successfully")
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	_, signed, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, errInvalidCredentials)
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "login", "error", err)
		respondError(c, http.StatusInternalServerError, errInternalServer)
		return
	}

	h.setSessionCookie(c, signed)
	respondOK(c, http.StatusOK, "Logged in successfully")
}

// POST /api/auth/logout
// Purely a cookie-clearing operation: tokens are not tracked server-side,
// so logout always succeeds, valid session or not.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.clearSessionCookie(c)
	respondOK(c, http.StatusOK, "Logged out")
}

// POST /api/auth/send-verify-otp (authenticated)
func (h *AuthHandler) SendVerifyOTP(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.auth.SendVerifyOTP(c.Request.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrAlreadyVerified) {
			respondError(c, http.StatusBadRequest, errAlreadyVerified)
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "send verify otp", "error", err)
		respondError(c, http.StatusInternalServerError, errInternalServer)
		return
	}

	respondOK(c, http.StatusOK, "Verification OTP sent")
}

type verifyAccountRequest struct {
	OTP string `json:"otp" binding:"required"`
}

// POST /api/auth/verify-account (authenticated)
func (h *AuthHandler) VerifyAccount(c *gin.Context) {
	var req verifyAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	userID := c.GetString("userID")
	if err := h.auth.VerifyEmail(c.Request.Context(), userID, req.OTP); err != nil {
		h.respondOTPError(c, "verify account", err)
		return
	}

	respondOK(c, http.StatusOK, "Account verified")
}

// GET /api/auth/is-auth (authenticated)
// The middleware already validated the caller; nothing more to do.
func (h *AuthHandler) IsAuthenticated(c *gin.Context) {
	respondOK(c, http.StatusOK, "Authenticated")
}

type sendResetOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// POST /api/auth/send-reset-otp
func (h *AuthHandler) SendResetOTP(c *gin.Context) {
	var req sendResetOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.auth.SendResetOTP(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			respondError(c, http.StatusBadRequest, errUserNotFound)
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "send reset otp", "error", err)
		respondError(c, http.StatusInternalServerError, errInternalServer)
		return
	}

	respondOK(c, http.StatusOK, "Reset OTP sent")
}

type resetPasswordRequest struct {
	Email       string `json:"email"       binding:"required,email"`
	OTP         string `json:"otp"         binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	err := h.auth.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			respondError(c, http.StatusBadRequest, errUserNotFound)
			return
		}
		h.respondOTPError(c, "reset password", err)
		return
	}

	respondOK(c, http.StatusOK, "Password reset successfully")
}

func (h *AuthHandler) respondOTPError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrOTPExpired):
		respondError(c, http.StatusBadRequest, errOTPExpired)
	case errors.Is(err, domain.ErrOTPMismatch):
		respondError(c, http.StatusBadRequest, errOTPInvalid)
	case errors.Is(err, domain.ErrUserNotFound):
		respondError(c, http.StatusBadRequest, errUserNotFound)
	default:
		h.logger.ErrorContext(c.Request.Context(), op, "error", err)
		respondError(c, http.StatusInternalServerError, errInternalServer)
	}
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, signed string) {
	c.SetSameSite(h.sameSite())
	c.SetCookie(middleware.SessionCookie, signed, int(h.cookies.MaxAge.Seconds()), "/", "", h.cookies.Secure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(h.sameSite())
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.cookies.Secure, true)
}

func (h *AuthHandler) sameSite() http.SameSite {
	if h.cookies.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

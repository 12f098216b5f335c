package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cakely/auth-service/internal/domain"
	"github.com/gin-gonic/gin"
)

type userUsecaser interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}

type UserHandler struct {
	users  userUsecaser
	logger *slog.Logger
}

func NewUserHandler(users userUsecaser, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger.With("component", "user_handler")}
}

type userDataResponse struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	IsVerified bool   `json:"isVerified"`
}

// GET /api/user/data (authenticated)
func (h *UserHandler) Data(c *gin.Context) {
	userID := c.GetString("userID")

	u, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Valid token for a deleted account.
			respondError(c, http.StatusUnauthorized, errUserNotFound)
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "get user data", "error", err)
		respondError(c, http.StatusInternalServerError, errInternalServer)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"userData": userDataResponse{
			Name:       u.Name,
			Email:      u.Email,
			IsVerified: u.IsVerified,
		},
	})
}

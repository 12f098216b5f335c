package handler_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/cakely/auth-service/internal/domain"
	"github.com/cakely/auth-service/internal/transport/http/handler"
	"github.com/gin-gonic/gin"
)

type fakeUserUsecase struct {
	getUser func(ctx context.Context, userID string) (*domain.User, error)
}

func (f *fakeUserUsecase) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return f.getUser(ctx, userID)
}

func newUserEngine(uc *fakeUserUsecase) *gin.Engine {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	h := handler.NewUserHandler(uc, logger)

	r := gin.New()
	r.GET("/api/user/data", fakeAuth, h.Data)
	return r
}

func TestUserData_ReturnsNameAndEmail(t *testing.T) {
	uc := &fakeUserUsecase{
		getUser: func(_ context.Context, userID string) (*domain.User, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want user-1", userID)
			}
			return &domain.User{ID: "user-1", Name: "Thasuni", Email: "a@x.com", IsVerified: true}, nil
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/user/data", nil)
	newUserEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		Success  bool `json:"success"`
		UserData struct {
			Name       string `json:"name"`
			Email      string `json:"email"`
			IsVerified bool   `json:"isVerified"`
		} `json:"userData"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.Success {
		t.Error("success = false, want true")
	}
	if body.UserData.Name != "Thasuni" || body.UserData.Email != "a@x.com" {
		t.Errorf("userData = %+v", body.UserData)
	}
	if !body.UserData.IsVerified {
		t.Error("isVerified = false, want true")
	}
}

func TestUserData_DeletedAccount_Returns401(t *testing.T) {
	uc := &fakeUserUsecase{
		getUser: func(_ context.Context, _ string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/user/data", nil)
	newUserEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/cakely/auth-service/internal/token"
	"github.com/cakely/auth-service/internal/transport/http/handler"
	"github.com/cakely/auth-service/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(logger *slog.Logger, authHandler *handler.AuthHandler, userHandler *handler.UserHandler, tokens *token.Service, allowedOrigin string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(middleware.CORS(allowedOrigin))
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	authMW := middleware.Auth(tokens)

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "API working")
	})

	auth := r.Group("/api/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout)
	auth.POST("/send-verify-otp", authMW, authHandler.SendVerifyOTP)
	auth.POST("/verify-account", authMW, authHandler.VerifyAccount)
	auth.GET("/is-auth", authMW, authHandler.IsAuthenticated)
	auth.POST("/send-reset-otp", authHandler.SendResetOTP)
	auth.POST("/reset-password", authHandler.ResetPassword)

	user := r.Group("/api/user", authMW)
	user.GET("/data", userHandler.Data)

	return r
}

package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/auth-api/internal/domain/repository"
	handlers "github.com/oksasatya/auth-api/internal/interface/http"
	"github.com/oksasatya/auth-api/internal/interface/middleware"
	"github.com/oksasatya/auth-api/pkg/helpers"
)

// AuthModule mounts the credential lifecycle under /auth.
type AuthModule struct {
	Handler *handlers.AuthHandler
	Users   repository.UserRepository
	JWT     *helpers.JWTManager
	Redis   *redis.Client
}

func NewAuthModule(h *handlers.AuthHandler, users repository.UserRepository, jwt *helpers.JWTManager, rdb *redis.Client) *AuthModule {
	return &AuthModule{Handler: h, Users: users, JWT: jwt, Redis: rdb}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// Tighter per-route limits on credential guessing and mail sending
	loginLimiter := middleware.RateLimit(m.Redis, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	forgotLimiter := middleware.RateLimit(m.Redis, 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	resetLimiter := middleware.RateLimit(m.Redis, 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	auth := rg.Group("/auth")
	auth.POST("/signup", m.Handler.Signup)
	auth.POST("/login", loginLimiter, m.Handler.Login)
	auth.POST("/logout", m.Handler.Logout)
	auth.POST("/forgotPassword", forgotLimiter, m.Handler.ForgotPassword)
	auth.PATCH("/resetPassword/:token", resetLimiter, m.Handler.ResetPassword)
	auth.POST("/refresh-token", m.Handler.RefreshToken)

	auth.PATCH("/updatePassword", middleware.Protect(m.Users, m.JWT), m.Handler.UpdatePassword)
}

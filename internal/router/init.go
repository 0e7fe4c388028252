package router

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/auth-api/config"
	"github.com/oksasatya/auth-api/internal/application"
	"github.com/oksasatya/auth-api/internal/container"
	"github.com/oksasatya/auth-api/internal/domain/repository"
	handlers "github.com/oksasatya/auth-api/internal/interface/http"
	"github.com/oksasatya/auth-api/internal/router/modules"
	"github.com/oksasatya/auth-api/pkg/helpers"
)

// Deps is everything the HTTP modules need. Index, Photos and Redis may be nil.
type Deps struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Users    repository.UserRepository
	JWT      *helpers.JWTManager
	Hasher   *helpers.PasswordHasher
	Notifier application.Notifier
	Index    application.UserIndex
	Photos   application.PhotoStore
	Redis    *redis.Client
}

// DepsFromContainer collects the singletons registered by cmd/main.go
func DepsFromContainer() Deps {
	return Deps{
		Config:   container.GetConfig(),
		Logger:   container.GetLogger(),
		Users:    container.GetUsers(),
		JWT:      container.GetJWT(),
		Hasher:   container.GetHasher(),
		Notifier: container.GetNotifier(),
		Index:    container.GetUserIndex(),
		Photos:   container.GetPhotoStore(),
		Redis:    container.GetRedis(),
	}
}

// InitModules builds services and handlers from d and adds every module to r.
// Call once during startup.
func InitModules(r *Registry, d Deps) {
	authSvc := application.NewAuthService(d.Users, d.JWT, d.Hasher, d.Notifier, d.Logger)
	authSvc.Index = d.Index
	userSvc := application.NewUserService(d.Users, d.Photos, d.Index, d.Logger)

	cookies := helpers.NewCookie(d.Config.CookieDomain, d.Config.CookieSecure, handlers.RefreshTokenPath)

	r.Add(modules.NewHealthModule(handlers.NewHealthHandler(d.Users)))
	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(authSvc, cookies, d.Logger, d.Config.ResetPasswordURL), d.Users, d.JWT, d.Redis))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(userSvc, d.Logger), d.Users, d.JWT))
}

package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/auth-api/internal/domain/entity"
	"github.com/oksasatya/auth-api/internal/domain/repository"
	handlers "github.com/oksasatya/auth-api/internal/interface/http"
	"github.com/oksasatya/auth-api/internal/interface/middleware"
	"github.com/oksasatya/auth-api/pkg/helpers"
)

// UserModule serves the current user's profile and the admin search.
// Every route sits behind Protect.
type UserModule struct {
	Handler *handlers.UserHandler
	Users   repository.UserRepository
	JWT     *helpers.JWTManager
}

func NewUserModule(h *handlers.UserHandler, users repository.UserRepository, jwt *helpers.JWTManager) *UserModule {
	return &UserModule{Handler: h, Users: users, JWT: jwt}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.Use(middleware.Protect(m.Users, m.JWT))
	{
		users.GET("/me", m.Handler.GetMe)
		users.PATCH("/me/photo", m.Handler.UploadPhoto)
		users.GET("/search", middleware.RestrictTo(entity.RoleAdmin), m.Handler.Search)
	}
}

package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/auth-api/internal/application"
	"github.com/oksasatya/auth-api/internal/domain/entity"
	"github.com/oksasatya/auth-api/internal/domain/repository"
	"github.com/oksasatya/auth-api/pkg/apperr"
	"github.com/oksasatya/auth-api/pkg/helpers"
)

const (
	CtxUser   = "user"
	CtxUserID = "userID"

	MsgInvalidToken = "Invalid token. Please log in again!"
	MsgTokenExpired = "Your token has expired! Please log in again."
	MsgNoPermission = "You do not have permission to perform this action"
	bearerPrefix    = "Bearer "
)

// bearerToken reads the Authorization header first, then the access cookie
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); len(h) > len(bearerPrefix) && strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(h[len(bearerPrefix):])
	}
	if v, err := c.Cookie(helpers.AccessCookie); err == nil && v != helpers.LoggedOutValue {
		return v
	}
	return ""
}

// Protect resolves the access token into the current user. It rejects missing
// or bad tokens, deleted users and tokens issued before a password change.
// It never writes to the store.
func Protect(users repository.UserRepository, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortWith(c, apperr.Unauthenticated(application.MsgNotLoggedIn))
			return
		}

		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			msg := MsgInvalidToken
			if errors.Is(err, helpers.ErrTokenExpired) {
				msg = MsgTokenExpired
			}
			abortWith(c, apperr.Wrap(apperr.KindUnauthenticated, msg, err))
			return
		}

		u, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
				abortWith(c, apperr.Wrap(apperr.KindUnauthenticated, application.MsgUserGone, err))
				return
			}
			abortWith(c, apperr.Internal(err))
			return
		}

		if u.ChangedPasswordAfter(claims.IssuedAtTime()) {
			abortWith(c, apperr.Unauthenticated(application.MsgPasswordChanged))
			return
		}

		c.Set(CtxUser, u)
		c.Set(CtxUserID, u.ID)
		c.Next()
	}
}

// RestrictTo lets only the given roles through. It must run after Protect.
func RestrictTo(roles ...entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			abortWith(c, apperr.Unauthenticated(application.MsgNotLoggedIn))
			return
		}
		for _, r := range roles {
			if u.Role == r {
				c.Next()
				return
			}
		}
		abortWith(c, apperr.Forbidden(MsgNoPermission))
	}
}

// CurrentUser returns the user set by Protect, or nil
func CurrentUser(c *gin.Context) *entity.User {
	v, ok := c.Get(CtxUser)
	if !ok {
		return nil
	}
	u, _ := v.(*entity.User)
	return u
}

// abortWith records err for ErrorHandler and stops the chain
func abortWith(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

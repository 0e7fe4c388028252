package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	AccessCookie  = "jwt"
	RefreshCookie = "refreshToken"

	LoggedOutValue = "loggedout"
	loggedOutTTL   = 10 * time.Second
)

// Manager writes the auth cookies. The refresh cookie is scoped to RefreshPath
// so browsers only send it to the refresh endpoint.
type Manager struct {
	Domain      string
	Secure      bool
	RefreshPath string
}

func NewCookie(domain string, secure bool, refreshPath string) *Manager {
	return &Manager{Domain: domain, Secure: secure, RefreshPath: refreshPath}
}

func (m *Manager) SetPair(c *gin.Context, access string, aexp time.Time, refresh string, rexp time.Time) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(AccessCookie, access, maxAgeFrom(aexp), "/", m.Domain, m.Secure, true)
	c.SetCookie(RefreshCookie, refresh, maxAgeFrom(rexp), m.RefreshPath, m.Domain, m.Secure, true)
}

// Clear overwrites both cookies with a placeholder that expires almost immediately
func (m *Manager) Clear(c *gin.Context) {
	ttl := int(loggedOutTTL.Seconds())
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(AccessCookie, LoggedOutValue, ttl, "/", m.Domain, m.Secure, true)
	c.SetCookie(RefreshCookie, LoggedOutValue, ttl, m.RefreshPath, m.Domain, m.Secure, true)
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}

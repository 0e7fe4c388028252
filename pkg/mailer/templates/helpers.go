package templates

import (
	"strings"
	"time"

	"github.com/oksasatya/auth-api/config"
)

type Option func(*EmailData)

func WithIP(ip string) Option        { return func(d *EmailData) { d.IP = ip } }
func WithUserAgent(ua string) Option { return func(d *EmailData) { d.UserAgent = ua } }
func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04 MST")
	}
}
func WithResetURL(url string) Option { return func(d *EmailData) { d.ResetURL = url } }
func WithLoginURL(url string) Option { return func(d *EmailData) { d.LoginURL = url } }

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04 MST")
	}
}

// firstName mirrors how greetings address people: the first word of the name
func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// NewBaseEmailData fills the common fields from config, then applies options
func NewBaseEmailData(cfg *config.Config, typ string, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		FirstName:      firstName(name),
		Email:          email,
		RecipientEmail: email,
		Type:           typ,
	}
	if cfg != nil {
		d.CompanyName = cfg.CompanyName
		d.CompanyAddress = cfg.CompanyAddress
		d.AppName = cfg.AppName
		d.LogoURL = cfg.LogoURL
		d.SupportURL = cfg.SupportURL
		d.PrivacyURL = cfg.PrivacyURL
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewPasswordResetData(cfg *config.Config, name, email, resetURL string, expiresAt time.Time, opts ...Option) map[string]any {
	opts = append([]Option{WithResetURL(resetURL), WithExpiresAt(expiresAt)}, opts...)
	return ToMap(NewBaseEmailData(cfg, PasswordReset, name, email, opts...))
}

func NewWelcomeData(cfg *config.Config, name, email, loginURL string, opts ...Option) map[string]any {
	opts = append([]Option{WithLoginURL(loginURL)}, opts...)
	return ToMap(NewBaseEmailData(cfg, Welcome, name, email, opts...))
}

// Package notify delivers account emails: straight to a provider, through the
// RabbitMQ queue consumed by cmd/email_worker, or to the log in development.
package notify

import (
	"context"
	"time"

	"github.com/oksasatya/auth-api/config"
	"github.com/oksasatya/auth-api/internal/application"
	"github.com/oksasatya/auth-api/internal/domain/entity"
	"github.com/oksasatya/auth-api/pkg/mailer"
	mailtpl "github.com/oksasatya/auth-api/pkg/mailer/templates"
)

const sendTimeout = 10 * time.Second

func passwordResetJob(ctx context.Context, cfg *config.Config, u *entity.User, resetURL string, expiresAt time.Time) mailer.EmailJob {
	opts := []mailtpl.Option{mailtpl.WithTime(time.Now())}
	if r, ok := application.RequesterFrom(ctx); ok {
		opts = append(opts, mailtpl.WithIP(r.IP), mailtpl.WithUserAgent(r.UserAgent))
	}
	return mailer.EmailJob{
		To:       u.Email,
		Template: mailtpl.PasswordReset,
		Data:     mailtpl.NewPasswordResetData(cfg, u.Name, u.Email, resetURL, expiresAt, opts...),
	}
}

func welcomeJob(cfg *config.Config, u *entity.User) mailer.EmailJob {
	loginURL := ""
	if cfg != nil {
		loginURL = cfg.LoginURL
	}
	return mailer.EmailJob{
		To:       u.Email,
		Template: mailtpl.Welcome,
		Data:     mailtpl.NewWelcomeData(cfg, u.Name, u.Email, loginURL),
	}
}

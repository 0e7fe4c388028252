package notify

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/auth-api/config"
	"github.com/oksasatya/auth-api/internal/domain/entity"
	"github.com/oksasatya/auth-api/pkg/mailer"
	mailtpl "github.com/oksasatya/auth-api/pkg/mailer/templates"
)

// Publisher is satisfied by helpers.RabbitPublisher
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// QueueNotifier hands jobs to the email worker. A send only succeeds once the
// broker has confirmed the message.
type QueueNotifier struct {
	Publisher Publisher
	Config    *config.Config
}

func NewQueueNotifier(p Publisher, cfg *config.Config) *QueueNotifier {
	return &QueueNotifier{Publisher: p, Config: cfg}
}

func (n *QueueNotifier) publish(ctx context.Context, job mailer.EmailJob) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return n.Publisher.PublishJSON(ctx, job)
}

func (n *QueueNotifier) SendPasswordReset(ctx context.Context, u *entity.User, resetURL string, expiresAt time.Time) error {
	return n.publish(ctx, passwordResetJob(ctx, n.Config, u, resetURL, expiresAt))
}

func (n *QueueNotifier) SendWelcome(ctx context.Context, u *entity.User) error {
	return n.publish(ctx, welcomeJob(n.Config, u))
}

// DirectNotifier renders templates in-process and calls the provider.
type DirectNotifier struct {
	Sender   mailer.Sender
	Config   *config.Config
	Resolver mailtpl.GeoResolver
}

func NewDirectNotifier(s mailer.Sender, cfg *config.Config, resolver mailtpl.GeoResolver) *DirectNotifier {
	return &DirectNotifier{Sender: s, Config: cfg, Resolver: resolver}
}

func (n *DirectNotifier) deliver(ctx context.Context, job mailer.EmailJob) error {
	r, err := mailer.RenderJob(ctx, job, n.Resolver)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return n.Sender.Send(ctx, r.To, r.Subject, r.Text, r.HTML)
}

func (n *DirectNotifier) SendPasswordReset(ctx context.Context, u *entity.User, resetURL string, expiresAt time.Time) error {
	return n.deliver(ctx, passwordResetJob(ctx, n.Config, u, resetURL, expiresAt))
}

func (n *DirectNotifier) SendWelcome(ctx context.Context, u *entity.User) error {
	return n.deliver(ctx, welcomeJob(n.Config, u))
}

var ErrLogOnlyInDevelopment = errors.New("notify: log driver refuses to print reset links outside development")

// LogNotifier writes mail to the logger instead of sending it. Reset links
// carry a live secret, so they are only printed in development.
type LogNotifier struct {
	Logger *logrus.Logger
	Env    string
}

func NewLogNotifier(logger *logrus.Logger, env string) *LogNotifier {
	return &LogNotifier{Logger: logger, Env: env}
}

func (n *LogNotifier) SendPasswordReset(_ context.Context, u *entity.User, resetURL string, expiresAt time.Time) error {
	if n.Env != "development" {
		return ErrLogOnlyInDevelopment
	}
	n.Logger.WithFields(logrus.Fields{
		"to":         u.Email,
		"reset_url":  resetURL,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	}).Info("password reset email")
	return nil
}

func (n *LogNotifier) SendWelcome(_ context.Context, u *entity.User) error {
	n.Logger.WithField("to", u.Email).Info("welcome email")
	return nil
}

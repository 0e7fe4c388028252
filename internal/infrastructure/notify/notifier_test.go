package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/auth-api/config"
	"github.com/oksasatya/auth-api/internal/application"
	"github.com/oksasatya/auth-api/internal/domain/entity"
	"github.com/oksasatya/auth-api/pkg/mailer"
	mailtpl "github.com/oksasatya/auth-api/pkg/mailer/templates"
)

type capturePublisher struct {
	jobs []mailer.EmailJob
	err  error
}

func (p *capturePublisher) PublishJSON(_ context.Context, body any) error {
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, body.(mailer.EmailJob))
	return nil
}

type captureSender struct {
	to, subject, text, html string
	err                     error
}

func (s *captureSender) Send(ctx context.Context, to, subject, text, html string) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("send without deadline")
	}
	s.to, s.subject, s.text, s.html = to, subject, text, html
	return s.err
}

var alice = &entity.User{ID: "u1", Name: "Alice Liddell", Email: "alice@example.com"}

func TestQueueNotifier(t *testing.T) {
	t.Parallel()
	pub := &capturePublisher{}
	n := NewQueueNotifier(pub, &config.Config{AppName: "Natours", LoginURL: "https://app.example.com/login"})

	exp := time.Now().Add(10 * time.Minute)
	require.NoError(t, n.SendPasswordReset(context.Background(), alice, "https://app.example.com/reset/abc", exp))
	require.NoError(t, n.SendWelcome(context.Background(), alice))
	require.Len(t, pub.jobs, 2)

	assert.Equal(t, mailtpl.PasswordReset, pub.jobs[0].Template)
	assert.Equal(t, "alice@example.com", pub.jobs[0].To)
	assert.Equal(t, "https://app.example.com/reset/abc", pub.jobs[0].Data["ResetURL"])

	assert.Equal(t, mailtpl.Welcome, pub.jobs[1].Template)
	assert.Equal(t, "https://app.example.com/login", pub.jobs[1].Data["LoginURL"])

	pub.err = errors.New("nack")
	assert.Error(t, n.SendWelcome(context.Background(), alice))
}

func TestQueueNotifierCarriesRequester(t *testing.T) {
	t.Parallel()
	pub := &capturePublisher{}
	n := NewQueueNotifier(pub, &config.Config{AppName: "Natours"})

	ctx := application.WithRequester(context.Background(), application.Requester{IP: "203.0.113.9", UserAgent: "curl/8.0"})
	require.NoError(t, n.SendPasswordReset(ctx, alice, "https://app.example.com/reset/abc", time.Now().Add(10*time.Minute)))
	require.Len(t, pub.jobs, 1)
	assert.Equal(t, "203.0.113.9", pub.jobs[0].Data["IP"])
	assert.Equal(t, "curl/8.0", pub.jobs[0].Data["UserAgent"])
}

func TestDirectNotifierRendersTemplates(t *testing.T) {
	t.Parallel()
	s := &captureSender{}
	n := NewDirectNotifier(s, &config.Config{AppName: "Natours"}, nil)

	err := n.SendPasswordReset(context.Background(), alice, "https://app.example.com/reset/abc", time.Now().Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", s.to)
	assert.Equal(t, "Your password reset token (valid for only 10 minutes)", s.subject)
	assert.Contains(t, s.text, "https://app.example.com/reset/abc")
	assert.Contains(t, s.html, "https://app.example.com/reset/abc")

	s.err = mailer.ErrFailedToSendEmail
	err = n.SendWelcome(context.Background(), alice)
	assert.ErrorIs(t, err, mailer.ErrFailedToSendEmail)
}

func TestLogNotifier(t *testing.T) {
	t.Parallel()
	logger, hook := logtest.NewNullLogger()

	dev := NewLogNotifier(logger, "development")
	require.NoError(t, dev.SendPasswordReset(context.Background(), alice, "http://localhost/reset/abc", time.Now()))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "http://localhost/reset/abc", entry.Data["reset_url"])

	hook.Reset()
	prod := NewLogNotifier(logger, "production")
	err := prod.SendPasswordReset(context.Background(), alice, "http://localhost/reset/abc", time.Now())
	assert.ErrorIs(t, err, ErrLogOnlyInDevelopment)
	assert.Empty(t, hook.AllEntries())

	require.NoError(t, prod.SendWelcome(context.Background(), alice))
	assert.Len(t, hook.AllEntries(), 1)
}

package mailer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/auth-api/config"
	"github.com/oksasatya/auth-api/pkg/mailer"
	mailtpl "github.com/oksasatya/auth-api/pkg/mailer/templates"
)

type stubResolver struct {
	geo mailtpl.Geo
	err error
}

func (s stubResolver) Lookup(context.Context, string) (mailtpl.Geo, error) { return s.geo, s.err }

func TestRenderJob_PasswordReset(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{AppName: "Natours", CompanyName: "Natours Inc"}
	expires := time.Date(2026, 10, 18, 12, 10, 0, 0, time.UTC)
	data := mailtpl.NewPasswordResetData(cfg, "Alice Liddell", "alice@example.com",
		"https://example.com/api/auth/resetPassword/abc123", expires, mailtpl.WithIP("203.0.113.9"))

	job := mailer.EmailJob{To: "alice@example.com", Template: mailtpl.PasswordReset, Data: data}
	out, err := mailer.RenderJob(context.Background(), job, stubResolver{
		geo: mailtpl.Geo{City: "Lisbon", Country: "Portugal", Timezone: "Europe/Lisbon"},
	})
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", out.To)
	assert.Equal(t, "Your password reset token (valid for only 10 minutes)", out.Subject)
	assert.Contains(t, out.Text, "Hi Alice,")
	assert.Contains(t, out.Text, "https://example.com/api/auth/resetPassword/abc123")
	assert.Contains(t, out.Text, "Lisbon, Portugal")
	assert.Contains(t, out.HTML, `href="https://example.com/api/auth/resetPassword/abc123"`)
	assert.Contains(t, out.HTML, "Natours Inc")
}

func TestRenderJob_Welcome(t *testing.T) {
	t.Parallel()

	data := mailtpl.NewWelcomeData(&config.Config{AppName: "Natours"}, "Bob", "bob@example.com", "")
	out, err := mailer.RenderJob(context.Background(), mailer.EmailJob{To: "bob@example.com", Template: mailtpl.Welcome, Data: data}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Welcome to Natours!", out.Subject)
	assert.Contains(t, out.Text, "bob@example.com")
}

func TestRenderJob_Raw(t *testing.T) {
	t.Parallel()

	out, err := mailer.RenderJob(context.Background(), mailer.EmailJob{To: "x@example.com", Subject: "hi", Text: "body"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Subject)
	assert.Equal(t, "body", out.Text)
}

func TestRenderJob_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		job  mailer.EmailJob
	}{
		{"no recipient", mailer.EmailJob{Subject: "s", Text: "t"}},
		{"no content", mailer.EmailJob{To: "x@example.com"}},
		{"subject only", mailer.EmailJob{To: "x@example.com", Subject: "s"}},
		{"unknown template", mailer.EmailJob{To: "x@example.com", Template: "nope"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := mailer.RenderJob(context.Background(), tt.job, nil)
			assert.Error(t, err)
		})
	}
}

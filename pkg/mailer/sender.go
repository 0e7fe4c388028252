package mailer

import (
	"context"
	"errors"
)

var (
	ErrFailedToSendEmail = errors.New("mailer: failed to send email")
	ErrInvalidConfig     = errors.New("mailer: invalid config")
)

// Sender delivers a rendered email
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

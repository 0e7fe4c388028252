package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mrz1836/postmark"
)

// Postmark sends email through Postmark's transactional API
type Postmark struct {
	client *postmark.Client
	from   string
	tag    string
}

func NewPostmark(serverToken, accountToken, from string) (*Postmark, error) {
	if serverToken == "" || from == "" {
		return nil, fmt.Errorf("%w: postmark server token and sender are required", ErrInvalidConfig)
	}
	return &Postmark{client: postmark.NewClient(serverToken, accountToken), from: from, tag: "auth"}, nil
}

func (p *Postmark) Send(ctx context.Context, to, subject, text, html string) error {
	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	resp, err := p.client.SendEmail(c, postmark.Email{
		From:     p.from,
		To:       to,
		Subject:  subject,
		Tag:      p.tag,
		TextBody: text,
		HTMLBody: html,
	})
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrFailedToSendEmail, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}

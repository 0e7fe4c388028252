package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/auth-api/config"
	"github.com/oksasatya/auth-api/pkg/mailer"
	mailtpl "github.com/oksasatya/auth-api/pkg/mailer/templates"
)

// NewSender picks the provider named by provider (mailgun or postmark).
func NewSender(cfg *config.Config, provider string) (mailer.Sender, error) {
	switch provider {
	case config.MailPostmark:
		pm, err := mailer.NewPostmark(cfg.PostmarkServerToken, cfg.PostmarkAccountToken, cfg.PostmarkSender)
		if err != nil {
			return nil, err
		}
		return pm, nil
	case config.MailMailgun:
		mg, err := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
		if err != nil {
			return nil, err
		}
		return mg, nil
	default:
		return nil, fmt.Errorf("%w: unknown mail provider %q", mailer.ErrInvalidConfig, provider)
	}
}

// Outcome says what the consumer should do with a delivery.
type Outcome int

const (
	Ack     Outcome = iota
	Drop            // nack without requeue; the message can never succeed
	Requeue         // nack with requeue; the provider may recover
)

// Worker drains the email queue.
type Worker struct {
	Sender   mailer.Sender
	Resolver mailtpl.GeoResolver
	Logger   *logrus.Logger
}

func NewWorker(s mailer.Sender, resolver mailtpl.GeoResolver, logger *logrus.Logger) *Worker {
	return &Worker{Sender: s, Resolver: resolver, Logger: logger}
}

// Handle renders and sends one queued job.
func (w *Worker) Handle(ctx context.Context, body []byte) Outcome {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.Logger.WithError(err).Warn("email worker: bad message")
		return Drop
	}
	log := w.Logger.WithFields(logrus.Fields{"to": job.To, "template": job.Template})

	r, err := mailer.RenderJob(ctx, job, w.Resolver)
	if err != nil {
		log.WithError(err).Warn("email worker: render failed")
		return Drop
	}

	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := w.Sender.Send(c, r.To, r.Subject, r.Text, r.HTML); err != nil {
		log.WithError(err).Error("email worker: send failed")
		return Requeue
	}
	log.Debug("email worker: sent")
	return Ack
}

// Run consumes deliveries until the channel closes or ctx is done.
func (w *Worker) Run(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			switch w.Handle(ctx, msg.Body) {
			case Ack:
				_ = msg.Ack(false)
			case Drop:
				_ = msg.Nack(false, false)
			case Requeue:
				_ = msg.Nack(false, true)
			}
		}
	}
}

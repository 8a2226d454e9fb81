// Package notify mails the meeting briefing to its recipients.
package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"

	"github.com/anemonautas/meetingbot/internal/domain/meeting"
)

// SubjectPrefix is prepended to every briefing subject.
const SubjectPrefix = "CR "

// Mailer sends a briefing.
type Mailer interface {
	Send(ctx context.Context, b *meeting.Briefing) error
}

// Config selects the mail backend.
type Config struct {
	APIKey string
	From   string
	To     []string
}

// New returns a Resend mailer, or a Noop when mail is not configured.
func New(cfg Config, log logrus.FieldLogger) Mailer {
	if cfg.APIKey == "" || len(cfg.To) == 0 {
		return Noop{Log: log}
	}
	return &Resend{
		Client: resend.NewClient(cfg.APIKey),
		From:   cfg.From,
		To:     cfg.To,
	}
}

// Resend sends mail through the Resend API.
type Resend struct {
	Client *resend.Client
	From   string
	To     []string
}

func (r *Resend) Send(ctx context.Context, b *meeting.Briefing) error {
	req := &resend.SendEmailRequest{
		From:    r.From,
		To:      r.To,
		Subject: Subject(b),
		Html:    b.Body,
	}
	if _, err := r.Client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("sending briefing to %v: %w", r.To, err)
	}
	return nil
}

// Subject builds the mail subject line for a briefing.
func Subject(b *meeting.Briefing) string {
	return SubjectPrefix + b.Subject
}

// Noop logs instead of sending.
type Noop struct {
	Log logrus.FieldLogger
}

func (n Noop) Send(_ context.Context, b *meeting.Briefing) error {
	if n.Log != nil {
		n.Log.Warnf("mail not configured, skipping briefing %q", Subject(b))
	}
	return nil
}

package email

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/resend/resend-go/v2"
)

type Email struct {
	From    string
	To      string
	Subject string
	Text    string
	Html    string
}

// Sender is the outbound notification channel. The fan-out treats it
// as a black box; dispatch failures are reported, never fatal.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

type ResendSender struct {
	client *resend.Client
}

func NewResendSender(apiKey string) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
	}
}

var _ Sender = &ResendSender{}

func (s *ResendSender) Send(ctx context.Context, email Email) error {
	_, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    email.From,
		To:      []string{email.To},
		Subject: email.Subject,
		Text:    email.Text,
		Html:    email.Html,
	})
	if err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}

// RFC 5322 compliant, minus the MX lookup; deliverability is resend's
// problem, not ours.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_\x60{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func IsValidEmail(email string) bool {
	if len(email) < 3 || len(email) > 254 {
		return false
	}
	if !emailPattern.MatchString(email) {
		return false
	}
	return strings.Count(email, "@") == 1
}

package state

import (
	"context"
	"log/slog"

	"memorylane.app/core/appview/email"
)

// logSender stands in for the real channel in dev mode.
type logSender struct {
	logger *slog.Logger
}

var _ email.Sender = &logSender{}

func (s *logSender) Send(ctx context.Context, e email.Email) error {
	s.logger.Info("would send email", "to", e.To, "subject", e.Subject)
	return nil
}

// Package unlock holds the single transition operation shared by the
// scheduler sweep and the owner's manual trigger. All paths funnel
// through the store's conditional update; whoever loses the race gets
// a silent no-op and sends nothing.
package unlock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"memorylane.app/core/appview/db"
	"memorylane.app/core/appview/email"
	"memorylane.app/core/appview/fanout"
	"memorylane.app/core/appview/models"
	"memorylane.app/core/appview/notify"
)

type Service struct {
	Db       *db.DB
	Fanout   *fanout.Fanout
	Notifier notify.Notifier
	Logger   *slog.Logger

	// AppHost is the public base URL used in notification links.
	AppHost  string
	SentFrom string
}

type Result struct {
	AlreadyUnlocked bool
	Report          fanout.Report
}

// Unlock transitions the capsule to unlocked and, if this caller won
// the race, fans out one notification per deduplicated address. The
// fan-out report never fails the operation; the transition committed
// before any email left the building.
func (s *Service) Unlock(ctx context.Context, capsuleId string) (Result, error) {
	capsule, err := db.GetCapsule(s.Db, capsuleId)
	if err != nil {
		return Result{}, err
	}

	alreadyUnlocked, err := db.TransitionToUnlocked(s.Db, capsule.Id, time.Now())
	if err != nil {
		return Result{}, err
	}
	if alreadyUnlocked {
		return Result{AlreadyUnlocked: true}, nil
	}

	// the transition is committed; a caller hanging up must not cancel
	// the batch mid-flight. Each dispatch still has its own timeout.
	report := s.Fanout.Dispatch(context.WithoutCancel(ctx), s.unlockEmails(capsule))
	s.Logger.Info("capsule unlocked",
		"capsule", capsule.Id,
		"sent", report.Sent,
		"failed", len(report.Failed),
	)

	s.Notifier.CapsuleUnlocked(ctx, capsule)

	return Result{Report: report}, nil
}

func (s *Service) unlockEmails(c *models.Capsule) []email.Email {
	sender := c.OwnerName
	if sender == "" {
		sender = "Someone special"
	}
	url := fmt.Sprintf("%s/unlocked/%s", s.AppHost, c.Id)

	addrs := c.NotifyAddresses()
	emails := make([]email.Email, 0, len(addrs))
	for _, addr := range addrs {
		emails = append(emails, email.Email{
			From:    s.SentFrom,
			To:      addr,
			Subject: fmt.Sprintf("A Time Capsule Has Unlocked: %q", c.Title),
			Text: fmt.Sprintf(
				"A time capsule created by %s is now ready to be opened: %q\n\nOpen it here: %s\n\nIf you did not expect this email, please ignore it.",
				sender, c.Title, url,
			),
			Html: fmt.Sprintf(
				`<p>A special time capsule created by <strong>%s</strong> is now ready to be opened:</p><h2>%s</h2><p><a href="%s">Open Your Time Capsule</a></p>`,
				sender, c.Title, url,
			),
		})
	}
	return emails
}

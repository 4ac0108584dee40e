package notify

import (
	"context"
	"log/slog"
	"sync"

	"memorylane.app/core/appview/models"
	"memorylane.app/core/log"
)

type mergedNotifier struct {
	notifiers []Notifier
	logger    *slog.Logger
}

// NewMergedNotifier broadcasts each event to all notifiers concurrently
// and waits for them.
func NewMergedNotifier(logger *slog.Logger, notifiers ...Notifier) Notifier {
	return &mergedNotifier{notifiers, logger}
}

var _ Notifier = &mergedNotifier{}

func (m *mergedNotifier) each(ctx context.Context, event string, fn func(n Notifier)) {
	ctx = log.IntoContext(ctx, m.logger.With("event", event))
	var wg sync.WaitGroup
	for _, n := range m.notifiers {
		wg.Add(1)
		go func(notifier Notifier) {
			defer wg.Done()
			fn(notifier)
		}(n)
	}
	wg.Wait()
}

func (m *mergedNotifier) CapsuleCreated(ctx context.Context, capsule *models.Capsule) {
	m.each(ctx, "capsule_created", func(n Notifier) { n.CapsuleCreated(ctx, capsule) })
}

func (m *mergedNotifier) CapsuleUnlocked(ctx context.Context, capsule *models.Capsule) {
	m.each(ctx, "capsule_unlocked", func(n Notifier) { n.CapsuleUnlocked(ctx, capsule) })
}

func (m *mergedNotifier) ReactionToggled(ctx context.Context, capsule *models.Capsule, userId string, action models.ReactionAction) {
	m.each(ctx, "reaction_toggled", func(n Notifier) { n.ReactionToggled(ctx, capsule, userId, action) })
}

func (m *mergedNotifier) CommentAdded(ctx context.Context, capsule *models.Capsule, comment *models.Comment) {
	m.each(ctx, "comment_added", func(n Notifier) { n.CommentAdded(ctx, capsule, comment) })
}

func (m *mergedNotifier) CollaboratorAdded(ctx context.Context, capsule *models.Capsule, collaborator *models.Collaborator) {
	m.each(ctx, "collaborator_added", func(n Notifier) { n.CollaboratorAdded(ctx, capsule, collaborator) })
}

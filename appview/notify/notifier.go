package notify

import (
	"context"

	"memorylane.app/core/appview/models"
)

// Notifier receives lifecycle events after they commit. Implementations
// must be best-effort and non-blocking for the caller's correctness;
// the unlock transition has already happened by the time these fire.
type Notifier interface {
	CapsuleCreated(ctx context.Context, capsule *models.Capsule)
	CapsuleUnlocked(ctx context.Context, capsule *models.Capsule)
	ReactionToggled(ctx context.Context, capsule *models.Capsule, userId string, action models.ReactionAction)
	CommentAdded(ctx context.Context, capsule *models.Capsule, comment *models.Comment)
	CollaboratorAdded(ctx context.Context, capsule *models.Capsule, collaborator *models.Collaborator)
}

// BaseNotifier is a listener that does nothing
type BaseNotifier struct{}

var _ Notifier = &BaseNotifier{}

func (m *BaseNotifier) CapsuleCreated(ctx context.Context, capsule *models.Capsule)  {}
func (m *BaseNotifier) CapsuleUnlocked(ctx context.Context, capsule *models.Capsule) {}
func (m *BaseNotifier) ReactionToggled(ctx context.Context, capsule *models.Capsule, userId string, action models.ReactionAction) {
}
func (m *BaseNotifier) CommentAdded(ctx context.Context, capsule *models.Capsule, comment *models.Comment) {
}
func (m *BaseNotifier) CollaboratorAdded(ctx context.Context, capsule *models.Capsule, collaborator *models.Collaborator) {
}

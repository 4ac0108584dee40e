package posthog

import (
	"context"
	"log"

	"github.com/posthog/posthog-go"

	"memorylane.app/core/appview/models"
	"memorylane.app/core/appview/notify"
)

type posthogNotifier struct {
	client posthog.Client
	notify.BaseNotifier
}

func NewPosthogNotifier(client posthog.Client) notify.Notifier {
	return &posthogNotifier{
		client,
		notify.BaseNotifier{},
	}
}

var _ notify.Notifier = &posthogNotifier{}

func (n *posthogNotifier) CapsuleCreated(ctx context.Context, capsule *models.Capsule) {
	err := n.client.Enqueue(posthog.Capture{
		DistinctId: capsule.OwnerId,
		Event:      "capsule_created",
		Properties: posthog.Properties{
			"capsule":    capsule.Id,
			"theme":      capsule.Theme,
			"privacy":    capsule.Privacy,
			"recipients": len(capsule.RecipientEmails),
		},
	})
	if err != nil {
		log.Println("failed to enqueue posthog event:", err)
	}
}

func (n *posthogNotifier) CapsuleUnlocked(ctx context.Context, capsule *models.Capsule) {
	err := n.client.Enqueue(posthog.Capture{
		DistinctId: capsule.OwnerId,
		Event:      "capsule_unlocked",
		Properties: posthog.Properties{
			"capsule": capsule.Id,
			"kind":    capsule.UnlockKind,
		},
	})
	if err != nil {
		log.Println("failed to enqueue posthog event:", err)
	}
}

func (n *posthogNotifier) ReactionToggled(ctx context.Context, capsule *models.Capsule, userId string, action models.ReactionAction) {
	err := n.client.Enqueue(posthog.Capture{
		DistinctId: userId,
		Event:      "reaction_toggled",
		Properties: posthog.Properties{
			"capsule": capsule.Id,
			"action":  action,
		},
	})
	if err != nil {
		log.Println("failed to enqueue posthog event:", err)
	}
}

func (n *posthogNotifier) CommentAdded(ctx context.Context, capsule *models.Capsule, comment *models.Comment) {
	err := n.client.Enqueue(posthog.Capture{
		DistinctId: comment.UserId,
		Event:      "comment_added",
		Properties: posthog.Properties{"capsule": capsule.Id},
	})
	if err != nil {
		log.Println("failed to enqueue posthog event:", err)
	}
}

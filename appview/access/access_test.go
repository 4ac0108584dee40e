package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"memorylane.app/core/appview/models"
)

var (
	owner     = models.Principal{Id: "owner-1", Email: "owner@example.com"}
	collab    = models.Principal{Id: "collab-1", Email: "collab@example.com"}
	recipient = models.Principal{Id: "rec-1", Email: "rec@example.com"}
	stranger  = models.Principal{Id: "other-1", Email: "other@example.com"}
)

func capsule(privacy models.Privacy, state models.LifecycleState, unlockAt time.Time) *models.Capsule {
	return &models.Capsule{
		Id:              "cap-1",
		OwnerId:         owner.Id,
		OwnerEmail:      owner.Email,
		Collaborators:   []models.Collaborator{{UserId: collab.Id, Email: collab.Email}},
		RecipientEmails: []string{recipient.Email},
		UnlockKind:      models.UnlockAtDate,
		UnlockAt:        &unlockAt,
		State:           state,
		Privacy:         privacy,
	}
}

func TestCanView(t *testing.T) {
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name      string
		principal models.Principal
		privacy   models.Privacy
		want      bool
	}{
		{"owner on private", owner, models.PrivacyPrivate, true},
		{"collaborator on private", collab, models.PrivacyPrivate, true},
		{"recipient on private", recipient, models.PrivacyPrivate, true},
		{"stranger on private", stranger, models.PrivacyPrivate, false},
		{"stranger on recipients-only", stranger, models.PrivacyRecipientsOnly, false},
		{"stranger on public", stranger, models.PrivacyPublic, true},
		{"recipient on recipients-only", recipient, models.PrivacyRecipientsOnly, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := capsule(tt.privacy, models.StateLocked, future)
			assert.Equal(t, tt.want, CanView(tt.principal, c))

			// the membership predicate ignores lifecycle state
			c.State = models.StateUnlocked
			assert.Equal(t, tt.want, CanView(tt.principal, c))
		})
	}
}

func TestEvaluateContentGating(t *testing.T) {
	now := time.Now()

	t.Run("stranger forbidden before and after unlock", func(t *testing.T) {
		c := capsule(models.PrivacyRecipientsOnly, models.StateLocked, now.Add(time.Hour))
		assert.Equal(t, Forbidden, EvaluateContent(stranger, c, now).Level)

		c.State = models.StateUnlocked
		assert.Equal(t, Forbidden, EvaluateContent(stranger, c, now).Level)
	})

	t.Run("recipient gets metadata before unlock", func(t *testing.T) {
		c := capsule(models.PrivacyRecipientsOnly, models.StateLocked, now.Add(time.Hour))
		d := EvaluateContent(recipient, c, now)
		assert.Equal(t, MetadataOnly, d.Level)
		assert.NotEmpty(t, d.Remaining)
	})

	t.Run("recipient gets full content after unlock", func(t *testing.T) {
		c := capsule(models.PrivacyRecipientsOnly, models.StateUnlocked, now.Add(-time.Hour))
		assert.Equal(t, Full, EvaluateContent(recipient, c, now).Level)
	})

	t.Run("condition satisfied but state not flipped yet", func(t *testing.T) {
		// scheduler latency must not keep members out
		c := capsule(models.PrivacyRecipientsOnly, models.StateLocked, now.Add(-time.Minute))
		assert.Equal(t, Full, EvaluateContent(recipient, c, now).Level)
	})

	t.Run("manual capsule stays sealed until triggered", func(t *testing.T) {
		c := capsule(models.PrivacyRecipientsOnly, models.StateLocked, now.Add(-time.Hour))
		c.UnlockKind = models.UnlockManual
		c.UnlockAt = nil
		d := EvaluateContent(owner, c, now)
		assert.Equal(t, MetadataOnly, d.Level)
		assert.Empty(t, d.Remaining)
	})
}

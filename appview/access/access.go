// Package access decides who may view a capsule and how much of it.
// Membership and content gating are two separate questions: a
// non-member is denied outright regardless of lifecycle state, and a
// member is never denied once the unlock condition has passed.
package access

import (
	"time"

	"github.com/dustin/go-humanize"

	"memorylane.app/core/appview/models"
)

// CanView is the membership predicate. It is evaluated identically
// before and after unlock.
func CanView(p models.Principal, c *models.Capsule) bool {
	if c.IsOwner(p.Id) {
		return true
	}
	if c.IsCollaborator(p.Id) {
		return true
	}
	if c.IsRecipient(p.Email) {
		return true
	}
	return c.Privacy == models.PrivacyPublic
}

type Level int

const (
	// Forbidden: not a member and the capsule is not public.
	Forbidden Level = iota
	// MetadataOnly: member of a capsule still sealed; media, comments
	// and reactions are withheld.
	MetadataOnly
	// Full: member and the unlock condition has been satisfied, even
	// if the scheduler has not flipped the state yet.
	Full
)

type Decision struct {
	Level Level
	// Remaining is a human-readable countdown, set only for
	// MetadataOnly decisions on date capsules.
	Remaining string
}

// EvaluateContent computes the content-read decision for a principal.
// The satisfied-but-not-yet-flipped tolerance is deliberate: scheduler
// latency must not block legitimate access once the wall clock has
// passed the unlock time.
func EvaluateContent(p models.Principal, c *models.Capsule, now time.Time) Decision {
	if !CanView(p, c) {
		return Decision{Level: Forbidden}
	}
	if c.ConditionSatisfied(now) {
		return Decision{Level: Full}
	}

	d := Decision{Level: MetadataOnly}
	if c.UnlockKind == models.UnlockAtDate && c.UnlockAt != nil {
		d.Remaining = humanize.Time(*c.UnlockAt)
	}
	return d
}

package models

import (
	"strings"
	"time"
)

type LifecycleState string

const (
	StateLocked   LifecycleState = "locked"
	StateUnlocked LifecycleState = "unlocked"
)

type Privacy string

const (
	PrivacyPrivate        Privacy = "private"
	PrivacyRecipientsOnly Privacy = "recipients-only"
	PrivacyPublic         Privacy = "public"
)

func ParsePrivacy(raw string) (Privacy, bool) {
	switch Privacy(raw) {
	case PrivacyPrivate, PrivacyRecipientsOnly, PrivacyPublic:
		return Privacy(raw), true
	}
	return "", false
}

type UnlockKind string

const (
	UnlockAtDate UnlockKind = "date"
	UnlockManual UnlockKind = "manual"
)

type Theme string

const (
	ThemeChildhood     Theme = "Childhood"
	ThemeFamilyHistory Theme = "Family History"
	ThemeCollegeYears  Theme = "College Years"
	ThemeWedding       Theme = "Wedding"
	ThemeOther         Theme = "Other"
)

var OrderedThemes = []Theme{
	ThemeChildhood,
	ThemeFamilyHistory,
	ThemeCollegeYears,
	ThemeWedding,
	ThemeOther,
}

func ParseTheme(raw string) Theme {
	for _, t := range OrderedThemes {
		if string(t) == raw {
			return t
		}
	}
	return ThemeOther
}

type Collaborator struct {
	UserId string
	Email  string
	Added  time.Time
}

type Capsule struct {
	Id          string
	Title       string
	Description string

	OwnerId    string
	OwnerEmail string
	OwnerName  string

	Collaborators   []Collaborator
	RecipientEmails []string

	UnlockKind UnlockKind
	// UnlockAt is set only for date-kind capsules. Immutable after creation.
	UnlockAt *time.Time

	State   LifecycleState
	Privacy Privacy
	Theme   Theme

	Created    time.Time
	UnlockedAt *time.Time
}

// ConditionSatisfied reports whether the unlock condition has been met
// at the given instant. A date capsule whose wall-clock time has passed
// is satisfied even if the scheduler has not flipped its state yet.
func (c *Capsule) ConditionSatisfied(now time.Time) bool {
	if c.State == StateUnlocked {
		return true
	}
	return c.UnlockKind == UnlockAtDate && c.UnlockAt != nil && !c.UnlockAt.After(now)
}

func (c *Capsule) IsOwner(userId string) bool {
	return c.OwnerId == userId
}

// IsCollaborator treats the owner as an implicit collaborator.
func (c *Capsule) IsCollaborator(userId string) bool {
	if c.IsOwner(userId) {
		return true
	}
	for _, collab := range c.Collaborators {
		if collab.UserId == userId {
			return true
		}
	}
	return false
}

func (c *Capsule) IsRecipient(email string) bool {
	email = strings.ToLower(email)
	for _, r := range c.RecipientEmails {
		if r == email {
			return true
		}
	}
	return false
}

// NotifyAddresses is the deduplicated union of the owner's address, all
// recipient addresses and all collaborator addresses, in stable order.
func (c *Capsule) NotifyAddresses() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(addr string) {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" {
			return
		}
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}

	add(c.OwnerEmail)
	for _, r := range c.RecipientEmails {
		add(r)
	}
	for _, collab := range c.Collaborators {
		add(collab.Email)
	}
	return out
}

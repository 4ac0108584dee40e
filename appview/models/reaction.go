package models

import "time"

// Reaction is keyed by (capsule, user); at most one live reaction per
// key at any time. Mutation goes through db.ToggleReaction.
type Reaction struct {
	CapsuleId string
	UserId    string
	Emoji     string
	Created   time.Time
}

// ReactionAction is the outcome of a toggle.
type ReactionAction string

const (
	ReactionAdded   ReactionAction = "added"
	ReactionUpdated ReactionAction = "updated"
	ReactionRemoved ReactionAction = "removed"
)

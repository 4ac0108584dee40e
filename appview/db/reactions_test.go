package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memorylane.app/core/appview/models"
)

func TestToggleReactionRoundTrip(t *testing.T) {
	d := testDB(t)

	c := dateCapsule(time.Now().Add(-time.Minute))
	require.NoError(t, CreateCapsule(d, c))

	action, err := ToggleReaction(d, c.Id, "user-1", "❤️")
	require.NoError(t, err)
	assert.Equal(t, models.ReactionAdded, action)

	action, err = ToggleReaction(d, c.Id, "user-1", "❤️")
	require.NoError(t, err)
	assert.Equal(t, models.ReactionRemoved, action)

	reactions, err := GetReactions(d, c.Id)
	require.NoError(t, err)
	assert.Empty(t, reactions, "toggling the same emoji twice leaves no reaction")
}

func TestToggleReactionReplace(t *testing.T) {
	d := testDB(t)

	c := dateCapsule(time.Now().Add(-time.Minute))
	require.NoError(t, CreateCapsule(d, c))

	action, err := ToggleReaction(d, c.Id, "user-1", "❤️")
	require.NoError(t, err)
	assert.Equal(t, models.ReactionAdded, action)

	action, err = ToggleReaction(d, c.Id, "user-1", "🎉")
	require.NoError(t, err)
	assert.Equal(t, models.ReactionUpdated, action)

	reactions, err := GetReactions(d, c.Id)
	require.NoError(t, err)
	require.Len(t, reactions, 1, "replace must not leave two rows for one user")
	assert.Equal(t, "🎉", reactions[0].Emoji)
}

func TestToggleReactionPerUser(t *testing.T) {
	d := testDB(t)

	c := dateCapsule(time.Now().Add(-time.Minute))
	require.NoError(t, CreateCapsule(d, c))

	_, err := ToggleReaction(d, c.Id, "user-1", "❤️")
	require.NoError(t, err)
	_, err = ToggleReaction(d, c.Id, "user-2", "❤️")
	require.NoError(t, err)

	counts, err := GetReactionCounts(d, c.Id)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"❤️": 2}, counts)
}

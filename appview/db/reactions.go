package db

import (
	"database/sql"
	"errors"

	"memorylane.app/core/appview/models"
)

// ToggleReaction applies the one-reaction-per-user state machine for a
// (capsule, user) pair inside a single transaction:
//
//	no reaction        -> insert emoji        -> added
//	same emoji         -> delete              -> removed
//	different emoji    -> update in place     -> updated
//
// The read and the write happen under one sqlite write transaction, so
// two concurrent toggles from the same user cannot both observe "no
// existing reaction". The (capsule_id, user_id) primary key backs the
// invariant either way.
func ToggleReaction(d *DB, capsuleId, userId, emoji string) (models.ReactionAction, error) {
	tx, err := d.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRow(
		`select emoji from reactions where capsule_id = ? and user_id = ?`,
		capsuleId, userId,
	).Scan(&existing)

	var action models.ReactionAction
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.Exec(
			`insert into reactions (capsule_id, user_id, emoji) values (?, ?, ?)`,
			capsuleId, userId, emoji,
		)
		action = models.ReactionAdded
	case err != nil:
		return "", err
	case existing == emoji:
		_, err = tx.Exec(
			`delete from reactions where capsule_id = ? and user_id = ?`,
			capsuleId, userId,
		)
		action = models.ReactionRemoved
	default:
		_, err = tx.Exec(
			`update reactions set emoji = ? where capsule_id = ? and user_id = ?`,
			emoji, capsuleId, userId,
		)
		action = models.ReactionUpdated
	}
	if err != nil {
		return "", err
	}

	return action, tx.Commit()
}

func GetReactions(e Execer, capsuleId string) ([]models.Reaction, error) {
	rows, err := e.Query(
		`select capsule_id, user_id, emoji, created from reactions where capsule_id = ? order by created`,
		capsuleId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reactions []models.Reaction
	for rows.Next() {
		var r models.Reaction
		var created string
		if err := rows.Scan(&r.CapsuleId, &r.UserId, &r.Emoji, &created); err != nil {
			return nil, err
		}
		r.Created = parseTime(created)
		reactions = append(reactions, r)
	}
	return reactions, rows.Err()
}

func GetReactionCounts(e Execer, capsuleId string) (map[string]int, error) {
	rows, err := e.Query(
		`select emoji, count(user_id) from reactions where capsule_id = ? group by emoji`,
		capsuleId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var emoji string
		var count int
		if err := rows.Scan(&emoji, &count); err != nil {
			return nil, err
		}
		counts[emoji] = count
	}
	return counts, rows.Err()
}

package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"memorylane.app/core/appview/models"
)

var (
	ErrCapsuleNotFound = errors.New("capsule not found")

	// ErrMemberOverlap is returned when an address is designated both
	// recipient and collaborator; the two sets are disjoint by design.
	ErrMemberOverlap = errors.New("address is both recipient and collaborator")

	ErrAlreadyCollaborator = errors.New("user is already a collaborator")
)

// CreateCapsule inserts the capsule along with its recipient and
// collaborator sets in one transaction. It rejects capsules whose
// recipient and collaborator addresses overlap.
func CreateCapsule(d *DB, c *models.Capsule) error {
	recipients := make(map[string]struct{})
	for i, r := range c.RecipientEmails {
		addr := strings.ToLower(strings.TrimSpace(r))
		c.RecipientEmails[i] = addr
		recipients[addr] = struct{}{}
	}
	for _, collab := range c.Collaborators {
		if _, ok := recipients[strings.ToLower(collab.Email)]; ok {
			return fmt.Errorf("%w: %s", ErrMemberOverlap, collab.Email)
		}
	}

	tx, err := d.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var unlockAt any
	if c.UnlockAt != nil {
		unlockAt = c.UnlockAt.UTC().Format(time.RFC3339)
	}

	_, err = tx.Exec(
		`insert into capsules (id, title, description, owner_id, owner_email, owner_name, unlock_kind, unlock_at, status, privacy, theme)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Id,
		c.Title,
		c.Description,
		c.OwnerId,
		strings.ToLower(c.OwnerEmail),
		c.OwnerName,
		c.UnlockKind,
		unlockAt,
		models.StateLocked,
		c.Privacy,
		c.Theme,
	)
	if err != nil {
		return err
	}

	for _, r := range c.RecipientEmails {
		if _, err := tx.Exec(
			`insert or ignore into recipients (capsule_id, email) values (?, ?)`,
			c.Id, r,
		); err != nil {
			return err
		}
	}

	for _, collab := range c.Collaborators {
		if _, err := tx.Exec(
			`insert into collaborators (capsule_id, user_id, email) values (?, ?, ?)`,
			c.Id, collab.UserId, strings.ToLower(collab.Email),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func GetCapsule(e Execer, id string) (*models.Capsule, error) {
	capsules, err := GetCapsules(e, 1, FilterEq("id", id))
	if err != nil {
		return nil, err
	}
	if len(capsules) == 0 {
		return nil, ErrCapsuleNotFound
	}
	return &capsules[0], nil
}

func GetCapsules(e Execer, limit int, filters ...filter) ([]models.Capsule, error) {
	where, args := whereClause(filters)
	query := fmt.Sprintf(`select
			id,
			title,
			description,
			owner_id,
			owner_email,
			owner_name,
			unlock_kind,
			unlock_at,
			status,
			privacy,
			theme,
			created,
			unlocked_at
		from capsules %s order by created desc`,
		where,
	)
	if limit > 0 {
		query += fmt.Sprintf(" limit %d", limit)
	}

	rows, err := e.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var capsules []models.Capsule
	for rows.Next() {
		var c models.Capsule
		var unlockAt, created sql.NullString
		var unlockedAt sql.NullString
		if err := rows.Scan(
			&c.Id,
			&c.Title,
			&c.Description,
			&c.OwnerId,
			&c.OwnerEmail,
			&c.OwnerName,
			&c.UnlockKind,
			&unlockAt,
			&c.State,
			&c.Privacy,
			&c.Theme,
			&created,
			&unlockedAt,
		); err != nil {
			return nil, err
		}
		c.Created = parseTime(created.String)
		if unlockAt.Valid {
			t := parseTime(unlockAt.String)
			c.UnlockAt = &t
		}
		if unlockedAt.Valid {
			t := parseTime(unlockedAt.String)
			c.UnlockedAt = &t
		}
		capsules = append(capsules, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range capsules {
		if err := loadMembers(e, &capsules[i]); err != nil {
			return nil, err
		}
	}

	return capsules, nil
}

func loadMembers(e Execer, c *models.Capsule) error {
	rows, err := e.Query(`select email from recipients where capsule_id = ? order by email`, c.Id)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return err
		}
		c.RecipientEmails = append(c.RecipientEmails, email)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	crows, err := e.Query(`select user_id, email, added from collaborators where capsule_id = ? order by added`, c.Id)
	if err != nil {
		return err
	}
	defer crows.Close()
	for crows.Next() {
		var collab models.Collaborator
		var added string
		if err := crows.Scan(&collab.UserId, &collab.Email, &added); err != nil {
			return err
		}
		collab.Added = parseTime(added)
		c.Collaborators = append(c.Collaborators, collab)
	}
	return crows.Err()
}

// ListDueForUnlock returns all locked date-kind capsules whose unlock
// time is at or before now. Manual capsules are never due.
func ListDueForUnlock(e Execer, now time.Time) ([]models.Capsule, error) {
	return GetCapsules(
		e,
		0,
		FilterEq("status", models.StateLocked),
		FilterEq("unlock_kind", models.UnlockAtDate),
		FilterLte("unlock_at", now.UTC().Format(time.RFC3339)),
	)
}

// TransitionToUnlocked flips the capsule from locked to unlocked as a
// single conditional update. Exactly one caller observes
// alreadyUnlocked == false for a given capsule, no matter how many
// race; every other caller gets a silent true. The state is monotonic:
// there is no path back to locked.
func TransitionToUnlocked(e Execer, id string, now time.Time) (alreadyUnlocked bool, err error) {
	res, err := e.Exec(
		`update capsules set status = ?, unlocked_at = ? where id = ? and status = ?`,
		models.StateUnlocked,
		now.UTC().Format(time.RFC3339),
		id,
		models.StateLocked,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return false, nil
	}

	// No row flipped: either the capsule is already unlocked, or it
	// does not exist at all.
	var status string
	err = e.QueryRow(`select status from capsules where id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrCapsuleNotFound
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddCollaborator enforces the recipient/collaborator disjointness
// invariant at insertion time.
func AddCollaborator(d *DB, capsuleId string, collab models.Collaborator) error {
	email := strings.ToLower(strings.TrimSpace(collab.Email))

	tx, err := d.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRow(
		`select count(1) from recipients where capsule_id = ? and email = ?`,
		capsuleId, email,
	).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %s", ErrMemberOverlap, email)
	}

	if err := tx.QueryRow(
		`select count(1) from collaborators where capsule_id = ? and user_id = ?`,
		capsuleId, collab.UserId,
	).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrAlreadyCollaborator
	}

	if _, err := tx.Exec(
		`insert into collaborators (capsule_id, user_id, email) values (?, ?, ?)`,
		capsuleId, collab.UserId, email,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// GetCapsulesForUser lists capsules the user owns or collaborates on,
// newest first.
func GetCapsulesForUser(e Execer, userId string, limit, offset int) ([]models.Capsule, error) {
	rows, err := e.Query(
		`select distinct c.id, c.created from capsules c
		left join collaborators co on co.capsule_id = c.id and co.user_id = ?1
		where c.owner_id = ?1 or co.user_id is not null
		order by c.created desc limit ?2 offset ?3`,
		userId, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id, created string
		if err := rows.Scan(&id, &created); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if ids == nil {
		return nil, nil
	}

	return GetCapsules(e, 0, FilterIn("id", ids))
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Now()
	}
	return t
}

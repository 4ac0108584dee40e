package db

import (
	"memorylane.app/core/appview/models"
)

func AddComment(e Execer, c *models.Comment) error {
	_, err := e.Exec(
		`insert into comments (id, capsule_id, user_id, user_name, body) values (?, ?, ?, ?, ?)`,
		c.Id, c.CapsuleId, c.UserId, c.UserName, c.Body,
	)
	return err
}

func GetComments(e Execer, capsuleId string) ([]models.Comment, error) {
	rows, err := e.Query(
		`select id, capsule_id, user_id, user_name, body, created
		from comments where capsule_id = ? order by created`,
		capsuleId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		var created string
		if err := rows.Scan(&c.Id, &c.CapsuleId, &c.UserId, &c.UserName, &c.Body, &created); err != nil {
			return nil, err
		}
		c.Created = parseTime(created)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

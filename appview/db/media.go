package db

import (
	"memorylane.app/core/appview/models"
)

func AddMedia(e Execer, m *models.Media) error {
	_, err := e.Exec(
		`insert into media (id, capsule_id, uploader_id, url, kind, name, file_key)
		values (?, ?, ?, ?, ?, ?, ?)`,
		m.Id, m.CapsuleId, m.UploaderId, m.Url, m.Kind, m.Name, m.FileKey,
	)
	return err
}

func GetMedia(e Execer, capsuleId string) ([]models.Media, error) {
	rows, err := e.Query(
		`select id, capsule_id, uploader_id, url, kind, name, file_key, created
		from media where capsule_id = ? order by created`,
		capsuleId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var media []models.Media
	for rows.Next() {
		var m models.Media
		var created string
		if err := rows.Scan(&m.Id, &m.CapsuleId, &m.UploaderId, &m.Url, &m.Kind, &m.Name, &m.FileKey, &created); err != nil {
			return nil, err
		}
		m.Created = parseTime(created)
		media = append(media, m)
	}
	return media, rows.Err()
}

package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/vod-comb/app/vod"
)

var _ VodRepository = (*SQLiteVodRepository)(nil)

type SQLiteVodRepository struct {
	db *DB
}

func NewVodRepository(db *DB) *SQLiteVodRepository {
	return &SQLiteVodRepository{db: db}
}

// InsertVod stores the record unless one with the same user and video id
// exists. It reports whether a row was written.
func (r *SQLiteVodRepository) InsertVod(displayName string, record *vod.Record) (bool, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("failed to encode vod: %w", err)
	}

	result, err := r.db.Exec(`
		INSERT INTO vods (
			id, user_id, video_id, display_name, title, url, thumbnail_url,
			published_at, hidden_subdomain, hidden_path, data, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, video_id) DO NOTHING
	`, uuid.NewString(), record.UserID, record.ID, displayName, record.Title, record.URL,
		record.ThumbnailURL, record.PublishedAt, record.HiddenURL.Subdomain, record.HiddenURL.Path,
		string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("failed to insert vod: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

func (r *SQLiteVodRepository) HasVod(userID, videoID string) (bool, error) {
	var id string
	err := r.db.QueryRow(`SELECT id FROM vods WHERE user_id = ? AND video_id = ?`, userID, videoID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check vod: %w", err)
	}
	return true, nil
}

// GetVods returns the newest VODs recorded under a display name.
func (r *SQLiteVodRepository) GetVods(displayName string, limit int) ([]Vod, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(`
		SELECT id, display_name, data, created_at
		FROM vods
		WHERE display_name = ?
		ORDER BY published_at DESC
		LIMIT ?
	`, displayName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get vods: %w", err)
	}
	defer rows.Close()

	var vods []Vod
	for rows.Next() {
		var v Vod
		var data, createdAt string
		if err := rows.Scan(&v.ID, &v.DisplayName, &data, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan vod row: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &v.Record); err != nil {
			return nil, fmt.Errorf("failed to decode vod %s: %w", v.ID, err)
		}
		if v.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at of vod %s: %w", v.ID, err)
		}
		vods = append(vods, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vod rows: %w", err)
	}

	return vods, nil
}

func (r *SQLiteVodRepository) GetChannels() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT display_name FROM vods ORDER BY display_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to get channels: %w", err)
	}
	defer rows.Close()

	var channels []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan channel row: %w", err)
		}
		channels = append(channels, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channel rows: %w", err)
	}

	return channels, nil
}

func (r *SQLiteVodRepository) GetVodCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM vods").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get vod count: %w", err)
	}
	return count, nil
}

package recorder

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/vod-comb/app/database"
	"github.com/lysyi3m/vod-comb/app/twitch"
	"github.com/lysyi3m/vod-comb/app/vod"
)

var (
	_ Recorder = (*DatabaseRecorder)(nil)
	_ Archive  = (*DatabaseRecorder)(nil)
)

// DatabaseRecorder keeps VODs in SQLite; the unique (user_id, video_id) key
// does the deduplication.
type DatabaseRecorder struct {
	repo database.VodRepository
}

func NewDatabaseRecorder(repo database.VodRepository) *DatabaseRecorder {
	return &DatabaseRecorder{repo: repo}
}

func (r *DatabaseRecorder) Record(ctx context.Context, video twitch.Video, displayName string) (bool, error) {
	exists, err := r.repo.HasVod(video.UserID, video.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	record, err := vod.NewRecord(video)
	if err != nil {
		return false, err
	}

	inserted, err := r.repo.InsertVod(displayName, record)
	if err != nil {
		return false, err
	}
	if inserted {
		slog.Info("Logged new vod", "channel", displayName, "video_id", video.ID)
	}
	return inserted, nil
}

func (r *DatabaseRecorder) ListVods(ctx context.Context, displayName string, limit int) ([]vod.Record, error) {
	vods, err := r.repo.GetVods(displayName, limit)
	if err != nil {
		return nil, err
	}

	records := make([]vod.Record, len(vods))
	for i, v := range vods {
		records[i] = v.Record
	}
	return records, nil
}

func (r *DatabaseRecorder) Channels(ctx context.Context) ([]string, error) {
	return r.repo.GetChannels()
}

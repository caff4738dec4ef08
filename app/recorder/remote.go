package recorder

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/vod-comb/app/twitch"
	"github.com/lysyi3m/vod-comb/app/vod"
)

var _ Recorder = (*RemoteRecorder)(nil)

type VodStore interface {
	HasVod(ctx context.Context, streamID string) (bool, error)
	CreateVod(ctx context.Context, record *vod.Record) error
}

// RemoteRecorder records VODs in the remote VOD store. The store is keyed by
// stream id; videos without one fall back to the video id.
type RemoteRecorder struct {
	store VodStore
}

func NewRemoteRecorder(store VodStore) *RemoteRecorder {
	return &RemoteRecorder{store: store}
}

func (r *RemoteRecorder) Record(ctx context.Context, video twitch.Video, displayName string) (bool, error) {
	key := cmp.Or(video.StreamID, video.ID)

	exists, err := r.store.HasVod(ctx, key)
	if err != nil {
		slog.Error("Vod lookup failed, not recording", "channel", displayName, "video_id", video.ID, "error", err)
		return false, fmt.Errorf("failed to look up vod %s: %w", key, err)
	}
	if exists {
		return false, nil
	}

	record, err := vod.NewRecord(video)
	if err != nil {
		return false, err
	}

	if err := r.store.CreateVod(ctx, record); err != nil {
		slog.Error("Failed to create vod", "channel", displayName, "video_id", video.ID, "error", err)
		return false, err
	}

	slog.Info("Created vod", "channel", displayName, "video_id", video.ID, "stream_id", key)
	return true, nil
}

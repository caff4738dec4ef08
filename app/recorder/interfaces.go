package recorder

import (
	"context"

	"github.com/lysyi3m/vod-comb/app/twitch"
	"github.com/lysyi3m/vod-comb/app/vod"
)

// Recorder persists a discovered VOD at most once. Record reports whether a
// new record was written.
type Recorder interface {
	Record(ctx context.Context, video twitch.Video, displayName string) (bool, error)
}

// Archive is implemented by recorders that can read back what they stored.
type Archive interface {
	ListVods(ctx context.Context, displayName string, limit int) ([]vod.Record, error)
	Channels(ctx context.Context) ([]string, error)
}

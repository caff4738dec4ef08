package database

import (
	"time"

	"github.com/lysyi3m/vod-comb/app/vod"
)

type Vod struct {
	ID          string // Database UUID
	DisplayName string // Watchlist display name at the time of recording
	Record      vod.Record
	CreatedAt   time.Time
}

type VodRepository interface {
	InsertVod(displayName string, record *vod.Record) (bool, error)
	HasVod(userID, videoID string) (bool, error)
	GetVods(displayName string, limit int) ([]Vod, error)
	GetChannels() ([]string, error)
	GetVodCount() (int, error)
}

package api

import (
	"github.com/lysyi3m/vod-comb/app/auth"
	"github.com/lysyi3m/vod-comb/app/feed"
	"github.com/lysyi3m/vod-comb/app/poller"
	"github.com/lysyi3m/vod-comb/app/tasks"
	"github.com/lysyi3m/vod-comb/app/vod"
)

const DefaultFeedItems = 50

type GeneratorInterface interface {
	Run(channel string, records []vod.Record) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type PollerStatus interface {
	Failures() int
	Limit() int
	LastResult() *poller.CycleResult
}

var _ PollerStatus = (*poller.Poller)(nil)

type TokenStatus interface {
	Status() auth.Status
}

var _ TokenStatus = (*auth.Manager)(nil)

// WatchlistSnapshot exposes the most recently loaded watchlist.
type WatchlistSnapshot interface {
	Last() map[string]string
}

// ServiceInfo describes the running configuration in health responses.
type ServiceInfo struct {
	Version         string
	WatchlistSource string
	Storage         string
}

type Handler struct {
	archive   Archive
	generator GeneratorInterface
	poller    PollerStatus
	tokens    TokenStatus
	watchlist WatchlistSnapshot
	scheduler tasks.TaskSchedulerInterface
	info      ServiceInfo
}

package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/vod-comb/app/metrics"
	"github.com/lysyi3m/vod-comb/app/recorder"
	"github.com/lysyi3m/vod-comb/app/twitch"
	"github.com/lysyi3m/vod-comb/app/watchlist"
)

const DefaultFailureLimit = 20

var ErrFailureLimit = errors.New("failure limit reached")

type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

type VideoSource interface {
	LatestArchives(ctx context.Context, token, userID string) ([]twitch.Video, error)
}

// CycleResult summarizes one poll cycle.
type CycleResult struct {
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Entities    int           `json:"entities"`
	Lookups     int           `json:"lookups"`
	Failures    int           `json:"failures"`
	Empty       int           `json:"empty"`
	SkippedLive int           `json:"skipped_live"`
	Recorded    int           `json:"recorded"`
	Error       string        `json:"error,omitempty"`
}

type Poller struct {
	tokens    TokenSource
	watchlist watchlist.Provider
	videos    VideoSource
	recorder  recorder.Recorder
	metrics   *metrics.Metrics
	limit     int

	mu         sync.Mutex
	failures   int
	lastResult *CycleResult
}

func New(tokens TokenSource, provider watchlist.Provider, videos VideoSource, rec recorder.Recorder, m *metrics.Metrics, limit int) *Poller {
	if limit <= 0 {
		limit = DefaultFailureLimit
	}
	return &Poller{
		tokens:    tokens,
		watchlist: provider,
		videos:    videos,
		recorder:  rec,
		metrics:   m,
		limit:     limit,
	}
}

// RunCycle checks every watched channel once. It returns ErrFailureLimit
// once the consecutive failure count has reached the limit; any other error
// only aborts the current cycle.
func (p *Poller) RunCycle(ctx context.Context) (CycleResult, error) {
	result := CycleResult{StartedAt: time.Now()}

	err := p.runCycle(ctx, &result)
	result.Duration = time.Since(result.StartedAt)
	if err != nil {
		result.Error = err.Error()
	}

	p.mu.Lock()
	p.lastResult = &result
	p.mu.Unlock()

	switch {
	case errors.Is(err, ErrFailureLimit):
		p.metrics.CycleFinished("fatal")
	case err != nil:
		p.metrics.CycleFinished("error")
	default:
		p.metrics.CycleFinished("ok")
	}

	return result, err
}

func (p *Poller) runCycle(ctx context.Context, result *CycleResult) error {
	if p.limitReached() {
		return ErrFailureLimit
	}

	entries, err := p.watchlist.Watchlist(ctx)
	if err != nil {
		return fmt.Errorf("failed to load watchlist: %w", err)
	}
	result.Entities = len(entries)
	if len(entries) == 0 {
		slog.Debug("Watchlist is empty")
		return nil
	}

	token, err := p.tokens.GetToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	for _, userID := range watchlist.SortedIDs(entries) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.limitReached() {
			return ErrFailureLimit
		}

		p.checkChannel(ctx, token, userID, entries[userID], result)
	}

	slog.Info("Poll cycle complete",
		"entities", result.Entities,
		"lookups", result.Lookups,
		"failures", result.Failures,
		"recorded", result.Recorded)
	return nil
}

func (p *Poller) checkChannel(ctx context.Context, token, userID, displayName string, result *CycleResult) {
	result.Lookups++
	videos, err := p.videos.LatestArchives(ctx, token, userID)
	if err != nil {
		result.Failures++
		failures := p.recordFailure()
		slog.Error("Video lookup failed", "user_id", userID, "channel", displayName, "failures", failures, "error", err)
		return
	}
	p.resetFailures()

	if len(videos) == 0 {
		result.Empty++
		slog.Debug("No update", "channel", displayName)
		return
	}

	latest := videos[0]
	if latest.IsLive() {
		result.SkippedLive++
		slog.Debug("Latest archive is still live", "channel", displayName, "video_id", latest.ID)
		return
	}

	recorded, err := p.recorder.Record(ctx, latest, displayName)
	if err != nil {
		slog.Error("Failed to record vod", "channel", displayName, "video_id", latest.ID, "error", err)
		return
	}
	if recorded {
		result.Recorded++
		p.metrics.VodRecorded()
	}
}

func (p *Poller) limitReached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures >= p.limit
}

func (p *Poller) recordFailure() int {
	p.mu.Lock()
	p.failures++
	failures := p.failures
	p.mu.Unlock()

	p.metrics.LookupFinished(false)
	p.metrics.SetConsecutiveFailures(failures)
	return failures
}

func (p *Poller) resetFailures() {
	p.mu.Lock()
	p.failures = 0
	p.mu.Unlock()

	p.metrics.LookupFinished(true)
	p.metrics.SetConsecutiveFailures(0)
}

func (p *Poller) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

func (p *Poller) Limit() int {
	return p.limit
}

// LastResult returns the summary of the most recent cycle, or nil before the
// first one.
func (p *Poller) LastResult() *CycleResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastResult == nil {
		return nil
	}
	result := *p.lastResult
	return &result
}

package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/vod-comb/app/recorder"
	"github.com/lysyi3m/vod-comb/app/tasks"
	"github.com/lysyi3m/vod-comb/app/watchlist"
)

// Archive is the read side of storages that keep VODs locally.
type Archive = recorder.Archive

// NewHandler wires the HTTP handlers. archive may be nil when the storage
// cannot list recorded VODs; feeds are then unavailable.
func NewHandler(archive Archive, generator GeneratorInterface, poller PollerStatus,
	tokens TokenStatus, watchlist WatchlistSnapshot,
	scheduler tasks.TaskSchedulerInterface, info ServiceInfo) *Handler {
	return &Handler{
		archive:   archive,
		generator: generator,
		poller:    poller,
		tokens:    tokens,
		watchlist: watchlist,
		scheduler: scheduler,
		info:      info,
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	if h.archive == nil {
		c.Status(http.StatusNotFound)
		return
	}

	records, err := h.archive.ListVods(c.Request.Context(), name, DefaultFeedItems)
	if err != nil {
		slog.Error("Storage error", "operation", "list_vods", "channel", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if len(records) == 0 {
		c.Status(http.StatusNotFound)
		return
	}

	rss, err := h.generator.Run(name, records)
	if err != nil {
		slog.Error("RSS generation error", "channel", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(records)))
	c.Header("X-Feed-Name", name)

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp":        time.Now().In(time.Local).Format(time.RFC3339),
		"version":          h.info.Version,
		"watchlist_source": h.info.WatchlistSource,
		"storage":          h.info.Storage,
	}

	if h.poller != nil {
		health["consecutive_failures"] = h.poller.Failures()
		health["failure_limit"] = h.poller.Limit()
		if last := h.poller.LastResult(); last != nil {
			health["last_cycle"] = last
		}
	}

	if h.tokens != nil {
		health["token"] = h.tokens.Status()
	}

	if h.archive != nil {
		if channels, err := h.archive.Channels(c.Request.Context()); err == nil {
			health["channels"] = len(channels)
		}
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIGetWatchlist(c *gin.Context) {
	entries := map[string]string{}
	if h.watchlist != nil {
		entries = h.watchlist.Last()
	}

	streamers := make([]map[string]string, 0, len(entries))
	for _, id := range watchlist.SortedIDs(entries) {
		streamers = append(streamers, map[string]string{
			"user_id":      id,
			"display_name": entries[id],
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"streamers": streamers,
		"total":     len(streamers),
	})
}

func (h *Handler) APITriggerPoll(c *gin.Context) {
	err := h.scheduler.TriggerCycle()
	switch {
	case errors.Is(err, tasks.ErrCycleRunning):
		c.JSON(http.StatusConflict, gin.H{"error": "Poll cycle already running"})
		return
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler stopped"})
		return
	case err != nil:
		slog.Error("Error triggering poll cycle", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to trigger poll cycle",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Poll cycle started",
	})
}

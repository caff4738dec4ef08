package watchlist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Provider supplies the channels to poll as user id -> display name.
type Provider interface {
	Watchlist(ctx context.Context) (map[string]string, error)
}

type StreamerLister interface {
	Streamers(ctx context.Context) (map[string]string, error)
}

// FileProvider reads the watchlist from a JSON or YAML mapping file on every
// call so edits take effect on the next cycle.
type FileProvider struct {
	path string
	last map[string]string
	mu   sync.RWMutex
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

func (p *FileProvider) Watchlist(ctx context.Context) (map[string]string, error) {
	entries, err := p.parseFile()
	if err != nil {
		return nil, err
	}

	entries = validate(entries)

	p.mu.Lock()
	p.last = entries
	p.mu.Unlock()

	return entries, nil
}

// Last returns the most recently loaded watchlist without touching the file.
func (p *FileProvider) Last() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return copyEntries(p.last)
}

func (p *FileProvider) parseFile() (map[string]string, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read watchlist: %w", err)
	}

	entries := make(map[string]string)
	switch strings.ToLower(filepath.Ext(p.path)) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse YAML watchlist: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse JSON watchlist: %w", err)
		}
	}

	return entries, nil
}

// RemoteProvider fetches the watchlist from the remote VOD store. Failures are
// logged and yield an empty watchlist so the cycle becomes a no-op.
type RemoteProvider struct {
	lister StreamerLister
	last   map[string]string
	mu     sync.RWMutex
}

func NewRemoteProvider(lister StreamerLister) *RemoteProvider {
	return &RemoteProvider{lister: lister}
}

func (p *RemoteProvider) Watchlist(ctx context.Context) (map[string]string, error) {
	entries, err := p.lister.Streamers(ctx)
	if err != nil {
		slog.Error("Failed to fetch watchlist", "error", err)
		entries = map[string]string{}
	}

	entries = validate(entries)

	p.mu.Lock()
	p.last = entries
	p.mu.Unlock()

	return entries, nil
}

func (p *RemoteProvider) Last() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return copyEntries(p.last)
}

// SortedIDs returns the user ids of a watchlist in a stable order.
func SortedIDs(entries map[string]string) []string {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func validate(entries map[string]string) map[string]string {
	valid := make(map[string]string, len(entries))
	for id, name := range entries {
		id = strings.TrimSpace(id)
		if id == "" {
			slog.Warn("Skipping watchlist entry without user id", "name", name)
			continue
		}
		if strings.TrimSpace(name) == "" {
			slog.Warn("Watchlist entry has no display name, using user id", "user_id", id)
			name = id
		}
		valid[id] = name
	}
	return valid
}

func copyEntries(entries map[string]string) map[string]string {
	entriesCopy := make(map[string]string, len(entries))
	for k, v := range entries {
		entriesCopy[k] = v
	}
	return entriesCopy
}

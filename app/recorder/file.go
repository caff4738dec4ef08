package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/lysyi3m/vod-comb/app/twitch"
	"github.com/lysyi3m/vod-comb/app/vod"
)

var (
	_ Recorder = (*FileRecorder)(nil)
	_ Archive  = (*FileRecorder)(nil)
)

// FileRecorder writes one JSON file per VOD under <dir>/<display name>/.
// The existence of the file is what marks a VOD as recorded.
type FileRecorder struct {
	dir string
}

func NewFileRecorder(dir string) *FileRecorder {
	return &FileRecorder{dir: dir}
}

func (r *FileRecorder) Record(ctx context.Context, video twitch.Video, displayName string) (bool, error) {
	channelDir := r.channelDir(displayName)
	if _, err := os.Stat(channelDir); errors.Is(err, os.ErrNotExist) {
		slog.Info("Creating channel directory", "channel", displayName, "path", channelDir)
	}
	if err := os.MkdirAll(channelDir, 0755); err != nil {
		return false, fmt.Errorf("failed to create channel directory: %w", err)
	}

	path := filepath.Join(channelDir, vod.FileName(video))
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to check vod file: %w", err)
	}

	record, err := vod.NewRecord(video)
	if err != nil {
		return false, err
	}

	data, err := json.MarshalIndent(record, "", "    ")
	if err != nil {
		return false, fmt.Errorf("failed to encode vod: %w", err)
	}

	if err := writeFileAtomic(path, data); err != nil {
		return false, err
	}

	slog.Info("Logged new vod", "channel", displayName, "file", filepath.Base(path))
	return true, nil
}

// ListVods returns the newest records first; file names start with the
// publish date so a reverse name sort orders them by time.
func (r *FileRecorder) ListVods(ctx context.Context, displayName string, limit int) ([]vod.Record, error) {
	entries, err := os.ReadDir(r.channelDir(displayName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read channel directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	records := make([]vod.Record, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(r.channelDir(displayName), name))
		if err != nil {
			return nil, fmt.Errorf("failed to read vod file %s: %w", name, err)
		}
		var record vod.Record
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("failed to decode vod file %s: %w", name, err)
		}
		records = append(records, record)
	}

	return records, nil
}

func (r *FileRecorder) Channels(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vods directory: %w", err)
	}

	var channels []string
	for _, entry := range entries {
		if entry.IsDir() {
			channels = append(channels, entry.Name())
		}
	}
	return channels, nil
}

func (r *FileRecorder) channelDir(displayName string) string {
	return filepath.Join(r.dir, sanitizeName(displayName))
}

// sanitizeName keeps a display name from escaping the vods directory. Names
// are NFC-normalized so the same display name always maps to one directory.
func sanitizeName(name string) string {
	name = norm.NFC.String(name)
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}

func writeFileAtomic(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".vod-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write vod file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close vod file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move vod file into place: %w", err)
	}
	return nil
}

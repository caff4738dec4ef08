package watchlist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileProviderJSON(t *testing.T) {
	path := writeFile(t, "streamers.json", `{"123": "alice", "456": "bob"}`)

	provider := NewFileProvider(path)
	entries, err := provider.Watchlist(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expected := map[string]string{"123": "alice", "456": "bob"}
	if !reflect.DeepEqual(entries, expected) {
		t.Errorf("Expected %v, got %v", expected, entries)
	}
	if !reflect.DeepEqual(provider.Last(), expected) {
		t.Errorf("Expected Last to return %v, got %v", expected, provider.Last())
	}
}

func TestFileProviderYAML(t *testing.T) {
	path := writeFile(t, "streamers.yml", `
"123": alice
"456": bob
`)

	entries, err := NewFileProvider(path).Watchlist(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if entries["123"] != "alice" || entries["456"] != "bob" {
		t.Errorf("Unexpected entries %v", entries)
	}
}

func TestFileProviderRereadsFile(t *testing.T) {
	path := writeFile(t, "streamers.json", `{"123": "alice"}`)
	provider := NewFileProvider(path)

	if _, err := provider.Watchlist(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte(`{"123": "alice", "789": "carol"}`), 0644); err != nil {
		t.Fatal(err)
	}

	entries, err := provider.Watchlist(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 entries after edit, got %d", len(entries))
	}
}

func TestFileProviderDropsInvalidEntries(t *testing.T) {
	path := writeFile(t, "streamers.json", `{"": "ghost", "123": "", "456": "bob"}`)

	entries, err := NewFileProvider(path).Watchlist(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := entries[""]; ok {
		t.Error("Expected entry without id to be dropped")
	}
	if entries["123"] != "123" {
		t.Errorf("Expected missing display name to fall back to id, got '%s'", entries["123"])
	}
}

func TestFileProviderErrors(t *testing.T) {
	missing := NewFileProvider(filepath.Join(t.TempDir(), "missing.json"))
	if _, err := missing.Watchlist(context.Background()); err == nil {
		t.Error("Expected error for missing file")
	}

	broken := NewFileProvider(writeFile(t, "streamers.json", `{"123": `))
	if _, err := broken.Watchlist(context.Background()); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

type MockStreamerLister struct {
	entries map[string]string
	err     error
}

func (m *MockStreamerLister) Streamers(ctx context.Context) (map[string]string, error) {
	return m.entries, m.err
}

func TestRemoteProvider(t *testing.T) {
	provider := NewRemoteProvider(&MockStreamerLister{entries: map[string]string{"123": "alice"}})

	entries, err := provider.Watchlist(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if entries["123"] != "alice" {
		t.Errorf("Unexpected entries %v", entries)
	}
}

func TestRemoteProviderFailureYieldsEmptyWatchlist(t *testing.T) {
	provider := NewRemoteProvider(&MockStreamerLister{err: errors.New("status 500")})

	entries, err := provider.Watchlist(context.Background())
	if err != nil {
		t.Fatalf("Expected failure to be swallowed, got: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty watchlist, got %v", entries)
	}
}

func TestSortedIDs(t *testing.T) {
	ids := SortedIDs(map[string]string{"b": "2", "a": "1", "c": "3"})
	if !reflect.DeepEqual(ids, []string{"a", "b", "c"}) {
		t.Errorf("Expected sorted ids, got %v", ids)
	}
}

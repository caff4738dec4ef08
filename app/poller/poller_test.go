package poller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lysyi3m/vod-comb/app/auth"
	"github.com/lysyi3m/vod-comb/app/recorder"
	"github.com/lysyi3m/vod-comb/app/twitch"
	"github.com/lysyi3m/vod-comb/app/vodapi"
	"github.com/lysyi3m/vod-comb/app/watchlist"
)

const testThumbnail = "https://static-cdn.jtvnw.net/cf_vods/d2nvs31859zcd8/abc_alice_1_2//thumb/thumb0-%{width}x%{height}.jpg"

type MockTokenSource struct {
	token string
	err   error
	calls int
}

func (m *MockTokenSource) GetToken(ctx context.Context) (string, error) {
	m.calls++
	return m.token, m.err
}

type MockWatchlist struct {
	entries map[string]string
	err     error
}

func (m *MockWatchlist) Watchlist(ctx context.Context) (map[string]string, error) {
	return m.entries, m.err
}

type MockVideoSource struct {
	videos map[string][]twitch.Video
	errs   map[string]error
	calls  []string
}

func (m *MockVideoSource) LatestArchives(ctx context.Context, token, userID string) ([]twitch.Video, error) {
	m.calls = append(m.calls, userID)
	if err := m.errs[userID]; err != nil {
		return nil, err
	}
	return m.videos[userID], nil
}

type MockRecorder struct {
	recorded []twitch.Video
	err      error
}

func (m *MockRecorder) Record(ctx context.Context, video twitch.Video, displayName string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.recorded = append(m.recorded, video)
	return true, nil
}

func finishedVideo(id string) twitch.Video {
	return twitch.Video{
		ID:           id,
		StreamID:     "s-" + id,
		UserID:       "123",
		PublishedAt:  "2024-03-01T10:00:00Z",
		ThumbnailURL: testThumbnail,
	}
}

func TestRunCycleRecordsLatestArchive(t *testing.T) {
	videos := &MockVideoSource{videos: map[string][]twitch.Video{
		"123": {finishedVideo("v2"), finishedVideo("v1")},
	}}
	rec := &MockRecorder{}
	p := New(&MockTokenSource{token: "tok"}, &MockWatchlist{entries: map[string]string{"123": "alice"}}, videos, rec, nil, 20)

	result, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(rec.recorded) != 1 || rec.recorded[0].ID != "v2" {
		t.Errorf("Expected only the newest archive to be recorded, got %+v", rec.recorded)
	}
	if result.Lookups != 1 || result.Recorded != 1 {
		t.Errorf("Expected 1 lookup and 1 recorded, got %+v", result)
	}
	if p.LastResult() == nil || p.LastResult().Recorded != 1 {
		t.Errorf("Expected last result to be stored, got %+v", p.LastResult())
	}
}

func TestRunCycleSkipsLiveArchive(t *testing.T) {
	live := finishedVideo("v1")
	live.ThumbnailURL = ""
	videos := &MockVideoSource{videos: map[string][]twitch.Video{"123": {live}}}
	rec := &MockRecorder{}
	p := New(&MockTokenSource{token: "tok"}, &MockWatchlist{entries: map[string]string{"123": "alice"}}, videos, rec, nil, 20)

	result, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.recorded) != 0 {
		t.Errorf("Expected live archive to be skipped, got %d records", len(rec.recorded))
	}
	if result.SkippedLive != 1 {
		t.Errorf("Expected 1 skipped live archive, got %d", result.SkippedLive)
	}
}

func TestRunCycleEmptyVideosResetsFailures(t *testing.T) {
	videos := &MockVideoSource{
		videos: map[string][]twitch.Video{"2": {}},
		errs:   map[string]error{"1": &twitch.StatusError{Op: "videos", StatusCode: 500}},
	}
	rec := &MockRecorder{}
	p := New(&MockTokenSource{token: "tok"}, &MockWatchlist{entries: map[string]string{"1": "a", "2": "b"}}, videos, rec, nil, 20)

	result, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Failures != 1 || result.Empty != 1 {
		t.Errorf("Expected 1 failure and 1 empty result, got %+v", result)
	}
	if p.Failures() != 0 {
		t.Errorf("Expected successful empty lookup to reset failures, got %d", p.Failures())
	}
	if len(rec.recorded) != 0 {
		t.Errorf("Expected nothing recorded, got %d", len(rec.recorded))
	}
}

func TestRunCycleFailureLimit(t *testing.T) {
	entries := map[string]string{}
	errs := map[string]error{}
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("%02d", i)
		entries[id] = "user" + id
		errs[id] = &twitch.StatusError{Op: "videos", StatusCode: 500}
	}
	videos := &MockVideoSource{errs: errs}
	p := New(&MockTokenSource{token: "tok"}, &MockWatchlist{entries: entries}, videos, &MockRecorder{}, nil, 20)

	_, err := p.RunCycle(context.Background())
	if !errors.Is(err, ErrFailureLimit) {
		t.Fatalf("Expected ErrFailureLimit, got: %v", err)
	}
	if len(videos.calls) != 20 {
		t.Errorf("Expected exactly 20 lookups before stopping, got %d", len(videos.calls))
	}

	_, err = p.RunCycle(context.Background())
	if !errors.Is(err, ErrFailureLimit) {
		t.Errorf("Expected next cycle to fail immediately, got: %v", err)
	}
	if len(videos.calls) != 20 {
		t.Errorf("Expected no 21st lookup, got %d", len(videos.calls))
	}
}

func TestRunCycleSuccessResetsFailures(t *testing.T) {
	entries := map[string]string{}
	errs := map[string]error{}
	for i := 0; i < 19; i++ {
		id := fmt.Sprintf("%02d", i)
		entries[id] = "user" + id
		errs[id] = errors.New("connection refused")
	}
	entries["19"] = "ok"
	videos := &MockVideoSource{errs: errs, videos: map[string][]twitch.Video{"19": {}}}
	p := New(&MockTokenSource{token: "tok"}, &MockWatchlist{entries: entries}, videos, &MockRecorder{}, nil, 20)

	if _, err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if p.Failures() != 0 {
		t.Errorf("Expected failures to reset after success, got %d", p.Failures())
	}

	if _, err := p.RunCycle(context.Background()); err != nil {
		t.Errorf("Expected second cycle to run, got: %v", err)
	}
}

func TestRunCycleTokenFailure(t *testing.T) {
	videos := &MockVideoSource{}
	p := New(&MockTokenSource{err: twitch.ErrTokenExchange}, &MockWatchlist{entries: map[string]string{"1": "a"}}, videos, &MockRecorder{}, nil, 20)

	_, err := p.RunCycle(context.Background())
	if !errors.Is(err, twitch.ErrTokenExchange) {
		t.Errorf("Expected token error, got: %v", err)
	}
	if errors.Is(err, ErrFailureLimit) {
		t.Error("Expected token failure not to be fatal")
	}
	if len(videos.calls) != 0 || p.Failures() != 0 {
		t.Errorf("Expected no lookups and no counted failures, got %d calls, %d failures", len(videos.calls), p.Failures())
	}
}

func TestRunCycleRecorderErrorDoesNotCount(t *testing.T) {
	videos := &MockVideoSource{videos: map[string][]twitch.Video{"1": {finishedVideo("v1")}}}
	rec := &MockRecorder{err: errors.New("disk full")}
	p := New(&MockTokenSource{token: "tok"}, &MockWatchlist{entries: map[string]string{"1": "a"}}, videos, rec, nil, 20)

	if _, err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("Expected recorder error to stay inside the cycle, got: %v", err)
	}
	if p.Failures() != 0 {
		t.Errorf("Expected recorder error not to count as a failure, got %d", p.Failures())
	}
}

func TestRunCycleRemoteWatchlistFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := watchlist.NewRemoteProvider(vodapi.NewClient(server.Client(), server.URL, "test", time.Second))
	videos := &MockVideoSource{}
	p := New(&MockTokenSource{token: "tok"}, provider, videos, &MockRecorder{}, nil, 20)

	result, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(videos.calls) != 0 || result.Lookups != 0 {
		t.Errorf("Expected zero lookups, got %d", len(videos.calls))
	}
}

func TestRunCycleEndToEnd(t *testing.T) {
	tokenCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/token":
			tokenCalls++
			w.Write([]byte(`{"access_token":"fresh","expires_in":5000,"token_type":"bearer"}`))
		case "/oauth2/validate":
			w.WriteHeader(http.StatusUnauthorized)
		case "/helix/videos":
			if r.Header.Get("Authorization") != "Bearer fresh" {
				t.Errorf("Expected bearer token 'fresh', got '%s'", r.Header.Get("Authorization"))
			}
			if r.URL.Query().Get("user_id") != "123" {
				t.Errorf("Expected user_id '123', got '%s'", r.URL.Query().Get("user_id"))
			}
			fmt.Fprintf(w, `{"data":[{"id":"v1","stream_id":"s1","user_id":"123","published_at":"2024-03-01T10:00:00Z","thumbnail_url":%q}]}`, testThumbnail)
		default:
			t.Errorf("Unexpected request %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	watchlistFile := filepath.Join(dir, "streamers.json")
	if err := os.WriteFile(watchlistFile, []byte(`{"123":"alice"}`), 0644); err != nil {
		t.Fatal(err)
	}

	client := twitch.NewClient(server.Client(), twitch.Options{
		ClientID:     "cid",
		ClientSecret: "secret",
		OAuthURL:     server.URL + "/oauth2",
		HelixURL:     server.URL + "/helix",
	})
	manager := auth.NewManager(client, auth.NewFileTokenStore(filepath.Join(dir, ".token")), nil)
	vodsDir := filepath.Join(dir, "vods")

	p := New(manager, watchlist.NewFileProvider(watchlistFile), client, recorder.NewFileRecorder(vodsDir), nil, 20)

	result, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.Recorded != 1 {
		t.Errorf("Expected 1 recorded vod, got %d", result.Recorded)
	}
	if tokenCalls != 1 {
		t.Errorf("Expected 1 token exchange, got %d", tokenCalls)
	}
	if _, err := os.Stat(filepath.Join(vodsDir, "alice", "2024-03-01_v1.json")); err != nil {
		t.Errorf("Expected vod file to exist: %v", err)
	}

	result, err = p.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Recorded != 0 {
		t.Errorf("Expected second cycle to record nothing, got %d", result.Recorded)
	}
}

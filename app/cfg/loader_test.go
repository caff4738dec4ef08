package cfg

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CLIENT_ID", "test-client")
	t.Setenv("CLIENT_SECRET", "test-secret")
}

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadArgs([]string{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.ClientID != "test-client" {
		t.Errorf("Expected client id 'test-client', got '%s'", cfg.ClientID)
	}
	if cfg.ClientSecret != "test-secret" {
		t.Errorf("Expected client secret 'test-secret', got '%s'", cfg.ClientSecret)
	}
	if cfg.WatchlistSource != SourceFile {
		t.Errorf("Expected watchlist source 'file', got '%s'", cfg.WatchlistSource)
	}
	if cfg.Storage != StorageFile {
		t.Errorf("Expected storage 'file', got '%s'", cfg.Storage)
	}
	if cfg.WatchlistFile != "./streamers.json" {
		t.Errorf("Expected watchlist file './streamers.json', got '%s'", cfg.WatchlistFile)
	}
	if cfg.TokenFile != "./.token" {
		t.Errorf("Expected token file './.token', got '%s'", cfg.TokenFile)
	}
	if cfg.GetPollInterval() != 15*time.Second {
		t.Errorf("Expected poll interval 15s, got %v", cfg.GetPollInterval())
	}
	if cfg.FailureLimit != 20 {
		t.Errorf("Expected failure limit 20, got %d", cfg.FailureLimit)
	}
	if cfg.OAuthURL != "https://id.twitch.tv/oauth2" {
		t.Errorf("Expected default OAuth URL, got '%s'", cfg.OAuthURL)
	}
	if cfg.HelixURL != "https://api.twitch.tv/helix" {
		t.Errorf("Expected default Helix URL, got '%s'", cfg.HelixURL)
	}
	if Get() != cfg {
		t.Error("Expected Get to return the loaded configuration")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WATCHLIST_SOURCE", "remote")
	t.Setenv("STORAGE", "sqlite")
	t.Setenv("API_BASE_URL", "http://vods.local")
	t.Setenv("POLL_INTERVAL", "30")
	t.Setenv("FAILURE_LIMIT", "5")

	cfg, err := LoadArgs([]string{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.WatchlistSource != SourceRemote {
		t.Errorf("Expected watchlist source 'remote', got '%s'", cfg.WatchlistSource)
	}
	if cfg.Storage != StorageSQLite {
		t.Errorf("Expected storage 'sqlite', got '%s'", cfg.Storage)
	}
	if cfg.APIBaseURL != "http://vods.local" {
		t.Errorf("Expected API base URL 'http://vods.local', got '%s'", cfg.APIBaseURL)
	}
	if cfg.GetPollInterval() != 30*time.Second {
		t.Errorf("Expected poll interval 30s, got %v", cfg.GetPollInterval())
	}
	if cfg.FailureLimit != 5 {
		t.Errorf("Expected failure limit 5, got %d", cfg.FailureLimit)
	}
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadArgs([]string{"--vods-dir", "/tmp/vods", "--debug"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.VodsDir != "/tmp/vods" {
		t.Errorf("Expected vods dir '/tmp/vods', got '%s'", cfg.VodsDir)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}

func TestLoadRemoteRequiresBaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORAGE", "remote")

	if _, err := LoadArgs([]string{}); err == nil {
		t.Error("Expected error when remote storage has no API base URL")
	}
}

func TestLoadRejectsUnknownStorage(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORAGE", "s3")

	if _, err := LoadArgs([]string{}); err == nil {
		t.Error("Expected error for unknown storage")
	}
}

func TestLoadRejectsNonPositiveFailureLimit(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FAILURE_LIMIT", "0")

	if _, err := LoadArgs([]string{}); err == nil {
		t.Error("Expected error for zero failure limit")
	}
}

func TestGetRequestTimeoutFallback(t *testing.T) {
	cfg := &Cfg{}
	if cfg.GetRequestTimeout() != 30*time.Second {
		t.Errorf("Expected fallback timeout 30s, got %v", cfg.GetRequestTimeout())
	}
	if cfg.GetPollInterval() != 15*time.Second {
		t.Errorf("Expected fallback interval 15s, got %v", cfg.GetPollInterval())
	}
}

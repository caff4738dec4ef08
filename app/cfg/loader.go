package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Twitch credentials
	ClientID     string  `long:"client-id" env:"CLIENT_ID" description:"Twitch application client id (required)" required:"true"`
	ClientSecret string  `long:"client-secret" env:"CLIENT_SECRET" description:"Twitch application client secret (required)" required:"true"`
	OAuthURL     string  `long:"oauth-url" env:"OAUTH_URL" default:"https://id.twitch.tv/oauth2" description:"Twitch OAuth base URL"`
	HelixURL     string  `long:"helix-url" env:"HELIX_URL" default:"https://api.twitch.tv/helix" description:"Twitch Helix API base URL"`
	HelixRPS     float64 `long:"helix-rps" env:"HELIX_RPS" default:"10" description:"Maximum Helix requests per second"`

	// Watchlist and storage
	WatchlistSource string `long:"watchlist-source" env:"WATCHLIST_SOURCE" default:"file" choice:"file" choice:"remote" description:"Where the watchlist comes from"`
	WatchlistFile   string `long:"watchlist-file" env:"WATCHLIST_FILE" default:"./streamers.json" description:"Watchlist file (JSON or YAML) for the file source"`
	Storage         string `long:"storage" env:"STORAGE" default:"file" choice:"file" choice:"remote" choice:"sqlite" description:"Where discovered VODs are recorded"`
	APIBaseURL      string `long:"api-base-url" env:"API_BASE_URL" description:"Remote VOD API base URL (remote source/storage)"`
	VodsDir         string `long:"vods-dir" env:"VODS_DIR" default:"./vods" description:"Directory for the file storage"`
	DBPath          string `long:"db-path" env:"DB_PATH" default:"./vods.db" description:"SQLite database for the sqlite storage"`
	TokenFile       string `long:"token-file" env:"TOKEN_FILE" default:"./.token" description:"File holding the cached access token"`

	// Polling
	PollInterval   int `long:"poll-interval" env:"POLL_INTERVAL" default:"15" description:"Poll interval in seconds"`
	FailureLimit   int `long:"failure-limit" env:"FAILURE_LIMIT" default:"20" description:"Consecutive failed lookups before the process exits"`
	RequestTimeout int `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"30" description:"Timeout for a single HTTP request in seconds"`

	// Status server
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP status server port (empty disables the server)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	BaseURL      string `long:"base-url" env:"BASE_URL" description:"Public base URL used in feed self links"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"VOD Comb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load reads .env (when present), command-line flags and environment.
// It returns nil, nil when help was requested.
func Load() (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		ClientID:        raw.ClientID,
		ClientSecret:    raw.ClientSecret,
		OAuthURL:        raw.OAuthURL,
		HelixURL:        raw.HelixURL,
		HelixRPS:        raw.HelixRPS,
		WatchlistSource: raw.WatchlistSource,
		WatchlistFile:   raw.WatchlistFile,
		Storage:         raw.Storage,
		APIBaseURL:      raw.APIBaseURL,
		VodsDir:         raw.VodsDir,
		DBPath:          raw.DBPath,
		TokenFile:       raw.TokenFile,
		PollInterval:    raw.PollInterval,
		FailureLimit:    raw.FailureLimit,
		RequestTimeout:  raw.RequestTimeout,
		Port:            raw.Port,
		APIAccessKey:    raw.APIAccessKey,
		BaseURL:         raw.BaseURL,
		UserAgent:       raw.UserAgent,
		Timezone:        raw.Timezone,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(cfg *Cfg) error {
	needsAPI := cfg.WatchlistSource == SourceRemote || cfg.Storage == StorageRemote
	if needsAPI && cfg.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required for the remote watchlist source or storage")
	}

	positiveFields := map[string]int{
		"poll interval":   cfg.PollInterval,
		"failure limit":   cfg.FailureLimit,
		"request timeout": cfg.RequestTimeout,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	if cfg.HelixRPS <= 0 {
		return fmt.Errorf("helix rps must be positive")
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}

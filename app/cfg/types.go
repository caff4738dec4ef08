package cfg

import "time"

const (
	SourceFile   = "file"
	SourceRemote = "remote"

	StorageFile   = "file"
	StorageRemote = "remote"
	StorageSQLite = "sqlite"
)

type Cfg struct {
	// Twitch credentials
	ClientID     string
	ClientSecret string
	OAuthURL     string
	HelixURL     string
	HelixRPS     float64

	// Watchlist and storage
	WatchlistSource string
	WatchlistFile   string
	Storage         string
	APIBaseURL      string
	VodsDir         string
	DBPath          string
	TokenFile       string

	// Polling
	PollInterval   int
	FailureLimit   int
	RequestTimeout int

	// Status server
	Port         string
	APIAccessKey string
	BaseURL      string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

func (c *Cfg) GetPollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.PollInterval) * time.Second
}

func (c *Cfg) GetRequestTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RequestTimeout) * time.Second
}

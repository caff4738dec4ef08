package twitch

import (
	"errors"
	"fmt"
)

var ErrTokenExchange = errors.New("token exchange failed")

// StatusError reports a non-success response from Twitch.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type Validation struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	Scopes    []string `json:"scopes"`
	UserID    string   `json:"user_id"`
	ExpiresIn int      `json:"expires_in"`
}

type MutedSegment struct {
	Duration int `json:"duration"`
	Offset   int `json:"offset"`
}

// Video mirrors an entry of the Helix /videos response.
type Video struct {
	ID            string         `json:"id"`
	StreamID      string         `json:"stream_id"`
	UserID        string         `json:"user_id"`
	UserLogin     string         `json:"user_login"`
	UserName      string         `json:"user_name"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	CreatedAt     string         `json:"created_at"`
	PublishedAt   string         `json:"published_at"`
	URL           string         `json:"url"`
	ThumbnailURL  string         `json:"thumbnail_url"`
	Viewable      string         `json:"viewable"`
	ViewCount     int            `json:"view_count"`
	Language      string         `json:"language"`
	Type          string         `json:"type"`
	Duration      string         `json:"duration"`
	MutedSegments []MutedSegment `json:"muted_segments"`
}

// IsLive reports whether the archive still belongs to a running broadcast.
// Twitch leaves the thumbnail empty until the VOD is finalized.
func (v Video) IsLive() bool {
	return v.ThumbnailURL == ""
}

type videosResponse struct {
	Data []Video `json:"data"`
}

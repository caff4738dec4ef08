package vod

import (
	"cmp"
	"errors"
	"fmt"
	"strings"

	"github.com/lysyi3m/vod-comb/app/twitch"
)

var ErrMalformedThumbnail = errors.New("malformed thumbnail url")

// HiddenURL locates the VOD playlist on the CDN: the playlist lives under
// https://<Subdomain>.cloudfront.net/<Path>/chunked/index-dvr.m3u8.
type HiddenURL struct {
	Subdomain string `json:"subdomain"`
	Path      string `json:"path"`
}

// Record is the persisted form of a discovered VOD.
type Record struct {
	twitch.Video
	HiddenURL HiddenURL `json:"hidden_url"`
}

// ParseHiddenURL extracts the CDN subdomain and path from a VOD thumbnail URL
// of the form https://<host>/cf_vods/<subdomain>/<path>/thumb/<file>.
// The URL is split on "/" rather than parsed with net/url because Twitch
// thumbnails carry unescaped %{width}x%{height} placeholders.
func ParseHiddenURL(thumbnailURL string) (HiddenURL, error) {
	segments := strings.Split(thumbnailURL, "/")
	if len(segments) < 6 {
		return HiddenURL{}, fmt.Errorf("%w: %q has %d segments", ErrMalformedThumbnail, thumbnailURL, len(segments))
	}

	scheme, sep, host := segments[0], segments[1], segments[2]
	if !strings.HasSuffix(scheme, ":") || len(scheme) < 2 || sep != "" || host == "" {
		return HiddenURL{}, fmt.Errorf("%w: %q is not an absolute url", ErrMalformedThumbnail, thumbnailURL)
	}

	subdomain, path := segments[4], segments[5]
	if subdomain == "" || path == "" {
		return HiddenURL{}, fmt.Errorf("%w: %q has empty subdomain or path", ErrMalformedThumbnail, thumbnailURL)
	}

	return HiddenURL{Subdomain: subdomain, Path: path}, nil
}

func NewRecord(video twitch.Video) (*Record, error) {
	hidden, err := ParseHiddenURL(video.ThumbnailURL)
	if err != nil {
		return nil, err
	}
	return &Record{Video: video, HiddenURL: hidden}, nil
}

// PublishedDate returns the YYYY-MM-DD part of the publish timestamp.
func PublishedDate(video twitch.Video) string {
	date, _, _ := strings.Cut(cmp.Or(video.PublishedAt, video.CreatedAt), "T")
	return date
}

// FileName is <published date>_<video id>.json.
func FileName(video twitch.Video) string {
	return fmt.Sprintf("%s_%s.json", PublishedDate(video), video.ID)
}

// PlaylistURL is the HLS playlist of the VOD on the CDN.
func (h HiddenURL) PlaylistURL() string {
	return fmt.Sprintf("https://%s.cloudfront.net/%s/chunked/index-dvr.m3u8", h.Subdomain, h.Path)
}

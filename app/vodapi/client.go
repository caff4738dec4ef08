package vodapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lysyi3m/vod-comb/app/vod"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

// Client talks to the remote VOD store that owns the watchlist and the
// recorded VODs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	timeout    time.Duration
}

func NewClient(httpClient *http.Client, baseURL, userAgent string, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Streamers returns the watchlist as user id -> display name.
func (c *Client) Streamers(ctx context.Context) (map[string]string, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/streamers", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch streamers: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("streamers: %w %d", ErrUnexpectedStatus, status)
	}

	streamers := make(map[string]string)
	if err := json.Unmarshal(body, &streamers); err != nil {
		return nil, fmt.Errorf("failed to decode streamers: %w", err)
	}
	return streamers, nil
}

// HasVod reports whether the store already holds a VOD for the stream id.
// The store answers with a JSON null when it does not.
func (c *Client) HasVod(ctx context.Context, streamID string) (bool, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/vod/stream_id/"+url.PathEscape(streamID), nil)
	if err != nil {
		return false, fmt.Errorf("failed to look up vod: %w", err)
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("vod lookup: %w %d", ErrUnexpectedStatus, status)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) {
		return false, nil
	}
	return true, nil
}

// CreateVod submits a record; the store answers 201 on success.
func (c *Client) CreateVod(ctx context.Context, record *vod.Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode vod: %w", err)
	}

	_, status, err := c.do(ctx, http.MethodPost, "/vods", payload)
	if err != nil {
		return fmt.Errorf("failed to create vod: %w", err)
	}
	if status != http.StatusCreated {
		return fmt.Errorf("vod create: %w %d", ErrUnexpectedStatus, status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, resp.StatusCode, nil
}

package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

type Options struct {
	ClientID     string
	ClientSecret string
	OAuthURL     string
	HelixURL     string
	UserAgent    string
	// RequestsPerSecond caps Helix calls; zero disables limiting.
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client talks to the Twitch OAuth and Helix endpoints.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	opts       Options
}

func NewClient(httpClient *http.Client, opts Options) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	opts.OAuthURL = strings.TrimRight(opts.OAuthURL, "/")
	opts.HelixURL = strings.TrimRight(opts.HelixURL, "/")

	c := &Client{httpClient: httpClient, opts: opts}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

func (c *Client) ClientID() string {
	return c.opts.ClientID
}

// ExchangeToken obtains an app access token with the client credentials grant.
func (c *Client) ExchangeToken(ctx context.Context) (*TokenResponse, error) {
	query := url.Values{}
	query.Set("client_id", c.opts.ClientID)
	query.Set("client_secret", c.opts.ClientSecret)
	query.Set("grant_type", "client_credentials")

	req, err := c.newRequest(ctx, http.MethodPost, c.opts.OAuthURL+"/token?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var token TokenResponse
	status, err := c.doJSON(req, &token)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrTokenExchange, status)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrTokenExchange)
	}

	return &token, nil
}

// ValidateToken checks a token against the OAuth validate endpoint.
// A nil Validation with a nil error means Twitch rejected the token.
func (c *Client) ValidateToken(ctx context.Context, token string) (*Validation, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.opts.OAuthURL+"/validate")
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "OAuth "+token)

	var validation Validation
	status, err := c.doJSON(req, &validation)
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if status != http.StatusOK {
		return nil, nil
	}

	return &validation, nil
}

// LatestArchives returns archive videos of a user, most recent first.
func (c *Client) LatestArchives(ctx context.Context, token, userID string) ([]Video, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	query := url.Values{}
	query.Set("user_id", userID)
	query.Set("type", "archive")

	req, err := c.newRequest(ctx, http.MethodGet, c.opts.HelixURL+"/videos?"+query.Encode())
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Client-Id", c.opts.ClientID)

	var videos videosResponse
	status, err := c.doJSON(req, &videos)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch videos: %w", err)
	}
	if status != http.StatusOK {
		return nil, &StatusError{Op: "videos", StatusCode: status}
	}

	return videos.Data, nil
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	return req, nil
}

// doJSON decodes the body into out only on 200 and drains it otherwise.
func (c *Client) doJSON(req *http.Request, out any) (int, error) {
	ctx, cancel := context.WithTimeout(req.Context(), c.opts.Timeout)
	defer cancel()

	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}

	return resp.StatusCode, nil
}

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/vod-comb/app/twitch"
)

// MinRemainingLifetime is the shortest remaining lifetime a cached token may
// have and still be handed out.
const MinRemainingLifetime = 5 * time.Minute

type TokenClient interface {
	ExchangeToken(ctx context.Context) (*twitch.TokenResponse, error)
	ValidateToken(ctx context.Context, token string) (*twitch.Validation, error)
}

type RefreshObserver interface {
	TokenRefreshed()
}

type Status struct {
	LastRefreshAt    *time.Time `json:"last_refresh_at,omitempty"`
	LastValidatedAt  *time.Time `json:"last_validated_at,omitempty"`
	RemainingSeconds int        `json:"remaining_seconds"`
	Refreshes        int        `json:"refreshes"`
}

// Manager hands out a usable app access token, refreshing it through the
// client credentials grant when the cached one is missing or about to expire.
type Manager struct {
	client   TokenClient
	store    TokenStore
	observer RefreshObserver
	mu       sync.Mutex
	status   Status
}

func NewManager(client TokenClient, store TokenStore, observer RefreshObserver) *Manager {
	return &Manager{
		client:   client,
		store:    store,
		observer: observer,
	}
}

func (m *Manager) GetToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, err := m.store.Load()
	if err != nil {
		return "", err
	}

	if token == "" {
		slog.Info("Token not found, generating a new one")
		return m.refresh(ctx)
	}

	validation, err := m.client.ValidateToken(ctx, token)
	if err != nil {
		return "", err
	}

	now := time.Now()
	if validation != nil {
		m.status.LastValidatedAt = &now
		m.status.RemainingSeconds = validation.ExpiresIn
		if time.Duration(validation.ExpiresIn)*time.Second >= MinRemainingLifetime {
			return token, nil
		}
	}

	slog.Info("Token invalid or about to expire, generating a new one")
	return m.refresh(ctx)
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	resp, err := m.client.ExchangeToken(ctx)
	if err != nil {
		return "", err
	}

	if err := m.store.Save(resp.AccessToken); err != nil {
		return "", fmt.Errorf("failed to cache token: %w", err)
	}

	now := time.Now()
	m.status.LastRefreshAt = &now
	m.status.RemainingSeconds = resp.ExpiresIn
	m.status.Refreshes++
	if m.observer != nil {
		m.observer.TokenRefreshed()
	}

	slog.Debug("Token refreshed", "expires_in", resp.ExpiresIn)
	return resp.AccessToken, nil
}

package francetravail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrAuth marks a rejected token exchange. Authentication failures are never
// cached; the next caller retries the exchange.
var ErrAuth = errors.New("france travail authentication failed")

const (
	// Renewal margin: a token is considered expired this long before the
	// upstream expiry so in-flight requests never carry a stale token.
	tokenMargin = 60 * time.Second

	// Default lifetime applied when the token endpoint omits expires_in.
	defaultExpiresIn = 1499
)

// TokenManager caches the API bearer token and renews it through the OAuth2
// client-credentials exchange. Concurrent callers share one renewal.
type TokenManager struct {
	clientID     string
	clientSecret string
	logger       *zap.Logger

	HTTPClient *http.Client
	TokenURL   string

	now   func() time.Time
	group singleflight.Group

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenManager creates a token manager for the given credentials.
func NewTokenManager(logger *zap.Logger, clientID, clientSecret string) *TokenManager {
	return &TokenManager{
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger,
		TokenURL:     tokenURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

// Token returns a valid bearer token, renewing it when the cached one is
// missing or within the renewal margin of its expiry.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	if token, ok := m.cached(); ok {
		return token, nil
	}

	v, err, _ := m.group.Do("token", func() (any, error) {
		// A caller queued behind a finished renewal reuses its result.
		if token, ok := m.cached(); ok {
			return token, nil
		}
		return m.renew(ctx)
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// Invalidate drops the cached token, forcing a renewal on the next call.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.expiresAt = time.Time{}
}

func (m *TokenManager) cached() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && m.now().Before(m.expiresAt) {
		return m.token, true
	}
	return "", false
}

func (m *TokenManager) renew(ctx context.Context) (string, error) {
	m.logger.Info("renewing france travail token")

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", m.clientID)
	form.Set("client_secret", m.clientSecret)
	form.Set("scope", tokenScopes)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	q := req.URL.Query()
	q.Set("realm", tokenRealm)
	req.URL.RawQuery = q.Encode()

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %s", ErrAuth, resp.Status)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode token response: %w", ErrAuth, err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: token endpoint returned empty token", ErrAuth)
	}

	expiresIn := payload.ExpiresIn
	if expiresIn == 0 {
		expiresIn = defaultExpiresIn
	}

	m.mu.Lock()
	m.token = payload.AccessToken
	m.expiresAt = m.now().Add(time.Duration(expiresIn)*time.Second - tokenMargin)
	m.mu.Unlock()

	m.logger.Info("france travail token renewed", zap.Int("expires_in", expiresIn))
	return payload.AccessToken, nil
}

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

const tokenRefreshLeeway = 30 * time.Second

// TokenSource exchanges configured catalog credentials for a bearer token
// and caches it until shortly before expiry. The cache is explicit state,
// not a package-level global, so tests can inject and inspect it.
type TokenSource struct {
	baseURL    string
	username   string
	password   string
	httpClient HTTPDoer

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// TokenOption customises TokenSource construction.
type TokenOption func(*TokenSource)

// WithTokenHTTPClient overrides the HTTP client used for token exchange.
func WithTokenHTTPClient(client HTTPDoer) TokenOption {
	return func(s *TokenSource) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// NewTokenSource builds a TokenSource for the catalog at baseURL.
func NewTokenSource(baseURL, username, password string, opts ...TokenOption) (*TokenSource, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("catalog base url required")
	}
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return nil, errors.New("catalog credentials required")
	}
	source := &TokenSource{
		baseURL:    baseURL,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(source)
	}
	return source, nil
}

// Token returns a current bearer token, refreshing when the cached one is
// missing or within the expiry leeway.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Until(s.expiresAt) > tokenRefreshLeeway {
		return s.token, nil
	}
	return s.refreshLocked(ctx)
}

// Refresh forces a new token exchange regardless of cache state.
func (s *TokenSource) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *TokenSource) refreshLocked(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"username": s.username,
		"password": s.password,
	})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v1/auth/token", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("exchange credentials: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange returned %d", resp.StatusCode)
	}

	var body struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expires_in"` // seconds
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if body.Token == "" {
		return "", errors.New("token exchange returned empty token")
	}

	s.token = body.Token
	if body.ExpiresIn > 0 {
		s.expiresAt = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	} else {
		s.expiresAt = time.Now().Add(time.Hour)
	}
	return s.token, nil
}

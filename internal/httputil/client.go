// Package httputil provides HTTP response helpers and the auth provider
// client used to verify bearer tokens remotely.
package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ProviderUser is the identity returned by the auth provider's user endpoint.
type ProviderUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	UserMetadata struct {
		WalletAddress string `json:"wallet_address"`
	} `json:"user_metadata"`
}

// AuthClient verifies bearer tokens against the auth provider's REST API.
// Used when the token cannot be verified locally.
type AuthClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxRetries int
}

// AuthClientConfig configures the auth client.
type AuthClientConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// NewAuthClient creates a client for the auth provider.
func NewAuthClient(cfg AuthClientConfig) (*AuthClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("auth provider base URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 2
	}

	return &AuthClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		maxRetries: maxRetries,
	}, nil
}

// GetUser resolves a bearer token to its user via GET /auth/v1/user.
// Transient 5xx responses are retried; 401/403 mean the token is invalid.
func (c *AuthClient) GetUser(ctx context.Context, token string) (*ProviderUser, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		user, retry, err := c.getUserOnce(ctx, token)
		if err == nil {
			return user, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *AuthClient) getUserOnce(ctx context.Context, token string) (*ProviderUser, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("auth provider request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := ReadAllStrict(resp.Body, 1<<20)
		if err != nil {
			return nil, false, fmt.Errorf("read auth response: %w", err)
		}
		var user ProviderUser
		if err := json.Unmarshal(body, &user); err != nil {
			return nil, false, fmt.Errorf("decode auth response: %w", err)
		}
		if user.ID == "" {
			return nil, false, fmt.Errorf("auth provider returned no user id")
		}
		return &user, false, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, fmt.Errorf("token rejected by auth provider (status %d)", resp.StatusCode)

	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("auth provider unavailable (status %d)", resp.StatusCode)

	default:
		body, truncated, _ := ReadAllWithLimit(resp.Body, 64<<10)
		msg := strings.TrimSpace(string(body))
		if truncated {
			msg += "...(truncated)"
		}
		return nil, false, fmt.Errorf("auth provider status %d: %s", resp.StatusCode, msg)
	}
}

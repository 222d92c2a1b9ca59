package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// UserResolver returns the authenticated user's email, or "" when nobody is
// signed in.
type UserResolver interface {
	Email(ctx context.Context) (string, error)
}

// StaticUser is a fixed identity.
type StaticUser string

func (u StaticUser) Email(context.Context) (string, error) {
	return string(u), nil
}

// RelayUser asks the relay's /auth/me endpoint who the session cookie
// belongs to. The first definite answer is cached, including "nobody": a
// relay without auth has no /auth/me and answers 404.
type RelayUser struct {
	baseURL string
	client  *http.Client

	mu       sync.Mutex
	resolved bool
	email    string
}

func NewRelayUser(baseURL string, client *http.Client) *RelayUser {
	if client == nil {
		client = http.DefaultClient
	}
	return &RelayUser{baseURL: baseURL, client: client}
}

func (u *RelayUser) Email(ctx context.Context) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.resolved {
		return u.email, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+"/auth/me", nil)
	if err != nil {
		return "", fmt.Errorf("building me request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching current user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound {
		u.resolved = true
		return "", nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetching current user: status %d", resp.StatusCode)
	}

	var me struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return "", fmt.Errorf("decoding current user: %w", err)
	}
	u.email = me.Email
	u.resolved = true
	return u.email, nil
}

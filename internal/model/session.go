package model

import "time"

// Session is an authenticated browser session, referenced by the session
// cookie. It is unrelated to the chat session id the client sends upstream.
type Session struct {
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
	ID        int64     `json:"id"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

package main

import (
	"net/http"

	"basegraph.app/chat/internal/http/middleware"
)

// cookieTransport attaches the relay session cookie to every request.
type cookieTransport struct {
	base   http.RoundTripper
	cookie *http.Cookie
}

func withSessionCookie(base http.RoundTripper, value string) http.RoundTripper {
	if value == "" {
		return base
	}
	return &cookieTransport{
		base:   base,
		cookie: &http.Cookie{Name: middleware.SessionCookieName, Value: value},
	}
}

func (t *cookieTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.AddCookie(t.cookie)
	return t.base.RoundTrip(req)
}

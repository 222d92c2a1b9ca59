package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"basegraph.app/chat/internal/model"
)

type mockUpstream struct {
	submitChatFn   func(ctx context.Context, contentType string, body io.Reader) (*http.Response, error)
	fetchHistoryFn func(ctx context.Context, query url.Values) (*http.Response, error)
	clearSessionFn func(ctx context.Context, body []byte) (*http.Response, error)
}

func (m *mockUpstream) SubmitChat(ctx context.Context, contentType string, body io.Reader) (*http.Response, error) {
	if m.submitChatFn != nil {
		return m.submitChatFn(ctx, contentType, body)
	}
	return jsonResponse(http.StatusOK, `{}`), nil
}

func (m *mockUpstream) FetchHistory(ctx context.Context, query url.Values) (*http.Response, error) {
	if m.fetchHistoryFn != nil {
		return m.fetchHistoryFn(ctx, query)
	}
	return jsonResponse(http.StatusOK, `{"messages":[]}`), nil
}

func (m *mockUpstream) ClearSession(ctx context.Context, body []byte) (*http.Response, error) {
	if m.clearSessionFn != nil {
		return m.clearSessionFn(ctx, body)
	}
	return jsonResponse(http.StatusOK, `{}`), nil
}

type mockAuthService struct {
	getAuthorizationURLFn func(state string) (string, error)
	handleCallbackFn      func(ctx context.Context, code string) (*model.Session, error)
	validateSessionFn     func(ctx context.Context, sessionID int64) (*model.User, error)
	logoutFn              func(ctx context.Context, sessionID int64) error
}

func (m *mockAuthService) GetAuthorizationURL(state string) (string, error) {
	if m.getAuthorizationURLFn != nil {
		return m.getAuthorizationURLFn(state)
	}
	return "", nil
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, nil
}

func (m *mockAuthService) ValidateSession(ctx context.Context, sessionID int64) (*model.User, error) {
	if m.validateSessionFn != nil {
		return m.validateSessionFn(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID int64) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func response(status int, contentType string, body io.Reader) *http.Response {
	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     header,
		Body:       io.NopCloser(body),
	}
}

func jsonResponse(status int, body string) *http.Response {
	return response(status, "application/json", strings.NewReader(body))
}

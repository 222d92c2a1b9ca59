// Package upstream talks to the conversational backend the relay fronts.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"basegraph.app/chat/common"
	"basegraph.app/chat/common/logger"
	"basegraph.app/chat/core/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const apiKeyHeader = "X-API-KEY"

// Client forwards chat operations upstream. Callers own the returned
// response and must close its body.
type Client interface {
	SubmitChat(ctx context.Context, contentType string, body io.Reader) (*http.Response, error)
	FetchHistory(ctx context.Context, query url.Values) (*http.Response, error)
	ClearSession(ctx context.Context, body []byte) (*http.Response, error)
}

type client struct {
	baseURL     string
	apiKey      string
	clearPath   string
	timeout     time.Duration
	maxDuration time.Duration
	http        *http.Client
}

func NewClient(cfg config.UpstreamConfig, httpClient *http.Client) Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	clearPath := cfg.ClearPath
	if clearPath == "" {
		clearPath = "/api/chat/clear"
	}
	return &client{
		baseURL:     common.NormalizeLoopback(cfg.BaseURL),
		apiKey:      cfg.APIKey,
		clearPath:   clearPath,
		timeout:     cfg.Timeout,
		maxDuration: cfg.MaxDuration,
		http:        httpClient,
	}
}

// SubmitChat posts the multipart body as is. The response body is not read
// here so a streamed reply reaches the caller incrementally.
func (c *client) SubmitChat(ctx context.Context, contentType string, body io.Reader) (*http.Response, error) {
	return c.do(ctx, "upstream.submit_chat", c.maxDuration, http.MethodPost, "/api/chat", body, func(h http.Header) {
		h.Set("Content-Type", contentType)
	})
}

func (c *client) FetchHistory(ctx context.Context, query url.Values) (*http.Response, error) {
	path := "/api/chat/history"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return c.do(ctx, "upstream.fetch_history", c.timeout, http.MethodGet, path, nil, func(h http.Header) {
		h.Set("Accept", "application/json")
	})
}

func (c *client) ClearSession(ctx context.Context, body []byte) (*http.Response, error) {
	return c.do(ctx, "upstream.clear_session", c.timeout, http.MethodPost, c.clearPath, bytes.NewReader(body), func(h http.Header) {
		h.Set("Content-Type", "application/json")
	})
}

func (c *client) do(
	ctx context.Context,
	spanName string,
	timeout time.Duration,
	method, path string,
	body io.Reader,
	headers func(http.Header),
) (*http.Response, error) {
	sc := logger.StartSpan(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		),
	)
	ctx = sc.Context()

	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		cancel()
		sc.RecordError(err)
		sc.End()
		return nil, fmt.Errorf("building upstream request: %w", err)
	}
	headers(req.Header)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		sc.RecordError(err)
		sc.End()
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	sc.Span().SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	resp.Body = &releasingBody{ReadCloser: resp.Body, release: func() {
		cancel()
		sc.End()
	}}
	return resp, nil
}

// releasingBody cancels the request context and ends the span once the
// caller is done with the body, not when do returns.
type releasingBody struct {
	io.ReadCloser
	release func()
	closed  bool
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	if !b.closed {
		b.closed = true
		b.release()
	}
	return err
}

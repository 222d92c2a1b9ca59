package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// SubmitTurn sends one user turn and reconciles the reply into the
// conversation. It blocks until the turn has resolved; run it on its own
// goroutine to keep a UI responsive and observe progress via Subscribe.
//
// The user's message is appended before any network activity. Streamed
// replies grow a single AI message in place. Any failure leaves exactly one
// AI message carrying ApologyText for the turn. The only error returned is
// ErrTurnInFlight, in which case nothing was changed.
func (c *Client) SubmitTurn(ctx context.Context, text string, files []File) error {
	var attachments []Attachment
	for _, f := range files {
		attachments = append(attachments, f.attachment())
	}

	gen, err := c.conversation.beginTurn(newMessage(SenderUser, text, attachments))
	if err != nil {
		return err
	}
	defer c.conversation.endTurn(gen)

	if c.turnTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, c.turnTimeout)
		defer cancelTimeout()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	release := c.trackTurn(cancel)
	defer release()

	t := &turn{client: c, gen: gen}
	if err := t.run(ctx, text, files); err != nil {
		if c.conversation.generation() != gen {
			c.logger.InfoContext(ctx, "turn superseded by clear", "error", err)
			return nil
		}
		c.logger.ErrorContext(ctx, "chat turn failed", "error", err)
		t.fail()
	}
	return nil
}

// ClearConversation empties the conversation and asks the relay to forget
// the upstream session. Local clearing always happens, first, regardless of
// how the upstream call goes.
func (c *Client) ClearConversation(ctx context.Context) {
	c.Abort()
	c.conversation.Reset()

	sessionID := c.resolveSessionID()
	userID := c.resolveUserID(ctx)
	if sessionID == "" || userID == "" {
		c.logger.WarnContext(ctx, "skipping upstream clear, session or user id unknown",
			"has_session_id", sessionID != "",
			"has_user_id", userID != "",
		)
		return
	}

	if err := c.clearUpstream(ctx, sessionID, userID); err != nil {
		c.logger.WarnContext(ctx, "upstream clear failed, cleared locally only", "error", err, "session_id", sessionID)
	}
}

func (c *Client) clearUpstream(ctx context.Context, sessionID, userID string) error {
	body, err := json.Marshal(map[string]string{
		"session_id": sessionID,
		"user_id":    userID,
		"app_name":   c.appName,
	})
	if err != nil {
		return fmt.Errorf("encoding clear request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/clear", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building clear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("requesting clear: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("requesting clear: status %d", resp.StatusCode)
	}
	return nil
}

// turn carries the per-submission state: the generation the turn belongs to
// and the placeholder it streams into.
type turn struct {
	client        *Client
	gen           uint64
	placeholderID string
}

func (t *turn) run(ctx context.Context, text string, files []File) error {
	c := t.client

	body, contentType, err := c.buildSubmission(ctx, text, files)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", body)
	if err != nil {
		return fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("submitting turn: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("submitting turn: status %d", resp.StatusCode)
	}

	kind := classify(resp)
	c.logger.DebugContext(ctx, "chat response received", "kind", kind.String(), "content_type", resp.Header.Get("Content-Type"))

	if kind == kindStreamed {
		return t.consumeStream(resp.Body)
	}
	return t.consumeSingleShot(resp.Body)
}

// consumeStream reads tokens until EOF, writing the joined text into one
// placeholder message after every token.
func (t *turn) consumeStream(body io.Reader) error {
	placeholder := newMessage(SenderAI, "", nil)
	if !t.client.conversation.appendIf(t.gen, placeholder) {
		return errSuperseded
	}
	t.placeholderID = placeholder.ID

	reader := NewLineReader(body)
	var acc accumulator
	for {
		token, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading stream: %w", err)
		}
		t.client.conversation.updateTextIf(t.gen, t.placeholderID, acc.add(token))
	}
}

func (t *turn) consumeSingleShot(body io.Reader) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if !t.client.conversation.appendIf(t.gen, newMessage(SenderAI, extractReply(raw), nil)) {
		return errSuperseded
	}
	return nil
}

// fail drops whatever the turn streamed so far and appends the apology.
func (t *turn) fail() {
	conv := t.client.conversation
	if t.placeholderID != "" {
		conv.removeIf(t.gen, t.placeholderID)
	}
	conv.appendIf(t.gen, newMessage(SenderAI, ApologyText, nil))
}

var errSuperseded = errors.New("turn superseded")

// buildSubmission encodes the multipart form the relay forwards upstream.
// user_id and session_id are omitted when they cannot be resolved.
func (c *Client) buildSubmission(ctx context.Context, text string, files []File) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"message", text},
		{"app_name", c.appName},
	}
	if userID := c.resolveUserID(ctx); userID != "" {
		fields = append(fields, [2]string{"user_id", userID})
	}
	if sessionID := c.resolveSessionID(); sessionID != "" {
		fields = append(fields, [2]string{"session_id", sessionID})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("writing %s field: %w", f[0], err)
		}
	}

	for _, f := range files {
		part, err := w.CreatePart(filePartHeader(f))
		if err != nil {
			return nil, "", fmt.Errorf("creating part for %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("writing %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func filePartHeader(f File) textproto.MIMEHeader {
	mimeType := f.MIMEType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", mimeType)
	return h
}

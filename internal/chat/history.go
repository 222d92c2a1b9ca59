package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type historyResponse struct {
	Messages *[]historyRecord `json:"messages"`
}

type historyRecord struct {
	ID        string          `json:"id"`
	Text      string          `json:"text"`
	Sender    Sender          `json:"sender"`
	Files     []Attachment    `json:"files"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// loadHistory hydrates the conversation with the upstream history of
// sessionID. It never returns an error: every failure is logged and the
// conversation is left as it is.
func (c *Client) loadHistory(ctx context.Context, gen uint64, sessionID string) {
	messages, err := c.fetchHistory(ctx, sessionID)
	if err != nil {
		c.logger.WarnContext(ctx, "loading chat history failed", "error", err, "session_id", sessionID)
		return
	}
	if messages == nil {
		c.logger.DebugContext(ctx, "chat history response has no messages", "session_id", sessionID)
		return
	}

	if !c.conversation.hydrate(gen, messages) {
		c.logger.InfoContext(ctx, "conversation cleared while history was loading, dropping it", "session_id", sessionID)
		return
	}
	c.logger.InfoContext(ctx, "chat history loaded", "session_id", sessionID, "count", len(messages))
}

// fetchHistory returns nil, nil when the response carries no messages field.
func (c *Client) fetchHistory(ctx context.Context, sessionID string) ([]Message, error) {
	query := url.Values{}
	query.Set("session_id", sessionID)
	query.Set("app_name", c.appName)
	query.Set("user_id", c.resolveUserID(ctx))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/chat/history?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building history request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("requesting history: status %d", resp.StatusCode)
	}

	var body historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}
	if body.Messages == nil {
		return nil, nil
	}

	messages := make([]Message, 0, len(*body.Messages))
	for _, rec := range *body.Messages {
		ts, err := parseTimestamp(rec.Timestamp)
		if err != nil {
			c.logger.DebugContext(ctx, "unparseable history timestamp", "message_id", rec.ID, "error", err)
		}
		messages = append(messages, Message{
			ID:          rec.ID,
			Text:        rec.Text,
			Sender:      rec.Sender,
			Timestamp:   ts,
			Attachments: rec.Files,
		})
	}
	return messages, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp accepts a serialized timestamp as RFC 3339, zone-less
// ISO 8601 (read as UTC), or epoch milliseconds given as a number or a
// numeric string. Failures yield the zero time.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		var ms float64
		if err := json.Unmarshal(raw, &ms); err != nil {
			return time.Time{}, fmt.Errorf("timestamp %s is neither string nor number", raw)
		}
		return time.UnixMilli(int64(ms)), nil
	}

	text = strings.TrimSpace(text)
	if ms, err := strconv.ParseInt(text, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, text); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", text)
}

package chat

import (
	"encoding/json"
	"net/http"
	"strings"
)

type responseKind int

const (
	// kindSingleShot is the default, including when no content type is declared.
	kindSingleShot responseKind = iota
	kindStreamed
)

func (k responseKind) String() string {
	if k == kindStreamed {
		return "streamed"
	}
	return "single_shot"
}

// classify decides how a successful submission response is consumed.
func classify(resp *http.Response) responseKind {
	if resp.Body == nil || resp.Body == http.NoBody {
		return kindSingleShot
	}
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(contentType, "text/event-stream") || strings.Contains(contentType, "text/plain") {
		return kindStreamed
	}
	return kindSingleShot
}

// replyFields are the accepted reply field names, in priority order.
var replyFields = []string{"message", "reply", "data"}

// extractReply turns a single-shot body into reply text. Structured bodies
// yield the first present reply field, other JSON is re-encoded and
// anything unparseable is used raw.
func extractReply(body []byte) string {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return string(body)
	}

	// Anything but an object carrying a reply field is shown re-encoded, so
	// a bare JSON string keeps its quotes.
	if obj, ok := decoded.(map[string]any); ok {
		for _, field := range replyFields {
			if reply, ok := replyText(obj[field]); ok {
				return reply
			}
		}
	}

	return encode(decoded, body)
}

// replyText reports whether value counts as a present reply. Empty strings,
// false, zero and null do not.
func replyText(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case bool:
		if !v {
			return "", false
		}
	case float64:
		if v == 0 {
			return "", false
		}
	}
	return encode(value, nil), true
}

func encode(value any, fallback []byte) string {
	out, err := json.Marshal(value)
	if err != nil {
		return string(fallback)
	}
	return string(out)
}

package chat

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// doneSentinel is filtered out of the token stream. It does not end the
// stream; only EOF does.
const doneSentinel = "[DONE]"

// LineReader reads the relay's relaxed event-stream framing: one token per
// line, optionally prefixed with "data: ". There are no event or id fields
// and blank-line record separators carry no meaning. Lines split across
// network chunks are reassembled before parsing.
type LineReader struct {
	reader *bufio.Reader
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{reader: bufio.NewReader(r)}
}

// Next returns the next token. Returns io.EOF once the stream is exhausted;
// a final line without a trailing newline is still delivered.
func (r *LineReader) Next() (string, error) {
	for {
		line, err := r.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}

		if token, ok := parseLine(line); ok {
			return token, nil
		}

		if err != nil {
			return "", io.EOF
		}
	}
}

// parseLine extracts the token carried by one line. Empty lines, empty data
// payloads and the done sentinel carry none. Lines without a data prefix are
// plain-text tokens.
func parseLine(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || trimmed == "data:" {
		return "", false
	}

	if payload, ok := strings.CutPrefix(trimmed, "data: "); ok {
		payload = strings.TrimSpace(payload)
		if payload == "" || payload == doneSentinel {
			return "", false
		}
		return payload, true
	}

	return trimmed, true
}

// accumulator joins tokens with single spaces.
type accumulator struct {
	b strings.Builder
}

func (a *accumulator) add(token string) string {
	if a.b.Len() > 0 {
		a.b.WriteByte(' ')
	}
	a.b.WriteString(token)
	return strings.TrimSpace(a.b.String())
}

package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"basegraph.app/chat/internal/chat"
)

// renderer prints conversation snapshots as a transcript. A streaming AI
// message is printed once and then extended by whatever text it gained
// since the previous snapshot.
type renderer struct {
	out io.Writer

	mu      sync.Mutex
	printed map[string]string
	open    string
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out, printed: make(map[string]string)}
}

func (r *renderer) render(snap chat.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(snap.Messages) == 0 && len(r.printed) > 0 {
		r.closeLine()
		fmt.Fprintln(r.out, "(conversation cleared)")
		r.printed = make(map[string]string)
		return
	}

	for _, m := range snap.Messages {
		prev, seen := r.printed[m.ID]
		switch {
		case !seen:
			r.closeLine()
			fmt.Fprintf(r.out, "%s %s", label(m), m.Text)
			for _, a := range m.Attachments {
				fmt.Fprintf(r.out, "\n   [%s, %s, %d bytes]", a.Name, a.MIMEType, a.SizeBytes)
			}
			r.printed[m.ID] = m.Text
			r.open = m.ID
		case len(m.Text) > len(prev) && strings.HasPrefix(m.Text, prev):
			if r.open != m.ID {
				r.closeLine()
				fmt.Fprintf(r.out, "%s %s", label(m), m.Text)
				r.open = m.ID
			} else {
				io.WriteString(r.out, m.Text[len(prev):])
			}
			r.printed[m.ID] = m.Text
		}
	}

	if !snap.IsLoading {
		r.closeLine()
	}
}

func (r *renderer) closeLine() {
	if r.open != "" {
		fmt.Fprintln(r.out)
		r.open = ""
	}
}

func label(m chat.Message) string {
	if m.Sender == chat.SenderUser {
		return "you>"
	}
	return "ai> "
}

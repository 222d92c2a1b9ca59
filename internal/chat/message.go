// Package chat is the client side of the chat relay: it keeps the
// conversation, persists the per-browser session identity, hydrates history
// and reconciles streamed replies into the conversation as they arrive.
package chat

import (
	"time"

	"basegraph.app/chat/common/id"
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ApologyText replaces the assistant reply of a turn that failed.
const ApologyText = "Sorry, I encountered an error while processing your message. Please try again."

// Attachment describes a file submitted with a user turn. The bytes are
// never kept in the conversation.
type Attachment struct {
	Name      string `json:"name"`
	MIMEType  string `json:"type"`
	SizeBytes int64  `json:"size"`
}

type Message struct {
	Timestamp   time.Time    `json:"timestamp"`
	ID          string       `json:"id"`
	Text        string       `json:"text"`
	Sender      Sender       `json:"sender"`
	Attachments []Attachment `json:"files,omitempty"`
}

func newMessage(sender Sender, text string, attachments []Attachment) Message {
	return Message{
		ID:          id.NewMessageID(),
		Text:        text,
		Sender:      sender,
		Timestamp:   time.Now(),
		Attachments: attachments,
	}
}

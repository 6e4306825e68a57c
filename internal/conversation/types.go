// ABOUTME: Conversation domain types: messages, summaries and the active conversation
// ABOUTME: Converts transport payloads into immutable local values

package conversation

import (
	"time"

	"github.com/2389/zeeking/internal/client"
)

// ID identifies a server-side conversation. The zero ID marks a draft.
type ID = client.ID

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat bubble. Messages are never edited once appended.
type Message struct {
	Role    Role
	Text    string
	IsError bool
}

// Summary is one entry of the conversation list.
type Summary struct {
	ID           ID
	Title        string
	MessageCount int
	UpdatedAt    time.Time
}

// Active is the conversation currently shown. A draft has no ID yet.
type Active struct {
	ID       ID
	Messages []Message
}

// IsDraft reports whether the conversation has not been saved by the server.
func (a Active) IsDraft() bool {
	return a.ID.IsZero()
}

// Suggestions are offered when the active conversation is empty.
var Suggestions = []string{
	"What can you do for me?",
}

func summariesFromWire(in []client.ConversationSummary) []Summary {
	out := make([]Summary, len(in))
	for i, s := range in {
		out[i] = Summary{
			ID:           s.ID,
			Title:        s.Title,
			MessageCount: s.MessageCount,
			UpdatedAt:    s.UpdatedAt,
		}
	}
	return out
}

func messagesFromWire(in []client.HistoryMessage) []Message {
	out := make([]Message, len(in))
	for i, m := range in {
		role := RoleAssistant
		if m.IsUser {
			role = RoleUser
		}
		out[i] = Message{Role: role, Text: m.Content}
	}
	return out
}

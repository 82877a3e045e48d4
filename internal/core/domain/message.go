package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Speaker identifies who produced a message.
type Speaker string

const (
	// SpeakerUser is the person asking questions.
	SpeakerUser Speaker = "user"

	// SpeakerAssistant is the server-side assistant.
	SpeakerAssistant Speaker = "assistant"
)

// DefaultDedupWindow is the span within which two identical assistant
// messages are treated as the same logical event.
const DefaultDedupWindow = time.Second

// ConnectionLostText is the notice appended after an unexpected close.
const ConnectionLostText = "Connection lost. Attempting to reconnect..."

// Message is one turn in the conversation. Once appended it is never mutated.
type Message struct {
	Text      string    `json:"text"`
	Speaker   Speaker   `json:"speaker"`
	IsError   bool      `json:"isError"`
	Timestamp time.Time `json:"timestamp"`

	// RelevanceScore is an optional 0-1 score attached by the server.
	RelevanceScore *float64 `json:"relevanceScore,omitempty"`
}

// NewUserMessage creates a user message stamped at now.
func NewUserMessage(text string, now time.Time) Message {
	return Message{Text: text, Speaker: SpeakerUser, Timestamp: now}
}

// NewAssistantMessage creates an assistant message stamped at now.
func NewAssistantMessage(text string, now time.Time) Message {
	return Message{Text: text, Speaker: SpeakerAssistant, Timestamp: now}
}

// NewErrorMessage creates an assistant-speaker error message stamped at now.
func NewErrorMessage(text string, now time.Time) Message {
	return Message{Text: text, Speaker: SpeakerAssistant, IsError: true, Timestamp: now}
}

// IsAssistant reports whether the assistant produced the message.
func (m Message) IsAssistant() bool {
	return m.Speaker == SpeakerAssistant
}

// IsDuplicate reports whether appending m to log would repeat a logical event.
//
// User messages are never duplicates. An assistant message is a duplicate
// when the last message is an assistant message with identical text, or when
// any assistant message with identical text lies within window of it.
func IsDuplicate(log []Message, m Message, window time.Duration) bool {
	if !m.IsAssistant() || len(log) == 0 {
		return false
	}
	last := log[len(log)-1]
	if last.IsAssistant() && last.Text == m.Text {
		return true
	}
	for i := len(log) - 1; i >= 0; i-- {
		prev := log[i]
		if !prev.IsAssistant() || prev.Text != m.Text {
			continue
		}
		d := m.Timestamp.Sub(prev.Timestamp)
		if d < 0 {
			d = -d
		}
		if d < window {
			return true
		}
	}
	return false
}

// ConversationItem is one element of a stored or server-supplied conversation.
// It accepts the canonical Message shape as well as raw server turns
// carrying content, role and timestamp.
type ConversationItem struct {
	Message
}

// conversationWire is the union of every accepted field.
type conversationWire struct {
	Text           *string         `json:"text"`
	Speaker        Speaker         `json:"speaker"`
	IsBot          *bool           `json:"isBot"`
	IsError        bool            `json:"isError"`
	Error          bool            `json:"error"`
	Content        string          `json:"content"`
	Role           string          `json:"role"`
	Timestamp      json.RawMessage `json:"timestamp"`
	RelevanceScore *float64        `json:"relevanceScore"`
}

// UnmarshalJSON maps either accepted shape into a canonical Message.
func (c *ConversationItem) UnmarshalJSON(data []byte) error {
	var w conversationWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	msg := Message{
		IsError:        w.IsError || w.Error,
		Timestamp:      parseTimestamp(w.Timestamp),
		RelevanceScore: w.RelevanceScore,
	}

	if w.Text != nil {
		msg.Text = *w.Text
		switch {
		case w.Speaker != "":
			msg.Speaker = normaliseSpeaker(string(w.Speaker))
		case w.IsBot != nil && *w.IsBot:
			msg.Speaker = SpeakerAssistant
		default:
			msg.Speaker = SpeakerUser
		}
	} else {
		msg.Text = w.Content
		msg.Speaker = normaliseSpeaker(w.Role)
	}

	c.Message = msg
	return nil
}

// normaliseSpeaker maps role strings: "assistant" is the assistant, anything else the user.
func normaliseSpeaker(role string) Speaker {
	if strings.EqualFold(role, string(SpeakerAssistant)) {
		return SpeakerAssistant
	}
	return SpeakerUser
}

// parseTimestamp accepts RFC 3339 strings and Unix milliseconds.
func parseTimestamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return time.Time{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
		return time.Time{}
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.UnixMilli(ms)
	}
	return time.Time{}
}

// Messages extracts the canonical messages from conversation items.
func Messages(items []ConversationItem) []Message {
	out := make([]Message, 0, len(items))
	for _, item := range items {
		out = append(out, item.Message)
	}
	return out
}

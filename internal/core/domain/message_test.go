package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// TestIsDuplicate tests the assistant deduplication rules
func TestIsDuplicate(t *testing.T) {
	tests := []struct {
		name string
		log  []Message
		msg  Message
		want bool
	}{
		{
			name: "empty log",
			msg:  NewAssistantMessage("hi", t0),
			want: false,
		},
		{
			name: "repeated assistant text as last message",
			log:  []Message{NewAssistantMessage("hi", t0)},
			msg:  NewAssistantMessage("hi", t0.Add(time.Minute)),
			want: true,
		},
		{
			name: "identical assistant text within window",
			log: []Message{
				NewAssistantMessage("hi", t0),
				NewUserMessage("q", t0.Add(100*time.Millisecond)),
			},
			msg:  NewAssistantMessage("hi", t0.Add(500*time.Millisecond)),
			want: true,
		},
		{
			name: "identical assistant text outside window",
			log: []Message{
				NewAssistantMessage("hi", t0),
				NewUserMessage("q", t0.Add(time.Second)),
			},
			msg:  NewAssistantMessage("hi", t0.Add(2*time.Second)),
			want: false,
		},
		{
			name: "different assistant text",
			log:  []Message{NewAssistantMessage("hi", t0)},
			msg:  NewAssistantMessage("hello", t0),
			want: false,
		},
		{
			name: "user messages are never duplicates",
			log:  []Message{NewUserMessage("What is X?", t0)},
			msg:  NewUserMessage("What is X?", t0.Add(10*time.Millisecond)),
			want: false,
		},
		{
			name: "assistant text equal to preceding user text",
			log:  []Message{NewUserMessage("same", t0)},
			msg:  NewAssistantMessage("same", t0),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDuplicate(tt.log, tt.msg, DefaultDedupWindow))
		})
	}
}

// TestConversationItem_Unmarshal tests both accepted conversation shapes
func TestConversationItem_Unmarshal(t *testing.T) {
	raw := `[
		{"text":"Hello","isBot":true,"timestamp":"2026-03-01T12:00:00Z"},
		{"text":"Hi","speaker":"user","timestamp":1772366400000},
		{"content":"Answer","role":"assistant","relevanceScore":0.8},
		{"content":"Question","role":"human"},
		{"text":"Oops","speaker":"assistant","isError":true}
	]`

	var items []ConversationItem
	require.NoError(t, json.Unmarshal([]byte(raw), &items))
	msgs := Messages(items)
	require.Len(t, msgs, 5)

	assert.Equal(t, SpeakerAssistant, msgs[0].Speaker)
	assert.Equal(t, t0, msgs[0].Timestamp.UTC())

	assert.Equal(t, SpeakerUser, msgs[1].Speaker)
	assert.Equal(t, int64(1772366400000), msgs[1].Timestamp.UnixMilli())

	assert.Equal(t, "Answer", msgs[2].Text)
	assert.Equal(t, SpeakerAssistant, msgs[2].Speaker)
	require.NotNil(t, msgs[2].RelevanceScore)
	assert.InDelta(t, 0.8, *msgs[2].RelevanceScore, 1e-9)

	assert.Equal(t, SpeakerUser, msgs[3].Speaker)
	assert.True(t, msgs[4].IsError)
}

// TestMessage_RoundTrip tests that the canonical shape reloads unchanged
func TestMessage_RoundTrip(t *testing.T) {
	score := 0.5
	in := []Message{
		NewUserMessage("q", t0),
		{Text: "a", Speaker: SpeakerAssistant, Timestamp: t0, RelevanceScore: &score},
		NewErrorMessage("boom", t0),
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var items []ConversationItem
	require.NoError(t, json.Unmarshal(data, &items))
	assert.Equal(t, in, Messages(items))
}

// TestStreamBuffer_Append tests fragment accumulation
func TestStreamBuffer_Append(t *testing.T) {
	var b StreamBuffer
	assert.False(t, b.Active)

	b.Append("The ")
	b.Append("answer")

	assert.True(t, b.Active)
	assert.Equal(t, "The answer", b.Text)
}

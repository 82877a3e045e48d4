package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseFrame tests decoding of server frames
func TestParseFrame(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Frame
		wantErr bool
	}{
		{
			name: "fragment",
			in:   `{"type":"fragment","token":"Hel"}`,
			want: Frame{Type: FrameFragment, Token: "Hel"},
		},
		{
			name: "legacy stream",
			in:   `{"type":"stream","token":"lo"}`,
			want: Frame{Type: FrameFragment, Token: "lo"},
		},
		{
			name: "legacy stream end",
			in:   `{"type":"stream_end"}`,
			want: Frame{Type: FrameEnd},
		},
		{
			name: "legacy error",
			in:   `{"type":"error","message":"nope"}`,
			want: Frame{Type: FrameServerError, Message: "nope"},
		},
		{
			name: "initial response",
			in:   `{"type":"initial_response"}`,
			want: Frame{Type: FrameInitialResponse},
		},
		{
			name: "unknown type passes through",
			in:   `{"type":"heartbeat"}`,
			want: Frame{Type: "heartbeat"},
		},
		{
			name: "untyped question from older client",
			in:   `{"question":"Why?","embeddingKey":"embeddings/abc.json","email":"a@b.co"}`,
			want: Frame{
				Type:         FrameQuestion,
				Question:     "Why?",
				ResultHandle: "embeddings/abc.json",
				Identity:     "a@b.co",
				EmbeddingKey: "embeddings/abc.json",
				Email:        "a@b.co",
			},
		},
		{
			name: "current fields win over older ones",
			in:   `{"type":"initial","resultHandle":"r1","embeddingKey":"r0","identity":"a@b.co"}`,
			want: Frame{Type: FrameInitial, ResultHandle: "r1", EmbeddingKey: "r0", Identity: "a@b.co"},
		},
		{name: "not json", in: `not json`, wantErr: true},
		{name: "array", in: `[1,2]`, wantErr: true},
		{name: "missing type", in: `{"token":"x"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFrame([]byte(tt.in))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedFrame))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestNewQuestionFrame_Encode tests the outbound question shape
func TestNewQuestionFrame_Encode(t *testing.T) {
	data, err := NewQuestionFrame("What is X?", "embeddings/abc.json", "a@b.co").Encode()
	require.NoError(t, err)

	var m map[string]string
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "question", m["type"])
	assert.Equal(t, "What is X?", m["text"])
	assert.Equal(t, "What is X?", m["question"])
	assert.Equal(t, "embeddings/abc.json", m["resultHandle"])
	assert.Equal(t, "a@b.co", m["identity"])
	assert.Equal(t, "embeddings/abc.json", m["embeddingKey"])
	assert.Equal(t, "a@b.co", m["email"])
}

// TestNewInitialFrame_Encode tests the handshake shape
func TestNewInitialFrame_Encode(t *testing.T) {
	data, err := NewInitialFrame("embeddings/abc.json", "a@b.co").Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "initial",
		"resultHandle": "embeddings/abc.json",
		"identity": "a@b.co",
		"embeddingKey": "embeddings/abc.json",
		"email": "a@b.co"
	}`, string(data))
}

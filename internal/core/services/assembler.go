package services

import (
	"strings"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// StreamAssembler turns frames from the persistent connection into
// committed assistant messages. It is not safe for concurrent use; the
// session controller drives it from its event loop.
type StreamAssembler struct {
	buf            *domain.StreamBuffer
	composing      bool
	waitingInitial bool
	now            func() time.Time
}

// NewStreamAssembler creates an idle assembler.
func NewStreamAssembler(now func() time.Time) *StreamAssembler {
	if now == nil {
		now = time.Now
	}
	return &StreamAssembler{now: now}
}

// Apply consumes one frame. It returns the message to commit, if any,
// and whether the live view changed.
//
// The buffer is discarded in the same step that produces the commit, so
// the live text and the committed message are never both visible.
func (a *StreamAssembler) Apply(f domain.Frame) (*domain.Message, bool) {
	switch f.Type {
	case domain.FrameInitialResponse:
		changed := a.waitingInitial || a.composing
		a.waitingInitial = false
		a.composing = false
		return nil, changed

	case domain.FrameTyping:
		a.buf = &domain.StreamBuffer{Active: true}
		a.composing = true
		return nil, true

	case domain.FrameFragment:
		if a.buf == nil {
			a.buf = &domain.StreamBuffer{}
		}
		a.buf.Append(f.Token)
		a.waitingInitial = false
		return nil, true

	case domain.FrameEnd:
		var text string
		if a.buf != nil {
			text = strings.TrimSpace(a.buf.Text)
		}
		a.clear()
		if text == "" {
			return nil, true
		}
		m := domain.NewAssistantMessage(text, a.now())
		return &m, true

	case domain.FrameServerError:
		a.clear()
		if f.Message == "" {
			return nil, true
		}
		m := domain.NewErrorMessage(f.Message, a.now())
		return &m, true

	default:
		return nil, false
	}
}

// AwaitInitial marks that the handshake was sent and a greeting is expected.
func (a *StreamAssembler) AwaitInitial() {
	a.waitingInitial = true
	a.composing = true
}

// ExpectReply marks the assistant as composing after a question was sent.
func (a *StreamAssembler) ExpectReply() {
	a.composing = true
}

// Reset discards any live buffer and clears the composing indicators.
// Used for malformed frames and closed connections.
func (a *StreamAssembler) Reset() {
	a.clear()
}

func (a *StreamAssembler) clear() {
	a.buf = nil
	a.composing = false
	a.waitingInitial = false
}

// Live returns the in-progress reply and whether a stream buffer exists.
func (a *StreamAssembler) Live() (string, bool) {
	if a.buf == nil {
		return "", false
	}
	return a.buf.Text, true
}

// Composing reports whether the assistant is preparing a reply.
func (a *StreamAssembler) Composing() bool {
	return a.composing
}

// WaitingInitial reports whether the greeting after the handshake is outstanding.
func (a *StreamAssembler) WaitingInitial() bool {
	return a.waitingInitial
}

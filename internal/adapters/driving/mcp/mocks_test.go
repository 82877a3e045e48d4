package mcp

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

var _ driving.SessionService = (*mockSessionService)(nil)

// mockSessionService is a mock implementation of driving.SessionService.
// Ask publishes the question and, when reply is set, an assistant answer.
type mockSessionService struct {
	mu       sync.Mutex
	snap     domain.SessionSnapshot
	subs     []chan domain.SessionEvent
	reply    *domain.Message
	askErr   error
	submit   error
	uploaded *domain.Upload
}

func (m *mockSessionService) Start(_ context.Context) error { return nil }

func (m *mockSessionService) SetIdentity(_ context.Context, _ string) error { return nil }

func (m *mockSessionService) Submit(_ context.Context, upload domain.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submit != nil {
		return m.submit
	}
	m.uploaded = &upload
	m.snap.State = domain.StatePollingPipeline
	return nil
}

func (m *mockSessionService) Resume(_ context.Context) error { return nil }

func (m *mockSessionService) Proceed(_ context.Context) error { return nil }

func (m *mockSessionService) Ask(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.askErr != nil {
		return m.askErr
	}

	question := domain.NewUserMessage(text, time.Now())
	m.snap.Messages = append(m.snap.Messages, question)
	m.publishLocked(domain.SessionEvent{Kind: domain.EventCommitted, Message: &question})

	if m.reply != nil {
		reply := *m.reply
		m.snap.Messages = append(m.snap.Messages, reply)
		m.publishLocked(domain.SessionEvent{Kind: domain.EventCommitted, Message: &reply})
	}
	return nil
}

func (m *mockSessionService) Reconnect(_ context.Context) error { return nil }

func (m *mockSessionService) Restart(_ context.Context) error { return nil }

func (m *mockSessionService) StartOver(_ context.Context) error { return nil }

func (m *mockSessionService) Snapshot() domain.SessionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *mockSessionService) Subscribe() (<-chan domain.SessionEvent, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan domain.SessionEvent, 16)
	m.subs = append(m.subs, ch)
	return ch, func() {}
}

// Publish sends ev to every subscriber.
func (m *mockSessionService) Publish(ev domain.SessionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishLocked(ev)
}

func (m *mockSessionService) publishLocked(ev domain.SessionEvent) {
	ev.Snapshot = m.snap
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (m *mockSessionService) Close() error { return nil }

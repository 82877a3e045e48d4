package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// ConnEventKind identifies a connection lifecycle event.
type ConnEventKind int

const (
	// ConnEventOpen means the connection is open.
	ConnEventOpen ConnEventKind = iota

	// ConnEventDialFailed means the connection could not be opened.
	ConnEventDialFailed

	// ConnEventFrame carries one parsed inbound frame.
	ConnEventFrame

	// ConnEventMalformed means an inbound payload was discarded.
	ConnEventMalformed

	// ConnEventClosed means the connection closed without being asked to.
	ConnEventClosed

	// ConnEventNotice means the connection stayed closed past the notice delay.
	ConnEventNotice
)

// String returns the event kind name.
func (k ConnEventKind) String() string {
	switch k {
	case ConnEventOpen:
		return "open"
	case ConnEventDialFailed:
		return "dial-failed"
	case ConnEventFrame:
		return "frame"
	case ConnEventMalformed:
		return "malformed"
	case ConnEventClosed:
		return "closed"
	case ConnEventNotice:
		return "notice"
	default:
		return "unknown"
	}
}

// ConnEvent is one item of the connection manager's event stream.
type ConnEvent struct {
	Kind ConnEventKind

	// Instance identifies the connection the event belongs to.
	Instance uint64

	// Frame is set for ConnEventFrame.
	Frame domain.Frame

	// HandshakeSent is set on ConnEventOpen when the initial frame went out.
	HandshakeSent bool

	// Err is set for ConnEventDialFailed, ConnEventMalformed and ConnEventClosed.
	Err error
}

// connInstance is one attempt to hold a connection open.
type connInstance struct {
	id            uint64
	conn          driven.Conn
	stop          chan struct{}
	handshakeSent bool
}

// ConnectionManager owns one persistent connection at a time and exposes
// its lifecycle as a single ordered event stream.
type ConnectionManager struct {
	dialer      driven.Dialer
	noticeDelay time.Duration
	events      chan ConnEvent
	done        chan struct{}

	mu       sync.Mutex
	state    domain.ConnectionState
	current  *connInstance
	nextID   uint64
	timer    *time.Timer
	disposed bool
	wg       sync.WaitGroup
}

// eventBuffer is the capacity of the event stream.
const eventBuffer = 256

// NewConnectionManager creates a closed connection manager.
func NewConnectionManager(dialer driven.Dialer, noticeDelay time.Duration) *ConnectionManager {
	if noticeDelay <= 0 {
		noticeDelay = domain.DefaultReconnectNoticeDelay
	}
	return &ConnectionManager{
		dialer:      dialer,
		noticeDelay: noticeDelay,
		events:      make(chan ConnEvent, eventBuffer),
		done:        make(chan struct{}),
		state:       domain.ConnClosed,
	}
}

// Events returns the event stream. It is closed by Dispose.
func (m *ConnectionManager) Events() <-chan ConnEvent {
	return m.events
}

// State returns the connection state.
func (m *ConnectionManager) State() domain.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Open starts a new connection instance and returns its id.
// Any previous instance is closed first. When handshake is non-nil it is
// sent once the connection opens, at most once for this instance.
func (m *ConnectionManager) Open(ctx context.Context, handshake *domain.Frame) (uint64, error) {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return 0, domain.ErrSessionClosed
	}
	old := m.detachLocked()
	m.stopTimerLocked()

	m.nextID++
	inst := &connInstance{id: m.nextID, stop: make(chan struct{})}
	m.current = inst
	m.state = domain.ConnConnecting
	m.wg.Add(1)
	m.mu.Unlock()

	closeInstance(old)

	go m.dial(ctx, inst, handshake)
	return inst.id, nil
}

// Send writes one frame on the open connection.
func (m *ConnectionManager) Send(f domain.Frame) error {
	m.mu.Lock()
	if m.state != domain.ConnOpen || m.current == nil || m.current.conn == nil {
		m.mu.Unlock()
		return domain.ErrNotConnected
	}
	conn := m.current.conn
	m.mu.Unlock()

	data, err := f.Encode()
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := conn.WriteMessage(data); err != nil {
		return fmt.Errorf("send %s frame: %w", f.Type, err)
	}
	return nil
}

// Close closes the current connection on request. No close event or notice follows.
func (m *ConnectionManager) Close() {
	m.mu.Lock()
	old := m.detachLocked()
	m.stopTimerLocked()
	m.state = domain.ConnClosed
	m.mu.Unlock()

	closeInstance(old)
}

// Dispose closes the connection, cancels the notice timer and waits for
// every goroutine to exit. No events are delivered afterwards.
func (m *ConnectionManager) Dispose() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.disposed = true
	old := m.detachLocked()
	m.stopTimerLocked()
	m.state = domain.ConnClosed
	close(m.done)
	m.mu.Unlock()

	closeInstance(old)
	m.wg.Wait()
	close(m.events)
}

// detachLocked forgets the current instance and returns it (caller must hold lock).
func (m *ConnectionManager) detachLocked() *connInstance {
	inst := m.current
	m.current = nil
	if inst != nil {
		close(inst.stop)
	}
	return inst
}

// stopTimerLocked cancels a pending notice (caller must hold lock).
func (m *ConnectionManager) stopTimerLocked() {
	if m.timer != nil && m.timer.Stop() {
		m.wg.Done()
	}
	m.timer = nil
}

func closeInstance(inst *connInstance) {
	if inst != nil && inst.conn != nil {
		if err := inst.conn.Close(); err != nil {
			logger.Debug("closing connection %d: %v", inst.id, err)
		}
	}
}

func (m *ConnectionManager) dial(ctx context.Context, inst *connInstance, handshake *domain.Frame) {
	defer m.wg.Done()

	conn, err := m.dialer.Dial(ctx)

	m.mu.Lock()
	if m.current != inst {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		m.current = nil
		m.state = domain.ConnClosed
		m.mu.Unlock()
		logger.Warn("connection %d failed to open: %v", inst.id, err)
		m.emit(inst, ConnEvent{Kind: ConnEventDialFailed, Instance: inst.id, Err: err})
		return
	}
	inst.conn = conn
	m.state = domain.ConnOpen

	if handshake != nil && !inst.handshakeSent {
		data, encErr := handshake.Encode()
		if encErr == nil {
			encErr = conn.WriteMessage(data)
		}
		if encErr != nil {
			logger.Warn("sending handshake on connection %d: %v", inst.id, encErr)
		} else {
			inst.handshakeSent = true
		}
	}
	sent := inst.handshakeSent
	m.wg.Add(1)
	m.mu.Unlock()

	logger.Debug("connection %d open (handshake sent: %t)", inst.id, sent)
	m.emit(inst, ConnEvent{Kind: ConnEventOpen, Instance: inst.id, HandshakeSent: sent})

	go m.read(inst)
}

func (m *ConnectionManager) read(inst *connInstance) {
	defer m.wg.Done()

	for {
		data, err := inst.conn.ReadMessage()
		if err != nil {
			m.handleClose(inst, err)
			return
		}

		f, err := domain.ParseFrame(data)
		if err != nil {
			logger.Debug("discarding frame on connection %d: %v", inst.id, err)
			m.emit(inst, ConnEvent{Kind: ConnEventMalformed, Instance: inst.id, Err: err})
			continue
		}
		if !m.emit(inst, ConnEvent{Kind: ConnEventFrame, Instance: inst.id, Frame: f}) {
			return
		}
	}
}

// handleClose moves an unexpectedly closed instance to reconnect-pending.
// Repeated closes while pending share one notice timer.
func (m *ConnectionManager) handleClose(inst *connInstance, cause error) {
	m.mu.Lock()
	if m.current != inst || m.disposed {
		m.mu.Unlock()
		return
	}
	if m.state == domain.ConnReconnectPending {
		m.mu.Unlock()
		return
	}
	m.state = domain.ConnReconnectPending
	if m.timer == nil {
		m.wg.Add(1)
		m.timer = time.AfterFunc(m.noticeDelay, func() { m.fireNotice(inst) })
	}
	m.mu.Unlock()

	logger.Info("connection %d closed: %v", inst.id, cause)
	m.emit(inst, ConnEvent{Kind: ConnEventClosed, Instance: inst.id, Err: cause})
}

func (m *ConnectionManager) fireNotice(inst *connInstance) {
	defer m.wg.Done()

	m.mu.Lock()
	m.timer = nil
	if m.disposed || m.current != inst || m.state != domain.ConnReconnectPending {
		m.mu.Unlock()
		return
	}
	m.state = domain.ConnClosed
	m.mu.Unlock()

	m.emit(inst, ConnEvent{Kind: ConnEventNotice, Instance: inst.id})
}

// emit delivers ev unless the instance was replaced or the manager disposed.
func (m *ConnectionManager) emit(inst *connInstance, ev ConnEvent) bool {
	select {
	case <-inst.stop:
		return false
	case <-m.done:
		return false
	default:
	}

	select {
	case m.events <- ev:
		return true
	case <-inst.stop:
		return false
	case <-m.done:
		return false
	}
}

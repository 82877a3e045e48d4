package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// --- Mock implementations shared by the session tests ---

// mockKV implements driven.KeyValueStore in memory.
type mockKV struct {
	mu     sync.Mutex
	values map[string]string
	sets   int
	getErr error
	setErr error
}

func newMockKV() *mockKV {
	return &mockKV{values: make(map[string]string)}
}

func (m *mockKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mockKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.values[key] = value
	return nil
}

func (m *mockKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *mockKV) Close() error { return nil }

func (m *mockKV) value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *mockKV) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

// mockAPI implements driven.IngestionAPI with scripted status reports.
type mockAPI struct {
	mu sync.Mutex

	prior    *domain.PriorSessions
	priorErr error

	ticket    *domain.SubmitTicket
	submitErr error
	uploadErr error

	// statuses are returned in order; the last one repeats.
	statuses  []string
	handle    string
	pollErrs  int
	pollErr   error
	pollCalls int

	submitCalls int
	uploads     []string
}

func newMockAPI(statuses ...string) *mockAPI {
	return &mockAPI{
		ticket:   &domain.SubmitTicket{SessionID: "sess-1", UploadTarget: "/upload/sess-1"},
		statuses: statuses,
	}
}

func (m *mockAPI) CheckPriorSession(_ context.Context, _ string) (*domain.PriorSessions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.priorErr != nil {
		return nil, m.priorErr
	}
	if m.prior == nil {
		return &domain.PriorSessions{}, nil
	}
	return m.prior, nil
}

func (m *mockAPI) Submit(_ context.Context, _, _ string) (*domain.SubmitTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitCalls++
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return m.ticket, nil
}

func (m *mockAPI) Upload(_ context.Context, target string, _ []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return m.uploadErr
	}
	m.uploads = append(m.uploads, target)
	return nil
}

func (m *mockAPI) PollStatus(_ context.Context, _ string) (*domain.StatusReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollCalls++
	if m.pollErr != nil && (m.pollErrs < 0 || m.pollCalls <= m.pollErrs) {
		return nil, m.pollErr
	}
	if len(m.statuses) == 0 {
		return nil, errors.New("no status scripted")
	}
	status := m.statuses[0]
	if len(m.statuses) > 1 {
		m.statuses = m.statuses[1:]
	}
	report := &domain.StatusReport{Stage: status}
	if status == string(domain.StageReady) {
		report.ResultHandle = m.handle
	}
	return report, nil
}

func (m *mockAPI) calls() (submits, polls int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitCalls, m.pollCalls
}

// mockConn implements driven.Conn over channels.
type mockConn struct {
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once

	mu      sync.Mutex
	written [][]byte
	sendErr error
}

func newMockConn() *mockConn {
	return &mockConn{
		inbound: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (c *mockConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *mockConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

func (c *mockConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// push delivers one frame to the reader.
func (c *mockConn) push(f domain.Frame) {
	data, _ := f.Encode()
	c.inbound <- data
}

// frames decodes every frame written so far.
func (c *mockConn) frames() []domain.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Frame, 0, len(c.written))
	for _, data := range c.written {
		f, err := domain.ParseFrame(data)
		if err == nil {
			out = append(out, f)
		}
	}
	return out
}

// mockDialer implements driven.Dialer and hands out a fresh mockConn per dial.
type mockDialer struct {
	mu    sync.Mutex
	conns []*mockConn
	err   error
	dials int
}

func (d *mockDialer) Dial(_ context.Context) (driven.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	c := newMockConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *mockDialer) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *mockDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// last returns the most recently dialled connection, or nil.
func (d *mockDialer) last() *mockConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// fastSettings returns settings with short delays for tests.
func fastSettings() domain.Settings {
	s := domain.DefaultSettings()
	s.PollInterval = 5 * time.Millisecond
	s.MaxPollFailures = 3
	s.ReconnectNoticeDelay = 30 * time.Millisecond
	return s
}

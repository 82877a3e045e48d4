package simulator

import (
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driven/backend/rest"
	"github.com/custodia-labs/docchat/internal/adapters/driven/transport/ws"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/simulator/extract"
)

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestSimulator(t *testing.T) (*Server, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return New(Config{StageDelay: time.Second, Now: clk.Now}), clk
}

func startSimulator(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(5 * time.Second):
			t.Error("simulator did not stop")
		}
	})

	return "http://" + ln.Addr().String()
}

func TestRecord_Stage(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	step := time.Second

	readable := extract.Result{Title: "a", Text: "Cats sleep most of the day."}
	uploaded := func(res extract.Result, err error) record {
		return record{Filename: "a.txt", Size: 10, UploadedAt: at, Extracted: res, ExtractErr: err}
	}

	tests := []struct {
		name     string
		record   record
		elapsed  time.Duration
		expected domain.PipelineStage
	}{
		{"not uploaded", record{Filename: "a.txt"}, 0, domain.StageSubmitted},
		{"just uploaded", uploaded(readable, nil), 0, domain.StageContentFetched},
		{"normalized", uploaded(readable, nil), step, domain.StageContentNormalized},
		{"enriching", uploaded(readable, nil), 2 * step, domain.StageEnrichmentRunning},
		{"ready", uploaded(readable, nil), 3 * step, domain.StageReady},
		{"unreadable fails", uploaded(extract.Result{}, extract.ErrUnreadable), step, domain.StageNormalizationFailed},
		{"empty text fails", uploaded(extract.Result{Title: "a"}, nil), step, domain.StageNormalizationFailed},
		{"too short", uploaded(extract.Result{Title: "a", Text: "Cats."}, nil), 2 * step, domain.StageEnrichmentInsufficient},
		{"too short still normalizes", uploaded(extract.Result{Title: "a", Text: "Cats."}, nil), step, domain.StageContentNormalized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.record.stage(at.Add(tt.elapsed), step))
		})
	}

	t.Run("zero step is ready at once", func(t *testing.T) {
		r := uploaded(readable, nil)
		assert.Equal(t, domain.StageReady, r.stage(at, 0))
	})
}

func TestRecord_Summary(t *testing.T) {
	r := record{Filename: "notes.txt"}
	assert.Equal(t, "A document named notes.txt.", r.summary())

	r.Extracted = extract.Result{Title: "notes", Text: "Cats\n\nsleep   a lot."}
	assert.Equal(t, "notes: Cats sleep a lot.", r.summary())
}

func TestPreviewOf(t *testing.T) {
	assert.Equal(t, "hello world", previewOf("  hello\n\tworld "))
	assert.Empty(t, previewOf(""))

	long := previewOf(strings.Repeat("a", previewLen+10))
	assert.True(t, strings.HasSuffix(long, "..."))
	assert.Len(t, long, previewLen+3)
}

func TestChat_Answer(t *testing.T) {
	ch := &chat{
		file:  "pets.txt",
		brief: "pets: Cats and dogs.",
		chunks: []extract.Chunk{
			{Position: 0, Text: "Cats sleep most of the day."},
			{Position: 1, Text: "Dogs need a daily walk outside."},
		},
	}

	assert.Equal(t, "Here is an overview of pets.txt. pets: Cats and dogs.", ch.answer("What is this about?"))
	assert.Contains(t, ch.answer("How often do dogs walk?"), "Dogs need a daily walk")
	assert.Contains(t, ch.answer("When do cats sleep?"), "Cats sleep most")

	empty := &chat{file: "blank.txt"}
	assert.Equal(t, "I couldn't find anything in blank.txt about that.", empty.answer("anything?"))
}

func TestServer_Errors(t *testing.T) {
	s, _ := newTestSimulator(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"check without email", "GET", "/api/check-email", "", 400},
		{"extract without fields", "POST", "/api/extract", `{"filename":""}`, 400},
		{"extract bad body", "POST", "/api/extract", `not json`, 400},
		{"upload unknown", "PUT", "/upload/nope", "x", 404},
		{"status unknown", "GET", "/api/status/nope", "", 404},
		{"ws without upgrade", "GET", "/ws", "", 426},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := s.app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

// readReply reads frames until end or initial_response and returns the streamed text.
func readReply(t *testing.T, conn driven.Conn, until domain.FrameType) (string, []domain.FrameType) {
	t.Helper()
	var text strings.Builder
	var types []domain.FrameType
	for {
		data, err := conn.ReadMessage()
		require.NoError(t, err)
		f, err := domain.ParseFrame(data)
		require.NoError(t, err)
		types = append(types, f.Type)
		if f.Type == domain.FrameFragment {
			text.WriteString(f.Token)
		}
		if f.Type == until || f.Type == domain.FrameServerError {
			return text.String(), types
		}
	}
}

func send(t *testing.T, conn driven.Conn, f domain.Frame) {
	t.Helper()
	data, err := f.Encode()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(data))
}

func TestServer_EndToEnd(t *testing.T) {
	s, clk := newTestSimulator(t)
	base := startSimulator(t, s)
	ctx := context.Background()
	const email = "ada@example.com"

	client, err := rest.NewClient(rest.Config{BaseURL: base, PollRate: 100})
	require.NoError(t, err)

	prior, err := client.CheckPriorSession(ctx, email)
	require.NoError(t, err)
	assert.False(t, prior.HasPrior)

	ticket, err := client.Submit(ctx, "notes.txt", email)
	require.NoError(t, err)
	require.NotEmpty(t, ticket.SessionID)

	report, err := client.PollStatus(ctx, ticket.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "submitted", report.Stage)

	require.NoError(t, client.Upload(ctx, ticket.UploadTarget, []byte("Cats sleep most of the day."), "text/plain"))

	report, err = client.PollStatus(ctx, ticket.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "content-fetched", report.Stage)
	assert.Empty(t, report.ResultHandle)

	clk.Advance(3 * time.Second)
	report, err = client.PollStatus(ctx, ticket.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "ready", report.Stage)
	require.NotEmpty(t, report.ResultHandle)

	dialer, err := ws.NewDialer(base)
	require.NoError(t, err)
	conn, err := dialer.Dial(ctx)
	require.NoError(t, err)
	defer conn.Close()

	send(t, conn, domain.NewQuestionFrame("too early", report.ResultHandle, email))
	_, types := readReply(t, conn, domain.FrameEnd)
	assert.Equal(t, []domain.FrameType{domain.FrameServerError}, types)

	send(t, conn, domain.NewInitialFrame(report.ResultHandle, email))
	greeting, types := readReply(t, conn, domain.FrameInitialResponse)
	assert.Equal(t, domain.FrameTyping, types[0])
	assert.Contains(t, greeting, "notes.txt")

	send(t, conn, domain.NewQuestionFrame("What is it about?", report.ResultHandle, email))
	answer, types := readReply(t, conn, domain.FrameEnd)
	assert.Equal(t, domain.FrameTyping, types[0])
	assert.Contains(t, answer, "Cats sleep most of the day.")

	send(t, conn, domain.NewQuestionFrame("please fail", report.ResultHandle, email))
	_, types = readReply(t, conn, domain.FrameEnd)
	assert.Equal(t, []domain.FrameType{domain.FrameServerError}, types)

	prior, err = client.CheckPriorSession(ctx, email)
	require.NoError(t, err)
	require.True(t, prior.HasPrior)
	latest := prior.Latest()
	require.NotNil(t, latest)
	assert.Equal(t, ticket.SessionID, latest.SessionID)
	assert.Equal(t, "notes.txt", latest.Filename)
	require.Len(t, latest.Conversation, 4)
	assert.Equal(t, domain.SpeakerAssistant, latest.Conversation[0].Speaker)
	assert.Equal(t, "What is it about?", latest.Conversation[1].Text)
	assert.Equal(t, domain.SpeakerUser, latest.Conversation[1].Speaker)
}

func TestServer_InitialUnknownHandle(t *testing.T) {
	s, _ := newTestSimulator(t)
	base := startSimulator(t, s)

	dialer, err := ws.NewDialer(base)
	require.NoError(t, err)
	conn, err := dialer.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	send(t, conn, domain.NewInitialFrame("result-missing", "ada@example.com"))
	data, err := conn.ReadMessage()
	require.NoError(t, err)
	f, err := domain.ParseFrame(data)
	require.NoError(t, err)
	assert.Equal(t, domain.FrameServerError, f.Type)
	assert.Equal(t, msgNotFound, f.Message)

	require.NoError(t, conn.WriteMessage([]byte("garbage")))
	data, err = conn.ReadMessage()
	require.NoError(t, err)
	f, err = domain.ParseFrame(data)
	require.NoError(t, err)
	assert.Equal(t, msgMalformed, f.Message)
}

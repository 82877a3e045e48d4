package simulator

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/logger"
	"github.com/custodia-labs/docchat/internal/simulator/extract"
)

// Canned server error messages.
const (
	msgMalformed   = "I couldn't understand that message."
	msgNotFound    = "Document not found. Please upload it again."
	msgNoHandshake = "Start the conversation before asking questions."
	msgAnswerFail  = "The assistant could not answer that question."
)

// chat is one open /ws connection.
type chat struct {
	server *Server
	conn   *websocket.Conn
	id     string
	file   string
	brief  string
	chunks []extract.Chunk
}

func (s *Server) serveChat(c *websocket.Conn) {
	ch := &chat{server: s, conn: c}
	defer c.Close()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("simulator: read: %v", err)
			}
			return
		}

		f, err := domain.ParseFrame(data)
		if err != nil {
			if !ch.send(domain.Frame{Type: domain.FrameServerError, Message: msgMalformed}) {
				return
			}
			continue
		}

		if !ch.handle(f) {
			return
		}
	}
}

// handle answers one inbound frame. It returns false once the connection is unusable.
func (ch *chat) handle(f domain.Frame) bool {
	switch f.Type {
	case domain.FrameInitial:
		r, ok := ch.server.store.byHandle(f.ResultHandle)
		if !ok || r.stage(ch.server.cfg.Now(), ch.server.cfg.StageDelay) != domain.StageReady {
			return ch.send(domain.Frame{Type: domain.FrameServerError, Message: msgNotFound})
		}
		ch.id, ch.file, ch.brief, ch.chunks = r.ID, r.Filename, r.summary(), r.Chunks

		greeting := fmt.Sprintf("Hi! I've read %s. What would you like to know about it?", ch.file)
		if !ch.stream(greeting) {
			return false
		}
		ch.record("assistant", greeting)
		return ch.send(domain.Frame{Type: domain.FrameInitialResponse})

	case domain.FrameQuestion:
		if ch.id == "" {
			return ch.send(domain.Frame{Type: domain.FrameServerError, Message: msgNoHandshake})
		}
		question := f.Text
		if question == "" {
			question = f.Question
		}
		ch.record("user", question)

		if strings.Contains(strings.ToLower(question), "fail") {
			return ch.send(domain.Frame{Type: domain.FrameServerError, Message: msgAnswerFail})
		}

		answer := ch.answer(question)
		if !ch.stream(answer) {
			return false
		}
		ch.record("assistant", answer)
		return true

	default:
		return true
	}
}

// answer builds a deterministic reply to question from the closest passage.
func (ch *chat) answer(question string) string {
	q := strings.ToLower(question)
	if strings.Contains(q, "summar") || strings.Contains(q, "about") {
		return fmt.Sprintf("Here is an overview of %s. %s", ch.file, ch.brief)
	}

	best, ok := extract.Best(ch.chunks, question)
	if !ok {
		return fmt.Sprintf("I couldn't find anything in %s about that.", ch.file)
	}
	return fmt.Sprintf("The most relevant passage in %s reads: %s", ch.file, strings.Join(strings.Fields(best.Text), " "))
}

// stream sends text as typing, one fragment per word, then end.
func (ch *chat) stream(text string) bool {
	if !ch.send(domain.Frame{Type: domain.FrameTyping}) {
		return false
	}
	for i, word := range strings.Fields(text) {
		token := word
		if i > 0 {
			token = " " + word
		}
		if d := ch.server.cfg.TokenDelay; d > 0 {
			time.Sleep(d)
		}
		if !ch.send(domain.Frame{Type: domain.FrameFragment, Token: token}) {
			return false
		}
	}
	return ch.send(domain.Frame{Type: domain.FrameEnd})
}

func (ch *chat) send(f domain.Frame) bool {
	data, err := f.Encode()
	if err != nil {
		logger.Warn("simulator: encode frame: %v", err)
		return false
	}
	if err := ch.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logger.Debug("simulator: write: %v", err)
		return false
	}
	return true
}

// record appends a turn to the session's stored conversation.
func (ch *chat) record(role, content string) {
	now := ch.server.cfg.Now().UTC().Format(time.RFC3339Nano)
	ch.server.store.update(ch.id, func(r *record) {
		r.Turns = append(r.Turns, turn{Role: role, Content: content, Timestamp: now})
	})
}

package mcp

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// StatusInput is the input schema for the session_status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the session_status tool.
type StatusOutput struct {
	State        string `json:"state"`
	Identity     string `json:"identity,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	Stage        string `json:"stage,omitempty"`
	Progress     int    `json:"progress"`
	Connection   string `json:"connection"`
	MessageCount int    `json:"message_count"`
	Failure      string `json:"failure,omitempty"`
}

// AskInput is the input schema for the ask_document tool.
type AskInput struct {
	Question       string `json:"question" jsonschema:"the question to ask about the document"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" jsonschema:"how long to wait for the answer (default 120)"`
}

// AskOutput is the output schema for the ask_document tool.
type AskOutput struct {
	Answer  string `json:"answer"`
	IsError bool   `json:"is_error,omitempty"`
}

// UploadInput is the input schema for the upload_document tool.
type UploadInput struct {
	Path string `json:"path" jsonschema:"local path of the document to upload"`
}

// UploadOutput is the output schema for the upload_document tool.
type UploadOutput struct {
	State    string `json:"state"`
	Filename string `json:"filename"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "session_status",
		Description: "Report the document session state, ingestion progress and connection",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_document",
		Description: "Ask a question about the uploaded document and wait for the answer",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "upload_document",
		Description: "Upload a local document and start ingestion",
	}, s.handleUpload)
}

// handleStatus handles the session_status tool invocation.
func (s *Server) handleStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return nil, statusOf(s.ports.Session.Snapshot()), nil
}

func statusOf(snap domain.SessionSnapshot) StatusOutput {
	out := StatusOutput{
		State:        string(snap.State),
		Identity:     snap.Identity,
		Progress:     snap.Progress,
		Connection:   string(snap.Connection),
		MessageCount: len(snap.Messages),
	}
	if snap.Session != nil {
		out.SessionID = snap.Session.ID
		out.Stage = string(snap.Session.Stage)
	}
	if snap.Failure != nil {
		out.Failure = snap.Failure.Kind.UserMessage()
	}
	return out
}

// handleAsk handles the ask_document tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, AskOutput{}, ErrEmptyQuestion
	}

	timeout := s.answerTimeout
	if input.TimeoutSeconds > 0 {
		timeout = time.Duration(input.TimeoutSeconds) * time.Second
	}

	answer, err := s.ask(ctx, question, timeout)
	if err != nil {
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{Answer: answer.Text, IsError: answer.IsError}, nil
}

// ask sends question and waits for the next assistant message after it.
func (s *Server) ask(ctx context.Context, question string, timeout time.Duration) (domain.Message, error) {
	events, cancel := s.ports.Session.Subscribe()
	defer cancel()

	if err := s.ports.Session.Ask(ctx, question); err != nil {
		return domain.Message{}, fmt.Errorf("asking question: %w", err)
	}

	ctx, cancelWait := context.WithTimeout(ctx, timeout)
	defer cancelWait()

	asked := false
	for {
		select {
		case <-ctx.Done():
			return domain.Message{}, fmt.Errorf("waiting for answer: %w", ctx.Err())

		case ev, ok := <-events:
			if !ok {
				return domain.Message{}, domain.ErrSessionClosed
			}

			if !asked {
				asked = ev.Kind == domain.EventCommitted && ev.Message != nil &&
					!ev.Message.IsAssistant() && ev.Message.Text == question
				continue
			}

			switch ev.Kind {
			case domain.EventCommitted, domain.EventComposing:
				// A composing event only carries a message when the reply
				// repeated an earlier answer and was folded into it.
				if ev.Message != nil && ev.Message.IsAssistant() {
					return *ev.Message, nil
				}

			case domain.EventConnection:
				if c := ev.Snapshot.Connection; c == domain.ConnReconnectPending || c == domain.ConnClosed {
					return domain.Message{}, fmt.Errorf("waiting for answer: %w", domain.ErrNotConnected)
				}
			}
		}
	}
}

// handleUpload handles the upload_document tool invocation.
func (s *Server) handleUpload(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UploadInput,
) (*mcp.CallToolResult, UploadOutput, error) {
	content, err := os.ReadFile(input.Path)
	if err != nil {
		return nil, UploadOutput{}, fmt.Errorf("reading document: %w", err)
	}

	upload := domain.NewUpload(input.Path, content)
	if err := s.ports.Session.Submit(ctx, upload); err != nil {
		return nil, UploadOutput{}, fmt.Errorf("submitting document: %w", err)
	}

	return nil, UploadOutput{
		State:    string(s.ports.Session.Snapshot().State),
		Filename: upload.Filename,
	}, nil
}

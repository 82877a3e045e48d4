package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for docchat resources.
	uriScheme = "docchat://"

	conversationURI = uriScheme + "conversation"
	summaryURI      = uriScheme + "summary"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         conversationURI,
		Name:        "conversation",
		Description: "Messages exchanged about the current document",
		MIMEType:    "application/json",
	}, s.handleConversationResource)

	s.server.AddResource(&mcp.Resource{
		URI:         summaryURI,
		Name:        "summary",
		Description: "Summary of the previous session offered for resumption",
		MIMEType:    "text/plain",
	}, s.handleSummaryResource)
}

// handleConversationResource returns the committed conversation.
func (s *Server) handleConversationResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type messageInfo struct {
		Speaker string `json:"speaker"`
		Text    string `json:"text"`
		IsError bool   `json:"is_error,omitempty"`
		Time    string `json:"time"`
	}

	msgs := s.ports.Session.Snapshot().Messages
	infos := make([]messageInfo, len(msgs))
	for i := range msgs {
		infos[i] = messageInfo{
			Speaker: string(msgs[i].Speaker),
			Text:    msgs[i].Text,
			IsError: msgs[i].IsError,
			Time:    msgs[i].Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling conversation: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleSummaryResource returns the summary of the offered prior session.
func (s *Server) handleSummaryResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	prior := s.ports.Session.Snapshot().Prior
	if prior == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("%s (%s)\n\n%s", prior.Filename, prior.CreatedAt, prior.Summary),
		}},
	}, nil
}

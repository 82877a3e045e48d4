// Package mcp provides an MCP (Model Context Protocol) server adapter for docchat.
// It lets AI assistants check the document session and ask questions about it.
package mcp

import "errors"

// ErrMissingSessionService is returned when the session service is not provided.
var ErrMissingSessionService = errors.New("mcp: session service is required")

// ErrEmptyQuestion is returned when ask_document receives no question.
var ErrEmptyQuestion = errors.New("mcp: question is required")

// Package mcp provides an MCP (Model Context Protocol) server adapter for
// repochat. It lets AI assistants ask questions against a built repository
// session and browse the persisted sessions.
package mcp

import "errors"

// ErrMissingAskService is returned when the ask service is not provided.
var ErrMissingAskService = errors.New("mcp: ask service is required")

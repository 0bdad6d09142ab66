package mcp

import (
	"github.com/repochat/repochat-cli/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Ask answers questions against a ready session.
	Ask driving.AskService

	// Session lists and inspects persisted sessions.
	Session driving.SessionService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Ask == nil {
		return ErrMissingAskService
	}
	// Session is optional; the sessions resource degrades to an empty
	// listing without it.
	return nil
}

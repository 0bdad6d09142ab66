package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	SessionID string `json:"session_id" jsonschema:"id of a ready session, see the sessions resource"`
	Question  string `json:"question" jsonschema:"natural-language question about the repository"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string           `json:"answer"`
	Citations []CitationOutput `json:"citations"`
}

// CitationOutput points one answer back at a retrieved chunk's origin.
type CitationOutput struct {
	Origin  string `json:"origin"`
	Locator string `json:"locator"`
	Number  int    `json:"number,omitempty"`
	URL     string `json:"url,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Ask a question about a repository using a built session",
	}, s.handleAsk)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Ask.Ask(ctx, input.SessionID, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:    answer.Text,
		Citations: make([]CitationOutput, len(answer.Citations)),
	}
	for i, c := range answer.Citations {
		output.Citations[i] = CitationOutput{
			Origin:  string(c.Origin),
			Locator: c.Locator,
			Number:  c.Number,
			URL:     c.URL,
		}
	}

	return nil, output, nil
}

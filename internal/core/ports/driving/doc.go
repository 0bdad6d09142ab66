// Package driving provides interfaces for user-facing entry points
// (primary/inbound ports): the CLI, the chat REPL, and the MCP server.
package driving

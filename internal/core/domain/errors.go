package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidConfig indicates a rejected configuration combination.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSessionNotFound indicates no persisted session has the given id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionCorrupted indicates persisted session data is present but
	// unreadable or inconsistent. Callers fall back to rebuilding.
	ErrSessionCorrupted = errors.New("session corrupted")

	// ErrSessionNotReady indicates the session has not finished building.
	ErrSessionNotReady = errors.New("session not ready")

	// ErrCollection indicates the document collector failed. Fatal for
	// the build that triggered it.
	ErrCollection = errors.New("document collection failed")

	// ErrChunking indicates a document could not be chunked. The document
	// is skipped; the build continues.
	ErrChunking = errors.New("chunking failed")

	// ErrEmbedding indicates embedding attempts for a chunk were
	// exhausted. The chunk is excluded; the index remains usable.
	ErrEmbedding = errors.New("embedding failed")

	// ErrRateLimited indicates a provider limit was still exceeded after
	// all retries. The caller may pause and resume.
	ErrRateLimited = errors.New("rate limited")

	// ErrGenerationFailed indicates the chat call failed past retries.
	// Surfaced per query; memory is unaffected.
	ErrGenerationFailed = errors.New("answer generation failed")

	// ErrEmbeddingUnavailable indicates no embedding provider is
	// configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates no chat provider is configured.
	ErrLLMUnavailable = errors.New("chat service unavailable")

	// ErrDimensionMismatch indicates a vector does not match the index
	// dimension fixed at build time.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

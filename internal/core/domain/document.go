package domain

import "time"

// OriginType identifies where a document was collected from.
type OriginType string

// Available origin types.
const (
	// OriginFile is a source file from the repository tree.
	OriginFile OriginType = "file"

	// OriginIssue is an issue with its comment thread.
	OriginIssue OriginType = "issue"

	// OriginPullRequest is a pull request with its comment thread.
	OriginPullRequest OriginType = "pull_request"
)

// IsValid returns true if the origin type is recognised.
func (o OriginType) IsValid() bool {
	switch o {
	case OriginFile, OriginIssue, OriginPullRequest:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (o OriginType) String() string {
	return string(o)
}

// SourceDocument is a single unit of repository content as produced by the
// collector. It is immutable once collected.
type SourceDocument struct {
	// ID is the unique identifier for the document.
	ID string

	// Origin is the kind of content (file, issue, pull request).
	Origin OriginType

	// Locator identifies the document within the repository: a file path
	// for files, or the issue/PR number rendered as a string.
	Locator string

	// Number is the issue or pull request number. Zero for files.
	Number int

	// Label is a human-oriented tag such as the file's language or the
	// issue title.
	Label string

	// URL is the external browser URL. Empty for files.
	URL string

	// Text is the full raw text content.
	Text string

	// RetrievedAt is when the collector fetched this document.
	RetrievedAt time.Time
}

// ChunkStatus tracks a chunk's progress through the indexing pipeline.
type ChunkStatus string

// Chunk lifecycle states.
const (
	// ChunkPending means the chunk has no embedding yet.
	ChunkPending ChunkStatus = "pending"

	// ChunkIndexed means the chunk has an embedding and is searchable.
	ChunkIndexed ChunkStatus = "indexed"

	// ChunkError means embedding attempts were exhausted; the chunk is
	// excluded from the index.
	ChunkError ChunkStatus = "error"
)

// Chunk is a bounded text span cut from a SourceDocument. It is the unit of
// indexing and retrieval.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent SourceDocument.
	DocumentID string

	// Text is the chunk content. Always at most the configured chunk size.
	Text string

	// Start and End are byte offsets of this span within the parent text.
	Start int
	End   int

	// Embedding is the vector representation. Nil until indexed.
	Embedding []float32

	// Status is the indexing state of the chunk.
	Status ChunkStatus

	// Origin metadata copied from the parent document so retrieval results
	// can be cited without re-reading the parent.
	Origin  OriginType
	Locator string
	Number  int
	URL     string
}

// Embedded reports whether the chunk carries an embedding. Chunks without one
// are re-submittable to the embedding provider.
func (c *Chunk) Embedded() bool {
	return len(c.Embedding) > 0
}

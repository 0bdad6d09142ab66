package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
//
// Every call is routed through the resilience layer by the services that use
// this port; implementations only talk to their provider.
type EmbeddingService interface {
	// EmbedBatch generates embeddings for multiple texts. The result is
	// ordered 1:1 with the input and every vector has Dimensions()
	// elements.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size fixed by the model.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

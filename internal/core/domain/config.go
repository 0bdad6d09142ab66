package domain

import "fmt"

// Default configuration values.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultRetrieverK   = 5
	DefaultMemoryWindow = 10
)

// Config is the validated, immutable configuration record consumed by the
// core. Construct it with NewConfig; a Config obtained any other way may not
// satisfy the invariants the pipeline relies on.
type Config struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the number of characters consecutive chunks share.
	// Always strictly less than ChunkSize.
	ChunkOverlap int

	// RetrieverK is the number of chunks retrieved per query. At least 1.
	RetrieverK int

	// UseMemory enables conversational memory. When false the memory
	// window ignores appends and always yields an empty context.
	UseMemory bool

	// MemoryWindow is the maximum number of turns kept in memory.
	MemoryWindow int

	// Embedding selects the embedding provider and model.
	Embedding EmbeddingSettings

	// LLM selects the chat provider and model.
	LLM LLMSettings
}

// NewConfig builds a Config from the given values, applying defaults for
// zero-valued fields and rejecting invalid combinations.
func NewConfig(chunkSize, chunkOverlap, retrieverK int, useMemory bool, memoryWindow int) (Config, error) {
	cfg := Config{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		RetrieverK:   retrieverK,
		UseMemory:    useMemory,
		MemoryWindow: memoryWindow,
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.RetrieverK == 0 {
		cfg.RetrieverK = DefaultRetrieverK
	}
	if cfg.MemoryWindow == 0 {
		cfg.MemoryWindow = DefaultMemoryWindow
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size must be at least 1, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk_overlap must not be negative, got %d", ErrInvalidConfig, c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			ErrInvalidConfig, c.ChunkOverlap, c.ChunkSize)
	}
	if c.RetrieverK < 1 {
		return fmt.Errorf("%w: retriever_k must be at least 1, got %d", ErrInvalidConfig, c.RetrieverK)
	}
	if c.MemoryWindow < 1 {
		return fmt.Errorf("%w: memory_window must be at least 1, got %d", ErrInvalidConfig, c.MemoryWindow)
	}
	return nil
}

// AIProvider identifies an AI service provider for embeddings or chat.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"
)

// IsValid returns true if the provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderAnthropic, AIProviderOllama:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// APIKey authenticates cloud providers.
	APIKey string

	// BaseURL overrides the provider endpoint. Optional.
	BaseURL string
}

// IsConfigured returns true if a provider has been selected.
func (s EmbeddingSettings) IsConfigured() bool {
	return s.Provider != ""
}

// Validate checks the settings are usable.
func (s EmbeddingSettings) Validate() error {
	if !s.IsConfigured() {
		return nil
	}
	if !s.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, s.Provider)
	}
	if s.Provider.RequiresAPIKey() && s.APIKey == "" {
		return fmt.Errorf("%w: embedding provider %s requires an API key", ErrInvalidConfig, s.Provider)
	}
	return nil
}

// LLMSettings holds chat provider configuration.
type LLMSettings struct {
	// Provider is the chat service provider.
	Provider AIProvider

	// Model is the chat model name.
	Model string

	// APIKey authenticates cloud providers.
	APIKey string

	// BaseURL overrides the provider endpoint. Optional.
	BaseURL string

	// Temperature controls generation randomness.
	Temperature float64
}

// IsConfigured returns true if a provider has been selected.
func (s LLMSettings) IsConfigured() bool {
	return s.Provider != ""
}

// Validate checks the settings are usable.
func (s LLMSettings) Validate() error {
	if !s.IsConfigured() {
		return nil
	}
	if !s.Provider.IsValid() {
		return fmt.Errorf("%w: unknown chat provider %q", ErrInvalidConfig, s.Provider)
	}
	if s.Provider.RequiresAPIKey() && s.APIKey == "" {
		return fmt.Errorf("%w: chat provider %s requires an API key", ErrInvalidConfig, s.Provider)
	}
	return nil
}

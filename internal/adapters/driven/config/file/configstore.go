// Package file provides a TOML file-backed configuration store.
package file

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/repochat/repochat-cli/internal/core/domain"
	"github.com/repochat/repochat-cli/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// Configuration keys.
const (
	KeyChunkSize     = "chunking.size"
	KeyChunkOverlap  = "chunking.overlap"
	KeyRetrieverK    = "retriever.k"
	KeyMemoryEnabled = "memory.enabled"
	KeyMemoryWindow  = "memory.window"

	KeyEmbedProvider = "embedding.provider"
	KeyEmbedModel    = "embedding.model"
	KeyEmbedAPIKey   = "embedding.api_key"
	KeyEmbedBaseURL  = "embedding.base_url"

	KeyLLMProvider = "llm.provider"
	KeyLLMModel    = "llm.model"
	KeyLLMAPIKey   = "llm.api_key"
	KeyLLMBaseURL  = "llm.base_url"

	KeyGitHubToken = "github.token"
)

// ConfigStore is a file-based implementation of driven.ConfigStore using TOML.
// Configuration is stored in a TOML file within the repochat config directory.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]any
}

// NewConfigStore creates a new TOML-based config store.
// If configDir is empty, defaults to ~/.repochat/config.toml.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".repochat")
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		filePath: filepath.Join(configDir, "config.toml"),
		data:     make(map[string]any),
	}

	if err := s.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return s, nil
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	return val, ok
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	val, ok := s.Get(key)
	if !ok {
		return ""
	}

	str, ok := val.(string)
	if !ok {
		return ""
	}
	return str
}

// GetInt retrieves an integer configuration value.
func (s *ConfigStore) GetInt(key string) int {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}

	// TOML integers are parsed as int64
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) bool {
	val, ok := s.Get(key)
	if !ok {
		return false
	}

	b, ok := val.(bool)
	if !ok {
		return false
	}
	return b
}

// Set stores a configuration value and persists immediately.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return s.save()
}

// Save persists the current configuration to disk.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes configuration to the TOML file (caller must hold lock).
func (s *ConfigStore) save() error {
	data, err := toml.Marshal(s.data)
	if err != nil {
		return err
	}

	// Write with restricted permissions: API keys live here
	return os.WriteFile(s.filePath, data, 0600)
}

// Load reads configuration from the TOML file.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file yet - that's fine, start empty
			s.data = make(map[string]any)
			return nil
		}
		return err
	}

	var loaded map[string]any
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return err
	}

	if loaded == nil {
		loaded = make(map[string]any)
	}

	// Flatten nested maps into dot-notation keys for easier access
	s.data = flattenMap(loaded, "")
	return nil
}

// flattenMap converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			for k, v := range flattenMap(nested, fullKey) {
				result[k] = v
			}
		} else {
			result[fullKey] = value
		}
	}

	return result
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// BuildConfig assembles a domain.Config from the stored values, applying
// domain defaults for anything unset. Provider settings ride along so a
// session snapshot carries everything a rebuild needs.
func BuildConfig(store driven.ConfigStore) (domain.Config, error) {
	cfg, err := domain.NewConfig(
		store.GetInt(KeyChunkSize),
		store.GetInt(KeyChunkOverlap),
		store.GetInt(KeyRetrieverK),
		memoryEnabled(store),
		store.GetInt(KeyMemoryWindow),
	)
	if err != nil {
		return domain.Config{}, err
	}

	cfg.Embedding = EmbeddingSettings(store)
	cfg.LLM = LLMSettings(store)
	return cfg, nil
}

// memoryEnabled defaults to true when the key is absent.
func memoryEnabled(store driven.ConfigStore) bool {
	if _, ok := store.Get(KeyMemoryEnabled); !ok {
		return true
	}
	return store.GetBool(KeyMemoryEnabled)
}

// EmbeddingSettings reads the embedding provider configuration.
func EmbeddingSettings(store driven.ConfigStore) domain.EmbeddingSettings {
	return domain.EmbeddingSettings{
		Provider: domain.AIProvider(store.GetString(KeyEmbedProvider)),
		Model:    store.GetString(KeyEmbedModel),
		APIKey:   store.GetString(KeyEmbedAPIKey),
		BaseURL:  store.GetString(KeyEmbedBaseURL),
	}
}

// LLMSettings reads the chat provider configuration.
func LLMSettings(store driven.ConfigStore) domain.LLMSettings {
	return domain.LLMSettings{
		Provider: domain.AIProvider(store.GetString(KeyLLMProvider)),
		Model:    store.GetString(KeyLLMModel),
		APIKey:   store.GetString(KeyLLMAPIKey),
		BaseURL:  store.GetString(KeyLLMBaseURL),
	}
}

// GitHubToken reads the stored GitHub personal access token, falling back to
// the GITHUB_TOKEN environment variable.
func GitHubToken(store driven.ConfigStore) string {
	if token := store.GetString(KeyGitHubToken); token != "" {
		return token
	}
	return os.Getenv("GITHUB_TOKEN")
}

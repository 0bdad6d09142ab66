package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/repochat/repochat-cli/internal/core/domain"
)

func newTestStore(t *testing.T) (*ConfigStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	if err != nil {
		t.Fatalf("NewConfigStore() error: %v", err)
	}
	return store, dir
}

func TestConfigStoreSetGet(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.Set(KeyChunkSize, 500); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if got := store.GetInt(KeyChunkSize); got != 500 {
		t.Errorf("GetInt() = %d, want 500", got)
	}

	if err := store.Set(KeyGitHubToken, "ghp_test"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if got := store.GetString(KeyGitHubToken); got != "ghp_test" {
		t.Errorf("GetString() = %q", got)
	}

	if _, ok := store.Get("nonexistent"); ok {
		t.Error("Get() reported a missing key as present")
	}
}

func TestConfigStorePersistsAcrossInstances(t *testing.T) {
	store, dir := newTestStore(t)

	if err := store.Set(KeyLLMProvider, "anthropic"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := store.Set(KeyMemoryEnabled, false); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	reopened, err := NewConfigStore(dir)
	if err != nil {
		t.Fatalf("NewConfigStore() reopen error: %v", err)
	}
	if got := reopened.GetString(KeyLLMProvider); got != "anthropic" {
		t.Errorf("reopened GetString() = %q, want anthropic", got)
	}
	if reopened.GetBool(KeyMemoryEnabled) {
		t.Error("reopened GetBool() = true, want false")
	}
}

func TestConfigStoreLoadsNestedTOML(t *testing.T) {
	dir := t.TempDir()
	content := "[chunking]\nsize = 800\noverlap = 100\n\n[llm]\nprovider = \"openai\"\nmodel = \"gpt-4o-mini\"\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	store, err := NewConfigStore(dir)
	if err != nil {
		t.Fatalf("NewConfigStore() error: %v", err)
	}

	if got := store.GetInt(KeyChunkSize); got != 800 {
		t.Errorf("GetInt(%q) = %d, want 800", KeyChunkSize, got)
	}
	if got := store.GetString(KeyLLMModel); got != "gpt-4o-mini" {
		t.Errorf("GetString(%q) = %q", KeyLLMModel, got)
	}
}

func TestConfigStoreFilePermissions(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.Set(KeyLLMAPIKey, "sk-secret"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file mode = %o, want 0600", perm)
	}
}

func TestBuildConfig(t *testing.T) {
	t.Run("defaults when empty", func(t *testing.T) {
		store, _ := newTestStore(t)

		cfg, err := BuildConfig(store)
		if err != nil {
			t.Fatalf("BuildConfig() error: %v", err)
		}
		if cfg.ChunkSize != domain.DefaultChunkSize {
			t.Errorf("ChunkSize = %d, want default %d", cfg.ChunkSize, domain.DefaultChunkSize)
		}
		if !cfg.UseMemory {
			t.Error("UseMemory should default to true")
		}
	})

	t.Run("stored values win", func(t *testing.T) {
		store, _ := newTestStore(t)
		store.Set(KeyChunkSize, 600)
		store.Set(KeyChunkOverlap, 50)
		store.Set(KeyRetrieverK, 8)
		store.Set(KeyMemoryEnabled, false)
		store.Set(KeyEmbedProvider, "openai")
		store.Set(KeyEmbedAPIKey, "sk-test")

		cfg, err := BuildConfig(store)
		if err != nil {
			t.Fatalf("BuildConfig() error: %v", err)
		}
		if cfg.ChunkSize != 600 || cfg.ChunkOverlap != 50 || cfg.RetrieverK != 8 {
			t.Errorf("config = %+v", cfg)
		}
		if cfg.UseMemory {
			t.Error("UseMemory = true, want false")
		}
		if cfg.Embedding.Provider != domain.AIProviderOpenAI || cfg.Embedding.APIKey != "sk-test" {
			t.Errorf("embedding settings = %+v", cfg.Embedding)
		}
	})

	t.Run("invalid overlap rejected", func(t *testing.T) {
		store, _ := newTestStore(t)
		store.Set(KeyChunkSize, 100)
		store.Set(KeyChunkOverlap, 100)

		if _, err := BuildConfig(store); err == nil {
			t.Fatal("expected error when overlap equals chunk size")
		}
	})
}

func TestGitHubToken(t *testing.T) {
	store, _ := newTestStore(t)

	t.Setenv("GITHUB_TOKEN", "ghp_from_env")
	if got := GitHubToken(store); got != "ghp_from_env" {
		t.Errorf("GitHubToken() = %q, want env fallback", got)
	}

	store.Set(KeyGitHubToken, "ghp_from_config")
	if got := GitHubToken(store); got != "ghp_from_config" {
		t.Errorf("GitHubToken() = %q, want stored token to win", got)
	}
}

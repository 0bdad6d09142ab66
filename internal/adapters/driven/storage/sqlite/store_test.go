package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/repochat/repochat-cli/internal/core/domain"
	"github.com/repochat/repochat-cli/internal/core/ports/driven"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testSession(t *testing.T, repoURL string) *domain.Session {
	t.Helper()
	cfg, err := domain.NewConfig(100, 20, 3, true, 5)
	if err != nil {
		t.Fatalf("NewConfig() error: %v", err)
	}
	cfg.Embedding = domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "nomic-embed-text",
	}
	cfg.LLM = domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		Model:    "llama3.2",
	}
	return domain.NewSession(repoURL, cfg, time.Now())
}

func testChunks(sessionDim int) []domain.Chunk {
	return []domain.Chunk{
		{
			ID:         "chunk-1",
			DocumentID: "doc-1",
			Text:       "first chunk text",
			Start:      0,
			End:        16,
			Embedding:  []float32{0.1, 0.2, 0.3},
			Status:     domain.ChunkIndexed,
			Origin:     domain.OriginFile,
			Locator:    "README.md",
		},
		{
			ID:         "chunk-2",
			DocumentID: "doc-2",
			Text:       "second chunk text",
			Start:      0,
			End:        17,
			Embedding:  []float32{0.4, 0.5, 0.6},
			Status:     domain.ChunkIndexed,
			Origin:     domain.OriginIssue,
			Locator:    "issue-42",
			Number:     42,
			URL:        "https://github.com/owner/repo/issues/42",
		},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := testSession(t, "https://github.com/owner/repo")
	session.Dimension = 3
	if err := session.MarkReady(); err != nil {
		t.Fatalf("MarkReady() error: %v", err)
	}
	session.Memory.Append(domain.ConversationTurn{
		Query:     "what is this?",
		ChunkIDs:  []string{"chunk-1"},
		Answer:    "a repo",
		CreatedAt: time.Now(),
	})

	rec := driven.SessionRecord{Session: session, Chunks: testChunks(3)}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := store.Load(ctx, session.ID)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if loaded.Session.ID != session.ID {
		t.Errorf("ID = %q, want %q", loaded.Session.ID, session.ID)
	}
	if loaded.Session.RepoURL != session.RepoURL {
		t.Errorf("RepoURL = %q, want %q", loaded.Session.RepoURL, session.RepoURL)
	}
	if loaded.Session.Status != domain.SessionReady {
		t.Errorf("Status = %q, want ready", loaded.Session.Status)
	}
	if loaded.Session.Dimension != 3 {
		t.Errorf("Dimension = %d, want 3", loaded.Session.Dimension)
	}
	if loaded.Session.Config.ChunkSize != 100 || loaded.Session.Config.ChunkOverlap != 20 {
		t.Errorf("config snapshot = %+v", loaded.Session.Config)
	}
	if loaded.Session.Config.Embedding.Model != "nomic-embed-text" {
		t.Errorf("embedding model = %q", loaded.Session.Config.Embedding.Model)
	}

	if len(loaded.Chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(loaded.Chunks))
	}
	// Insertion order must survive the round trip.
	if loaded.Chunks[0].ID != "chunk-1" || loaded.Chunks[1].ID != "chunk-2" {
		t.Errorf("chunk order = %q, %q", loaded.Chunks[0].ID, loaded.Chunks[1].ID)
	}
	if len(loaded.Chunks[0].Embedding) != 3 || loaded.Chunks[0].Embedding[1] != 0.2 {
		t.Errorf("embedding = %v", loaded.Chunks[0].Embedding)
	}
	if loaded.Chunks[1].Origin != domain.OriginIssue || loaded.Chunks[1].Number != 42 {
		t.Errorf("chunk metadata = %+v", loaded.Chunks[1])
	}

	turns := loaded.Session.Memory.Context()
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(turns))
	}
	if turns[0].Query != "what is this?" || turns[0].Answer != "a repo" {
		t.Errorf("turn = %+v", turns[0])
	}
	if len(turns[0].ChunkIDs) != 1 || turns[0].ChunkIDs[0] != "chunk-1" {
		t.Errorf("turn chunk ids = %v", turns[0].ChunkIDs)
	}
}

func TestStoreSaveReplacesPreviousState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := testSession(t, "https://github.com/owner/repo")
	rec := driven.SessionRecord{Session: session, Chunks: testChunks(3)}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("first Save() error: %v", err)
	}

	// Save again with fewer chunks; stale rows must not survive.
	rec.Chunks = rec.Chunks[:1]
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("second Save() error: %v", err)
	}

	loaded, err := store.Load(ctx, session.ID)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(loaded.Chunks) != 1 {
		t.Errorf("got %d chunks after re-save, want 1", len(loaded.Chunks))
	}
}

func TestStoreErrorChunkRoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := testSession(t, "https://github.com/owner/repo")
	chunks := testChunks(3)
	chunks = append(chunks, domain.Chunk{
		ID:         "chunk-3",
		DocumentID: "doc-3",
		Text:       "chunk whose embedding attempts were exhausted",
		Start:      0,
		End:        45,
		Status:     domain.ChunkError,
		Origin:     domain.OriginFile,
		Locator:    "flaky.md",
	})

	if err := store.Save(ctx, driven.SessionRecord{Session: session, Chunks: chunks}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := store.Load(ctx, session.ID)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(loaded.Chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(loaded.Chunks))
	}

	var errored *domain.Chunk
	for i := range loaded.Chunks {
		if loaded.Chunks[i].ID == "chunk-3" {
			errored = &loaded.Chunks[i]
		}
	}
	if errored == nil {
		t.Fatal("errored chunk missing after reload")
	}
	if errored.Status != domain.ChunkError {
		t.Errorf("status = %q, want %q", errored.Status, domain.ChunkError)
	}
	if len(errored.Embedding) != 0 {
		t.Errorf("errored chunk has embedding of length %d", len(errored.Embedding))
	}
}

func TestStoreLoadNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load(context.Background(), "20260101T000000Z-deadbeef")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestStoreList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := testSession(t, "https://github.com/owner/old")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := testSession(t, "https://github.com/owner/new")

	for _, s := range []*domain.Session{older, newer} {
		if err := store.Save(ctx, driven.SessionRecord{Session: s}); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
	}

	sessions, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].RepoURL != "https://github.com/owner/new" {
		t.Errorf("first listed = %q, want newest first", sessions[0].RepoURL)
	}
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := testSession(t, "https://github.com/owner/repo")
	if err := store.Save(ctx, driven.SessionRecord{Session: session, Chunks: testChunks(3)}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	if err := store.Delete(ctx, session.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	if _, err := store.Load(ctx, session.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("Load() after delete = %v, want ErrSessionNotFound", err)
	}

	if err := store.Delete(ctx, session.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("second Delete() = %v, want ErrSessionNotFound", err)
	}
}

func TestStoreAPIKeysNeverPersisted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := testSession(t, "https://github.com/owner/repo")
	session.Config.Embedding.Provider = domain.AIProviderOpenAI
	session.Config.Embedding.APIKey = "sk-secret"
	session.Config.LLM.Provider = domain.AIProviderOpenAI
	session.Config.LLM.APIKey = "sk-secret"

	if err := store.Save(ctx, driven.SessionRecord{Session: session}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := store.Load(ctx, session.ID)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Session.Config.Embedding.APIKey != "" || loaded.Session.Config.LLM.APIKey != "" {
		t.Error("API keys must not survive persistence")
	}
	if loaded.Session.Config.Embedding.Provider != domain.AIProviderOpenAI {
		t.Errorf("provider = %q", loaded.Session.Config.Embedding.Provider)
	}
}

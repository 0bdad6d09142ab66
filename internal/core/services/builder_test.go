package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/repochat/repochat-cli/internal/core/domain"
	"github.com/repochat/repochat-cli/internal/core/ports/driven"
	"github.com/repochat/repochat-cli/internal/resilience"
)

func testConfig(t *testing.T) domain.Config {
	t.Helper()
	cfg, err := domain.NewConfig(50, 0, 2, true, 5)
	if err != nil {
		t.Fatalf("building config: %v", err)
	}
	return cfg
}

func specDocs() []domain.SourceDocument {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []domain.SourceDocument{
		{
			ID: "file-README.md", Origin: domain.OriginFile, Locator: "README.md",
			Text: "Hello world", RetrievedAt: now,
		},
		{
			ID: "issue-1", Origin: domain.OriginIssue, Locator: "1", Number: 1,
			URL:  "https://github.com/acme/demo/issues/1",
			Text: "ISSUE #1: tracking issue", RetrievedAt: now,
		},
		{
			ID: "pull-2", Origin: domain.OriginPullRequest, Locator: "2", Number: 2,
			URL:  "https://github.com/acme/demo/pull/2",
			Text: "PR #2: adds feature", RetrievedAt: now,
		},
	}
}

func TestBuild_Succeeds(t *testing.T) {
	store := newFakeStore()
	collector := &fakeCollector{docs: specDocs()}
	b := NewBuilder(collector, &fakeEmbedder{}, store, testExecutor(), memoryIndexFactory)

	report, err := b.Build(context.Background(), "https://github.com/acme/demo",
		driven.AllContent(), testConfig(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Documents != 3 {
		t.Errorf("expected 3 documents, got %d", report.Documents)
	}
	if report.Chunks == 0 || report.IndexedChunks != report.Chunks {
		t.Errorf("expected every chunk indexed, got %d of %d", report.IndexedChunks, report.Chunks)
	}
	if report.FailedChunks != 0 {
		t.Errorf("expected no failed chunks, got %d", report.FailedChunks)
	}
	if collector.gotRepo != "https://github.com/acme/demo" {
		t.Errorf("collector saw repo %q", collector.gotRepo)
	}

	rec, ok := store.saved(report.SessionID)
	if !ok {
		t.Fatalf("session %s was not persisted", report.SessionID)
	}
	if rec.Session.Status != domain.SessionReady {
		t.Errorf("expected ready session, got %s", rec.Session.Status)
	}
	if rec.Session.Dimension != 3 {
		t.Errorf("expected dimension 3, got %d", rec.Session.Dimension)
	}
	if len(rec.Chunks) != report.IndexedChunks {
		t.Errorf("persisted %d chunks, report says %d", len(rec.Chunks), report.IndexedChunks)
	}
	for _, chunk := range rec.Chunks {
		if chunk.Status != domain.ChunkIndexed || !chunk.Embedded() {
			t.Errorf("chunk %s persisted without embedding (status %s)", chunk.ID, chunk.Status)
		}
	}
}

func TestBuild_CollectorFailureEndsInErrorState(t *testing.T) {
	store := newFakeStore()
	collector := &fakeCollector{err: fmt.Errorf("%w: repository vanished", domain.ErrCollection)}
	b := NewBuilder(collector, &fakeEmbedder{}, store, testExecutor(), memoryIndexFactory)

	report, err := b.Build(context.Background(), "https://github.com/acme/demo",
		driven.AllContent(), testConfig(t))
	if !errors.Is(err, domain.ErrCollection) {
		t.Fatalf("expected ErrCollection, got %v", err)
	}

	rec, ok := store.saved(report.SessionID)
	if !ok {
		t.Fatal("failed session should still be persisted")
	}
	if rec.Session.Status != domain.SessionError {
		t.Errorf("expected error state, got %s", rec.Session.Status)
	}
	if len(rec.Chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(rec.Chunks))
	}
}

func TestBuild_ExhaustedBatchesAreSkipped(t *testing.T) {
	// Two documents big enough to span several embedding batches. Batches
	// touching the first document keep failing transiently; the rest of
	// the index must still be built and the session must end ready.
	docs := []domain.SourceDocument{
		{ID: "file-broken", Origin: domain.OriginFile, Locator: "broken.txt",
			Text: strings.Repeat("unembeddable ", 500)},
		{ID: "file-fine", Origin: domain.OriginFile, Locator: "fine.txt",
			Text: strings.Repeat("perfectly fine ", 500)},
	}
	embedder := &fakeEmbedder{failWhen: func(texts []string) error {
		for _, text := range texts {
			if strings.Contains(text, "unembeddable") {
				return resilience.Transient(errors.New("provider overloaded"))
			}
		}
		return nil
	}}

	store := newFakeStore()
	b := NewBuilder(&fakeCollector{docs: docs}, embedder, store, testExecutor(), memoryIndexFactory)

	report, err := b.Build(context.Background(), "https://github.com/acme/demo",
		driven.AllContent(), testConfig(t))
	if err != nil {
		t.Fatalf("a partial index is not a build failure: %v", err)
	}
	if report.FailedChunks == 0 {
		t.Error("expected failed chunks")
	}
	if report.IndexedChunks == 0 {
		t.Error("expected some chunks indexed despite the failing batches")
	}
	if report.IndexedChunks+report.FailedChunks != report.Chunks {
		t.Errorf("indexed %d + failed %d != total %d",
			report.IndexedChunks, report.FailedChunks, report.Chunks)
	}

	rec, ok := store.saved(report.SessionID)
	if !ok {
		t.Fatal("session was not persisted")
	}
	if rec.Session.Status != domain.SessionReady {
		t.Errorf("expected ready session, got %s", rec.Session.Status)
	}

	// Failed chunks stay in the record, marked so they can be told apart
	// from indexed ones and re-submitted later.
	var indexed, errored int
	for _, chunk := range rec.Chunks {
		switch chunk.Status {
		case domain.ChunkIndexed:
			indexed++
		case domain.ChunkError:
			errored++
			if strings.Contains(chunk.Text, "perfectly fine") {
				t.Errorf("chunk %s from the healthy document marked errored", chunk.ID)
			}
		default:
			t.Errorf("chunk %s persisted with status %q", chunk.ID, chunk.Status)
		}
	}
	if indexed != report.IndexedChunks {
		t.Errorf("persisted %d indexed chunks, report says %d", indexed, report.IndexedChunks)
	}
	if errored != report.FailedChunks {
		t.Errorf("persisted %d errored chunks, report says %d", errored, report.FailedChunks)
	}
}

func TestBuild_PermanentProviderFailureIsFatal(t *testing.T) {
	embedder := &fakeEmbedder{failWhen: func([]string) error {
		return errors.New("invalid api key")
	}}
	store := newFakeStore()
	b := NewBuilder(&fakeCollector{docs: specDocs()}, embedder, store, testExecutor(), memoryIndexFactory)

	report, err := b.Build(context.Background(), "https://github.com/acme/demo",
		driven.AllContent(), testConfig(t))
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}

	rec, ok := store.saved(report.SessionID)
	if !ok {
		t.Fatal("failed session should still be persisted")
	}
	if rec.Session.Status != domain.SessionError {
		t.Errorf("expected error state, got %s", rec.Session.Status)
	}
}

func TestBuild_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newFakeStore()
	b := NewBuilder(&fakeCollector{docs: specDocs()}, &fakeEmbedder{}, store, testExecutor(), memoryIndexFactory)

	_, err := b.Build(ctx, "https://github.com/acme/demo", driven.AllContent(), testConfig(t))
	if err == nil {
		t.Fatal("expected an error from a cancelled build")
	}
}

func TestBuild_InvalidConfigRejected(t *testing.T) {
	b := NewBuilder(&fakeCollector{}, &fakeEmbedder{}, newFakeStore(), testExecutor(), memoryIndexFactory)

	cfg := domain.Config{ChunkSize: 10, ChunkOverlap: 20, RetrieverK: 1, MemoryWindow: 1}
	_, err := b.Build(context.Background(), "https://github.com/acme/demo", driven.AllContent(), cfg)
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

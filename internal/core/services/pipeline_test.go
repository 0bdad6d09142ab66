package services

import (
	"context"
	"errors"
	"testing"

	"github.com/repochat/repochat-cli/internal/core/domain"
	"github.com/repochat/repochat-cli/internal/core/ports/driven"
)

// TestPipeline_BuildThenAsk drives the full path: collect three documents,
// build the knowledge base, reload the session from the store, and answer a
// question against it with a citation pointing back at the matching file.
func TestPipeline_BuildThenAsk(t *testing.T) {
	store := newFakeStore()
	exec := testExecutor()

	builder := NewBuilder(&fakeCollector{docs: specDocs()}, &fakeEmbedder{},
		store, exec, memoryIndexFactory)
	report, err := builder.Build(context.Background(), "https://github.com/acme/demo",
		driven.AllContent(), testConfig(t))
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	llm := &fakeLLM{reply: "It says hello to the world."}
	a := NewAnswerer(store, &fakeEmbedder{}, llm, exec, memoryIndexFactory)

	answer, err := a.Ask(context.Background(), report.SessionID, "Hello, what is in the README?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answer.Text != "It says hello to the world." {
		t.Errorf("unexpected answer: %q", answer.Text)
	}
	if len(answer.Citations) == 0 {
		t.Fatal("expected citations")
	}

	// The query matches the README content; its chunk must rank first.
	first := answer.Citations[0]
	if first.Origin != domain.OriginFile || first.Locator != "README.md" {
		t.Errorf("expected the README cited first, got %+v", first)
	}
	if first.URL != "" {
		t.Errorf("file citations carry no URL, got %q", first.URL)
	}

	// The turn survives a reload through the store.
	rec, err := store.Load(context.Background(), report.SessionID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	turns := rec.Session.Memory.Context()
	if len(turns) != 1 {
		t.Fatalf("expected 1 persisted turn, got %d", len(turns))
	}
	if turns[0].Query != "Hello, what is in the README?" {
		t.Errorf("unexpected persisted query: %q", turns[0].Query)
	}
	if len(turns[0].ChunkIDs) != len(answer.Citations) {
		t.Errorf("turn records %d chunks, answer has %d citations",
			len(turns[0].ChunkIDs), len(answer.Citations))
	}
}

func TestSessions_ListGetDelete(t *testing.T) {
	store := newFakeStore()
	session := seedReadySession(t, store, testConfig(t))
	svc := NewSessions(store)

	listed, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != session.ID {
		t.Fatalf("unexpected listing: %+v", listed)
	}

	got, err := svc.Get(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RepoURL != session.RepoURL {
		t.Errorf("unexpected repo url %q", got.RepoURL)
	}

	if err := svc.Delete(context.Background(), session.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(context.Background(), session.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on second delete, got %v", err)
	}
	if _, err := svc.Get(context.Background(), session.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/repochat/repochat-cli/internal/core/domain"
	"github.com/repochat/repochat-cli/internal/core/ports/driven"
	"github.com/repochat/repochat-cli/internal/resilience"
	"github.com/repochat/repochat-cli/internal/vectorindex/memory"
)

func testExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		Policy: resilience.Policy{
			MaxAttempts: 2,
			BaseDelay:   time.Millisecond,
			MaxDelay:    time.Millisecond,
		},
		CallTimeout: time.Minute,
	})
}

func memoryIndexFactory() driven.VectorIndex {
	return memory.New()
}

// fakeVector gives texts about distinct topics orthogonal embeddings so
// retrieval order is fully determined by the query.
func fakeVector(text string) []float32 {
	switch {
	case strings.Contains(text, "Hello"):
		return []float32{1, 0, 0}
	case strings.Contains(text, "tracking"):
		return []float32{0, 1, 0}
	default:
		return []float32{0, 0, 1}
	}
}

type fakeCollector struct {
	docs []domain.SourceDocument
	err  error

	gotRepo string
	gotSel  driven.ContentSelection
}

func (f *fakeCollector) ListDocuments(_ context.Context, repoURL string, sel driven.ContentSelection) ([]domain.SourceDocument, error) {
	f.gotRepo = repoURL
	f.gotSel = sel
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

func (f *fakeCollector) Validate(context.Context, string) error { return nil }
func (f *fakeCollector) Close() error                           { return nil }

type fakeEmbedder struct {
	// failWhen, when set, is consulted per batch; a non-nil result fails
	// the call.
	failWhen func(texts []string) error

	mu    sync.Mutex
	calls int
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.failWhen != nil {
		if err := f.failWhen(texts); err != nil {
			return nil, err
		}
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = fakeVector(text)
	}
	return out, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeEmbedder) Dimensions() int            { return 3 }
func (f *fakeEmbedder) ModelName() string          { return "fake-embed" }
func (f *fakeEmbedder) Ping(context.Context) error { return nil }
func (f *fakeEmbedder) Close() error               { return nil }

type fakeLLM struct {
	reply string
	err   error

	mu       sync.Mutex
	calls    int
	messages [][]driven.ChatMessage
}

func (f *fakeLLM) Complete(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	f.mu.Lock()
	f.calls++
	f.messages = append(f.messages, messages)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) lastMessages() []driven.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return nil
	}
	return f.messages[len(f.messages)-1]
}

func (f *fakeLLM) ModelName() string          { return "fake-chat" }
func (f *fakeLLM) Ping(context.Context) error { return nil }
func (f *fakeLLM) Close() error               { return nil }

type fakeStore struct {
	mu      sync.Mutex
	recs    map[string]driven.SessionRecord
	saves   int
	saveErr error

	// lastSavedTurns is the memory length observed at the latest Save.
	lastSavedTurns int
}

func newFakeStore() *fakeStore {
	return &fakeStore{recs: make(map[string]driven.SessionRecord)}
}

func (f *fakeStore) Save(_ context.Context, rec driven.SessionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.lastSavedTurns = rec.Session.Memory.Len()
	f.recs[rec.Session.ID] = rec
	return nil
}

func (f *fakeStore) Load(_ context.Context, sessionID string) (driven.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[sessionID]
	if !ok {
		return driven.SessionRecord{}, domain.ErrSessionNotFound
	}
	return rec, nil
}

func (f *fakeStore) List(context.Context) ([]*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Session, 0, len(f.recs))
	for _, rec := range f.recs {
		out = append(out, rec.Session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.recs[sessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(f.recs, sessionID)
	return nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) saved(sessionID string) (driven.SessionRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[sessionID]
	return rec, ok
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

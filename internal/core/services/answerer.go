package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/repochat/repochat-cli/internal/core/domain"
	"github.com/repochat/repochat-cli/internal/core/ports/driven"
	"github.com/repochat/repochat-cli/internal/core/ports/driving"
	"github.com/repochat/repochat-cli/internal/logger"
	"github.com/repochat/repochat-cli/internal/resilience"
)

// answerMaxTokens caps the length of a generated answer.
const answerMaxTokens = 1024

// Ensure Answerer implements the interface.
var _ driving.AskService = (*Answerer)(nil)

// Answerer answers questions against a ready session: embed the query,
// search the session's index, generate with conversation memory, cite every
// retrieved chunk.
type Answerer struct {
	store    driven.SessionStore
	embedder driven.EmbeddingService
	llm      driven.LLMService
	exec     *resilience.Executor
	newIndex IndexFactory
	now      func() time.Time

	// The loaded session and its rebuilt index are cached so a chat loop
	// pays the load cost once. Calls for the same session are serialised
	// by the caller; the lock only guards the cache itself.
	mu       sync.Mutex
	loadedID string
	loaded   *domain.Session
	index    driven.VectorIndex
}

// NewAnswerer creates an ask service.
func NewAnswerer(
	store driven.SessionStore,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	exec *resilience.Executor,
	newIndex IndexFactory,
) *Answerer {
	return &Answerer{
		store:    store,
		embedder: embedder,
		llm:      llm,
		exec:     exec,
		newIndex: newIndex,
		now:      time.Now,
	}
}

// Ask answers one question. A generation failure is reported as
// domain.ErrGenerationFailed and leaves memory and persisted state
// untouched.
func (a *Answerer) Ask(ctx context.Context, sessionID, question string) (domain.Answer, error) {
	session, index, err := a.loadSession(ctx, sessionID)
	if err != nil {
		return domain.Answer{}, err
	}
	cfg := session.Config

	queryVec, err := a.embedQuery(ctx, cfg, question)
	if err != nil {
		return domain.Answer{}, err
	}

	hits, err := index.Search(ctx, queryVec, cfg.RetrieverK)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("searching index: %w", err)
	}

	messages := buildMessages(question, hits, session.Memory.Context())
	text, err := a.complete(ctx, cfg, messages)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	citations := make([]domain.Citation, len(hits))
	chunkIDs := make([]string, len(hits))
	for i, hit := range hits {
		citations[i] = domain.CitationFor(hit.Chunk)
		chunkIDs[i] = hit.Chunk.ID
	}
	answer := domain.Answer{Text: text, Citations: citations}

	if session.Memory.Enabled() {
		session.Memory.Append(domain.ConversationTurn{
			Query:     question,
			ChunkIDs:  chunkIDs,
			Answer:    text,
			CreatedAt: a.now().UTC(),
		})
		// The answer already exists; a persistence hiccup should not
		// discard it. The turn stays in the live window either way.
		if err := a.store.Save(ctx, driven.SessionRecord{
			Session: session,
			Chunks:  index.Entries(),
		}); err != nil {
			logger.Warn("persisting session %s after turn: %v", session.ID, err)
		}
	}

	return answer, nil
}

// loadSession loads a session and rebuilds its vector index from the
// persisted chunks, caching the result for subsequent calls.
func (a *Answerer) loadSession(ctx context.Context, sessionID string) (*domain.Session, driven.VectorIndex, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.loadedID == sessionID {
		return a.loaded, a.index, nil
	}

	rec, err := a.store.Load(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if rec.Session.Status != domain.SessionReady {
		return nil, nil, fmt.Errorf("%w: session %s is %s",
			domain.ErrSessionNotReady, sessionID, rec.Session.Status)
	}

	index := a.newIndex()
	for _, chunk := range rec.Chunks {
		if chunk.Status != domain.ChunkIndexed || len(chunk.Embedding) == 0 {
			continue
		}
		if err := index.Insert(ctx, chunk, chunk.Embedding); err != nil {
			return nil, nil, fmt.Errorf("%w: rebuilding index: %v", domain.ErrSessionCorrupted, err)
		}
	}
	logger.Debug("loaded session %s: %d indexed chunks, %d remembered turns",
		sessionID, index.Len(), rec.Session.Memory.Len())

	a.loadedID = sessionID
	a.loaded = rec.Session
	a.index = index
	return rec.Session, index, nil
}

// embedQuery embeds the question through the resilience layer.
func (a *Answerer) embedQuery(ctx context.Context, cfg domain.Config, question string) ([]float32, error) {
	key := domain.Fingerprint(string(cfg.Embedding.Provider), a.embedder.ModelName(), []string{question}, nil)
	vectors, err := resilience.DoAs(ctx, a.exec, key,
		func(ctx context.Context) ([][]float32, error) {
			return a.embedder.EmbedBatch(ctx, []string{question})
		})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding query: provider returned %d vectors for 1 text", len(vectors))
	}
	return vectors[0], nil
}

// complete runs the chat call through the resilience layer. The dedup key
// covers the full message sequence and generation parameters, so the same
// question in the same conversation state hits the response cache.
func (a *Answerer) complete(ctx context.Context, cfg domain.Config, messages []driven.ChatMessage) (string, error) {
	opts := driven.ChatOptions{
		MaxTokens:   answerMaxTokens,
		Temperature: cfg.LLM.Temperature,
	}

	inputs := make([]string, len(messages))
	for i, m := range messages {
		inputs[i] = m.Role + "\x00" + m.Content
	}
	key := domain.Fingerprint(string(cfg.LLM.Provider), a.llm.ModelName(), inputs, map[string]string{
		"max_tokens":  strconv.Itoa(opts.MaxTokens),
		"temperature": strconv.FormatFloat(opts.Temperature, 'g', -1, 64),
	})

	return resilience.DoAs(ctx, a.exec, key,
		func(ctx context.Context) (string, error) {
			return a.llm.Complete(ctx, messages, opts)
		})
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/repochat/repochat-cli/internal/chunker"
	"github.com/repochat/repochat-cli/internal/core/domain"
	"github.com/repochat/repochat-cli/internal/core/ports/driven"
	"github.com/repochat/repochat-cli/internal/core/ports/driving"
	"github.com/repochat/repochat-cli/internal/logger"
	"github.com/repochat/repochat-cli/internal/resilience"
)

const (
	// embedBatchSize is the number of chunk texts per embedding request,
	// under every supported provider's input limit.
	embedBatchSize = 64

	// embedConcurrency bounds the number of in-flight embedding batches.
	embedConcurrency = 4
)

// Ensure Builder implements the interface.
var _ driving.BuildService = (*Builder)(nil)

// IndexFactory creates an empty vector index for a new session.
type IndexFactory func() driven.VectorIndex

// Builder constructs session knowledge bases: collect, chunk, embed
// concurrently in batches, index, persist.
type Builder struct {
	collector driven.Collector
	embedder  driven.EmbeddingService
	store     driven.SessionStore
	exec      *resilience.Executor
	newIndex  IndexFactory
	now       func() time.Time
}

// NewBuilder creates a build service.
func NewBuilder(
	collector driven.Collector,
	embedder driven.EmbeddingService,
	store driven.SessionStore,
	exec *resilience.Executor,
	newIndex IndexFactory,
) *Builder {
	return &Builder{
		collector: collector,
		embedder:  embedder,
		store:     store,
		exec:      exec,
		newIndex:  newIndex,
		now:       time.Now,
	}
}

// Build runs a full knowledge-base build and persists the resulting session.
// The session ends ready even when some chunks failed to embed; a collector
// failure or an unrecoverable provider failure ends it in the error state.
func (b *Builder) Build(
	ctx context.Context, repoURL string, sel driven.ContentSelection, cfg domain.Config,
) (driving.BuildReport, error) {
	if err := cfg.Validate(); err != nil {
		return driving.BuildReport{}, err
	}

	session := domain.NewSession(repoURL, cfg, b.now())
	report := driving.BuildReport{SessionID: session.ID}

	logger.Section("Collecting documents")
	docs, err := b.collector.ListDocuments(ctx, repoURL, sel)
	if err != nil {
		b.failSession(ctx, session, nil)
		return report, err
	}
	report.Documents = len(docs)
	logger.Info("collected %d documents from %s", len(docs), repoURL)

	logger.Section("Chunking")
	splitter, err := chunker.New(cfg)
	if err != nil {
		b.failSession(ctx, session, nil)
		return report, err
	}
	chunks, skipped := splitter.SplitAll(docs)
	report.SkippedDocuments = len(skipped)
	report.Chunks = len(chunks)
	for _, skipErr := range skipped {
		logger.Warn("skipping document: %v", skipErr)
	}
	logger.Info("produced %d chunks (%d documents skipped)", len(chunks), len(skipped))

	logger.Section("Embedding and indexing")
	index := b.newIndex()
	indexed, errored, embedErr := b.embedAndIndex(ctx, index, chunks, cfg)
	report.IndexedChunks = indexed
	report.FailedChunks = len(errored)

	session.Dimension = index.Dimension()

	// Errored chunks are persisted alongside the indexed ones so a later
	// build can tell them apart and re-submit them.
	persisted := append(index.Entries(), errored...)

	if embedErr != nil {
		// Unrecoverable: keep what completed, end in the error state.
		b.failSession(ctx, session, persisted)
		return report, embedErr
	}

	if err := session.MarkReady(); err != nil {
		return report, err
	}
	if err := b.store.Save(ctx, driven.SessionRecord{
		Session: session,
		Chunks:  persisted,
	}); err != nil {
		return report, fmt.Errorf("persisting session: %w", err)
	}

	stats := b.exec.Stats()
	logger.Info("build complete: %d indexed, %d failed (%d provider requests, %d cache hits)",
		indexed, len(errored), stats.RequestsMade, stats.CacheHits)
	return report, nil
}

// embedAndIndex embeds chunks in concurrent batches and inserts successful
// ones into the index. A batch whose retries are exhausted marks its chunks
// as errored and the build continues; an unrecoverable failure (bad
// credentials, cancellation) stops scheduling further batches and is
// returned. Already-completed batch results are always retained.
func (b *Builder) embedAndIndex(
	ctx context.Context, index driven.VectorIndex, chunks []domain.Chunk, cfg domain.Config,
) (indexed int, errored []domain.Chunk, err error) {
	if len(chunks) == 0 {
		return 0, nil, nil
	}

	provider := string(cfg.Embedding.Provider)
	model := b.embedder.ModelName()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		batch := chunks[start:end]

		// Cancellation is honoured here, at the batch boundary: batches
		// already running are allowed to finish, no new ones start.
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i := range batch {
				texts[i] = batch[i].Text
			}

			key := domain.Fingerprint(provider, model, texts, nil)
			vectors, embedErr := resilience.DoAs(gctx, b.exec, key,
				func(ctx context.Context) ([][]float32, error) {
					return b.embedder.EmbedBatch(ctx, texts)
				})

			if embedErr != nil {
				if isUnrecoverable(embedErr) {
					return fmt.Errorf("%w: %w", domain.ErrEmbedding, embedErr)
				}
				// Retries exhausted: a partial index beats no index.
				logger.Warn("embedding batch failed, marking %d chunks: %v", len(batch), embedErr)
				mu.Lock()
				for i := range batch {
					chunk := batch[i]
					chunk.Status = domain.ChunkError
					errored = append(errored, chunk)
				}
				mu.Unlock()
				return nil
			}

			if len(vectors) != len(batch) {
				return fmt.Errorf("%w: provider returned %d vectors for %d texts",
					domain.ErrEmbedding, len(vectors), len(batch))
			}

			for i := range batch {
				chunk := batch[i]
				chunk.Embedding = vectors[i]
				chunk.Status = domain.ChunkIndexed
				if insErr := index.Insert(gctx, chunk, vectors[i]); insErr != nil {
					return fmt.Errorf("%w: %w", domain.ErrEmbedding, insErr)
				}
			}
			mu.Lock()
			indexed += len(batch)
			mu.Unlock()
			return nil
		})
	}

	waitErr := g.Wait()
	if waitErr == nil && ctx.Err() != nil {
		waitErr = fmt.Errorf("%w: %w", domain.ErrEmbedding, ctx.Err())
	}
	mu.Lock()
	defer mu.Unlock()
	return indexed, errored, waitErr
}

// failSession moves the session to the error state and best-effort persists
// whatever completed. The original build error is what the caller sees.
func (b *Builder) failSession(ctx context.Context, session *domain.Session, chunks []domain.Chunk) {
	if err := session.MarkError(); err != nil {
		return
	}
	if err := b.store.Save(ctx, driven.SessionRecord{Session: session, Chunks: chunks}); err != nil {
		logger.Warn("persisting failed session %s: %v", session.ID, err)
	}
}

// isUnrecoverable reports whether an embedding failure should stop the whole
// build instead of just its batch. Rate limits and transient exhaustion are
// per-batch; cancelled contexts and permanent provider rejections (bad
// credentials, invalid model) are build-fatal.
func isUnrecoverable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, domain.ErrRateLimited) {
		return false
	}
	return !resilience.IsRetryable(err)
}

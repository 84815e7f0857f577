package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"law-mate-be/internal/entity"
	"law-mate-be/internal/pkg/logger"
	"law-mate-be/internal/repository/specification"
	"law-mate-be/internal/repository/unitofwork"
	"law-mate-be/pkg/collector"
	"law-mate-be/pkg/embedding"
	"law-mate-be/pkg/lexical"

	"golang.org/x/sync/singleflight"
)

// ErrRebuildFailed wraps any rebuild failure. The previously published
// generation keeps serving whenever this is returned.
var ErrRebuildFailed = errors.New("index rebuild failed")

// Snapshot is one published index generation. Immutable after publish.
type Snapshot struct {
	Generation    int64
	Lexical       *lexical.Generation
	DocumentCount int
	ChunkCount    int
	BuiltAt       time.Time
}

// Status describes the lifecycle for the admin surface.
type Status struct {
	Generation       int64     `json:"generation"`
	DocumentCount    int       `json:"document_count"`
	ChunkCount       int       `json:"chunk_count"`
	BuiltAt          time.Time `json:"built_at"`
	Rebuilding       bool      `json:"rebuilding"`
	LastRebuildAt    time.Time `json:"last_rebuild_at"`
	LastRebuildError string    `json:"last_rebuild_error,omitempty"`
}

// Lifecycle owns index generations: it builds new ones in the background,
// publishes them with an atomic pointer swap, and cleans up superseded rows.
// Queries that hold an old *Snapshot keep working against it unchanged.
type Lifecycle struct {
	collector  collector.Collector
	embedder   embedding.EmbeddingProvider
	tokenizer  lexical.Tokenizer
	chunker    *Chunker
	uowFactory unitofwork.RepositoryFactory
	params     lexical.Params
	log        logger.ILogger

	current atomic.Pointer[Snapshot]
	group   singleflight.Group

	mu            sync.Mutex
	rebuilding    bool
	lastRebuildAt time.Time
	lastErr       string
}

func NewLifecycle(
	col collector.Collector,
	embedder embedding.EmbeddingProvider,
	tokenizer lexical.Tokenizer,
	chunker *Chunker,
	uowFactory unitofwork.RepositoryFactory,
	params lexical.Params,
	log logger.ILogger,
) *Lifecycle {
	return &Lifecycle{
		collector:  col,
		embedder:   embedder,
		tokenizer:  tokenizer,
		chunker:    chunker,
		uowFactory: uowFactory,
		params:     params,
		log:        log,
	}
}

// Current returns the published snapshot, or nil before the first build.
func (l *Lifecycle) Current() *Snapshot {
	return l.current.Load()
}

func (l *Lifecycle) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	status := Status{
		Rebuilding:       l.rebuilding,
		LastRebuildAt:    l.lastRebuildAt,
		LastRebuildError: l.lastErr,
	}
	if snap := l.current.Load(); snap != nil {
		status.Generation = snap.Generation
		status.DocumentCount = snap.DocumentCount
		status.ChunkCount = snap.ChunkCount
		status.BuiltAt = snap.BuiltAt
	}
	return status
}

// Load recovers the highest persisted generation into memory on startup.
// A clean database is not an error; retrieval just reports no index until
// the first rebuild publishes one.
func (l *Lifecycle) Load(ctx context.Context) error {
	uow := l.uowFactory.NewUnitOfWork(ctx)

	gen, err := uow.ChunkRepository().MaxGeneration(ctx)
	if err != nil {
		return fmt.Errorf("resolve latest generation: %w", err)
	}
	if gen == 0 {
		l.log.Info("index", "no persisted generation, starting empty", nil)
		return nil
	}

	_, err = l.publishPersisted(ctx, gen)
	return err
}

// Restore republishes a persisted generation. The generation's rows must
// still be in storage; restoring does not delete anything, so flipping back
// is just another Restore call.
func (l *Lifecycle) Restore(ctx context.Context, generation int64) (*Snapshot, error) {
	if generation <= 0 {
		return nil, fmt.Errorf("invalid generation %d", generation)
	}
	return l.publishPersisted(ctx, generation)
}

// publishPersisted rebuilds the lexical side from stored rows and swaps the
// published pointer to the result.
func (l *Lifecycle) publishPersisted(ctx context.Context, gen int64) (*Snapshot, error) {
	uow := l.uowFactory.NewUnitOfWork(ctx)

	chunks, err := uow.ChunkRepository().FindAll(ctx, specification.ByGeneration{Generation: gen})
	if err != nil {
		return nil, fmt.Errorf("load generation %d chunks: %w", gen, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("generation %d has no persisted chunks", gen)
	}

	docCount, err := uow.DocumentRepository().Count(ctx, specification.ByGeneration{Generation: gen})
	if err != nil {
		return nil, fmt.Errorf("count generation %d documents: %w", gen, err)
	}

	lex, err := lexical.Build(gen, chunks, l.tokenizer, l.params)
	if err != nil {
		return nil, fmt.Errorf("rebuild lexical index for generation %d: %w", gen, err)
	}

	snap := &Snapshot{
		Generation:    gen,
		Lexical:       lex,
		DocumentCount: int(docCount),
		ChunkCount:    len(chunks),
		BuiltAt:       time.Now(),
	}
	l.current.Store(snap)

	l.log.Info("index", "published persisted generation", map[string]interface{}{
		"generation": gen,
		"chunks":     len(chunks),
		"documents":  docCount,
	})
	return snap, nil
}

// GenerationInfo describes one persisted generation for the admin surface.
type GenerationInfo struct {
	Generation    int64 `json:"generation"`
	DocumentCount int64 `json:"document_count"`
	ChunkCount    int64 `json:"chunk_count"`
	Current       bool  `json:"current"`
}

// Generations lists every generation still in storage, newest first.
func (l *Lifecycle) Generations(ctx context.Context) ([]GenerationInfo, error) {
	uow := l.uowFactory.NewUnitOfWork(ctx)

	numbers, err := uow.ChunkRepository().ListGenerations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}

	var currentGen int64
	if cur := l.current.Load(); cur != nil {
		currentGen = cur.Generation
	}

	infos := make([]GenerationInfo, 0, len(numbers))
	for _, gen := range numbers {
		chunkCount, err := uow.ChunkRepository().Count(ctx, specification.ByGeneration{Generation: gen})
		if err != nil {
			return nil, fmt.Errorf("count generation %d chunks: %w", gen, err)
		}
		docCount, err := uow.DocumentRepository().Count(ctx, specification.ByGeneration{Generation: gen})
		if err != nil {
			return nil, fmt.Errorf("count generation %d documents: %w", gen, err)
		}
		infos = append(infos, GenerationInfo{
			Generation:    gen,
			DocumentCount: docCount,
			ChunkCount:    chunkCount,
			Current:       gen == currentGen,
		})
	}
	return infos, nil
}

// DeleteGeneration removes one persisted generation's rows. The published
// generation is refused; everything serving stays untouched.
func (l *Lifecycle) DeleteGeneration(ctx context.Context, generation int64) error {
	if cur := l.current.Load(); cur != nil && cur.Generation == generation {
		return fmt.Errorf("generation %d is published and cannot be deleted", generation)
	}

	uow := l.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChunkEmbeddingRepository().DeleteGeneration(ctx, generation); err != nil {
		return fmt.Errorf("delete generation %d embeddings: %w", generation, err)
	}
	if err := uow.ChunkRepository().DeleteGeneration(ctx, generation); err != nil {
		return fmt.Errorf("delete generation %d chunks: %w", generation, err)
	}
	if err := uow.DocumentRepository().DeleteGeneration(ctx, generation); err != nil {
		return fmt.Errorf("delete generation %d documents: %w", generation, err)
	}
	return nil
}

// rebuildTimeout bounds one build flight. The flight outlives the caller
// that started it, so it cannot inherit that caller's deadline.
const rebuildTimeout = 30 * time.Minute

// Rebuild collects the document set, builds the next generation off to the
// side, and publishes it atomically. Concurrent callers coalesce onto one
// build and all receive its result.
func (l *Lifecycle) Rebuild(ctx context.Context) (*Snapshot, error) {
	result, err, _ := l.group.Do("rebuild", func() (interface{}, error) {
		// The flight is shared by every coalesced caller; a canceled
		// admin request must not abort the build for the others.
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rebuildTimeout)
		defer cancel()
		return l.rebuild(flightCtx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Snapshot), nil
}

func (l *Lifecycle) rebuild(ctx context.Context) (*Snapshot, error) {
	l.setRebuilding(true)
	started := time.Now()

	snap, err := l.buildNext(ctx)

	l.mu.Lock()
	l.rebuilding = false
	l.lastRebuildAt = time.Now()
	if err != nil {
		l.lastErr = err.Error()
	} else {
		l.lastErr = ""
	}
	l.mu.Unlock()

	if err != nil {
		l.log.Error("index", "rebuild failed, previous generation kept", map[string]interface{}{
			"error":    err.Error(),
			"duration": time.Since(started).String(),
		})
		return nil, fmt.Errorf("%w: %v", ErrRebuildFailed, err)
	}

	l.log.Info("index", "rebuild published", map[string]interface{}{
		"generation": snap.Generation,
		"documents":  snap.DocumentCount,
		"chunks":     snap.ChunkCount,
		"duration":   time.Since(started).String(),
	})
	return snap, nil
}

func (l *Lifecycle) buildNext(ctx context.Context) (*Snapshot, error) {
	// The next number comes from storage, not the in-memory pointer: a
	// failed startup Load, or a Restore to an older generation, must never
	// cause persisted rows to be written over.
	uow := l.uowFactory.NewUnitOfWork(ctx)
	maxGen, err := uow.ChunkRepository().MaxGeneration(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve persisted generation: %w", err)
	}
	next := maxGen + 1
	if cur := l.current.Load(); cur != nil && cur.Generation >= next {
		next = cur.Generation + 1
	}

	docs, err := l.collector.FetchDocuments(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("collect documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("collector returned empty document set")
	}
	for _, doc := range docs {
		doc.Generation = next
	}

	chunks := l.chunker.Split(docs, next)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("chunking produced no chunks")
	}

	embeddings, err := l.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	// Build the in-memory side before touching the database so a bad
	// chunk set fails cheaply.
	lex, err := lexical.Build(next, chunks, l.tokenizer, l.params)
	if err != nil {
		return nil, err
	}

	if err := l.persist(ctx, docs, chunks, embeddings); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Generation:    next,
		Lexical:       lex,
		DocumentCount: len(docs),
		ChunkCount:    len(chunks),
		BuiltAt:       time.Now(),
	}
	l.current.Store(snap)

	// Superseded rows are removed only after publish, and the previous
	// generation is kept so queries that captured it before the swap can
	// still hydrate. A failure here is storage bloat, not correctness,
	// so it does not fail the rebuild.
	l.cleanup(ctx, next-1)

	return snap, nil
}

func (l *Lifecycle) embedChunks(ctx context.Context, chunks []*entity.Chunk) ([]*entity.ChunkEmbedding, error) {
	embeddings := make([]*entity.ChunkEmbedding, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := l.embedder.Generate(ctx, chunk.Text, embedding.TaskRetrievalDocument)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if len(resp.Embedding.Values) == 0 {
			return nil, fmt.Errorf("embed chunk %d/%d: provider returned empty vector", i+1, len(chunks))
		}

		embeddings = append(embeddings, &entity.ChunkEmbedding{
			ChunkId:    chunk.Id,
			DocumentId: chunk.DocumentId,
			Ordinal:    chunk.Ordinal,
			Vector:     resp.Embedding.Values,
			Generation: chunk.Generation,
		})
	}
	return embeddings, nil
}

func (l *Lifecycle) persist(ctx context.Context, docs []*entity.Document, chunks []*entity.Chunk, embeddings []*entity.ChunkEmbedding) error {
	uow := l.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("begin rebuild transaction: %w", err)
	}

	if err := uow.DocumentRepository().CreateBulk(ctx, docs); err != nil {
		uow.Rollback()
		return fmt.Errorf("persist documents: %w", err)
	}
	if err := uow.ChunkRepository().CreateBulk(ctx, chunks); err != nil {
		uow.Rollback()
		return fmt.Errorf("persist chunks: %w", err)
	}
	if err := uow.ChunkEmbeddingRepository().CreateBulk(ctx, embeddings); err != nil {
		uow.Rollback()
		return fmt.Errorf("persist embeddings: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("commit rebuild transaction: %w", err)
	}
	return nil
}

func (l *Lifecycle) cleanup(ctx context.Context, floor int64) {
	uow := l.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChunkEmbeddingRepository().DeleteGenerationsBelow(ctx, floor); err != nil {
		l.log.Warn("index", "cleanup of superseded embeddings failed", map[string]interface{}{"error": err.Error()})
	}
	if err := uow.ChunkRepository().DeleteGenerationsBelow(ctx, floor); err != nil {
		l.log.Warn("index", "cleanup of superseded chunks failed", map[string]interface{}{"error": err.Error()})
	}
	if err := uow.DocumentRepository().DeleteGenerationsBelow(ctx, floor); err != nil {
		l.log.Warn("index", "cleanup of superseded documents failed", map[string]interface{}{"error": err.Error()})
	}
}

func (l *Lifecycle) setRebuilding(v bool) {
	l.mu.Lock()
	l.rebuilding = v
	l.mu.Unlock()
}

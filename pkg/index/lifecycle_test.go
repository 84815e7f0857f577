package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"law-mate-be/internal/entity"
	"law-mate-be/internal/pkg/logger"
	"law-mate-be/internal/repository/contract"
	"law-mate-be/internal/repository/specification"
	"law-mate-be/internal/repository/unitofwork"
	"law-mate-be/pkg/embedding"
	"law-mate-be/pkg/lexical"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }
func (nopLogger) GetLogs(string, int, int) ([]logger.LogEntry, error) {
	return nil, nil
}
func (nopLogger) GetLogById(string) (*logger.LogEntry, error) { return nil, nil }

type fakeCollector struct {
	fetches atomic.Int64
	gate    chan struct{} // when non-nil, FetchDocuments blocks until closed
	err     error
	docs    func() []*entity.Document
}

func (f *fakeCollector) FetchDocuments(ctx context.Context, since *time.Time) ([]*entity.Document, error) {
	f.fetches.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.docs(), nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.1, 0.2, 0.3}},
	}, nil
}

// memoryStore backs the fake unit of work across rebuilds.
type memoryStore struct {
	mu         sync.Mutex
	docs       []*entity.Document
	chunks     []*entity.Chunk
	embeddings []*entity.ChunkEmbedding
	deletedAt  []int64 // floor arguments passed to DeleteGenerationsBelow
}

type fakeUowFactory struct{ store *memoryStore }

func (f *fakeUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{store: f.store}
}

type fakeUow struct{ store *memoryStore }

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) DocumentRepository() contract.DocumentRepository {
	return &fakeDocRepo{store: u.store}
}
func (u *fakeUow) ChunkRepository() contract.ChunkRepository {
	return &fakeChunkRepo{store: u.store}
}
func (u *fakeUow) ChunkEmbeddingRepository() contract.ChunkEmbeddingRepository {
	return &fakeEmbRepo{store: u.store}
}

// generationOf extracts a ByGeneration filter so the fakes can honor the
// generation scoping the real repositories apply in SQL.
func generationOf(specs []specification.Specification) (int64, bool) {
	for _, s := range specs {
		if bg, ok := s.(specification.ByGeneration); ok {
			return bg.Generation, true
		}
	}
	return 0, false
}

type fakeDocRepo struct{ store *memoryStore }

func (r *fakeDocRepo) CreateBulk(ctx context.Context, docs []*entity.Document) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.docs = append(r.store.docs, docs...)
	return nil
}

func (r *fakeDocRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	return nil, nil
}

func (r *fakeDocRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.docs, nil
}

func (r *fakeDocRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	gen, scoped := generationOf(specs)
	var count int64
	for _, d := range r.store.docs {
		if !scoped || d.Generation == gen {
			count++
		}
	}
	return count, nil
}

func (r *fakeDocRepo) DeleteGeneration(ctx context.Context, generation int64) error {
	return nil
}

func (r *fakeDocRepo) DeleteGenerationsBelow(ctx context.Context, floor int64) error {
	return nil
}

type fakeChunkRepo struct{ store *memoryStore }

func (r *fakeChunkRepo) CreateBulk(ctx context.Context, chunks []*entity.Chunk) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.chunks = append(r.store.chunks, chunks...)
	return nil
}

func (r *fakeChunkRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chunk, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	gen, scoped := generationOf(specs)
	var out []*entity.Chunk
	for _, c := range r.store.chunks {
		if !scoped || c.Generation == gen {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeChunkRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	chunks, _ := r.FindAll(ctx, specs...)
	return int64(len(chunks)), nil
}

func (r *fakeChunkRepo) ListGenerations(ctx context.Context) ([]int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	seen := map[int64]bool{}
	var generations []int64
	for _, c := range r.store.chunks {
		if !seen[c.Generation] {
			seen[c.Generation] = true
			generations = append(generations, c.Generation)
		}
	}
	sort.Slice(generations, func(i, j int) bool { return generations[i] > generations[j] })
	return generations, nil
}

func (r *fakeChunkRepo) DeleteGeneration(ctx context.Context, generation int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.chunks[:0]
	for _, c := range r.store.chunks {
		if c.Generation != generation {
			kept = append(kept, c)
		}
	}
	r.store.chunks = kept
	return nil
}

func (r *fakeChunkRepo) MaxGeneration(ctx context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var max int64
	for _, c := range r.store.chunks {
		if c.Generation > max {
			max = c.Generation
		}
	}
	return max, nil
}

func (r *fakeChunkRepo) DeleteGenerationsBelow(ctx context.Context, floor int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.deletedAt = append(r.store.deletedAt, floor)
	kept := r.store.chunks[:0]
	for _, c := range r.store.chunks {
		if c.Generation >= floor {
			kept = append(kept, c)
		}
	}
	r.store.chunks = kept
	return nil
}

type fakeEmbRepo struct{ store *memoryStore }

func (r *fakeEmbRepo) CreateBulk(ctx context.Context, embeddings []*entity.ChunkEmbedding) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.embeddings = append(r.store.embeddings, embeddings...)
	return nil
}

func (r *fakeEmbRepo) Count(ctx context.Context, generation int64) (int64, error) {
	return int64(len(r.store.embeddings)), nil
}

func (r *fakeEmbRepo) SearchSimilarWithScore(ctx context.Context, vector []float32, limit int, generation int64, threshold float64) ([]*contract.ScoredChunkEmbedding, error) {
	return nil, nil
}

func (r *fakeEmbRepo) DeleteGeneration(ctx context.Context, generation int64) error {
	return nil
}

func (r *fakeEmbRepo) DeleteGenerationsBelow(ctx context.Context, floor int64) error {
	return nil
}

func legalDocs() []*entity.Document {
	return []*entity.Document{
		{
			Id:        uuid.New(),
			SourceURI: "http://www.law.go.kr/lawService.do?ID=1",
			Title:     "주택임대차보호법",
			Body:      strings.Repeat("임차인은 보증금을 반환받을 때까지 대항력을 유지한다. ", 60),
		},
		{
			Id:        uuid.New(),
			SourceURI: "http://www.law.go.kr/lawService.do?ID=2",
			Title:     "민법",
			Body:      strings.Repeat("계약은 당사자의 의사표시의 합치로 성립한다. ", 60),
		},
	}
}

func newTestLifecycle(col *fakeCollector, store *memoryStore) *Lifecycle {
	tokenizer := lexical.NewStandardTokenizer()
	return NewLifecycle(
		col,
		fakeEmbedder{},
		tokenizer,
		NewChunker(200, 40, tokenizer),
		&fakeUowFactory{store: store},
		lexical.DefaultParams(),
		nopLogger{},
	)
}

func TestRebuildPublishesNewGeneration(t *testing.T) {
	store := &memoryStore{}
	col := &fakeCollector{docs: legalDocs}
	lc := newTestLifecycle(col, store)

	require.Nil(t, lc.Current())

	snap, err := lc.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Generation)
	assert.Equal(t, 2, snap.DocumentCount)
	assert.Greater(t, snap.ChunkCount, 2)
	assert.Same(t, snap, lc.Current())

	// Cleanup runs only after publish, with a floor one below the new
	// generation so the superseded one stays queryable.
	assert.Equal(t, []int64{0}, store.deletedAt)

	// Second rebuild supersedes with a higher generation.
	snap2, err := lc.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap2.Generation)
	assert.Same(t, snap2, lc.Current())
	assert.Equal(t, []int64{0, 1}, store.deletedAt)

	// Generation 1 rows survive the publish of generation 2 so queries
	// that captured the old snapshot can still hydrate.
	gens := map[int64]bool{}
	store.mu.Lock()
	for _, c := range store.chunks {
		gens[c.Generation] = true
	}
	store.mu.Unlock()
	assert.True(t, gens[1], "previous generation must be retained through the swap")
	assert.True(t, gens[2])
}

func TestRebuildSurvivesCallerCancellation(t *testing.T) {
	store := &memoryStore{}
	col := &fakeCollector{docs: legalDocs}
	lc := newTestLifecycle(col, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The build flight is shared, so a dead caller context must not
	// abort it.
	snap, err := lc.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Generation)
	assert.Same(t, snap, lc.Current())
}

func TestRebuildResumesFromPersistedGenerationWithoutSnapshot(t *testing.T) {
	store := &memoryStore{}
	store.chunks = []*entity.Chunk{
		{Id: uuid.New(), DocumentId: uuid.New(), Ordinal: 0, Text: "보증금 반환", Generation: 3, TokenCount: 2},
	}
	col := &fakeCollector{docs: legalDocs}

	// Fresh lifecycle, Load never ran: the next generation still comes
	// from storage, not from a blank in-memory pointer.
	lc := newTestLifecycle(col, store)
	require.Nil(t, lc.Current())

	snap, err := lc.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), snap.Generation)
}

func TestRebuildFailureKeepsPublishedGeneration(t *testing.T) {
	store := &memoryStore{}
	col := &fakeCollector{docs: legalDocs}
	lc := newTestLifecycle(col, store)

	snap, err := lc.Rebuild(context.Background())
	require.NoError(t, err)

	col.err = fmt.Errorf("upstream registry down")
	_, err = lc.Rebuild(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRebuildFailed))

	// The failed attempt must not disturb what is serving.
	assert.Same(t, snap, lc.Current())

	status := lc.Status()
	assert.Equal(t, int64(1), status.Generation)
	assert.False(t, status.Rebuilding)
	assert.Contains(t, status.LastRebuildError, "upstream registry down")
}

func TestConcurrentRebuildsCoalesce(t *testing.T) {
	store := &memoryStore{}
	col := &fakeCollector{docs: legalDocs, gate: make(chan struct{})}
	lc := newTestLifecycle(col, store)

	const callers = 5
	results := make(chan *Snapshot, callers)
	var started sync.WaitGroup
	started.Add(callers)

	for i := 0; i < callers; i++ {
		go func() {
			started.Done()
			snap, err := lc.Rebuild(context.Background())
			assert.NoError(t, err)
			results <- snap
		}()
	}

	started.Wait()
	time.Sleep(50 * time.Millisecond) // let all callers join the flight
	close(col.gate)

	first := <-results
	for i := 1; i < callers; i++ {
		assert.Same(t, first, <-results)
	}
	assert.Equal(t, int64(1), col.fetches.Load(), "coalesced callers must share one collection pass")
}

func TestLoadRecoversPersistedGeneration(t *testing.T) {
	store := &memoryStore{}
	col := &fakeCollector{docs: legalDocs}
	lc := newTestLifecycle(col, store)

	_, err := lc.Rebuild(context.Background())
	require.NoError(t, err)

	// A fresh lifecycle over the same store sees the persisted rows.
	lc2 := newTestLifecycle(col, store)
	require.NoError(t, lc2.Load(context.Background()))

	snap := lc2.Current()
	require.NotNil(t, snap)
	assert.Equal(t, int64(1), snap.Generation)
	assert.Greater(t, snap.ChunkCount, 0)
}

func TestLoadEmptyDatabaseStartsWithoutIndex(t *testing.T) {
	lc := newTestLifecycle(&fakeCollector{docs: legalDocs}, &memoryStore{})
	require.NoError(t, lc.Load(context.Background()))
	assert.Nil(t, lc.Current())
}

func TestRestoreRepublishesRetainedGeneration(t *testing.T) {
	store := &memoryStore{}
	col := &fakeCollector{docs: legalDocs}
	lc := newTestLifecycle(col, store)

	_, err := lc.Rebuild(context.Background())
	require.NoError(t, err)
	snap2, err := lc.Rebuild(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), snap2.Generation)

	// Generation 1 was retained through the swap, so rolling back to it
	// is a pure republish.
	restored, err := lc.Restore(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), restored.Generation)
	assert.Same(t, restored, lc.Current())
	assert.Greater(t, restored.ChunkCount, 0)

	// A generation that was never persisted cannot be restored.
	_, err = lc.Restore(context.Background(), 9)
	require.Error(t, err)
	assert.Same(t, restored, lc.Current())
}

func TestRebuildAfterRestorePublishesFreshGeneration(t *testing.T) {
	store := &memoryStore{}
	col := &fakeCollector{docs: legalDocs}
	lc := newTestLifecycle(col, store)

	_, err := lc.Rebuild(context.Background())
	require.NoError(t, err)
	_, err = lc.Rebuild(context.Background())
	require.NoError(t, err)

	_, err = lc.Restore(context.Background(), 1)
	require.NoError(t, err)

	// Generation 2's rows are still persisted, so the next build must not
	// reuse its number.
	snap, err := lc.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.Generation)
}

func TestGenerationsListsRetainedGenerations(t *testing.T) {
	store := &memoryStore{}
	col := &fakeCollector{docs: legalDocs}
	lc := newTestLifecycle(col, store)

	_, err := lc.Rebuild(context.Background())
	require.NoError(t, err)
	_, err = lc.Rebuild(context.Background())
	require.NoError(t, err)

	infos, err := lc.Generations(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, int64(2), infos[0].Generation)
	assert.True(t, infos[0].Current)
	assert.Equal(t, int64(1), infos[1].Generation)
	assert.False(t, infos[1].Current)
	assert.Greater(t, infos[1].ChunkCount, int64(0))
}

func TestDeleteGenerationRefusesPublished(t *testing.T) {
	store := &memoryStore{}
	col := &fakeCollector{docs: legalDocs}
	lc := newTestLifecycle(col, store)

	_, err := lc.Rebuild(context.Background())
	require.NoError(t, err)
	snap2, err := lc.Rebuild(context.Background())
	require.NoError(t, err)

	err = lc.DeleteGeneration(context.Background(), snap2.Generation)
	require.Error(t, err, "the published generation must not be deletable")

	require.NoError(t, lc.DeleteGeneration(context.Background(), 1))
	infos, err := lc.Generations(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, snap2.Generation, infos[0].Generation)
}

func TestChunkerGaplessOrdinals(t *testing.T) {
	tokenizer := lexical.NewStandardTokenizer()
	chunker := NewChunker(100, 20, tokenizer)

	docs := legalDocs()
	chunks := chunker.Split(docs, 7)
	require.NotEmpty(t, chunks)

	next := map[uuid.UUID]int{}
	for _, c := range chunks {
		assert.Equal(t, next[c.DocumentId], c.Ordinal, "ordinals must be gapless per document")
		next[c.DocumentId]++
		assert.Equal(t, int64(7), c.Generation)
		assert.Greater(t, c.TokenCount, 0)
	}
}

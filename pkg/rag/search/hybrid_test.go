package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"law-mate-be/internal/entity"
	"law-mate-be/internal/pkg/logger"
	"law-mate-be/internal/repository/contract"
	"law-mate-be/internal/repository/specification"
	"law-mate-be/internal/repository/unitofwork"
	"law-mate-be/pkg/embedding"
	"law-mate-be/pkg/index"
	"law-mate-be/pkg/lexical"
	"law-mate-be/pkg/semantic"

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

type fixedSnapshot struct{ snap *index.Snapshot }

func (f fixedSnapshot) Current() *index.Snapshot { return f.snap }

type fakeSearcher struct {
	hits []semantic.Scored
	err  error
	gen  int64 // records the generation it was queried with
}

func (f *fakeSearcher) Nearest(ctx context.Context, vector []float32, k int, generation int64) ([]semantic.Scored, error) {
	f.gen = generation
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

type fakeEmbedder struct{ err error }

func (f fakeEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.5, 0.5}},
	}, nil
}

// chunkStoreUow serves hydration lookups from fixed in-memory rows.
type chunkStoreUow struct {
	chunks []*entity.Chunk
	docs   []*entity.Document
}

func (u *chunkStoreUow) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return u }
func (u *chunkStoreUow) Begin(ctx context.Context) error                         { return nil }
func (u *chunkStoreUow) Commit() error                                           { return nil }
func (u *chunkStoreUow) Rollback() error                                         { return nil }

func (u *chunkStoreUow) DocumentRepository() contract.DocumentRepository {
	return &hydrationDocRepo{docs: u.docs}
}
func (u *chunkStoreUow) ChunkRepository() contract.ChunkRepository {
	return &hydrationChunkRepo{chunks: u.chunks}
}
func (u *chunkStoreUow) ChunkEmbeddingRepository() contract.ChunkEmbeddingRepository {
	return nil
}

type hydrationDocRepo struct{ docs []*entity.Document }

func (r *hydrationDocRepo) CreateBulk(ctx context.Context, docs []*entity.Document) error { return nil }
func (r *hydrationDocRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	return nil, nil
}
func (r *hydrationDocRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	return r.docs, nil
}
func (r *hydrationDocRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.docs)), nil
}
func (r *hydrationDocRepo) DeleteGeneration(ctx context.Context, generation int64) error  { return nil }
func (r *hydrationDocRepo) DeleteGenerationsBelow(ctx context.Context, floor int64) error { return nil }

type hydrationChunkRepo struct{ chunks []*entity.Chunk }

func (r *hydrationChunkRepo) CreateBulk(ctx context.Context, chunks []*entity.Chunk) error {
	return nil
}
func (r *hydrationChunkRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chunk, error) {
	return r.chunks, nil
}
func (r *hydrationChunkRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.chunks)), nil
}
func (r *hydrationChunkRepo) MaxGeneration(ctx context.Context) (int64, error)      { return 0, nil }
func (r *hydrationChunkRepo) ListGenerations(ctx context.Context) ([]int64, error)  { return nil, nil }
func (r *hydrationChunkRepo) DeleteGeneration(ctx context.Context, gen int64) error { return nil }
func (r *hydrationChunkRepo) DeleteGenerationsBelow(ctx context.Context, floor int64) error {
	return nil
}

func retrievalFixture(t *testing.T) (*index.Snapshot, []*entity.Chunk, *entity.Document) {
	t.Helper()
	doc := &entity.Document{
		Id:        uuid.New(),
		Title:     "주택임대차보호법",
		SourceURI: "http://www.law.go.kr/lawService.do?ID=1",
	}
	chunks := []*entity.Chunk{
		{Id: uuid.New(), DocumentId: doc.Id, Ordinal: 0, Text: "임차인은 보증금을 반환받을 권리가 있다", Generation: 3},
		{Id: uuid.New(), DocumentId: doc.Id, Ordinal: 1, Text: "전세 계약의 대항력은 주민등록과 인도로 생긴다", Generation: 3},
		{Id: uuid.New(), DocumentId: doc.Id, Ordinal: 2, Text: "계약 갱신 요구권은 일 회에 한하여 행사할 수 있다", Generation: 3},
	}
	lex, err := lexical.Build(3, chunks, lexical.NewStandardTokenizer(), lexical.DefaultParams())
	require.NoError(t, err)
	return &index.Snapshot{Generation: 3, Lexical: lex, ChunkCount: len(chunks)}, chunks, doc
}

func newRetriever(snap *index.Snapshot, searcher *fakeSearcher, emb fakeEmbedder, chunks []*entity.Chunk, doc *entity.Document, cfg Config) *HybridRetriever {
	return NewHybridRetriever(
		fixedSnapshot{snap: snap},
		searcher,
		emb,
		lexical.NewStandardTokenizer(),
		&chunkStoreUow{chunks: chunks, docs: []*entity.Document{doc}},
		cfg,
		nopLogger{},
	)
}

func TestRetrieveFusesBothSides(t *testing.T) {
	snap, chunks, doc := retrievalFixture(t)
	searcher := &fakeSearcher{hits: []semantic.Scored{
		{ChunkId: chunks[0].Id, DocumentId: doc.Id, Ordinal: 0, Similarity: 0.92},
		{ChunkId: chunks[1].Id, DocumentId: doc.Id, Ordinal: 1, Similarity: 0.75},
	}}

	cfg := Config{TopK: 5, Floor: 0.1, Weights: DefaultWeights(), CandidateLimit: 10}
	r := newRetriever(snap, searcher, fakeEmbedder{}, chunks, doc, cfg)

	ret, err := r.Retrieve(context.Background(), "전세 보증금 반환")
	require.NoError(t, err)
	assert.False(t, ret.Degraded)
	assert.Equal(t, int64(3), ret.Generation)
	require.NotEmpty(t, ret.Evidence)

	// Both sides must have been scoped to the snapshot's generation.
	assert.Equal(t, int64(3), searcher.gen)

	for _, ev := range ret.Evidence {
		assert.NotEmpty(t, ev.Text)
		assert.Equal(t, "주택임대차보호법", ev.Title)
		assert.NotEmpty(t, ev.SourceURI)
	}
}

func TestRetrieveDegradesWhenVectorSideDown(t *testing.T) {
	snap, chunks, doc := retrievalFixture(t)
	searcher := &fakeSearcher{err: fmt.Errorf("%w: connection refused", semantic.ErrUnavailable)}

	cfg := Config{TopK: 5, Floor: 0.1, Weights: DefaultWeights(), CandidateLimit: 10}
	r := newRetriever(snap, searcher, fakeEmbedder{}, chunks, doc, cfg)

	ret, err := r.Retrieve(context.Background(), "보증금 반환")
	require.NoError(t, err)
	assert.True(t, ret.Degraded)
	assert.NotEmpty(t, ret.Evidence, "lexical-only ranking must still produce evidence")
}

func TestRetrieveDegradesWhenEmbedderDown(t *testing.T) {
	snap, chunks, doc := retrievalFixture(t)
	searcher := &fakeSearcher{}

	cfg := Config{TopK: 5, Floor: 0.1, Weights: DefaultWeights(), CandidateLimit: 10}
	r := newRetriever(snap, searcher, fakeEmbedder{err: errors.New("quota exhausted")}, chunks, doc, cfg)

	ret, err := r.Retrieve(context.Background(), "보증금 반환")
	require.NoError(t, err)
	assert.True(t, ret.Degraded)
}

func TestRetrieveNoIndex(t *testing.T) {
	r := NewHybridRetriever(
		fixedSnapshot{snap: nil},
		&fakeSearcher{},
		fakeEmbedder{},
		lexical.NewStandardTokenizer(),
		&chunkStoreUow{},
		DefaultConfig(),
		nopLogger{},
	)

	_, err := r.Retrieve(context.Background(), "전세 보증금")
	assert.ErrorIs(t, err, ErrNoIndex)
}

func TestRetrieveNoEvidenceStillReportsDegradation(t *testing.T) {
	snap, chunks, doc := retrievalFixture(t)
	searcher := &fakeSearcher{err: fmt.Errorf("%w: down", semantic.ErrUnavailable)}

	// Floor above 1.0 is unreachable, so every candidate is dropped.
	cfg := Config{TopK: 5, Floor: 1.5, Weights: DefaultWeights(), CandidateLimit: 10}
	r := newRetriever(snap, searcher, fakeEmbedder{}, chunks, doc, cfg)

	ret, err := r.Retrieve(context.Background(), "보증금")
	require.ErrorIs(t, err, ErrNoEvidence)
	require.NotNil(t, ret)
	assert.True(t, ret.Degraded)
	assert.Empty(t, ret.Evidence)
}

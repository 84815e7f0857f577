package search

import (
	"context"
	"errors"
	"fmt"

	"law-mate-be/internal/entity"
	"law-mate-be/internal/pkg/logger"
	"law-mate-be/internal/repository/specification"
	"law-mate-be/internal/repository/unitofwork"
	"law-mate-be/pkg/embedding"
	"law-mate-be/pkg/index"
	"law-mate-be/pkg/lexical"
	"law-mate-be/pkg/semantic"

	"github.com/google/uuid"
)

var (
	// ErrNoIndex means no generation has been published yet.
	ErrNoIndex = errors.New("no published index generation")
	// ErrNoEvidence means retrieval ran but nothing cleared the relevance
	// floor. Callers answer from the fixed insufficient-evidence template
	// instead of generating.
	ErrNoEvidence = errors.New("no evidence above relevance floor")
)

// SnapshotSource hands out the currently published index snapshot.
type SnapshotSource interface {
	Current() *index.Snapshot
}

type Config struct {
	TopK           int
	Floor          float64 // fused-score floor, below it a candidate is dropped
	Weights        Weights
	CandidateLimit int // per-side fetch depth before fusion
}

func DefaultConfig() Config {
	return Config{
		TopK:           5,
		Floor:          0.7,
		Weights:        DefaultWeights(),
		CandidateLimit: 20,
	}
}

// Evidence is a fused hit hydrated with the chunk text and source document
// attribution needed for grounding the answer.
type Evidence struct {
	Result
	Text      string
	Title     string
	SourceURI string
}

type Retrieved struct {
	Evidence   []Evidence
	Generation int64
	// Degraded is true when the vector side was unavailable and the
	// ranking fell back to lexical-only. The answer itself is not
	// degraded; only its retrieval breadth is.
	Degraded bool
}

// HybridRetriever runs the lexical and vector sides against one snapshot
// generation and fuses the candidates. A vector-side failure degrades to
// lexical-only; a lexical side failure cannot happen once a snapshot exists.
type HybridRetriever struct {
	snapshots  SnapshotSource
	searcher   semantic.Searcher
	embedder   embedding.EmbeddingProvider
	tokenizer  lexical.Tokenizer
	uowFactory unitofwork.RepositoryFactory
	cfg        Config
	log        logger.ILogger
}

func NewHybridRetriever(
	snapshots SnapshotSource,
	searcher semantic.Searcher,
	embedder embedding.EmbeddingProvider,
	tokenizer lexical.Tokenizer,
	uowFactory unitofwork.RepositoryFactory,
	cfg Config,
	log logger.ILogger,
) *HybridRetriever {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	if cfg.CandidateLimit < cfg.TopK {
		cfg.CandidateLimit = cfg.TopK * 4
	}
	return &HybridRetriever{
		snapshots:  snapshots,
		searcher:   searcher,
		embedder:   embedder,
		tokenizer:  tokenizer,
		uowFactory: uowFactory,
		cfg:        cfg,
		log:        log,
	}
}

// Retrieve answers the query against the currently published generation.
// Both sides query the same generation number, so a rebuild publishing
// mid-request cannot mix snapshots. Returns ErrNoEvidence with a non-nil
// Retrieved when nothing clears the floor, so callers still see the
// Degraded flag.
func (r *HybridRetriever) Retrieve(ctx context.Context, query string) (*Retrieved, error) {
	snap := r.snapshots.Current()
	if snap == nil || snap.Lexical == nil {
		return nil, ErrNoIndex
	}

	type vecOut struct {
		hits []semantic.Scored
		err  error
	}
	vecCh := make(chan vecOut, 1)
	go func() {
		resp, err := r.embedder.Generate(ctx, query, embedding.TaskRetrievalQuery)
		if err != nil {
			vecCh <- vecOut{err: fmt.Errorf("%w: %v", semantic.ErrUnavailable, err)}
			return
		}
		hits, err := r.searcher.Nearest(ctx, resp.Embedding.Values, r.cfg.CandidateLimit, snap.Generation)
		vecCh <- vecOut{hits: hits, err: err}
	}()

	lexHits := snap.Lexical.Score(r.tokenizer.Tokenize(query), r.cfg.CandidateLimit)

	vec := <-vecCh
	degraded := false
	if vec.err != nil {
		degraded = true
		r.log.Warn("search", "vector side unavailable, lexical-only ranking", map[string]interface{}{
			"error":      vec.err.Error(),
			"generation": snap.Generation,
		})
		vec.hits = nil
	}

	fused := Fuse(lexHits, vec.hits, r.cfg.Weights, r.cfg.Floor, r.cfg.TopK)
	if len(fused) == 0 {
		return &Retrieved{Generation: snap.Generation, Degraded: degraded}, ErrNoEvidence
	}

	evidence, err := r.hydrate(ctx, fused)
	if err != nil {
		return nil, fmt.Errorf("hydrate evidence: %w", err)
	}

	return &Retrieved{
		Evidence:   evidence,
		Generation: snap.Generation,
		Degraded:   degraded,
	}, nil
}

// hydrate attaches chunk text and document attribution to the fused hits,
// preserving their order.
func (r *HybridRetriever) hydrate(ctx context.Context, fused []Result) ([]Evidence, error) {
	chunkIDs := make([]uuid.UUID, 0, len(fused))
	docIDs := make([]uuid.UUID, 0, len(fused))
	seenDoc := make(map[uuid.UUID]bool)
	for _, f := range fused {
		chunkIDs = append(chunkIDs, f.ChunkId)
		if !seenDoc[f.DocumentId] {
			seenDoc[f.DocumentId] = true
			docIDs = append(docIDs, f.DocumentId)
		}
	}

	uow := r.uowFactory.NewUnitOfWork(ctx)

	chunks, err := uow.ChunkRepository().FindAll(ctx, specification.ByIDs{IDs: chunkIDs})
	if err != nil {
		return nil, err
	}
	chunkByID := make(map[uuid.UUID]*entity.Chunk, len(chunks))
	for _, c := range chunks {
		chunkByID[c.Id] = c
	}

	docs, err := uow.DocumentRepository().FindAll(ctx, specification.ByIDs{IDs: docIDs})
	if err != nil {
		return nil, err
	}
	docByID := make(map[uuid.UUID]*entity.Document, len(docs))
	for _, d := range docs {
		docByID[d.Id] = d
	}

	evidence := make([]Evidence, 0, len(fused))
	for _, f := range fused {
		chunk, ok := chunkByID[f.ChunkId]
		if !ok {
			// Cleanup raced ahead of us; skip rather than cite text we
			// cannot show.
			continue
		}
		ev := Evidence{Result: f, Text: chunk.Text}
		if doc, ok := docByID[f.DocumentId]; ok {
			ev.Title = doc.Title
			ev.SourceURI = doc.SourceURI
		}
		evidence = append(evidence, ev)
	}
	if len(evidence) == 0 {
		return nil, fmt.Errorf("all fused chunks missing from storage")
	}
	return evidence, nil
}

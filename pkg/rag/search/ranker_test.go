package search

import (
	"testing"

	"law-mate-be/pkg/lexical"
	"law-mate-be/pkg/semantic"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexHit(id, doc uuid.UUID, ordinal int, score float64) lexical.ScoredChunk {
	return lexical.ScoredChunk{ChunkId: id, DocumentId: doc, Ordinal: ordinal, Score: score}
}

func vecHit(id, doc uuid.UUID, ordinal int, sim float64) semantic.Scored {
	return semantic.Scored{ChunkId: id, DocumentId: doc, Ordinal: ordinal, Similarity: sim}
}

func TestFuseWeightsBothSides(t *testing.T) {
	doc := uuid.New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	lex := []lexical.ScoredChunk{
		lexHit(a, doc, 0, 10.0),
		lexHit(b, doc, 1, 5.0),
		lexHit(c, doc, 2, 0.0),
	}
	vec := []semantic.Scored{
		vecHit(a, doc, 0, 0.95),
		vecHit(b, doc, 1, 0.80),
		vecHit(c, doc, 2, 0.60),
	}

	results := Fuse(lex, vec, DefaultWeights(), 0, 0)
	require.Len(t, results, 3)

	// a is max on both sides: 0.3*1.0 + 0.7*1.0.
	assert.Equal(t, a, results[0].ChunkId)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)

	// b: lexical (5-0)/(10-0)=0.5, vector (0.8-0.6)/(0.95-0.6)≈0.5714.
	assert.Equal(t, b, results[1].ChunkId)
	assert.InDelta(t, 0.3*0.5+0.7*(0.20/0.35), results[1].Score, 1e-9)

	// c is min on both sides, fused score 0.
	assert.Equal(t, c, results[2].ChunkId)
	assert.InDelta(t, 0.0, results[2].Score, 1e-9)
}

func TestFuseRedistributesWeightWhenOneSideEmpty(t *testing.T) {
	doc := uuid.New()
	a, b := uuid.New(), uuid.New()

	lex := []lexical.ScoredChunk{
		lexHit(a, doc, 0, 8.0),
		lexHit(b, doc, 1, 2.0),
	}

	// Vector side down: the lexical side must carry the full weight so the
	// top hit still scores 1.0, not 0.3.
	results := Fuse(lex, nil, DefaultWeights(), 0, 0)
	require.Len(t, results, 2)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.InDelta(t, 0.0, results[1].Score, 1e-9)

	// And symmetrically for a lexical miss.
	vec := []semantic.Scored{
		vecHit(a, doc, 0, 0.9),
		vecHit(b, doc, 1, 0.7),
	}
	results = Fuse(nil, vec, DefaultWeights(), 0, 0)
	require.Len(t, results, 2)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestFuseDegenerateSideNormalizesToOne(t *testing.T) {
	doc := uuid.New()
	a := uuid.New()

	// A single hit has min == max; it must normalize to 1.0 rather than 0.
	results := Fuse([]lexical.ScoredChunk{lexHit(a, doc, 0, 3.2)}, nil, DefaultWeights(), 0.5, 0)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestFuseFloorAndTopK(t *testing.T) {
	doc := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}

	lex := []lexical.ScoredChunk{
		lexHit(ids[0], doc, 0, 9.0),
		lexHit(ids[1], doc, 1, 6.0),
		lexHit(ids[2], doc, 2, 3.0),
		lexHit(ids[3], doc, 3, 0.0),
	}

	results := Fuse(lex, nil, DefaultWeights(), 0.3, 2)
	require.Len(t, results, 2)
	assert.Equal(t, ids[0], results[0].ChunkId)
	assert.Equal(t, ids[1], results[1].ChunkId)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.3)
	}
}

func TestFuseTieBreakIsDeterministic(t *testing.T) {
	docA := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	docB := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	// Two pairs of equal scores across two documents.
	lex := []lexical.ScoredChunk{
		lexHit(uuid.New(), docB, 0, 5.0),
		lexHit(uuid.New(), docA, 1, 5.0),
		lexHit(uuid.New(), docA, 0, 5.0),
	}

	results := Fuse(lex, nil, DefaultWeights(), 0, 0)
	require.Len(t, results, 3)
	assert.Equal(t, docA, results[0].DocumentId)
	assert.Equal(t, 0, results[0].Ordinal)
	assert.Equal(t, docA, results[1].DocumentId)
	assert.Equal(t, 1, results[1].Ordinal)
	assert.Equal(t, docB, results[2].DocumentId)
}

func TestFuseUnionIncludesSingleSideHits(t *testing.T) {
	doc := uuid.New()
	onlyLex, onlyVec := uuid.New(), uuid.New()

	lex := []lexical.ScoredChunk{lexHit(onlyLex, doc, 0, 4.0)}
	vec := []semantic.Scored{vecHit(onlyVec, doc, 1, 0.85)}

	results := Fuse(lex, vec, DefaultWeights(), 0, 0)
	require.Len(t, results, 2)

	byID := map[uuid.UUID]Result{}
	for _, r := range results {
		byID[r.ChunkId] = r
	}
	// Each side degenerate-normalizes its sole hit to 1.0 under its own
	// weight; the missing side contributes nothing.
	assert.InDelta(t, 0.3, byID[onlyLex].Score, 1e-9)
	assert.InDelta(t, 0.7, byID[onlyVec].Score, 1e-9)
}

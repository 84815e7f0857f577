package search

import (
	"sort"

	"law-mate-be/pkg/lexical"
	"law-mate-be/pkg/semantic"

	"github.com/google/uuid"
)

// Weights splits relevance between the lexical and vector sides. When one
// side produced nothing its weight is redistributed to the other, so a
// degraded retrieval still ranks on a full 0..1 scale.
type Weights struct {
	Lexical float64
	Vector  float64
}

func DefaultWeights() Weights {
	return Weights{Lexical: 0.3, Vector: 0.7}
}

// Result is one fused candidate. LexicalScore and VectorScore hold the
// normalized per-side scores (0 when the side did not return the chunk).
type Result struct {
	ChunkId      uuid.UUID
	DocumentId   uuid.UUID
	Ordinal      int
	Score        float64
	LexicalScore float64
	VectorScore  float64
}

// Fuse merges the two candidate lists into one ranking: min-max normalize
// each side, weight, sum over the union, drop fused scores below the floor,
// and keep the top K. Ties break on (document id, ordinal) so equal scores
// order identically across runs.
func Fuse(lex []lexical.ScoredChunk, vec []semantic.Scored, w Weights, floor float64, topK int) []Result {
	lexNorm := normalizeLexical(lex)
	vecNorm := normalizeVector(vec)

	lw, vw := w.Lexical, w.Vector
	if len(lex) == 0 && len(vec) > 0 {
		vw = w.Lexical + w.Vector
		lw = 0
	}
	if len(vec) == 0 && len(lex) > 0 {
		lw = w.Lexical + w.Vector
		vw = 0
	}

	merged := make(map[uuid.UUID]*Result)
	for _, h := range lex {
		merged[h.ChunkId] = &Result{
			ChunkId:      h.ChunkId,
			DocumentId:   h.DocumentId,
			Ordinal:      h.Ordinal,
			LexicalScore: lexNorm[h.ChunkId],
		}
	}
	for _, h := range vec {
		r, ok := merged[h.ChunkId]
		if !ok {
			r = &Result{
				ChunkId:    h.ChunkId,
				DocumentId: h.DocumentId,
				Ordinal:    h.Ordinal,
			}
			merged[h.ChunkId] = r
		}
		r.VectorScore = vecNorm[h.ChunkId]
	}

	results := make([]Result, 0, len(merged))
	for _, r := range merged {
		r.Score = lw*r.LexicalScore + vw*r.VectorScore
		if r.Score < floor {
			continue
		}
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].DocumentId != results[j].DocumentId {
			return results[i].DocumentId.String() < results[j].DocumentId.String()
		}
		return results[i].Ordinal < results[j].Ordinal
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// normalizeLexical maps raw BM25 scores onto [0,1]. A degenerate set where
// every score is equal (including a single hit) maps to 1.0: one strong hit
// should not be zeroed out by its own normalization.
func normalizeLexical(hits []lexical.ScoredChunk) map[uuid.UUID]float64 {
	if len(hits) == 0 {
		return nil
	}

	min, max := hits[0].Score, hits[0].Score
	for _, h := range hits[1:] {
		if h.Score < min {
			min = h.Score
		}
		if h.Score > max {
			max = h.Score
		}
	}

	norm := make(map[uuid.UUID]float64, len(hits))
	for _, h := range hits {
		if max == min {
			norm[h.ChunkId] = 1.0
			continue
		}
		norm[h.ChunkId] = (h.Score - min) / (max - min)
	}
	return norm
}

func normalizeVector(hits []semantic.Scored) map[uuid.UUID]float64 {
	if len(hits) == 0 {
		return nil
	}

	min, max := hits[0].Similarity, hits[0].Similarity
	for _, h := range hits[1:] {
		if h.Similarity < min {
			min = h.Similarity
		}
		if h.Similarity > max {
			max = h.Similarity
		}
	}

	norm := make(map[uuid.UUID]float64, len(hits))
	for _, h := range hits {
		if max == min {
			norm[h.ChunkId] = 1.0
			continue
		}
		norm[h.ChunkId] = (h.Similarity - min) / (max - min)
	}
	return norm
}

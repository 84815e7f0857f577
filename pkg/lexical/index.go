package lexical

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"law-mate-be/internal/entity"

	"github.com/google/uuid"
)

// Params holds the BM25 constants. Zero values are replaced by the standard
// defaults in Build.
type Params struct {
	K1 float64
	B  float64
}

// DefaultParams returns the standard BM25 constants.
func DefaultParams() Params {
	return Params{K1: 1.2, B: 0.75}
}

// IndexBuildError reports a rejected build input.
type IndexBuildError struct {
	Reason string
}

func (e *IndexBuildError) Error() string {
	return fmt.Sprintf("lexical index build failed: %s", e.Reason)
}

// ScoredChunk is one BM25 hit. DocumentId and Ordinal are carried along so
// downstream ranking can tie-break deterministically.
type ScoredChunk struct {
	ChunkId    uuid.UUID
	DocumentId uuid.UUID
	Ordinal    int
	Score      float64
}

type posting struct {
	chunk int // position in g.chunks
	tf    int
}

type chunkMeta struct {
	id         uuid.UUID
	documentId uuid.UUID
	ordinal    int
	length     int
}

// Generation is an immutable BM25 index snapshot. It is never mutated after
// Build returns, so any number of queries may run against it concurrently,
// including against generations that have since been superseded.
type Generation struct {
	number   int64
	params   Params
	postings map[string][]posting
	chunks   []chunkMeta
	avgdl    float64
}

// Build tokenizes the chunk set and computes the index statistics.
// Deterministic: the same chunks and tokenizer always produce a generation
// that scores identically.
func Build(number int64, chunks []*entity.Chunk, tokenizer Tokenizer, params Params) (*Generation, error) {
	if len(chunks) == 0 {
		return nil, &IndexBuildError{Reason: "empty chunk set"}
	}
	if params.K1 == 0 {
		params.K1 = DefaultParams().K1
	}
	if params.B == 0 {
		params.B = DefaultParams().B
	}

	g := &Generation{
		number:   number,
		params:   params,
		postings: make(map[string][]posting),
		chunks:   make([]chunkMeta, 0, len(chunks)),
	}

	totalLen := 0
	for i, c := range chunks {
		if c == nil || strings.TrimSpace(c.Text) == "" {
			return nil, &IndexBuildError{Reason: fmt.Sprintf("chunk %d has empty text", i)}
		}

		terms := tokenizer.Tokenize(c.Text)
		tf := make(map[string]int, len(terms))
		for _, term := range terms {
			tf[term]++
		}

		pos := len(g.chunks)
		g.chunks = append(g.chunks, chunkMeta{
			id:         c.Id,
			documentId: c.DocumentId,
			ordinal:    c.Ordinal,
			length:     len(terms),
		})
		totalLen += len(terms)

		for term, freq := range tf {
			g.postings[term] = append(g.postings[term], posting{chunk: pos, tf: freq})
		}
	}

	g.avgdl = float64(totalLen) / float64(len(g.chunks))
	return g, nil
}

// Number returns the generation number this snapshot was built under.
func (g *Generation) Number() int64 {
	return g.number
}

// ChunkCount returns the number of indexed chunks.
func (g *Generation) ChunkCount() int {
	return len(g.chunks)
}

// Score runs BM25 over the query terms. Empty terms yield an empty result.
// Ordering: score descending, then document id / ordinal ascending so equal
// scores are reproducible across runs.
func (g *Generation) Score(terms []string, limit int) []ScoredChunk {
	if len(terms) == 0 {
		return nil
	}

	n := float64(len(g.chunks))
	k1, b := g.params.K1, g.params.B

	acc := make(map[int]float64)
	for _, term := range terms {
		plist, ok := g.postings[term]
		if !ok {
			continue
		}
		// IDF with the usual +0.5 smoothing, floored at a small positive
		// value so very common terms cannot subtract relevance.
		df := float64(len(plist))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		if idf <= 0 {
			idf = 1e-9
		}

		for _, p := range plist {
			tf := float64(p.tf)
			dl := float64(g.chunks[p.chunk].length)
			norm := tf * (k1 + 1) / (tf + k1*(1-b+b*dl/g.avgdl))
			acc[p.chunk] += idf * norm
		}
	}

	results := make([]ScoredChunk, 0, len(acc))
	for pos, score := range acc {
		meta := g.chunks[pos]
		results = append(results, ScoredChunk{
			ChunkId:    meta.id,
			DocumentId: meta.documentId,
			Ordinal:    meta.ordinal,
			Score:      score,
		})
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

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

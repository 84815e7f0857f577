package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadBM25Defaults(t *testing.T) {
	t.Setenv("BM25_K1", "")
	t.Setenv("BM25_B", "")

	cfg := Load()
	assert.Equal(t, 1.2, cfg.Index.BM25K1)
	assert.Equal(t, 0.75, cfg.Index.BM25B)
}

func TestLoadBM25Overrides(t *testing.T) {
	t.Setenv("BM25_K1", "1.6")
	t.Setenv("BM25_B", "0.5")

	cfg := Load()
	assert.Equal(t, 1.6, cfg.Index.BM25K1)
	assert.Equal(t, 0.5, cfg.Index.BM25B)
}

func TestLoadRetrievalWeights(t *testing.T) {
	t.Setenv("BM25_WEIGHT", "0.4")
	t.Setenv("VECTOR_WEIGHT", "0.6")

	cfg := Load()
	assert.Equal(t, 0.4, cfg.Retrieval.BM25Weight)
	assert.Equal(t, 0.6, cfg.Retrieval.VectorWeight)
}

package dto

import "time"

type RebuildResponse struct {
	Generation    int64 `json:"generation"`
	DocumentCount int   `json:"document_count"`
	ChunkCount    int   `json:"chunk_count"`
	DurationMs    int64 `json:"duration_ms"`
}

// ConfigResponse echoes the effective tuning knobs for debugging.
type ConfigResponse struct {
	Environment         string             `json:"environment"`
	EmbeddingProvider   string             `json:"embedding_provider"`
	Providers           []string           `json:"providers"`
	ChunkSize           int                `json:"chunk_size"`
	ChunkOverlap        int                `json:"chunk_overlap"`
	TopK                int                `json:"top_k"`
	SimilarityThreshold float64            `json:"similarity_threshold"`
	SearchWeights       map[string]float64 `json:"search_weights"`
	BM25K1              float64            `json:"bm25_k1"`
	BM25B               float64            `json:"bm25_b"`
	SessionCapacity     int                `json:"session_capacity"`
	SessionTTL          string             `json:"session_ttl"`
	RebuildSchedule     string             `json:"rebuild_schedule"`
}

type GenerationInfo struct {
	Generation    int64 `json:"generation"`
	DocumentCount int64 `json:"document_count"`
	ChunkCount    int64 `json:"chunk_count"`
	Current       bool  `json:"current"`
}

type GenerationsResponse struct {
	Generations []GenerationInfo `json:"generations"`
	Total       int              `json:"total"`
}

type RestoreResponse struct {
	Generation    int64 `json:"generation"`
	DocumentCount int   `json:"document_count"`
	ChunkCount    int   `json:"chunk_count"`
}

type StatusResponse struct {
	Generation       int64     `json:"generation"`
	DocumentCount    int       `json:"document_count"`
	ChunkCount       int       `json:"chunk_count"`
	BuiltAt          time.Time `json:"built_at"`
	Rebuilding       bool      `json:"rebuilding"`
	LastRebuildAt    time.Time `json:"last_rebuild_at"`
	LastRebuildError string    `json:"last_rebuild_error,omitempty"`
	ActiveSessions   int       `json:"active_sessions"`
	Providers        []string  `json:"providers"`
}

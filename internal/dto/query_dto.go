package dto

import "github.com/google/uuid"

type QueryRequest struct {
	SessionId string `json:"session_id"`
	Query     string `json:"query" validate:"required,min=1,max=1000"`
}

type SourceRef struct {
	Title     string `json:"title"`
	SourceURI string `json:"source_uri"`
}

type QueryResponse struct {
	SessionId          string      `json:"session_id"`
	Answer             string      `json:"answer"`
	Outcome            string      `json:"outcome"`
	Classification     string      `json:"classification,omitempty"`
	Provider           string      `json:"provider,omitempty"`
	Degraded           bool        `json:"degraded"`
	RetrievalDegraded  bool        `json:"retrieval_degraded"`
	Confidence         float64     `json:"confidence"`
	SearchMethod       string      `json:"search_method,omitempty"`
	ReferencedChunkIds []uuid.UUID `json:"referenced_chunk_ids"`
	Sources            []SourceRef `json:"sources,omitempty"`
	Cached             bool        `json:"cached"`
	LatencyMs          int64       `json:"latency_ms"`
}

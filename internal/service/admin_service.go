package service

import (
	"context"
	"time"

	"law-mate-be/internal/config"
	"law-mate-be/internal/dto"
	"law-mate-be/internal/pkg/logger"
	"law-mate-be/pkg/events"
	"law-mate-be/pkg/index"
	pktNats "law-mate-be/pkg/nats"
	"law-mate-be/pkg/rag/session"
)

type IAdminService interface {
	TriggerRebuild(ctx context.Context) (*dto.RebuildResponse, error)
	GetStatus(ctx context.Context) (*dto.StatusResponse, error)
	GetConfig() *dto.ConfigResponse
	ListGenerations(ctx context.Context) (*dto.GenerationsResponse, error)
	RestoreGeneration(ctx context.Context, generation int64) (*dto.RestoreResponse, error)
	DeleteGeneration(ctx context.Context, generation int64) error
	GetLogs(level string, limit, offset int) ([]logger.LogEntry, error)
}

type adminService struct {
	lifecycle *index.Lifecycle
	sessions  *session.Manager
	natsPub   *pktNats.Publisher
	cfg       *config.Config
	logger    logger.ILogger
}

func NewAdminService(
	lifecycle *index.Lifecycle,
	sessions *session.Manager,
	natsPub *pktNats.Publisher,
	cfg *config.Config,
	log logger.ILogger,
) IAdminService {
	return &adminService{
		lifecycle: lifecycle,
		sessions:  sessions,
		natsPub:   natsPub,
		cfg:       cfg,
		logger:    log,
	}
}

func (s *adminService) providerNames() []string {
	names := []string{s.cfg.Ai.LLMProvider + "/" + s.cfg.Ai.LLMModel}
	if s.cfg.Ai.FallbackProvider != "" {
		names = append(names, s.cfg.Ai.FallbackProvider+"/"+s.cfg.Ai.FallbackModel)
	}
	return names
}

// TriggerRebuild kicks a rebuild and waits for its result. Concurrent
// triggers coalesce inside the lifecycle, so hammering the endpoint cannot
// start parallel builds.
func (s *adminService) TriggerRebuild(ctx context.Context) (*dto.RebuildResponse, error) {
	started := time.Now()

	snap, err := s.lifecycle.Rebuild(ctx)
	if err != nil {
		return nil, err
	}

	s.publishRebuildEvent(ctx, snap)

	return &dto.RebuildResponse{
		Generation:    snap.Generation,
		DocumentCount: snap.DocumentCount,
		ChunkCount:    snap.ChunkCount,
		DurationMs:    time.Since(started).Milliseconds(),
	}, nil
}

func (s *adminService) GetStatus(ctx context.Context) (*dto.StatusResponse, error) {
	status := s.lifecycle.Status()
	return &dto.StatusResponse{
		Generation:       status.Generation,
		DocumentCount:    status.DocumentCount,
		ChunkCount:       status.ChunkCount,
		BuiltAt:          status.BuiltAt,
		Rebuilding:       status.Rebuilding,
		LastRebuildAt:    status.LastRebuildAt,
		LastRebuildError: status.LastRebuildError,
		ActiveSessions:   s.sessions.ActiveSessions(),
		Providers:        s.providerNames(),
	}, nil
}

func (s *adminService) GetConfig() *dto.ConfigResponse {
	return &dto.ConfigResponse{
		Environment:         s.cfg.App.Environment,
		EmbeddingProvider:   s.cfg.Ai.EmbeddingProvider,
		Providers:           s.providerNames(),
		ChunkSize:           s.cfg.Index.ChunkSize,
		ChunkOverlap:        s.cfg.Index.ChunkOverlap,
		TopK:                s.cfg.Retrieval.TopK,
		SimilarityThreshold: s.cfg.Retrieval.SimilarityThreshold,
		SearchWeights: map[string]float64{
			"bm25":   s.cfg.Retrieval.BM25Weight,
			"vector": s.cfg.Retrieval.VectorWeight,
		},
		BM25K1:          s.cfg.Index.BM25K1,
		BM25B:           s.cfg.Index.BM25B,
		SessionCapacity: s.cfg.Session.Capacity,
		SessionTTL:      s.cfg.Session.TTL.String(),
		RebuildSchedule: s.cfg.Index.RebuildSchedule,
	}
}

func (s *adminService) ListGenerations(ctx context.Context) (*dto.GenerationsResponse, error) {
	infos, err := s.lifecycle.Generations(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.GenerationInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, dto.GenerationInfo{
			Generation:    info.Generation,
			DocumentCount: info.DocumentCount,
			ChunkCount:    info.ChunkCount,
			Current:       info.Current,
		})
	}
	return &dto.GenerationsResponse{Generations: out, Total: len(out)}, nil
}

// RestoreGeneration republishes a retained generation, the rollback path
// after a bad rebuild.
func (s *adminService) RestoreGeneration(ctx context.Context, generation int64) (*dto.RestoreResponse, error) {
	snap, err := s.lifecycle.Restore(ctx, generation)
	if err != nil {
		return nil, err
	}

	s.logger.Info("ADMIN", "Restored index generation", map[string]interface{}{
		"generation": snap.Generation,
		"chunks":     snap.ChunkCount,
	})

	return &dto.RestoreResponse{
		Generation:    snap.Generation,
		DocumentCount: snap.DocumentCount,
		ChunkCount:    snap.ChunkCount,
	}, nil
}

func (s *adminService) DeleteGeneration(ctx context.Context, generation int64) error {
	if err := s.lifecycle.DeleteGeneration(ctx, generation); err != nil {
		return err
	}
	s.logger.Info("ADMIN", "Deleted index generation", map[string]interface{}{"generation": generation})
	return nil
}

func (s *adminService) GetLogs(level string, limit, offset int) ([]logger.LogEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.logger.GetLogs(level, limit, offset)
}

func (s *adminService) publishRebuildEvent(ctx context.Context, snap *index.Snapshot) {
	if s.natsPub == nil {
		return
	}

	evt := events.BaseEvent{
		Type: "INDEX_REBUILT",
		Data: map[string]interface{}{
			"generation":     snap.Generation,
			"document_count": snap.DocumentCount,
			"chunk_count":    snap.ChunkCount,
			"built_at":       snap.BuiltAt,
		},
		OccurredAt: time.Now(),
	}

	if err := s.natsPub.Publish(ctx, evt); err != nil {
		s.logger.Error("ADMIN", "Failed to publish INDEX_REBUILT event", map[string]interface{}{"error": err.Error()})
	}
}

package service

import (
	"context"
	"time"

	"law-mate-be/internal/dto"
	"law-mate-be/internal/pkg/logger"
	"law-mate-be/internal/repository/memory"
	"law-mate-be/pkg/index"
	"law-mate-be/pkg/rag/executor"
	"law-mate-be/pkg/rag/session"

	"github.com/google/uuid"
)

type IQueryService interface {
	HandleQuery(ctx context.Context, req *dto.QueryRequest) (*dto.QueryResponse, error)
}

type queryService struct {
	executor    *executor.PipelineExecutor
	sessions    *session.Manager
	lifecycle   *index.Lifecycle
	answerCache *memory.AnswerCache
	logger      logger.ILogger
}

func NewQueryService(
	exec *executor.PipelineExecutor,
	sessions *session.Manager,
	lifecycle *index.Lifecycle,
	answerCache *memory.AnswerCache,
	log logger.ILogger,
) IQueryService {
	return &queryService{
		executor:    exec,
		sessions:    sessions,
		lifecycle:   lifecycle,
		answerCache: answerCache,
		logger:      log,
	}
}

func (s *queryService) HandleQuery(ctx context.Context, req *dto.QueryRequest) (*dto.QueryResponse, error) {
	started := time.Now()

	sessionID := req.SessionId
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	// Session-independent queries (no history yet) are answerable from the
	// cache; anything with history depends on the conversation and is not.
	firstQuery := s.isFirstQuery(sessionID)
	if firstQuery {
		if resp := s.fromCache(ctx, sessionID, req.Query); resp != nil {
			resp.LatencyMs = time.Since(started).Milliseconds()
			return resp, nil
		}
	}

	result, err := s.executor.Execute(ctx, sessionID, req.Query)
	if err != nil {
		return nil, err
	}

	resp := &dto.QueryResponse{
		SessionId:          sessionID,
		Answer:             result.Answer,
		Outcome:            string(result.Outcome),
		Classification:     string(result.Classification),
		Provider:           result.Provider,
		Degraded:           result.Degraded,
		RetrievalDegraded:  result.RetrievalDegraded,
		Confidence:         result.Confidence,
		SearchMethod:       result.SearchMethod,
		ReferencedChunkIds: result.ReferencedChunkIds,
		Sources:            toSourceRefs(result.Sources),
		LatencyMs:          time.Since(started).Milliseconds(),
	}

	if firstQuery && cacheable(result) {
		s.store(ctx, req.Query, result)
	}

	return resp, nil
}

func (s *queryService) isFirstQuery(sessionID string) bool {
	snap, ok := s.sessions.Snapshot(sessionID)
	return !ok || len(snap.Turns) == 0
}

// fromCache serves a previously grounded answer and still records the
// exchange in session memory so follow-ups classify correctly.
func (s *queryService) fromCache(ctx context.Context, sessionID, query string) *dto.QueryResponse {
	snap := s.lifecycle.Current()
	if snap == nil {
		return nil
	}

	cached := s.answerCache.Get(ctx, query, snap.Generation)
	if cached == nil {
		return nil
	}

	chunkIDs := make([]uuid.UUID, 0, len(cached.ReferencedChunkIds))
	for _, raw := range cached.ReferencedChunkIds {
		if id, err := uuid.Parse(raw); err == nil {
			chunkIDs = append(chunkIDs, id)
		}
	}

	release := s.sessions.Acquire(sessionID)
	now := time.Now()
	s.sessions.Append(sessionID,
		session.Turn{Role: "user", Text: query, Timestamp: now},
		session.Turn{Role: "assistant", Text: cached.Answer, Timestamp: now, ReferencedChunkIds: chunkIDs},
	)
	release()

	sources := make([]dto.SourceRef, 0, len(cached.SourceTitles))
	for _, title := range cached.SourceTitles {
		sources = append(sources, dto.SourceRef{Title: title})
	}

	return &dto.QueryResponse{
		SessionId:          sessionID,
		Answer:             cached.Answer,
		Outcome:            string(executor.OutcomeAnswered),
		Classification:     string(session.NewSession),
		Provider:           cached.Provider,
		Confidence:         cached.Confidence,
		SearchMethod:       cached.SearchMethod,
		ReferencedChunkIds: chunkIDs,
		Sources:            sources,
		Cached:             true,
	}
}

func (s *queryService) store(ctx context.Context, query string, result *executor.Result) {
	chunkIDs := make([]string, 0, len(result.ReferencedChunkIds))
	for _, id := range result.ReferencedChunkIds {
		chunkIDs = append(chunkIDs, id.String())
	}
	titles := make([]string, 0, len(result.Sources))
	for _, src := range result.Sources {
		titles = append(titles, src.Title)
	}

	s.answerCache.Set(ctx, query, result.IndexGeneration, &memory.CachedAnswer{
		Answer:             result.Answer,
		Provider:           result.Provider,
		Confidence:         result.Confidence,
		SearchMethod:       result.SearchMethod,
		ReferencedChunkIds: chunkIDs,
		SourceTitles:       titles,
	})
}

// cacheable restricts memoization to clean grounded answers.
func cacheable(result *executor.Result) bool {
	return result.Outcome == executor.OutcomeAnswered &&
		!result.Degraded &&
		!result.RetrievalDegraded &&
		result.Classification == session.NewSession
}

func toSourceRefs(refs []executor.SourceRef) []dto.SourceRef {
	out := make([]dto.SourceRef, 0, len(refs))
	for _, r := range refs {
		out = append(out, dto.SourceRef{Title: r.Title, SourceURI: r.SourceURI})
	}
	return out
}

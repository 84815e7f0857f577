package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"law-mate-be/internal/pkg/logger"
	"law-mate-be/pkg/llm"
	"law-mate-be/pkg/rag/prompt"
	"law-mate-be/pkg/rag/response"
	"law-mate-be/pkg/rag/search"
	"law-mate-be/pkg/rag/session"

	"github.com/google/uuid"
)

// Stage identifies one step of the query pipeline.
type Stage string

const (
	StageIntake       Stage = "INTAKE"
	StageEnrich       Stage = "ENRICH"
	StageRetrieve     Stage = "RETRIEVE"
	StageGenerate     Stage = "GENERATE"
	StageMemoryUpdate Stage = "MEMORY_UPDATE"
	StageDone         Stage = "DONE"
	StageError        Stage = "ERROR"
)

// Outcome labels how a pipeline run concluded. Every outcome except
// OutcomeError is a successful response from the caller's point of view.
type Outcome string

const (
	OutcomeAnswered   Outcome = "ANSWERED"
	OutcomeNonLegal   Outcome = "NON_LEGAL"
	OutcomeNoEvidence Outcome = "NO_EVIDENCE"
	OutcomeFallback   Outcome = "FALLBACK"
	OutcomeError      Outcome = "ERROR"
)

// ErrRetrievalUnavailable means retrieval could not run at all (no index
// published, or storage failure) as opposed to running degraded.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable")

// SourceRef attributes an answer to a statute.
type SourceRef struct {
	Title     string `json:"title"`
	SourceURI string `json:"source_uri"`
}

// Result is the pipeline's answer to one query.
type Result struct {
	Answer             string
	Outcome            Outcome
	Classification     session.Classification
	Provider           string
	Degraded           bool // fixed fallback answer, every provider failed
	RetrievalDegraded  bool // lexical-only ranking, vector side was down
	Confidence         float64
	SearchMethod       string
	ReferencedChunkIds []uuid.UUID
	Sources            []SourceRef
	IndexGeneration    int64
}

const (
	SearchMethodHybrid      = "hybrid"
	SearchMethodLexicalOnly = "lexical_only"
)

// Retriever is what the pipeline needs from the search layer.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (*search.Retrieved, error)
}

type Config struct {
	MaxQueryLen     int
	OverallTimeout  time.Duration
	RetrieveTimeout time.Duration
	GenerateTimeout time.Duration // per provider call
	RetryBackoff    time.Duration
	Temperature     float64
	CarryoverTerms  int // max terms folded into a continuation query
}

func DefaultConfig() Config {
	return Config{
		MaxQueryLen:     1000,
		OverallTimeout:  60 * time.Second,
		RetrieveTimeout: 10 * time.Second,
		GenerateTimeout: 30 * time.Second,
		RetryBackoff:    500 * time.Millisecond,
		Temperature:     0.5,
		CarryoverTerms:  5,
	}
}

// PipelineExecutor drives a query through INTAKE → ENRICH → RETRIEVE →
// GENERATE → MEMORY_UPDATE. Per-stage failures become typed outcomes; only
// input validation and total retrieval unavailability surface as errors.
type PipelineExecutor struct {
	sessions  *session.Manager
	retriever Retriever
	providers []llm.LLMProvider
	reporter  StageReporter
	cfg       Config
	log       logger.ILogger

	// sleep is swapped in tests so backoff does not slow them down.
	sleep func(time.Duration)
}

func NewPipelineExecutor(
	sessions *session.Manager,
	retriever Retriever,
	providers []llm.LLMProvider,
	reporter StageReporter,
	cfg Config,
	log logger.ILogger,
) *PipelineExecutor {
	if cfg.MaxQueryLen <= 0 {
		cfg.MaxQueryLen = DefaultConfig().MaxQueryLen
	}
	if cfg.OverallTimeout <= 0 {
		cfg.OverallTimeout = DefaultConfig().OverallTimeout
	}
	if cfg.RetrieveTimeout <= 0 {
		cfg.RetrieveTimeout = DefaultConfig().RetrieveTimeout
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = DefaultConfig().GenerateTimeout
	}
	if cfg.CarryoverTerms <= 0 {
		cfg.CarryoverTerms = DefaultConfig().CarryoverTerms
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &PipelineExecutor{
		sessions:  sessions,
		retriever: retriever,
		providers: providers,
		reporter:  reporter,
		cfg:       cfg,
		log:       log,
		sleep:     time.Sleep,
	}
}

// Execute runs the full pipeline for one query. The session's critical
// section is held from classification through the memory update, so racing
// queries for one session apply their turns in arrival order.
func (p *PipelineExecutor) Execute(ctx context.Context, sessionID, query string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.OverallTimeout)
	defer cancel()

	// INTAKE
	intakeStart := time.Now()
	if err := validateQuery(query, p.cfg.MaxQueryLen); err != nil {
		p.report(ctx, sessionID, StageIntake, string(OutcomeError), "", intakeStart, err)
		return nil, err
	}
	query = strings.TrimSpace(query)

	if !isLegalQuery(query) {
		p.report(ctx, sessionID, StageIntake, string(OutcomeNonLegal), "", intakeStart, nil)
		return &Result{
			Answer:  response.NonLegalRedirect,
			Outcome: OutcomeNonLegal,
		}, nil
	}
	p.report(ctx, sessionID, StageIntake, "OK", "", intakeStart, nil)

	release := p.sessions.Acquire(sessionID)
	defer release()

	// ENRICH
	enrichStart := time.Now()
	classification := p.sessions.Classify(sessionID, query)
	enriched := query
	switch classification {
	case session.Continuation:
		if snap, ok := p.sessions.Snapshot(sessionID); ok {
			enriched = p.enrich(query, snap.LastSignature)
		}
	case session.TopicShift:
		p.sessions.ResetSignature(sessionID)
	}
	p.report(ctx, sessionID, StageEnrich, string(classification), "", enrichStart, nil)

	// RETRIEVE
	retrieveStart := time.Now()
	retrieveCtx, retrieveCancel := context.WithTimeout(ctx, p.cfg.RetrieveTimeout)
	retrieved, err := p.retriever.Retrieve(retrieveCtx, enriched)
	retrieveCancel()

	if err != nil && !errors.Is(err, search.ErrNoEvidence) {
		p.report(ctx, sessionID, StageRetrieve, string(OutcomeError), "", retrieveStart, err)
		return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}

	result := &Result{
		Classification: classification,
		Outcome:        OutcomeAnswered,
	}
	if retrieved != nil {
		result.RetrievalDegraded = retrieved.Degraded
		result.IndexGeneration = retrieved.Generation
		result.SearchMethod = SearchMethodHybrid
		if retrieved.Degraded {
			result.SearchMethod = SearchMethodLexicalOnly
		}
		if len(retrieved.Evidence) > 0 {
			result.Confidence = retrieved.Evidence[0].Score
		}
	}

	if errors.Is(err, search.ErrNoEvidence) {
		p.report(ctx, sessionID, StageRetrieve, string(OutcomeNoEvidence), "", retrieveStart, nil)
		result.Answer = response.InsufficientEvidence
		result.Outcome = OutcomeNoEvidence
		return p.finish(ctx, sessionID, query, result)
	}
	p.report(ctx, sessionID, StageRetrieve, "OK", "", retrieveStart, nil)

	for _, ev := range retrieved.Evidence {
		result.ReferencedChunkIds = append(result.ReferencedChunkIds, ev.ChunkId)
	}
	result.Sources = sourceRefs(retrieved.Evidence)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// GENERATE
	generateStart := time.Now()
	history, _ := p.sessions.Snapshot(sessionID)
	messages := prompt.Build(query, retrieved.Evidence, history)

	answer, provider, genErr := p.generate(ctx, messages)
	if genErr != nil {
		p.report(ctx, sessionID, StageGenerate, string(OutcomeFallback), provider, generateStart, genErr)
		result.Answer = response.ProviderFallback
		result.Outcome = OutcomeFallback
		result.Degraded = true
		result.Provider = ""
	} else {
		p.report(ctx, sessionID, StageGenerate, "OK", provider, generateStart, nil)
		result.Answer = withDisclaimer(answer)
		result.Provider = provider
	}

	return p.finish(ctx, sessionID, query, result)
}

// withDisclaimer closes a generated answer with the consult-a-professional
// guidance. Fixed templates carry their own wording and skip it.
func withDisclaimer(answer string) string {
	trimmed := strings.TrimSpace(answer)
	if strings.HasSuffix(trimmed, response.Disclaimer) {
		return trimmed
	}
	return trimmed + "\n\n" + response.Disclaimer
}

// finish applies MEMORY_UPDATE and closes the run. The turn pair is
// appended atomically; if the overall deadline has already expired, memory
// is left untouched and the caller gets the deadline error, never a
// half-recorded conversation.
func (p *PipelineExecutor) finish(ctx context.Context, sessionID, query string, result *Result) (*Result, error) {
	if err := ctx.Err(); err != nil {
		p.report(ctx, sessionID, StageError, string(OutcomeError), "", time.Now(), err)
		return nil, err
	}

	memoryStart := time.Now()
	now := time.Now()
	p.sessions.Append(sessionID,
		session.Turn{Role: "user", Text: query, Timestamp: now},
		session.Turn{Role: "assistant", Text: result.Answer, Timestamp: now, ReferencedChunkIds: result.ReferencedChunkIds},
	)
	p.report(ctx, sessionID, StageMemoryUpdate, "OK", "", memoryStart, nil)
	p.report(ctx, sessionID, StageDone, string(result.Outcome), result.Provider, memoryStart, nil)
	return result, nil
}

// generate walks the provider chain: one retry with backoff per provider,
// a bounded timeout per call, then failover to the next.
func (p *PipelineExecutor) generate(ctx context.Context, messages []llm.Message) (string, string, error) {
	if len(p.providers) == 0 {
		return "", "", fmt.Errorf("no generative providers configured")
	}

	var lastErr error
	for _, provider := range p.providers {
		for attempt := 0; attempt < 2; attempt++ {
			if err := ctx.Err(); err != nil {
				return "", "", err
			}
			if attempt > 0 {
				p.sleep(p.cfg.RetryBackoff)
			}

			callCtx, cancel := context.WithTimeout(ctx, p.cfg.GenerateTimeout)
			answer, err := provider.Chat(callCtx, messages, llm.WithTemperature(p.cfg.Temperature))
			cancel()

			if err == nil && strings.TrimSpace(answer) != "" {
				return answer, provider.Name(), nil
			}
			if err == nil {
				err = fmt.Errorf("provider %s returned empty answer", provider.Name())
			}
			lastErr = err
			p.log.Warn("pipeline", "generation attempt failed", map[string]interface{}{
				"provider": provider.Name(),
				"attempt":  attempt + 1,
				"error":    err.Error(),
			})
		}
	}
	return "", "", fmt.Errorf("all providers failed: %w", lastErr)
}

// enrich folds carried-over subject terms from the previous signature into
// a continuation query so retrieval sees the resolved topic.
func (p *PipelineExecutor) enrich(query string, prevSignature []string) string {
	current := make(map[string]bool)
	for _, term := range session.TopicSignature(query) {
		current[term] = true
	}

	var carried []string
	for _, term := range prevSignature {
		if current[term] {
			continue
		}
		carried = append(carried, term)
		if len(carried) >= p.cfg.CarryoverTerms {
			break
		}
	}
	if len(carried) == 0 {
		return query
	}
	return query + " " + strings.Join(carried, " ")
}

func (p *PipelineExecutor) report(ctx context.Context, sessionID string, stage Stage, outcome, provider string, start time.Time, err error) {
	event := StageEvent{
		SessionId: sessionID,
		Stage:     stage,
		Outcome:   outcome,
		Provider:  provider,
		Duration:  time.Since(start),
	}
	if err != nil {
		event.Error = err.Error()
	}
	p.reporter.Report(ctx, event)
}

func sourceRefs(evidence []search.Evidence) []SourceRef {
	seen := make(map[string]bool)
	var refs []SourceRef
	for _, ev := range evidence {
		key := ev.Title + "|" + ev.SourceURI
		if seen[key] {
			continue
		}
		seen[key] = true
		refs = append(refs, SourceRef{Title: ev.Title, SourceURI: ev.SourceURI})
	}
	return refs
}

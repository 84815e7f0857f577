package bootstrap

import (
	"context"
	"log"
	"time"

	"law-mate-be/internal/config"
	"law-mate-be/internal/controller"
	"law-mate-be/internal/pkg/logger"
	"law-mate-be/internal/repository/memory"
	"law-mate-be/internal/repository/unitofwork"
	"law-mate-be/internal/service"
	"law-mate-be/pkg/collector/lawapi"
	"law-mate-be/pkg/embedding"
	"law-mate-be/pkg/index"
	"law-mate-be/pkg/lexical"
	"law-mate-be/pkg/llm/factory"
	pktNats "law-mate-be/pkg/nats"
	"law-mate-be/pkg/rag/executor"
	"law-mate-be/pkg/rag/search"
	"law-mate-be/pkg/rag/session"
	"law-mate-be/pkg/semantic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	QueryController controller.IQueryController
	AdminController controller.IAdminController

	// Background services (run by main)
	SchedulerService    service.ISchedulerService
	StageConsumer       service.IStageConsumerService
	Lifecycle           *index.Lifecycle
	Logger              logger.ILogger
	NatsPublisher       *pktNats.Publisher
	ShutdownConnections func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	providers, err := factory.NewFallbackChain(
		factory.ProviderConfig{
			Type:    cfg.Ai.LLMProvider,
			Model:   cfg.Ai.LLMModel,
			APIKey:  cfg.Keys.OpenAI,
			BaseURL: cfg.Ai.OllamaBaseURL,
		},
		factory.ProviderConfig{
			Type:    cfg.Ai.FallbackProvider,
			Model:   cfg.Ai.FallbackModel,
			APIKey:  cfg.Keys.OpenAI,
			BaseURL: cfg.Ai.OllamaBaseURL,
		},
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM providers: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s), fallback: %s", cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.FallbackProvider)

	// 4. External infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}
	answerCache := memory.NewAnswerCache(rdb, time.Hour)

	// 5. Retrieval core
	tokenizer := lexical.NewStandardTokenizer()
	chunker := index.NewChunker(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap, tokenizer)
	lawCollector := lawapi.NewClient(
		cfg.Collector.BaseURL,
		cfg.Collector.UserID,
		cfg.Collector.Keywords,
		cfg.Collector.MaxDocs,
	)

	lifecycle := index.NewLifecycle(
		lawCollector,
		embeddingProvider,
		tokenizer,
		chunker,
		uowFactory,
		lexical.Params{K1: cfg.Index.BM25K1, B: cfg.Index.BM25B},
		sysLogger,
	)
	if err := lifecycle.Load(context.Background()); err != nil {
		log.Printf("[WARN] Failed to load persisted index generation: %v", err)
	}

	searcher := semantic.NewStoreSearcher(uowFactory)
	retriever := search.NewHybridRetriever(
		lifecycle,
		searcher,
		embeddingProvider,
		tokenizer,
		uowFactory,
		search.Config{
			TopK:           cfg.Retrieval.TopK,
			Floor:          cfg.Retrieval.SimilarityThreshold,
			Weights:        search.Weights{Lexical: cfg.Retrieval.BM25Weight, Vector: cfg.Retrieval.VectorWeight},
			CandidateLimit: cfg.Retrieval.CandidateLimit,
		},
		sysLogger,
	)

	// 6. Pipeline
	sessions := session.NewManager(session.Config{
		Capacity:         cfg.Session.Capacity,
		TTL:              cfg.Session.TTL,
		OverlapThreshold: cfg.Session.OverlapThreshold,
	})

	reporter := executor.NewWatermillReporter(pubSub, cfg.App.StageTopicName)
	pipeline := executor.NewPipelineExecutor(
		sessions,
		retriever,
		providers,
		reporter,
		executor.Config{
			OverallTimeout:  cfg.Ai.OverallTimeout,
			RetrieveTimeout: cfg.Retrieval.Timeout,
			GenerateTimeout: cfg.Ai.GenerateTimeout,
			Temperature:     cfg.Ai.Temperature,
		},
		sysLogger,
	)

	// 7. Services
	queryService := service.NewQueryService(pipeline, sessions, lifecycle, answerCache, sysLogger)
	adminService := service.NewAdminService(lifecycle, sessions, natsPub, cfg, sysLogger)
	schedulerService := service.NewSchedulerService(
		lifecycle,
		sessions,
		cfg.Index.RebuildSchedule,
		cfg.Session.SweepSchedule,
		sysLogger,
	)
	stageConsumer := service.NewStageConsumerService(pubSub, cfg.App.StageTopicName, natsPub)

	return &Container{
		QueryController: controller.NewQueryController(queryService),
		AdminController: controller.NewAdminController(adminService),

		SchedulerService: schedulerService,
		StageConsumer:    stageConsumer,
		Lifecycle:        lifecycle,
		Logger:           sysLogger,
		NatsPublisher:    natsPub,
		ShutdownConnections: func() {
			if natsPub != nil {
				natsPub.Close()
			}
			_ = rdb.Close()
		},
	}
}

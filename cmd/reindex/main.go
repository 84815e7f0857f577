package main

import (
	"context"
	"log"
	"time"

	"law-mate-be/internal/config"
	"law-mate-be/internal/pkg/logger"
	"law-mate-be/internal/repository/unitofwork"
	"law-mate-be/pkg/collector/lawapi"
	"law-mate-be/pkg/database"
	"law-mate-be/pkg/embedding"
	"law-mate-be/pkg/index"
	"law-mate-be/pkg/lexical"

	"github.com/fatih/color"
)

// One-off index rebuild from the command line. Collects the document set,
// builds the next generation, and publishes it, exactly like the scheduled
// rebuild in the server.
func main() {
	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("Unable to connect to GORM DB: %v", err)
	}

	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	tokenizer := lexical.NewStandardTokenizer()

	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
	}

	lifecycle := index.NewLifecycle(
		lawapi.NewClient(cfg.Collector.BaseURL, cfg.Collector.UserID, cfg.Collector.Keywords, cfg.Collector.MaxDocs),
		embeddingProvider,
		tokenizer,
		index.NewChunker(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap, tokenizer),
		uowFactory,
		lexical.Params{K1: cfg.Index.BM25K1, B: cfg.Index.BM25B},
		sysLogger,
	)

	if err := lifecycle.Load(context.Background()); err != nil {
		color.Yellow("Warning: could not load existing generation: %v", err)
	}
	if current := lifecycle.Current(); current != nil {
		color.Cyan("Current generation: %d (%d documents, %d chunks)",
			current.Generation, current.DocumentCount, current.ChunkCount)
	} else {
		color.Cyan("No generation published yet")
	}

	color.White("Rebuilding index...")
	started := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	snap, err := lifecycle.Rebuild(ctx)
	if err != nil {
		color.Red("Rebuild failed: %v", err)
		log.Fatal(err)
	}

	color.Green("✅ Published generation %d: %d documents, %d chunks in %s",
		snap.Generation, snap.DocumentCount, snap.ChunkCount, time.Since(started).Round(time.Second))
}

package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Keys      APIKeys
	Ai        AIConfig
	Retrieval RetrievalConfig
	Session   SessionConfig
	Index     IndexConfig
	Collector CollectorConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	StageTopicName     string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	OpenAI       string
	GoogleGemini string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // primary: "openai" or "ollama"
	LLMModel          string
	FallbackProvider  string // secondary provider, empty disables failover
	FallbackModel     string
	Temperature       float64
	GenerateTimeout   time.Duration
	OverallTimeout    time.Duration
}

type RetrievalConfig struct {
	TopK                int
	SimilarityThreshold float64
	BM25Weight          float64
	VectorWeight        float64
	CandidateLimit      int
	Timeout             time.Duration
}

type SessionConfig struct {
	Capacity         int
	TTL              time.Duration
	OverlapThreshold float64
	SweepSchedule    string // cron expression
}

type IndexConfig struct {
	ChunkSize       int
	ChunkOverlap    int
	BM25K1          float64
	BM25B           float64
	RebuildSchedule string // cron expression, empty disables scheduled rebuilds
}

type CollectorConfig struct {
	BaseURL  string
	UserID   string // law.go.kr OC account id
	Keywords []string
	MaxDocs  int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			StageTopicName:     getEnv("STAGE_TOPIC_NAME", "pipeline.stages"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "openai"),
			LLMModel:          getEnv("LLM_MODEL", "gpt-4o"),
			FallbackProvider:  getEnv("LLM_FALLBACK_PROVIDER", "ollama"),
			FallbackModel:     getEnv("LLM_FALLBACK_MODEL", "llama3"),
			Temperature:       getEnvAsFloat("LLM_TEMPERATURE", 0.5),
			GenerateTimeout:   getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
			OverallTimeout:    getEnvAsDuration("PIPELINE_TIMEOUT", 60*time.Second),
		},
		Retrieval: RetrievalConfig{
			TopK:                getEnvAsInt("TOP_K_DOCUMENTS", 5),
			SimilarityThreshold: getEnvAsFloat("SIMILARITY_THRESHOLD", 0.7),
			BM25Weight:          getEnvAsFloat("BM25_WEIGHT", 0.3),
			VectorWeight:        getEnvAsFloat("VECTOR_WEIGHT", 0.7),
			CandidateLimit:      getEnvAsInt("RETRIEVAL_CANDIDATE_LIMIT", 20),
			Timeout:             getEnvAsDuration("RETRIEVAL_TIMEOUT", 10*time.Second),
		},
		Session: SessionConfig{
			Capacity:         getEnvAsInt("SESSION_CAPACITY", 10),
			TTL:              getEnvAsDuration("SESSION_TTL", 30*time.Minute),
			OverlapThreshold: getEnvAsFloat("SESSION_OVERLAP_THRESHOLD", 0.25),
			SweepSchedule:    getEnv("SESSION_SWEEP_SCHEDULE", "*/5 * * * *"),
		},
		Index: IndexConfig{
			ChunkSize:       getEnvAsInt("CHUNK_SIZE", 1000),
			ChunkOverlap:    getEnvAsInt("CHUNK_OVERLAP", 200),
			BM25K1:          getEnvAsFloat("BM25_K1", 1.2),
			BM25B:           getEnvAsFloat("BM25_B", 0.75),
			RebuildSchedule: getEnv("INDEX_REBUILD_SCHEDULE", "0 4 * * *"),
		},
		Collector: CollectorConfig{
			BaseURL:  getEnv("LAW_API_BASE_URL", "http://www.law.go.kr/DRF"),
			UserID:   getEnv("LAW_API_USER_ID", ""),
			Keywords: getEnvAsSlice("LAW_API_KEYWORDS", []string{"주택임대차보호법", "민법", "근로기준법"}),
			MaxDocs:  getEnvAsInt("LAW_API_MAX_DOCS", 200),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsSlice(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	parts := strings.Split(strValue, ",")
	out := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

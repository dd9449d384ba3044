package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Supported vector backends.
const (
	BackendSQLite   = "sqlite"
	BackendQdrant   = "qdrant"
	BackendPgvector = "pgvector"
)

// Config holds all configuration for the application.
type Config struct {
	APIPort   string
	DBPath    string
	LogLevel  slog.Level
	LogFormat string

	EmbeddingBaseURL string
	EmbeddingAPIKey  string
	Embedding        EmbeddingConfig

	Chunking  ChunkingConfig
	Retrieval RetrievalConfig

	MaxFileSize int64

	VectorBackend    string
	QdrantURL        string
	QdrantCollection string
	PgvectorDSN      string

	WatchDir string
}

// EmbeddingConfig tunes the remote embedding calls.
type EmbeddingConfig struct {
	Model         string
	Dimension     int
	BatchSize     int
	MaxInputChars int
	MaxRetries    int
	RetryDelay    time.Duration
	RateLimit     float64
	Timeout       time.Duration
}

// ChunkingConfig controls document segmentation.
type ChunkingConfig struct {
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`
	MinChunkSize int `toml:"min_chunk_size"`
}

// RetrievalConfig controls similarity search.
type RetrievalConfig struct {
	TopK                int     `toml:"top_k"`
	MaxTopK             int     `toml:"max_top_k"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
}

// fileConfig mirrors the optional TOML tuning file.
type fileConfig struct {
	Chunking  *ChunkingConfig  `toml:"chunking"`
	Embedding *fileEmbedding   `toml:"embedding"`
	Retrieval *RetrievalConfig `toml:"retrieval"`
}

// fileEmbedding keeps durations as strings ("500ms", "30s") in the TOML file.
type fileEmbedding struct {
	Model         string  `toml:"model"`
	Dimension     int     `toml:"dimension"`
	BatchSize     int     `toml:"batch_size"`
	MaxInputChars int     `toml:"max_input_chars"`
	MaxRetries    int     `toml:"max_retries"`
	RetryDelay    string  `toml:"retry_delay"`
	RateLimit     float64 `toml:"rate_limit"`
	Timeout       string  `toml:"timeout"`
}

// Defaults returns the built-in configuration before environment overrides.
func Defaults() *Config {
	return &Config{
		APIPort:          "9000",
		DBPath:           "./data/helpdesk-kb.db",
		LogLevel:         slog.LevelInfo,
		LogFormat:        "text",
		EmbeddingBaseURL: "https://openrouter.ai/api/v1",
		Embedding: EmbeddingConfig{
			Model:         "text-embedding-ada-002",
			Dimension:     1536,
			BatchSize:     100,
			MaxInputChars: 8000,
			MaxRetries:    2,
			RetryDelay:    time.Second,
			Timeout:       30 * time.Second,
		},
		Chunking: ChunkingConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
			MinChunkSize: 100,
		},
		Retrieval: RetrievalConfig{
			TopK:                5,
			MaxTopK:             20,
			SimilarityThreshold: 0.7,
		},
		MaxFileSize:      10 * 1024 * 1024,
		VectorBackend:    BackendSQLite,
		QdrantURL:        "http://localhost:6333",
		QdrantCollection: "knowledge",
	}
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the result.
// If a .env file exists in the current directory or a parent, it is loaded first;
// variables already set take precedence over .env values.
// RAG_CONFIG_FILE may point to a TOML file overriding the tuning sections.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := Defaults()

	if path := os.Getenv("RAG_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Create the data directory for the SQLite file
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads .env from the working directory or the nearest parent that has one.
func loadDotEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read RAG_CONFIG_FILE: %w", err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse RAG_CONFIG_FILE %s: %w", path, err)
	}

	if fc.Chunking != nil {
		mergeInt(&c.Chunking.ChunkSize, fc.Chunking.ChunkSize)
		mergeInt(&c.Chunking.ChunkOverlap, fc.Chunking.ChunkOverlap)
		mergeInt(&c.Chunking.MinChunkSize, fc.Chunking.MinChunkSize)
	}
	if fc.Embedding != nil {
		if fc.Embedding.Model != "" {
			c.Embedding.Model = fc.Embedding.Model
		}
		mergeInt(&c.Embedding.Dimension, fc.Embedding.Dimension)
		mergeInt(&c.Embedding.BatchSize, fc.Embedding.BatchSize)
		mergeInt(&c.Embedding.MaxInputChars, fc.Embedding.MaxInputChars)
		mergeInt(&c.Embedding.MaxRetries, fc.Embedding.MaxRetries)
		if fc.Embedding.RetryDelay != "" {
			d, err := time.ParseDuration(fc.Embedding.RetryDelay)
			if err != nil {
				return fmt.Errorf("embedding.retry_delay must be a valid duration: %w", err)
			}
			c.Embedding.RetryDelay = d
		}
		if fc.Embedding.RateLimit > 0 {
			c.Embedding.RateLimit = fc.Embedding.RateLimit
		}
		if fc.Embedding.Timeout != "" {
			d, err := time.ParseDuration(fc.Embedding.Timeout)
			if err != nil {
				return fmt.Errorf("embedding.timeout must be a valid duration: %w", err)
			}
			c.Embedding.Timeout = d
		}
	}
	if fc.Retrieval != nil {
		mergeInt(&c.Retrieval.TopK, fc.Retrieval.TopK)
		mergeInt(&c.Retrieval.MaxTopK, fc.Retrieval.MaxTopK)
		if fc.Retrieval.SimilarityThreshold != 0 {
			c.Retrieval.SimilarityThreshold = fc.Retrieval.SimilarityThreshold
		}
	}
	return nil
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func (c *Config) applyEnv() error {
	c.APIPort = getEnv("API_PORT", c.APIPort)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", c.LogFormat))

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if err := c.LogLevel.UnmarshalText([]byte(lvl)); err != nil {
			return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error: %w", err)
		}
	}

	c.EmbeddingBaseURL = getEnv("EMBEDDING_BASE_URL", c.EmbeddingBaseURL)
	c.EmbeddingAPIKey = getEnv("EMBEDDING_API_KEY", os.Getenv("OPENROUTER_API_KEY"))
	c.Embedding.Model = getEnv("EMBEDDING_MODEL", c.Embedding.Model)
	c.QdrantURL = getEnv("QDRANT_URL", c.QdrantURL)
	c.QdrantCollection = getEnv("QDRANT_COLLECTION", c.QdrantCollection)
	c.PgvectorDSN = getEnv("PGVECTOR_DSN", c.PgvectorDSN)
	c.VectorBackend = strings.ToLower(getEnv("VECTOR_BACKEND", c.VectorBackend))
	c.WatchDir = getEnv("WATCH_DIR", c.WatchDir)

	ints := []struct {
		key string
		dst *int
	}{
		{"EMBEDDING_DIMENSION", &c.Embedding.Dimension},
		{"EMBEDDING_BATCH_SIZE", &c.Embedding.BatchSize},
		{"EMBEDDING_MAX_INPUT_CHARS", &c.Embedding.MaxInputChars},
		{"EMBEDDING_MAX_RETRIES", &c.Embedding.MaxRetries},
		{"CHUNK_SIZE", &c.Chunking.ChunkSize},
		{"CHUNK_OVERLAP", &c.Chunking.ChunkOverlap},
		{"MIN_CHUNK_SIZE", &c.Chunking.MinChunkSize},
		{"RETRIEVAL_TOP_K", &c.Retrieval.TopK},
		{"RETRIEVAL_MAX_TOP_K", &c.Retrieval.MaxTopK},
	}
	for _, e := range ints {
		if err := getEnvInt(e.key, e.dst); err != nil {
			return err
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"EMBEDDING_RETRY_DELAY", &c.Embedding.RetryDelay},
		{"EMBEDDING_TIMEOUT", &c.Embedding.Timeout},
	}
	for _, e := range durations {
		if err := getEnvDuration(e.key, e.dst); err != nil {
			return err
		}
	}

	if err := getEnvFloat("SIMILARITY_THRESHOLD", &c.Retrieval.SimilarityThreshold); err != nil {
		return err
	}
	if err := getEnvFloat("EMBEDDING_RATE_LIMIT", &c.Embedding.RateLimit); err != nil {
		return err
	}

	if v := os.Getenv("MAX_FILE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_FILE_SIZE must be a valid integer: %w", err)
		}
		c.MaxFileSize = n
	}

	return nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSION must be greater than 0")
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("EMBEDDING_BATCH_SIZE must be greater than 0")
	}
	if c.Embedding.MaxInputChars <= 0 {
		return fmt.Errorf("EMBEDDING_MAX_INPUT_CHARS must be greater than 0")
	}
	if c.Embedding.MaxRetries < 0 || c.Embedding.MaxRetries > 10 {
		return fmt.Errorf("EMBEDDING_MAX_RETRIES must be 0-10, got %d", c.Embedding.MaxRetries)
	}
	if c.Embedding.RateLimit < 0 {
		return fmt.Errorf("EMBEDDING_RATE_LIMIT must not be negative")
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be greater than 0")
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be between 0 and CHUNK_SIZE-1, got %d", c.Chunking.ChunkOverlap)
	}
	if c.Chunking.MinChunkSize <= 0 {
		return fmt.Errorf("MIN_CHUNK_SIZE must be greater than 0")
	}
	if c.Chunking.MinChunkSize > c.Chunking.ChunkSize {
		return fmt.Errorf("MIN_CHUNK_SIZE must not exceed CHUNK_SIZE, got %d > %d", c.Chunking.MinChunkSize, c.Chunking.ChunkSize)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be greater than 0")
	}
	if c.Retrieval.MaxTopK < c.Retrieval.TopK {
		return fmt.Errorf("RETRIEVAL_MAX_TOP_K must be at least RETRIEVAL_TOP_K")
	}
	if c.Retrieval.SimilarityThreshold < -1 || c.Retrieval.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be within [-1, 1], got %f", c.Retrieval.SimilarityThreshold)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be greater than 0")
	}
	switch c.VectorBackend {
	case BackendSQLite, BackendQdrant:
	case BackendPgvector:
		if c.PgvectorDSN == "" {
			return fmt.Errorf("PGVECTOR_DSN is required when VECTOR_BACKEND=pgvector")
		}
	default:
		return fmt.Errorf("VECTOR_BACKEND must be sqlite, qdrant or pgvector, got %q", c.VectorBackend)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	*dst = n
	return nil
}

func getEnvFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	*dst = f
	return nil
}

func getEnvDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	*dst = d
	return nil
}

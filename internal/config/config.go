package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dshills/personarag/internal/embedder"
)

// Store backends
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Cache backends
const (
	CacheRedis  = "redis"
	CacheMemory = "memory"
	CacheNone   = "none"
)

// Defaults
const (
	DefaultDBPath   = ".personarag/personarag.db"
	DefaultHTTPAddr = ":8080"
	DefaultLogFile  = "/tmp/personarag.log"
)

// Config holds all configuration values.
type Config struct {
	// Store
	Store       string
	DBPath      string
	DatabaseURL string

	// Cache
	Cache          string
	RedisURL       string
	RedisToken     string
	RedisKeyPrefix string
	MemoryCacheLen int

	// Embeddings
	EmbeddingProvider  string
	OpenAIAPIKey       string
	JinaAPIKey         string
	EmbeddingModel     string
	EmbeddingDimension int
	EmbeddingRPS       float64

	// Query expansion
	DictionaryFile string

	// HTTP transport
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads an optional .env file, then configuration from environment
// variables. Variables already set in the environment win over .env.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	dimension, err := getEnvInt("PERSONARAG_EMBEDDING_DIMENSION", embedder.DefaultDimension)
	if err != nil {
		return Config{}, err
	}
	rps, err := getEnvFloat("PERSONARAG_EMBEDDING_RPS", 0)
	if err != nil {
		return Config{}, err
	}
	memLen, err := getEnvInt("PERSONARAG_MEMORY_CACHE_SIZE", 10000)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Store:       strings.ToLower(getEnv("PERSONARAG_STORE", StoreSQLite)),
		DBPath:      getEnv("PERSONARAG_DB_PATH", DefaultDBPath),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisURL:       getEnv("REDIS_URL", ""),
		RedisToken:     getEnv("REDIS_TOKEN", ""),
		RedisKeyPrefix: getEnv("PERSONARAG_REDIS_PREFIX", ""),
		MemoryCacheLen: memLen,

		EmbeddingProvider:  getEnv("PERSONARAG_EMBEDDING_PROVIDER", ""),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		JinaAPIKey:         getEnv("JINA_API_KEY", ""),
		EmbeddingModel:     getEnv("PERSONARAG_EMBEDDING_MODEL", ""),
		EmbeddingDimension: dimension,
		EmbeddingRPS:       rps,

		DictionaryFile: getEnv("PERSONARAG_DICTIONARY_FILE", ""),

		HTTPAddr:        getEnv("PERSONARAG_HTTP_ADDR", DefaultHTTPAddr),
		ShutdownTimeout: 10 * time.Second,

		LogFile:  getEnv("PERSONARAG_LOG_FILE", DefaultLogFile),
		LogLevel: ParseLogLevel(getEnv("PERSONARAG_LOG_LEVEL", "INFO")),
	}

	// Redis is used whenever it is configured, unless overridden
	defaultCache := CacheMemory
	if cfg.RedisURL != "" {
		defaultCache = CacheRedis
	}
	cfg.Cache = strings.ToLower(getEnv("PERSONARAG_CACHE", defaultCache))

	return cfg, cfg.Validate()
}

// Validate checks combinations Load cannot default its way out of
func (c Config) Validate() error {
	switch c.Store {
	case StoreSQLite:
		if c.DBPath == "" {
			return errors.New("PERSONARAG_DB_PATH is required for the sqlite store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}

	switch c.Cache {
	case CacheRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis cache")
		}
	case CacheMemory, CacheNone:
	default:
		return fmt.Errorf("unknown cache %q", c.Cache)
	}

	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.EmbeddingDimension)
	}
	if c.EmbeddingRPS < 0 {
		return fmt.Errorf("embedding rate must not be negative, got %v", c.EmbeddingRPS)
	}
	return nil
}

// Embedder returns the embedding provider configuration
func (c Config) Embedder() embedder.Config {
	return embedder.Config{
		Provider:          c.EmbeddingProvider,
		OpenAIAPIKey:      c.OpenAIAPIKey,
		JinaAPIKey:        c.JinaAPIKey,
		Model:             c.EmbeddingModel,
		Dimension:         c.EmbeddingDimension,
		RequestsPerSecond: c.EmbeddingRPS,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// ParseLogLevel maps a level name to slog.Level, defaulting to INFO
func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

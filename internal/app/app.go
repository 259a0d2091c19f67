// Package app assembles the retrieval engine from configuration and holds
// the components every transport serves.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/personarag/internal/cache"
	"github.com/dshills/personarag/internal/config"
	"github.com/dshills/personarag/internal/embedder"
	"github.com/dshills/personarag/internal/expander"
	"github.com/dshills/personarag/internal/ingest"
	"github.com/dshills/personarag/internal/retriever"
	"github.com/dshills/personarag/internal/storage"
	"github.com/dshills/personarag/internal/usercontext"
)

// App is the assembled engine
type App struct {
	Store        storage.Storage
	Cache        cache.Cache
	Embeddings   *embedder.Client
	Dictionaries expander.Set
	Retriever    *retriever.Retriever
	Loader       *usercontext.Loader
	Recorder     *usercontext.Recorder
	Ingester     *ingest.Ingester
	IngestLock   *ingest.Lock
	Logger       *slog.Logger

	provider embedder.Provider
	closers  []func() error
}

// Status is the engine-wide health report
type Status struct {
	Store      *storage.Status `json:"store"`
	Cache      string          `json:"cache"`
	CacheOK    bool            `json:"cache_ok"`
	Provider   string          `json:"embedding_provider"`
	Model      string          `json:"embedding_model"`
	Dimension  int             `json:"embedding_dimension"`
	Embeddings embedder.Stats  `json:"embedding_stats"`
	CheckedAt  time.Time       `json:"checked_at"`
}

// New opens the store, cache and embedding provider named by cfg
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dicts := expander.Defaults()
	if cfg.DictionaryFile != "" {
		var err error
		dicts, err = expander.LoadFile(dicts, cfg.DictionaryFile)
		if err != nil {
			return nil, err
		}
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c, err := openCache(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	provider, err := embedder.New(cfg.Embedder())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create embedding provider: %w", err)
	}

	a := Assemble(store, c, provider, dicts, logger)
	if r, ok := c.(*cache.Redis); ok {
		a.closers = append(a.closers, r.Close)
	}

	logger.Info("engine ready",
		"store", cfg.Store,
		"cache", cfg.Cache,
		"provider", provider.Name(),
		"model", provider.Model(),
		"dimension", provider.Dimension())
	return a, nil
}

// Assemble wires already-open components together
func Assemble(store storage.Storage, c cache.Cache, provider embedder.Provider, dicts expander.Set, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.Nop{}
	}

	client := embedder.NewClient(provider, c, logger)
	loader := usercontext.NewLoader(store, c, logger)

	return &App{
		Store:        store,
		Cache:        c,
		Embeddings:   client,
		Dictionaries: dicts,
		Retriever:    retriever.New(store, client, dicts, logger),
		Loader:       loader,
		Recorder:     usercontext.NewRecorder(store, loader, logger),
		Ingester:     ingest.New(store, client, logger),
		IngestLock:   &ingest.Lock{},
		Logger:       logger,
		provider:     provider,
		closers:      []func() error{provider.Close, store.Close},
	}
}

// Status reports store counts plus cache and provider state
func (a *App) Status(ctx context.Context) (*Status, error) {
	st, err := a.Store.Status(ctx)
	if err != nil {
		return nil, err
	}

	status := &Status{
		Store:      st,
		Cache:      cacheName(a.Cache),
		CacheOK:    true,
		Provider:   a.provider.Name(),
		Model:      a.provider.Model(),
		Dimension:  a.provider.Dimension(),
		Embeddings: a.Embeddings.Stats(),
		CheckedAt:  time.Now().UTC(),
	}
	if r, ok := a.Cache.(*cache.Redis); ok {
		status.CacheOK = r.Ping(ctx) == nil
	}
	return status, nil
}

// Close releases every component, returning the joined errors
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg config.Config) (storage.Storage, error) {
	switch cfg.Store {
	case config.StorePostgres:
		s, err := storage.NewPostgresStorage(ctx, cfg.DatabaseURL, cfg.EmbeddingDimension)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		s, err := storage.NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func openCache(cfg config.Config, logger *slog.Logger) (cache.Cache, error) {
	switch cfg.Cache {
	case config.CacheRedis:
		r, err := cache.NewRedis(cache.RedisConfig{
			URL:       cfg.RedisURL,
			Token:     cfg.RedisToken,
			KeyPrefix: cfg.RedisKeyPrefix,
		}, logger)
		if err != nil {
			return nil, err
		}
		return r, nil
	case config.CacheNone:
		return cache.Nop{}, nil
	default:
		return cache.NewMemory(cfg.MemoryCacheLen), nil
	}
}

func cacheName(c cache.Cache) string {
	switch c.(type) {
	case *cache.Redis:
		return config.CacheRedis
	case *cache.Memory:
		return config.CacheMemory
	default:
		return config.CacheNone
	}
}

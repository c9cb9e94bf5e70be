// Package app wires configuration into the repositories and services shared
// by the API server and the enrich command.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/timmy/gallery/internal/config"
	"github.com/timmy/gallery/internal/logger"
	"github.com/timmy/gallery/internal/repository"
	"github.com/timmy/gallery/internal/service"
	"github.com/timmy/gallery/internal/storage"
	"github.com/timmy/gallery/internal/vectorindex"
	"gorm.io/gorm"
)

// Options adjust how the application is assembled.
type Options struct {
	// LocalDispatch forces the in-process worker pool even when the config
	// selects NATS. One-shot commands use it to wait for their own jobs.
	LocalDispatch bool
}

// App holds the assembled components.
type App struct {
	Config *config.Config

	DB      *gorm.DB
	Photos  *repository.PhotoRepository
	Index   vectorindex.Store
	Storage storage.ObjectStorage

	Embedder   *service.FallbackEmbedder
	Captioner  *service.VLMService
	Enrichment *service.EnrichmentService
	Search     *service.SearchService
	PhotoSvc   *service.PhotoService
	Pool       *service.WorkerPool

	natsConn       *nats.Conn
	natsDispatcher *service.NATSDispatcher
}

// New builds every component from cfg. Nothing runs until Start.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.DB = db
	a.Photos = repository.NewPhotoRepository(db)

	if a.Index, err = newIndex(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	if a.Storage, err = newStorage(ctx, &cfg.Storage); err != nil {
		a.Close()
		return nil, err
	}

	a.Embedder, err = service.NewEmbeddingProvider(&service.EmbeddingProviderConfig{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    cfg.Embedding.Timeout,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Captioner = service.NewVLMService(&service.VLMConfig{
		Provider:      cfg.VLM.Provider,
		Model:         cfg.VLM.Model,
		APIKey:        cfg.VLM.APIKey,
		BaseURL:       cfg.VLM.BaseURL,
		Referer:       cfg.VLM.Referer,
		Title:         cfg.VLM.Title,
		MaxTokens:     cfg.VLM.MaxTokens,
		Timeout:       cfg.VLM.Timeout,
		RatePerSecond: cfg.VLM.RatePerSecond,
		Burst:         cfg.VLM.Burst,
	})
	if cfg.VLM.APIKey == "" {
		logger.Warn("[App] No caption API key configured, photos will be captioned as failed")
	}

	a.Enrichment = service.NewEnrichmentService(a.Photos, a.Captioner, a.Embedder, a.Index)
	a.Pool = service.NewWorkerPool(cfg.Enrich.Workers, cfg.Enrich.QueueSize, a.Enrichment.HandleJob)

	if cfg.Enrich.Dispatcher == "nats" && !opts.LocalDispatch {
		conn, err := nats.Connect(cfg.Enrich.NATS.URL,
			nats.Name(cfg.Enrich.NATS.Queue),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect nats %s: %w", cfg.Enrich.NATS.URL, err)
		}
		a.natsConn = conn
		a.natsDispatcher = service.NewNATSDispatcher(conn, cfg.Enrich.NATS.Subject, cfg.Enrich.NATS.Queue)
		a.Enrichment.SetDispatcher(a.natsDispatcher)
	} else {
		a.Enrichment.SetDispatcher(a.Pool)
	}

	a.Search = service.NewSearchService(a.Photos, a.Embedder, a.Index, &service.SearchConfig{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
	})
	a.PhotoSvc = service.NewPhotoService(a.Photos, a.Storage, cfg.Storage.KeyPrefix, a.Enrichment)

	logger.GetDefault().WithFields(logger.Fields{
		"index_backend": cfg.Index.Backend,
		"index_size":    a.Index.Size(),
		"embedding":     a.Embedder.Model(),
		"dimension":     a.Index.Dimension(),
		"dispatcher":    cfg.Enrich.Dispatcher,
	}).Info("[App] Components ready")
	return a, nil
}

// Start launches the worker pool and, with NATS dispatch, the job consumer.
// ctx bounds every background enrichment attempt.
func (a *App) Start(ctx context.Context) error {
	a.Pool.Start(ctx)
	if a.natsDispatcher != nil {
		if err := a.natsDispatcher.Consume(a.Pool); err != nil {
			return err
		}
	}
	return nil
}

// Close stops consumers, drains queued jobs and releases connections.
func (a *App) Close() {
	if a.natsDispatcher != nil {
		if err := a.natsDispatcher.Close(); err != nil {
			logger.Warn("[App] Failed to drain NATS subscription: %v", err)
		}
	}
	if a.Pool != nil {
		a.Pool.Stop()
	}
	if a.natsConn != nil {
		a.natsConn.Close()
	}
	if a.Index != nil {
		if err := a.Index.Close(); err != nil {
			logger.Warn("[App] Failed to close index: %v", err)
		}
	}
	if err := repository.CloseDB(a.DB); err != nil {
		logger.Warn("[App] Failed to close database: %v", err)
	}
}

func newIndex(ctx context.Context, cfg *config.Config) (vectorindex.Store, error) {
	dim := cfg.Embedding.Dimensions
	switch cfg.Index.Backend {
	case "qdrant":
		q := cfg.Index.Qdrant
		idx, err := repository.NewQdrantIndex(ctx, &repository.QdrantConnectionConfig{
			Host:            q.Host,
			Port:            q.Port,
			Collection:      q.Collection,
			APIKey:          q.APIKey,
			UseTLS:          q.UseTLS,
			VectorDimension: dim,
		})
		if err != nil {
			return nil, fmt.Errorf("init qdrant index: %w", err)
		}
		return idx, nil
	case "file", "":
		if err := os.MkdirAll(cfg.Index.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
		persister := vectorindex.NewFilePersister(cfg.Index.IndexPath(), cfg.Index.MappingPath(), dim)
		idx, err := vectorindex.NewFlatIndex(dim, persister)
		if err != nil {
			return nil, fmt.Errorf("load vector index: %w", err)
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
}

func newStorage(ctx context.Context, cfg *config.StorageConfig) (storage.ObjectStorage, error) {
	objectStorage, err := storage.NewStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if objectStorage == nil {
		logger.Info("[App] Object storage disabled")
		return nil, nil
	}
	if s3s, ok := objectStorage.(*storage.S3Storage); ok {
		if err := s3s.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
	}
	return objectStorage, nil
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/gallery/internal/app"
	"github.com/timmy/gallery/internal/config"
	"github.com/timmy/gallery/internal/logger"
	"github.com/timmy/gallery/internal/source"
	"github.com/timmy/gallery/internal/source/album"
	"github.com/timmy/gallery/internal/source/manifest"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "gallery-enrich",
	})
	logger.SetDefaultLogger(appLogger)

	retry := flag.Bool("retry", false, "Re-enrich photos in pending or error status")
	limit := flag.Int("limit", 100, "Maximum number of photos to retry or import (0 imports all)")
	photoID := flag.String("photo", "", "Enrich a single photo by id")
	query := flag.String("query", "", "Run a semantic search and print the matching ids")
	topK := flag.Int("top", 0, "Number of search results (0 uses the configured default)")
	importPath := flag.String("import", "", "Import photos from a local directory")
	sourceType := flag.String("source", "album", "Import source type: album or manifest")
	owner := flag.String("owner", "", "Owner recorded on album imports")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, app.Options{LocalDispatch: true})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize application")
	}
	defer a.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	switch {
	case *importPath != "":
		src, err := newSource(*sourceType, *importPath, *owner)
		if err != nil {
			appLogger.WithError(err).Fatal("Invalid import source")
		}
		if err := a.Start(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to start workers")
		}
		result, err := a.PhotoSvc.Import(ctx, src, *limit)
		a.Pool.Stop()
		if err != nil {
			appLogger.WithError(err).Error("Import aborted")
		}
		if result != nil {
			printJSON(result)
		}
	case *photoID != "":
		if err := a.Enrichment.Enrich(ctx, *photoID); err != nil {
			appLogger.WithError(err).WithField("photo_id", *photoID).Error("Enrichment failed")
		}
	case *retry:
		if err := a.Start(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to start workers")
		}
		result, err := a.Enrichment.RetryPending(ctx, *limit)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to retry pending photos")
		}
		// wait for every queued attempt
		a.Pool.Stop()
		appLogger.WithFields(logger.Fields{
			"queued":  len(result.Queued),
			"skipped": len(result.Skipped),
		}).Info("Retry completed")
	case *query != "":
		ids := a.Search.Search(ctx, *query, *topK)
		printJSON(map[string]interface{}{"query": *query, "photo_ids": ids})
	}

	stats, err := a.Enrichment.Stats(ctx)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to read stats")
	}
	printJSON(stats)
}

func newSource(kind, path, owner string) (source.Source, error) {
	switch kind {
	case "album":
		return album.NewAdapter(path, owner), nil
	case "manifest":
		return manifest.NewAdapter(path), nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", kind)
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

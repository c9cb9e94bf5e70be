package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/timmy/gallery/internal/logger"
	"github.com/timmy/gallery/internal/source"
)

const importBatchSize = 50

// ImportStats summarizes a bulk import.
type ImportStats struct {
	Total    int           `json:"total"`
	Imported int           `json:"imported"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Import uploads up to limit photos from src. Every photo goes through
// Upload, so it is stored, recorded as pending and queued for enrichment.
// A failing item is logged and counted; only source errors abort the run.
func (s *PhotoService) Import(ctx context.Context, src source.Source, limit int) (*ImportStats, error) {
	start := time.Now()
	stats := &ImportStats{}
	ctx = logger.SetComponent(ctx, "import")

	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		batchSize := importBatchSize
		if limit > 0 && limit-stats.Total < batchSize {
			batchSize = limit - stats.Total
		}
		if batchSize <= 0 {
			break
		}

		items, next, err := src.FetchBatch(ctx, cursor, batchSize)
		if err != nil {
			return stats, fmt.Errorf("fetch from %s: %w", src.GetSourceID(), err)
		}
		for _, item := range items {
			stats.Total++
			if err := s.importItem(ctx, item); err != nil {
				stats.Failed++
				logger.With(logger.Fields{"source_id": item.SourceID}).Warn(ctx, "Import failed: %v", err)
				continue
			}
			stats.Imported++
		}

		if next == "" {
			break
		}
		cursor = next
	}

	stats.Duration = time.Since(start)
	logger.With(logger.Fields{
		logger.FieldCount:      stats.Imported,
		logger.FieldDurationMs: stats.Duration.Milliseconds(),
		"failed":               stats.Failed,
	}).Info(ctx, "Import from %s finished", src.GetSourceID())
	return stats, nil
}

func (s *PhotoService) importItem(ctx context.Context, item source.PhotoItem) error {
	data, err := os.ReadFile(item.LocalPath)
	if err != nil {
		return err
	}
	_, err = s.Upload(ctx, UploadInput{
		FileName: item.FileName,
		Data:     data,
		PhotoMetadata: PhotoMetadata{
			ActivityName: item.ActivityName,
			ActivityDate: item.ActivityDate,
			Location:     item.Location,
			GroupName:    item.GroupName,
			Owner:        item.Owner,
		},
	})
	return err
}

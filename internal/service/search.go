package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
	"github.com/timmy/gallery/internal/vectorindex"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrEmptyQuery is returned when a search query is blank.
var ErrEmptyQuery = errors.New("query is required")

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// SearchConfig holds search limits.
type SearchConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// SearchService answers natural-language queries against the vector index.
type SearchService struct {
	photos       PhotoStore
	embedder     EmbeddingProvider
	index        vectorindex.Store
	defaultLimit int
	maxLimit     int
	tracer       trace.Tracer
}

// NewSearchService creates a new search service.
//
// Parameters:
//   - photos: store used to hydrate ranked ids into records
//   - embedder: query embedder; it must produce vectors of the index dimension
//   - index: vector index to search
//   - cfg: limits, nil uses 20 / 100
//
// Returns:
//   - *SearchService: ready to serve queries
func NewSearchService(photos PhotoStore, embedder EmbeddingProvider, index vectorindex.Store, cfg *SearchConfig) *SearchService {
	s := &SearchService{
		photos:       photos,
		embedder:     embedder,
		index:        index,
		defaultLimit: defaultSearchLimit,
		maxLimit:     maxSearchLimit,
		tracer:       otel.Tracer(tracerName),
	}
	if cfg != nil {
		if cfg.DefaultLimit > 0 {
			s.defaultLimit = cfg.DefaultLimit
		}
		if cfg.MaxLimit > 0 {
			s.maxLimit = cfg.MaxLimit
		}
	}
	if s.defaultLimit > s.maxLimit {
		s.defaultLimit = s.maxLimit
	}
	return s
}

func (s *SearchService) normalizeLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

// Search returns up to limit photo ids ordered by ascending distance to the
// query. Ids are not deduplicated. Any failure yields an empty result.
func (s *SearchService) Search(ctx context.Context, query string, limit int) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}
	}
	limit = s.normalizeLimit(limit)

	ctx, span := s.tracer.Start(ctx, "search", trace.WithAttributes(
		attribute.Int("search.limit", limit),
	))
	defer span.End()

	if s.index.Size() == 0 {
		return []string{}
	}

	start := time.Now()
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		logger.With(logger.Fields{logger.FieldStage: "embed"}).Warn(ctx, "Query embedding failed: %v", err)
		return []string{}
	}
	if len(vec) != s.index.Dimension() {
		logger.With(logger.Fields{logger.FieldStage: "embed"}).
			Warn(ctx, "Query vector has %d dimensions, index expects %d", len(vec), s.index.Dimension())
		return []string{}
	}

	hits, err := s.index.Search(ctx, vec, limit)
	if err != nil {
		span.RecordError(err)
		logger.With(logger.Fields{logger.FieldStage: "search"}).Error(ctx, "Index search failed: %v", err)
		return []string{}
	}

	ids := vectorindex.IDs(hits)
	span.SetAttributes(attribute.Int("search.hits", len(ids)))
	logger.With(logger.Fields{
		logger.FieldCount:      len(ids),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Debug(ctx, "Semantic search done")
	return ids
}

// SearchPhotos runs Search and loads the matching records in rank order.
// Repeated ids keep their first position; ids without a record are dropped.
func (s *SearchService) SearchPhotos(ctx context.Context, query string, limit int) ([]domain.Photo, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	ids := s.Search(ctx, query, limit)
	if len(ids) == 0 {
		return []domain.Photo{}, nil
	}

	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	records, err := s.photos.GetByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Photo, len(records))
	for _, p := range records {
		byID[p.ID] = p
	}

	results := make([]domain.Photo, 0, len(unique))
	for _, id := range unique {
		if p, ok := byID[id]; ok {
			results = append(results, p)
		}
	}
	return results, nil
}

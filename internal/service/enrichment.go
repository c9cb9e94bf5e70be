package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
	"github.com/timmy/gallery/internal/vectorindex"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/timmy/gallery/internal/service"

// SkipReasonUnavailable is reported for batch ids that have no record or no image URL.
const SkipReasonUnavailable = "not found or no URL"

var (
	// ErrPhotoNotFound is returned when no photo record matches an id.
	ErrPhotoNotFound = domain.ErrPhotoNotFound
	// ErrNoImageURL is returned when a photo cannot be enriched because it has no image.
	ErrNoImageURL = errors.New("photo has no image url")
)

// PhotoStore is the relational store of photo records.
type PhotoStore interface {
	Create(ctx context.Context, photo *domain.Photo) error
	GetByID(ctx context.Context, id string) (*domain.Photo, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Photo, error)
	List(ctx context.Context, filter domain.PhotoFilter) ([]domain.Photo, int64, error)
	ListByStatuses(ctx context.Context, statuses []domain.EnrichmentStatus, limit int) ([]domain.Photo, error)
	UpdateStatus(ctx context.Context, id string, status domain.EnrichmentStatus) error
	UpdateEnrichment(ctx context.Context, id, description, hashtags string, status domain.EnrichmentStatus) error
	CountByStatus(ctx context.Context) (map[domain.EnrichmentStatus]int64, error)
}

// EnrichmentService captions, embeds and indexes photos. It is the only
// writer of a photo's description, hashtags and enrichment status.
type EnrichmentService struct {
	photos     PhotoStore
	captioner  CaptionProvider
	embedder   EmbeddingProvider
	index      vectorindex.Store
	dispatcher Dispatcher
	tracer     trace.Tracer
}

// NewEnrichmentService creates a new enrichment service. A dispatcher must be
// attached with SetDispatcher before EnrichOne or EnrichBatch are used.
func NewEnrichmentService(
	photos PhotoStore,
	captioner CaptionProvider,
	embedder EmbeddingProvider,
	index vectorindex.Store,
) *EnrichmentService {
	return &EnrichmentService{
		photos:    photos,
		captioner: captioner,
		embedder:  embedder,
		index:     index,
		tracer:    otel.Tracer(tracerName),
	}
}

// SetDispatcher attaches the dispatcher used for background attempts.
func (s *EnrichmentService) SetDispatcher(d Dispatcher) {
	s.dispatcher = d
}

// HandleJob runs a dispatched job. It satisfies JobHandler.
func (s *EnrichmentService) HandleJob(ctx context.Context, job domain.EnrichJob) error {
	return s.Enrich(ctx, job.PhotoID)
}

// Enrich runs one enrichment attempt synchronously:
// processing, caption, embed, index, then record as completed.
// Caption and embedding failures degrade to fixed fallbacks and an index
// failure is logged and skipped, so only store errors or panics end the
// attempt in the error status.
func (s *EnrichmentService) Enrich(ctx context.Context, photoID string) (err error) {
	ctx = logger.SetPhotoID(ctx, photoID)
	ctx, span := s.tracer.Start(ctx, "enrich", trace.WithAttributes(attribute.String("photo.id", photoID)))
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("enrichment panic: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.markFailed(ctx, photoID, err)
		}
	}()

	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return err
	}
	if !photo.HasImage() {
		return ErrNoImageURL
	}

	if err := s.photos.UpdateStatus(ctx, photoID, domain.EnrichmentProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	caption := s.caption(ctx, photo.FileURL)

	vec, err := s.embed(ctx, embeddingText(caption))
	if err != nil {
		return err
	}

	slot, indexed := s.addToIndex(ctx, vec, photoID)

	if err := s.record(ctx, photoID, caption); err != nil {
		return err
	}

	entry := logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldStatus:     string(domain.EnrichmentCompleted),
		logger.FieldCount:      len(caption.Hashtags),
		"indexed":              indexed,
	})
	if indexed {
		entry = entry.With(logger.Fields{"slot": slot})
	}
	entry.Info(ctx, "Photo enriched")
	return nil
}

// embeddingText is the text indexed for a caption: description then tags.
func embeddingText(c CaptionResult) string {
	return c.Description + " " + strings.Join(c.Hashtags, " ")
}

func (s *EnrichmentService) caption(ctx context.Context, imageURL string) CaptionResult {
	ctx, span := s.tracer.Start(ctx, "enrich.caption")
	defer span.End()

	raw, err := s.captioner.Caption(ctx, imageURL)
	if err != nil {
		span.RecordError(err)
		logger.With(logger.Fields{logger.FieldStage: "caption"}).Warn(ctx, "Caption provider failed: %v", err)
		return FailedCaption()
	}
	result := ParseCaption(raw)
	span.SetAttributes(attribute.Int("caption.hashtags", len(result.Hashtags)))
	return result
}

func (s *EnrichmentService) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := s.tracer.Start(ctx, "enrich.embed")
	defer span.End()

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("embed caption: %w", err)
	}
	return vec, nil
}

// addToIndex adds vec to the index. A dimension mismatch or store failure is
// logged and the attempt continues without an index entry.
func (s *EnrichmentService) addToIndex(ctx context.Context, vec []float32, photoID string) (int, bool) {
	ctx, span := s.tracer.Start(ctx, "enrich.index")
	defer span.End()

	if len(vec) != s.index.Dimension() {
		err := fmt.Errorf("%w: got %d, expected %d", vectorindex.ErrDimensionMismatch, len(vec), s.index.Dimension())
		span.RecordError(err)
		logger.With(logger.Fields{logger.FieldStage: "index"}).Warn(ctx, "Skipping index append: %v", err)
		return 0, false
	}

	slot, err := s.index.Append(ctx, vec, photoID)
	if err != nil {
		span.RecordError(err)
		logger.With(logger.Fields{logger.FieldStage: "index"}).Error(ctx, "Index append failed: %v", err)
		return 0, false
	}
	span.SetAttributes(attribute.Int("index.slot", slot))
	return slot, true
}

func (s *EnrichmentService) record(ctx context.Context, photoID string, caption CaptionResult) error {
	ctx, span := s.tracer.Start(ctx, "enrich.record")
	defer span.End()

	hashtags := domain.Hashtags(caption.Hashtags).Join()
	if err := s.photos.UpdateEnrichment(ctx, photoID, caption.Description, hashtags, domain.EnrichmentCompleted); err != nil {
		span.RecordError(err)
		return fmt.Errorf("record enrichment: %w", err)
	}
	return nil
}

// markFailed records an attempt-level failure as ("", "", error).
func (s *EnrichmentService) markFailed(ctx context.Context, photoID string, cause error) {
	if errors.Is(cause, ErrPhotoNotFound) {
		logger.CtxWarn(ctx, "Enrichment skipped, photo not found")
		return
	}
	logger.With(logger.Fields{logger.FieldStatus: string(domain.EnrichmentError)}).
		Error(ctx, "Enrichment failed: %v", cause)
	if err := s.photos.UpdateEnrichment(ctx, photoID, "", "", domain.EnrichmentError); err != nil {
		logger.CtxError(ctx, "Failed to record enrichment error: %v", err)
	}
}

// EnrichOne validates the photo and dispatches one background attempt.
// Returns ErrPhotoNotFound or ErrNoImageURL before anything is queued.
func (s *EnrichmentService) EnrichOne(ctx context.Context, photoID string) error {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return err
	}
	if !photo.HasImage() {
		return ErrNoImageURL
	}
	if s.dispatcher == nil {
		return ErrDispatcherClosed
	}
	return s.dispatcher.Dispatch(ctx, domain.NewEnrichJob(photoID, logger.GetRequestID(ctx)))
}

// EnrichBatch dispatches every id that has a record with an image URL.
// The rest are reported as skipped with their reason.
func (s *EnrichmentService) EnrichBatch(ctx context.Context, photoIDs []string) (*domain.BatchResult, error) {
	result := &domain.BatchResult{Queued: []string{}, Skipped: []domain.SkippedPhoto{}}
	if len(photoIDs) == 0 {
		return result, nil
	}

	photos, err := s.photos.GetByIDs(ctx, photoIDs)
	if err != nil {
		return nil, err
	}
	eligible := make(map[string]bool, len(photos))
	for i := range photos {
		if photos[i].HasImage() {
			eligible[photos[i].ID] = true
		}
	}

	toQueue := make([]string, 0, len(photoIDs))
	for _, id := range photoIDs {
		if !eligible[id] {
			result.Skipped = append(result.Skipped, domain.SkippedPhoto{PhotoID: id, Reason: SkipReasonUnavailable})
			continue
		}
		toQueue = append(toQueue, id)
	}

	if s.dispatcher == nil {
		for _, id := range toQueue {
			result.Skipped = append(result.Skipped, domain.SkippedPhoto{PhotoID: id, Reason: ErrDispatcherClosed.Error()})
		}
		return result, nil
	}

	queued, refused := DispatchAll(ctx, s.dispatcher, toQueue)
	result.Queued = append(result.Queued, queued...)
	result.Skipped = append(result.Skipped, refused...)

	logger.With(logger.Fields{
		logger.FieldCount: len(result.Queued),
		"skipped":         len(result.Skipped),
	}).Info(ctx, "Batch enrichment dispatched")
	return result, nil
}

// RetryPending dispatches up to limit photos left in the pending or error status.
func (s *EnrichmentService) RetryPending(ctx context.Context, limit int) (*domain.BatchResult, error) {
	photos, err := s.photos.ListByStatuses(ctx, []domain.EnrichmentStatus{domain.EnrichmentPending, domain.EnrichmentError}, limit)
	if err != nil {
		return nil, fmt.Errorf("list retryable photos: %w", err)
	}
	ids := make([]string, 0, len(photos))
	for i := range photos {
		ids = append(ids, photos[i].ID)
	}
	return s.EnrichBatch(ctx, ids)
}

// EnrichmentStatusView is the enrichment state of one photo.
type EnrichmentStatusView struct {
	PhotoID     string                  `json:"photo_id"`
	Status      domain.EnrichmentStatus `json:"embedding_status"`
	Description string                  `json:"description"`
	Hashtags    []string                `json:"hashtags"`
}

// Status returns the current enrichment state of a photo.
func (s *EnrichmentService) Status(ctx context.Context, photoID string) (*EnrichmentStatusView, error) {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, err
	}
	hashtags := []string(photo.Hashtags)
	if hashtags == nil {
		hashtags = []string{}
	}
	return &EnrichmentStatusView{
		PhotoID:     photo.ID,
		Status:      photo.EnrichmentStatus,
		Description: photo.Description,
		Hashtags:    hashtags,
	}, nil
}

// Stats summarizes enrichment progress. Pending includes photos in processing.
func (s *EnrichmentService) Stats(ctx context.Context) (*domain.EnrichmentStats, error) {
	counts, err := s.photos.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &domain.EnrichmentStats{
		Analyzed:  counts[domain.EnrichmentCompleted],
		Pending:   counts[domain.EnrichmentPending] + counts[domain.EnrichmentProcessing],
		Errors:    counts[domain.EnrichmentError],
		IndexSize: s.index.Size(),
	}
	for _, n := range counts {
		stats.TotalPhotos += n
	}
	return stats, nil
}

// AnalyzeImage captions an arbitrary image URL without touching any record.
// A provider failure yields FailedCaption.
func (s *EnrichmentService) AnalyzeImage(ctx context.Context, imageURL string) CaptionResult {
	return s.caption(ctx, imageURL)
}

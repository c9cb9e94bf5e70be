package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
	"github.com/timmy/gallery/internal/storage"
	_ "golang.org/x/image/webp"
)

var (
	// ErrFileRequired is returned when an upload carries no file.
	ErrFileRequired = errors.New("file is required")
	// ErrInvalidImage is returned when uploaded bytes are not a decodable image.
	ErrInvalidImage = errors.New("file is not a supported image")
)

// PhotoEnricher starts background enrichment of a stored photo.
type PhotoEnricher interface {
	EnrichOne(ctx context.Context, photoID string) error
}

// PhotoMetadata is the activity information supplied with a photo.
type PhotoMetadata struct {
	ActivityName string
	ActivityDate string
	Location     string
	GroupName    string
	Owner        string
}

// UploadInput is a photo file plus its metadata.
type UploadInput struct {
	FileName    string
	ContentType string
	Data        []byte
	PhotoMetadata
}

// PhotoService handles photo intake and listing.
type PhotoService struct {
	photos    PhotoStore
	storage   storage.ObjectStorage
	keyPrefix string
	enricher  PhotoEnricher
	now       func() time.Time
}

// NewPhotoService creates a photo service. objectStorage may be nil, in which
// case uploads are recorded without a file URL and are not enriched.
func NewPhotoService(photos PhotoStore, objectStorage storage.ObjectStorage, keyPrefix string, enricher PhotoEnricher) *PhotoService {
	return &PhotoService{
		photos:    photos,
		storage:   objectStorage,
		keyPrefix: keyPrefix,
		enricher:  enricher,
		now:       time.Now,
	}
}

// Upload stores the file, creates a pending record and triggers enrichment.
// A failed trigger is logged and does not fail the upload.
func (s *PhotoService) Upload(ctx context.Context, in UploadInput) (*domain.Photo, error) {
	if in.FileName == "" || len(in.Data) == 0 {
		return nil, ErrFileRequired
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(in.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	photo := &domain.Photo{
		ID:           uuid.New().String(),
		FileName:     in.FileName,
		MimeType:     contentTypeFor(format, in.ContentType),
		ActivityName: in.ActivityName,
		ActivityDate: in.ActivityDate,
		Location:     in.Location,
		GroupName:    in.GroupName,
		Owner:        in.Owner,
		Width:        cfg.Width,
		Height:       cfg.Height,
		FileSize:     int64(len(in.Data)),
	}
	ctx = logger.SetPhotoID(ctx, photo.ID)

	if s.storage != nil {
		ext := filepath.Ext(in.FileName)
		if ext == "" {
			ext = "." + format
		}
		key := storage.PhotoKey(s.keyPrefix, photo.ID, ext, s.now())
		if err := s.storage.Upload(ctx, key, bytes.NewReader(in.Data), int64(len(in.Data)), photo.MimeType); err != nil {
			return nil, fmt.Errorf("store photo file: %w", err)
		}
		photo.FileID = key
		photo.FileURL = s.storage.GetURL(key)
	} else {
		logger.CtxWarn(ctx, "Object storage disabled, photo stored without file URL")
	}

	if err := s.photos.Create(ctx, photo); err != nil {
		if photo.FileID != "" {
			if delErr := s.storage.Delete(ctx, photo.FileID); delErr != nil {
				logger.FromContext(ctx).WithError(delErr).WithField("key", photo.FileID).
					Warn("Failed to remove stored file after record failure")
			}
		}
		return nil, fmt.Errorf("create photo: %w", err)
	}
	logger.With(logger.Fields{
		logger.FieldSize: photo.FileSize,
		"format":         format,
	}).Info(ctx, "Photo uploaded")

	s.triggerEnrichment(ctx, photo)
	return photo, nil
}

// Create records a photo whose image is already hosted at photo.FileURL.
func (s *PhotoService) Create(ctx context.Context, photo *domain.Photo) (*domain.Photo, error) {
	if !photo.HasImage() {
		return nil, ErrNoImageURL
	}
	if photo.FileName == "" {
		photo.FileName = fileNameFromURL(photo.FileURL)
	}
	photo.Description = ""
	photo.Hashtags = domain.Hashtags{}
	photo.EnrichmentStatus = domain.EnrichmentPending

	if err := s.photos.Create(ctx, photo); err != nil {
		return nil, fmt.Errorf("create photo: %w", err)
	}
	ctx = logger.SetPhotoID(ctx, photo.ID)
	logger.CtxInfo(ctx, "Photo registered from %s", photo.FileURL)

	s.triggerEnrichment(ctx, photo)
	return photo, nil
}

func (s *PhotoService) triggerEnrichment(ctx context.Context, photo *domain.Photo) {
	if s.enricher == nil || !photo.HasImage() {
		return
	}
	if err := s.enricher.EnrichOne(ctx, photo.ID); err != nil {
		logger.CtxWarn(ctx, "Failed to queue enrichment for new photo: %v", err)
	}
}

// List returns photos matching filter and the total match count.
func (s *PhotoService) List(ctx context.Context, filter domain.PhotoFilter) ([]domain.Photo, int64, error) {
	return s.photos.List(ctx, filter)
}

// Get returns one photo.
func (s *PhotoService) Get(ctx context.Context, id string) (*domain.Photo, error) {
	return s.photos.GetByID(ctx, id)
}

func contentTypeFor(format, declared string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	}
	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}

func fileNameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || strings.TrimSpace(name) == "" {
		return u.Host
	}
	return name
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/timmy/gallery/internal/domain"
	"gorm.io/gorm"
)

// PhotoRepository handles photo record operations.
type PhotoRepository struct {
	db *gorm.DB
}

// NewPhotoRepository creates a new PhotoRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *PhotoRepository: repository instance bound to db.
func NewPhotoRepository(db *gorm.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create inserts a new photo record, assigning an ID and pending status when unset.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - photo: photo record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *PhotoRepository) Create(ctx context.Context, photo *domain.Photo) error {
	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	if photo.EnrichmentStatus == "" {
		photo.EnrichmentStatus = domain.EnrichmentPending
	}
	if photo.Hashtags == nil {
		photo.Hashtags = domain.Hashtags{}
	}
	return r.db.WithContext(ctx).Create(photo).Error
}

// GetByID retrieves a photo by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: photo ID.
// Returns:
//   - *domain.Photo: photo record if found.
//   - error: domain.ErrPhotoNotFound when no record matches.
func (r *PhotoRepository) GetByID(ctx context.Context, id string) (*domain.Photo, error) {
	var photo domain.Photo
	if err := r.db.WithContext(ctx).First(&photo, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPhotoNotFound
		}
		return nil, err
	}
	return &photo, nil
}

// GetByIDs retrieves photos by a list of IDs. Result order is unspecified.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ids: list of photo IDs.
// Returns:
//   - []domain.Photo: matching photo records.
//   - error: non-nil if the query fails.
func (r *PhotoRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Photo, error) {
	if len(ids) == 0 {
		return []domain.Photo{}, nil
	}
	var photos []domain.Photo
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&photos).Error; err != nil {
		return nil, fmt.Errorf("failed to get photos by IDs: %w", err)
	}
	return photos, nil
}

// List retrieves photos matching filter, newest first, plus the total match count.
func (r *PhotoRepository) List(ctx context.Context, filter domain.PhotoFilter) ([]domain.Photo, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Photo{})
	if filter.ActivityName != "" {
		query = query.Where("activity_name = ?", filter.ActivityName)
	}
	if filter.GroupName != "" {
		query = query.Where("group_name = ?", filter.GroupName)
	}
	if filter.Status != "" {
		query = query.Where("enrichment_status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count photos: %w", err)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var photos []domain.Photo
	if err := query.Order("created_at DESC").Find(&photos).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list photos: %w", err)
	}
	return photos, total, nil
}

// ListByStatuses retrieves up to limit photos in any of the given statuses, oldest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - statuses: enrichment statuses to match.
//   - limit: maximum number of records; <= 0 means no limit.
// Returns:
//   - []domain.Photo: matching photo records.
//   - error: non-nil if the query fails.
func (r *PhotoRepository) ListByStatuses(ctx context.Context, statuses []domain.EnrichmentStatus, limit int) ([]domain.Photo, error) {
	if len(statuses) == 0 {
		return []domain.Photo{}, nil
	}
	query := r.db.WithContext(ctx).Where("enrichment_status IN ?", statuses).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var photos []domain.Photo
	if err := query.Find(&photos).Error; err != nil {
		return nil, fmt.Errorf("failed to list photos by status: %w", err)
	}
	return photos, nil
}

// UpdateStatus sets only the enrichment status of a photo.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: photo ID.
//   - status: new enrichment status.
// Returns:
//   - error: domain.ErrPhotoNotFound when no row was updated.
func (r *PhotoRepository) UpdateStatus(ctx context.Context, id string, status domain.EnrichmentStatus) error {
	result := r.db.WithContext(ctx).Model(&domain.Photo{}).
		Where("id = ?", id).
		Update("enrichment_status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update photo status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrPhotoNotFound
	}
	return nil
}

// UpdateEnrichment writes the enrichment outcome of a photo in one statement.
// hashtags is the stored comma-delimited form.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: photo ID.
//   - description: caption description.
//   - hashtags: delimited hashtag string.
//   - status: resulting enrichment status.
// Returns:
//   - error: domain.ErrPhotoNotFound when no row was updated.
func (r *PhotoRepository) UpdateEnrichment(ctx context.Context, id, description, hashtags string, status domain.EnrichmentStatus) error {
	result := r.db.WithContext(ctx).Model(&domain.Photo{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"description":       description,
			"hashtags":          hashtags,
			"enrichment_status": status,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update photo enrichment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrPhotoNotFound
	}
	return nil
}

type statusCount struct {
	Status domain.EnrichmentStatus
	Count  int64
}

// CountByStatus counts photos grouped by enrichment status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - map[domain.EnrichmentStatus]int64: count per status present in the table.
//   - error: non-nil if the query fails.
func (r *PhotoRepository) CountByStatus(ctx context.Context) (map[domain.EnrichmentStatus]int64, error) {
	var rows []statusCount
	if err := r.db.WithContext(ctx).Model(&domain.Photo{}).
		Select("enrichment_status AS status, COUNT(*) AS count").
		Group("enrichment_status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count photos by status: %w", err)
	}

	counts := make(map[domain.EnrichmentStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] += row.Count
	}
	return counts, nil
}

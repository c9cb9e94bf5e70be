package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/gallery/internal/config"
	"github.com/timmy/gallery/internal/domain"
)

func newTestRepo(t *testing.T) *PhotoRepository {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         ":memory:",
		AutoMigrate:  true,
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { CloseDB(db) })
	return NewPhotoRepository(db)
}

func TestPhotoRepositoryCreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	photo := &domain.Photo{FileName: "cat.jpg", FileURL: "https://cdn.example/cat.jpg", ActivityName: "sports day"}
	require.NoError(t, repo.Create(ctx, photo))
	assert.NotEmpty(t, photo.ID)
	assert.Equal(t, domain.EnrichmentPending, photo.EnrichmentStatus)

	got, err := repo.GetByID(ctx, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, "cat.jpg", got.FileName)
	assert.Equal(t, domain.EnrichmentPending, got.EnrichmentStatus)
	assert.Empty(t, got.Hashtags)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrPhotoNotFound)
}

func TestPhotoRepositoryUpdateEnrichment(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	photo := &domain.Photo{FileName: "p.jpg", FileURL: "https://cdn.example/p.jpg"}
	require.NoError(t, repo.Create(ctx, photo))

	require.NoError(t, repo.UpdateStatus(ctx, photo.ID, domain.EnrichmentProcessing))
	require.NoError(t, repo.UpdateEnrichment(ctx, photo.ID, "一隻貓坐在窗台上", "cat,window,indoor", domain.EnrichmentCompleted))

	got, err := repo.GetByID(ctx, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, "一隻貓坐在窗台上", got.Description)
	assert.Equal(t, domain.Hashtags{"cat", "window", "indoor"}, got.Hashtags)
	assert.Equal(t, domain.EnrichmentCompleted, got.EnrichmentStatus)

	assert.ErrorIs(t, repo.UpdateEnrichment(ctx, "missing", "", "", domain.EnrichmentError), domain.ErrPhotoNotFound)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, "missing", domain.EnrichmentError), domain.ErrPhotoNotFound)
}

func TestPhotoRepositoryGetByIDs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := &domain.Photo{FileName: "a.jpg"}
	b := &domain.Photo{FileName: "b.jpg"}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	photos, err := repo.GetByIDs(ctx, []string{a.ID, b.ID, "ghost"})
	require.NoError(t, err)
	assert.Len(t, photos, 2)

	photos, err = repo.GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, photos)
}

func TestPhotoRepositoryCountAndListByStatus(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	statuses := []domain.EnrichmentStatus{
		domain.EnrichmentPending,
		domain.EnrichmentError,
		domain.EnrichmentCompleted,
		domain.EnrichmentCompleted,
		domain.EnrichmentProcessing,
	}
	ids := make([]string, len(statuses))
	for i, s := range statuses {
		p := &domain.Photo{FileName: "x.jpg", EnrichmentStatus: s, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repo.Create(ctx, p))
		ids[i] = p.ID
	}

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[domain.EnrichmentPending])
	assert.EqualValues(t, 1, counts[domain.EnrichmentProcessing])
	assert.EqualValues(t, 2, counts[domain.EnrichmentCompleted])
	assert.EqualValues(t, 1, counts[domain.EnrichmentError])

	retry, err := repo.ListByStatuses(ctx, []domain.EnrichmentStatus{domain.EnrichmentPending, domain.EnrichmentError}, 0)
	require.NoError(t, err)
	require.Len(t, retry, 2)
	assert.Equal(t, ids[0], retry[0].ID)
	assert.Equal(t, ids[1], retry[1].ID)

	limited, err := repo.ListByStatuses(ctx, []domain.EnrichmentStatus{domain.EnrichmentCompleted}, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPhotoRepositoryListFilter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Photo{FileName: "1.jpg", ActivityName: "graduation"}))
	require.NoError(t, repo.Create(ctx, &domain.Photo{FileName: "2.jpg", ActivityName: "graduation"}))
	require.NoError(t, repo.Create(ctx, &domain.Photo{FileName: "3.jpg", ActivityName: "field trip"}))

	photos, total, err := repo.List(ctx, domain.PhotoFilter{ActivityName: "graduation", Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, photos, 1)

	all, total, err := repo.List(ctx, domain.PhotoFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)
}

func TestInitDBRequiresPostgresURL(t *testing.T) {
	_, err := InitDB(&config.DatabaseConfig{Driver: "postgres"})
	assert.Error(t, err)
}

func TestInitDBCreatesSQLiteDirectory(t *testing.T) {
	path := t.TempDir() + "/nested/gallery.db"
	db, err := InitDB(&config.DatabaseConfig{Driver: "sqlite", Path: path, AutoMigrate: true, LogLevel: "silent"})
	require.NoError(t, err)
	defer CloseDB(db)
	assert.True(t, db.Migrator().HasTable(&domain.Photo{}))
	assert.NoError(t, CloseDB(nil))
}

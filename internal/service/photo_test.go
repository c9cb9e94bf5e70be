package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/gallery/internal/domain"
)

type memObjectStorage struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemObjectStorage() *memObjectStorage {
	return &memObjectStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memObjectStorage) Upload(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memObjectStorage) GetURL(key string) string { return "https://cdn.example/" + key }

func (m *memObjectStorage) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

type stubEnricher struct {
	ids []string
	err error
}

func (s *stubEnricher) EnrichOne(_ context.Context, id string) error {
	s.ids = append(s.ids, id)
	return s.err
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPhotoServiceUpload(t *testing.T) {
	store := newMemPhotoStore()
	objects := newMemObjectStorage()
	enricher := &stubEnricher{}
	svc := NewPhotoService(store, objects, "photos", enricher)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	data := pngBytes(t, 4, 3)
	photo, err := svc.Upload(context.Background(), UploadInput{
		FileName:      "Team.PNG",
		ContentType:   "application/octet-stream",
		Data:          data,
		PhotoMetadata: PhotoMetadata{ActivityName: "迎新", Owner: "amy"},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, photo.Width)
	assert.Equal(t, 3, photo.Height)
	assert.Equal(t, "image/png", photo.MimeType)
	assert.Equal(t, int64(len(data)), photo.FileSize)
	assert.Equal(t, "photos/2024/05/"+photo.ID+".png", photo.FileID)
	assert.Equal(t, "https://cdn.example/"+photo.FileID, photo.FileURL)
	assert.Equal(t, data, objects.objects[photo.FileID])
	assert.Equal(t, "image/png", objects.types[photo.FileID])

	stored := store.get(photo.ID)
	assert.Equal(t, domain.EnrichmentPending, stored.EnrichmentStatus)
	assert.Equal(t, "迎新", stored.ActivityName)
	assert.Equal(t, []string{photo.ID}, enricher.ids)
}

func TestPhotoServiceUploadEnrichFailureDoesNotFail(t *testing.T) {
	store := newMemPhotoStore()
	svc := NewPhotoService(store, newMemObjectStorage(), "", &stubEnricher{err: ErrQueueFull})

	photo, err := svc.Upload(context.Background(), UploadInput{FileName: "a.png", Data: pngBytes(t, 1, 1)})
	require.NoError(t, err)
	assert.Equal(t, domain.EnrichmentPending, store.get(photo.ID).EnrichmentStatus)
}

func TestPhotoServiceUploadWithoutStorage(t *testing.T) {
	store := newMemPhotoStore()
	enricher := &stubEnricher{}
	svc := NewPhotoService(store, nil, "photos", enricher)

	photo, err := svc.Upload(context.Background(), UploadInput{FileName: "a.png", Data: pngBytes(t, 2, 2)})
	require.NoError(t, err)
	assert.Empty(t, photo.FileURL)
	assert.Empty(t, enricher.ids)
}

func TestPhotoServiceUploadRejects(t *testing.T) {
	svc := NewPhotoService(newMemPhotoStore(), newMemObjectStorage(), "", nil)
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadInput{FileName: "", Data: []byte{1}})
	assert.ErrorIs(t, err, ErrFileRequired)

	_, err = svc.Upload(ctx, UploadInput{FileName: "notes.txt", Data: []byte("hello world")})
	assert.ErrorIs(t, err, ErrInvalidImage)

	failing := newMemObjectStorage()
	failing.err = errors.New("access denied")
	svc = NewPhotoService(newMemPhotoStore(), failing, "", nil)
	_, err = svc.Upload(ctx, UploadInput{FileName: "a.png", Data: pngBytes(t, 1, 1)})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "access denied"))
}

func TestPhotoServiceUploadRemovesFileWhenRecordFails(t *testing.T) {
	store := newMemPhotoStore()
	store.createErr = errors.New("db down")
	objects := newMemObjectStorage()
	enricher := &stubEnricher{}
	svc := NewPhotoService(store, objects, "photos", enricher)

	_, err := svc.Upload(context.Background(), UploadInput{FileName: "a.png", Data: pngBytes(t, 1, 1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Empty(t, objects.objects)
	assert.Empty(t, enricher.ids)
}

func TestPhotoServiceCreate(t *testing.T) {
	store := newMemPhotoStore()
	enricher := &stubEnricher{}
	svc := NewPhotoService(store, nil, "", enricher)
	ctx := context.Background()

	photo, err := svc.Create(ctx, &domain.Photo{
		FileURL:          "https://img.example/albums/2024/beach.jpg?size=l",
		Description:      "ignored",
		EnrichmentStatus: domain.EnrichmentCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, "beach.jpg", photo.FileName)

	stored := store.get(photo.ID)
	assert.Equal(t, domain.EnrichmentPending, stored.EnrichmentStatus)
	assert.Empty(t, stored.Description)
	assert.Equal(t, []string{photo.ID}, enricher.ids)

	_, err = svc.Create(ctx, &domain.Photo{FileName: "x.jpg"})
	assert.ErrorIs(t, err, ErrNoImageURL)

	got, err := svc.Get(ctx, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, photo.ID, got.ID)

	list, total, err := svc.List(ctx, domain.PhotoFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)
}

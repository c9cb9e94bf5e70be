package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/timmy/gallery/internal/domain"
)

// memPhotoStore is an in-memory PhotoStore.
type memPhotoStore struct {
	mu     sync.Mutex
	photos map[string]*domain.Photo
	order  []string

	updateErr error
	createErr error
}

func newMemPhotoStore(photos ...domain.Photo) *memPhotoStore {
	s := &memPhotoStore{photos: make(map[string]*domain.Photo)}
	for i := range photos {
		_ = s.Create(context.Background(), &photos[i])
	}
	return s
}

func (s *memPhotoStore) Create(_ context.Context, photo *domain.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if photo.ID == "" {
		photo.ID = uuid.New().String()
	}
	if photo.EnrichmentStatus == "" {
		photo.EnrichmentStatus = domain.EnrichmentPending
	}
	if photo.Hashtags == nil {
		photo.Hashtags = domain.Hashtags{}
	}
	cp := *photo
	s.photos[photo.ID] = &cp
	s.order = append(s.order, photo.ID)
	return nil
}

func (s *memPhotoStore) GetByID(_ context.Context, id string) (*domain.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[id]
	if !ok {
		return nil, domain.ErrPhotoNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memPhotoStore) GetByIDs(_ context.Context, ids []string) ([]domain.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Photo, 0, len(ids))
	// reverse order so callers cannot rely on input ordering
	for i := len(ids) - 1; i >= 0; i-- {
		if p, ok := s.photos[ids[i]]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memPhotoStore) List(_ context.Context, filter domain.PhotoFilter) ([]domain.Photo, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Photo, 0)
	for _, id := range s.order {
		p := s.photos[id]
		if filter.Status != "" && p.EnrichmentStatus != filter.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (s *memPhotoStore) ListByStatuses(_ context.Context, statuses []domain.EnrichmentStatus, limit int) ([]domain.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[domain.EnrichmentStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	out := make([]domain.Photo, 0)
	for _, id := range s.order {
		if p := s.photos[id]; want[p.EnrichmentStatus] {
			out = append(out, *p)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memPhotoStore) UpdateStatus(_ context.Context, id string, status domain.EnrichmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[id]
	if !ok {
		return domain.ErrPhotoNotFound
	}
	p.EnrichmentStatus = status
	return nil
}

func (s *memPhotoStore) UpdateEnrichment(_ context.Context, id, description, hashtags string, status domain.EnrichmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil && status == domain.EnrichmentCompleted {
		return s.updateErr
	}
	p, ok := s.photos[id]
	if !ok {
		return domain.ErrPhotoNotFound
	}
	p.Description = description
	p.Hashtags = domain.SplitHashtags(hashtags)
	p.EnrichmentStatus = status
	return nil
}

func (s *memPhotoStore) CountByStatus(_ context.Context) (map[domain.EnrichmentStatus]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[domain.EnrichmentStatus]int64)
	for _, p := range s.photos {
		counts[p.EnrichmentStatus]++
	}
	return counts, nil
}

func (s *memPhotoStore) get(id string) domain.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.photos[id]
}

// stubCaptioner returns canned captions keyed by image URL.
type stubCaptioner struct {
	mu       sync.Mutex
	captions map[string]string
	err      error
	panicOn  string
	calls    []string
}

func (c *stubCaptioner) Caption(_ context.Context, imageURL string) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, imageURL)
	c.mu.Unlock()
	if imageURL == c.panicOn {
		panic("captioner exploded")
	}
	if c.err != nil {
		return "", c.err
	}
	raw, ok := c.captions[imageURL]
	if !ok {
		return "", errors.New("unknown image")
	}
	return raw, nil
}

// recordingDispatcher collects dispatched jobs.
type recordingDispatcher struct {
	mu     sync.Mutex
	jobs   []domain.EnrichJob
	refuse map[string]error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, job domain.EnrichJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.refuse[job.PhotoID]; err != nil {
		return err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

func (d *recordingDispatcher) ids() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.jobs))
	for _, j := range d.jobs {
		ids = append(ids, j.PhotoID)
	}
	sort.Strings(ids)
	return ids
}

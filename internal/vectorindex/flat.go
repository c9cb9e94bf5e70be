package vectorindex

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// FlatIndex is an exact squared-Euclidean index that scans every vector.
// A single mutex serializes Append and Search.
type FlatIndex struct {
	mu        sync.Mutex
	dimension int
	vectors   [][]float32
	photoIDs  []string
	persister Persister
}

// NewFlatIndex creates a flat index of the given dimension. When persister is
// non-nil the previous snapshot is loaded and every append is saved through it.
func NewFlatIndex(dimension int, persister Persister) (*FlatIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive")
	}
	idx := &FlatIndex{
		dimension: dimension,
		vectors:   make([][]float32, 0),
		photoIDs:  make([]string, 0),
		persister: persister,
	}
	if persister == nil {
		return idx, nil
	}

	snap, err := persister.Load()
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	if snap == nil {
		return idx, nil
	}
	if snap.Dimension != dimension {
		return nil, fmt.Errorf("%w: persisted index has %d, configured %d", ErrDimensionMismatch, snap.Dimension, dimension)
	}
	idx.vectors = snap.Vectors
	idx.photoIDs = snap.PhotoIDs
	return idx, nil
}

// Append implements Store. On a persistence failure the in-memory append is
// rolled back so the index and the files stay equal in length.
func (f *FlatIndex) Append(ctx context.Context, vector []float32, photoID string) (int, error) {
	if len(vector) != f.dimension {
		return 0, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vector), f.dimension)
	}
	vec := make([]float32, f.dimension)
	copy(vec, vector)

	f.mu.Lock()
	defer f.mu.Unlock()

	slot := len(f.vectors)
	f.vectors = append(f.vectors, vec)
	f.photoIDs = append(f.photoIDs, photoID)

	if f.persister != nil {
		snap := &Snapshot{Dimension: f.dimension, Vectors: f.vectors, PhotoIDs: f.photoIDs}
		if err := f.persister.Save(snap); err != nil {
			f.vectors = f.vectors[:slot]
			f.photoIDs = f.photoIDs[:slot]
			return 0, fmt.Errorf("persist index: %w", err)
		}
	}
	return slot, nil
}

// Search implements Store. Ties are broken by ascending slot.
func (f *FlatIndex) Search(ctx context.Context, query []float32, limit int) ([]Hit, error) {
	if len(query) != f.dimension {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(query), f.dimension)
	}
	if limit <= 0 {
		return []Hit{}, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.vectors) == 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, len(f.vectors))
	for slot, vec := range f.vectors {
		hits[slot] = Hit{Slot: slot, PhotoID: f.photoIDs[slot], Distance: squaredL2(query, vec)}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Slot < hits[j].Slot
	})
	if limit > len(hits) {
		limit = len(hits)
	}
	return hits[:limit], nil
}

// Size implements Store.
func (f *FlatIndex) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.vectors)
}

// Dimension implements Store.
func (f *FlatIndex) Dimension() int {
	return f.dimension
}

// Close is a no-op; every append is already persisted.
func (f *FlatIndex) Close() error {
	return nil
}

func squaredL2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}

// Package vectorindex holds the append-only nearest-neighbour index of photo
// embeddings and its slot to photo-id mapping.
package vectorindex

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when a vector's length differs from the index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Hit is one search result. Lower Distance is closer.
type Hit struct {
	Slot     int     `json:"slot"`
	PhotoID  string  `json:"photo_id"`
	Distance float32 `json:"distance"`
}

// Store is an append-only vector index paired with a slot to photo-id mapping.
// Slot i of the index always corresponds to entry i of the mapping.
type Store interface {
	// Append adds vector at the next slot, records photoID for it and persists both
	// before returning the slot.
	Append(ctx context.Context, vector []float32, photoID string) (int, error)
	// Search returns up to limit hits ordered by ascending distance.
	Search(ctx context.Context, query []float32, limit int) ([]Hit, error)
	// Size is the number of stored vectors.
	Size() int
	// Dimension is the fixed vector length.
	Dimension() int
	Close() error
}

// IDs returns the photo ids of hits in order.
func IDs(hits []Hit) []string {
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.PhotoID)
	}
	return ids
}

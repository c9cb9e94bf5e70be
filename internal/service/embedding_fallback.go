package service

import (
	"context"
	"crypto/sha256"

	"github.com/timmy/gallery/internal/logger"
)

const hashEmbeddingModel = "sha256-hash"

// HashEmbedder derives a deterministic vector from the SHA-256 digest of the
// text. Digest bytes repeat across the vector and each component is byte/255.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder creates a hash embedder producing vectors of the given length.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	return &HashEmbedder{dimensions: dimensions}
}

// Vector returns the hash vector of text.
func (h *HashEmbedder) Vector(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, h.dimensions)
	for i := range vec {
		vec[i] = float32(sum[i%len(sum)]) / 255
	}
	return vec
}

// Embed never fails.
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return h.Vector(text), nil
}

// EmbedQuery never fails.
func (h *HashEmbedder) EmbedQuery(_ context.Context, query string) ([]float32, error) {
	return h.Vector(query), nil
}

func (h *HashEmbedder) Dimensions() int { return h.dimensions }

func (h *HashEmbedder) Model() string { return hashEmbeddingModel }

// FallbackEmbedder uses a primary provider and substitutes the hash vector
// when the primary is absent, fails, or returns a vector of the wrong length.
type FallbackEmbedder struct {
	primary EmbeddingProvider
	hash    *HashEmbedder
}

// NewFallbackEmbedder wraps primary. A nil primary always yields hash vectors.
func NewFallbackEmbedder(primary EmbeddingProvider, dimensions int) *FallbackEmbedder {
	return &FallbackEmbedder{primary: primary, hash: NewHashEmbedder(dimensions)}
}

// Embed returns the primary vector or the hash fallback. The error is always nil.
func (f *FallbackEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.primary == nil {
		return f.hash.Vector(text), nil
	}
	vec, err := f.primary.Embed(ctx, text)
	return f.checked(ctx, text, vec, err), nil
}

// EmbedQuery returns the primary query vector or the hash fallback.
func (f *FallbackEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if f.primary == nil {
		return f.hash.Vector(query), nil
	}
	vec, err := f.primary.EmbedQuery(ctx, query)
	return f.checked(ctx, query, vec, err), nil
}

func (f *FallbackEmbedder) checked(ctx context.Context, text string, vec []float32, err error) []float32 {
	if err != nil {
		logger.With(logger.Fields{
			logger.FieldComponent: "embedding",
			"model":               f.primary.Model(),
		}).Warn(ctx, "Embedding provider failed, using hash fallback: %v", err)
		return f.hash.Vector(text)
	}
	if len(vec) != f.hash.dimensions {
		logger.With(logger.Fields{
			logger.FieldComponent: "embedding",
			"model":               f.primary.Model(),
		}).Warn(ctx, "Embedding provider returned %d dimensions, expected %d; using hash fallback", len(vec), f.hash.dimensions)
		return f.hash.Vector(text)
	}
	return vec
}

// Dimensions returns the fixed vector length.
func (f *FallbackEmbedder) Dimensions() int { return f.hash.dimensions }

// Model returns the primary model name, or the hash model when there is none.
func (f *FallbackEmbedder) Model() string {
	if f.primary == nil {
		return f.hash.Model()
	}
	return f.primary.Model()
}

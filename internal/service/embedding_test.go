package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	h := NewHashEmbedder(70)

	a := h.Vector("cat on a window")
	b := h.Vector("cat on a window")
	c := h.Vector("dog in the park")

	require.Len(t, a, 70)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	for _, v := range a {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
	// digest bytes repeat every 32 components
	assert.Equal(t, a[0], a[32])
	assert.Equal(t, a[5], a[69])
}

func TestOpenAIEmbeddingService(t *testing.T) {
	var got openAIEmbeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3],"index":0}]}`))
	}))
	defer srv.Close()

	svc := NewOpenAIEmbeddingService(&EmbeddingProviderConfig{
		Model:      "text-embedding-3-small",
		APIKey:     "sk-test",
		BaseURL:    srv.URL + "/v1/",
		Dimensions: 3,
	})

	vec, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "text-embedding-3-small", got.Model)
	assert.Equal(t, "hello", got.Input)
	assert.Equal(t, 3, got.Dimensions)
}

func TestOpenAIEmbeddingServiceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	svc := NewOpenAIEmbeddingService(&EmbeddingProviderConfig{Model: "m", APIKey: "k", BaseURL: srv.URL, Dimensions: 3})
	_, err := svc.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	noKey := NewOpenAIEmbeddingService(&EmbeddingProviderConfig{Model: "m", BaseURL: srv.URL, Dimensions: 3})
	_, err = noKey.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestJinaEmbeddingServiceTasks(t *testing.T) {
	var tasks []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jinaRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		tasks = append(tasks, req.Task)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1,2],"index":0}]}`))
	}))
	defer srv.Close()

	svc := NewJinaEmbeddingService(&EmbeddingProviderConfig{Model: "jina-embeddings-v3", APIKey: "k", BaseURL: srv.URL, Dimensions: 2})
	_, err := svc.Embed(context.Background(), "doc")
	require.NoError(t, err)
	_, err = svc.EmbedQuery(context.Background(), "query")
	require.NoError(t, err)

	assert.Equal(t, []string{"retrieval.passage", "retrieval.query"}, tasks)
}

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error)      { return s.vec, s.err }
func (s *stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error) { return s.vec, s.err }
func (s *stubEmbedder) Dimensions() int                                       { return len(s.vec) }
func (s *stubEmbedder) Model() string                                         { return "stub" }

func TestFallbackEmbedder(t *testing.T) {
	ctx := context.Background()
	hash := NewHashEmbedder(3).Vector("text")

	tests := []struct {
		name    string
		primary EmbeddingProvider
		want    []float32
	}{
		{name: "primary ok", primary: &stubEmbedder{vec: []float32{1, 2, 3}}, want: []float32{1, 2, 3}},
		{name: "primary error", primary: &stubEmbedder{err: errors.New("boom")}, want: hash},
		{name: "wrong length", primary: &stubEmbedder{vec: []float32{1, 2}}, want: hash},
		{name: "no primary", primary: nil, want: hash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFallbackEmbedder(tt.primary, 3)
			got, err := f.Embed(ctx, "text")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			got, err = f.EmbedQuery(ctx, "text")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFallbackEmbedderTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	f, err := NewEmbeddingProvider(&EmbeddingProviderConfig{Provider: "openai", Model: "m", APIKey: "k", BaseURL: url, Dimensions: 8})
	require.NoError(t, err)

	vec, err := f.Embed(context.Background(), "description tags")
	require.NoError(t, err)
	assert.Equal(t, NewHashEmbedder(8).Vector("description tags"), vec)
	assert.Equal(t, "m", f.Model())
}

func TestNewEmbeddingProvider(t *testing.T) {
	f, err := NewEmbeddingProvider(&EmbeddingProviderConfig{Provider: "hash", Dimensions: 16})
	require.NoError(t, err)
	assert.Equal(t, 16, f.Dimensions())
	assert.Equal(t, hashEmbeddingModel, f.Model())

	_, err = NewEmbeddingProvider(&EmbeddingProviderConfig{Provider: "cohere", Dimensions: 16})
	assert.Error(t, err)

	_, err = NewEmbeddingProvider(&EmbeddingProviderConfig{Provider: "hash"})
	assert.Error(t, err)
}

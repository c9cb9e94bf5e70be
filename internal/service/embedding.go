package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	jinaBaseURL   = "https://api.jina.ai/v1"
	openAIBaseURL = "https://api.openai.com/v1"
)

// EmbeddingProvider converts text into fixed-length vectors.
type EmbeddingProvider interface {
	// Embed embeds document text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedQuery embeds a search query. Providers without a separate query
	// mode return the same vector as Embed.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	Dimensions() int
	Model() string
}

// EmbeddingProviderConfig holds configuration for an embedding provider.
type EmbeddingProviderConfig struct {
	Provider   string // openai, jina, hash
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
	Timeout    time.Duration
}

// NewEmbeddingProvider creates the configured provider wrapped in a
// FallbackEmbedder, so the result never fails to produce a vector.
func NewEmbeddingProvider(cfg *EmbeddingProviderConfig) (*FallbackEmbedder, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive")
	}

	var primary EmbeddingProvider
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		primary = NewOpenAIEmbeddingService(cfg)
	case "jina":
		primary = NewJinaEmbeddingService(cfg)
	case "hash", "":
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	return NewFallbackEmbedder(primary, cfg.Dimensions), nil
}

func newEmbeddingClient(apiKey string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+apiKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)
	return client
}

// OpenAIEmbeddingService calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbeddingService struct {
	client     *resty.Client
	endpoint   string
	apiKey     string
	model      string
	dimensions int
}

// NewOpenAIEmbeddingService creates a new OpenAI-compatible embedding client.
func NewOpenAIEmbeddingService(cfg *EmbeddingProviderConfig) *OpenAIEmbeddingService {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return &OpenAIEmbeddingService{
		client:     newEmbeddingClient(cfg.APIKey, cfg.Timeout),
		endpoint:   baseURL + "/embeddings",
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Model returns the model name being used
func (s *OpenAIEmbeddingService) Model() string { return s.model }

// Dimensions returns the requested vector length.
func (s *OpenAIEmbeddingService) Dimensions() int { return s.dimensions }

type openAIEmbeddingRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed generates an embedding for a single text
func (s *OpenAIEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("embedding provider: %w", ErrMissingAPIKey)
	}

	var resp openAIEmbeddingResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(openAIEmbeddingRequest{Model: s.model, Input: text, Dimensions: s.dimensions}).
		SetResult(&resp).
		SetError(&resp).
		Post(s.endpoint)

	if err != nil {
		return nil, fmt.Errorf("failed to call embeddings API: %w", err)
	}

	if httpResp.StatusCode() != 200 {
		if resp.Error != nil {
			return nil, fmt.Errorf("embeddings API error: %s", resp.Error.Message)
		}
		return nil, fmt.Errorf("embeddings API error: status %d", httpResp.StatusCode())
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}

// EmbedQuery is Embed; the endpoint has no query mode.
func (s *OpenAIEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return s.Embed(ctx, query)
}

// JinaEmbeddingService handles text embedding generation through the Jina API.
type JinaEmbeddingService struct {
	client     *resty.Client
	endpoint   string
	apiKey     string
	model      string
	dimensions int
}

// NewJinaEmbeddingService creates a new Jina embedding client.
func NewJinaEmbeddingService(cfg *EmbeddingProviderConfig) *JinaEmbeddingService {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = jinaBaseURL
	}
	return &JinaEmbeddingService{
		client:     newEmbeddingClient(cfg.APIKey, cfg.Timeout),
		endpoint:   baseURL + "/embeddings",
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Model returns the model name being used
func (s *JinaEmbeddingService) Model() string { return s.model }

// Dimensions returns the requested vector length.
func (s *JinaEmbeddingService) Dimensions() int { return s.dimensions }

// Jina API request/response structures
type jinaRequest struct {
	Model         string   `json:"model"`
	Task          string   `json:"task,omitempty"`
	Dimensions    int      `json:"dimensions,omitempty"`
	Input         []string `json:"input"`
	EmbeddingType string   `json:"embedding_type,omitempty"`
}

type jinaResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Detail string `json:"detail,omitempty"`
}

// Embed generates a passage embedding for a single text
func (s *JinaEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.embed(ctx, text, "retrieval.passage")
}

// EmbedQuery generates an embedding optimized for query/search
func (s *JinaEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return s.embed(ctx, query, "retrieval.query")
}

func (s *JinaEmbeddingService) embed(ctx context.Context, text, task string) ([]float32, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("embedding provider: %w", ErrMissingAPIKey)
	}

	req := jinaRequest{
		Model:         s.model,
		Task:          task,
		Dimensions:    s.dimensions,
		Input:         []string{text},
		EmbeddingType: "float",
	}

	var resp jinaResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(s.endpoint)

	if err != nil {
		return nil, fmt.Errorf("failed to call Jina API: %w", err)
	}

	if httpResp.StatusCode() != 200 {
		if resp.Detail != "" {
			return nil, fmt.Errorf("Jina API error: %s", resp.Detail)
		}
		return nil, fmt.Errorf("Jina API error: status %d", httpResp.StatusCode())
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	return resp.Data[0].Embedding, nil
}

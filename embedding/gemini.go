package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

const (
	defaultEmbeddingAPI = "https://generativelanguage.googleapis.com/v1beta/models/gemini-embedding-001:embedContent"
	defaultModel        = "models/gemini-embedding-001"
	defaultDimension    = 768

	maxRetries     = 3
	initialBackoff = 1 * time.Second
	requestTimeout = 30 * time.Second
)

// EmbeddingRequest represents an embedding API request
type EmbeddingRequest struct {
	Model                string       `json:"model"`
	Content              ContentInput `json:"content"`
	TaskType             string       `json:"task_type,omitempty"`
	OutputDimensionality int          `json:"output_dimensionality,omitempty"`
}

// ContentInput represents content for embedding
type ContentInput struct {
	Parts []PartInput `json:"parts"`
}

// PartInput represents a part of content
type PartInput struct {
	Text string `json:"text"`
}

// EmbeddingResponse represents an embedding API response
type EmbeddingResponse struct {
	Embedding EmbeddingData `json:"embedding"`
}

// EmbeddingData contains the embedding values
type EmbeddingData struct {
	Values []float64 `json:"values"`
}

// GeminiConfig configures the Gemini embedding client
type GeminiConfig struct {
	APIKey      string
	Endpoint    string // defaults to the embedContent endpoint
	Model       string
	Dimension   int
	Concurrency int // max in-flight embedding calls
}

// GeminiEmbedder implements Embedder against the Gemini embedding API.
// Calls carry a timeout and are retried with exponential backoff; 400/401
// responses are not retried. Returned vectors are L2-normalized so cosine
// similarity reduces to an inner product.
type GeminiEmbedder struct {
	apiKey      string
	endpoint    string
	model       string
	dimension   int
	concurrency int
	client      *http.Client
}

// NewGeminiEmbedder creates a Gemini embedding client
func NewGeminiEmbedder(cfg GeminiConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEmbeddingAPI
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = defaultDimension
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &GeminiEmbedder{
		apiKey:      cfg.APIKey,
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		dimension:   cfg.Dimension,
		concurrency: cfg.Concurrency,
		client:      &http.Client{Timeout: requestTimeout},
	}, nil
}

// Dimension returns the configured vector length
func (g *GeminiEmbedder) Dimension() int { return g.dimension }

// Concurrency returns the in-flight call limit
func (g *GeminiEmbedder) Concurrency() int { return g.concurrency }

// Embed generates an embedding for document text
func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return g.embed(ctx, text, "RETRIEVAL_DOCUMENT")
}

// EmbedQuery generates an embedding for a retrieval query
func (g *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	return g.embed(ctx, text, "RETRIEVAL_QUERY")
}

func (g *GeminiEmbedder) embed(ctx context.Context, text, taskType string) ([]float64, error) {
	reqBody := EmbeddingRequest{
		Model: g.model,
		Content: ContentInput{
			Parts: []PartInput{{Text: text}},
		},
		TaskType:             taskType,
		OutputDimensionality: g.dimension,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, "POST", g.endpoint, bytes.NewBuffer(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", g.apiKey)

		resp, err := g.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		if resp.StatusCode == http.StatusOK {
			var apiResp EmbeddingResponse
			decodeErr := json.NewDecoder(resp.Body).Decode(&apiResp)
			resp.Body.Close()
			if decodeErr != nil {
				continue
			}
			return normalize(apiResp.Embedding.Values), nil
		}
		resp.Body.Close()

		// don't retry on 400 or 401
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("embedding API error: %d", resp.StatusCode)
		}
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrEmbeddingFailed, maxRetries)
}

// normalize scales a vector to unit length
func normalize(vec []float64) []float64 {
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

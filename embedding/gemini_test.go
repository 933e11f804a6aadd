package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddingServer(t *testing.T, values []float64, wantTaskType string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req EmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if wantTaskType != "" {
			assert.Equal(t, wantTaskType, req.TaskType)
		}
		require.NotEmpty(t, req.Content.Parts)

		json.NewEncoder(w).Encode(EmbeddingResponse{
			Embedding: EmbeddingData{Values: values},
		})
	}))
}

func newTestEmbedder(t *testing.T, endpoint string) *GeminiEmbedder {
	t.Helper()
	e, err := NewGeminiEmbedder(GeminiConfig{
		APIKey:    "test-key",
		Endpoint:  endpoint,
		Dimension: 2,
	})
	require.NoError(t, err)
	return e
}

func TestNewGeminiEmbedder_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiEmbedder(GeminiConfig{})
	assert.Error(t, err)
}

func TestGeminiEmbedder_EmbedNormalizes(t *testing.T) {
	server := embeddingServer(t, []float64{3, 4}, "RETRIEVAL_DOCUMENT")
	defer server.Close()

	vec, err := newTestEmbedder(t, server.URL).Embed(context.Background(), "some document text")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, vec[0], 1e-9)
	assert.InDelta(t, 0.8, vec[1], 1e-9)
}

func TestGeminiEmbedder_QueryTaskType(t *testing.T) {
	server := embeddingServer(t, []float64{1, 0}, "RETRIEVAL_QUERY")
	defer server.Close()

	_, err := newTestEmbedder(t, server.URL).EmbedQuery(context.Background(), "a search query")
	require.NoError(t, err)
}

func TestGeminiEmbedder_NoRetryOnAuthFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestEmbedder(t, server.URL).Embed(context.Background(), "text")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGeminiEmbedder_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(EmbeddingResponse{
			Embedding: EmbeddingData{Values: []float64{1, 0}},
		})
	}))
	defer server.Close()

	vec, err := newTestEmbedder(t, server.URL).Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, vec)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGeminiEmbedder_ExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestEmbedder(t, server.URL).Embed(context.Background(), "text")
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestGeminiEmbedder_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEmbedder(t, server.URL).Embed(ctx, "text")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []float64{0.6, 0.8}, normalize([]float64{3, 4}))
	assert.Equal(t, []float64{0, 0}, normalize([]float64{0, 0}))
}

type countingEmbedder struct {
	failAt int32
	calls  atomic.Int32
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	n := c.calls.Add(1)
	if c.failAt > 0 && n >= c.failAt {
		return nil, errors.New("embed failed")
	}
	return []float64{float64(len(text))}, nil
}

func (c *countingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	return c.Embed(ctx, text)
}

func (c *countingEmbedder) Dimension() int   { return 1 }
func (c *countingEmbedder) Concurrency() int { return 2 }

func TestEmbedBatch_IndexAligned(t *testing.T) {
	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("%0*d", i+1, 0) // length i+1
	}

	vectors, err := EmbedBatch(context.Background(), &countingEmbedder{}, texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for i, vec := range vectors {
		assert.Equal(t, float64(i+1), vec[0])
	}
}

func TestEmbedBatch_PropagatesFirstError(t *testing.T) {
	texts := []string{"a", "b", "c", "d"}
	_, err := EmbedBatch(context.Background(), &countingEmbedder{failAt: 2}, texts)
	assert.Error(t, err)
}

func TestEmbedBatch_Empty(t *testing.T) {
	vectors, err := EmbedBatch(context.Background(), &countingEmbedder{}, nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

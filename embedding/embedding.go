// Package embedding wraps the external model capabilities: text to vector,
// and prompt to completion.
package embedding

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// ErrEmbeddingFailed is returned when the embedding capability could not
// produce a vector within the bounded retry limit. It is a transient
// failure class; callers degrade rather than abort.
var ErrEmbeddingFailed = errors.New("failed to generate embedding")

// Embedder is the text-to-vector capability
type Embedder interface {
	// Embed returns a fixed-length vector for document text
	Embed(ctx context.Context, text string) ([]float64, error)
	// EmbedQuery returns a vector for a retrieval query
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
	// Dimension is the length of produced vectors
	Dimension() int
	// Concurrency is the number of in-flight calls the capability tolerates
	Concurrency() int
}

// Chat is the prompt-to-completion capability
type Chat interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// EmbedBatch embeds all texts through the embedder's worker pool, bounded
// by its concurrency limit. The returned slice is index-aligned with texts;
// the first error cancels outstanding work.
func EmbedBatch(ctx context.Context, e Embedder, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	limit := e.Concurrency()
	if limit <= 0 {
		limit = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.Embed(ctx, text)
			if err != nil {
				return err
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

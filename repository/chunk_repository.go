package repository

import (
	"context"
	"fmt"
	"strings"

	"gxpcheck-backend/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PartialStoreError reports a chunk batch that was only partially stored.
// Callers degrade gracefully: analysis proceeds with structural rules while
// the unstored chunk indices are surfaced in embedding_info.
type PartialStoreError struct {
	Unstored []int // chunk indices that failed to store
	Cause    error // first underlying failure
}

func (e *PartialStoreError) Error() string {
	return fmt.Sprintf("failed to store %d chunks (indices %v): %v", len(e.Unstored), e.Unstored, e.Cause)
}

func (e *PartialStoreError) Unwrap() error { return e.Cause }

// SearchFilter narrows a similarity search
type SearchFilter struct {
	DocumentID  string
	SectionName string
}

// ChunkRepository persists document chunks and their embeddings in Postgres
// with pgvector
type ChunkRepository struct {
	db        *pgxpool.Pool
	dimension int
}

// NewChunkRepository creates a chunk repository. dimension is the embedding
// vector length enforced on writes and searches.
func NewChunkRepository(db *pgxpool.Pool, dimension int) *ChunkRepository {
	return &ChunkRepository{db: db, dimension: dimension}
}

// formatVector formats an embedding vector as a string for pgx
func formatVector(embedding []float64) string {
	if len(embedding) == 0 {
		return "[]"
	}
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = fmt.Sprintf("%.6f", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Upsert stores chunks for a document and returns the count of newly stored
// rows. Re-submitting an identical (document_id, chunk_index, content_hash)
// triple is a no-op, so reprocessing the same document stores nothing new.
// When some chunks fail, the rest are still stored and the error is a
// *PartialStoreError listing the unstored indices.
func (r *ChunkRepository) Upsert(ctx context.Context, chunks []models.Chunk) (int, error) {
	query := `
		INSERT INTO document_chunks (
			document_id, filename, chunk_index, content_hash, chunk_text, section_name, embedding
		) VALUES ($1, $2, $3, $4, $5, $6, $7::vector)
		ON CONFLICT (document_id, chunk_index, content_hash) DO NOTHING`

	stored := 0
	var unstored []int
	var cause error
	for _, chunk := range chunks {
		if len(chunk.Embedding) != r.dimension {
			unstored = append(unstored, chunk.Index)
			if cause == nil {
				cause = fmt.Errorf("embedding must be %d dimensions, got %d", r.dimension, len(chunk.Embedding))
			}
			continue
		}
		tag, err := r.db.Exec(ctx, query,
			chunk.DocumentID,
			chunk.Filename,
			chunk.Index,
			chunk.ContentHash,
			chunk.Text,
			chunk.SectionName,
			formatVector(chunk.Embedding),
		)
		if err != nil {
			unstored = append(unstored, chunk.Index)
			if cause == nil {
				cause = err
			}
			continue
		}
		stored += int(tag.RowsAffected())
	}

	if len(unstored) > 0 {
		return stored, &PartialStoreError{Unstored: unstored, Cause: cause}
	}
	return stored, nil
}

// Search returns the topK chunks nearest to the query embedding by cosine
// distance, ties broken by lowest chunk index.
func (r *ChunkRepository) Search(ctx context.Context, embedding []float64, topK int, filter SearchFilter) ([]models.Chunk, error) {
	if len(embedding) != r.dimension {
		return nil, fmt.Errorf("embedding must be %d dimensions, got %d", r.dimension, len(embedding))
	}
	if topK <= 0 {
		topK = 5
	}

	conditions := []string{"1=1"}
	args := []interface{}{formatVector(embedding)}
	if filter.DocumentID != "" {
		args = append(args, filter.DocumentID)
		conditions = append(conditions, fmt.Sprintf("document_id = $%d", len(args)))
	}
	if filter.SectionName != "" {
		args = append(args, filter.SectionName)
		conditions = append(conditions, fmt.Sprintf("section_name = $%d", len(args)))
	}
	args = append(args, topK)

	query := fmt.Sprintf(`
		SELECT
			document_id,
			filename,
			chunk_index,
			content_hash,
			chunk_text,
			section_name,
			embedding <=> $1::vector AS distance
		FROM document_chunks
		WHERE %s
		ORDER BY
			embedding <=> $1::vector,
			chunk_index
		LIMIT $%d`, strings.Join(conditions, " AND "), len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var chunk models.Chunk
		err := rows.Scan(
			&chunk.DocumentID,
			&chunk.Filename,
			&chunk.Index,
			&chunk.ContentHash,
			&chunk.Text,
			&chunk.SectionName,
			&chunk.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	return chunks, rows.Err()
}

// Stats computes the store-wide aggregate at call time
func (r *ChunkRepository) Stats(ctx context.Context) (models.VectorStoreStats, error) {
	var stats models.VectorStoreStats
	query := `SELECT COUNT(DISTINCT document_id), COUNT(*) FROM document_chunks`
	err := r.db.QueryRow(ctx, query).Scan(&stats.UniqueDocuments, &stats.TotalChunks)
	if err != nil {
		return models.VectorStoreStats{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}

// ListByDocument retrieves all chunks for a document ordered by index
func (r *ChunkRepository) ListByDocument(ctx context.Context, documentID string) ([]models.Chunk, error) {
	query := `
		SELECT document_id, filename, chunk_index, content_hash, chunk_text, section_name
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY chunk_index`

	rows, err := r.db.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var chunk models.Chunk
		err := rows.Scan(
			&chunk.DocumentID,
			&chunk.Filename,
			&chunk.Index,
			&chunk.ContentHash,
			&chunk.Text,
			&chunk.SectionName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	return chunks, rows.Err()
}

// ListDocuments returns the distinct filenames known to the store, used by
// the reference-validity rule to resolve cross-document citations.
func (r *ChunkRepository) ListDocuments(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT filename FROM document_chunks`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var filenames []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan filename: %w", err)
		}
		filenames = append(filenames, name)
	}
	return filenames, rows.Err()
}

// DeleteDocument removes a document and all its chunks, returning the
// number of chunks deleted.
func (r *ChunkRepository) DeleteDocument(ctx context.Context, documentID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete document: %w", err)
	}
	return tag.RowsAffected(), nil
}

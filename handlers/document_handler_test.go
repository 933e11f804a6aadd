package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gxpcheck-backend/models"
)

type fakeDocumentStore struct {
	stats    models.VectorStoreStats
	chunks   []models.Chunk
	deleted  int64
	statsErr error
	queryErr error
}

func (f *fakeDocumentStore) Stats(_ context.Context) (models.VectorStoreStats, error) {
	return f.stats, f.statsErr
}

func (f *fakeDocumentStore) SearchDocuments(_ context.Context, _ string, topK int) ([]models.Chunk, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if len(f.chunks) > topK {
		return f.chunks[:topK], nil
	}
	return f.chunks, nil
}

func (f *fakeDocumentStore) DocumentChunks(_ context.Context, _ string) ([]models.Chunk, error) {
	return f.chunks, f.queryErr
}

func (f *fakeDocumentStore) DeleteDocument(_ context.Context, _ string) (int64, error) {
	return f.deleted, f.queryErr
}

func documentRouter(store DocumentStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewDocumentHandler(store)
	r := gin.New()
	r.GET("/api/documents/stats", h.GetStats)
	r.POST("/api/documents/search", h.SearchDocuments)
	r.GET("/api/documents/:id/chunks", h.GetDocumentChunks)
	r.DELETE("/api/documents/:id", h.DeleteDocument)
	return r
}

func TestGetStats(t *testing.T) {
	store := &fakeDocumentStore{stats: models.VectorStoreStats{UniqueDocuments: 2, TotalChunks: 8}}
	r := documentRouter(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Status string                  `json:"status"`
		Stats  models.VectorStoreStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "success", response.Status)
	assert.Equal(t, 2, response.Stats.UniqueDocuments)
	assert.Equal(t, 8, response.Stats.TotalChunks)
}

func TestGetStats_Error(t *testing.T) {
	store := &fakeDocumentStore{statsErr: errors.New("db down")}
	r := documentRouter(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents/stats", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSearchDocuments(t *testing.T) {
	store := &fakeDocumentStore{chunks: []models.Chunk{
		{DocumentID: "doc-1", Index: 0, Text: "cleaning procedure text"},
		{DocumentID: "doc-1", Index: 1, Text: "more cleaning detail"},
	}}
	r := documentRouter(store)

	body, _ := json.Marshal(map[string]any{"query": "cleaning", "n_results": 2})
	req := httptest.NewRequest(http.MethodPost, "/api/documents/search", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Status  string         `json:"status"`
		Results []models.Chunk `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "success", response.Status)
	assert.Len(t, response.Results, 2)
}

func TestSearchDocuments_MissingQuery(t *testing.T) {
	r := documentRouter(&fakeDocumentStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/documents/search", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDocumentChunks(t *testing.T) {
	store := &fakeDocumentStore{chunks: []models.Chunk{
		{DocumentID: "doc-1", Index: 0, Text: "first"},
		{DocumentID: "doc-1", Index: 1, Text: "second"},
	}}
	r := documentRouter(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents/doc-1/chunks", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Status      string         `json:"status"`
		DocumentID  string         `json:"document_id"`
		Chunks      []models.Chunk `json:"chunks"`
		TotalChunks int            `json:"total_chunks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "doc-1", response.DocumentID)
	assert.Equal(t, 2, response.TotalChunks)
	assert.Len(t, response.Chunks, 2)
}

func TestDeleteDocument(t *testing.T) {
	store := &fakeDocumentStore{deleted: 4}
	r := documentRouter(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/documents/doc-1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Status        string `json:"status"`
		ChunksDeleted int64  `json:"chunks_deleted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "success", response.Status)
	assert.Equal(t, int64(4), response.ChunksDeleted)
}

func TestDeleteDocument_NotFound(t *testing.T) {
	store := &fakeDocumentStore{deleted: 0}
	r := documentRouter(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/documents/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

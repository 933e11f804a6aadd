package models

// Embedding storage status values reported in EmbeddingInfo
const (
	EmbeddingStatusSuccess  = "success"
	EmbeddingStatusDegraded = "degraded"
	EmbeddingStatusFailed   = "failed"
)

// DocumentInfo summarizes section detection for one analysis
type DocumentInfo struct {
	SectionsFound    int `json:"sections_found"`
	SectionsExpected int `json:"sections_expected"`
}

// EmbeddingInfo reports how chunk storage went for one analysis run.
// Storage is best-effort relative to scoring, so a degraded or failed
// status still accompanies a full set of findings.
type EmbeddingInfo struct {
	ChunksStored int    `json:"chunks_stored"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

// AnalysisResult is the outcome of analyzing one uploaded document.
// Produced once per upload and returned synchronously; only its chunks
// persist in the vector store.
type AnalysisResult struct {
	AnalysisID    string        `json:"analysis_id"`
	Filename      string        `json:"filename"`
	Score         int           `json:"score"`
	Findings      []Finding     `json:"findings"`
	DocumentInfo  DocumentInfo  `json:"document_info"`
	EmbeddingInfo EmbeddingInfo `json:"embedding_info"`
}

// VectorStoreStats is a derived aggregate over all stored chunks,
// recomputed on demand.
type VectorStoreStats struct {
	UniqueDocuments int `json:"unique_documents"`
	TotalChunks     int `json:"total_chunks"`
}

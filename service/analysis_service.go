package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"gxpcheck-backend/chunker"
	"gxpcheck-backend/embedding"
	"gxpcheck-backend/models"
	"gxpcheck-backend/parser"
	"gxpcheck-backend/repository"
	"gxpcheck-backend/rules"
	"gxpcheck-backend/scoring"
	"gxpcheck-backend/storage"

	"github.com/google/uuid"
)

// Stage identifies where in the pipeline an analysis is, or where it failed
type Stage string

const (
	StageReceived      Stage = "received"
	StageParsed        Stage = "parsed"
	StageChunked       Stage = "chunked"
	StageEmbedded      Stage = "embedded"
	StageRuleEvaluated Stage = "rule_evaluated"
	StageScored        Stage = "scored"
	StageCompleted     Stage = "completed"
)

// AnalysisError is a per-document pipeline failure. Parse failures are
// fatal for the document; embedding failures degrade instead of producing
// this error.
type AnalysisError struct {
	Stage Stage
	Err   error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed at stage %s: %v", e.Stage, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// ChunkStore is the vector-store contract the orchestrator depends on.
// *repository.ChunkRepository is the production implementation.
type ChunkStore interface {
	Upsert(ctx context.Context, chunks []models.Chunk) (int, error)
	Search(ctx context.Context, embedding []float64, topK int, filter repository.SearchFilter) ([]models.Chunk, error)
	Stats(ctx context.Context) (models.VectorStoreStats, error)
	ListByDocument(ctx context.Context, documentID string) ([]models.Chunk, error)
	ListDocuments(ctx context.Context) ([]string, error)
	DeleteDocument(ctx context.Context, documentID string) (int64, error)
}

// AnalysisService sequences parse, chunk, embed, store, rule evaluation and
// scoring for uploaded documents
type AnalysisService struct {
	parser    *parser.Parser
	store     ChunkStore
	embedder  embedding.Embedder
	chat      embedding.Chat
	archive   storage.Storage
	chunkCfg  chunker.Config
	scoreCfg  scoring.Config
	catalogue []rules.Rule
	workers   int
}

// AnalysisServiceOption is a functional option for AnalysisService
type AnalysisServiceOption func(*AnalysisService)

// WithParser sets the document parser
func WithParser(p *parser.Parser) AnalysisServiceOption {
	return func(s *AnalysisService) { s.parser = p }
}

// WithChunkStore sets the vector store
func WithChunkStore(store ChunkStore) AnalysisServiceOption {
	return func(s *AnalysisService) { s.store = store }
}

// WithEmbedder sets the embedding capability
func WithEmbedder(e embedding.Embedder) AnalysisServiceOption {
	return func(s *AnalysisService) { s.embedder = e }
}

// WithChatClient sets the chat capability used by the staleness rule
func WithChatClient(c embedding.Chat) AnalysisServiceOption {
	return func(s *AnalysisService) { s.chat = c }
}

// WithArchiveStorage sets the raw-document archive backend
func WithArchiveStorage(st storage.Storage) AnalysisServiceOption {
	return func(s *AnalysisService) { s.archive = st }
}

// WithChunkerConfig sets chunk size and overlap
func WithChunkerConfig(cfg chunker.Config) AnalysisServiceOption {
	return func(s *AnalysisService) { s.chunkCfg = cfg }
}

// WithScoringConfig sets the per-severity penalty weights
func WithScoringConfig(cfg scoring.Config) AnalysisServiceOption {
	return func(s *AnalysisService) { s.scoreCfg = cfg }
}

// WithRuleCatalogue replaces the default rule set
func WithRuleCatalogue(catalogue []rules.Rule) AnalysisServiceOption {
	return func(s *AnalysisService) { s.catalogue = catalogue }
}

// WithBatchWorkers bounds the per-batch worker pool. Defaults to the
// embedder's concurrency limit, since that capability is the scarce
// external resource.
func WithBatchWorkers(n int) AnalysisServiceOption {
	return func(s *AnalysisService) { s.workers = n }
}

// NewAnalysisService creates an analysis service
func NewAnalysisService(opts ...AnalysisServiceOption) *AnalysisService {
	s := &AnalysisService{
		chunkCfg: chunker.DefaultConfig(),
		scoreCfg: scoring.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.parser == nil {
		s.parser = parser.New(parser.DefaultConfig())
	}
	if s.catalogue == nil {
		s.catalogue = rules.DefaultCatalogue(s.parser.Catalogue())
	}
	if s.workers <= 0 {
		if s.embedder != nil {
			s.workers = s.embedder.Concurrency()
		} else {
			s.workers = 2
		}
	}
	return s
}

// AnalyzeRequest is one uploaded file
type AnalyzeRequest struct {
	Filename string
	Data     []byte
}

// Analyze runs the full pipeline for one document. The returned error is a
// *AnalysisError carrying the failing stage; embedding and storage failures
// degrade into EmbeddingInfo instead of failing the analysis.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalyzeRequest) (*models.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &AnalysisError{Stage: StageReceived, Err: err}
	}

	doc, err := s.parser.Parse(req.Data, req.Filename)
	if err != nil {
		return nil, &AnalysisError{Stage: StageParsed, Err: err}
	}
	s.archiveUpload(ctx, doc, req)

	spans, err := s.chunkCfg.Split(doc.Text)
	if err != nil {
		return nil, &AnalysisError{Stage: StageChunked, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &AnalysisError{Stage: StageChunked, Err: err}
	}

	embedInfo, fatal := s.embedAndStore(ctx, doc, spans)
	if fatal != nil {
		return nil, fatal
	}

	engine := rules.NewEngine(rules.Deps{
		Store:    s.store,
		Embedder: s.embedder,
		Chat:     s.chat,
	}, s.catalogue...)
	findings := engine.Run(ctx, doc)
	if err := ctx.Err(); err != nil {
		return nil, &AnalysisError{Stage: StageRuleEvaluated, Err: err}
	}
	engine.Enrich(ctx, findings)

	score := s.scoreCfg.Score(findings)
	if findings == nil {
		findings = []models.Finding{}
	}

	return &models.AnalysisResult{
		AnalysisID: uuid.New().String(),
		Filename:   req.Filename,
		Score:      score,
		Findings:   findings,
		DocumentInfo: models.DocumentInfo{
			SectionsFound:    s.countFoundSections(doc),
			SectionsExpected: len(s.parser.Catalogue()),
		},
		EmbeddingInfo: embedInfo,
	}, nil
}

// embedAndStore embeds the chunks and writes them to the vector store.
// Storage is best-effort relative to scoring: every failure short of
// context cancellation degrades into the returned EmbeddingInfo.
func (s *AnalysisService) embedAndStore(ctx context.Context, doc *models.Document, spans []chunker.Span) (models.EmbeddingInfo, *AnalysisError) {
	if s.embedder == nil || s.store == nil {
		return models.EmbeddingInfo{
			Status: models.EmbeddingStatusFailed,
			Error:  "embedding capability not configured",
		}, nil
	}

	texts := make([]string, len(spans))
	for i, span := range spans {
		texts[i] = span.Text
	}
	vectors, err := embedding.EmbedBatch(ctx, s.embedder, texts)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return models.EmbeddingInfo{}, &AnalysisError{Stage: StageEmbedded, Err: err}
		}
		log.Printf("warning: embedding failed for %s: %v", doc.Filename, err)
		return models.EmbeddingInfo{
			Status: models.EmbeddingStatusFailed,
			Error:  err.Error(),
		}, nil
	}

	chunks := make([]models.Chunk, len(spans))
	for i, span := range spans {
		chunks[i] = models.Chunk{
			DocumentID:  doc.ID,
			Filename:    doc.Filename,
			Index:       span.Index,
			Text:        span.Text,
			SectionName: sectionNameAt(doc, span.Start),
			ContentHash: chunker.Hash(span.Text),
			Embedding:   vectors[i],
		}
	}

	stored, err := s.store.Upsert(ctx, chunks)
	if err != nil {
		// a cancelled batch can surface wrapped in a PartialStoreError,
		// so check for cancellation before degrading
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return models.EmbeddingInfo{}, &AnalysisError{Stage: StageEmbedded, Err: err}
		}
		var partial *repository.PartialStoreError
		if errors.As(err, &partial) {
			log.Printf("warning: partial store for %s: %v", doc.Filename, err)
			return models.EmbeddingInfo{
				ChunksStored: stored,
				Status:       models.EmbeddingStatusDegraded,
				Error:        err.Error(),
			}, nil
		}
		log.Printf("warning: chunk store failed for %s: %v", doc.Filename, err)
		return models.EmbeddingInfo{
			Status: models.EmbeddingStatusFailed,
			Error:  err.Error(),
		}, nil
	}

	return models.EmbeddingInfo{
		ChunksStored: stored,
		Status:       models.EmbeddingStatusSuccess,
	}, nil
}

// archiveUpload stores the raw accepted bytes for the audit trail.
// Never fatal.
func (s *AnalysisService) archiveUpload(ctx context.Context, doc *models.Document, req AnalyzeRequest) {
	if s.archive == nil {
		return
	}
	if _, err := s.archive.Upload(ctx, doc.ID, req.Filename, bytes.NewReader(req.Data)); err != nil {
		log.Printf("warning: failed to archive %s: %v", req.Filename, err)
	}
}

func (s *AnalysisService) countFoundSections(doc *models.Document) int {
	found := 0
	for _, name := range s.parser.Catalogue() {
		if _, ok := doc.FindSection(name); ok {
			found++
		}
	}
	return found
}

func sectionNameAt(doc *models.Document, offset int) string {
	for _, sec := range doc.Sections {
		if offset >= sec.Start && offset < sec.End {
			return sec.Name
		}
	}
	return ""
}

// BatchEntry is the per-file outcome of a batch analysis
type BatchEntry struct {
	Filename string                 `json:"filename"`
	Result   *models.AnalysisResult `json:"result,omitempty"`
	Error    *BatchError            `json:"error,omitempty"`
}

// BatchError describes a fatal per-file failure
type BatchError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// AnalyzeBatch processes files independently through a bounded worker pool.
// One file's fatal error never blocks its siblings; the response carries
// exactly one entry per submitted file, in submission order.
func (s *AnalysisService) AnalyzeBatch(ctx context.Context, files []AnalyzeRequest) []BatchEntry {
	entries := make([]BatchEntry, len(files))

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			entry := BatchEntry{Filename: file.Filename}
			result, err := s.Analyze(ctx, file)
			if err != nil {
				stage := StageReceived
				var analysisErr *AnalysisError
				if errors.As(err, &analysisErr) {
					stage = analysisErr.Stage
				}
				entry.Error = &BatchError{Stage: string(stage), Message: err.Error()}
			} else {
				entry.Result = result
			}
			entries[i] = entry
		}()
	}
	wg.Wait()

	return entries
}

// Stats reports the vector-store aggregate
func (s *AnalysisService) Stats(ctx context.Context) (models.VectorStoreStats, error) {
	if s.store == nil {
		return models.VectorStoreStats{}, errors.New("chunk store not set")
	}
	return s.store.Stats(ctx)
}

// SearchDocuments embeds the query and returns the nearest stored chunks
func (s *AnalysisService) SearchDocuments(ctx context.Context, query string, topK int) ([]models.Chunk, error) {
	if s.store == nil {
		return nil, errors.New("chunk store not set")
	}
	if s.embedder == nil {
		return nil, errors.New("embedder not set")
	}
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.store.Search(ctx, vec, topK, repository.SearchFilter{})
}

// DocumentChunks lists the stored chunks of one document
func (s *AnalysisService) DocumentChunks(ctx context.Context, documentID string) ([]models.Chunk, error) {
	if s.store == nil {
		return nil, errors.New("chunk store not set")
	}
	return s.store.ListByDocument(ctx, documentID)
}

// DeleteDocument removes a document's chunks from the store
func (s *AnalysisService) DeleteDocument(ctx context.Context, documentID string) (int64, error) {
	if s.store == nil {
		return 0, errors.New("chunk store not set")
	}
	return s.store.DeleteDocument(ctx, documentID)
}

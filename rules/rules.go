// Package rules implements the compliance rule catalogue. Rules evaluate a
// parsed document independently and emit findings; no rule mutates document
// state, and a failing rule is logged and skipped rather than aborting the
// analysis.
package rules

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gxpcheck-backend/embedding"
	"gxpcheck-backend/models"
	"gxpcheck-backend/repository"
)

// ChunkSearcher is the read-side of the vector store that rules use for
// cross-document and semantic lookups
type ChunkSearcher interface {
	Search(ctx context.Context, embedding []float64, topK int, filter repository.SearchFilter) ([]models.Chunk, error)
	ListDocuments(ctx context.Context) ([]string, error)
}

// Deps carries the external capabilities available to rules. Any field may
// be nil; rules that need a missing capability emit no findings.
type Deps struct {
	Store    ChunkSearcher
	Embedder embedding.Embedder
	Chat     embedding.Chat
}

// Rule detects one class of compliance issue
type Rule interface {
	ID() string
	Evaluate(ctx context.Context, doc *models.Document, deps Deps) ([]models.Finding, error)
}

// Engine runs an ordered rule catalogue against parsed documents
type Engine struct {
	catalogue []Rule
	deps      Deps
}

// NewEngine creates an engine over the given catalogue
func NewEngine(deps Deps, catalogue ...Rule) *Engine {
	return &Engine{catalogue: catalogue, deps: deps}
}

// DefaultCatalogue is the standard GxP rule set
func DefaultCatalogue(required []string) []Rule {
	return []Rule{
		&MandatorySections{Required: required},
		&DocumentMetadata{},
		&RevisionHistory{},
		&PlaceholderContent{},
		&ProcedureClarity{},
		&ApprovalSignatures{},
		&ReferenceValidity{},
		&ReferenceStaleness{},
		&SemanticConformance{},
	}
}

// Run evaluates every rule and concatenates the findings. A rule that
// returns an error or panics contributes zero findings and a logged
// warning; one failing rule never aborts the whole analysis.
func (e *Engine) Run(ctx context.Context, doc *models.Document) []models.Finding {
	var all []models.Finding
	for _, rule := range e.catalogue {
		findings, err := runRule(ctx, rule, doc, e.deps)
		if err != nil {
			log.Printf("warning: rule %s failed on %s: %v", rule.ID(), doc.Filename, err)
			continue
		}
		all = append(all, findings...)
	}
	return all
}

func runRule(ctx context.Context, rule Rule, doc *models.Document, deps Deps) (findings []models.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			findings = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return rule.Evaluate(ctx, doc, deps)
}

// Enrich fills each finding's Explanation with regulatory context retrieved
// from the knowledge base. Entirely best-effort: retrieval failures leave
// the finding unchanged.
func (e *Engine) Enrich(ctx context.Context, findings []models.Finding) {
	if e.deps.Embedder == nil || e.deps.Store == nil {
		return
	}
	for i := range findings {
		if findings[i].Explanation != "" {
			continue
		}
		vec, err := e.deps.Embedder.EmbedQuery(ctx, findings[i].Description)
		if err != nil {
			log.Printf("warning: failed to embed finding for enrichment: %v", err)
			return
		}
		chunks, err := e.deps.Store.Search(ctx, vec, 3, repository.SearchFilter{})
		if err != nil || len(chunks) == 0 {
			continue
		}
		texts := make([]string, len(chunks))
		for j, c := range chunks {
			texts[j] = c.Text
		}
		findings[i].Explanation = "Relevant regulatory context:\n\n" + strings.Join(texts, "\n\n")
	}
}

package rules

import (
	"context"
	"fmt"
	"strings"

	"gxpcheck-backend/models"
	"gxpcheck-backend/repository"
)

// SemanticConformance compares each detected section against the approved
// golden template stored in the vector store. A section whose nearest
// template chunk for the same section name falls below the similarity
// threshold deviates from the template (Major). Without a configured
// template document, or without embedding capabilities, the rule emits
// nothing; sections the template does not carry are skipped.
type SemanticConformance struct {
	TemplateDocumentID string
	Threshold          float64 // defaults to 0.9
}

func (r *SemanticConformance) ID() string { return "semantic-conformance" }

func (r *SemanticConformance) Evaluate(ctx context.Context, doc *models.Document, deps Deps) ([]models.Finding, error) {
	if r.TemplateDocumentID == "" || deps.Embedder == nil || deps.Store == nil {
		return nil, nil
	}
	threshold := r.Threshold
	if threshold <= 0 {
		threshold = 0.9
	}

	var findings []models.Finding
	for _, section := range doc.Sections {
		if !section.Detected {
			continue
		}
		body := strings.TrimSpace(doc.SectionText(section))
		if body == "" {
			continue
		}

		vec, err := deps.Embedder.Embed(ctx, body)
		if err != nil {
			return findings, fmt.Errorf("failed to embed section %q: %w", section.Name, err)
		}
		chunks, err := deps.Store.Search(ctx, vec, 1, repository.SearchFilter{
			DocumentID:  r.TemplateDocumentID,
			SectionName: section.Name,
		})
		if err != nil {
			return findings, fmt.Errorf("failed to query template for section %q: %w", section.Name, err)
		}
		if len(chunks) == 0 {
			continue
		}

		// embeddings are unit length, so cosine distance maps directly
		similarity := 1 - chunks[0].Distance
		if similarity < threshold {
			findings = append(findings, models.Finding{
				Category:    "Content Quality",
				Severity:    models.SeverityMajor,
				RuleID:      r.ID(),
				Description: fmt.Sprintf("Section %q deviates from the approved template (similarity: %.2f)", section.Name, similarity),
			})
		}
	}
	return findings, nil
}

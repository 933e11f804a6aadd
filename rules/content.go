package rules

import (
	"context"
	"fmt"
	"regexp"

	"gxpcheck-backend/models"
)

var (
	sopIDPattern      = regexp.MustCompile(`(?i)SOP-\d+`)
	versionKeyPattern = regexp.MustCompile(`(?i)\b(version|revision|rev)\b`)
	isoDatePattern    = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	revisionEntry     = regexp.MustCompile(`(?i)(v\d+\.\d+|version\s+\d+|rev\s+\d+|\d+\.\d+|draft)`)
	numberedStep      = regexp.MustCompile(`(?m)^\s*\d+[.)]\s`)
)

// DocumentMetadata checks the controlled-document header fields: a SOP-###
// document ID, version or revision information, and an effective date in
// YYYY-MM-DD form. The parser collects header key:value pairs into
// Document.Metadata; values there and the pre-section header text both
// satisfy a check.
type DocumentMetadata struct{}

func (r *DocumentMetadata) ID() string { return "document-metadata" }

func (r *DocumentMetadata) Evaluate(_ context.Context, doc *models.Document, _ Deps) ([]models.Finding, error) {
	header := headerText(doc)

	var findings []models.Finding
	if !matchesMetadata(doc, header, sopIDPattern) {
		findings = append(findings, models.Finding{
			Category:    "Metadata",
			Severity:    models.SeverityCritical,
			RuleID:      r.ID(),
			Description: "Missing document ID (expected format: SOP-###)",
		})
	}
	if !matchesMetadata(doc, header, versionKeyPattern) {
		findings = append(findings, models.Finding{
			Category:    "Metadata",
			Severity:    models.SeverityCritical,
			RuleID:      r.ID(),
			Description: "Missing version/revision information",
		})
	}
	if !matchesMetadata(doc, header, isoDatePattern) {
		findings = append(findings, models.Finding{
			Category:    "Metadata",
			Severity:    models.SeverityMajor,
			RuleID:      r.ID(),
			Description: "Missing effective date (expected format: YYYY-MM-DD)",
		})
	}
	return findings, nil
}

// headerText is the document text preceding the first section
func headerText(doc *models.Document) string {
	if len(doc.Sections) > 0 {
		return doc.Text[:doc.Sections[0].Start]
	}
	if len(doc.Text) > 500 {
		return doc.Text[:500]
	}
	return doc.Text
}

func matchesMetadata(doc *models.Document, header string, pattern *regexp.Regexp) bool {
	for key, value := range doc.Metadata {
		if pattern.MatchString(key) || pattern.MatchString(value) {
			return true
		}
	}
	return pattern.MatchString(header)
}

// RevisionHistory verifies that a present Revision History section carries
// at least one version-like entry. A missing section is the mandatory
// sections rule's finding, not this one's.
type RevisionHistory struct{}

func (r *RevisionHistory) ID() string { return "revision-history" }

func (r *RevisionHistory) Evaluate(_ context.Context, doc *models.Document, _ Deps) ([]models.Finding, error) {
	section, found := doc.FindSection("Revision History")
	if !found {
		return nil, nil
	}
	if revisionEntry.MatchString(doc.SectionText(section)) {
		return nil, nil
	}
	return []models.Finding{{
		Category:    "Content Quality",
		Severity:    models.SeverityMajor,
		RuleID:      r.ID(),
		Description: "Revision History must have at least 1 entry",
	}}, nil
}

// ProcedureClarity requires a present Procedure section to contain at
// least three numbered steps.
type ProcedureClarity struct {
	MinSteps int
}

func (r *ProcedureClarity) ID() string { return "procedure-clarity" }

func (r *ProcedureClarity) Evaluate(_ context.Context, doc *models.Document, _ Deps) ([]models.Finding, error) {
	minSteps := r.MinSteps
	if minSteps <= 0 {
		minSteps = 3
	}
	section, found := doc.FindSection("Procedure")
	if !found {
		return nil, nil
	}
	steps := numberedStep.FindAllString(doc.SectionText(section), -1)
	if len(steps) >= minSteps {
		return nil, nil
	}
	return []models.Finding{{
		Category:    "Content Quality",
		Severity:    models.SeverityMajor,
		RuleID:      r.ID(),
		Description: fmt.Sprintf("Procedure section has insufficient clarity (found %d numbered steps, minimum required: %d)", len(steps), minSteps),
	}}, nil
}

// ApprovalSignatures checks for the required signature lines
type ApprovalSignatures struct{}

func (r *ApprovalSignatures) ID() string { return "approval-signatures" }

func (r *ApprovalSignatures) Evaluate(_ context.Context, doc *models.Document, _ Deps) ([]models.Finding, error) {
	var findings []models.Finding
	for _, required := range []string{"Prepared by", "Reviewed by", "Approved by"} {
		pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(required))
		if pattern.MatchString(doc.Text) {
			continue
		}
		findings = append(findings, models.Finding{
			Category:    "Approvals",
			Severity:    models.SeverityMajor,
			RuleID:      r.ID(),
			Description: fmt.Sprintf("Missing approval/signature line: %s", required),
		})
	}
	return findings, nil
}

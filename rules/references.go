package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gxpcheck-backend/models"
)

var (
	externalRefPattern = regexp.MustCompile(`(?i)\bSOP-\d+\b`)
	internalRefPattern = regexp.MustCompile(`(?i)\bref\.?\s+(\d+(?:\.\d+)+)\b`)
)

// ReferenceValidity extracts citation-like tokens and verifies each one
// resolves. Internal "ref. X.Y" anchors must match a numbered heading or
// line of this document (Minor when unresolved); external SOP-### citations
// must match a document known to the vector store (Major when unresolved).
// External checks are skipped when no store is available.
type ReferenceValidity struct{}

func (r *ReferenceValidity) ID() string { return "reference-validity" }

func (r *ReferenceValidity) Evaluate(ctx context.Context, doc *models.Document, deps Deps) ([]models.Finding, error) {
	var findings []models.Finding

	seen := make(map[string]bool)
	for _, match := range internalRefPattern.FindAllStringSubmatch(doc.Text, -1) {
		anchor := match[1]
		if seen[anchor] {
			continue
		}
		seen[anchor] = true
		if resolvesInternally(doc.Text, anchor) {
			continue
		}
		findings = append(findings, models.Finding{
			Category:    "References",
			Severity:    models.SeverityMinor,
			RuleID:      r.ID(),
			Description: fmt.Sprintf("Unresolved internal reference: ref. %s", anchor),
		})
	}

	if deps.Store == nil {
		return findings, nil
	}
	known, err := deps.Store.ListDocuments(ctx)
	if err != nil {
		return findings, fmt.Errorf("failed to list known documents: %w", err)
	}

	ownID := strings.ToUpper(externalRefPattern.FindString(doc.Filename + " " + metadataValues(doc)))
	for _, token := range externalRefPattern.FindAllString(doc.Text, -1) {
		token = strings.ToUpper(token)
		if seen[token] || token == ownID {
			continue
		}
		seen[token] = true
		if resolvesExternally(known, token) {
			continue
		}
		findings = append(findings, models.Finding{
			Category:    "References",
			Severity:    models.SeverityMajor,
			RuleID:      r.ID(),
			Description: fmt.Sprintf("Unresolved external reference: %s is not a known document", token),
		})
	}
	return findings, nil
}

// resolvesInternally reports whether a numbered anchor like "4.2" begins a
// line of the document.
func resolvesInternally(text, anchor string) bool {
	if strings.HasPrefix(text, anchor) {
		return true
	}
	return strings.Contains(text, "\n"+anchor)
}

func resolvesExternally(known []string, token string) bool {
	for _, filename := range known {
		if strings.Contains(strings.ToUpper(filename), token) {
			return true
		}
	}
	return false
}

func metadataValues(doc *models.Document) string {
	var b strings.Builder
	for _, v := range doc.Metadata {
		b.WriteString(v)
		b.WriteByte(' ')
	}
	return b.String()
}

// ReferenceStaleness asks the chat capability to classify each cited
// standard as current or outdated. Best-effort: without a chat client or a
// References section it emits nothing, and an unparseable response is
// treated as no findings.
type ReferenceStaleness struct{}

func (r *ReferenceStaleness) ID() string { return "reference-staleness" }

type stalenessVerdict struct {
	Reference  string `json:"reference"`
	IsOutdated bool   `json:"is_outdated"`
}

func (r *ReferenceStaleness) Evaluate(ctx context.Context, doc *models.Document, deps Deps) ([]models.Finding, error) {
	if deps.Chat == nil {
		return nil, nil
	}
	section, found := doc.FindSection("References")
	if !found {
		return nil, nil
	}
	referencesText := strings.TrimSpace(doc.SectionText(section))
	if referencesText == "" {
		return nil, nil
	}

	prompt := fmt.Sprintf(`You are an automated compliance checking API. You only respond in valid JSON.
Analyze the following list of regulatory standards. For each standard, determine if it is outdated.

Respond with a single JSON array of objects. Each object must have two keys:
1. "reference": the original standard text.
2. "is_outdated": a boolean, true if the standard is outdated.

Do not add any other text. Your entire response must be only the JSON array.

List of standards to analyze:
%s`, referencesText)

	response, err := deps.Chat.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("staleness check failed: %w", err)
	}

	var verdicts []stalenessVerdict
	if err := json.Unmarshal([]byte(stripCodeFence(response)), &verdicts); err != nil {
		// the model ignored the JSON-only instruction
		return nil, nil
	}

	var findings []models.Finding
	for _, v := range verdicts {
		if !v.IsOutdated {
			continue
		}
		findings = append(findings, models.Finding{
			Category:    "References",
			Severity:    models.SeverityMajor,
			RuleID:      r.ID(),
			Description: fmt.Sprintf("Outdated reference: %s", v.Reference),
		})
	}
	return findings, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

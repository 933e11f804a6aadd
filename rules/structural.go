package rules

import (
	"context"
	"fmt"
	"strings"

	"gxpcheck-backend/models"
)

// MandatorySections flags every required section missing from the document.
// Matching is case-insensitive and ignores numbering prefixes, so a
// "5.0 Responsibilities" heading satisfies "Responsibilities".
type MandatorySections struct {
	Required []string
}

func (r *MandatorySections) ID() string { return "mandatory-sections" }

func (r *MandatorySections) Evaluate(_ context.Context, doc *models.Document, _ Deps) ([]models.Finding, error) {
	var findings []models.Finding
	for _, name := range r.Required {
		if _, found := doc.FindSection(name); !found {
			findings = append(findings, models.Finding{
				Category:    "Structure",
				Severity:    models.SeverityCritical,
				RuleID:      r.ID(),
				Description: fmt.Sprintf("Missing mandatory section: %s", name),
			})
		}
	}
	return findings, nil
}

// DefaultPlaceholderMarkers lists content prohibited in an effective SOP
func DefaultPlaceholderMarkers() []string {
	return []string{"TBD", "TODO", "FIXME", "lorem ipsum", "to be decided", "[INSERT", "XXX"}
}

// PlaceholderContent scans the normalized text for placeholder markers.
// One finding per marker per section, so a section littered with the same
// marker counts once.
type PlaceholderContent struct {
	Markers []string
}

func (r *PlaceholderContent) ID() string { return "placeholder-content" }

func (r *PlaceholderContent) Evaluate(_ context.Context, doc *models.Document, _ Deps) ([]models.Finding, error) {
	markers := r.Markers
	if len(markers) == 0 {
		markers = DefaultPlaceholderMarkers()
	}

	regions := placeholderRegions(doc)
	seen := make(map[string]bool)
	var findings []models.Finding
	for _, marker := range markers {
		lowerMarker := strings.ToLower(marker)
		for _, region := range regions {
			if !strings.Contains(strings.ToLower(region.text), lowerMarker) {
				continue
			}
			key := lowerMarker + "\x00" + models.NormalizeHeading(region.name)
			if seen[key] {
				continue
			}
			seen[key] = true

			desc := fmt.Sprintf("Prohibited placeholder found: %q", marker)
			if region.name != "" {
				desc = fmt.Sprintf("Prohibited placeholder found in section %q: %q", region.name, marker)
			}
			findings = append(findings, models.Finding{
				Category:    "Content Quality",
				Severity:    models.SeverityMajor,
				RuleID:      r.ID(),
				Description: desc,
			})
		}
	}
	return findings, nil
}

type textRegion struct {
	name string // "" for text outside any section
	text string
}

// placeholderRegions splits the document into per-section bodies plus one
// region for the text outside every section. Each region is case-folded
// independently, so attribution never maps offsets of lowered text back
// onto original offsets (case folding changes byte lengths for some runes).
func placeholderRegions(doc *models.Document) []textRegion {
	var regions []textRegion
	var outside strings.Builder
	pos := 0
	for _, s := range doc.Sections {
		if s.Start > pos {
			outside.WriteString(doc.Text[pos:s.Start])
		}
		regions = append(regions, textRegion{name: s.Name, text: doc.SectionText(s)})
		if s.End > pos {
			pos = s.End
		}
	}
	if pos < len(doc.Text) {
		outside.WriteString(doc.Text[pos:])
	}
	if outside.Len() > 0 {
		regions = append(regions, textRegion{text: outside.String()})
	}
	return regions
}

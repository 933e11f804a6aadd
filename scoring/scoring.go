// Package scoring turns a findings list into a 0-100 compliance score and
// provides the read-side grouping projection used for display.
package scoring

import (
	"sort"

	"gxpcheck-backend/models"
)

// Config holds the per-severity penalty weights. They are deliberately
// exposed rather than hidden constants: reviewers calibrate pass/fail
// thresholds against them.
type Config struct {
	CriticalWeight int
	MajorWeight    int
	MinorWeight    int
}

// DefaultConfig returns the standard penalty weights
func DefaultConfig() Config {
	return Config{
		CriticalWeight: 30,
		MajorWeight:    15,
		MinorWeight:    5,
	}
}

// Weight returns the penalty for one finding severity
func (c Config) Weight(severity models.Severity) int {
	switch severity {
	case models.SeverityCritical:
		return c.CriticalWeight
	case models.SeverityMajor:
		return c.MajorWeight
	case models.SeverityMinor:
		return c.MinorWeight
	default:
		return c.MinorWeight
	}
}

// Score starts at 100, subtracts the weight of every finding, and floors
// at 0. Adding a finding never increases the score; there are no
// cross-term interactions.
func (c Config) Score(findings []models.Finding) int {
	penalty := 0
	for _, f := range findings {
		penalty += c.Weight(f.Severity)
	}
	score := 100 - penalty
	if score < 0 {
		return 0
	}
	return score
}

// CategoryGroup is one display bucket of findings
type CategoryGroup struct {
	Category string           `json:"category"`
	Findings []models.Finding `json:"findings"`
}

// Group projects flat findings into category buckets, each sorted Critical
// before Major before Minor. Buckets appear in first-seen order. This is a
// pure read-side projection, reproducible from the findings list alone.
func Group(findings []models.Finding) []CategoryGroup {
	index := make(map[string]int)
	var groups []CategoryGroup
	for _, f := range findings {
		i, ok := index[f.Category]
		if !ok {
			i = len(groups)
			index[f.Category] = i
			groups = append(groups, CategoryGroup{Category: f.Category})
		}
		groups[i].Findings = append(groups[i].Findings, f)
	}
	for i := range groups {
		fs := groups[i].Findings
		sort.SliceStable(fs, func(a, b int) bool {
			return fs[a].Severity.Rank() < fs[b].Severity.Rank()
		})
	}
	return groups
}

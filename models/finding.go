package models

// Severity classifies how serious a compliance finding is
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityMajor    Severity = "Major"
	SeverityMinor    Severity = "Minor"
)

// Rank orders severities for display, lowest rank first (Critical before
// Major before Minor). Unknown severities sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityMajor:
		return 1
	case SeverityMinor:
		return 2
	default:
		return 3
	}
}

// Finding is one detected compliance issue. Findings are derived from a
// single analysis run and never mutated afterwards.
type Finding struct {
	Category    string   `json:"category"`
	Severity    Severity `json:"severity"`
	RuleID      string   `json:"rule_id"`
	Description string   `json:"description"`
	Explanation string   `json:"explanation,omitempty"`
}

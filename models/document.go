package models

import "strings"

// Format identifies the source format of an uploaded document
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// Section is a span of a document's normalized text under one heading.
// Start and End are byte offsets into Document.Text; sections never overlap
// and are ordered by Start.
type Section struct {
	Name     string `json:"name"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Detected bool   `json:"detected"` // matched the expected-heading catalogue
}

// Document represents a parsed regulatory document.
// ID is the sha256 hash of the raw uploaded bytes, so re-uploading the same
// file produces the same document identity.
type Document struct {
	ID       string            `json:"id"`
	Filename string            `json:"filename"`
	Format   Format            `json:"format"`
	Text     string            `json:"-"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Sections []Section         `json:"sections"`
}

// SectionText returns the body text of a section.
func (d *Document) SectionText(s Section) string {
	if s.Start < 0 || s.End > len(d.Text) || s.Start > s.End {
		return ""
	}
	return d.Text[s.Start:s.End]
}

// FindSection looks up a section by name, ignoring case and numbering
// prefixes ("5.0 Responsibilities" matches "Responsibilities").
func (d *Document) FindSection(name string) (Section, bool) {
	want := NormalizeHeading(name)
	for _, s := range d.Sections {
		if NormalizeHeading(s.Name) == want {
			return s, true
		}
	}
	return Section{}, false
}

// NormalizeHeading lowercases a heading and strips numbering prefixes and
// trailing punctuation so catalogue names compare against detected ones.
func NormalizeHeading(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	// strip leading "1.", "2.3", "4.0 " style prefixes
	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
		i++
	}
	s = strings.TrimSpace(s[i:])
	return strings.TrimRight(s, ":.")
}

// Chunk is a bounded span of a document's text, the unit of embedding and
// retrieval. Identity within the vector store is
// (document_id, chunk_index, content_hash).
type Chunk struct {
	DocumentID  string    `json:"document_id"`
	Filename    string    `json:"filename"`
	Index       int       `json:"chunk_index"`
	Text        string    `json:"text"`
	SectionName string    `json:"section_name,omitempty"`
	ContentHash string    `json:"content_hash"`
	Embedding   []float64 `json:"-"`
	Distance    float64   `json:"distance,omitempty"` // set on search results
}

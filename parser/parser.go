package parser

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"gxpcheck-backend/models"
)

var (
	// ErrUnsupportedFormat is returned when the uploaded file is neither PDF nor DOCX
	ErrUnsupportedFormat = errors.New("unsupported document format: only PDF and DOCX are supported")

	// ErrCorruptDocument is returned when the byte stream cannot be decoded
	// into a document tree
	ErrCorruptDocument = errors.New("document is corrupt or could not be decoded")
)

// Config holds parser settings
type Config struct {
	// SectionCatalogue is the ordered list of expected heading names.
	// Matching is case-insensitive and tolerant of numbering prefixes.
	SectionCatalogue []string
}

// DefaultSectionCatalogue lists the sections a GxP SOP is expected to carry
func DefaultSectionCatalogue() []string {
	return []string{
		"Title",
		"Purpose",
		"Scope",
		"Responsibilities",
		"Definitions",
		"Procedure",
		"References",
		"Revision History",
		"Approvals",
	}
}

// DefaultConfig returns a parser config with the standard SOP catalogue
func DefaultConfig() Config {
	return Config{SectionCatalogue: DefaultSectionCatalogue()}
}

// Parser converts raw PDF/DOCX bytes into a normalized Document with
// detected section boundaries. Parsing is a pure transform; a document with
// zero detected sections still parses successfully.
type Parser struct {
	catalogue []string
}

// New creates a parser
func New(cfg Config) *Parser {
	catalogue := cfg.SectionCatalogue
	if len(catalogue) == 0 {
		catalogue = DefaultSectionCatalogue()
	}
	return &Parser{catalogue: catalogue}
}

// Catalogue returns the expected-section catalogue
func (p *Parser) Catalogue() []string {
	return p.catalogue
}

// Parse decodes the file and returns a normalized Document. The format is
// taken from the filename extension, falling back to magic bytes.
func (p *Parser) Parse(data []byte, filename string) (*models.Document, error) {
	format, err := detectFormat(data, filename)
	if err != nil {
		return nil, err
	}

	var lines []line
	var metadata map[string]string
	switch format {
	case models.FormatPDF:
		lines, metadata, err = parsePDF(data)
	case models.FormatDOCX:
		lines, metadata, err = parseDOCX(data)
	}
	if err != nil {
		return nil, err
	}

	text, sections := assemble(lines, p.catalogue)
	extractHeaderMetadata(lines, metadata)

	sum := sha256.Sum256(data)
	return &models.Document{
		ID:       hex.EncodeToString(sum[:]),
		Filename: filename,
		Format:   format,
		Text:     text,
		Metadata: metadata,
		Sections: sections,
	}, nil
}

func detectFormat(data []byte, filename string) (models.Format, error) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return models.FormatPDF, nil
	case strings.HasSuffix(lower, ".docx"):
		return models.FormatDOCX, nil
	}

	// fall back to magic bytes; DOCX files are ZIP archives
	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		return models.FormatPDF, nil
	case bytes.HasPrefix(data, []byte("PK")):
		return models.FormatDOCX, nil
	}
	return "", ErrUnsupportedFormat
}

// line is one normalized text line produced by a format-specific decoder
type line struct {
	text    string
	heading bool // carried a heading style (DOCX only)
}

var whitespace = strings.NewReplacer("\t", " ", " ", " ", "\r", "")

// normalizeLine collapses whitespace runs to single spaces and trims
func normalizeLine(s string) string {
	s = whitespace.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// extractHeaderMetadata scans the first lines of the document for
// "Key: Value" pairs (document ID, version, effective date and similar)
// and records them in the metadata map.
func extractHeaderMetadata(lines []line, metadata map[string]string) {
	const headerLines = 10
	for i, l := range lines {
		if i >= headerLines || l.heading {
			break
		}
		key, value, found := strings.Cut(l.text, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" || len(key) > 40 {
			continue
		}
		if _, exists := metadata[key]; !exists {
			metadata[key] = value
		}
	}
}

package parser

import (
	"strings"

	"gxpcheck-backend/models"
)

// assemble joins normalized lines into the document's full text and locates
// section boundaries. A line opens a section when it matches the expected
// heading catalogue (case-insensitive, numbering prefixes ignored) or when
// the decoder marked it as heading-styled. Section bodies start after the
// heading line and run to the start of the next heading; offsets are
// monotonic and sections never overlap by construction.
func assemble(lines []line, catalogue []string) (string, []models.Section) {
	inCatalogue := make(map[string]bool, len(catalogue))
	for _, name := range catalogue {
		inCatalogue[models.NormalizeHeading(name)] = true
	}

	kept := make([]line, 0, len(lines))
	for _, l := range lines {
		if l.text != "" {
			kept = append(kept, l)
		}
	}

	// offsets[i] is the byte offset of line i in the joined text
	offsets := make([]int, len(kept))
	pos := 0
	texts := make([]string, len(kept))
	for i, l := range kept {
		offsets[i] = pos
		texts[i] = l.text
		pos += len(l.text) + 1 // '\n' separator
	}
	text := strings.Join(texts, "\n")

	var sections []models.Section
	for i, l := range kept {
		if !inCatalogue[models.NormalizeHeading(l.text)] && !l.heading {
			continue
		}
		if n := len(sections); n > 0 {
			// exclude the separator before the heading line
			sections[n-1].End = offsets[i] - 1
		}
		start := len(text)
		if i+1 < len(kept) {
			start = offsets[i+1]
		}
		sections = append(sections, models.Section{
			Name:     l.text,
			Start:    start,
			End:      len(text),
			Detected: inCatalogue[models.NormalizeHeading(l.text)],
		})
	}
	// a heading immediately followed by another heading has an empty body
	for i := range sections {
		if sections[i].End < sections[i].Start {
			sections[i].End = sections[i].Start
		}
	}

	return text, sections
}

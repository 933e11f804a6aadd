package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// parsePDF extracts text lines from a PDF byte stream. Pages that fail text
// extraction are skipped; the document as a whole only fails when the byte
// stream is not a readable PDF at all.
func parsePDF(data []byte) (lines []line, metadata map[string]string, err error) {
	// the pdf package panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			lines, metadata = nil, nil
			err = fmt.Errorf("%w: %v", ErrCorruptDocument, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}

	metadata = map[string]string{
		"total_pages": strconv.Itoa(reader.NumPage()),
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		for _, raw := range strings.Split(text, "\n") {
			lines = append(lines, line{text: normalizeLine(raw)})
		}
	}

	return lines, metadata, nil
}

package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// documentXML mirrors the parts of word/document.xml we read
type documentXML struct {
	Body struct {
		Paragraphs []paragraphXML `xml:"p"`
	} `xml:"body"`
}

type paragraphXML struct {
	Props struct {
		Style struct {
			Val string `xml:"val,attr"`
		} `xml:"pStyle"`
	} `xml:"pPr"`
	Runs []runXML `xml:"r"`
}

type runXML struct {
	Text []textXML `xml:"t"`
}

type textXML struct {
	Content string `xml:",chardata"`
}

// coreXML mirrors the document properties in docProps/core.xml
type coreXML struct {
	Title   string `xml:"title"`
	Creator string `xml:"creator"`
	Subject string `xml:"subject"`
}

// parseDOCX extracts text lines from a DOCX byte stream. DOCX files are ZIP
// archives carrying the document body in word/document.xml; paragraphs with
// a Heading style are flagged so section detection can use them even when
// the heading text is not in the catalogue.
func parseDOCX(data []byte) ([]line, map[string]string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}

	content, err := readArchiveFile(reader, "word/document.xml")
	if err != nil {
		return nil, nil, err
	}
	if content == nil {
		return nil, nil, fmt.Errorf("%w: missing word/document.xml", ErrCorruptDocument)
	}

	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}

	lines := make([]line, 0, len(doc.Body.Paragraphs))
	for _, para := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, run := range para.Runs {
			for _, t := range run.Text {
				b.WriteString(t.Content)
			}
		}
		lines = append(lines, line{
			text:    normalizeLine(b.String()),
			heading: strings.HasPrefix(para.Props.Style.Val, "Heading"),
		})
	}

	metadata := map[string]string{}
	if props, _ := readArchiveFile(reader, "docProps/core.xml"); props != nil {
		var core coreXML
		if err := xml.Unmarshal(props, &core); err == nil {
			if core.Title != "" {
				metadata["title"] = strings.TrimSpace(core.Title)
			}
			if core.Creator != "" {
				metadata["author"] = strings.TrimSpace(core.Creator)
			}
			if core.Subject != "" {
				metadata["subject"] = strings.TrimSpace(core.Subject)
			}
		}
	}

	return lines, metadata, nil
}

func readArchiveFile(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
		}
		return content, nil
	}
	return nil, nil
}

package rules

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gxpcheck-backend/models"
)

func TestMandatorySections_AllPresent(t *testing.T) {
	doc := buildDoc("sop.docx", "",
		sectionDef{name: "Purpose", body: "Defines cleaning."},
		sectionDef{name: "Scope", body: "All areas."},
	)
	rule := &MandatorySections{Required: []string{"Purpose", "Scope"}}

	findings, err := rule.Evaluate(context.Background(), doc, Deps{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestMandatorySections_Missing(t *testing.T) {
	doc := buildDoc("sop.docx", "",
		sectionDef{name: "Purpose", body: "Defines cleaning."},
	)
	rule := &MandatorySections{Required: []string{"Purpose", "Scope", "Responsibilities"}}

	findings, err := rule.Evaluate(context.Background(), doc, Deps{})
	require.NoError(t, err)
	require.Len(t, findings, 2)

	for _, f := range findings {
		assert.Equal(t, models.SeverityCritical, f.Severity)
		assert.Equal(t, "Structure", f.Category)
	}
	assert.Equal(t, "Missing mandatory section: Scope", findings[0].Description)
	assert.Equal(t, "Missing mandatory section: Responsibilities", findings[1].Description)
}

func TestMandatorySections_NumberedHeadingSatisfies(t *testing.T) {
	doc := buildDoc("sop.docx", "",
		sectionDef{name: "5.0 Responsibilities", body: "QA owns this."},
	)
	rule := &MandatorySections{Required: []string{"Responsibilities"}}

	findings, err := rule.Evaluate(context.Background(), doc, Deps{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestPlaceholderContent_FindsMarkers(t *testing.T) {
	doc := buildDoc("sop.docx", "",
		sectionDef{name: "Procedure", body: "1. Clean the tank. 2. TBD 3. Record results."},
		sectionDef{name: "References", body: "[INSERT REFERENCE HERE]"},
	)
	rule := &PlaceholderContent{}

	findings, err := rule.Evaluate(context.Background(), doc, Deps{})
	require.NoError(t, err)
	require.Len(t, findings, 2)

	for _, f := range findings {
		assert.Equal(t, models.SeverityMajor, f.Severity)
		assert.Equal(t, "Content Quality", f.Category)
	}
	assert.Contains(t, findings[0].Description, "TBD")
	assert.Contains(t, findings[0].Description, "Procedure")
	assert.Contains(t, findings[1].Description, "[INSERT")
}

func TestPlaceholderContent_DedupPerMarkerPerSection(t *testing.T) {
	doc := buildDoc("sop.docx", "",
		sectionDef{name: "Procedure", body: "TODO step one. TODO step two. TODO step three."},
	)
	rule := &PlaceholderContent{}

	findings, err := rule.Evaluate(context.Background(), doc, Deps{})
	require.NoError(t, err)
	assert.Len(t, findings, 1)
}

func TestPlaceholderContent_CaseInsensitive(t *testing.T) {
	doc := buildDoc("sop.docx", "",
		sectionDef{name: "Definitions", body: "Terms are to be decided later."},
	)
	rule := &PlaceholderContent{}

	findings, err := rule.Evaluate(context.Background(), doc, Deps{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Contains(t, strings.ToLower(findings[0].Description), "to be decided")
}

func TestPlaceholderContent_CleanDocument(t *testing.T) {
	doc := buildDoc("sop.docx", "",
		sectionDef{name: "Purpose", body: "Fully written content with no gaps."},
	)
	rule := &PlaceholderContent{}

	findings, err := rule.Evaluate(context.Background(), doc, Deps{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestPlaceholderContent_UnicodeSectionAttribution(t *testing.T) {
	// the Turkish dotted capital İ grows by a byte under case folding;
	// attribution must not drift on documents containing such runes
	doc := buildDoc("sop.docx", "İŞLEM İÇİN GENEL BİLGİ: TEMİZLİK TALİMATI",
		sectionDef{name: "Purpose", body: "Tam olarak yazılmış içerik."},
		sectionDef{name: "Procedure", body: "1. İlk adım. TODO"},
	)
	rule := &PlaceholderContent{}

	findings, err := rule.Evaluate(context.Background(), doc, Deps{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Description, "Procedure")
	assert.Contains(t, findings[0].Description, "TODO")
}

func TestPlaceholderContent_MarkerInsideAndOutsideSections(t *testing.T) {
	doc := buildDoc("sop.docx", "Header draft, TBD",
		sectionDef{name: "Scope", body: "Coverage is TBD."},
	)
	rule := &PlaceholderContent{}

	findings, err := rule.Evaluate(context.Background(), doc, Deps{})
	require.NoError(t, err)
	require.Len(t, findings, 2)

	assert.Contains(t, findings[0].Description, "Scope")
	assert.NotContains(t, findings[1].Description, "Scope")
}

func TestPlaceholderContent_CustomMarkers(t *testing.T) {
	doc := buildDoc("sop.docx", "",
		sectionDef{name: "Purpose", body: "Contains DRAFT-ONLY text."},
	)
	rule := &PlaceholderContent{Markers: []string{"DRAFT-ONLY"}}

	findings, err := rule.Evaluate(context.Background(), doc, Deps{})
	require.NoError(t, err)
	assert.Len(t, findings, 1)
}

package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gxpcheck-backend/models"
)

func TestReferenceValidity_InternalAnchorResolves(t *testing.T) {
	doc := buildDoc("sop.docx", "",
		sectionDef{name: "4.2 Sampling", body: "Take three samples."},
		sectionDef{name: "Procedure", body: "Follow ref. 4.2 for sampling."},
	)

	findings, err := (&ReferenceValidity{}).Evaluate(context.Background(), doc, Deps{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestReferenceValidity_InternalAnchorUnresolved(t *testing.T) {
	doc := buildDoc("sop.docx", "",
		sectionDef{name: "Procedure", body: "Follow ref. 9.9 for sampling."},
	)

	findings, err := (&ReferenceValidity{}).Evaluate(context.Background(), doc, Deps{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.SeverityMinor, findings[0].Severity)
	assert.Equal(t, "References", findings[0].Category)
	assert.Contains(t, findings[0].Description, "ref. 9.9")
}

func TestReferenceValidity_ExternalResolvesAgainstStore(t *testing.T) {
	doc := buildDoc("sop.docx", "",
		sectionDef{name: "References", body: "Cleaning detail in SOP-002."},
	)
	store := &fakeSearcher{docs: []string{"sop-002_cleaning_detail.docx"}}

	findings, err := (&ReferenceValidity{}).Evaluate(context.Background(), doc, Deps{Store: store})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestReferenceValidity_ExternalUnresolved(t *testing.T) {
	doc := buildDoc("sop.docx", "",
		sectionDef{name: "References", body: "Cleaning detail in SOP-404."},
	)
	store := &fakeSearcher{docs: []string{"sop-002_cleaning_detail.docx"}}

	findings, err := (&ReferenceValidity{}).Evaluate(context.Background(), doc, Deps{Store: store})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.SeverityMajor, findings[0].Severity)
	assert.Contains(t, findings[0].Description, "SOP-404")
}

func TestReferenceValidity_OwnIDExcluded(t *testing.T) {
	doc := buildDoc("SOP-001_cleaning.docx", "Document ID: SOP-001",
		sectionDef{name: "Purpose", body: "This document, SOP-001, defines cleaning."},
	)
	store := &fakeSearcher{}

	findings, err := (&ReferenceValidity{}).Evaluate(context.Background(), doc, Deps{Store: store})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestReferenceValidity_ExternalSkippedWithoutStore(t *testing.T) {
	doc := buildDoc("sop.docx", "",
		sectionDef{name: "References", body: "See SOP-404 for details."},
	)

	findings, err := (&ReferenceValidity{}).Evaluate(context.Background(), doc, Deps{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestReferenceValidity_StoreErrorSurfaces(t *testing.T) {
	doc := buildDoc("sop.docx", "",
		sectionDef{name: "References", body: "See SOP-404 for details."},
	)
	store := &fakeSearcher{listErr: errors.New("connection refused")}

	_, err := (&ReferenceValidity{}).Evaluate(context.Background(), doc, Deps{Store: store})
	assert.Error(t, err)
}

func TestReferenceStaleness_FlagsOutdated(t *testing.T) {
	doc := buildDoc("sop.docx", "",
		sectionDef{name: "References", body: "ISO 9001:2008\n21 CFR Part 11"},
	)
	chat := &fakeChat{response: `[
		{"reference": "ISO 9001:2008", "is_outdated": true},
		{"reference": "21 CFR Part 11", "is_outdated": false}
	]`}

	findings, err := (&ReferenceStaleness{}).Evaluate(context.Background(), doc, Deps{Chat: chat})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.SeverityMajor, findings[0].Severity)
	assert.Contains(t, findings[0].Description, "ISO 9001:2008")
}

func TestReferenceStaleness_CodeFencedResponse(t *testing.T) {
	doc := buildDoc("sop.docx", "",
		sectionDef{name: "References", body: "ISO 9001:2008"},
	)
	chat := &fakeChat{response: "```json\n[{\"reference\": \"ISO 9001:2008\", \"is_outdated\": true}]\n```"}

	findings, err := (&ReferenceStaleness{}).Evaluate(context.Background(), doc, Deps{Chat: chat})
	require.NoError(t, err)
	assert.Len(t, findings, 1)
}

func TestReferenceStaleness_UnparseableResponse(t *testing.T) {
	doc := buildDoc("sop.docx", "",
		sectionDef{name: "References", body: "ISO 9001:2015"},
	)
	chat := &fakeChat{response: "I think those standards look fine to me!"}

	findings, err := (&ReferenceStaleness{}).Evaluate(context.Background(), doc, Deps{Chat: chat})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestReferenceStaleness_SkippedWithoutChat(t *testing.T) {
	doc := buildDoc("sop.docx", "",
		sectionDef{name: "References", body: "ISO 9001:2008"},
	)

	findings, err := (&ReferenceStaleness{}).Evaluate(context.Background(), doc, Deps{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestReferenceStaleness_SkippedWithoutReferencesSection(t *testing.T) {
	doc := buildDoc("sop.docx", "",
		sectionDef{name: "Purpose", body: "No references here."},
	)
	chat := &fakeChat{err: errors.New("should not be called")}

	findings, err := (&ReferenceStaleness{}).Evaluate(context.Background(), doc, Deps{Chat: chat})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

package ucl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modulescout/modulescout/internal/scraper"
)

const modulePageHTML = `<!DOCTYPE html>
<html>
<head>
<meta name="ucl:sanitized_faculty" content="Faculty of Mathematical and Physical Sciences">
<meta name="ucl:sanitized_teaching_department" content="Chemistry">
<meta name="ucl:sanitized_credit_value" content="15">
<meta name="ucl:sanitized_level" content="5">
<meta name="ucl:sanitized_intended_teaching_term" content="Term 1">
<meta name="ucl:sanitized_subject" content="Chemistry">
</head>
<body>
<h1 class="heading">Organic Chemistry (CHEM0019)</h1>
<dl class="dl-inline">
<dt>Restrictions</dt>
<dd>Not available to Natural Sciences students. Students must have passed CHEM0004.</dd>
<dt>Methods of assessment</dt>
<dd>70% Exam 30% Coursework</dd>
</dl>
<div class="module-description">
<p><strong>Module Outline:</strong> This module covers reaction mechanisms.</p>
<p>Further topics include stereochemistry and spectroscopy.</p>
<p><strong>Module Aims:</strong> At the end of this module students will be able to: 1. Explain substitution mechanisms. 2. Predict reaction outcomes.</p>
<p><strong>Teaching and Learning Methods</strong> Lectures and laboratory classes.</p>
</div>
</body>
</html>`

func TestParseModulePage(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(modulePageHTML))
	require.NoError(t, err)

	record, err := ParseModulePage(doc, "organic-chemistry-CHEM0019")
	require.NoError(t, err)

	assert.Equal(t, "organic-chemistry-CHEM0019", record.Slug)
	assert.Equal(t, "Organic Chemistry (CHEM0019)", record.Title)
	assert.Equal(t, "Faculty of Mathematical and Physical Sciences", record.Faculty)
	assert.Equal(t, "Chemistry", record.Department)
	assert.Equal(t, "Chemistry", record.Subject)
	assert.Equal(t, "15", record.CreditValue)
	assert.Equal(t, 5, record.Level)
	assert.Equal(t, "Term 1", record.TeachingTerm)
	assert.Contains(t, record.Restrictions, "Not available to Natural Sciences students")
}

func TestParseModulePageOutlineSpansParagraphs(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(modulePageHTML))
	require.NoError(t, err)

	record, err := ParseModulePage(doc, "organic-chemistry-CHEM0019")
	require.NoError(t, err)

	assert.Contains(t, record.Outline, "reaction mechanisms")
	assert.Contains(t, record.Outline, "stereochemistry and spectroscopy")
}

func TestParseModulePageAims(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(modulePageHTML))
	require.NoError(t, err)

	record, err := ParseModulePage(doc, "organic-chemistry-CHEM0019")
	require.NoError(t, err)

	require.Len(t, record.Aims, 2)
	assert.Equal(t, "Explain substitution mechanisms.", record.Aims[0])
	assert.Equal(t, "Predict reaction outcomes.", record.Aims[1])
}

func TestParseModulePageAssessment(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(modulePageHTML))
	require.NoError(t, err)

	record, err := ParseModulePage(doc, "organic-chemistry-CHEM0019")
	require.NoError(t, err)

	assert.Equal(t, "70%", record.Assessment["Exam"])
	assert.Equal(t, "30%", record.Assessment["Coursework"])
}

func TestParseModulePageLearningMethods(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(modulePageHTML))
	require.NoError(t, err)

	record, err := ParseModulePage(doc, "organic-chemistry-CHEM0019")
	require.NoError(t, err)

	require.NotNil(t, record.Learning)
	assert.Contains(t, record.Learning["description"], "Lectures and laboratory classes")
}

func TestParseModulePageMissingTitle(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	require.NoError(t, err)

	_, err = ParseModulePage(doc, "ghost-module-XXXX0000")
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, 5, parseLevel("5"))
	assert.Equal(t, 4, parseLevel("First"))
	assert.Equal(t, 5, parseLevel("Intermediate"))
	assert.Equal(t, 6, parseLevel("Advanced"))
	assert.Equal(t, 7, parseLevel("Masters"))
	assert.Equal(t, 0, parseLevel("unknown"))
}

func TestSplitAimsWithoutNumbers(t *testing.T) {
	aims := splitAims("Develop a broad understanding of the field.")
	require.Len(t, aims, 1)
	assert.Equal(t, "Develop a broad understanding of the field.", aims[0])
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/organic-chemistry-CHEM0019", r.URL.Path)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(modulePageHTML))
	}))
	defer server.Close()

	client := scraper.NewClient(5*time.Second, 0)
	record, err := Fetch(context.Background(), client, server.URL+"/", "organic-chemistry-CHEM0019")
	require.NoError(t, err)
	assert.Equal(t, "Organic Chemistry (CHEM0019)", record.Title)
}

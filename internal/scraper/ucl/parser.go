// Package ucl parses UCL module catalogue pages into module records.
package ucl

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/modulescout/modulescout/internal/catalog"
	"github.com/modulescout/modulescout/internal/scraper"
)

// BaseURL is the root of the public module catalogue.
const BaseURL = "https://www.ucl.ac.uk/module-catalogue/modules/"

var aimNumberRe = regexp.MustCompile(`\d+\.\s+`)

// Fetch downloads and parses one module page identified by its slug.
func Fetch(ctx context.Context, client *scraper.Client, baseURL, slug string) (*catalog.ModuleRecord, error) {
	if baseURL == "" {
		baseURL = BaseURL
	}
	url := baseURL + slug

	doc, err := client.GetDocument(ctx, url)
	if err != nil {
		return nil, err
	}

	record, err := ParseModulePage(doc, slug)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return record, nil
}

// ParseModulePage extracts a module record from a catalogue page document.
func ParseModulePage(doc *goquery.Document, slug string) (*catalog.ModuleRecord, error) {
	title := strings.TrimSpace(doc.Find("h1.heading").First().Text())
	if title == "" {
		return nil, fmt.Errorf("module %s: missing title heading", slug)
	}

	record := &catalog.ModuleRecord{
		Slug:         slug,
		Title:        title,
		Faculty:      metaContent(doc, "ucl:sanitized_faculty"),
		Department:   metaContent(doc, "ucl:sanitized_teaching_department"),
		Subject:      metaContent(doc, "ucl:sanitized_subject"),
		CreditValue:  metaContent(doc, "ucl:sanitized_credit_value"),
		TeachingTerm: metaContent(doc, "ucl:sanitized_intended_teaching_term"),
	}

	if level := metaContent(doc, "ucl:sanitized_level"); level != "" {
		record.Level = parseLevel(level)
	}

	parseKeyInfo(doc, record)
	parseDescription(doc, record)

	return record, nil
}

// metaContent reads a sanitized catalogue meta tag by name.
func metaContent(doc *goquery.Document, name string) string {
	content, _ := doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).First().Attr("content")
	return strings.TrimSpace(content)
}

// parseLevel maps a catalogue level label onto an FHEQ level.
// The catalogue uses both plain numbers and named labels.
func parseLevel(label string) int {
	if n, err := strconv.Atoi(strings.TrimSpace(label)); err == nil {
		return n
	}
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "first":
		return 4
	case "intermediate", "second":
		return 5
	case "advanced", "third":
		return 6
	case "masters", "postgraduate":
		return 7
	}
	return 0
}

// parseKeyInfo walks the dl.dl-inline definition list for restrictions and
// assessment methods. Each dt label is immediately followed by its dd value.
func parseKeyInfo(doc *goquery.Document, record *catalog.ModuleRecord) {
	doc.Find("dl.dl-inline dt").Each(func(_ int, dt *goquery.Selection) {
		label := strings.TrimSpace(dt.Text())
		value := strings.TrimSpace(dt.NextFiltered("dd").Text())
		if value == "" {
			return
		}

		switch label {
		case "Restrictions":
			record.Restrictions = value
		case "Methods of assessment":
			record.Assessment = parseAssessment(value)
		}
	})
}

// parseAssessment splits "70% Exam 30% Coursework" style text into a map of
// method to percentage.
func parseAssessment(text string) map[string]string {
	parts := strings.Split(text, "%")
	if len(parts) < 2 {
		return nil
	}

	assessment := make(map[string]string)
	// Each split boundary leaves the percentage at the tail of the previous
	// chunk and the method name at the head of the next one.
	for i := 0; i < len(parts)-1; i++ {
		current := strings.TrimSpace(parts[i])
		next := strings.TrimSpace(parts[i+1])

		fields := strings.Fields(current)
		if len(fields) == 0 {
			continue
		}
		percent := fields[len(fields)-1]
		if _, err := strconv.Atoi(percent); err != nil {
			continue
		}

		method := next
		if i+1 < len(parts)-1 {
			// Strip the trailing percentage that belongs to the next entry.
			nextFields := strings.Fields(next)
			if len(nextFields) > 0 {
				if _, err := strconv.Atoi(nextFields[len(nextFields)-1]); err == nil {
					method = strings.TrimSpace(strings.Join(nextFields[:len(nextFields)-1], " "))
				}
			}
		}
		if method != "" {
			assessment[method] = percent + "%"
		}
	}

	if len(assessment) == 0 {
		return nil
	}
	return assessment
}

// parseDescription walks the module description block. Paragraphs starting
// with a bold heading open a section; following paragraphs belong to it
// until the next heading.
func parseDescription(doc *goquery.Document, record *catalog.ModuleRecord) {
	section := ""
	var outline, aims, learning []string

	doc.Find("div.module-description p").Each(func(_ int, p *goquery.Selection) {
		heading := strings.TrimSpace(p.Find("strong").First().Text())
		text := strings.TrimSpace(p.Text())

		if heading != "" && strings.HasPrefix(text, heading) {
			switch {
			case strings.HasPrefix(heading, "Module Outline"):
				section = "outline"
			case strings.HasPrefix(heading, "Module Aims"):
				section = "aims"
			case strings.HasPrefix(heading, "Teaching and Learning Methods"):
				section = "learning"
			default:
				section = ""
			}
			text = strings.TrimSpace(strings.TrimPrefix(text, heading))
			text = strings.TrimPrefix(text, ":")
			text = strings.TrimSpace(text)
		}

		if text == "" {
			return
		}

		switch section {
		case "outline":
			outline = append(outline, text)
		case "aims":
			aims = append(aims, text)
		case "learning":
			learning = append(learning, text)
		}
	})

	record.Outline = strings.Join(outline, "\n")
	record.Aims = splitAims(strings.Join(aims, "\n"))
	if len(learning) > 0 {
		record.Learning = map[string]string{"description": strings.Join(learning, "\n")}
	}
}

// splitAims breaks a numbered aims blob ("1. Introduce... 2. Develop...")
// into individual aims, dropping the lead-in sentence when present.
func splitAims(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	parts := aimNumberRe.Split(text, -1)
	aims := make([]string, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		// The chunk before "1." is usually a lead-in like "At the end of
		// this module students will be able to:".
		if i == 0 && len(parts) > 1 && strings.HasSuffix(part, ":") {
			continue
		}
		aims = append(aims, part)
	}

	if len(aims) == 0 {
		return []string{text}
	}
	return aims
}

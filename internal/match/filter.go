// Package match orchestrates the query pipeline: validate the request,
// encode the query, rank the catalogue and filter the candidates down to
// modules the student may actually take.
package match

import (
	"strings"

	"github.com/modulescout/modulescout/internal/catalog"
)

// Level policy per year of study. Year 1 students take level 4 modules,
// year 2 take level 5, final-year students choose from levels 5-6 with
// level 7 available as an elective.
var levelsByYear = map[int][]int{
	1: {4},
	2: {5},
	3: {5, 6, 7},
}

// levelAllowed reports whether a module level is open to a student year.
// Year 0 means no year constraint; modules without a level pass through.
func levelAllowed(year, level int) bool {
	if year == 0 || level == 0 {
		return true
	}
	for _, l := range levelsByYear[year] {
		if l == level {
			return true
		}
	}
	return false
}

// electiveFor reports whether the module counts as an elective rather than
// a core option for the student's year.
func electiveFor(year, level int) bool {
	return year == 3 && level == 7
}

// completedCodes normalizes completed-module identifiers (slugs or bare
// module codes) into a code set for prerequisite checks.
func completedCodes(completed []string) map[string]bool {
	if len(completed) == 0 {
		return nil
	}
	codes := make(map[string]bool, len(completed))
	for _, c := range completed {
		if code := catalog.CodeFromSlug(c); code != "" {
			codes[code] = true
			continue
		}
		codes[strings.ToUpper(strings.TrimSpace(c))] = true
	}
	return codes
}

// eligible applies the constraint filter to one candidate. Filtering is
// pure and never fails; a module is either in or out.
func eligible(m *catalog.ModuleRecord, req *Request, completed map[string]bool) bool {
	if !levelAllowed(req.Year, m.Level) {
		return false
	}
	if m.Predicates.Excludes(req.Subject) {
		return false
	}
	if len(m.Predicates.PrerequisiteCodes) > 0 {
		if len(m.Predicates.MissingPrerequisites(completed)) > 0 {
			return false
		}
	}
	return true
}

package catalog

import (
	"regexp"
	"strings"
)

// RestrictionPredicates is the structured form of a module's free-text
// restrictions, derived once at load time so the request path never parses
// prose.
type RestrictionPredicates struct {
	// ExcludedSubjects lists subject names (lowercased) whose students may
	// not take the module.
	ExcludedSubjects []string
	// PrerequisiteCodes lists module codes the student must have completed.
	PrerequisiteCodes []string
}

var (
	moduleCodeRe = regexp.MustCompile(`[A-Z]{4}[0-9]{4}`)

	// "not available to Chemistry students", "not open to students studying
	// Natural Sciences"
	exclusionRe = regexp.MustCompile(`(?i)not\s+(?:available|open)\s+to\s+(?:students?\s+(?:of|in|on|studying)\s+)?(.+?)\s+(?:students|programmes?|degrees?)`)

	prereqKeywordRe    = regexp.MustCompile(`(?i)must\s+have|requires?|prerequisites?|have\s+(?:successfully\s+)?(?:taken|completed|passed)`)
	exclusionKeywordRe = regexp.MustCompile(`(?i)not\s+(?:available|open)|cannot\s+be\s+taken|may\s+not\s+be\s+taken`)
)

// ParseRestrictions extracts structured predicates from a restrictions
// sentence. Text it cannot classify is ignored; the raw string stays on the
// record for display.
func ParseRestrictions(text string) RestrictionPredicates {
	var p RestrictionPredicates
	if strings.TrimSpace(text) == "" {
		return p
	}

	for _, sentence := range splitSentences(text) {
		if exclusionKeywordRe.MatchString(sentence) {
			p.ExcludedSubjects = append(p.ExcludedSubjects, extractSubjects(sentence)...)
			continue
		}
		if prereqKeywordRe.MatchString(sentence) {
			for _, code := range moduleCodeRe.FindAllString(sentence, -1) {
				p.PrerequisiteCodes = appendUnique(p.PrerequisiteCodes, code)
			}
		}
	}
	return p
}

// Excludes reports whether the predicates bar students of the given subject.
func (p RestrictionPredicates) Excludes(subject string) bool {
	if subject == "" {
		return false
	}
	needle := strings.ToLower(strings.TrimSpace(subject))
	for _, s := range p.ExcludedSubjects {
		if s == needle {
			return true
		}
	}
	return false
}

// MissingPrerequisites returns the prerequisite codes not covered by the
// given set of completed module codes.
func (p RestrictionPredicates) MissingPrerequisites(completed map[string]bool) []string {
	var missing []string
	for _, code := range p.PrerequisiteCodes {
		if !completed[code] {
			missing = append(missing, code)
		}
	}
	return missing
}

// CodeFromSlug returns the module code embedded in a catalogue slug, e.g.
// "chemical-biology-CHEM0030" -> "CHEM0030". Empty when no code is present.
func CodeFromSlug(slug string) string {
	if i := strings.LastIndex(slug, "-"); i >= 0 {
		tail := strings.ToUpper(slug[i+1:])
		if moduleCodeRe.MatchString(tail) && len(tail) == 8 {
			return tail
		}
	}
	return ""
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == ';' || r == '\n'
	})
}

func extractSubjects(sentence string) []string {
	m := exclusionRe.FindStringSubmatch(sentence)
	if m == nil {
		return nil
	}

	// The captured group may name several subjects: "Chemistry, Physics or
	// Natural Sciences students".
	var subjects []string
	fragment := strings.NewReplacer(" or ", ",", " and ", ",").Replace(m[1])
	for _, part := range strings.Split(fragment, ",") {
		s := strings.ToLower(strings.TrimSpace(part))
		if s != "" {
			subjects = append(subjects, s)
		}
	}
	return subjects
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

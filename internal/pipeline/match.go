package pipeline

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/study-extract/internal/corpus"
	"github.com/sells-group/study-extract/internal/model"
)

// SourceMatcher binds a record with no Source File to a corpus document.
type SourceMatcher interface {
	Match(rec model.DocumentRecord, names []string) (string, bool)
}

// DefaultCitationFields are read, in order, for an author-year citation.
var DefaultCitationFields = []string{"First Author (Year)", "Study ID"}

var authorYear = regexp.MustCompile(`(\w+).*?(\d{4})`)

// AuthorYearMatcher matches a citation like "Barkyoumb 2025" to the first
// PDF whose folded name contains both the author token and the year.
type AuthorYearMatcher struct {
	Fields []string
}

// NewAuthorYearMatcher returns a matcher reading DefaultCitationFields.
func NewAuthorYearMatcher() *AuthorYearMatcher {
	return &AuthorYearMatcher{Fields: DefaultCitationFields}
}

// Match returns the first name in names bound to rec's citation.
func (m *AuthorYearMatcher) Match(rec model.DocumentRecord, names []string) (string, bool) {
	citation := m.citation(rec)
	if citation == "" {
		return "", false
	}
	parts := authorYear.FindStringSubmatch(fold(citation))
	if parts == nil {
		return "", false
	}
	author, year := parts[1], parts[2]
	for _, n := range names {
		if !corpus.IsPDF(n) {
			continue
		}
		folded := fold(n)
		if strings.Contains(folded, author) && strings.Contains(folded, year) {
			return n, true
		}
	}
	return "", false
}

func (m *AuthorYearMatcher) citation(rec model.DocumentRecord) string {
	fields := m.Fields
	if len(fields) == 0 {
		fields = DefaultCitationFields
	}
	for _, f := range fields {
		if v, ok := rec.Get(f); ok && v != nil && strings.TrimSpace(*v) != "" {
			return *v
		}
	}
	return ""
}

// fold lowercases s and strips diacritics, so "Müller" matches "muller".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

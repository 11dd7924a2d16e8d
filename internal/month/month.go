// Package month recognizes month names in English, French and Spanish.
package month

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Month is a canonical calendar month.
type Month struct {
	Name  string
	Index int
}

type spelling struct {
	name     string
	variants []string
}

// Spellings per month: English, French, Spanish. Accents are stripped before matching.
var spellings = [12]spelling{
	{"january", []string{"january", "jan", "janvier", "janv", "enero", "ene"}},
	{"february", []string{"february", "feb", "fevrier", "février", "fevr", "févr", "febrero"}},
	{"march", []string{"march", "mar", "mars", "marzo"}},
	{"april", []string{"april", "apr", "avril", "avr", "abril", "abr"}},
	{"may", []string{"may", "mai", "mayo"}},
	{"june", []string{"june", "jun", "juin", "junio"}},
	{"july", []string{"july", "jul", "juillet", "juil", "julio"}},
	{"august", []string{"august", "aug", "aout", "août", "agosto", "ago"}},
	{"september", []string{"september", "sep", "sept", "septembre", "septiembre"}},
	{"october", []string{"october", "oct", "octobre", "octubre"}},
	{"november", []string{"november", "nov", "novembre", "noviembre"}},
	{"december", []string{"december", "dec", "decembre", "décembre", "déc", "diciembre", "dic"}},
}

var matchers = compileMatchers()

func compileMatchers() [12]*regexp.Regexp {
	var out [12]*regexp.Regexp
	for i, s := range spellings {
		seen := make(map[string]bool, len(s.variants))
		parts := make([]string, 0, len(s.variants))
		for _, v := range s.variants {
			v = Normalize(v)
			if seen[v] {
				continue
			}
			seen[v] = true
			parts = append(parts, regexp.QuoteMeta(v))
		}
		out[i] = regexp.MustCompile(`(^|[^a-z])(` + strings.Join(parts, "|") + `)([^a-z]|$)`)
	}
	return out
}

// Normalize lower-cases s and strips diacritics.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Identify returns the first month whose spelling appears as a whole word in name.
func Identify(name string) (Month, bool) {
	normalized := Normalize(name)
	for i, re := range matchers {
		if re.MatchString(normalized) {
			return Month{Index: i, Name: spellings[i].name}, true
		}
	}
	return Month{}, false
}

// ByIndex returns the month for a zero-based index.
func ByIndex(index int) (Month, bool) {
	if index < 0 || index >= len(spellings) {
		return Month{}, false
	}
	return Month{Index: index, Name: spellings[index].name}, true
}

// All returns the twelve months in calendar order.
func All() []Month {
	out := make([]Month, len(spellings))
	for i, s := range spellings {
		out[i] = Month{Index: i, Name: s.name}
	}
	return out
}

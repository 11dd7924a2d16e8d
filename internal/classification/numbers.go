package classification

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Veraticus/scanfill/internal/model"
)

const (
	// Characters of context inspected around a number when rejecting it.
	rejectWindow = 30
	// Characters of context kept on a candidate for display.
	displayWindow = model.DefaultSnippetWidth

	minAmount = 0.01
	maxAmount = 1_000_000
)

var (
	numberRe     = regexp.MustCompile(`(\d+(?:[\s\x{00A0}\x{202F}.]\d{3})*(?:[.,]\d{1,2})?)`)
	pageCountRe  = regexp.MustCompile(`\d+\s*/\s*\d+`)
	pageMarkRe   = regexp.MustCompile(`--\s*\d+\s*--`)
	yearRe       = regexp.MustCompile(`202[0-9]`)
	phoneRe      = regexp.MustCompile(`0[1-9]([\s\x{00A0}\x{202F}]?\d{2}){4}`)
	phoneLabelRe = regexp.MustCompile(`tél|tel|phone`)
	fiveDigitRe  = regexp.MustCompile(`^\d{5}$`)
	dateRe       = regexp.MustCompile(`\d+/\d+|/\d+`)
)

// ExtractNumbers returns every token in text that plausibly is a monetary amount.
// Candidates carry no tier or priority.
func (c *Classifier) ExtractNumbers(text string) []model.Candidate {
	c.mu.RLock()
	tables := c.tables
	c.mu.RUnlock()
	return extractNumbers(&tables, text)
}

func extractNumbers(tables *compiledTables, text string) []model.Candidate {
	var out []model.Candidate

	for _, loc := range numberRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2], loc[3]
		raw := text[start:end]

		if start > 0 && isIdentifierChar(text[start-1]) {
			continue
		}
		if end < len(text) && isIdentifierChar(text[end]) {
			continue
		}

		ctxStart, ctxEnd := widen(text, start, end, rejectWindow)
		context := strings.ToLower(text[ctxStart:ctxEnd])
		if rejectByContext(tables, raw, context, text, end) {
			continue
		}

		amount, ok := parseAmount(raw)
		if !ok || amount <= minAmount || amount >= maxAmount {
			continue
		}

		span := &model.TextSpan{Source: text, Offset: start, Length: end - start}
		out = append(out, model.Candidate{
			Amount:  amount,
			Context: span.Snippet(displayWindow),
			Span:    span,
		})
	}
	return out
}

func rejectByContext(tables *compiledTables, raw, context, text string, end int) bool {
	hasDecimal := strings.ContainsAny(raw, ".,")

	switch {
	case containsAny(context, tables.identifier):
		return true
	case pageCountRe.MatchString(context) || pageMarkRe.MatchString(context):
		return true
	case yearRe.MatchString(raw) && !hasDecimal:
		return true
	case phoneRe.MatchString(context) || phoneLabelRe.MatchString(context):
		return true
	case fiveDigitRe.MatchString(raw):
		return true
	case len(strings.ReplaceAll(stripSpaces(raw), ".", "")) > 12:
		return true
	case end < len(text) && text[end] == '%', strings.Contains(context, "%"):
		return true
	case dateRe.MatchString(context) && len(raw) <= 4:
		return true
	}
	return false
}

// isIdentifierChar reports bytes that glue a number to a code, like "FR76" or "A-12".
func isIdentifierChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '-'
}

// widen expands [start,end) by n runes on each side.
func widen(text string, start, end, n int) (int, int) {
	for i := 0; i < n && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
	}
	for i := 0; i < n && end < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}
	return start, end
}

// parseAmount normalizes "1.234,56", "1 234,56", "236,50" and "1234.56".
func parseAmount(raw string) (float64, bool) {
	s := stripSpaces(raw)
	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")
	switch {
	case hasDot && hasComma:
		s = strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
	case hasComma:
		s = strings.Replace(s, ",", ".", 1)
	}
	return parseLeadingFloat(s)
}

// parseLeadingFloat parses the longest numeric prefix of s, so "1.234.567"
// reads as 1.234 the same way a lenient float parser would.
func parseLeadingFloat(s string) (float64, bool) {
	end := 0
	seenDot := false
	for end < len(s) {
		ch := s[end]
		if ch >= '0' && ch <= '9' {
			end++
			continue
		}
		if ch == '.' && !seenDot {
			seenDot = true
			end++
			continue
		}
		break
	}
	prefix := strings.TrimSuffix(s[:end], ".")
	if prefix == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// stripSpaces drops every Unicode space, including the no-break and narrow
// no-break spaces French layouts use as thousands separators.
func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

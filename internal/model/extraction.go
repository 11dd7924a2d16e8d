package model

import (
	"fmt"
	"strings"
)

// ExtractionStatus indicates how confidently an amount was extracted from a document.
type ExtractionStatus string

// Extraction status constants.
const (
	StatusSuccess   ExtractionStatus = "success"
	StatusAmbiguous ExtractionStatus = "ambiguous"
	StatusFailed    ExtractionStatus = "failed"
)

// DefaultSnippetWidth is the number of characters shown on each side of a match.
const DefaultSnippetWidth = 50

// TextSpan locates a match inside the text it was found in.
type TextSpan struct {
	Source string
	Offset int
	Length int
}

// Snippet renders the match with width characters of context on each side.
// Newlines are flattened and runs of whitespace collapsed.
func (s *TextSpan) Snippet(width int) string {
	if s == nil || s.Offset < 0 || s.Offset+s.Length > len(s.Source) {
		return ""
	}
	if width < 0 {
		width = 0
	}
	start := s.Offset
	for i := 0; i < width && start > 0; i++ {
		start--
		for start > 0 && !isRuneStart(s.Source[start]) {
			start--
		}
	}
	end := s.Offset + s.Length
	for i := 0; i < width && end < len(s.Source); i++ {
		end++
		for end < len(s.Source) && !isRuneStart(s.Source[end]) {
			end++
		}
	}
	return "..." + strings.Join(strings.Fields(s.Source[start:end]), " ") + "..."
}

// Match returns the matched text itself.
func (s *TextSpan) Match() string {
	if s == nil || s.Offset < 0 || s.Offset+s.Length > len(s.Source) {
		return ""
	}
	return s.Source[s.Offset : s.Offset+s.Length]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// Candidate is a monetary value detected in document text.
type Candidate struct {
	Span     *TextSpan
	Context  string
	Amount   float64
	Tier     int
	Priority int
	Currency bool
}

// ExtractionResult is the outcome of reading one document.
type ExtractionResult struct {
	Status     ExtractionStatus
	Message    string
	Candidates []Candidate
	Amount     float64
	UsedOCR    bool
}

// SuccessResult builds a successful result.
func SuccessResult(amount float64, candidates []Candidate) ExtractionResult {
	return ExtractionResult{Status: StatusSuccess, Amount: amount, Candidates: candidates}
}

// AmbiguousResult builds a result that needs an operator decision.
func AmbiguousResult(candidates []Candidate) ExtractionResult {
	return ExtractionResult{Status: StatusAmbiguous, Candidates: candidates}
}

// FailedResult builds a failed result carrying an explanation.
func FailedResult(format string, args ...any) ExtractionResult {
	return ExtractionResult{Status: StatusFailed, Message: fmt.Sprintf(format, args...)}
}

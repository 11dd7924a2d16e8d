package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Veraticus/scanfill/internal/model"
)

// Snippet width bounds for the widen/narrow commands.
const (
	MinSnippetWidth  = 10
	MaxSnippetWidth  = 400
	snippetWidthStep = 25
)

// ErrResolutionAborted is returned when the operator quits the review.
var ErrResolutionAborted = errors.New("resolution aborted")

// ErrInvalidAmount is returned by ParseTypedAmount for unusable input.
var ErrInvalidAmount = errors.New("invalid amount")

// Resolver asks the operator to settle conflicts one line at a time.
type Resolver struct {
	writer io.Writer
	reader *NonBlockingReader
	width  int
}

// NewResolver creates a line-based resolver. Nil streams default to stdin/stdout.
func NewResolver(reader io.Reader, writer io.Writer) *Resolver {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Resolver{
		reader: NewNonBlockingReader(reader),
		writer: writer,
		width:  model.DefaultSnippetWidth,
	}
}

// Width is the current snippet context width.
func (r *Resolver) Width() int {
	return r.width
}

// Resolve presents one conflict and returns the operator's decision.
// position and total only label the prompt.
func (r *Resolver) Resolve(ctx context.Context, conflict model.Conflict, position, total int) (model.Resolution, error) {
	for {
		if err := ctx.Err(); err != nil {
			return model.Resolution{}, err
		}

		if _, err := fmt.Fprintln(r.writer, RenderBox(fmt.Sprintf("Conflict %d/%d", position, total), r.describe(conflict))); err != nil {
			return model.Resolution{}, fmt.Errorf("failed to write conflict: %w", err)
		}
		if _, err := fmt.Fprint(r.writer, FormatPrompt(r.promptText(conflict))); err != nil {
			return model.Resolution{}, fmt.Errorf("failed to write prompt: %w", err)
		}

		input, err := r.reader.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return model.Resolution{}, fmt.Errorf("%w: input terminated", ErrResolutionAborted)
			}
			return model.Resolution{}, err
		}

		resolution, done, err := r.interpret(strings.TrimSpace(input), conflict)
		if errors.Is(err, ErrResolutionAborted) {
			return model.Resolution{}, err
		}
		if err != nil {
			r.warn(err.Error())
			continue
		}
		if done {
			return resolution, nil
		}
	}
}

// interpret applies one line of input. done is false when the prompt should repeat.
func (r *Resolver) interpret(input string, conflict model.Conflict) (model.Resolution, bool, error) {
	switch strings.ToLower(input) {
	case "":
		if conflict.Suggested != nil {
			return model.Resolution{Amount: *conflict.Suggested, Manual: true}, true, nil
		}
		return model.Resolution{}, false, errors.New("enter a candidate number or an amount")
	case "s":
		return model.Resolution{Skipped: true}, true, nil
	case "q":
		return model.Resolution{}, false, ErrResolutionAborted
	case "w":
		r.width = min(r.width+snippetWidthStep, MaxSnippetWidth)
		return model.Resolution{}, false, nil
	case "n":
		r.width = max(r.width-snippetWidthStep, MinSnippetWidth)
		return model.Resolution{}, false, nil
	}

	if idx, err := strconv.Atoi(input); err == nil && idx >= 1 && idx <= len(conflict.Candidates) {
		return model.Resolution{Amount: conflict.Candidates[idx-1].Amount}, true, nil
	}

	amount, err := ParseTypedAmount(strings.TrimPrefix(input, "="))
	if err != nil {
		return model.Resolution{}, false, err
	}
	return model.Resolution{Amount: amount, Manual: true}, true, nil
}

func (r *Resolver) warn(message string) {
	if _, err := fmt.Fprintln(r.writer, FormatError(message)); err != nil {
		slog.Warn("Failed to write error message", "error", err)
	}
}

func (r *Resolver) promptText(conflict model.Conflict) string {
	var opts []string
	if len(conflict.Candidates) > 0 {
		opts = append(opts, fmt.Sprintf("1-%d", len(conflict.Candidates)))
	}
	opts = append(opts, "amount", "w/n", "s", "q")
	if conflict.Suggested != nil {
		return fmt.Sprintf("Choice [%s] (enter = %.2f)", strings.Join(opts, "/"), *conflict.Suggested)
	}
	return fmt.Sprintf("Choice [%s]", strings.Join(opts, "/"))
}

func (r *Resolver) describe(conflict model.Conflict) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", FileIcon, BoldStyle.Render(conflict.FileName))
	fmt.Fprintf(&b, "  %s / %s\n", conflict.Month, conflict.Category)
	fmt.Fprintf(&b, "  %s\n", SubtleStyle.Render(filepath.Dir(conflict.FilePath)))

	status := WarningStyle.Render(string(conflict.Status))
	if conflict.Status == model.StatusFailed {
		status = ErrorStyle.Render(string(conflict.Status))
	}
	fmt.Fprintf(&b, "  Status: %s", status)
	if conflict.Message != "" {
		fmt.Fprintf(&b, " (%s)", conflict.Message)
	}
	b.WriteString("\n")

	if conflict.Suggested != nil {
		fmt.Fprintf(&b, "  Previously entered: %s\n", SuccessStyle.Render(strconv.FormatFloat(*conflict.Suggested, 'f', 2, 64)))
	}

	if len(conflict.Candidates) > 0 {
		b.WriteString("\n")
	}
	for i, c := range conflict.Candidates {
		fmt.Fprintf(&b, "  [%d] %s", i+1, BoldStyle.Render(strconv.FormatFloat(c.Amount, 'f', 2, 64)))
		if snippet := CandidateSnippet(c, r.width); snippet != "" {
			fmt.Fprintf(&b, "  %s", SubtleStyle.Render(snippet))
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// CandidateSnippet renders the candidate's surrounding text at width, or its
// stored context when no span is available.
func CandidateSnippet(c model.Candidate, width int) string {
	if s := c.Span.Snippet(width); s != "" {
		return s
	}
	return c.Context
}

// ParseTypedAmount reads an operator-typed amount. Both "12,50" and "12.50"
// are accepted, as are thousands separators and a trailing currency sign.
func ParseTypedAmount(input string) (float64, error) {
	s := strings.TrimSpace(input)
	s = strings.TrimRight(s, "€$£ ")
	s = strings.NewReplacer(" ", "", "\u00a0", "", "'", "").Replace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, input)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: amount cannot be negative", ErrInvalidAmount)
	}
	return v, nil
}

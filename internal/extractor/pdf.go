package extractor

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/scanfill/internal/common"
	"github.com/ledongthuc/pdf"
)

// PDFText reads the embedded text layer of a PDF.
type PDFText struct{}

// Text returns the document text with one line per visual row and pages
// separated by newlines. Documents the parser rejects or crashes on are
// reported as common.ErrDocumentUnreadable.
func (PDFText) Text(ctx context.Context, path string) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: PDF library crashed: %v", common.ErrDocumentUnreadable, r)
		}
	}()

	f, r, openErr := pdf.Open(path)
	if openErr != nil {
		return "", fmt.Errorf("%w: %w", common.ErrDocumentUnreadable, openErr)
	}
	defer func() { _ = f.Close() }()

	numPages := r.NumPage()
	if numPages == 0 {
		return "", fmt.Errorf("%w: PDF has no pages", common.ErrDocumentUnreadable)
	}

	pages := textByRow(r, numPages)
	if strings.TrimSpace(strings.Join(pages, "")) != "" {
		return strings.Join(pages, "\n"), nil
	}

	return plainText(r), nil
}

func textByRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			parts := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			line := strings.TrimSpace(strings.Join(parts, " "))
			if line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// plainText is the whole-document fallback for PDFs without row structure.
func plainText(r *pdf.Reader) string {
	reader, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return ""
	}
	return string(data)
}

// Package sheets writes month/category totals into spreadsheets and reads
// the layout metadata needed to map categories to rows.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Veraticus/scanfill/internal/common"
	"github.com/Veraticus/scanfill/internal/model"
)

// NumberFormat is applied to every written total.
const NumberFormat = "#,##0.00"

// Sink writes totals and inspects layouts for one spreadsheet backend.
type Sink interface {
	UpdateSheet(ctx context.Context, target model.SheetConfig, data map[string]map[string]float64) error
	Metadata(ctx context.Context, target model.SheetConfig) (*Metadata, error)
}

// Metadata describes a worksheet layout.
type Metadata struct {
	Tabs       []string
	Categories []CategoryLabel
	Months     []MonthCell
	Sheet      string
}

// CategoryLabel is a text cell in the category column.
type CategoryLabel struct {
	Label   string
	Address string
	Row     int
}

// MonthCell is a header cell recognized as a month, scanning right from the start cell.
type MonthCell struct {
	Label   string
	Month   string
	Address string
	Index   int
}

// CategoryRows turns detected labels into a category -> row mapping.
func (m *Metadata) CategoryRows() map[string]int {
	rows := make(map[string]int, len(m.Categories))
	for _, c := range m.Categories {
		rows[c.Label] = c.Row
	}
	return rows
}

// Router dispatches to the backend selected by the target's kind.
// The Google client is created on first use.
type Router struct {
	excel     *ExcelSink
	google    *GoogleSink
	newGoogle func(ctx context.Context) (*GoogleSink, error)
	mu        sync.Mutex
}

// NewRouter creates a router. googleConfig may be nil when only xlsx files are used.
func NewRouter(googleConfig *GoogleConfig, logger *slog.Logger) *Router {
	r := &Router{excel: NewExcelSink(logger)}
	if googleConfig != nil {
		cfg := *googleConfig
		r.newGoogle = func(ctx context.Context) (*GoogleSink, error) {
			return NewGoogleSink(ctx, cfg, logger)
		}
	}
	return r
}

func (r *Router) backend(ctx context.Context, kind model.SheetKind) (Sink, error) {
	switch kind {
	case model.SheetKindXLSX:
		return r.excel, nil
	case model.SheetKindGoogle:
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.google != nil {
			return r.google, nil
		}
		if r.newGoogle == nil {
			return nil, fmt.Errorf("%w: google sheets credentials", common.ErrMissingConfig)
		}
		g, err := r.newGoogle(ctx)
		if err != nil {
			return nil, err
		}
		r.google = g
		return g, nil
	default:
		return nil, fmt.Errorf("%w: unknown sheet kind %q", common.ErrInvalidConfig, kind)
	}
}

// UpdateSheet writes data through the matching backend.
func (r *Router) UpdateSheet(ctx context.Context, target model.SheetConfig, data map[string]map[string]float64) error {
	sink, err := r.backend(ctx, target.Kind)
	if err != nil {
		return err
	}
	return sink.UpdateSheet(ctx, target, data)
}

// Metadata reads layout metadata through the matching backend.
func (r *Router) Metadata(ctx context.Context, target model.SheetConfig) (*Metadata, error) {
	sink, err := r.backend(ctx, target.Kind)
	if err != nil {
		return nil, err
	}
	return sink.Metadata(ctx, target)
}

// KindForPath guesses the backend from a file name.
func KindForPath(path string) (model.SheetKind, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".xlsx"), strings.HasSuffix(lower, ".xlsm"):
		return model.SheetKindXLSX, nil
	case strings.HasSuffix(lower, ".ods"):
		return "", common.NewUserError(
			fmt.Sprintf("%s is an OpenDocument workbook, which scanfill cannot write. "+
				"Open it in LibreOffice, use File > Save As with the Excel 2007-365 (.xlsx) format, "+
				"and point the project at the new .xlsx file", path),
			common.ErrInvalidConfig)
	default:
		return "", fmt.Errorf("%w: unrecognized spreadsheet %s", common.ErrInvalidConfig, path)
	}
}

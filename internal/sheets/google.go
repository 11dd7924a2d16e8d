package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/scanfill/internal/common"
	"github.com/Veraticus/scanfill/internal/model"
	"github.com/Veraticus/scanfill/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleSink writes totals into a Google spreadsheet.
type GoogleSink struct {
	service *sheets.Service
	logger  *slog.Logger
	config  GoogleConfig
}

// NewGoogleSink authenticates and creates a Google Sheets sink.
func NewGoogleSink(ctx context.Context, config GoogleConfig, logger *slog.Logger) (*GoogleSink, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &GoogleSink{
		config:  config,
		service: service,
		logger:  logger,
	}, nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config GoogleConfig) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := oauthClientConfig(config.ClientID, config.ClientSecret, "")
		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		tokenSource = client.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

func (g *GoogleSink) retryOptions() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  max(g.config.RetryAttempts, 1),
		InitialDelay: g.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// classify maps API failures onto the sink's error taxonomy. Only rate
// limiting and server errors are retried.
func classify(err error, spreadsheetID string) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case apiErr.Code >= 500:
		return &common.RetryableError{Err: err, Retryable: true}
	case apiErr.Code == http.StatusNotFound:
		return &common.RetryableError{Err: fmt.Errorf("%w: spreadsheet %s", common.ErrFileNotFound, spreadsheetID)}
	default:
		return &common.RetryableError{Err: err}
	}
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// sheetID returns the numeric id of a tab and the list of all tab titles.
func (g *GoogleSink) sheetID(ctx context.Context, spreadsheetID, title string) (int64, []string, error) {
	var (
		id     int64 = -1
		titles []string
	)
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		resp, err := g.service.Spreadsheets.Get(spreadsheetID).
			Fields("sheets.properties").
			Context(ctx).
			Do()
		if err != nil {
			return classify(err, spreadsheetID)
		}
		titles = titles[:0]
		for _, s := range resp.Sheets {
			if s.Properties == nil {
				continue
			}
			titles = append(titles, s.Properties.Title)
			if s.Properties.Title == title {
				id = s.Properties.SheetId
			}
		}
		return nil
	}, g.retryOptions())
	if err != nil {
		return 0, nil, err
	}
	return id, titles, nil
}

func (g *GoogleSink) readRange(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	var values [][]any
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		resp, err := g.service.Spreadsheets.Values.Get(spreadsheetID, rng).
			ValueRenderOption("UNFORMATTED_VALUE").
			Context(ctx).
			Do()
		if err != nil {
			return classify(err, spreadsheetID)
		}
		values = resp.Values
		return nil
	}, g.retryOptions())
	return values, err
}

// UpdateSheet writes every mapped total and applies the number format.
func (g *GoogleSink) UpdateSheet(ctx context.Context, target model.SheetConfig, data map[string]map[string]float64) error {
	id := target.SpreadsheetID
	tabID, _, err := g.sheetID(ctx, id, target.SheetName)
	if err != nil {
		return fmt.Errorf("failed to read spreadsheet: %w", err)
	}
	if tabID < 0 {
		return fmt.Errorf("%w: %s", common.ErrWorksheetNotFound, target.SheetName)
	}

	start := quoteSheet(target.SheetName) + "!" + strings.TrimSpace(target.MonthStartCell)
	values, err := g.readRange(ctx, id, start)
	if err != nil {
		return fmt.Errorf("failed to read month start cell: %w", err)
	}
	baseLabel := ""
	if len(values) > 0 && len(values[0]) > 0 {
		baseLabel = fmt.Sprint(values[0][0])
	}

	writes, skipped, err := planWrites(target, baseLabel, data)
	if err != nil {
		return err
	}
	if len(skipped) > 0 {
		g.logger.Debug("Skipping unmapped totals", "entries", skipped)
	}
	if len(writes) == 0 {
		return nil
	}

	ranges := make([]*sheets.ValueRange, 0, len(writes))
	formats := make([]*sheets.Request, 0, len(writes))
	for _, w := range writes {
		ranges = append(ranges, &sheets.ValueRange{
			Range:  quoteSheet(target.SheetName) + "!" + w.Address(),
			Values: [][]any{{w.Value}},
		})
		formats = append(formats, &sheets.Request{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          tabID,
					StartRowIndex:    int64(w.Row - 1),
					EndRowIndex:      int64(w.Row),
					StartColumnIndex: int64(w.Col - 1),
					EndColumnIndex:   int64(w.Col),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						NumberFormat: &sheets.NumberFormat{Type: "NUMBER", Pattern: NumberFormat},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		})
	}

	err = common.WithRetry(ctx, func(ctx context.Context) error {
		_, err := g.service.Spreadsheets.Values.BatchUpdate(id, &sheets.BatchUpdateValuesRequest{
			ValueInputOption: "USER_ENTERED",
			Data:             ranges,
		}).Context(ctx).Do()
		return classify(err, id)
	}, g.retryOptions())
	if err != nil {
		return fmt.Errorf("failed to write totals: %w", err)
	}

	err = common.WithRetry(ctx, func(ctx context.Context) error {
		_, err := g.service.Spreadsheets.BatchUpdate(id, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: formats,
		}).Context(ctx).Do()
		return classify(err, id)
	}, g.retryOptions())
	if err != nil {
		g.logger.Warn("Failed to apply number format", "error", err)
	}

	g.logger.Info("Spreadsheet updated", "spreadsheet_id", id, "sheet", target.SheetName, "cells", len(writes))
	return nil
}

// Metadata lists tabs, text labels in the category column and month headers.
func (g *GoogleSink) Metadata(ctx context.Context, target model.SheetConfig) (*Metadata, error) {
	id := target.SpreadsheetID
	tabID, tabs, err := g.sheetID(ctx, id, target.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet: %w", err)
	}

	meta := &Metadata{Tabs: tabs}
	if len(tabs) == 0 {
		return meta, nil
	}
	meta.Sheet = target.SheetName
	if tabID < 0 {
		meta.Sheet = tabs[0]
	}

	column := strings.ToUpper(strings.TrimSpace(target.CategoryColumn))
	if column == "" {
		column = "A"
	}
	columnValues, err := g.readRange(ctx, id, fmt.Sprintf("%s!%s:%s", quoteSheet(meta.Sheet), column, column))
	if err != nil {
		return nil, fmt.Errorf("failed to read category column: %w", err)
	}
	var labels []CategoryLabel
	for i, row := range columnValues {
		if len(row) == 0 {
			continue
		}
		text, ok := row[0].(string)
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		labels = append(labels, CategoryLabel{
			Label:   strings.TrimSpace(text),
			Address: fmt.Sprintf("%s%d", column, i+1),
			Row:     i + 1,
		})
	}
	meta.Categories = dedupeLabels(labels)

	startCell := strings.TrimSpace(target.MonthStartCell)
	if startCell == "" {
		startCell = "B1"
	}
	startCol, startRow, err := startCoordinates(startCell)
	if err != nil {
		return nil, err
	}
	endCell := cellWrite{Col: startCol + 11, Row: startRow}.Address()
	headerValues, err := g.readRange(ctx, id, fmt.Sprintf("%s!%s:%s", quoteSheet(meta.Sheet), startCell, endCell))
	if err != nil {
		return nil, fmt.Errorf("failed to read month headers: %w", err)
	}
	headers := make([]string, 12)
	if len(headerValues) > 0 {
		for i, v := range headerValues[0] {
			if i < len(headers) && v != nil {
				headers[i] = fmt.Sprint(v)
			}
		}
	}
	meta.Months = monthHeaders(headers, startCol, startRow)

	return meta, nil
}

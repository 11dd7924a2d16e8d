package sheets

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/scanfill/internal/common"
	"github.com/Veraticus/scanfill/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func createWorkbook(t *testing.T, startLabel string) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	require.NoError(t, f.SetSheetName("Sheet1", "2026"))
	_, err := f.NewSheet("Notes")
	require.NoError(t, err)

	cells := map[string]any{
		"A1": "Category",
		"A2": "Transport",
		"A3": "Repas",
		"A4": 5,
		"B1": startLabel,
		"C1": "Février",
		"D1": "Mars",
	}
	for addr, v := range cells {
		require.NoError(t, f.SetCellValue("2026", addr, v))
	}

	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func target(path string) model.SheetConfig {
	return model.SheetConfig{
		Kind:           model.SheetKindXLSX,
		Path:           path,
		SheetName:      "2026",
		MonthStartCell: "B1",
		CategoryColumn: "A",
		CategoryRows:   map[string]int{"Transport": 2, "Repas": 3},
	}
}

func readCell(t *testing.T, path, addr string, raw bool) string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	v, err := f.GetCellValue("2026", addr, excelize.Options{RawCellValue: raw})
	require.NoError(t, err)
	return v
}

func TestExcelSink_UpdateSheet(t *testing.T) {
	path := createWorkbook(t, "Janvier")
	sink := NewExcelSink(nil)

	data := map[string]map[string]float64{
		"january":  {"Transport": 1234.5, "Repas": 7, "Unknown": 99},
		"february": {"Transport": 4.25},
	}
	require.NoError(t, sink.UpdateSheet(context.Background(), target(path), data))

	assert.Equal(t, "1234.5", readCell(t, path, "B2", true))
	assert.Equal(t, "1,234.50", readCell(t, path, "B2", false))
	assert.Equal(t, "7.00", readCell(t, path, "B3", false))
	assert.Equal(t, "4.25", readCell(t, path, "C2", false))
	assert.Equal(t, "", readCell(t, path, "C3", true))
	assert.Equal(t, "Transport", readCell(t, path, "A2", true))
}

func TestExcelSink_ColumnOffsetFromStartCell(t *testing.T) {
	tests := []struct {
		name       string
		startLabel string
		month      string
		wantCell   string
	}{
		{name: "start at march", startLabel: "Mars 2026", month: "april", wantCell: "C2"},
		{name: "unrecognized start counts from january", startLabel: "Budget", month: "march", wantCell: "D2"},
		{name: "month before start is skipped", startLabel: "Mars", month: "january", wantCell: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := createWorkbook(t, tt.startLabel)
			data := map[string]map[string]float64{tt.month: {"Transport": 10}}
			require.NoError(t, NewExcelSink(nil).UpdateSheet(context.Background(), target(path), data))

			if tt.wantCell == "" {
				for _, addr := range []string{"A2", "B2", "C2", "D2"} {
					assert.NotEqual(t, "10", readCell(t, path, addr, true), addr)
				}
				return
			}
			assert.Equal(t, "10", readCell(t, path, tt.wantCell, true))
		})
	}
}

func TestExcelSink_Errors(t *testing.T) {
	path := createWorkbook(t, "Janvier")
	sink := NewExcelSink(nil)
	ctx := context.Background()

	missing := target(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.ErrorIs(t, sink.UpdateSheet(ctx, missing, nil), common.ErrFileNotFound)

	wrongSheet := target(path)
	wrongSheet.SheetName = "2025"
	assert.ErrorIs(t, sink.UpdateSheet(ctx, wrongSheet, nil), common.ErrWorksheetNotFound)

	ods := target(filepath.Join(t.TempDir(), "book.ods"))
	err := sink.UpdateSheet(ctx, ods, nil)
	require.ErrorIs(t, err, common.ErrInvalidConfig)
	assert.Contains(t, err.Error(), ".xlsx")

	badStart := target(path)
	badStart.MonthStartCell = "1B"
	assert.ErrorIs(t, sink.UpdateSheet(ctx, badStart, map[string]map[string]float64{"january": {"Transport": 1}}), common.ErrInvalidConfig)
}

func TestExcelSink_Metadata(t *testing.T) {
	path := createWorkbook(t, "Janvier")

	meta, err := NewExcelSink(nil).Metadata(context.Background(), target(path))
	require.NoError(t, err)

	assert.Equal(t, []string{"2026", "Notes"}, meta.Tabs)
	assert.Equal(t, "2026", meta.Sheet)
	assert.Equal(t, []CategoryLabel{
		{Label: "Category", Address: "A1", Row: 1},
		{Label: "Transport", Address: "A2", Row: 2},
		{Label: "Repas", Address: "A3", Row: 3},
	}, meta.Categories)

	require.Len(t, meta.Months, 3)
	assert.Equal(t, MonthCell{Label: "Janvier", Month: "january", Address: "B1", Index: 0}, meta.Months[0])
	assert.Equal(t, "february", meta.Months[1].Month)
	assert.Equal(t, "D1", meta.Months[2].Address)

	assert.Equal(t, 2, meta.CategoryRows()["Transport"])
}

func TestExcelSink_MetadataFallsBackToFirstTab(t *testing.T) {
	path := createWorkbook(t, "Janvier")
	cfg := target(path)
	cfg.SheetName = "missing"

	meta, err := NewExcelSink(nil).Metadata(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "2026", meta.Sheet)
}

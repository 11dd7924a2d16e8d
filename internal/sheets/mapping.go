package sheets

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/scanfill/internal/common"
	"github.com/Veraticus/scanfill/internal/model"
	"github.com/Veraticus/scanfill/internal/month"
	"github.com/xuri/excelize/v2"
)

// cellWrite is one total destined for one cell.
type cellWrite struct {
	Month    string
	Category string
	Col      int
	Row      int
	Value    float64
}

// Address returns the A1 reference of the cell.
func (w cellWrite) Address() string {
	name, _ := excelize.CoordinatesToCellName(w.Col, w.Row)
	return name
}

// startCoordinates parses the month start cell.
func startCoordinates(cell string) (col, row int, err error) {
	col, row, err = excelize.CellNameToCoordinates(strings.TrimSpace(cell))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: month start cell %q: %w", common.ErrInvalidConfig, cell, err)
	}
	return col, row, nil
}

// baseMonthIndex is the month shown in the start cell, or January when unrecognized.
func baseMonthIndex(label string) int {
	if m, ok := month.Identify(label); ok {
		return m.Index
	}
	return 0
}

// planWrites maps every (month, category) total to a cell. The column is the
// start column shifted by the distance between the month and the start cell's
// month; categories without a row and months left of column A are skipped.
func planWrites(target model.SheetConfig, baseLabel string, data map[string]map[string]float64) ([]cellWrite, []string, error) {
	startCol, _, err := startCoordinates(target.MonthStartCell)
	if err != nil {
		return nil, nil, err
	}
	base := baseMonthIndex(baseLabel)

	var (
		writes  []cellWrite
		skipped []string
	)
	for monthName, categories := range data {
		m, ok := month.Identify(monthName)
		if !ok {
			skipped = append(skipped, monthName)
			continue
		}
		col := startCol + m.Index - base
		if col < 1 {
			skipped = append(skipped, monthName)
			continue
		}
		for category, total := range categories {
			row, ok := target.CategoryRows[category]
			if !ok || row <= 0 {
				skipped = append(skipped, monthName+"/"+category)
				continue
			}
			writes = append(writes, cellWrite{Month: monthName, Category: category, Col: col, Row: row, Value: total})
		}
	}

	sort.Slice(writes, func(i, j int) bool {
		if writes[i].Col != writes[j].Col {
			return writes[i].Col < writes[j].Col
		}
		return writes[i].Row < writes[j].Row
	})
	sort.Strings(skipped)
	return writes, skipped, nil
}

// monthHeaders recognizes up to twelve month labels read rightwards from the start cell.
func monthHeaders(labels []string, startCol, startRow int) []MonthCell {
	var months []MonthCell
	for i, label := range labels {
		if i >= 12 {
			break
		}
		m, ok := month.Identify(label)
		if !ok {
			continue
		}
		addr, _ := excelize.CoordinatesToCellName(startCol+i, startRow)
		months = append(months, MonthCell{Label: label, Month: m.Name, Index: m.Index, Address: addr})
	}
	return months
}

// dedupeLabels keeps the last row for a repeated label, ordered by row.
func dedupeLabels(labels []CategoryLabel) []CategoryLabel {
	byLabel := make(map[string]CategoryLabel, len(labels))
	for _, l := range labels {
		byLabel[l.Label] = l
	}
	out := make([]CategoryLabel, 0, len(byLabel))
	for _, l := range byLabel {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Row < out[j].Row })
	return out
}

package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// RunStats counts per-file outcomes of a run.
type RunStats struct {
	Total     int
	Done      int
	Skipped   int
	Failed    int
	Ambiguous int
}

// MonthTotals accumulates category totals for one month.
type MonthTotals struct {
	Categories   map[string]decimal.Decimal
	OriginalName string
	Index        int
}

// RunSummary is the in-memory result of one orchestrator run.
type RunSummary struct {
	StartedAt time.Time
	Months    map[string]*MonthTotals
	RunID     string
	ProjectID string
	Conflicts []Conflict
	Stats     RunStats
}

// NewRunSummary creates an empty summary.
func NewRunSummary(runID, projectID string) *RunSummary {
	return &RunSummary{
		RunID:     runID,
		ProjectID: projectID,
		StartedAt: time.Now(),
		Months:    make(map[string]*MonthTotals),
	}
}

// EnsureMonth registers a month with no categories yet.
func (s *RunSummary) EnsureMonth(month string, index int, originalName string) *MonthTotals {
	m, ok := s.Months[month]
	if !ok {
		m = &MonthTotals{
			Index:        index,
			OriginalName: originalName,
			Categories:   make(map[string]decimal.Decimal),
		}
		s.Months[month] = m
	}
	return m
}

// EnsureCategory registers a month/category pair with a zero total.
func (s *RunSummary) EnsureCategory(month string, index int, originalName, category string) {
	m := s.EnsureMonth(month, index, originalName)
	if _, ok := m.Categories[category]; !ok {
		m.Categories[category] = decimal.Zero
	}
}

// Add accumulates amount into the month/category total. The pair must exist.
func (s *RunSummary) Add(month, category string, amount float64) bool {
	m, ok := s.Months[month]
	if !ok {
		return false
	}
	current, ok := m.Categories[category]
	if !ok {
		return false
	}
	m.Categories[category] = current.Add(decimal.NewFromFloat(amount))
	return true
}

// Total returns the accumulated total for a month/category pair.
func (s *RunSummary) Total(month, category string) decimal.Decimal {
	if m, ok := s.Months[month]; ok {
		return m.Categories[category]
	}
	return decimal.Zero
}

// Conflict returns a pointer to the conflict with the given id.
func (s *RunSummary) Conflict(id int) *Conflict {
	for i := range s.Conflicts {
		if s.Conflicts[i].ID == id {
			return &s.Conflicts[i]
		}
	}
	return nil
}

// UnresolvedCount returns how many conflicts still lack an amount.
func (s *RunSummary) UnresolvedCount() int {
	count := 0
	for i := range s.Conflicts {
		if !s.Conflicts[i].Resolved() {
			count++
		}
	}
	return count
}

// MonthNames returns the months in calendar order.
func (s *RunSummary) MonthNames() []string {
	names := make([]string, 0, len(s.Months))
	for name := range s.Months {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return s.Months[names[i]].Index < s.Months[names[j]].Index
	})
	return names
}

// SheetData flattens the totals into month -> category -> amount, rounded to cents.
func (s *RunSummary) SheetData() map[string]map[string]float64 {
	data := make(map[string]map[string]float64, len(s.Months))
	for month, totals := range s.Months {
		categories := make(map[string]float64, len(totals.Categories))
		for category, total := range totals.Categories {
			categories[category] = total.Round(2).InexactFloat64()
		}
		data[month] = categories
	}
	return data
}

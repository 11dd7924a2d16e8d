// Package model defines the core domain models used throughout the application.
package model

import "sort"

// ScanResult is the month/category/file tree discovered under a project root.
// Month keys are canonical English month names.
type ScanResult struct {
	Months map[string]*MonthEntry
	Root   string
}

// MonthEntry holds the categories found inside one month folder.
type MonthEntry struct {
	Categories   map[string][]string
	OriginalName string
	Index        int
}

// FileCount returns the number of documents across all months and categories.
func (r *ScanResult) FileCount() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, m := range r.Months {
		for _, files := range m.Categories {
			total += len(files)
		}
	}
	return total
}

// MonthNames returns the month keys in calendar order.
func (r *ScanResult) MonthNames() []string {
	names := make([]string, 0, len(r.Months))
	for name := range r.Months {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return r.Months[names[i]].Index < r.Months[names[j]].Index
	})
	return names
}

// CategoryNames returns the category keys sorted alphabetically.
func (m *MonthEntry) CategoryNames() []string {
	names := make([]string, 0, len(m.Categories))
	for name := range m.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

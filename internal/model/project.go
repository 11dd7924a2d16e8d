package model

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// SheetKind selects the spreadsheet backend.
type SheetKind string

// Spreadsheet backends.
const (
	SheetKindXLSX   SheetKind = "xlsx"
	SheetKindGoogle SheetKind = "google"
)

// SheetConfig describes where totals are written.
type SheetConfig struct {
	CategoryRows   map[string]int `json:"category_rows" yaml:"category_rows" validate:"omitempty,dive,gt=0"`
	Kind           SheetKind      `json:"kind" yaml:"kind" validate:"omitempty,oneof=xlsx google"`
	Path           string         `json:"path,omitempty" yaml:"path" validate:"required_if=Kind xlsx"`
	SpreadsheetID  string         `json:"spreadsheet_id,omitempty" yaml:"spreadsheet_id" validate:"required_if=Kind google"`
	SheetName      string         `json:"sheet_name" yaml:"sheet_name" validate:"required_with=Kind"`
	MonthStartCell string         `json:"month_start_cell" yaml:"month_start_cell" validate:"required_with=Kind"`
	CategoryColumn string         `json:"category_column" yaml:"category_column" validate:"required_with=Kind"`
}

// Configured reports whether a sink has been set up.
func (c SheetConfig) Configured() bool {
	return c.Kind != ""
}

// Project is the descriptor the orchestrator runs against.
type Project struct {
	UpdatedAt       time.Time         `json:"updated_at" yaml:"-"`
	CategoryAliases map[string]string `json:"category_aliases,omitempty" yaml:"category_aliases"`
	ID              string            `json:"id" yaml:"id" validate:"required"`
	Name            string            `json:"name" yaml:"name"`
	RootPath        string            `json:"root_path" yaml:"root_path" validate:"required"`
	MonthFilter     string            `json:"month_filter,omitempty" yaml:"month_filter"`
	CustomPattern   string            `json:"custom_pattern,omitempty" yaml:"custom_pattern"`
	Sheet           SheetConfig       `json:"sheet" yaml:"sheet"`
	ForceRescan     bool              `json:"force_rescan,omitempty" yaml:"force_rescan"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validate checks the descriptor's required fields.
func (p *Project) Validate() error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid project %q: %w", p.ID, err)
	}
	return nil
}

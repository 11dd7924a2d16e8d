package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/scanfill/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidStatus    = errors.New("invalid extraction status")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidModTime   = errors.New("modification time must be set")
	ErrInvalidOCRRecord = errors.New("invalid ocr record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateOCRRecord(record *model.OCRRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if record.Hash == "" {
		return fmt.Errorf("%w: missing hash", ErrInvalidOCRRecord)
	}
	return nil
}

func validateManualEntry(entry *model.ManualEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	if err := validateString(entry.Hash, "hash"); err != nil {
		return err
	}
	if entry.Amount < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, entry.Amount)
	}
	return nil
}

func validateCachedExtraction(entry *model.CachedExtraction) error {
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	if err := validateString(entry.ProjectID, "projectID"); err != nil {
		return err
	}
	if err := validateString(entry.FilePath, "filePath"); err != nil {
		return err
	}
	switch entry.Status {
	case model.StatusSuccess, model.StatusAmbiguous, model.StatusFailed:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, entry.Status)
	}
	if entry.ModTime.IsZero() {
		return ErrInvalidModTime
	}
	return nil
}

func validateProject(project *model.Project) error {
	if project == nil {
		return fmt.Errorf("%w: project", ErrNilParameter)
	}
	return project.Validate()
}

package engine

import (
	"context"
	"time"

	"github.com/Veraticus/scanfill/internal/model"
	"github.com/Veraticus/scanfill/internal/service"
)

// Scanner discovers the month/category/file tree of a project.
type Scanner interface {
	Scan(ctx context.Context, root string, aliases map[string]string, monthFilter string) (*model.ScanResult, error)
}

// Extractor turns one document into an extraction result.
type Extractor interface {
	ExtractAmount(ctx context.Context, path, customPattern string) model.ExtractionResult
}

// Hasher computes document content hashes for the manual-entry cache.
type Hasher interface {
	Sum(path string) (string, error)
}

// Store is the slice of persistence the orchestrator needs.
type Store interface {
	service.ExtractionCache
	service.ManualEntryStore
	service.RunLocker
}

// Sink receives the final month -> category -> total data.
type Sink interface {
	UpdateSheet(ctx context.Context, target model.SheetConfig, data map[string]map[string]float64) error
}

// Recorder observes per-file outcomes and run transitions.
type Recorder interface {
	RecordFile(outcome string, duration time.Duration)
	RecordRun(state model.RunState)
}

// ProgressFunc receives progress events in order.
type ProgressFunc func(model.ProgressEvent)

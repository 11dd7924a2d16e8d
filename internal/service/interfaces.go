// Package service defines the interfaces shared between application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/scanfill/internal/model"
)

// OCRCache stores recognized text keyed by document content hash.
type OCRCache interface {
	// GetOCRText returns nil when nothing is cached for hash.
	GetOCRText(ctx context.Context, hash string) (*model.OCRRecord, error)
	SaveOCRText(ctx context.Context, record *model.OCRRecord) error
}

// ManualEntryStore remembers amounts operators typed, keyed by content hash.
type ManualEntryStore interface {
	// GetManualEntry returns nil when no entry exists for hash.
	GetManualEntry(ctx context.Context, hash string) (*model.ManualEntry, error)
	SaveManualEntry(ctx context.Context, entry *model.ManualEntry) error
}

// ExtractionCache remembers successful extractions per project and file.
type ExtractionCache interface {
	// GetValidExtraction returns nil unless a success entry exists whose
	// modification time equals modTime.
	GetValidExtraction(ctx context.Context, projectID, filePath string, modTime time.Time) (*model.CachedExtraction, error)
	SaveExtraction(ctx context.Context, entry *model.CachedExtraction) error
	ClearProjectCache(ctx context.Context, projectID string) (int64, error)
}

// ProjectStore persists project descriptors.
type ProjectStore interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
	GetProject(ctx context.Context, id string) (*model.Project, error)
	UpsertProject(ctx context.Context, project *model.Project) error
	DeleteProject(ctx context.Context, id string) error
}

// RunLocker excludes concurrent runs of one project, including runs started
// by other processes sharing the database. owner identifies the caller.
type RunLocker interface {
	// AcquireRunLock returns common.ErrRunInProgress while another owner
	// holds the project.
	AcquireRunLock(ctx context.Context, projectID, owner string) error
	// ReleaseRunLock is a no-op unless owner holds the project.
	ReleaseRunLock(ctx context.Context, projectID, owner string) error
}

// Storage is the complete persistence layer.
type Storage interface {
	OCRCache
	ManualEntryStore
	ExtractionCache
	ProjectStore
	RunLocker

	ClearOCRCache(ctx context.Context) (int64, error)
	ClearManualEntries(ctx context.Context) (int64, error)
	CacheStats(ctx context.Context) (*model.CacheStats, error)

	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

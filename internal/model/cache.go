package model

import "time"

// OCRRecord is recognized text stored under the SHA-256 of the document bytes.
type OCRRecord struct {
	CreatedAt time.Time
	Hash      string
	FileName  string
	Text      string
}

// ManualEntry is an amount an operator typed for a document, keyed by content hash.
type ManualEntry struct {
	CreatedAt time.Time
	Hash      string
	FileName  string
	Amount    float64
}

// CachedExtraction is the last successful extraction for a file in a project.
// It is only valid while the file modification time still equals ModTime.
type CachedExtraction struct {
	ModTime   time.Time
	CachedAt  time.Time
	ProjectID string
	FilePath  string
	Status    ExtractionStatus
	Amount    float64
}

// CacheStats summarizes the persisted caches.
type CacheStats struct {
	Path              string
	OCREntries        int
	ManualEntries     int
	ExtractionEntries int
}

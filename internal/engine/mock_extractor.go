package engine

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/Veraticus/scanfill/internal/model"
)

// MockExtractor returns canned results keyed by file base name.
// Unknown files fail with "no amount candidates found".
type MockExtractor struct {
	Results map[string]model.ExtractionResult
	Delay   map[string]time.Duration
	calls   []string
	mu      sync.Mutex
}

// NewMockExtractor creates an extractor with the given canned results.
func NewMockExtractor(results map[string]model.ExtractionResult) *MockExtractor {
	return &MockExtractor{Results: results, Delay: make(map[string]time.Duration)}
}

// ExtractAmount returns the canned result for path.
func (m *MockExtractor) ExtractAmount(ctx context.Context, path, _ string) model.ExtractionResult {
	name := filepath.Base(path)

	m.mu.Lock()
	m.calls = append(m.calls, name)
	delay := m.Delay[name]
	result, ok := m.Results[name]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}
	if !ok {
		return model.FailedResult("no amount candidates found")
	}
	return result
}

// Calls returns the base names extracted so far.
func (m *MockExtractor) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

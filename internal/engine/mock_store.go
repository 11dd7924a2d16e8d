package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Veraticus/scanfill/internal/common"
	"github.com/Veraticus/scanfill/internal/model"
)

// MockStore is an in-memory Store for tests.
type MockStore struct {
	extractions   map[string]model.CachedExtraction
	manualEntries map[string]model.ManualEntry
	locks         map[string]string
	GetErr        error
	SaveErr       error
	Saves         int
	Clears        int
	mu            sync.Mutex
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		extractions:   make(map[string]model.CachedExtraction),
		manualEntries: make(map[string]model.ManualEntry),
		locks:         make(map[string]string),
	}
}

func extractionKey(projectID, filePath string) string {
	return projectID + "\x00" + filePath
}

// GetValidExtraction returns an entry only for success status and an equal mtime.
func (m *MockStore) GetValidExtraction(_ context.Context, projectID, filePath string, modTime time.Time) (*model.CachedExtraction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	entry, ok := m.extractions[extractionKey(projectID, filePath)]
	if !ok || entry.Status != model.StatusSuccess || !entry.ModTime.Equal(modTime) {
		return nil, nil //nolint:nilnil // miss
	}
	return &entry, nil
}

// SaveExtraction stores a copy of entry.
func (m *MockStore) SaveExtraction(_ context.Context, entry *model.CachedExtraction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.extractions[extractionKey(entry.ProjectID, entry.FilePath)] = *entry
	return nil
}

// ClearProjectCache drops every entry of a project.
func (m *MockStore) ClearProjectCache(_ context.Context, projectID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Clears++
	var n int64
	for key, entry := range m.extractions {
		if entry.ProjectID == projectID {
			delete(m.extractions, key)
			n++
		}
	}
	return n, nil
}

// Extraction returns the stored entry for a file, if any.
func (m *MockStore) Extraction(projectID, filePath string) (model.CachedExtraction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.extractions[extractionKey(projectID, filePath)]
	return entry, ok
}

// GetManualEntry returns the remembered amount for hash.
func (m *MockStore) GetManualEntry(_ context.Context, hash string) (*model.ManualEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	entry, ok := m.manualEntries[hash]
	if !ok {
		return nil, nil //nolint:nilnil // miss
	}
	return &entry, nil
}

// SaveManualEntry remembers an operator-typed amount.
func (m *MockStore) SaveManualEntry(_ context.Context, entry *model.ManualEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.manualEntries[entry.Hash] = *entry
	return nil
}

// ManualEntryCount returns how many manual entries are stored.
func (m *MockStore) ManualEntryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.manualEntries)
}

// AcquireRunLock fails while another owner holds projectID. Engines sharing
// one MockStore behave like processes sharing a database.
func (m *MockStore) AcquireRunLock(_ context.Context, projectID, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if held, ok := m.locks[projectID]; ok && held != owner {
		return fmt.Errorf("project %q: %w", projectID, common.ErrRunInProgress)
	}
	m.locks[projectID] = owner
	return nil
}

// ReleaseRunLock drops the lock if owner holds it.
func (m *MockStore) ReleaseRunLock(_ context.Context, projectID, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[projectID] == owner {
		delete(m.locks, projectID)
	}
	return nil
}

// Locked reports whether any owner holds projectID.
func (m *MockStore) Locked(projectID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.locks[projectID]
	return ok
}

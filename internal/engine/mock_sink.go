package engine

import (
	"context"
	"sync"

	"github.com/Veraticus/scanfill/internal/model"
)

// MockSink records UpdateSheet calls.
type MockSink struct {
	Err    error
	Target model.SheetConfig
	Data   map[string]map[string]float64
	Calls  int
	mu     sync.Mutex
}

// UpdateSheet records the data it receives.
func (m *MockSink) UpdateSheet(_ context.Context, target model.SheetConfig, data map[string]map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.Target = target
	m.Data = data
	return m.Err
}

package reportlog

import (
	"context"
	"sync"

	"github.com/dharsanguruparan/intake/internal/model"
)

// Memory keeps records in process memory. Records are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	records []model.ReportRecord
}

// NewMemory constructs an empty Memory log.
func NewMemory() *Memory {
	return &Memory{}
}

// Append adds rec to the end of the log.
func (m *Memory) Append(_ context.Context, rec model.ReportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// List returns a copy so callers cannot mutate internal state.
func (m *Memory) List(_ context.Context) ([]model.ReportRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.ReportRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *Memory) Close() error { return nil }

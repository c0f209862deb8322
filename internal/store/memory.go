package store

import (
	"context"
	"sync"

	"monitorb3/internal/domain"
)

// Compile-time interface check.
var _ RowStore = (*MemoryStore)(nil)

// MemoryStore keeps rows in process memory. Rows are lost on exit.
type MemoryStore struct {
	mu   sync.Mutex
	rows []domain.Row
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(rows ...domain.Row) *MemoryStore {
	return &MemoryStore{rows: append([]domain.Row(nil), rows...)}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) ReadRows(_ context.Context) ([]domain.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Row(nil), m.rows...), nil
}

func (m *MemoryStore) AppendRow(_ context.Context, row domain.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
	return nil
}

func (m *MemoryStore) DeleteRow(_ context.Context, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.rows) {
		return ErrRowIndex
	}
	m.rows = append(m.rows[:index], m.rows[index+1:]...)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

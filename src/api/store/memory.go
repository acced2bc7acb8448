package store

import (
	"context"
	"sync"
)

// MemoryTable is an in-process Table, used in tests and as a stand-in
// backend when neither a sheet nor a CSV path is configured.
type MemoryTable struct {
	mu   sync.Mutex
	rows [][]string

	// FailReads makes ReadAll return Err, simulating an unreachable backend.
	FailReads bool
	Err       error
}

func NewMemoryTable() *MemoryTable {
	return &MemoryTable{}
}

func (t *MemoryTable) ReadAll(ctx context.Context) ([][]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.FailReads {
		return nil, t.Err
	}
	out := make([][]string, len(t.rows))
	copy(out, t.rows)
	return out, nil
}

func (t *MemoryTable) Overwrite(ctx context.Context, rows [][]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = make([][]string, len(rows))
	copy(t.rows, rows)
	return nil
}

// SetRows replaces contents directly, bypassing the store guards.
func (t *MemoryTable) SetRows(rows [][]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = rows
}

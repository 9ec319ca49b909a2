package memory

import (
	"context"
	"sort"
	"sync"

	"fingestor/internal/sheets"
)

// Mirror keeps mirrored rows in process memory.
type Mirror struct {
	mu   sync.Mutex
	rows map[int64]sheets.Row
}

var _ sheets.TransactionMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: map[int64]sheets.Row{}}
}

func (m *Mirror) Upsert(_ context.Context, r sheets.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[r.ID] = r
	return nil
}

func (m *Mirror) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *Mirror) ReplaceAll(_ context.Context, rows []sheets.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = make(map[int64]sheets.Row, len(rows))
	for _, r := range rows {
		m.rows[r.ID] = r
	}
	return nil
}

func (m *Mirror) List(_ context.Context) ([]sheets.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sheets.Row, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

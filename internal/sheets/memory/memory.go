// Package memory is an in-process exporter for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"stephly/internal/core"
	ports "stephly/internal/sheets"
)

type Exporter struct {
	mu   sync.Mutex
	rows map[int64]core.Transaction
	err  error
}

var _ ports.Exporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{rows: map[int64]core.Transaction{}}
}

// FailWith makes every following call return err; nil restores normal
// behaviour.
func (e *Exporter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func (e *Exporter) Upsert(_ context.Context, t core.Transaction) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.rows[t.ID] = t
	return nil
}

func (e *Exporter) Delete(_ context.Context, id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	delete(e.rows, id)
	return nil
}

// Rows returns the exported rows ordered by transaction ID.
func (e *Exporter) Rows() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]int64, 0, len(e.rows))
	for id := range e.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([][]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, ports.Row(e.rows[id]))
	}
	return out
}

// Package memory is an in-process stand-in for the spreadsheet mirror.
package memory

import (
	"context"
	"fmt"
	"sync"

	"ledger/internal/core"
	"ledger/internal/sheets"
)

var _ sheets.TransactionMirror = (*Sheet)(nil)

// Sheet keeps rows in order. Removed rows are blanked, not compacted, the
// same way a cleared spreadsheet row stays in place.
type Sheet struct {
	mu   sync.Mutex
	rows [][]string
}

func New() *Sheet {
	return &Sheet{rows: [][]string{append([]string(nil), sheets.Header...)}}
}

func (s *Sheet) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if tx.ID == "" {
		return "", fmt.Errorf("append row: missing transaction id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.find(tx.ID); i >= 0 {
		return ref(i), nil
	}
	s.rows = append(s.rows, sheets.Row(tx))
	return ref(len(s.rows) - 1), nil
}

func (s *Sheet) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.find(id); i >= 0 {
		s.rows[i] = make([]string, len(sheets.Header))
	}
	return nil
}

// Rows returns a copy of every row, header included.
func (s *Sheet) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func (s *Sheet) find(id string) int {
	for i := 1; i < len(s.rows); i++ {
		if len(s.rows[i]) > 0 && s.rows[i][0] == id {
			return i
		}
	}
	return -1
}

// ref uses 1-based spreadsheet row numbers.
func ref(i int) string {
	return fmt.Sprintf("mem!A%d:F%d", i+1, i+1)
}

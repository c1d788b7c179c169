// Package csvlog is a minimal append-only CSV sink for run results. Values
// are assumed to be safe scalars (numbers, short strings, addresses): there
// is no quoting or escaping.
package csvlog

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"fundkit/internal/errkind"
)

type Writer struct {
	path string
	cols []string
	mu   sync.Mutex
}

// New creates (or truncates) the file at path and writes the header row.
func New(path string, cols []string) (*Writer, error) {
	if len(cols) == 0 {
		return nil, errkind.New(errkind.InvalidInput, "at least one column is required")
	}
	if err := os.WriteFile(path, []byte(strings.Join(cols, ",")+"\n"), 0o644); err != nil {
		return nil, err
	}
	return &Writer{path: path, cols: cols}, nil
}

// Append writes one row. Row length must equal the column count; on mismatch
// nothing is written.
func (w *Writer) Append(row []any) error {
	return w.AppendAll([][]any{row})
}

// AppendAll writes rows in a single append-mode open.
func (w *Writer) AppendAll(rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	var b strings.Builder
	for _, row := range rows {
		if len(row) != len(w.cols) {
			return errkind.New(errkind.InvalidInput,
				fmt.Sprintf("row has %d values, want %d", len(row), len(w.cols)))
		}
		b.WriteString(stringify(row))
		b.WriteByte('\n')
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(b.String())
	return err
}

func (w *Writer) Path() string {
	return w.path
}

func stringify(row []any) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}

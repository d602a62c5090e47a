package csvio

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/amishk599/dealscan/internal/model"
)

// Table is an enriched CSV loaded back for display.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// ReadTable loads a file previously produced by WriteFile.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open enriched file: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	all, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read enriched file: %w", err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("read enriched file: %s is empty", path)
	}

	t := &Table{Header: normalizeHeader(all[0]), Rows: all[1:]}
	t.index = make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		t.index[h] = i
	}
	for _, col := range []string{model.ColName, ColStatus} {
		if _, ok := t.index[col]; !ok {
			return nil, fmt.Errorf("%s is not an enriched file: no %q column", path, col)
		}
	}
	return t, nil
}

// Get returns the value of col in row i, or "" when the column or cell is absent.
func (t *Table) Get(i int, col string) string {
	j, ok := t.index[col]
	if !ok || i < 0 || i >= len(t.Rows) || j >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][j]
}

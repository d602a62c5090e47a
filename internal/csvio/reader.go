// Package csvio reads company records from CSV and writes enriched rows back out.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/amishk599/dealscan/internal/model"
)

// Input is a parsed input file: the header as written and one Row per data line.
type Input struct {
	Header []string
	Rows   []model.Row
}

// ReadFile opens path and parses it with Read.
func ReadFile(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a company CSV. A missing required column is fatal; per-row problems
// (a field count that differs from the header, empty fields, non-numeric numbers) are reported on the Row and do not stop the read.
func Read(r io.Reader) (*Input, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header: input is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = normalizeHeader(header)

	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	in := &Input{Header: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		in.Rows = append(in.Rows, parseRow(line, rec, len(header), idx))
	}
	return in, nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

// columnIndex maps each required column to its position in header.
func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	var missing []string
	for _, col := range model.RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

func parseRow(line int, rec []string, width int, idx map[string]int) model.Row {
	cells := make([]string, width)
	copy(cells, rec)

	get := func(col string) string {
		i, ok := idx[col]
		if !ok {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}

	row := model.Row{
		Cells: cells,
		Record: model.CompanyRecord{
			Line:         line,
			Name:         get(model.ColName),
			Headquarters: get(model.ColHeadquarters),
			Industry:     get(model.ColIndustry),
			Description:  get(model.ColDescription),
		},
	}

	var problems []string
	empty := 0
	for _, col := range model.RequiredColumns {
		if get(col) == "" {
			problems = append(problems, "empty "+col)
			empty++
		}
	}
	if empty == len(model.RequiredColumns) {
		problems = []string{"all required fields are empty"}
	}
	if len(rec) != width {
		problems = append([]string{fmt.Sprintf("has %d fields, header has %d", len(rec), width)}, problems...)
	}

	if v := get(model.ColFoundedYear); v != "" {
		n, err := parseInt(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s %q is not an integer", model.ColFoundedYear, v))
		}
		row.Record.FoundedYear = n
	}
	if v := get(model.ColTotalEmployees); v != "" {
		n, err := parseInt(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s %q is not an integer", model.ColTotalEmployees, v))
		}
		row.Record.TotalEmployees = n
	}

	row.Record.EmployeeLocations = get(model.ColEmployeeLocations)
	for _, g := range []struct {
		col string
		dst **float64
	}{
		{model.ColGrowth2Y, &row.Record.Growth2Y},
		{model.ColGrowth1Y, &row.Record.Growth1Y},
		{model.ColGrowth6M, &row.Record.Growth6M},
	} {
		v := get(g.col)
		if v == "" || strings.EqualFold(v, "nan") {
			continue
		}
		f, err := parsePercent(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s %q is not a number", g.col, v))
			continue
		}
		*g.dst = &f
	}

	if len(problems) > 0 {
		row.Invalid = &model.ValidationError{Line: line, Problems: problems}
	}
	return row
}

// parsePercent accepts "12.5" and "12.5%".
func parsePercent(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
}

// parseInt accepts plain integers plus thousands separators and a trailing ".0",
// which spreadsheet exports tend to produce.
func parseInt(s string) (int, error) {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, ".0")
	return strconv.Atoi(s)
}

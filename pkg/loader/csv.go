package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vanderheijden86/taxa/pkg/model"
)

// ParseCSV reads records from a CSV stream whose header names the columns
// in opts.Columns. Rows that fail to parse are skipped with a warning; a
// missing required column is an error.
func ParseCSV(r io.Reader, opts ParseOptions) ([]model.ClassifiedRecord, error) {
	opts = opts.withDefaults()
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		index[h] = i
	}
	for _, col := range opts.Columns.required() {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("csv header is missing column %q", col)
		}
	}

	var out []model.ClassifiedRecord
	line := 1
	for {
		row, err := cr.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			opts.WarningHandler(fmt.Sprintf("skipping csv line %d: %v", line, err))
			continue
		}
		get := func(col string) string {
			if col == "" {
				return ""
			}
			i, ok := index[col]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}
		rec, err := opts.Columns.record(get)
		if err != nil {
			opts.WarningHandler(fmt.Sprintf("skipping csv line %d: %v", line, err))
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

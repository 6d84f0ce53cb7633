package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/taxa/pkg/model"
)

// DefaultMaxLineSize bounds a single JSONL line.
const DefaultMaxLineSize = 1024 * 1024

// ParseJSONL reads one record per line. A line is either a record with a
// "ranks" array or a flat object keyed by the CSV column names. Malformed
// lines are skipped with a warning.
func ParseJSONL(r io.Reader, opts ParseOptions) ([]model.ClassifiedRecord, error) {
	opts = opts.withDefaults()
	reader := bufio.NewReaderSize(r, opts.BufferSize)

	var out []model.ClassifiedRecord
	for lineNum := 1; ; lineNum++ {
		line, isPrefix, err := reader.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading records at line %d: %w", lineNum, err)
		}
		if isPrefix {
			opts.WarningHandler(fmt.Sprintf("skipping line %d: longer than %d bytes", lineNum, opts.BufferSize))
			for isPrefix && err == nil {
				_, isPrefix, err = reader.ReadLine()
			}
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("skipping long line %d: %w", lineNum, err)
			}
			continue
		}
		if lineNum == 1 {
			line = bytes.TrimPrefix(line, []byte{0xEF, 0xBB, 0xBF})
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		rec, err := decodeLine(line, opts.Columns)
		if err != nil {
			opts.WarningHandler(fmt.Sprintf("skipping line %d: %v", lineNum, err))
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func decodeLine(line []byte, cols Columns) (model.ClassifiedRecord, error) {
	var probe struct {
		Ranks json.RawMessage `json:"ranks"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return model.ClassifiedRecord{}, err
	}
	if len(probe.Ranks) > 0 {
		var rec model.ClassifiedRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return rec, err
		}
		if rec.ID == "" {
			return rec, fmt.Errorf("missing id")
		}
		for i := range rec.Ranks {
			rec.Ranks[i].NameZh = model.CleanLocalName(rec.Ranks[i].NameZh)
		}
		rec.CommonName = model.CleanLocalName(rec.CommonName)
		return rec, nil
	}

	var flat map[string]any
	if err := json.Unmarshal(line, &flat); err != nil {
		return model.ClassifiedRecord{}, err
	}
	return cols.record(func(col string) string {
		v, ok := flat[col]
		if !ok || v == nil {
			return ""
		}
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	})
}

// WriteJSONL writes records one per line.
func WriteJSONL(w io.Writer, records []model.ClassifiedRecord) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			return fmt.Errorf("encoding record %s: %w", records[i].ID, err)
		}
	}
	return nil
}

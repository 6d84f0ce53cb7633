package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/taxa/pkg/metrics"
	"github.com/vanderheijden86/taxa/pkg/model"
)

// ParseOptions configures parsing.
type ParseOptions struct {
	// Columns maps source columns to record fields. Zero value means
	// DefaultColumns.
	Columns Columns

	// WarningHandler receives skipped-row messages. Nil discards them.
	WarningHandler func(string)

	// BufferSize bounds one JSONL line. Zero means DefaultMaxLineSize.
	BufferSize int
}

func (o ParseOptions) withDefaults() ParseOptions {
	if len(o.Columns.Ranks) == 0 {
		o.Columns = DefaultColumns()
	}
	if o.WarningHandler == nil {
		o.WarningHandler = func(string) {}
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultMaxLineSize
	}
	return o
}

// Format is a records file format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
)

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	}
	return "", fmt.Errorf("%s: unsupported records format (want .csv or .jsonl)", path)
}

// LoadFile reads one records file.
func LoadFile(path string, opts ParseOptions) ([]model.ClassifiedRecord, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening records file: %w", err)
	}
	defer f.Close()

	switch format {
	case FormatCSV:
		return ParseCSV(f, opts)
	default:
		return ParseJSONL(f, opts)
	}
}

// FileResult is the outcome of loading one file.
type FileResult struct {
	Path    string
	Records int
	Err     error
}

// LoadFiles reads several files in parallel and concatenates their records
// in argument order. The first failure cancels the rest.
func LoadFiles(ctx context.Context, paths []string, opts ParseOptions) ([]model.ClassifiedRecord, []FileResult, error) {
	defer metrics.Timer(metrics.RecordLoad)()

	parts := make([][]model.ClassifiedRecord, len(paths))
	results := make([]FileResult, len(paths))

	var warnMu sync.Mutex
	warn := opts.WarningHandler
	if warn != nil {
		opts.WarningHandler = func(msg string) {
			warnMu.Lock()
			defer warnMu.Unlock()
			warn(msg)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			local := opts
			if local.WarningHandler != nil {
				inner := local.WarningHandler
				local.WarningHandler = func(msg string) { inner(filepath.Base(p) + ": " + msg) }
			}
			recs, err := LoadFile(p, local)
			results[i] = FileResult{Path: p, Records: len(recs), Err: err}
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			parts[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, results, err
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]model.ClassifiedRecord, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, results, nil
}

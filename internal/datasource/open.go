package datasource

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/vanderheijden86/taxa/pkg/config"
	"github.com/vanderheijden86/taxa/pkg/hierarchy"
	"github.com/vanderheijden86/taxa/pkg/listing"
	"github.com/vanderheijden86/taxa/pkg/loader"
)

// Session is an opened data source.
type Session struct {
	Source listing.Source
	// Store is set for store and files sources.
	Store *Store
	// Files is set for files sources.
	Files *FileSet
}

// Close releases the underlying store, if any.
func (s *Session) Close() error {
	if s.Store != nil {
		return s.Store.Close()
	}
	return nil
}

// OpenSession connects to ds. Files are parsed and imported into an
// in-memory store before it returns. opts apply to the store of store and
// files sources.
func OpenSession(ctx context.Context, ds DataSource, cfg config.Config, log logrus.FieldLogger, opts ...Option) (*Session, error) {
	opts = append([]Option{WithLogger(log)}, opts...)
	switch ds.Type {
	case SourceTypeAPI:
		client, err := listing.NewClient(ds.Location,
			listing.WithTimeout(cfg.API.Timeout),
			listing.WithClientLogger(log))
		if err != nil {
			return nil, err
		}
		return &Session{Source: client}, nil

	case SourceTypeSQLite, SourceTypePostgres:
		driver := DriverSQLite
		if ds.Type == SourceTypePostgres {
			driver = DriverPostgres
		}
		store, err := Open(ctx, driver, ds.Location, opts...)
		if err != nil {
			return nil, err
		}
		return &Session{Source: store, Store: store}, nil

	case SourceTypeFiles:
		store, err := Open(ctx, DriverSQLite, ":memory:", opts...)
		if err != nil {
			return nil, err
		}
		fs := NewFileSet(ds.Paths, store, loader.ColumnsFromConfig(cfg.Import), log)
		if _, err := fs.Reload(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return &Session{Source: store, Store: store, Files: fs}, nil
	}
	return nil, fmt.Errorf("unsupported source type %q", ds.Type)
}

// FileSet keeps a store in sync with a set of record files.
type FileSet struct {
	paths []string
	cols  loader.Columns
	store *Store
	log   logrus.FieldLogger

	mu       sync.Mutex
	warnings []string
}

// NewFileSet returns a FileSet importing paths into store.
func NewFileSet(paths []string, store *Store, cols loader.Columns, log logrus.FieldLogger) *FileSet {
	return &FileSet{paths: paths, cols: cols, store: store, log: log}
}

// Paths returns the watched files.
func (f *FileSet) Paths() []string {
	return f.paths
}

// Warnings returns the messages of the last reload.
func (f *FileSet) Warnings() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.warnings...)
}

// Reload re-reads every file, rebuilds the hierarchy and replaces the store
// contents. On error the previous contents stay in place.
func (f *FileSet) Reload(ctx context.Context) (*hierarchy.Tree, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var warnings []string
	opts := loader.ParseOptions{
		Columns:        f.cols,
		WarningHandler: func(msg string) { warnings = append(warnings, msg) },
	}
	records, _, err := loader.LoadFiles(ctx, f.paths, opts)
	if err != nil {
		return nil, err
	}
	tree, skipped := hierarchy.NewBuilder(
		hierarchy.WithLevels(f.cols.RankNames()),
		hierarchy.WithLogger(f.log),
	).Build(records)
	for _, w := range skipped {
		warnings = append(warnings, w.String())
	}
	if _, err := f.store.Import(ctx, tree); err != nil {
		return nil, err
	}
	f.warnings = warnings
	return tree, nil
}

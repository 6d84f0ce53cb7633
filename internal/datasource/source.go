// Package datasource resolves where a browse session reads its taxonomy
// from and provides the SQL store that backs local and served data. The
// store answers the same collection and listing queries as the remote
// service, so every source satisfies listing.Source.
package datasource

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vanderheijden86/taxa/pkg/config"
	"github.com/vanderheijden86/taxa/pkg/loader"
)

// SourceType identifies the type of data source.
type SourceType string

const (
	// SourceTypeAPI is a remote listing service.
	SourceTypeAPI SourceType = "api"
	// SourceTypeSQLite is a store database file.
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypePostgres is a store reached by connection URL.
	SourceTypePostgres SourceType = "postgres"
	// SourceTypeFiles is a set of CSV or JSONL record files.
	SourceTypeFiles SourceType = "files"
)

// DataSource is a resolved place to read the taxonomy from.
type DataSource struct {
	Type SourceType `json:"type"`
	// Location is the base URL, database path or DSN.
	Location string `json:"location"`
	// Paths lists the record files of a files source.
	Paths []string `json:"paths,omitempty"`
	// ModTime is the newest modification time of local sources.
	ModTime time.Time `json:"mod_time,omitempty"`
}

// String returns a human-readable description of the source.
func (s DataSource) String() string {
	switch s.Type {
	case SourceTypeFiles:
		return fmt.Sprintf("%d file(s) (%s)", len(s.Paths), strings.Join(s.Paths, ", "))
	case SourceTypePostgres:
		return "postgres (" + redactDSN(s.Location) + ")"
	}
	return fmt.Sprintf("%s (%s)", s.Location, s.Type)
}

// Local reports whether the source lives on this machine.
func (s DataSource) Local() bool {
	return s.Type == SourceTypeSQLite || s.Type == SourceTypeFiles
}

// redactDSN hides the password of a connection URL.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}

// Resolve picks the data source for the browse arguments. With no targets
// the configured API is used. A single http(s) URL selects an API, a
// postgres URL or .db file selects a store and record files select a files
// source. Targets of mixed kinds are rejected.
func Resolve(targets []string, cfg config.Config) (DataSource, error) {
	if len(targets) == 0 {
		if cfg.API.BaseURL == "" {
			return DataSource{}, fmt.Errorf("no data source: pass a URL or file, or set api.base_url")
		}
		return DataSource{Type: SourceTypeAPI, Location: cfg.API.BaseURL}, nil
	}

	kinds := make(map[SourceType]bool)
	var ds DataSource
	for _, t := range targets {
		kind, err := classify(t)
		if err != nil {
			return DataSource{}, err
		}
		kinds[kind] = true
		ds.Type = kind
		switch kind {
		case SourceTypeFiles:
			abs, err := filepath.Abs(t)
			if err != nil {
				return DataSource{}, fmt.Errorf("resolving %s: %w", t, err)
			}
			ds.Paths = append(ds.Paths, abs)
			if info, err := os.Stat(abs); err == nil && info.ModTime().After(ds.ModTime) {
				ds.ModTime = info.ModTime()
			}
		case SourceTypeSQLite:
			ds.Location = t
			if info, err := os.Stat(t); err == nil {
				ds.ModTime = info.ModTime()
			}
		default:
			ds.Location = t
		}
	}
	if len(kinds) > 1 {
		return DataSource{}, fmt.Errorf("cannot mix source kinds in one session: %v", targets)
	}
	if ds.Type != SourceTypeFiles && len(targets) > 1 {
		return DataSource{}, fmt.Errorf("only record files can be combined, got %d %s targets", len(targets), ds.Type)
	}
	return ds, nil
}

// ResolveStore returns the configured store as a data source.
func ResolveStore(cfg config.Config) (DataSource, error) {
	driver, err := ParseDriver(cfg.Store.Driver)
	if err != nil {
		return DataSource{}, err
	}
	if driver == DriverPostgres {
		return DataSource{Type: SourceTypePostgres, Location: cfg.Store.DSN}, nil
	}
	return DataSource{Type: SourceTypeSQLite, Location: cfg.Store.DSN}, nil
}

func classify(target string) (SourceType, error) {
	lower := strings.ToLower(target)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return SourceTypeAPI, nil
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return SourceTypePostgres, nil
	}
	switch filepath.Ext(lower) {
	case ".db", ".sqlite", ".sqlite3":
		return SourceTypeSQLite, nil
	}
	if _, err := loader.DetectFormat(target); err == nil {
		return SourceTypeFiles, nil
	}
	return "", fmt.Errorf("unrecognized data source %q (want a URL, .db file, .csv or .jsonl)", target)
}

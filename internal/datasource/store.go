package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/taxa/pkg/logging"
)

// Store keeps an imported taxonomy in SQL: the collection tree, its
// closure table and the species records attached to leaf collections.
// It answers the same queries as the remote listing service.
type Store struct {
	db     *sql.DB
	driver Driver
	log    logrus.FieldLogger
	depth  int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

// WithHierarchyDepth truncates Collections below depth levels. Zero means
// unlimited.
func WithHierarchyDepth(depth int) Option {
	return func(s *Store) { s.depth = depth }
}

// sqliteDSN adds the pragmas the store relies on to a file path.
func sqliteDSN(path string) string {
	if path == ":memory:" {
		return "file::memory:?_pragma=foreign_keys(1)"
	}
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
}

// Open connects to the store and creates the schema if needed.
func Open(ctx context.Context, driver Driver, dsn string, opts ...Option) (*Store, error) {
	s := &Store{driver: driver, log: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}

	source := dsn
	if driver == DriverSQLite {
		source = sqliteDSN(dsn)
	}
	db, err := sql.Open(driver.sqlDriverName(), source)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s store: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One writer; an in-memory database also exists per connection.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{
			"PRAGMA cache_size = -64000",
			"PRAGMA temp_store = MEMORY",
		} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				s.log.WithError(err).Debug("pragma not applied")
			}
		}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s store: %w", driver, err)
	}
	s.db = db
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// Driver returns the backend in use.
func (s *Store) Driver() Driver {
	return s.driver
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.driver.rebind(q), args...)
}

func (s *Store) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.driver.rebind(q), args...)
}

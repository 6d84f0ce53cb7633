package datasource

import (
	"fmt"
	"strconv"
	"strings"
)

// Driver names a supported SQL backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// sqlDriverName is the database/sql driver registered for d.
func (d Driver) sqlDriverName() string {
	if d == DriverPostgres {
		return "pgx"
	}
	return "sqlite"
}

// ParseDriver validates a configured driver name.
func ParseDriver(s string) (Driver, error) {
	switch Driver(strings.ToLower(strings.TrimSpace(s))) {
	case DriverSQLite, "sqlite3", "":
		return DriverSQLite, nil
	case DriverPostgres, "postgresql", "pgx":
		return DriverPostgres, nil
	}
	return "", fmt.Errorf("unsupported store driver %q", s)
}

// rebind rewrites ? placeholders to $n for postgres.
func (d Driver) rebind(query string) string {
	if d != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// likeOp is the case-insensitive pattern operator.
func (d Driver) likeOp() string {
	if d == DriverPostgres {
		return "ILIKE"
	}
	// SQLite LIKE folds ASCII case already.
	return "LIKE"
}

// escapeLike escapes pattern metacharacters for use with ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS collections (
		id        BIGINT PRIMARY KEY,
		parent_id BIGINT,
		node_key  TEXT NOT NULL UNIQUE,
		name      TEXT NOT NULL,
		name_zh   TEXT NOT NULL DEFAULT '',
		level     TEXT NOT NULL,
		depth     INTEGER NOT NULL,
		position  INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS collection_closure (
		ancestor_id   BIGINT NOT NULL,
		descendant_id BIGINT NOT NULL,
		depth         INTEGER NOT NULL,
		PRIMARY KEY (ancestor_id, descendant_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_closure_descendant ON collection_closure (descendant_id)`,
	`CREATE TABLE IF NOT EXISTS records (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		name_zh       TEXT NOT NULL DEFAULT '',
		name_zh_other TEXT NOT NULL DEFAULT '',
		status_id     INTEGER NOT NULL DEFAULT 0,
		collection_id BIGINT NOT NULL,
		position      INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_records_collection ON records (collection_id)`,
}

// Package archive keeps a SQL history of every published leaderboard so
// past runs can be compared. SQLite and PostgreSQL are supported.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite" // registers the "sqlite" driver
	_ "github.com/lib/pq"             // registers the "postgres" driver

	"github.com/okian/gradeboard/internal/adapters/publish"
	"github.com/okian/gradeboard/pkg/logger"
	"github.com/okian/gradeboard/pkg/metrics"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const metricsTarget = "archive"

type dialect struct {
	schema      string
	placeholder func(n int) string
}

var dialects = map[string]dialect{
	DriverSQLite: {
		schema: `CREATE TABLE IF NOT EXISTS leaderboard_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			leaderboard TEXT NOT NULL,
			content TEXT NOT NULL,
			published_at DATETIME NOT NULL
		)`,
		placeholder: func(int) string { return "?" },
	},
	DriverPostgres: {
		schema: `CREATE TABLE IF NOT EXISTS leaderboard_history (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			leaderboard TEXT NOT NULL,
			content TEXT NOT NULL,
			published_at TIMESTAMPTZ NOT NULL
		)`,
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	},
}

// Record is one archived publication.
type Record struct {
	RunID       string
	Leaderboard string
	Content     string
	PublishedAt time.Time
}

// Archive stores leaderboards in a database. It implements
// publish.Publisher so it can sit next to the real target.
type Archive struct {
	db      *sql.DB
	dialect dialect
	runID   string
	now     func() time.Time
	log     logger.Logger
}

var _ publish.Publisher = (*Archive)(nil)

// Open connects to dsn with driver and prepares the schema.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Archive, error) {
	if _, ok := dialects[driver]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s archive: %w", driver, err)
	}
	a, err := New(ctx, db, driver, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

// New wraps an existing connection and prepares the schema.
func New(ctx context.Context, db *sql.DB, driver string, opts ...Option) (*Archive, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	a := &Archive{db: db, dialect: d, now: time.Now, log: logger.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping archive: %w", err)
	}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMigrate, err)
	}
	return a, nil
}

// Publish appends the leaderboard to the history.
func (a *Archive) Publish(ctx context.Context, leaderboard string, csv []byte) error {
	q := a.rebind("INSERT INTO leaderboard_history (run_id, leaderboard, content, published_at) VALUES (?, ?, ?, ?)")
	if _, err := a.db.ExecContext(ctx, q, a.runID, leaderboard, string(csv), a.now().UTC()); err != nil {
		metrics.RecordPublish(metricsTarget, metrics.PublishFailed)
		return fmt.Errorf("%w: %s: archive: %w", publish.ErrPublish, leaderboard, err)
	}
	metrics.RecordPublish(metricsTarget, metrics.PublishWritten)
	a.log.Debug(ctx, "archived leaderboard", logger.String("leaderboard", leaderboard))
	return nil
}

// History returns the archived versions of a leaderboard, newest first.
func (a *Archive) History(ctx context.Context, leaderboard string) ([]Record, error) {
	q := a.rebind("SELECT run_id, leaderboard, content, published_at FROM leaderboard_history WHERE leaderboard = ? ORDER BY id DESC")
	rows, err := a.db.QueryContext(ctx, q, leaderboard)
	if err != nil {
		return nil, fmt.Errorf("query history of %s: %w", leaderboard, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.RunID, &r.Leaderboard, &r.Content, &r.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan history of %s: %w", leaderboard, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read history of %s: %w", leaderboard, err)
	}
	return out, nil
}

// Close releases the connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

// rebind rewrites "?" placeholders for the active dialect.
func (a *Archive) rebind(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString(a.dialect.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

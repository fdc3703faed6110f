package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"vigil-irs/config"
	"vigil-irs/core/utils"
)

// DB wraps sql.DB with the active driver. Store queries are written with `?`
// placeholders; on the pgx path they are rebound to the $n form postgres
// expects before execution.
type DB struct {
	*sql.DB
	driver string
}

// Tx mirrors DB for statements running inside a transaction.
type Tx struct {
	*sql.Tx
	d *DB
}

func (d *DB) Postgres() bool {
	return d.driver == "pgx"
}

func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.DB.ExecContext(ctx, d.rebind(query), args...)
}

func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.DB.QueryContext(ctx, d.rebind(query), args...)
}

func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.DB.QueryRowContext(ctx, d.rebind(query), args...)
}

func (d *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := d.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{Tx: tx, d: d}, nil
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.Tx.ExecContext(ctx, t.d.rebind(query), args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.Tx.QueryContext(ctx, t.d.rebind(query), args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.Tx.QueryRowContext(ctx, t.d.rebind(query), args...)
}

// rebind rewrites `?` placeholders to `$1..$n`. Placeholders inside
// single-quoted literals are left alone.
func (d *DB) rebind(query string) string {
	if !d.Postgres() {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inLiteral := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inLiteral = !inLiteral
			b.WriteByte(c)
		case c == '?' && !inLiteral:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// NewDB opens the configured database. Postgres (via pgx) is the production
// path; a file-backed sqlite database is used when DBPath is set, which only
// the go test runtime is allowed to do.
func NewDB(cfg *config.AppConfig, logger *utils.Logger) (*DB, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	dsn := cfg.DBURL
	if strings.TrimSpace(cfg.DBPath) != "" {
		driver = "sqlite"
		dsn = "file:" + cfg.DBPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	switch driver {
	case "postgres", "pgx", "":
		driver = "pgx"
	case "sqlite", "sqlite3":
		driver = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// modernc sqlite handles are not safe for concurrent writes.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if logger != nil {
		logger.Printf("database ready driver=%s", driver)
	}
	return &DB{DB: db, driver: driver}, nil
}

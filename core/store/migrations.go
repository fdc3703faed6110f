package store

import (
	"context"
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/pressly/goose/v3"

	"vigil-irs/core/utils"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		salt TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'viewer',
		active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		username TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		last_seen_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		action TEXT NOT NULL,
		details TEXT,
		created_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS places (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		building TEXT NOT NULL DEFAULT '',
		street TEXT NOT NULL DEFAULT '',
		block TEXT NOT NULL DEFAULT '',
		district TEXT NOT NULL,
		city TEXT NOT NULL,
		province TEXT NOT NULL,
		region TEXT NOT NULL,
		postal_code TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_places_locality ON places(district, city, province, region);`,
	`CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		name_key TEXT UNIQUE NOT NULL,
		grouping TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		case_no TEXT UNIQUE NOT NULL,
		occurred_on TIMESTAMP NOT NULL,
		time_of_day TEXT NOT NULL,
		day_of_week TEXT NOT NULL,
		case_status TEXT NOT NULL DEFAULT '',
		proximity TEXT NOT NULL DEFAULT '',
		indoors_or_outdoors TEXT NOT NULL DEFAULT '',
		place_id INTEGER NOT NULL,
		category_id INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		FOREIGN KEY(place_id) REFERENCES places(id),
		FOREIGN KEY(category_id) REFERENCES categories(id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_reports_occurred_on ON reports(occurred_on);`,
	`CREATE INDEX IF NOT EXISTS idx_reports_category ON reports(category_id);`,
	`CREATE INDEX IF NOT EXISTS idx_reports_place ON reports(place_id);`,
}

func ApplyMigrations(ctx context.Context, db *DB, logger *utils.Logger) error {
	if !db.Postgres() {
		if !isTestRuntime() {
			return fmt.Errorf("only postgres is supported outside go test runtime")
		}
		return applySQLiteTestMigrations(ctx, db, logger)
	}
	return applyGooseMigrations(ctx, db, logger)
}

func applyGooseMigrations(ctx context.Context, db *DB, logger *utils.Logger) error {
	goose.SetBaseFS(embeddedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	if logger != nil {
		logger.Printf("postgres migrations applied")
	}
	return nil
}

func applySQLiteTestMigrations(ctx context.Context, db *DB, logger *utils.Logger) error {
	if logger != nil {
		logger.Printf("applying sqlite test migrations")
	}
	for i, stmt := range sqliteMigrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migration #%d failed: %w", i+1, err)
		}
	}
	return nil
}

func isTestRuntime() bool {
	return strings.HasSuffix(os.Args[0], ".test") || strings.Contains(os.Args[0], "/_test/")
}

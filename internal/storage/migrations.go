package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.1.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up(),
		Down:    migrationV1Down(),
	},
	{
		Version: "1.1.0",
		Up:      migrationV11Up,
		Down:    migrationV11Down,
	},
}

// knowledgeTableDDL is shared by every namespace table. %[1]s is the table.
const knowledgeTableDDL = `
CREATE TABLE IF NOT EXISTS %[1]s (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    source_file TEXT NOT NULL DEFAULT '',
    chunk_number INTEGER NOT NULL DEFAULT 0,
    chunk_text TEXT NOT NULL,
    chunk_summary TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    difficulty_level TEXT NOT NULL DEFAULT '',
    business_stage TEXT NOT NULL DEFAULT '',
    applicable_patterns TEXT NOT NULL DEFAULT '[]',
    temperament_match TEXT NOT NULL DEFAULT '[]',
    populations TEXT NOT NULL DEFAULT '[]',
    topics TEXT NOT NULL DEFAULT '[]',
    time_commitment_min INTEGER NOT NULL DEFAULT 0,
    time_commitment_max INTEGER NOT NULL DEFAULT 0,
    is_emergency_protocol INTEGER NOT NULL DEFAULT 0,
    embedding BLOB,
    dimension INTEGER,
    tokens_approx INTEGER NOT NULL DEFAULT 0,
    active INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_category ON %[1]s(category);
CREATE INDEX IF NOT EXISTS idx_%[1]s_stage ON %[1]s(business_stage);
CREATE INDEX IF NOT EXISTS idx_%[1]s_source ON %[1]s(source_file, chunk_number);
CREATE INDEX IF NOT EXISTS idx_%[1]s_active ON %[1]s(active);

CREATE VIRTUAL TABLE IF NOT EXISTS %[1]s_fts USING fts5(
    chunk_text, chunk_summary,
    content='%[1]s',
    content_rowid='seq'
);

CREATE TRIGGER IF NOT EXISTS %[1]s_ai AFTER INSERT ON %[1]s BEGIN
    INSERT INTO %[1]s_fts(rowid, chunk_text, chunk_summary)
    VALUES (new.seq, new.chunk_text, new.chunk_summary);
END;

CREATE TRIGGER IF NOT EXISTS %[1]s_ad AFTER DELETE ON %[1]s BEGIN
    INSERT INTO %[1]s_fts(%[1]s_fts, rowid, chunk_text, chunk_summary)
    VALUES ('delete', old.seq, old.chunk_text, old.chunk_summary);
END;

CREATE TRIGGER IF NOT EXISTS %[1]s_au AFTER UPDATE ON %[1]s BEGIN
    INSERT INTO %[1]s_fts(%[1]s_fts, rowid, chunk_text, chunk_summary)
    VALUES ('delete', old.seq, old.chunk_text, old.chunk_summary);
    INSERT INTO %[1]s_fts(rowid, chunk_text, chunk_summary)
    VALUES (new.seq, new.chunk_text, new.chunk_summary);
END;
`

const knowledgeTableDropDDL = `
DROP TRIGGER IF EXISTS %[1]s_au;
DROP TRIGGER IF EXISTS %[1]s_ad;
DROP TRIGGER IF EXISTS %[1]s_ai;
DROP TABLE IF EXISTS %[1]s_fts;
DROP TABLE IF EXISTS %[1]s;
`

func knowledgeTables() []string {
	return []string{TableOnboarding, TableMindset, TableBusiness}
}

func migrationV1Up() string {
	var b strings.Builder
	b.WriteString(`
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`)
	for _, table := range knowledgeTables() {
		fmt.Fprintf(&b, knowledgeTableDDL, table)
	}
	return b.String()
}

func migrationV1Down() string {
	var b strings.Builder
	for _, table := range knowledgeTables() {
		fmt.Fprintf(&b, knowledgeTableDropDDL, table)
	}
	b.WriteString("DROP TABLE IF EXISTS schema_version;\n")
	return b.String()
}

// Per-user records. Times are unix milliseconds.
const migrationV11Up = `
CREATE TABLE IF NOT EXISTS user_profiles (
    user_id TEXT PRIMARY KEY,
    display_name TEXT NOT NULL DEFAULT '',
    population TEXT NOT NULL DEFAULT '',
    temperament TEXT NOT NULL DEFAULT '',
    business_stage TEXT NOT NULL DEFAULT '',
    patterns TEXT NOT NULL DEFAULT '[]',
    goals TEXT NOT NULL DEFAULT '[]',
    timezone TEXT NOT NULL DEFAULT '',
    onboarded_at INTEGER,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS user_progress (
    user_id TEXT PRIMARY KEY,
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    total_points INTEGER NOT NULL DEFAULT 0,
    practices_completed INTEGER NOT NULL DEFAULT 0,
    last_activity_at INTEGER,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS user_activities (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    namespace TEXT NOT NULL DEFAULT '',
    practice_type TEXT NOT NULL DEFAULT '',
    completed_at INTEGER NOT NULL,
    duration_minutes INTEGER NOT NULL DEFAULT 0,
    score INTEGER,
    notes TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_user_activities_user_time ON user_activities(user_id, completed_at);
`

const migrationV11Down = `
DROP INDEX IF EXISTS idx_user_activities_user_time;
DROP TABLE IF EXISTS user_activities;
DROP TABLE IF EXISTS user_progress;
DROP TABLE IF EXISTS user_profiles;
`

// currentVersion returns the highest applied schema version, 0.0.0 on a
// fresh database. Versions are compared as semver, not by applied_at,
// since several migrations usually land within the same second.
func currentVersion(ctx context.Context, db querier) (*semver.Version, error) {
	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	if err == sql.ErrNoRows {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check schema_version table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer func() { _ = rows.Close() }()

	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to read schema_version: %w", err)
		}
		v, err := semver.NewVersion(s)
		if err != nil {
			return nil, fmt.Errorf("invalid current schema version %s: %w", s, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}

// ApplyMigrations runs all pending migrations
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	current, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}

	// Run migrations in order
	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !current.LessThan(migrationVersion) {
			continue // Already applied
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %s: %w", migration.Version, err)
		}
		if _, err := tx.ExecContext(ctx, migration.Up); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", migration.Version, err)
		}

		current = migrationVersion
	}

	return nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	current, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}
	if current.Equal(semver.MustParse("0.0.0")) {
		return fmt.Errorf("no migrations to rollback")
	}

	var migration *Migration
	for i := range AllMigrations {
		v, err := semver.NewVersion(AllMigrations[i].Version)
		if err == nil && v.Equal(current) {
			migration = &AllMigrations[i]
			break
		}
	}
	if migration == nil {
		return fmt.Errorf("migration %s not found", current)
	}

	// Remove the version record first; the last migration drops the table
	if _, err := db.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", migration.Version); err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", migration.Version, err)
	}
	if _, err := db.ExecContext(ctx, migration.Down); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", migration.Version, err)
	}

	return nil
}

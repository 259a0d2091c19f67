package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/personarag/pkg/types"
)

// chunkColumns is the select list shared by every chunk query; scanChunk
// reads it in this order
const chunkColumns = `c.id, c.source_file, c.chunk_number, c.chunk_text, c.chunk_summary,
	c.category, c.difficulty_level, c.business_stage,
	c.applicable_patterns, c.temperament_match, c.populations, c.topics,
	c.time_commitment_min, c.time_commitment_max, c.is_emergency_protocol,
	c.active, c.created_at, c.updated_at`

// SQLiteStorage implements Storage using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

var _ Storage = (*SQLiteStorage)(nil)

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens (or creates) the database at dbPath and applies
// migrations. Use ":memory:" for a throwaway store.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", types.ErrStoreQuery, err)
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Chunk operations

func (s *SQLiteStorage) upsertChunkWithQuerier(ctx context.Context, q querier, chunk *types.KnowledgeChunk) error {
	if err := chunk.Validate(); err != nil {
		return err
	}
	table, err := TableFor(chunk.Namespace)
	if err != nil {
		return err
	}

	lists, err := marshalLists(chunk.Patterns, chunk.Temperaments, chunk.Populations, chunk.Topics)
	if err != nil {
		return err
	}

	var embedding interface{}
	var dimension interface{}
	if len(chunk.Embedding) > 0 {
		embedding = serializeVector(chunk.Embedding)
		dimension = len(chunk.Embedding)
	}

	now := time.Now().UTC()
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = now
	}
	chunk.UpdatedAt = now

	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, source_file, chunk_number, chunk_text, chunk_summary,
			category, difficulty_level, business_stage,
			applicable_patterns, temperament_match, populations, topics,
			time_commitment_min, time_commitment_max, is_emergency_protocol,
			embedding, dimension, tokens_approx, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_file = excluded.source_file,
			chunk_number = excluded.chunk_number,
			chunk_text = excluded.chunk_text,
			chunk_summary = excluded.chunk_summary,
			category = excluded.category,
			difficulty_level = excluded.difficulty_level,
			business_stage = excluded.business_stage,
			applicable_patterns = excluded.applicable_patterns,
			temperament_match = excluded.temperament_match,
			populations = excluded.populations,
			topics = excluded.topics,
			time_commitment_min = excluded.time_commitment_min,
			time_commitment_max = excluded.time_commitment_max,
			is_emergency_protocol = excluded.is_emergency_protocol,
			embedding = excluded.embedding,
			dimension = excluded.dimension,
			tokens_approx = excluded.tokens_approx,
			active = excluded.active,
			updated_at = excluded.updated_at
	`, table)

	_, err = q.ExecContext(ctx, query,
		chunk.ID, chunk.SourceFile, chunk.ChunkNumber, chunk.Text, chunk.Summary,
		chunk.Category, chunk.Difficulty, chunk.BusinessStage,
		lists[0], lists[1], lists[2], lists[3],
		chunk.TimeMinMin, chunk.TimeMaxMin, boolInt(chunk.Emergency),
		embedding, dimension, chunk.TokenCount(), boolInt(chunk.Active),
		chunk.CreatedAt.UnixMilli(), chunk.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%w: upsert chunk %s: %v", types.ErrStoreQuery, chunk.ID, err)
	}
	return nil
}

func (s *SQLiteStorage) UpsertChunk(ctx context.Context, chunk *types.KnowledgeChunk) error {
	return s.upsertChunkWithQuerier(ctx, s.querier(), chunk)
}

func (s *SQLiteStorage) GetChunk(ctx context.Context, ns types.Namespace, id string) (*types.KnowledgeChunk, error) {
	table, err := TableFor(ns)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s, c.embedding FROM %s c WHERE c.id = ?`, chunkColumns, table)

	var blob []byte
	chunk, err := scanChunk(s.db.QueryRowContext(ctx, query, id), &blob)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get chunk %s: %v", types.ErrStoreQuery, id, err)
	}
	chunk.Namespace = ns
	if len(blob) > 0 {
		chunk.Embedding = deserializeVector(blob)
	}
	return chunk, nil
}

func (s *SQLiteStorage) DeactivateChunk(ctx context.Context, ns types.Namespace, id string) error {
	table, err := TableFor(ns)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE %s SET active = 0, updated_at = ? WHERE id = ?`, table)
	res, err := s.db.ExecContext(ctx, query, time.Now().UTC().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("%w: deactivate chunk %s: %v", types.ErrStoreQuery, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) CountChunks(ctx context.Context, ns types.Namespace) (int, error) {
	table, err := TableFor(ns)
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE active = 1`, table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count chunks: %v", types.ErrStoreQuery, err)
	}
	return count, nil
}

// Search operations

func (s *SQLiteStorage) SearchVector(ctx context.Context, ns types.Namespace, vector []float32, limit int, filters types.Filters) ([]VectorResult, error) {
	table, err := TableFor(ns)
	if err != nil {
		return nil, err
	}
	results, err := searchVectorSQLite(ctx, s.querier(), table, vector, limit, filters)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		r.Chunk.Namespace = ns
	}
	return results, nil
}

func (s *SQLiteStorage) SearchText(ctx context.Context, ns types.Namespace, query string, limit int, filters types.Filters) ([]TextResult, error) {
	table, err := TableFor(ns)
	if err != nil {
		return nil, err
	}
	results, err := searchTextSQLite(ctx, s.querier(), table, query, limit, filters)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		r.Chunk.Namespace = ns
	}
	return results, nil
}

// Status operations

func (s *SQLiteStorage) Status(ctx context.Context) (*Status, error) {
	status := &Status{
		Backend:  "sqlite/" + BuildMode,
		Chunks:   make(map[types.Namespace]int, len(types.AllNamespaces)),
		Embedded: make(map[types.Namespace]int, len(types.AllNamespaces)),
	}

	if err := s.db.PingContext(ctx); err != nil {
		return status, fmt.Errorf("%w: %v", types.ErrStoreQuery, err)
	}
	status.Health.DatabaseAccessible = true
	status.Health.FTSIndexesBuilt = true // FTS indexes are created with migrations
	status.Health.VectorExtension = VectorExtensionAvailable

	for _, ns := range types.AllNamespaces {
		table, _ := TableFor(ns)
		var total, embedded int
		query := fmt.Sprintf(`SELECT COUNT(*), COUNT(embedding) FROM %s WHERE active = 1`, table)
		if err := s.db.QueryRowContext(ctx, query).Scan(&total, &embedded); err != nil {
			return status, fmt.Errorf("%w: count %s: %v", types.ErrStoreQuery, table, err)
		}
		status.Chunks[ns] = total
		status.Embedded[ns] = embedded
		if embedded > 0 {
			status.Health.EmbeddingsAvailable = true
		}
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_profiles`).Scan(&status.Users); err != nil {
		return status, fmt.Errorf("%w: count users: %v", types.ErrStoreQuery, err)
	}

	if v, err := currentVersion(ctx, s.db); err == nil {
		status.SchemaVersion = v.String()
	}

	// Calculate database size
	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}

// scanChunk reads chunkColumns followed by extra destinations
func scanChunk(row rowScanner, extra ...interface{}) (*types.KnowledgeChunk, error) {
	var (
		c                                    types.KnowledgeChunk
		patterns, temperaments, pops, topics string
		emergency, active                    int
		createdAt, updatedAt                 int64
	)
	dest := []interface{}{
		&c.ID, &c.SourceFile, &c.ChunkNumber, &c.Text, &c.Summary,
		&c.Category, &c.Difficulty, &c.BusinessStage,
		&patterns, &temperaments, &pops, &topics,
		&c.TimeMinMin, &c.TimeMaxMin, &emergency,
		&active, &createdAt, &updatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	lists := []*[]string{&c.Patterns, &c.Temperaments, &c.Populations, &c.Topics}
	for i, raw := range []string{patterns, temperaments, pops, topics} {
		if err := json.Unmarshal([]byte(raw), lists[i]); err != nil {
			return nil, fmt.Errorf("decode list column: %w", err)
		}
	}
	c.Emergency = emergency != 0
	c.Active = active != 0
	c.CreatedAt = time.UnixMilli(createdAt).UTC()
	c.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &c, nil
}

// marshalLists encodes string lists as JSON arrays; nil becomes []
func marshalLists(lists ...[]string) ([]string, error) {
	out := make([]string, len(lists))
	for i, l := range lists {
		if l == nil {
			l = []string{}
		}
		b, err := json.Marshal(l)
		if err != nil {
			return nil, err
		}
		out[i] = string(b)
	}
	return out, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Transaction implementations

func (t *sqliteTx) UpsertChunk(ctx context.Context, chunk *types.KnowledgeChunk) error {
	return t.storage.upsertChunkWithQuerier(ctx, t.querier(), chunk)
}

func (t *sqliteTx) RecordActivity(ctx context.Context, activity *types.Activity) error {
	return t.storage.recordActivityWithQuerier(ctx, t.querier(), activity)
}

func (t *sqliteTx) GetProgress(ctx context.Context, userID string) (*types.UserProgress, error) {
	return t.storage.getProgressWithQuerier(ctx, t.querier(), userID)
}

func (t *sqliteTx) UpsertProgress(ctx context.Context, progress *types.UserProgress) error {
	return t.storage.upsertProgressWithQuerier(ctx, t.querier(), progress)
}

// isNoRows reports whether err is sql.ErrNoRows
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

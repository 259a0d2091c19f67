package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dshills/personarag/pkg/types"
)

// PostgresStorage implements Storage on PostgreSQL with the pgvector
// extension. Arrays are native text[], keyword search uses a generated
// tsvector column.
type PostgresStorage struct {
	db        *sql.DB
	dimension int
}

var _ Storage = (*PostgresStorage)(nil)

const pgChunkColumns = `c.id, c.source_file, c.chunk_number, c.chunk_text, c.chunk_summary,
	c.category, c.difficulty_level, c.business_stage,
	c.applicable_patterns, c.temperament_match, c.populations, c.topics,
	c.time_commitment_min, c.time_commitment_max, c.is_emergency_protocol,
	c.active, c.created_at, c.updated_at`

// pgKnowledgeTableDDL takes the table name and the vector dimension
const pgKnowledgeTableDDL = `
CREATE TABLE IF NOT EXISTS %[1]s (
    id TEXT PRIMARY KEY,
    source_file TEXT NOT NULL DEFAULT '',
    chunk_number INTEGER NOT NULL DEFAULT 0,
    chunk_text TEXT NOT NULL,
    chunk_summary TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    difficulty_level TEXT NOT NULL DEFAULT '',
    business_stage TEXT NOT NULL DEFAULT '',
    applicable_patterns TEXT[] NOT NULL DEFAULT '{}',
    temperament_match TEXT[] NOT NULL DEFAULT '{}',
    populations TEXT[] NOT NULL DEFAULT '{}',
    topics TEXT[] NOT NULL DEFAULT '{}',
    time_commitment_min INTEGER NOT NULL DEFAULT 0,
    time_commitment_max INTEGER NOT NULL DEFAULT 0,
    is_emergency_protocol BOOLEAN NOT NULL DEFAULT FALSE,
    embedding vector(%[2]d),
    tokens_approx INTEGER NOT NULL DEFAULT 0,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    tsv tsvector GENERATED ALWAYS AS (
        to_tsvector('english', chunk_text || ' ' || chunk_summary)
    ) STORED,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_tsv ON %[1]s USING GIN (tsv);
CREATE INDEX IF NOT EXISTS idx_%[1]s_patterns ON %[1]s USING GIN (applicable_patterns);
CREATE INDEX IF NOT EXISTS idx_%[1]s_embedding ON %[1]s USING hnsw (embedding vector_cosine_ops);
`

const pgUserDDL = `
CREATE TABLE IF NOT EXISTS user_profiles (
    user_id TEXT PRIMARY KEY,
    display_name TEXT NOT NULL DEFAULT '',
    population TEXT NOT NULL DEFAULT '',
    temperament TEXT NOT NULL DEFAULT '',
    business_stage TEXT NOT NULL DEFAULT '',
    patterns TEXT[] NOT NULL DEFAULT '{}',
    goals TEXT[] NOT NULL DEFAULT '{}',
    timezone TEXT NOT NULL DEFAULT '',
    onboarded_at TIMESTAMPTZ,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS user_progress (
    user_id TEXT PRIMARY KEY,
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    total_points INTEGER NOT NULL DEFAULT 0,
    practices_completed INTEGER NOT NULL DEFAULT 0,
    last_activity_at TIMESTAMPTZ,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS user_activities (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    namespace TEXT NOT NULL DEFAULT '',
    practice_type TEXT NOT NULL DEFAULT '',
    completed_at TIMESTAMPTZ NOT NULL,
    duration_minutes INTEGER NOT NULL DEFAULT 0,
    score INTEGER,
    notes TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_user_activities_user_time ON user_activities(user_id, completed_at);
`

// postgresSchema renders the full schema for vectors of dimension dim
func postgresSchema(dim int) string {
	var b strings.Builder
	b.WriteString("CREATE EXTENSION IF NOT EXISTS vector;\n")
	for _, table := range knowledgeTables() {
		fmt.Fprintf(&b, pgKnowledgeTableDDL, table, dim)
	}
	b.WriteString(pgUserDDL)
	return b.String()
}

// NewPostgresStorage connects to databaseURL and ensures the schema exists
func NewPostgresStorage(ctx context.Context, databaseURL string, dimension int) (*PostgresStorage, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dimension)
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping database: %v", types.ErrStoreQuery, err)
	}

	if _, err := db.ExecContext(ctx, postgresSchema(dimension)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &PostgresStorage{db: db, dimension: dimension}, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func (s *PostgresStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", types.ErrStoreQuery, err)
	}
	return &pgTx{tx: tx, storage: s}, nil
}

type pgTx struct {
	tx      *sql.Tx
	storage *PostgresStorage
}

func (t *pgTx) Commit() error   { return t.tx.Commit() }
func (t *pgTx) Rollback() error { return t.tx.Rollback() }

func (t *pgTx) UpsertChunk(ctx context.Context, chunk *types.KnowledgeChunk) error {
	return t.storage.upsertChunk(ctx, t.tx, chunk)
}

func (t *pgTx) RecordActivity(ctx context.Context, activity *types.Activity) error {
	return t.storage.recordActivity(ctx, t.tx, activity)
}

func (t *pgTx) GetProgress(ctx context.Context, userID string) (*types.UserProgress, error) {
	return t.storage.getProgress(ctx, t.tx, userID)
}

func (t *pgTx) UpsertProgress(ctx context.Context, progress *types.UserProgress) error {
	return t.storage.upsertProgress(ctx, t.tx, progress)
}

// Chunk operations

func (s *PostgresStorage) upsertChunk(ctx context.Context, q querier, chunk *types.KnowledgeChunk) error {
	if err := chunk.Validate(); err != nil {
		return err
	}
	table, err := TableFor(chunk.Namespace)
	if err != nil {
		return err
	}

	var embedding interface{}
	if len(chunk.Embedding) > 0 {
		if len(chunk.Embedding) != s.dimension {
			return &types.DimensionMismatchError{Want: s.dimension, Got: len(chunk.Embedding)}
		}
		embedding = vectorToString(chunk.Embedding)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, source_file, chunk_number, chunk_text, chunk_summary,
			category, difficulty_level, business_stage,
			applicable_patterns, temperament_match, populations, topics,
			time_commitment_min, time_commitment_max, is_emergency_protocol,
			embedding, tokens_approx, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16::vector, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			source_file = EXCLUDED.source_file,
			chunk_number = EXCLUDED.chunk_number,
			chunk_text = EXCLUDED.chunk_text,
			chunk_summary = EXCLUDED.chunk_summary,
			category = EXCLUDED.category,
			difficulty_level = EXCLUDED.difficulty_level,
			business_stage = EXCLUDED.business_stage,
			applicable_patterns = EXCLUDED.applicable_patterns,
			temperament_match = EXCLUDED.temperament_match,
			populations = EXCLUDED.populations,
			topics = EXCLUDED.topics,
			time_commitment_min = EXCLUDED.time_commitment_min,
			time_commitment_max = EXCLUDED.time_commitment_max,
			is_emergency_protocol = EXCLUDED.is_emergency_protocol,
			embedding = EXCLUDED.embedding,
			tokens_approx = EXCLUDED.tokens_approx,
			active = EXCLUDED.active,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`, table)

	err = q.QueryRowContext(ctx, query,
		chunk.ID, chunk.SourceFile, chunk.ChunkNumber, chunk.Text, chunk.Summary,
		chunk.Category, chunk.Difficulty, chunk.BusinessStage,
		pq.Array(nonNil(chunk.Patterns)), pq.Array(nonNil(chunk.Temperaments)),
		pq.Array(nonNil(chunk.Populations)), pq.Array(nonNil(chunk.Topics)),
		chunk.TimeMinMin, chunk.TimeMaxMin, chunk.Emergency,
		embedding, chunk.TokenCount(), chunk.Active,
	).Scan(&chunk.CreatedAt, &chunk.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: upsert chunk %s: %v", types.ErrStoreQuery, chunk.ID, err)
	}
	return nil
}

func (s *PostgresStorage) UpsertChunk(ctx context.Context, chunk *types.KnowledgeChunk) error {
	return s.upsertChunk(ctx, s.db, chunk)
}

func (s *PostgresStorage) GetChunk(ctx context.Context, ns types.Namespace, id string) (*types.KnowledgeChunk, error) {
	table, err := TableFor(ns)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s, c.embedding::text FROM %s c WHERE c.id = $1`, pgChunkColumns, table)

	var vec sql.NullString
	chunk, err := scanPGChunk(s.db.QueryRowContext(ctx, query, id), &vec)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get chunk %s: %v", types.ErrStoreQuery, id, err)
	}
	chunk.Namespace = ns
	if vec.Valid {
		if chunk.Embedding, err = parseVectorString(vec.String); err != nil {
			return nil, fmt.Errorf("%w: decode embedding: %v", types.ErrStoreQuery, err)
		}
	}
	return chunk, nil
}

func (s *PostgresStorage) DeactivateChunk(ctx context.Context, ns types.Namespace, id string) error {
	table, err := TableFor(ns)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET active = FALSE, updated_at = NOW() WHERE id = $1`, table), id)
	if err != nil {
		return fmt.Errorf("%w: deactivate chunk %s: %v", types.ErrStoreQuery, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) CountChunks(ctx context.Context, ns types.Namespace) (int, error) {
	table, err := TableFor(ns)
	if err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE active`, table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count chunks: %v", types.ErrStoreQuery, err)
	}
	return count, nil
}

// Search operations

func (s *PostgresStorage) SearchVector(ctx context.Context, ns types.Namespace, vector []float32, limit int, filters types.Filters) ([]VectorResult, error) {
	table, err := TableFor(ns)
	if err != nil {
		return nil, err
	}
	if len(vector) != s.dimension {
		return nil, &types.DimensionMismatchError{Want: s.dimension, Got: len(vector)}
	}
	if limit <= 0 {
		return []VectorResult{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s, 1 - (c.embedding <=> $1::vector) AS similarity
		FROM %s c
		WHERE c.active AND c.embedding IS NOT NULL`, pgChunkColumns, table)
	args := []interface{}{vectorToString(vector)}

	clause, filterArgs := compileFilters(filters, postgresDialect{}, len(args))
	args = append(args, filterArgs...)
	args = append(args, limit)
	query += clause + fmt.Sprintf(" ORDER BY c.embedding <=> $1::vector, c.id LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", types.ErrStoreQuery, err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, limit)
	for rows.Next() {
		var sim float64
		chunk, err := scanPGChunk(rows, &sim)
		if err != nil {
			return nil, fmt.Errorf("%w: scan vector result: %v", types.ErrStoreQuery, err)
		}
		chunk.Namespace = ns
		results = append(results, VectorResult{Chunk: chunk, Similarity: clampSimilarity(sim)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStoreQuery, err)
	}
	return results, nil
}

// SearchText ranks with ts_rank_cd. websearch_to_tsquery accepts the
// quoted-phrase OR syntax produced by the expander.
func (s *PostgresStorage) SearchText(ctx context.Context, ns types.Namespace, query string, limit int, filters types.Filters) ([]TextResult, error) {
	table, err := TableFor(ns)
	if err != nil {
		return nil, err
	}
	match := prepareFTSQuery(query)
	if match == "" || limit <= 0 {
		return []TextResult{}, nil
	}

	sqlQuery := fmt.Sprintf(`
		SELECT %s, ts_rank_cd(c.tsv, websearch_to_tsquery('english', $1)) AS score
		FROM %s c
		WHERE c.tsv @@ websearch_to_tsquery('english', $1) AND c.active`, pgChunkColumns, table)
	args := []interface{}{match}

	clause, filterArgs := compileFilters(filters, postgresDialect{}, len(args))
	args = append(args, filterArgs...)
	args = append(args, limit)
	sqlQuery += clause + fmt.Sprintf(" ORDER BY score DESC, c.id LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: text search: %v", types.ErrStoreQuery, err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]TextResult, 0, limit)
	for rows.Next() {
		var score float64
		chunk, err := scanPGChunk(rows, &score)
		if err != nil {
			return nil, fmt.Errorf("%w: scan text result: %v", types.ErrStoreQuery, err)
		}
		chunk.Namespace = ns
		results = append(results, TextResult{Chunk: chunk, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStoreQuery, err)
	}
	return results, nil
}

func (s *PostgresStorage) Status(ctx context.Context) (*Status, error) {
	status := &Status{
		Backend:       "postgres",
		SchemaVersion: CurrentSchemaVersion,
		Chunks:        make(map[types.Namespace]int, len(types.AllNamespaces)),
		Embedded:      make(map[types.Namespace]int, len(types.AllNamespaces)),
	}

	if err := s.db.PingContext(ctx); err != nil {
		return status, fmt.Errorf("%w: %v", types.ErrStoreQuery, err)
	}
	status.Health.DatabaseAccessible = true
	status.Health.FTSIndexesBuilt = true
	status.Health.VectorExtension = true

	for _, ns := range types.AllNamespaces {
		table, _ := TableFor(ns)
		var total, embedded int
		query := fmt.Sprintf(`SELECT COUNT(*), COUNT(embedding) FROM %s WHERE active`, table)
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

	var bytes int64
	if err := s.db.QueryRowContext(ctx, `SELECT pg_database_size(current_database())`).Scan(&bytes); err == nil {
		status.SizeMB = float64(bytes) / (1024 * 1024)
	}
	return status, nil
}

// Profile operations

func (s *PostgresStorage) GetProfile(ctx context.Context, userID string) (*types.UserProfile, error) {
	query := `
		SELECT user_id, display_name, population, temperament, business_stage,
		       patterns, goals, timezone, onboarded_at, updated_at
		FROM user_profiles WHERE user_id = $1`

	var (
		p           types.UserProfile
		onboardedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.DisplayName, &p.Population, &p.Temperament, &p.BusinessStage,
		pq.Array(&p.Patterns), pq.Array(&p.Goals), &p.Timezone, &onboardedAt, &p.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get profile %s: %v", types.ErrStoreQuery, userID, err)
	}
	if onboardedAt.Valid {
		p.OnboardedAt = onboardedAt.Time.UTC()
	}
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (s *PostgresStorage) UpsertProfile(ctx context.Context, profile *types.UserProfile) error {
	if profile.UserID == "" {
		return fmt.Errorf("user ID is required")
	}
	query := `
		INSERT INTO user_profiles (
			user_id, display_name, population, temperament, business_stage,
			patterns, goals, timezone, onboarded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			population = EXCLUDED.population,
			temperament = EXCLUDED.temperament,
			business_stage = EXCLUDED.business_stage,
			patterns = EXCLUDED.patterns,
			goals = EXCLUDED.goals,
			timezone = EXCLUDED.timezone,
			onboarded_at = EXCLUDED.onboarded_at,
			updated_at = NOW()
		RETURNING updated_at`
	err := s.db.QueryRowContext(ctx, query,
		profile.UserID, profile.DisplayName, profile.Population, profile.Temperament, profile.BusinessStage,
		pq.Array(nonNil(profile.Patterns)), pq.Array(nonNil(profile.Goals)), profile.Timezone,
		nullTime(profile.OnboardedAt),
	).Scan(&profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: upsert profile %s: %v", types.ErrStoreQuery, profile.UserID, err)
	}
	return nil
}

func (s *PostgresStorage) getProgress(ctx context.Context, q querier, userID string) (*types.UserProgress, error) {
	query := `
		SELECT user_id, current_streak, longest_streak, total_points,
		       practices_completed, last_activity_at, updated_at
		FROM user_progress WHERE user_id = $1`

	var (
		p    types.UserProgress
		last sql.NullTime
	)
	err := q.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.CurrentStreak, &p.LongestStreak, &p.TotalPoints,
		&p.PracticesCompleted, &last, &p.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get progress %s: %v", types.ErrStoreQuery, userID, err)
	}
	if last.Valid {
		p.LastActivityAt = last.Time.UTC()
	}
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (s *PostgresStorage) GetProgress(ctx context.Context, userID string) (*types.UserProgress, error) {
	return s.getProgress(ctx, s.db, userID)
}

func (s *PostgresStorage) upsertProgress(ctx context.Context, q querier, progress *types.UserProgress) error {
	if progress.UserID == "" {
		return fmt.Errorf("user ID is required")
	}
	query := `
		INSERT INTO user_progress (
			user_id, current_streak, longest_streak, total_points,
			practices_completed, last_activity_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			total_points = EXCLUDED.total_points,
			practices_completed = EXCLUDED.practices_completed,
			last_activity_at = EXCLUDED.last_activity_at,
			updated_at = NOW()
		RETURNING updated_at`
	err := q.QueryRowContext(ctx, query,
		progress.UserID, progress.CurrentStreak, progress.LongestStreak, progress.TotalPoints,
		progress.PracticesCompleted, nullTime(progress.LastActivityAt),
	).Scan(&progress.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: upsert progress %s: %v", types.ErrStoreQuery, progress.UserID, err)
	}
	return nil
}

func (s *PostgresStorage) UpsertProgress(ctx context.Context, progress *types.UserProgress) error {
	return s.upsertProgress(ctx, s.db, progress)
}

func (s *PostgresStorage) recordActivity(ctx context.Context, q querier, activity *types.Activity) error {
	if activity.UserID == "" {
		return fmt.Errorf("user ID is required")
	}
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.CompletedAt.IsZero() {
		activity.CompletedAt = time.Now().UTC()
	}
	var score sql.NullInt64
	if activity.Score != nil {
		score = sql.NullInt64{Int64: int64(*activity.Score), Valid: true}
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO user_activities (
			id, user_id, namespace, practice_type, completed_at,
			duration_minutes, score, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		activity.ID, activity.UserID, string(activity.Namespace), activity.PracticeType,
		activity.CompletedAt, activity.DurationMinutes, score, activity.Notes,
	)
	if err != nil {
		return fmt.Errorf("%w: record activity: %v", types.ErrStoreQuery, err)
	}
	return nil
}

func (s *PostgresStorage) RecordActivity(ctx context.Context, activity *types.Activity) error {
	return s.recordActivity(ctx, s.db, activity)
}

func (s *PostgresStorage) ListRecentActivity(ctx context.Context, userID string, since time.Time, limit int) ([]*types.Activity, error) {
	if limit <= 0 {
		return []*types.Activity{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, namespace, practice_type, completed_at,
		       duration_minutes, score, notes
		FROM user_activities
		WHERE user_id = $1 AND completed_at >= $2
		ORDER BY completed_at DESC, id
		LIMIT $3`, userID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list activity: %v", types.ErrStoreQuery, err)
	}
	defer func() { _ = rows.Close() }()

	activities := make([]*types.Activity, 0, limit)
	for rows.Next() {
		var (
			a     types.Activity
			ns    string
			score sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.UserID, &ns, &a.PracticeType, &a.CompletedAt,
			&a.DurationMinutes, &score, &a.Notes); err != nil {
			return nil, fmt.Errorf("%w: scan activity: %v", types.ErrStoreQuery, err)
		}
		a.Namespace = types.Namespace(ns)
		a.CompletedAt = a.CompletedAt.UTC()
		if score.Valid {
			v := int(score.Int64)
			a.Score = &v
		}
		activities = append(activities, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStoreQuery, err)
	}
	return activities, nil
}

func scanPGChunk(row rowScanner, extra ...interface{}) (*types.KnowledgeChunk, error) {
	var c types.KnowledgeChunk
	dest := []interface{}{
		&c.ID, &c.SourceFile, &c.ChunkNumber, &c.Text, &c.Summary,
		&c.Category, &c.Difficulty, &c.BusinessStage,
		pq.Array(&c.Patterns), pq.Array(&c.Temperaments), pq.Array(&c.Populations), pq.Array(&c.Topics),
		&c.TimeMinMin, &c.TimeMaxMin, &c.Emergency,
		&c.Active, &c.CreatedAt, &c.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dshills/personarag/pkg/types"
)

// searchVectorSQLite ranks chunks in table by cosine similarity
func searchVectorSQLite(ctx context.Context, q querier, table string, queryVector []float32, limit int, filters types.Filters) ([]VectorResult, error) {
	if limit <= 0 {
		return []VectorResult{}, nil
	}
	if err := checkStoredDimensions(ctx, q, table, len(queryVector)); err != nil {
		return nil, err
	}
	// Use SQL-side distance when sqlite-vec is available
	if VectorExtensionAvailable {
		return searchVectorOptimized(ctx, q, table, queryVector, limit, filters)
	}
	// Fall back to Go-based computation for purego builds
	return searchVectorFallback(ctx, q, table, queryVector, limit, filters)
}

// checkStoredDimensions fails when any embedded chunk has a different
// dimension than the query; such rows cannot be compared
func checkStoredDimensions(ctx context.Context, q querier, table string, dim int) error {
	var other sql.NullInt64
	query := fmt.Sprintf(`SELECT dimension FROM %s WHERE active = 1 AND embedding IS NOT NULL AND dimension != ? LIMIT 1`, table)
	err := q.QueryRowContext(ctx, query, dim).Scan(&other)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: check embedding dimensions: %v", types.ErrStoreQuery, err)
	}
	return &types.DimensionMismatchError{Want: dim, Got: int(other.Int64)}
}

// searchVectorOptimized uses sqlite-vec for SQL-based similarity
func searchVectorOptimized(ctx context.Context, q querier, table string, queryVector []float32, limit int, filters types.Filters) ([]VectorResult, error) {
	blob := serializeVector(queryVector)

	// vec_distance_cosine returns a distance (lower is better)
	query := fmt.Sprintf(`
		SELECT %s, 1.0 - vec_distance_cosine(c.embedding, ?) AS similarity
		FROM %s c
		WHERE c.active = 1 AND c.embedding IS NOT NULL`, chunkColumns, table)
	args := []interface{}{blob}

	clause, filterArgs := compileFilters(filters, sqliteDialect{}, len(args))
	query += clause + " ORDER BY similarity DESC, c.id LIMIT ?"
	args = append(append(args, filterArgs...), limit)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", types.ErrStoreQuery, err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, limit)
	for rows.Next() {
		var sim float64
		chunk, err := scanChunk(rows, &sim)
		if err != nil {
			return nil, fmt.Errorf("%w: scan vector result: %v", types.ErrStoreQuery, err)
		}
		results = append(results, VectorResult{Chunk: chunk, Similarity: clampSimilarity(sim)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStoreQuery, err)
	}
	return results, nil
}

// searchVectorFallback fetches every candidate embedding and scores in Go.
// Fine for small corpora; larger ones want a native index.
func searchVectorFallback(ctx context.Context, q querier, table string, queryVector []float32, limit int, filters types.Filters) ([]VectorResult, error) {
	query := fmt.Sprintf(`
		SELECT %s, c.embedding
		FROM %s c
		WHERE c.active = 1 AND c.embedding IS NOT NULL`, chunkColumns, table)

	clause, args := compileFilters(filters, sqliteDialect{}, 0)
	query += clause

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query embeddings: %v", types.ErrStoreQuery, err)
	}
	defer func() { _ = rows.Close() }()

	candidates, err := computeSimilarityScores(rows, queryVector)
	if err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// computeSimilarityScores scans rows and scores each against queryVector
func computeSimilarityScores(rows *sql.Rows, queryVector []float32) ([]VectorResult, error) {
	candidates := make([]VectorResult, 0, 256)

	for rows.Next() {
		var blob []byte
		chunk, err := scanChunk(rows, &blob)
		if err != nil {
			return nil, fmt.Errorf("%w: scan embedding: %v", types.ErrStoreQuery, err)
		}

		similarity, err := CosineSimilarity(queryVector, deserializeVector(blob))
		if err != nil {
			return nil, err
		}

		candidates = append(candidates, VectorResult{Chunk: chunk, Similarity: similarity})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStoreQuery, err)
	}
	return candidates, nil
}

// sortCandidates orders by similarity descending, then chunk ID
func sortCandidates(candidates []VectorResult) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].Chunk.ID < candidates[j].Chunk.ID
	})
}

// searchTextSQLite runs an FTS5 query ordered by bm25
func searchTextSQLite(ctx context.Context, q querier, table, query string, limit int, filters types.Filters) ([]TextResult, error) {
	match := prepareFTSQuery(query)
	if match == "" || limit <= 0 {
		return []TextResult{}, nil
	}

	fts := table + "_fts"
	sqlQuery := fmt.Sprintf(`
		SELECT %s, bm25(%s) AS score
		FROM %s
		INNER JOIN %s c ON c.seq = %s.rowid
		WHERE %s MATCH ? AND c.active = 1`, chunkColumns, fts, fts, table, fts, fts)
	args := []interface{}{match}

	clause, filterArgs := compileFilters(filters, sqliteDialect{}, len(args))
	// bm25 is lower-is-better
	sqlQuery += clause + " ORDER BY score, c.id LIMIT ?"
	args = append(append(args, filterArgs...), limit)

	rows, err := q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: FTS search: %v", types.ErrStoreQuery, err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]TextResult, 0, limit)
	for rows.Next() {
		var score float64
		chunk, err := scanChunk(rows, &score)
		if err != nil {
			return nil, fmt.Errorf("%w: scan text result: %v", types.ErrStoreQuery, err)
		}
		results = append(results, TextResult{Chunk: chunk, Score: -score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStoreQuery, err)
	}
	return results, nil
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// CosineSimilarity returns the cosine of the angle between a and b, in
// [-1, 1]. Vectors of different lengths are an error; a zero vector
// scores 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &types.DimensionMismatchError{Want: len(a), Got: len(b)}
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return clampSimilarity(dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))), nil
}

// clampSimilarity absorbs floating point drift past +-1
func clampSimilarity(s float64) float64 {
	return math.Max(-1, math.Min(1, s))
}

// vectorToString formats a vector as a pgvector literal
func vectorToString(v []float32) string {
	var b strings.Builder
	b.Grow(len(v) * 10)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// parseVectorString parses a pgvector literal
func parseVectorString(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("malformed vector literal")
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return []float32{}, nil
	}
	parts := strings.Split(inner, ",")
	v := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("vector element %d: %w", i, err)
		}
		v[i] = float32(f)
	}
	return v, nil
}

// ftsPhrasePattern captures the quoted phrases of an expanded query
var ftsPhrasePattern = regexp.MustCompile(`"([^"]*)"`)

// prepareFTSQuery turns expanded query text into a safe FTS5 MATCH
// expression. Quoted phrases are kept and joined with OR; a bare term is
// quoted as a single phrase. Every user token ends up inside a string, so
// FTS5 operators and punctuation cannot change the query's structure.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	var phrases []string
	if strings.Contains(query, `"`) {
		for _, m := range ftsPhrasePattern.FindAllStringSubmatch(query, -1) {
			if p := strings.TrimSpace(m[1]); p != "" {
				phrases = append(phrases, p)
			}
		}
	}
	if len(phrases) == 0 {
		if p := strings.TrimSpace(strings.ReplaceAll(query, `"`, "")); p != "" {
			phrases = []string{p}
		}
	}

	quoted := make([]string, 0, len(phrases))
	for _, p := range phrases {
		quoted = append(quoted, `"`+p+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

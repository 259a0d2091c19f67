package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dshills/personarag/pkg/types"
)

// MaxBodyTokens is the estimated body size above which the summary is
// embedded in place of the body
const MaxBodyTokens = 8000

var validDifficulty = map[string]bool{
	"":             true,
	"beginner":     true,
	"intermediate": true,
	"advanced":     true,
}

// emergencyKeywords mark a mindset chunk as an emergency protocol when the
// source did not flag it
var emergencyKeywords = []string{"emergency", "crisis", "60-second", "immediate", "urgent"}

// chunkIDSpace namespaces derived chunk IDs
var chunkIDSpace = uuid.MustParse("6f1c3a52-8f0e-4b8e-9d55-2c1f7e0a4b19")

// Record is one knowledge chunk as it appears in an ingest file
type Record struct {
	ID            string   `json:"id,omitempty"`
	SourceFile    string   `json:"source_file"`
	ChunkNumber   int      `json:"chunk_number,omitempty"`
	ChunkText     string   `json:"chunk_text"`
	ChunkSummary  string   `json:"chunk_summary,omitempty"`
	Category      string   `json:"category,omitempty"`
	Difficulty    string   `json:"difficulty_level,omitempty"`
	BusinessStage string   `json:"business_stage,omitempty"`
	Patterns      []string `json:"applicable_patterns,omitempty"`
	Temperaments  []string `json:"temperament_match,omitempty"`
	Populations   []string `json:"populations,omitempty"`
	Topics        []string `json:"topics,omitempty"`
	TimeMin       int      `json:"time_commitment_min,omitempty"`
	TimeMax       int      `json:"time_commitment_max,omitempty"`
	Emergency     bool     `json:"is_emergency_protocol,omitempty"`
}

// ReadRecords decodes a JSON array of records
func ReadRecords(r io.Reader) ([]Record, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}

// LoadFile reads records from a JSON file
func LoadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadRecords(f)
}

// Validate checks the fields the store cannot repair
func (r *Record) Validate() error {
	if strings.TrimSpace(r.ChunkText) == "" {
		return fmt.Errorf("chunk_text is required")
	}
	if !validDifficulty[r.Difficulty] {
		return fmt.Errorf("invalid difficulty_level %q", r.Difficulty)
	}
	if r.TimeMin < 0 || r.TimeMax < 0 {
		return fmt.Errorf("time commitment cannot be negative")
	}
	if r.TimeMax > 0 && r.TimeMin > r.TimeMax {
		return fmt.Errorf("time_commitment_min exceeds time_commitment_max")
	}
	return nil
}

// Chunk converts the record to a chunk of namespace ns. Records without
// an ID get one derived from their namespace, source and content, so
// re-ingesting the same file updates rows instead of duplicating them.
func (r *Record) Chunk(ns types.Namespace) *types.KnowledgeChunk {
	id := r.ID
	if id == "" {
		name := strings.Join([]string{string(ns), r.SourceFile, strconv.Itoa(r.ChunkNumber), r.ChunkText}, "\x00")
		id = uuid.NewSHA1(chunkIDSpace, []byte(name)).String()
	}
	return &types.KnowledgeChunk{
		ID:            id,
		Namespace:     ns,
		SourceFile:    r.SourceFile,
		ChunkNumber:   r.ChunkNumber,
		Text:          r.ChunkText,
		Summary:       r.ChunkSummary,
		Category:      r.Category,
		Difficulty:    r.difficulty(),
		BusinessStage: r.BusinessStage,
		Patterns:      r.Patterns,
		Temperaments:  r.Temperaments,
		Populations:   r.Populations,
		Topics:        r.Topics,
		TimeMinMin:    r.TimeMin,
		TimeMaxMin:    r.TimeMax,
		Emergency:     r.emergency(ns),
		Active:        true,
	}
}

// difficulty returns the declared level, or one inferred from the time
// commitment: under 10 minutes is beginner, up to 20 intermediate, longer
// advanced. Records with no time commitment stay unlevelled.
func (r *Record) difficulty() string {
	if r.Difficulty != "" {
		return r.Difficulty
	}
	minutes := r.TimeMax
	if minutes == 0 {
		minutes = r.TimeMin
	}
	switch {
	case minutes <= 0:
		return ""
	case minutes < 10:
		return "beginner"
	case minutes <= 20:
		return "intermediate"
	default:
		return "advanced"
	}
}

// emergency returns the declared flag, falling back to a keyword scan of
// mindset chunks
func (r *Record) emergency(ns types.Namespace) bool {
	if r.Emergency || ns != types.NamespaceMindset {
		return r.Emergency
	}
	text := strings.ToLower(r.ChunkSummary + "\n" + r.ChunkText)
	for _, kw := range emergencyKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// EmbeddingText builds the text that is embedded for a chunk: a metadata
// header followed by the body, or by the summary when the body is too long
func EmbeddingText(c *types.KnowledgeChunk) string {
	var header []string
	if c.Summary != "" {
		header = append(header, "Title: "+c.Summary)
	}
	if c.Category != "" {
		header = append(header, "Category: "+c.Category)
	}
	if len(c.Patterns) > 0 {
		header = append(header, "Patterns: "+strings.Join(c.Patterns, ", "))
	}
	if len(c.Temperaments) > 0 {
		header = append(header, "Temperament: "+strings.Join(c.Temperaments, ", "))
	}

	body := c.Text
	if c.TokenCount() >= MaxBodyTokens && c.Summary != "" {
		body = c.Summary
	}
	if len(header) == 0 {
		return body
	}
	return strings.Join(header, "\n") + "\n\n" + body
}

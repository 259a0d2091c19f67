package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/personarag/pkg/types"
)

func TestReadRecords(t *testing.T) {
	input := `[
		{
			"source_file": "box_breathing.md",
			"chunk_number": 2,
			"chunk_text": "Inhale for four counts.",
			"chunk_summary": "Box breathing",
			"category": "breathing",
			"difficulty_level": "beginner",
			"applicable_patterns": ["anxiety"],
			"temperament_match": ["sage"],
			"time_commitment_min": 2,
			"time_commitment_max": 5,
			"is_emergency_protocol": true
		}
	]`
	recs, err := ReadRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, recs, 1)

	r := recs[0]
	assert.Equal(t, "box_breathing.md", r.SourceFile)
	assert.Equal(t, 2, r.ChunkNumber)
	assert.Equal(t, []string{"anxiety"}, r.Patterns)
	assert.True(t, r.Emergency)
	assert.NoError(t, r.Validate())

	_, err = ReadRecords(strings.NewReader(`{"not": "an array"}`))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"source_file":"a.md","chunk_text":"body"}]`), 0644))

	recs, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestRecordChunk_StableIDs(t *testing.T) {
	r := Record{SourceFile: "a.md", ChunkNumber: 1, ChunkText: "body"}

	a := r.Chunk(types.NamespaceMindset)
	b := r.Chunk(types.NamespaceMindset)
	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, r.Chunk(types.NamespaceBusiness).ID)
	assert.True(t, a.Active)
	assert.NoError(t, a.Validate())

	r.ID = "explicit"
	assert.Equal(t, "explicit", r.Chunk(types.NamespaceMindset).ID)
}

func TestRecordChunk_InfersDifficulty(t *testing.T) {
	tests := []struct {
		name     string
		record   Record
		expected string
	}{
		{"declared wins", Record{Difficulty: "advanced", TimeMax: 5}, "advanced"},
		{"short practice", Record{TimeMin: 2, TimeMax: 5}, "beginner"},
		{"ten minutes", Record{TimeMax: 10}, "intermediate"},
		{"twenty minutes", Record{TimeMin: 15, TimeMax: 20}, "intermediate"},
		{"long practice", Record{TimeMin: 20, TimeMax: 45}, "advanced"},
		{"min only", Record{TimeMin: 30}, "advanced"},
		{"no time commitment", Record{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.record.ChunkText = "body"
			assert.Equal(t, tt.expected, tt.record.Chunk(types.NamespaceMindset).Difficulty)
		})
	}
}

func TestRecordChunk_InfersEmergency(t *testing.T) {
	tests := []struct {
		name     string
		record   Record
		ns       types.Namespace
		expected bool
	}{
		{"declared", Record{ChunkText: "Slow breathing.", Emergency: true}, types.NamespaceMindset, true},
		{"keyword in body", Record{ChunkText: "A 60-Second reset for panic."}, types.NamespaceMindset, true},
		{"keyword in summary", Record{ChunkSummary: "Crisis grounding", ChunkText: "Name five things."}, types.NamespaceMindset, true},
		{"no keyword", Record{ChunkText: "Write three things you are grateful for."}, types.NamespaceMindset, false},
		{"other namespace", Record{ChunkText: "Urgent invoices first."}, types.NamespaceBusiness, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.record.Chunk(tt.ns).Emergency)
		})
	}
}

func TestEmbeddingText(t *testing.T) {
	c := &types.KnowledgeChunk{
		Text:         "Inhale for four counts.",
		Summary:      "Box breathing",
		Category:     "breathing",
		Patterns:     []string{"anxiety", "overthinking"},
		Temperaments: []string{"sage"},
	}
	want := "Title: Box breathing\nCategory: breathing\nPatterns: anxiety, overthinking\nTemperament: sage\n\nInhale for four counts."
	assert.Equal(t, want, EmbeddingText(c))

	// No metadata: body only
	assert.Equal(t, "plain", EmbeddingText(&types.KnowledgeChunk{Text: "plain"}))

	// Oversized body falls back to the summary
	c.Text = strings.Repeat("x", MaxBodyTokens*4)
	assert.True(t, strings.HasSuffix(EmbeddingText(c), "\n\nBox breathing"))
}

func TestLock(t *testing.T) {
	var l Lock
	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())
	l.Release()
	assert.True(t, l.TryAcquire())
}

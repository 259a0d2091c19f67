package storage

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/dshills/personarag/pkg/types"
)

// Filterable columns. Filter compilation only ever emits these names.
const (
	colCategory      = "category"
	colDifficulty    = "difficulty_level"
	colBusinessStage = "business_stage"
	colPatterns      = "applicable_patterns"
	colTemperaments  = "temperament_match"
	colPopulations   = "populations"
	colTopics        = "topics"
	colTimeMin       = "time_commitment_min"
	colTimeMax       = "time_commitment_max"
	colEmergency     = "is_emergency_protocol"
)

// dialect renders the backend-specific parts of a filter predicate
type dialect interface {
	// placeholder returns the bind marker for the n-th argument (1-based)
	placeholder(n int) string

	// contains renders "array column holds value" and returns its argument
	contains(col, marker string, value string) (string, interface{})

	// boolTrue renders a true-valued boolean column test
	boolTrue(col string) string
}

type sqliteDialect struct{}

func (sqliteDialect) placeholder(int) string { return "?" }

func (sqliteDialect) contains(col, marker, value string) (string, interface{}) {
	return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(c.%s) WHERE json_each.value = %s)", col, marker), value
}

func (sqliteDialect) boolTrue(col string) string { return "c." + col + " = 1" }

type postgresDialect struct{}

func (postgresDialect) placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (postgresDialect) contains(col, marker, value string) (string, interface{}) {
	return fmt.Sprintf("c.%s @> %s", col, marker), pq.Array([]string{value})
}

func (postgresDialect) boolTrue(col string) string { return "c." + col }

// compileFilters renders f as " AND ..." clauses. argN is the number of
// arguments already bound before the predicate. The same Filters always
// produce the same clause, so both search passes see identical candidates.
func compileFilters(f types.Filters, d dialect, argN int) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	next := func() string {
		argN++
		return d.placeholder(argN)
	}

	eq := func(col, value string) {
		if value == "" {
			return
		}
		clauses = append(clauses, fmt.Sprintf("c.%s = %s", col, next()))
		args = append(args, value)
	}
	contains := func(col string, values []string) {
		for _, v := range values {
			clause, arg := d.contains(col, next(), v)
			clauses = append(clauses, clause)
			args = append(args, arg)
		}
	}

	eq(colCategory, f.Category)
	eq(colDifficulty, f.Difficulty)
	eq(colBusinessStage, f.BusinessStage)
	contains(colPatterns, f.Patterns)
	contains(colTemperaments, f.Temperaments)
	contains(colPopulations, f.Populations)
	contains(colTopics, f.Topics)

	if f.MinMinutes != nil {
		clauses = append(clauses, fmt.Sprintf("c.%s >= %s", colTimeMin, next()))
		args = append(args, *f.MinMinutes)
	}
	if f.MaxMinutes != nil {
		clauses = append(clauses, fmt.Sprintf("c.%s <= %s", colTimeMax, next()))
		args = append(args, *f.MaxMinutes)
	}
	if f.EmergencyOnly {
		clauses = append(clauses, d.boolTrue(colEmergency))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

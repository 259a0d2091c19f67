package types

import (
	"fmt"
	"strings"
	"time"
)

// UserProfile holds the profile attributes collected during onboarding
type UserProfile struct {
	UserID        string
	DisplayName   string
	Population    string   // e.g. "returning_citizen", "veteran"
	Temperament   string   // e.g. "warrior", "sage"
	BusinessStage string   // e.g. "idea", "launch", "growth"
	Patterns      []string // Dominant behavioral patterns from assessment
	Goals         []string
	Timezone      string
	OnboardedAt   time.Time
	UpdatedAt     time.Time
}

// UserProgress holds the counters kept by the gamification collaborator
type UserProgress struct {
	UserID             string
	CurrentStreak      int
	LongestStreak      int
	TotalPoints        int
	PracticesCompleted int
	LastActivityAt     time.Time // Zero when the user never completed anything
	UpdatedAt          time.Time
}

// Activity is one completed practice
type Activity struct {
	ID              string
	UserID          string
	Namespace       Namespace
	PracticeType    string
	CompletedAt     time.Time
	DurationMinutes int
	Score           *int // Self-reported rating, 1-10, optional
	Notes           string
}

// TimingPattern classifies when a user tends to complete practices
type TimingPattern string

const (
	TimingNormal       TimingPattern = "normal"
	TimingEarly        TimingPattern = "early"
	TimingLate         TimingPattern = "late"
	TimingInconsistent TimingPattern = "inconsistent"
)

// Trend classifies the direction of a user's recent self-reported scores
type Trend string

const (
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
	TrendImproving Trend = "improving"
)

// RiskLevel buckets a RiskScore
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

// UserContext is the flattened personalization snapshot cached per user
// and namespace.
type UserContext struct {
	UserID    string    `json:"user_id"`
	Namespace Namespace `json:"namespace"`

	// Profile
	DisplayName   string   `json:"display_name,omitempty"`
	Population    string   `json:"population,omitempty"`
	Temperament   string   `json:"temperament,omitempty"`
	BusinessStage string   `json:"business_stage,omitempty"`
	Patterns      []string `json:"patterns,omitempty"`
	Goals         []string `json:"goals,omitempty"`

	// Progress
	CurrentStreak      int       `json:"current_streak"`
	LongestStreak      int       `json:"longest_streak"`
	TotalPoints        int       `json:"total_points"`
	PracticesCompleted int       `json:"practices_completed"`
	LastActivityAt     time.Time `json:"last_activity_at,omitempty"`

	// Derived signals
	DaysSinceLastActivity int           `json:"days_since_last_activity"`
	ActivitiesLast7Days   int           `json:"activities_last_7_days"`
	TimingPattern         TimingPattern `json:"timing_pattern"`
	ScoreTrend            Trend         `json:"score_trend"`
	RiskScore             int           `json:"risk_score"`
	RiskLevel             RiskLevel     `json:"risk_level"`
	RiskFactors           []string      `json:"risk_factors,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Render formats the snapshot as a short block for prompt injection. Empty
// profile fields are omitted.
func (uc *UserContext) Render() string {
	var b strings.Builder
	name := uc.DisplayName
	if name == "" {
		name = uc.UserID
	}
	fmt.Fprintf(&b, "User: %s\n", name)
	for _, kv := range [][2]string{
		{"Population", uc.Population},
		{"Temperament", uc.Temperament},
		{"Business stage", uc.BusinessStage},
		{"Patterns", strings.Join(uc.Patterns, ", ")},
		{"Goals", strings.Join(uc.Goals, ", ")},
	} {
		if kv[1] != "" {
			fmt.Fprintf(&b, "%s: %s\n", kv[0], kv[1])
		}
	}

	fmt.Fprintf(&b, "Streak: %d days (longest %d) | Points: %d | Practices: %d\n",
		uc.CurrentStreak, uc.LongestStreak, uc.TotalPoints, uc.PracticesCompleted)
	if uc.DaysSinceLastActivity < 0 {
		b.WriteString("Last activity: never\n")
	} else {
		fmt.Fprintf(&b, "Last activity: %d days ago | Last 7 days: %d\n",
			uc.DaysSinceLastActivity, uc.ActivitiesLast7Days)
	}
	fmt.Fprintf(&b, "Timing: %s | Score trend: %s\n", uc.TimingPattern, uc.ScoreTrend)
	fmt.Fprintf(&b, "Risk: %s (%d)", uc.RiskLevel, uc.RiskScore)
	if len(uc.RiskFactors) > 0 {
		fmt.Fprintf(&b, " - %s", strings.Join(uc.RiskFactors, ", "))
	}
	return b.String()
}

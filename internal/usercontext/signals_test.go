package usercontext

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/personarag/pkg/types"
)

var base = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func at(day, hour, minute int) *types.Activity {
	return &types.Activity{CompletedAt: base.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)}
}

func scored(scores ...int) []*types.Activity {
	out := make([]*types.Activity, len(scores))
	for i, s := range scores {
		s := s
		out[i] = &types.Activity{Score: &s}
	}
	return out
}

func TestClassifyTiming(t *testing.T) {
	tests := []struct {
		name       string
		activities []*types.Activity
		want       types.TimingPattern
	}{
		{"too few samples", []*types.Activity{at(0, 3, 0), at(1, 3, 0)}, types.TimingNormal},
		{"early", []*types.Activity{at(0, 5, 30), at(1, 6, 0), at(2, 6, 15)}, types.TimingEarly},
		{"late", []*types.Activity{at(0, 21, 30), at(1, 22, 0), at(2, 23, 0)}, types.TimingLate},
		{"normal", []*types.Activity{at(0, 12, 0), at(1, 13, 0), at(2, 14, 0)}, types.TimingNormal},
		{"inconsistent", []*types.Activity{at(0, 6, 0), at(1, 12, 0), at(2, 23, 0)}, types.TimingInconsistent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyTiming(tt.activities, time.UTC))
		})
	}
}

func TestClassifyTiming_UsesLocation(t *testing.T) {
	// 13:00 UTC is 05:00 in Los Angeles during PST
	acts := []*types.Activity{at(-60, 13, 0), at(-59, 13, 10), at(-58, 13, 20)}
	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	assert.Equal(t, types.TimingNormal, classifyTiming(acts, time.UTC))
	assert.Equal(t, types.TimingEarly, classifyTiming(acts, la))
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   types.Trend
	}{
		{"no samples", nil, types.TrendStable},
		{"one sample", []int{3}, types.TrendStable},
		{"declining", []int{4, 5, 6, 7}, types.TrendDeclining},
		{"improving", []int{8, 7, 6}, types.TrendImproving},
		{"small change", []int{7, 6}, types.TrendStable},
		{"window is newest five", []int{5, 5, 5, 5, 5, 10}, types.TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyTrend(scored(tt.scores...)))
		})
	}

	// Unscored activities are skipped
	acts := append([]*types.Activity{{}}, scored(3, 8)...)
	assert.Equal(t, types.TrendDeclining, classifyTrend(acts))
}

func TestDaysSince(t *testing.T) {
	now := base.Add(12 * time.Hour)
	assert.Equal(t, -1, daysSince(time.Time{}, now))
	assert.Equal(t, 0, daysSince(now.Add(-time.Hour), now))
	assert.Equal(t, 3, daysSince(now.Add(-73*time.Hour), now))
	assert.Equal(t, 0, daysSince(now.Add(time.Hour), now), "future clamps to zero")
}

func TestCountSince(t *testing.T) {
	acts := []*types.Activity{at(0, 0, 0), at(-3, 0, 0), at(-7, 0, 0), at(-8, 0, 0)}
	assert.Equal(t, 3, countSince(acts, base.AddDate(0, 0, -7)))
}

func TestAssessRisk(t *testing.T) {
	tests := []struct {
		name      string
		uc        types.UserContext
		wantScore int
		wantLevel types.RiskLevel
		want      []string
	}{
		{
			name: "engaged",
			uc: types.UserContext{
				DaysSinceLastActivity: 0, CurrentStreak: 5, ActivitiesLast7Days: 6,
				ScoreTrend: types.TrendImproving, TimingPattern: types.TimingNormal,
			},
			wantScore: 0,
			wantLevel: types.RiskLow,
		},
		{
			name: "never active",
			uc: types.UserContext{
				DaysSinceLastActivity: -1, ScoreTrend: types.TrendStable, TimingPattern: types.TimingNormal,
			},
			wantScore: 65,
			wantLevel: types.RiskHigh,
			want:      []string{FactorInactive, FactorNoStreak, FactorLowWeeklyPace},
		},
		{
			name: "everything wrong",
			uc: types.UserContext{
				DaysSinceLastActivity: 9, ScoreTrend: types.TrendDeclining, TimingPattern: types.TimingInconsistent,
			},
			wantScore: 100,
			wantLevel: types.RiskHigh,
			want:      []string{FactorInactive, FactorNoStreak, FactorDeclining, FactorInconsistent, FactorLowWeeklyPace},
		},
		{
			name: "slow week",
			uc: types.UserContext{
				DaysSinceLastActivity: 1, CurrentStreak: 2, ActivitiesLast7Days: 2,
				ScoreTrend: types.TrendDeclining, TimingPattern: types.TimingNormal,
			},
			wantScore: 35,
			wantLevel: types.RiskModerate,
			want:      []string{FactorDeclining, FactorLowWeeklyPace},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, factors := assessRisk(&tt.uc)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.want, factors)
			assert.Equal(t, tt.wantLevel, riskLevel(score))
		})
	}
}

func TestRiskLevelBoundaries(t *testing.T) {
	assert.Equal(t, types.RiskLow, riskLevel(29))
	assert.Equal(t, types.RiskModerate, riskLevel(30))
	assert.Equal(t, types.RiskModerate, riskLevel(59))
	assert.Equal(t, types.RiskHigh, riskLevel(60))
}

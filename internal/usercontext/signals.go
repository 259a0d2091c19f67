package usercontext

import (
	"math"
	"time"

	"github.com/dshills/personarag/pkg/types"
)

// Signal thresholds
const (
	minTimingSamples      = 3
	inconsistentStdDevHrs = 4.0
	earlyBeforeHour       = 7.0
	lateFromHour          = 21.0

	trendWindow    = 5
	trendThreshold = 2

	inactiveDays       = 3
	weeklyActivityMin  = 3
	moderateRiskFloor  = 30
	highRiskFloor      = 60
	neverActiveDaysAgo = -1
)

// Risk factor names and their fixed point values
const (
	FactorInactive      = "inactive_3_days"
	FactorNoStreak      = "no_current_streak"
	FactorDeclining     = "declining_scores"
	FactorInconsistent  = "inconsistent_timing"
	FactorLowWeeklyPace = "low_weekly_activity"
)

var factorPoints = map[string]int{
	FactorInactive:      30,
	FactorNoStreak:      20,
	FactorDeclining:     20,
	FactorInconsistent:  15,
	FactorLowWeeklyPace: 15,
}

// classifyTiming buckets completion hours in loc by their spread and mean
func classifyTiming(activities []*types.Activity, loc *time.Location) types.TimingPattern {
	if len(activities) < minTimingSamples {
		return types.TimingNormal
	}

	hours := make([]float64, len(activities))
	for i, a := range activities {
		t := a.CompletedAt.In(loc)
		hours[i] = float64(t.Hour()) + float64(t.Minute())/60
	}
	mean, stddev := meanStdDev(hours)

	switch {
	case stddev > inconsistentStdDevHrs:
		return types.TimingInconsistent
	case mean < earlyBeforeHour:
		return types.TimingEarly
	case mean >= lateFromHour:
		return types.TimingLate
	default:
		return types.TimingNormal
	}
}

// classifyTrend compares the newest and oldest of the newest scored
// samples. activities must be ordered newest first.
func classifyTrend(activities []*types.Activity) types.Trend {
	scores := make([]int, 0, trendWindow)
	for _, a := range activities {
		if a.Score == nil {
			continue
		}
		scores = append(scores, *a.Score)
		if len(scores) == trendWindow {
			break
		}
	}
	if len(scores) < 2 {
		return types.TrendStable
	}

	delta := scores[0] - scores[len(scores)-1]
	switch {
	case delta <= -trendThreshold:
		return types.TrendDeclining
	case delta >= trendThreshold:
		return types.TrendImproving
	default:
		return types.TrendStable
	}
}

// daysSince counts whole days between last and now; -1 when last is zero
func daysSince(last, now time.Time) int {
	if last.IsZero() {
		return neverActiveDaysAgo
	}
	d := now.Sub(last)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// countSince counts activities completed at or after since
func countSince(activities []*types.Activity, since time.Time) int {
	n := 0
	for _, a := range activities {
		if !a.CompletedAt.Before(since) {
			n++
		}
	}
	return n
}

// assessRisk sums the points of every factor that holds
func assessRisk(uc *types.UserContext) (int, []string) {
	var factors []string
	if uc.DaysSinceLastActivity == neverActiveDaysAgo || uc.DaysSinceLastActivity >= inactiveDays {
		factors = append(factors, FactorInactive)
	}
	if uc.CurrentStreak == 0 {
		factors = append(factors, FactorNoStreak)
	}
	if uc.ScoreTrend == types.TrendDeclining {
		factors = append(factors, FactorDeclining)
	}
	if uc.TimingPattern == types.TimingInconsistent {
		factors = append(factors, FactorInconsistent)
	}
	if uc.ActivitiesLast7Days < weeklyActivityMin {
		factors = append(factors, FactorLowWeeklyPace)
	}

	score := 0
	for _, f := range factors {
		score += factorPoints[f]
	}
	return score, factors
}

func riskLevel(score int) types.RiskLevel {
	switch {
	case score >= highRiskFloor:
		return types.RiskHigh
	case score >= moderateRiskFloor:
		return types.RiskModerate
	default:
		return types.RiskLow
	}
}

func meanStdDev(xs []float64) (float64, float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}

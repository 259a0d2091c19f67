package usercontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/personarag/internal/cache"
	"github.com/dshills/personarag/pkg/types"
)

func TestRecordActivity_InvalidatesAndAdvances(t *testing.T) {
	store := setupStore(t)
	seedUser(t, store, "u1", 5, 24*time.Hour)
	mem := cache.NewMemory(100)
	ctx := context.Background()

	loader := NewLoader(store, mem, nil).WithClock(fixedClock)
	before, err := loader.Load(ctx, "u1", types.NamespaceMindset, true)
	require.NoError(t, err)

	rec := NewRecorder(store, loader, nil).WithClock(fixedClock)
	score := 8
	progress, err := rec.RecordActivity(ctx, &types.Activity{
		UserID:       "u1",
		Namespace:    types.NamespaceMindset,
		PracticeType: "journaling",
		Score:        &score,
	}, 10)
	require.NoError(t, err)

	assert.Equal(t, 6, progress.CurrentStreak)
	assert.Equal(t, 130, progress.TotalPoints)
	assert.Equal(t, 13, progress.PracticesCompleted)
	assert.False(t, mem.Exists(ctx, CacheKey("u1", types.NamespaceMindset)))

	after, err := loader.Load(ctx, "u1", types.NamespaceMindset, true)
	require.NoError(t, err)
	assert.Equal(t, before.CurrentStreak+1, after.CurrentStreak)
	assert.Equal(t, 0, after.DaysSinceLastActivity)
	assert.Equal(t, 2, after.ActivitiesLast7Days)
}

func TestRecordActivity_LeavesCallerActivityUnchanged(t *testing.T) {
	store := setupStore(t)
	rec := NewRecorder(store, nil, nil).WithClock(fixedClock)
	ctx := context.Background()

	activity := &types.Activity{UserID: "u1", PracticeType: "breathing"}
	_, err := rec.RecordActivity(ctx, activity, 5)
	require.NoError(t, err)
	assert.True(t, activity.CompletedAt.IsZero())
	assert.Empty(t, activity.ID)

	stored, err := store.ListRecentActivity(ctx, "u1", fixedClock().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotEmpty(t, stored[0].ID)
	assert.True(t, stored[0].CompletedAt.Equal(fixedClock()))
}

func TestRecordActivity_Validation(t *testing.T) {
	store := setupStore(t)
	rec := NewRecorder(store, nil, nil)
	ctx := context.Background()

	_, err := rec.RecordActivity(ctx, &types.Activity{}, 0)
	assert.Error(t, err)

	_, err = rec.RecordActivity(ctx, &types.Activity{UserID: "u1", Namespace: "finance"}, 0)
	assert.ErrorIs(t, err, types.ErrInvalidNamespace)

	bad := 11
	_, err = rec.RecordActivity(ctx, &types.Activity{UserID: "u1", Score: &bad}, 0)
	assert.Error(t, err)

	// First activity for a user with no progress row starts a streak
	progress, err := rec.RecordActivity(ctx, &types.Activity{UserID: "u1"}, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.CurrentStreak)
	assert.Equal(t, 1, progress.LongestStreak)
}

func TestAdvance(t *testing.T) {
	day := func(d int) time.Time { return now.AddDate(0, 0, d) }

	tests := []struct {
		name        string
		start       types.UserProgress
		at          time.Time
		wantStreak  int
		wantLongest int
	}{
		{"first ever", types.UserProgress{}, day(0), 1, 1},
		{"same day", types.UserProgress{CurrentStreak: 3, LongestStreak: 3, LastActivityAt: day(0).Add(-time.Hour)}, day(0), 3, 3},
		{"next day", types.UserProgress{CurrentStreak: 3, LongestStreak: 3, LastActivityAt: day(-1)}, day(0), 4, 4},
		{"gap resets", types.UserProgress{CurrentStreak: 9, LongestStreak: 9, LastActivityAt: day(-3)}, day(0), 1, 9},
		{"backfill keeps streak", types.UserProgress{CurrentStreak: 2, LongestStreak: 4, LastActivityAt: day(0)}, day(-5), 2, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.start
			advance(&p, tt.at, 1)
			assert.Equal(t, tt.wantStreak, p.CurrentStreak)
			assert.Equal(t, tt.wantLongest, p.LongestStreak)
			assert.Equal(t, tt.start.PracticesCompleted+1, p.PracticesCompleted)
		})
	}
}

package usercontext

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/personarag/internal/cache"
	"github.com/dshills/personarag/internal/storage"
	"github.com/dshills/personarag/pkg/types"
)

var now = time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

func setupStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedUser(t *testing.T, store *storage.SQLiteStorage, userID string, streak int, gap time.Duration) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.UpsertProfile(ctx, &types.UserProfile{
		UserID:      userID,
		DisplayName: "Sam",
		Population:  "returning_citizen",
		Temperament: "sage",
		Patterns:    []string{"avoidance"},
		Timezone:    "UTC",
	}))

	last := now.Add(-gap)
	require.NoError(t, store.UpsertProgress(ctx, &types.UserProgress{
		UserID:             userID,
		CurrentStreak:      streak,
		LongestStreak:      7,
		TotalPoints:        120,
		PracticesCompleted: 12,
		LastActivityAt:     last,
	}))
	require.NoError(t, store.RecordActivity(ctx, &types.Activity{
		UserID:       userID,
		Namespace:    types.NamespaceMindset,
		PracticeType: "breathing",
		CompletedAt:  last,
	}))
}

func TestLoad_AssemblesSnapshot(t *testing.T) {
	store := setupStore(t)
	seedUser(t, store, "u1", 5, 26*time.Hour)

	l := NewLoader(store, cache.NewMemory(100), nil).WithClock(fixedClock)
	uc, err := l.Load(context.Background(), "u1", types.NamespaceMindset, true)
	require.NoError(t, err)

	assert.Equal(t, "u1", uc.UserID)
	assert.Equal(t, types.NamespaceMindset, uc.Namespace)
	assert.Equal(t, "Sam", uc.DisplayName)
	assert.Equal(t, []string{"avoidance"}, uc.Patterns)
	assert.Equal(t, 5, uc.CurrentStreak)
	assert.Equal(t, 120, uc.TotalPoints)
	assert.Equal(t, 1, uc.DaysSinceLastActivity)
	assert.Equal(t, 1, uc.ActivitiesLast7Days)
	assert.Equal(t, types.TimingNormal, uc.TimingPattern)
	assert.Equal(t, types.TrendStable, uc.ScoreTrend)
	assert.Equal(t, now, uc.GeneratedAt)

	// Only the slow week counts against this user
	assert.Equal(t, []string{FactorLowWeeklyPace}, uc.RiskFactors)
	assert.Equal(t, types.RiskLow, uc.RiskLevel)

	assert.Contains(t, uc.Render(), "User: Sam\n")
	assert.Contains(t, uc.Render(), "Risk: low (15) - low_weekly_activity")
}

func TestLoad_LapsedUserScoresHigher(t *testing.T) {
	store := setupStore(t)
	seedUser(t, store, "active", 5, 24*time.Hour)
	seedUser(t, store, "lapsed", 0, 4*24*time.Hour)

	l := NewLoader(store, nil, nil).WithClock(fixedClock)
	ctx := context.Background()

	active, err := l.Load(ctx, "active", types.NamespaceMindset, false)
	require.NoError(t, err)
	lapsed, err := l.Load(ctx, "lapsed", types.NamespaceMindset, false)
	require.NoError(t, err)

	assert.Equal(t, 4, lapsed.DaysSinceLastActivity)
	assert.Greater(t, lapsed.RiskScore, active.RiskScore)
	assert.Contains(t, lapsed.RiskFactors, FactorInactive)
	assert.Contains(t, lapsed.RiskFactors, FactorNoStreak)
	assert.Equal(t, types.RiskHigh, lapsed.RiskLevel)
}

func TestLoad_MissingProgressIsZero(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertProfile(ctx, &types.UserProfile{UserID: "new"}))

	uc, err := NewLoader(store, nil, nil).WithClock(fixedClock).Load(ctx, "new", types.NamespaceOnboarding, false)
	require.NoError(t, err)
	assert.Zero(t, uc.CurrentStreak)
	assert.Equal(t, -1, uc.DaysSinceLastActivity)
	assert.Contains(t, uc.Render(), "Last activity: never")
}

func TestLoad_Errors(t *testing.T) {
	store := setupStore(t)
	l := NewLoader(store, nil, nil)
	ctx := context.Background()

	_, err := l.Load(ctx, "ghost", types.NamespaceMindset, true)
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = l.Load(ctx, "  ", types.NamespaceMindset, true)
	assert.Error(t, err)

	_, err = l.Load(ctx, "u1", "finance", true)
	assert.ErrorIs(t, err, types.ErrInvalidNamespace)
}

func TestLoad_CacheAndInvalidate(t *testing.T) {
	store := setupStore(t)
	seedUser(t, store, "u1", 5, time.Hour)
	mem := cache.NewMemory(100)
	l := NewLoader(store, mem, nil).WithClock(fixedClock)
	ctx := context.Background()

	first, err := l.Load(ctx, "u1", types.NamespaceMindset, true)
	require.NoError(t, err)
	_, err = l.Load(ctx, "u1", types.NamespaceBusiness, true)
	require.NoError(t, err)
	assert.True(t, mem.Exists(ctx, CacheKey("u1", types.NamespaceMindset)))
	assert.Positive(t, mem.TTL(ctx, CacheKey("u1", types.NamespaceMindset)))

	// A write the loader does not see is hidden by the cache
	require.NoError(t, store.UpsertProgress(ctx, &types.UserProgress{UserID: "u1", CurrentStreak: 42}))
	cached, err := l.Load(ctx, "u1", types.NamespaceMindset, true)
	require.NoError(t, err)
	assert.Equal(t, first.CurrentStreak, cached.CurrentStreak)

	// Bypassing the cache sees it and refreshes the entry
	fresh, err := l.Load(ctx, "u1", types.NamespaceMindset, false)
	require.NoError(t, err)
	assert.Equal(t, 42, fresh.CurrentStreak)

	assert.Equal(t, 2, l.Invalidate(ctx, "u1"))
	assert.Equal(t, 0, l.Invalidate(ctx, "u1"))
	assert.False(t, mem.Exists(ctx, CacheKey("u1", types.NamespaceMindset)))
}

func TestInvalidate_CountsOnlyCachedEntries(t *testing.T) {
	store := setupStore(t)
	seedUser(t, store, "u1", 5, time.Hour)
	mem := cache.NewMemory(100)
	l := NewLoader(store, mem, nil).WithClock(fixedClock)
	ctx := context.Background()

	assert.Equal(t, 0, l.Invalidate(ctx, "nobody"))

	_, err := l.Load(ctx, "u1", types.NamespaceOnboarding, true)
	require.NoError(t, err)
	assert.Equal(t, 1, l.Invalidate(ctx, "u1"))

	// Without a cache nothing is ever removed
	assert.Equal(t, 0, NewLoader(store, nil, nil).Invalidate(ctx, "u1"))
}

func TestLoad_CorruptCacheEntryIsMiss(t *testing.T) {
	store := setupStore(t)
	seedUser(t, store, "u1", 5, time.Hour)
	mem := cache.NewMemory(100)
	ctx := context.Background()
	mem.Set(ctx, CacheKey("u1", types.NamespaceMindset), "{not json", time.Hour)

	uc, err := NewLoader(store, mem, nil).WithClock(fixedClock).Load(ctx, "u1", types.NamespaceMindset, true)
	require.NoError(t, err)
	assert.Equal(t, 5, uc.CurrentStreak)
}

type failingStore struct{ storage.ProfileStore }

func (failingStore) GetProfile(context.Context, string) (*types.UserProfile, error) {
	return nil, errors.New("disk on fire")
}

func TestLoad_StoreFailurePropagates(t *testing.T) {
	_, err := NewLoader(failingStore{}, nil, nil).Load(context.Background(), "u1", types.NamespaceMindset, true)
	assert.ErrorContains(t, err, "disk on fire")
}

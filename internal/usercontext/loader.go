package usercontext

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dshills/personarag/internal/cache"
	"github.com/dshills/personarag/pkg/types"
)

const (
	// CacheTTL is how long an assembled context stays cached
	CacheTTL = time.Hour

	// activityLookback bounds the activity read for signal derivation
	activityLookback = 30 * 24 * time.Hour
	activityLimit    = 100
)

// Store is the read side of the per-user records
type Store interface {
	GetProfile(ctx context.Context, userID string) (*types.UserProfile, error)
	GetProgress(ctx context.Context, userID string) (*types.UserProgress, error)
	ListRecentActivity(ctx context.Context, userID string, since time.Time, limit int) ([]*types.Activity, error)
}

// Loader assembles UserContext snapshots with a cache-aside layer
type Loader struct {
	store  Store
	cache  cache.Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewLoader creates a Loader. A nil cache disables caching.
func NewLoader(store Store, c cache.Cache, logger *slog.Logger) *Loader {
	if c == nil {
		c = cache.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		store:  store,
		cache:  c,
		logger: logger.With("component", "usercontext"),
		now:    time.Now,
	}
}

// WithClock replaces the time source used for derived signals
func (l *Loader) WithClock(now func() time.Time) *Loader {
	l.now = now
	return l
}

// CacheKey is the cache key of a user's snapshot for one namespace
func CacheKey(userID string, ns types.Namespace) string {
	return "user_context:" + userID + ":" + string(ns)
}

// Load returns the user's context for ns. With useCache a cached snapshot
// is returned when present; a freshly assembled one is always written back.
// Users without a profile get ErrNotFound.
func (l *Loader) Load(ctx context.Context, userID string, ns types.Namespace, useCache bool) (*types.UserContext, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID is required", types.ErrInvalidInput)
	}
	if !ns.Valid() {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidNamespace, ns)
	}

	key := CacheKey(userID, ns)
	if useCache {
		if raw, ok := l.cache.Get(ctx, key); ok {
			var uc types.UserContext
			if err := json.Unmarshal([]byte(raw), &uc); err == nil {
				l.logger.Debug("context cache hit", "user_id", userID, "namespace", ns)
				return &uc, nil
			}
			l.logger.Warn("discarding undecodable cached context", "key", key)
		}
	}

	uc, err := l.assemble(ctx, userID, ns)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(uc); err == nil {
		l.cache.Set(ctx, key, string(data), CacheTTL)
	}
	return uc, nil
}

// Invalidate drops the cached snapshot for every namespace and returns the
// number of entries removed
func (l *Loader) Invalidate(ctx context.Context, userID string) int {
	removed := 0
	for _, ns := range types.AllNamespaces {
		if l.cache.Delete(ctx, CacheKey(userID, ns)) {
			removed++
		}
	}
	l.logger.Debug("context invalidated", "user_id", userID, "removed", removed)
	return removed
}

func (l *Loader) assemble(ctx context.Context, userID string, ns types.Namespace) (*types.UserContext, error) {
	now := l.now().UTC()

	profile, err := l.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	progress, err := l.store.GetProgress(ctx, userID)
	if errors.Is(err, types.ErrNotFound) {
		progress = &types.UserProgress{UserID: userID}
	} else if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	activities, err := l.store.ListRecentActivity(ctx, userID, now.Add(-activityLookback), activityLimit)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}

	uc := &types.UserContext{
		UserID:             userID,
		Namespace:          ns,
		DisplayName:        profile.DisplayName,
		Population:         profile.Population,
		Temperament:        profile.Temperament,
		BusinessStage:      profile.BusinessStage,
		Patterns:           profile.Patterns,
		Goals:              profile.Goals,
		CurrentStreak:      progress.CurrentStreak,
		LongestStreak:      progress.LongestStreak,
		TotalPoints:        progress.TotalPoints,
		PracticesCompleted: progress.PracticesCompleted,
		LastActivityAt:     progress.LastActivityAt,
		GeneratedAt:        now,
	}

	// Activities are newest first; trust whichever record is more recent
	if len(activities) > 0 && activities[0].CompletedAt.After(uc.LastActivityAt) {
		uc.LastActivityAt = activities[0].CompletedAt
	}

	uc.DaysSinceLastActivity = daysSince(uc.LastActivityAt, now)
	uc.ActivitiesLast7Days = countSince(activities, now.Add(-7*24*time.Hour))
	uc.TimingPattern = classifyTiming(activities, location(profile.Timezone))
	uc.ScoreTrend = classifyTrend(activities)
	uc.RiskScore, uc.RiskFactors = assessRisk(uc)
	uc.RiskLevel = riskLevel(uc.RiskScore)

	l.logger.Debug("context assembled",
		"user_id", userID,
		"namespace", ns,
		"activities", len(activities),
		"risk_score", uc.RiskScore)

	return uc, nil
}

// location resolves an IANA zone name, falling back to UTC
func location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

package usercontext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dshills/personarag/internal/storage"
	"github.com/dshills/personarag/pkg/types"
)

// TxBeginner opens a write transaction
type TxBeginner interface {
	BeginTx(ctx context.Context) (storage.Tx, error)
}

// Recorder is the write path for completed practices. Every recorded
// activity invalidates the user's cached contexts.
type Recorder struct {
	store  TxBeginner
	loader *Loader
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder creates a Recorder that invalidates through loader
func NewRecorder(store TxBeginner, loader *Loader, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:  store,
		loader: loader,
		logger: logger.With("component", "recorder"),
		now:    time.Now,
	}
}

// WithClock replaces the default time source for activities without a
// completion time
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// RecordActivity stores the activity and rolls the user's progress
// forward in one transaction, then drops the cached contexts. Points are
// added as given; the streak advances once per calendar day (UTC).
// The caller's activity is left untouched; set its ID beforehand to know
// the stored row.
func (r *Recorder) RecordActivity(ctx context.Context, in *types.Activity, points int) (*types.UserProgress, error) {
	if in == nil || strings.TrimSpace(in.UserID) == "" {
		return nil, fmt.Errorf("%w: activity user ID is required", types.ErrInvalidInput)
	}
	activity := *in
	if activity.Namespace != "" && !activity.Namespace.Valid() {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidNamespace, activity.Namespace)
	}
	if activity.Score != nil && (*activity.Score < 1 || *activity.Score > 10) {
		return nil, fmt.Errorf("%w: score must be between 1 and 10, got %d", types.ErrInvalidInput, *activity.Score)
	}
	if activity.CompletedAt.IsZero() {
		activity.CompletedAt = r.now().UTC()
	}

	tx, err := r.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.RecordActivity(ctx, &activity); err != nil {
		return nil, fmt.Errorf("record activity: %w", err)
	}

	progress, err := tx.GetProgress(ctx, activity.UserID)
	if errors.Is(err, types.ErrNotFound) {
		progress = &types.UserProgress{UserID: activity.UserID}
	} else if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	advance(progress, activity.CompletedAt, points)

	if err := tx.UpsertProgress(ctx, progress); err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	removed := 0
	if r.loader != nil {
		removed = r.loader.Invalidate(ctx, activity.UserID)
	}
	r.logger.Info("activity recorded",
		"user_id", activity.UserID,
		"practice", activity.PracticeType,
		"streak", progress.CurrentStreak,
		"invalidated", removed)

	return progress, nil
}

// advance applies one completion to p. Out-of-order completions older than
// the last activity count toward totals but leave the streak alone.
func advance(p *types.UserProgress, at time.Time, points int) {
	p.PracticesCompleted++
	p.TotalPoints += points

	day := at.UTC().Truncate(24 * time.Hour)
	switch {
	case p.LastActivityAt.IsZero():
		p.CurrentStreak = 1
	default:
		last := p.LastActivityAt.UTC().Truncate(24 * time.Hour)
		gap := int(day.Sub(last) / (24 * time.Hour))
		switch {
		case gap < 0:
			return
		case gap == 0:
			if p.CurrentStreak == 0 {
				p.CurrentStreak = 1
			}
		case gap == 1:
			p.CurrentStreak++
		default:
			p.CurrentStreak = 1
		}
	}

	if p.CurrentStreak > p.LongestStreak {
		p.LongestStreak = p.CurrentStreak
	}
	if at.After(p.LastActivityAt) {
		p.LastActivityAt = at
	}
}

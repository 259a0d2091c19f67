package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/personarag/pkg/types"
)

// Profile operations

func (s *SQLiteStorage) GetProfile(ctx context.Context, userID string) (*types.UserProfile, error) {
	query := `
		SELECT user_id, display_name, population, temperament, business_stage,
		       patterns, goals, timezone, onboarded_at, updated_at
		FROM user_profiles WHERE user_id = ?
	`

	var (
		p               types.UserProfile
		patterns, goals string
		onboardedAt     sql.NullInt64
		updatedAt       int64
	)
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.DisplayName, &p.Population, &p.Temperament, &p.BusinessStage,
		&patterns, &goals, &p.Timezone, &onboardedAt, &updatedAt,
	)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get profile %s: %v", types.ErrStoreQuery, userID, err)
	}

	if err := json.Unmarshal([]byte(patterns), &p.Patterns); err != nil {
		return nil, fmt.Errorf("%w: decode patterns: %v", types.ErrStoreQuery, err)
	}
	if err := json.Unmarshal([]byte(goals), &p.Goals); err != nil {
		return nil, fmt.Errorf("%w: decode goals: %v", types.ErrStoreQuery, err)
	}
	p.OnboardedAt = fromNullMillis(onboardedAt)
	p.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &p, nil
}

func (s *SQLiteStorage) UpsertProfile(ctx context.Context, profile *types.UserProfile) error {
	if profile.UserID == "" {
		return errors.New("user ID is required")
	}
	lists, err := marshalLists(profile.Patterns, profile.Goals)
	if err != nil {
		return err
	}
	profile.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO user_profiles (
			user_id, display_name, population, temperament, business_stage,
			patterns, goals, timezone, onboarded_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			display_name = excluded.display_name,
			population = excluded.population,
			temperament = excluded.temperament,
			business_stage = excluded.business_stage,
			patterns = excluded.patterns,
			goals = excluded.goals,
			timezone = excluded.timezone,
			onboarded_at = excluded.onboarded_at,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		profile.UserID, profile.DisplayName, profile.Population, profile.Temperament, profile.BusinessStage,
		lists[0], lists[1], profile.Timezone, toNullMillis(profile.OnboardedAt), profile.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%w: upsert profile %s: %v", types.ErrStoreQuery, profile.UserID, err)
	}
	return nil
}

// Progress operations

func (s *SQLiteStorage) getProgressWithQuerier(ctx context.Context, q querier, userID string) (*types.UserProgress, error) {
	query := `
		SELECT user_id, current_streak, longest_streak, total_points,
		       practices_completed, last_activity_at, updated_at
		FROM user_progress WHERE user_id = ?
	`

	var (
		p            types.UserProgress
		lastActivity sql.NullInt64
		updatedAt    int64
	)
	err := q.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.CurrentStreak, &p.LongestStreak, &p.TotalPoints,
		&p.PracticesCompleted, &lastActivity, &updatedAt,
	)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get progress %s: %v", types.ErrStoreQuery, userID, err)
	}
	p.LastActivityAt = fromNullMillis(lastActivity)
	p.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &p, nil
}

func (s *SQLiteStorage) GetProgress(ctx context.Context, userID string) (*types.UserProgress, error) {
	return s.getProgressWithQuerier(ctx, s.querier(), userID)
}

func (s *SQLiteStorage) upsertProgressWithQuerier(ctx context.Context, q querier, progress *types.UserProgress) error {
	if progress.UserID == "" {
		return errors.New("user ID is required")
	}
	progress.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO user_progress (
			user_id, current_streak, longest_streak, total_points,
			practices_completed, last_activity_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			total_points = excluded.total_points,
			practices_completed = excluded.practices_completed,
			last_activity_at = excluded.last_activity_at,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		progress.UserID, progress.CurrentStreak, progress.LongestStreak, progress.TotalPoints,
		progress.PracticesCompleted, toNullMillis(progress.LastActivityAt), progress.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%w: upsert progress %s: %v", types.ErrStoreQuery, progress.UserID, err)
	}
	return nil
}

func (s *SQLiteStorage) UpsertProgress(ctx context.Context, progress *types.UserProgress) error {
	return s.upsertProgressWithQuerier(ctx, s.querier(), progress)
}

// Activity operations

func (s *SQLiteStorage) recordActivityWithQuerier(ctx context.Context, q querier, activity *types.Activity) error {
	if activity.UserID == "" {
		return errors.New("user ID is required")
	}
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.CompletedAt.IsZero() {
		activity.CompletedAt = time.Now().UTC()
	}

	var score interface{}
	if activity.Score != nil {
		score = *activity.Score
	}

	query := `
		INSERT INTO user_activities (
			id, user_id, namespace, practice_type, completed_at,
			duration_minutes, score, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		activity.ID, activity.UserID, string(activity.Namespace), activity.PracticeType,
		activity.CompletedAt.UnixMilli(), activity.DurationMinutes, score, activity.Notes,
	)
	if err != nil {
		return fmt.Errorf("%w: record activity: %v", types.ErrStoreQuery, err)
	}
	return nil
}

func (s *SQLiteStorage) RecordActivity(ctx context.Context, activity *types.Activity) error {
	return s.recordActivityWithQuerier(ctx, s.querier(), activity)
}

func (s *SQLiteStorage) ListRecentActivity(ctx context.Context, userID string, since time.Time, limit int) ([]*types.Activity, error) {
	if limit <= 0 {
		return []*types.Activity{}, nil
	}

	query := `
		SELECT id, user_id, namespace, practice_type, completed_at,
		       duration_minutes, score, notes
		FROM user_activities
		WHERE user_id = ? AND completed_at >= ?
		ORDER BY completed_at DESC, id
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, userID, since.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list activity: %v", types.ErrStoreQuery, err)
	}
	defer func() { _ = rows.Close() }()

	activities := make([]*types.Activity, 0, limit)
	for rows.Next() {
		var (
			a           types.Activity
			ns          string
			completedAt int64
			score       sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.UserID, &ns, &a.PracticeType, &completedAt,
			&a.DurationMinutes, &score, &a.Notes); err != nil {
			return nil, fmt.Errorf("%w: scan activity: %v", types.ErrStoreQuery, err)
		}
		a.Namespace = types.Namespace(ns)
		a.CompletedAt = time.UnixMilli(completedAt).UTC()
		if score.Valid {
			v := int(score.Int64)
			a.Score = &v
		}
		activities = append(activities, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStoreQuery, err)
	}
	return activities, nil
}

func toNullMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullMillis(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64).UTC()
}

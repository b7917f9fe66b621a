package storage

import (
	"context"
	"fmt"
	"time"
)

// HistoryStats holds aggregate statistics over all stored sessions.
type HistoryStats struct {
	TotalSessions int64      `json:"total_sessions"`
	TotalMinutes  int64      `json:"total_minutes"`
	TotalReps     int64      `json:"total_reps"`
	AvgHeartRate  *float64   `json:"avg_heart_rate"`
	FirstSession  *time.Time `json:"first_session"`
	LatestSession *time.Time `json:"latest_session"`
}

// GetStats returns aggregate statistics over the session history.
func (db *DB) GetStats(ctx context.Context) (*HistoryStats, error) {
	stats := &HistoryStats{}
	var first, latest *int64
	err := db.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(duration_minutes), 0),
		        COALESCE(SUM(left_vertical_reps + left_horizontal_reps + right_vertical_reps + right_horizontal_reps), 0),
		        AVG(avg_heart_rate),
		        MIN(started_at_ms),
		        MAX(started_at_ms)
		 FROM sessions`,
	).Scan(&stats.TotalSessions, &stats.TotalMinutes, &stats.TotalReps, &stats.AvgHeartRate, &first, &latest)
	if err != nil {
		return nil, fmt.Errorf("aggregating sessions: %w", err)
	}

	if first != nil {
		t := time.UnixMilli(*first).UTC()
		stats.FirstSession = &t
	}
	if latest != nil {
		t := time.UnixMilli(*latest).UTC()
		stats.LatestSession = &t
	}
	return stats, nil
}

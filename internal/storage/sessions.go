package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lifesuit/companion/internal/models"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session not found")

const sessionColumns = `id, date, started_at_ms, ended_at_ms, duration_minutes,
	left_vertical_reps, left_horizontal_reps, right_vertical_reps, right_horizontal_reps,
	avg_heart_rate, avg_spo2, avg_temperature, recording_ref`

// InsertSession stores a finished session record.
func (db *DB) InsertSession(ctx context.Context, rec models.SessionRecord) error {
	_, err := db.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.Date, rec.StartedAt.UnixMilli(), rec.EndedAt.UnixMilli(), rec.DurationMinutes,
		rec.VerticalReps.Left, rec.HorizontalReps.Left, rec.VerticalReps.Right, rec.HorizontalReps.Right,
		rec.AvgHeartRate, rec.AvgSpO2, rec.AvgTemperature, rec.RecordingRef)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// QuerySessions retrieves sessions started in [start, end), newest first.
func (db *DB) QuerySessions(ctx context.Context, start, end time.Time) ([]models.SessionRecord, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE started_at_ms >= ? AND started_at_ms < ?
		 ORDER BY started_at_ms DESC`,
		start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	return scanSessionRows(rows)
}

// RecentSessions returns the newest limit sessions.
func (db *DB) RecentSessions(ctx context.Context, limit int) ([]models.SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.db.QueryContext(ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 ORDER BY started_at_ms DESC
		 LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent sessions: %w", err)
	}
	defer rows.Close()

	return scanSessionRows(rows)
}

// GetSession retrieves a single session by ID.
func (db *DB) GetSession(ctx context.Context, id uuid.UUID) (*models.SessionRecord, error) {
	row := db.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)

	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return &rec, nil
}

func scanSession(row interface{ Scan(dest ...any) error }) (models.SessionRecord, error) {
	var r models.SessionRecord
	var startedMs, endedMs int64
	err := row.Scan(&r.ID, &r.Date, &startedMs, &endedMs, &r.DurationMinutes,
		&r.VerticalReps.Left, &r.HorizontalReps.Left, &r.VerticalReps.Right, &r.HorizontalReps.Right,
		&r.AvgHeartRate, &r.AvgSpO2, &r.AvgTemperature, &r.RecordingRef)
	if err != nil {
		return r, err
	}
	r.StartedAt = time.UnixMilli(startedMs).UTC()
	r.EndedAt = time.UnixMilli(endedMs).UTC()
	r.TotalReps = models.RepTotals{
		Left:  r.VerticalReps.Left + r.HorizontalReps.Left,
		Right: r.VerticalReps.Right + r.HorizontalReps.Right,
	}
	return r, nil
}

func scanSessionRows(rows *sql.Rows) ([]models.SessionRecord, error) {
	var result []models.SessionRecord
	for rows.Next() {
		r, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// RepTotals holds a rep count per limb.
type RepTotals struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// SessionRecord summarizes one finished session. It is immutable once created.
type SessionRecord struct {
	ID              uuid.UUID `json:"id"`
	Date            string    `json:"date"` // YYYY-MM-DD of the session end
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationMinutes int       `json:"duration_minutes"`
	TotalReps       RepTotals `json:"total_reps"`
	VerticalReps    RepTotals `json:"vertical_reps"`
	HorizontalReps  RepTotals `json:"horizontal_reps"`
	AvgHeartRate    float64   `json:"avg_heart_rate"`
	AvgSpO2         float64   `json:"avg_spo2"`
	AvgTemperature  float64   `json:"avg_temperature"`
	RecordingRef    string    `json:"recording_ref,omitempty"`
}

// Reps returns the combined rep count of both limbs.
func (r SessionRecord) Reps() int {
	return r.TotalReps.Left + r.TotalReps.Right
}

// Achievement is a milestone badge.
type Achievement struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

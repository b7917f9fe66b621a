// Package coach turns finished session records into short motivational
// feedback using a text generation model.
package coach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lifesuit/companion/internal/achievements"
	"github.com/lifesuit/companion/internal/models"
)

// Status is the coach's request state.
type Status string

const (
	Idle    Status = "idle"
	Loading Status = "loading"
	Ready   Status = "ready"
	Failed  Status = "failed"
)

// Messages shown to the patient.
const (
	NoSessionMessage = "Complete a session to get your first personalized feedback from the AI Coach!"
	RestingMessage   = "AI Coach is currently resting. Please try again after your next session."
	fallbackFeedback = "I've analyzed your data! Keep pushing forward for a great recovery."
)

// ErrDisabled is returned when no generator is configured.
var ErrDisabled = errors.New("coach is disabled: no API key configured")

// ErrBusy is returned while another feedback request is in flight.
var ErrBusy = errors.New("coach is already generating feedback")

const systemPrompt = "You are a professional, encouraging AI rehabilitation coach."

// Generator produces text from a system and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Unlocker records achievement unlocks. *achievements.Tracker satisfies it.
type Unlocker interface {
	Unlock(id string, at time.Time) (models.Achievement, bool)
}

// State is the coach's externally visible state.
type State struct {
	Status    Status     `json:"status"`
	Enabled   bool       `json:"enabled"`
	SessionID *uuid.UUID `json:"session_id,omitempty"`
	Feedback  string     `json:"feedback,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Coach generates feedback for sessions. Its state is independent of the
// device; failures never reach the simulation.
type Coach struct {
	gen      Generator
	unlocker Unlocker
	now      func() time.Time
	logger   *slog.Logger

	mu    sync.Mutex
	state State
}

// New creates a coach. A nil gen disables it.
func New(gen Generator, unlocker Unlocker, logger *slog.Logger) *Coach {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coach{
		gen:      gen,
		unlocker: unlocker,
		now:      time.Now,
		logger:   logger,
		state:    State{Status: Idle, Enabled: gen != nil},
	}
}

// State returns the current coach state.
func (c *Coach) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	if s.Status == Idle && s.Feedback == "" {
		s.Feedback = NoSessionMessage
	}
	return s
}

// Feedback asks the generator for 2-3 sentences about rec.
func (c *Coach) Feedback(ctx context.Context, rec models.SessionRecord) (string, error) {
	if c.gen == nil {
		return "", ErrDisabled
	}

	c.mu.Lock()
	if c.state.Status == Loading {
		c.mu.Unlock()
		return "", ErrBusy
	}
	id := rec.ID
	c.state = State{Status: Loading, Enabled: true, SessionID: &id}
	c.mu.Unlock()

	text, err := c.gen.Generate(ctx, systemPrompt, Prompt(rec))

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.logger.Error("generating coach feedback", "session", rec.ID, "error", err)
		c.state.Status = Failed
		c.state.Error = RestingMessage
		return "", fmt.Errorf("generating feedback: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		text = fallbackFeedback
	}
	c.state.Status = Ready
	c.state.Feedback = text
	if c.unlocker != nil {
		if _, ok := c.unlocker.Unlock(achievements.FirstFeedback, c.now()); ok {
			c.logger.Info("achievement unlocked", "id", achievements.FirstFeedback)
		}
	}
	return text, nil
}

// Prompt renders the session summary sent to the model.
func Prompt(rec models.SessionRecord) string {
	var b strings.Builder
	b.WriteString("Analyze this data from a 'LifeSuit' smart exoskeleton session:\n\n")
	b.WriteString("Session Summary:\n")
	fmt.Fprintf(&b, "- Duration: %d min\n", rec.DurationMinutes)
	fmt.Fprintf(&b, "- Reps: %d (Left), %d (Right)\n", rec.TotalReps.Left, rec.TotalReps.Right)
	fmt.Fprintf(&b, "- Heart Rate: %.0f bpm\n", rec.AvgHeartRate)
	fmt.Fprintf(&b, "- SpO2: %.0f%%\n\n", rec.AvgSpO2)
	b.WriteString("Provide 2-3 sentences of motivating insight and one specific goal for next time. Speak directly to the patient.")
	return b.String()
}

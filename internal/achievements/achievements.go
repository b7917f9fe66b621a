// Package achievements tracks milestone badges unlocked by finished sessions
// and coach usage.
package achievements

import (
	"sync"
	"time"

	"github.com/lifesuit/companion/internal/models"
)

// Achievement IDs.
const (
	FirstSession   = "first-session"
	TenReps        = "ten-reps"
	FiftyReps      = "fifty-reps"
	FiveMinutes    = "five-minutes"
	FifteenMinutes = "fifteen-minutes"
	FirstFeedback  = "first-feedback"
)

// Catalog returns every achievement, all locked.
func Catalog() []models.Achievement {
	return []models.Achievement{
		{ID: FirstSession, Title: "First Step", Description: "Complete your very first session."},
		{ID: TenReps, Title: "Rep Rookie", Description: "Complete 10 total repetitions in a session."},
		{ID: FiftyReps, Title: "Rep Rockstar", Description: "Complete 50 total repetitions in a session."},
		{ID: FiveMinutes, Title: "Endurance Starter", Description: "Complete a session lasting 5 minutes."},
		{ID: FifteenMinutes, Title: "Marathoner", Description: "Complete a session lasting 15 minutes."},
		{ID: FirstFeedback, Title: "Coachable", Description: "Get your first feedback from the AI Coach."},
	}
}

// Tracker holds the unlock state of the catalog. Safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	items []models.Achievement
}

// NewTracker returns a tracker with everything locked.
func NewTracker() *Tracker {
	return &Tracker{items: Catalog()}
}

// List returns a copy of all achievements in catalog order.
func (t *Tracker) List() []models.Achievement {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.Achievement, len(t.items))
	copy(out, t.items)
	return out
}

// Unlock marks id unlocked at the given time. It returns the achievement and
// true only on the first unlock.
func (t *Tracker) Unlock(id string, at time.Time) (models.Achievement, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unlock(id, at)
}

func (t *Tracker) unlock(id string, at time.Time) (models.Achievement, bool) {
	for i := range t.items {
		a := &t.items[i]
		if a.ID != id {
			continue
		}
		if a.Unlocked {
			return *a, false
		}
		a.Unlocked = true
		a.UnlockedAt = &at
		return *a, true
	}
	return models.Achievement{}, false
}

// EvaluateSession unlocks everything rec qualifies for and returns the newly
// unlocked achievements.
func (t *Tracker) EvaluateSession(rec models.SessionRecord) []models.Achievement {
	earned := []string{FirstSession}
	if rec.Reps() >= 10 {
		earned = append(earned, TenReps)
	}
	if rec.Reps() >= 50 {
		earned = append(earned, FiftyReps)
	}
	if rec.DurationMinutes >= 5 {
		earned = append(earned, FiveMinutes)
	}
	if rec.DurationMinutes >= 15 {
		earned = append(earned, FifteenMinutes)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	var unlocked []models.Achievement
	for _, id := range earned {
		if a, ok := t.unlock(id, rec.EndedAt); ok {
			unlocked = append(unlocked, a)
		}
	}
	return unlocked
}

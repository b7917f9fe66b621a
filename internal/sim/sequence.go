package sim

import (
	"fmt"
	"time"
)

// Phase durations of the timed-rehab program.
const (
	ActiveDuration   = 10 * time.Second
	CooldownDuration = 5 * time.Second
)

// TimeOfDay is a wall-clock time of day with minute resolution, stored as
// minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses an "HH:mm" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q (want HH:mm)", s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// MustTimeOfDay is ParseTimeOfDay for constants. It panics on bad input.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// TimeOfDayOf truncates t to its time of day in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalText implements encoding.TextMarshaler.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Step is one direction of the sequence program.
type Step string

const (
	StepUp    Step = "up"
	StepDown  Step = "down"
	StepLeft  Step = "left"
	StepRight Step = "right"
)

var stepOrder = []Step{StepUp, StepDown, StepLeft, StepRight}

// Next returns the following step in the fixed cycle up, down, left, right.
func (s Step) Next() Step {
	for i, st := range stepOrder {
		if st == s {
			return stepOrder[(i+1)%len(stepOrder)]
		}
	}
	return StepUp
}

// commands returns the modes the left limb is driven with during the active
// phase of this step. The right limb mirrors them.
func (s Step) commands() (VerticalMode, HorizontalMode) {
	switch s {
	case StepUp:
		return VerticalForward, HorizontalOff
	case StepDown:
		return VerticalReverse, HorizontalOff
	case StepLeft:
		return VerticalOff, HorizontalLeft
	case StepRight:
		return VerticalOff, HorizontalRight
	}
	return VerticalOff, HorizontalOff
}

// Program is the timed-rehab sequence program.
//
// Running is true while the program owns the limbs: enabled and inside
// [WindowStart, WindowEnd) as of the last tick.
type Program struct {
	Enabled        bool      `json:"enabled"`
	WindowStart    TimeOfDay `json:"window_start"`
	WindowEnd      TimeOfDay `json:"window_end"`
	Running        bool      `json:"running"`
	CurrentStep    Step      `json:"current_step"`
	CoolingDown    bool      `json:"cooling_down"`
	PhaseStartedAt time.Time `json:"phase_started_at"`
	PhaseProgress  float64   `json:"phase_progress"`
}

// NewProgram returns a program at its first step.
func NewProgram(start, end TimeOfDay, enabled bool) Program {
	return Program{
		Enabled:     enabled,
		WindowStart: start,
		WindowEnd:   end,
		CurrentStep: StepUp,
	}
}

// InWindow reports whether now falls inside [WindowStart, WindowEnd).
func (p Program) InWindow(now time.Time) bool {
	tod := TimeOfDayOf(now)
	return tod >= p.WindowStart && tod < p.WindowEnd
}

// Owns reports whether the program controls the limbs at now.
func (p Program) Owns(now time.Time) bool {
	return p.Enabled && p.InWindow(now)
}

// Configure updates the window and the enabled flag. The window only changes
// while the program is disabled.
func (p Program) Configure(start, end TimeOfDay, enabled bool) Program {
	if !p.Enabled {
		p.WindowStart = start
		p.WindowEnd = end
	}
	if !enabled {
		p.Running = false
	}
	p.Enabled = enabled
	return p
}

// Reset returns the program to its first step, keeping the configuration.
func (p Program) Reset() Program {
	return NewProgram(p.WindowStart, p.WindowEnd, p.Enabled)
}

func (p Program) duration() time.Duration {
	if p.CoolingDown {
		return CooldownDuration
	}
	return ActiveDuration
}

// advance moves the program forward to now.
func (p Program) advance(now time.Time) (Program, []Event) {
	if !p.Enabled {
		return p.idle(), nil
	}

	tod := TimeOfDayOf(now)
	if tod >= p.WindowEnd {
		p.Enabled = false
		return p.idle(), []Event{{Kind: EventProgramExpired, Step: p.CurrentStep}}
	}
	if tod < p.WindowStart {
		return p.idle(), nil
	}

	var events []Event
	if !p.Running {
		p.Running = true
		p.CoolingDown = false
		p.PhaseStartedAt = now
		events = append(events, Event{Kind: EventProgramStarted, Step: p.CurrentStep})
	}

	elapsed := now.Sub(p.PhaseStartedAt)
	if elapsed >= p.duration() {
		if p.CoolingDown {
			p.CoolingDown = false
			p.CurrentStep = p.CurrentStep.Next()
		} else {
			p.CoolingDown = true
		}
		p.PhaseStartedAt = now
		elapsed = 0
		events = append(events, Event{Kind: EventPhaseChanged, Step: p.CurrentStep, CoolingDown: p.CoolingDown})
	}

	p.PhaseProgress = min(1, float64(elapsed)/float64(p.duration()))
	return p, events
}

// idle marks the program as not running, with no phase in progress.
func (p Program) idle() Program {
	p.Running = false
	p.CoolingDown = false
	p.PhaseProgress = 0
	return p
}

// drive writes the commanded modes of the current phase into both limbs.
func (p Program) drive(limbs Limbs) Limbs {
	v, h := VerticalOff, HorizontalOff
	if !p.CoolingDown {
		v, h = p.CurrentStep.commands()
	}
	limbs.Left.VerticalMode, limbs.Left.HorizontalMode = v, h
	limbs.Right.VerticalMode, limbs.Right.HorizontalMode = limbs.Left.VerticalMode, limbs.Left.HorizontalMode
	return limbs
}

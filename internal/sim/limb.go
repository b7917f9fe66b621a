// Package sim implements the LifeSuit motion simulation: limb kinematics,
// repetition counting, the timed-rehab sequence program and synthetic vitals.
//
// Everything here is deterministic given a clock reading and a random source.
// Advance and Apply take the current state by value and return the next one.
package sim

import "fmt"

// MaxAngle is the upper bound in degrees for both joint axes.
const MaxAngle = 110.0

// DefaultSpeed is the per-tick angle step in degrees.
const DefaultSpeed = 0.4

// Rep detection thresholds. The asymmetry keeps tick-level jitter near the
// limits from counting as a rep.
const (
	repUpperThreshold = MaxAngle * 0.95
	repLowerThreshold = 5.0
)

// horizontalRest is the horizontal angle of a freshly started limb.
const horizontalRest = 55.0

// Side identifies one of the two actuated arms.
type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

// ParseSide validates a side name.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case Left, Right:
		return Side(s), nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// VerticalMode is the commanded vertical actuation.
type VerticalMode string

const (
	VerticalOff     VerticalMode = "off"
	VerticalForward VerticalMode = "forward"
	VerticalReverse VerticalMode = "reverse"
)

// ParseVerticalMode validates a vertical mode name.
func ParseVerticalMode(s string) (VerticalMode, error) {
	switch VerticalMode(s) {
	case VerticalOff, VerticalForward, VerticalReverse:
		return VerticalMode(s), nil
	}
	return "", fmt.Errorf("unknown vertical mode %q", s)
}

// HorizontalMode is the commanded horizontal actuation.
type HorizontalMode string

const (
	HorizontalOff   HorizontalMode = "off"
	HorizontalLeft  HorizontalMode = "left"
	HorizontalRight HorizontalMode = "right"
)

// ParseHorizontalMode validates a horizontal mode name.
func ParseHorizontalMode(s string) (HorizontalMode, error) {
	switch HorizontalMode(s) {
	case HorizontalOff, HorizontalLeft, HorizontalRight:
		return HorizontalMode(s), nil
	}
	return "", fmt.Errorf("unknown horizontal mode %q", s)
}

// RepPhase is the vertical rep cycle phase.
type RepPhase string

const (
	Extending RepPhase = "extending"
	Flexing   RepPhase = "flexing"
)

// HRepPhase is the horizontal rep cycle phase.
type HRepPhase string

const (
	MovingLeft  HRepPhase = "moving-left"
	MovingRight HRepPhase = "moving-right"
)

// Axis names a joint axis. Used in rep events.
type Axis string

const (
	Vertical   Axis = "vertical"
	Horizontal Axis = "horizontal"
)

// LimbState is the full state of one limb.
type LimbState struct {
	VerticalMode    VerticalMode   `json:"vertical_mode"`
	HorizontalMode  HorizontalMode `json:"horizontal_mode"`
	VerticalAngle   float64        `json:"vertical_angle"`
	HorizontalAngle float64        `json:"horizontal_angle"`
	VerticalReps    int            `json:"vertical_reps"`
	HorizontalReps  int            `json:"horizontal_reps"`
	RepPhase        RepPhase       `json:"rep_phase"`
	HRepPhase       HRepPhase      `json:"h_rep_phase"`
}

// NewLimb returns a limb at rest: vertical angle 0, horizontal angle at the
// midpoint, all modes off.
func NewLimb() LimbState {
	return LimbState{
		VerticalMode:    VerticalOff,
		HorizontalMode:  HorizontalOff,
		HorizontalAngle: horizontalRest,
		RepPhase:        Extending,
		HRepPhase:       MovingLeft,
	}
}

// TotalReps is the combined vertical and horizontal rep count.
func (l LimbState) TotalReps() int {
	return l.VerticalReps + l.HorizontalReps
}

// Active reports whether either axis has a non-off mode.
func (l LimbState) Active() bool {
	return l.VerticalMode != VerticalOff || l.HorizontalMode != HorizontalOff
}

// Limbs holds both limbs.
type Limbs struct {
	Left  LimbState `json:"left"`
	Right LimbState `json:"right"`
}

// NewLimbs returns both limbs at rest.
func NewLimbs() Limbs {
	return Limbs{Left: NewLimb(), Right: NewLimb()}
}

// Get returns the limb for a side.
func (l *Limbs) Get(side Side) *LimbState {
	if side == Right {
		return &l.Right
	}
	return &l.Left
}

// Active reports whether any limb has a non-off mode.
func (l Limbs) Active() bool {
	return l.Left.Active() || l.Right.Active()
}

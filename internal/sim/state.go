package sim

import "time"

// State is the complete simulation state of one session.
type State struct {
	Limbs     Limbs     `json:"limbs"`
	Program   Program   `json:"program"`
	Telemetry Telemetry `json:"telemetry"`
}

// NewState returns a fresh session state using program's configuration.
func NewState(program Program) State {
	return State{
		Limbs:   NewLimbs(),
		Program: program.Reset(),
	}
}

// Env carries the tick parameters that are not part of the state.
type Env struct {
	// Speed is the per-tick angle step in degrees. Zero means DefaultSpeed.
	Speed float64
	Rand  Rand
}

// EventKind classifies what happened during a tick.
type EventKind string

const (
	EventRep            EventKind = "rep"
	EventSample         EventKind = "sample"
	EventPhaseChanged   EventKind = "phase_changed"
	EventProgramStarted EventKind = "program_started"
	EventProgramExpired EventKind = "program_expired"
)

// Event is a notable state transition produced by Advance.
type Event struct {
	Kind        EventKind
	Side        Side
	Axis        Axis
	Step        Step
	CoolingDown bool
	Sample      Sample
}

// Advance moves s forward by one tick at now: the program decides the modes,
// the kinematics integrate the angles, the rep detector inspects them and,
// when due, a vitals sample is appended.
func Advance(s State, now time.Time, env Env) (State, []Event) {
	speed := env.Speed
	if speed == 0 {
		speed = DefaultSpeed
	}

	var events []Event
	s.Program, events = s.Program.advance(now)

	if s.Program.Running {
		s.Limbs = s.Program.drive(s.Limbs)
	}

	for _, side := range []Side{Left, Right} {
		limb := s.Limbs.Get(side)
		next := integrate(*limb, speed, s.Program.Running)
		next, done := detectReps(next)
		*limb = next
		for _, axis := range done {
			events = append(events, Event{Kind: EventRep, Side: side, Axis: axis})
		}
	}

	if env.Rand != nil && s.Telemetry.due(now) {
		sample := synthesize(now, s.Limbs.Active(), env.Rand)
		s.Telemetry = s.Telemetry.Push(sample)
		events = append(events, Event{Kind: EventSample, Sample: sample})
	}

	return s, events
}

// Command is a request to change the state outside of a tick.
type Command interface {
	apply(s State, now time.Time) (State, bool)
}

// Apply executes cmd against s and reports whether it took effect. Commands
// that conflict with the current state are rejected without error.
func Apply(s State, cmd Command, now time.Time) (State, bool) {
	return cmd.apply(s, now)
}

// SetVertical sets a limb's vertical mode. Requesting the current mode again
// turns the axis off.
type SetVertical struct {
	Side Side
	Mode VerticalMode
}

func (c SetVertical) apply(s State, now time.Time) (State, bool) {
	if s.Program.Owns(now) {
		return s, false
	}
	limb := s.Limbs.Get(c.Side)
	if limb.VerticalMode == c.Mode {
		limb.VerticalMode = VerticalOff
	} else {
		limb.VerticalMode = c.Mode
	}
	return s, true
}

// SetHorizontal sets a limb's horizontal mode. Requesting the current mode
// again turns the axis off.
type SetHorizontal struct {
	Side Side
	Mode HorizontalMode
}

func (c SetHorizontal) apply(s State, now time.Time) (State, bool) {
	if s.Program.Owns(now) {
		return s, false
	}
	limb := s.Limbs.Get(c.Side)
	if limb.HorizontalMode == c.Mode {
		limb.HorizontalMode = HorizontalOff
	} else {
		limb.HorizontalMode = c.Mode
	}
	return s, true
}

// ConfigureProgram updates the sequence program. See Program.Configure.
type ConfigureProgram struct {
	Start   TimeOfDay
	End     TimeOfDay
	Enabled bool
}

func (c ConfigureProgram) apply(s State, _ time.Time) (State, bool) {
	s.Program = s.Program.Configure(c.Start, c.End, c.Enabled)
	return s, true
}

package sim

// detectReps advances the rep cycle phases of a limb from its updated angles
// and reports which axes completed a rep on this tick. Modes are ignored.
func detectReps(l LimbState) (LimbState, []Axis) {
	var done []Axis

	switch {
	case l.RepPhase == Extending && l.VerticalAngle >= repUpperThreshold:
		l.RepPhase = Flexing
	case l.RepPhase == Flexing && l.VerticalAngle <= repLowerThreshold:
		l.RepPhase = Extending
		l.VerticalReps++
		done = append(done, Vertical)
	}

	switch {
	case l.HRepPhase == MovingLeft && l.HorizontalAngle <= repLowerThreshold:
		l.HRepPhase = MovingRight
	case l.HRepPhase == MovingRight && l.HorizontalAngle >= repUpperThreshold:
		l.HRepPhase = MovingLeft
		l.HorizontalReps++
		done = append(done, Horizontal)
	}

	return l, done
}

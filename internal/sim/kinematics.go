package sim

// integrate advances both axes of a limb by one tick of size speed and clamps
// the result to [0, MaxAngle]. Outside program control a mode is cleared once
// its angle sits on a boundary, like a limit switch.
func integrate(l LimbState, speed float64, programControl bool) LimbState {
	switch {
	case l.VerticalMode == VerticalForward && l.VerticalAngle < MaxAngle:
		l.VerticalAngle += speed
	case l.VerticalMode == VerticalReverse && l.VerticalAngle > 0:
		l.VerticalAngle -= speed
	}

	switch {
	case l.HorizontalMode == HorizontalLeft && l.HorizontalAngle > 0:
		l.HorizontalAngle -= speed
	case l.HorizontalMode == HorizontalRight && l.HorizontalAngle < MaxAngle:
		l.HorizontalAngle += speed
	}

	l.VerticalAngle = clamp(l.VerticalAngle)
	l.HorizontalAngle = clamp(l.HorizontalAngle)

	if !programControl {
		if l.VerticalMode != VerticalOff && atBoundary(l.VerticalAngle) {
			l.VerticalMode = VerticalOff
		}
		if l.HorizontalMode != HorizontalOff && atBoundary(l.HorizontalAngle) {
			l.HorizontalMode = HorizontalOff
		}
	}
	return l
}

func clamp(angle float64) float64 {
	return max(0, min(MaxAngle, angle))
}

func atBoundary(angle float64) bool {
	return angle <= 0 || angle >= MaxAngle
}

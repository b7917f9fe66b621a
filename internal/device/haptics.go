package device

import (
	"context"
	"log/slog"
	"time"
)

// RepPattern is the vibration played on every completed repetition:
// on, off, on.
var RepPattern = []time.Duration{100 * time.Millisecond, 50 * time.Millisecond, 100 * time.Millisecond}

// Haptics plays vibration patterns on the wearer's device.
type Haptics interface {
	Vibrate(ctx context.Context, pattern []time.Duration) error
}

// LogHaptics is a Haptics that only logs. It stands in when no vibration
// hardware is attached.
type LogHaptics struct {
	Logger *slog.Logger
}

// Vibrate logs the pattern at debug level.
func (h LogHaptics) Vibrate(ctx context.Context, pattern []time.Duration) error {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.DebugContext(ctx, "haptic pulse", "pattern", pattern)
	return nil
}

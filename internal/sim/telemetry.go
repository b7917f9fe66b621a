package sim

import "time"

const (
	// SampleInterval is the minimum spacing between telemetry samples.
	SampleInterval = time.Second
	// HistoryLimit is the number of samples retained.
	HistoryLimit = 60
)

// Sample is one synthetic vitals reading.
type Sample struct {
	Time        time.Time `json:"time"`
	HeartRate   float64   `json:"heart_rate"`
	SpO2        float64   `json:"spo2"`
	Temperature float64   `json:"temperature"`
}

// Rand is the random source for vitals. *rand.Rand from math/rand/v2
// satisfies it.
type Rand interface {
	Float64() float64
}

// Telemetry is the rolling vitals history of a session.
type Telemetry struct {
	Samples  []Sample  `json:"samples"`
	LastEmit time.Time `json:"last_emit"`
}

// Latest returns the newest sample, if any.
func (t Telemetry) Latest() (Sample, bool) {
	if len(t.Samples) == 0 {
		return Sample{}, false
	}
	return t.Samples[len(t.Samples)-1], true
}

// due reports whether a sample may be emitted at now. A sample is never
// emitted less than SampleInterval after the previous one.
func (t Telemetry) due(now time.Time) bool {
	return t.LastEmit.IsZero() || now.Sub(t.LastEmit) >= SampleInterval
}

// Push appends s, dropping the oldest samples beyond HistoryLimit.
// The receiver's backing array is never written.
func (t Telemetry) Push(s Sample) Telemetry {
	n := len(t.Samples)
	from := max(0, n-(HistoryLimit-1))
	t.Samples = append(t.Samples[from:n:n], s)
	t.LastEmit = s.Time
	return t
}

// Averages returns the mean heart rate, SpO2 and temperature of the retained
// samples, or zeros when there are none.
func (t Telemetry) Averages() (heartRate, spo2, temperature float64) {
	if len(t.Samples) == 0 {
		return 0, 0, 0
	}
	for _, s := range t.Samples {
		heartRate += s.HeartRate
		spo2 += s.SpO2
		temperature += s.Temperature
	}
	n := float64(len(t.Samples))
	return heartRate / n, spo2 / n, temperature / n
}

func synthesize(now time.Time, active bool, r Rand) Sample {
	hr := 80 + r.Float64()*10
	if active {
		hr += 10
	}
	return Sample{
		Time:        now,
		HeartRate:   hr,
		SpO2:        98 + r.Float64()*2,
		Temperature: 36.5 + r.Float64()*0.5,
	}
}

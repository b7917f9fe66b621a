// Package device owns the simulated LifeSuit: its connection status, the
// session lifecycle and the single authoritative simulation state.
//
// All commands and ticks are serialized by one mutex, so a command always
// lands between two ticks.
package device

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lifesuit/companion/internal/models"
	"github.com/lifesuit/companion/internal/sim"
)

// ConnectionStatus is the link state of the mock hardware.
type ConnectionStatus string

const (
	Disconnected ConnectionStatus = "disconnected"
	Connecting   ConnectionStatus = "connecting"
	Connected    ConnectionStatus = "connected"
	// Failed is reserved for real transports; the mock never enters it.
	Failed ConnectionStatus = "error"
)

// ConnectDelay is how long the mock takes to connect.
const ConnectDelay = 500 * time.Millisecond

// DefaultTickInterval is the frame interval of Run, about 60 Hz.
const DefaultTickInterval = 16 * time.Millisecond

// Store receives finished session records.
type Store interface {
	InsertSession(ctx context.Context, rec models.SessionRecord) error
}

// AchievementEvaluator unlocks achievements for finished sessions.
type AchievementEvaluator interface {
	EvaluateSession(rec models.SessionRecord) []models.Achievement
}

// Config holds the device's collaborators and tuning. Zero fields get
// defaults.
type Config struct {
	Speed        float64
	Schedule     sim.Program
	Clock        sim.Clock
	Rand         sim.Rand
	Haptics      Haptics
	Store        Store
	Achievements AchievementEvaluator
	Logger       *slog.Logger
}

// Device is the simulated exoskeleton. Safe for concurrent use.
type Device struct {
	clock        sim.Clock
	env          sim.Env
	haptics      Haptics
	store        Store
	achievements AchievementEvaluator
	logger       *slog.Logger

	mu              sync.Mutex
	status          ConnectionStatus
	connectingSince time.Time
	sessionActive   bool
	sessionStarted  time.Time
	recordingRef    string
	state           sim.State
	lastRecord      *models.SessionRecord
}

// New creates a disconnected device.
func New(cfg Config) *Device {
	d := &Device{
		clock:        cfg.Clock,
		env:          sim.Env{Speed: cfg.Speed, Rand: cfg.Rand},
		haptics:      cfg.Haptics,
		store:        cfg.Store,
		achievements: cfg.Achievements,
		logger:       cfg.Logger,
		status:       Disconnected,
		state:        sim.NewState(cfg.Schedule),
	}
	if d.clock == nil {
		d.clock = sim.SystemClock{}
	}
	if d.env.Rand == nil {
		d.env.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.haptics == nil {
		d.haptics = LogHaptics{Logger: d.logger}
	}
	return d
}

// resolve completes a pending connection once ConnectDelay has passed.
// Must be called with d.mu held.
func (d *Device) resolve(now time.Time) {
	if d.status == Connecting && now.Sub(d.connectingSince) >= ConnectDelay {
		d.status = Connected
		d.logger.Info("device connected")
	}
}

// Status returns the current connection status.
func (d *Device) Status() ConnectionStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resolve(d.clock.Now())
	return d.status
}

// Connect starts connecting. It is applied only from the disconnected or
// error state.
func (d *Device) Connect() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.clock.Now()
	d.resolve(now)
	if d.status != Disconnected && d.status != Failed {
		return false
	}
	d.status = Connecting
	d.connectingSince = now
	d.logger.Info("device connecting")
	return true
}

// Disconnect ends any active session and drops the connection in one step.
// The finished session, if any, is returned like EndSession returns it.
func (d *Device) Disconnect(ctx context.Context) (*models.SessionRecord, error) {
	d.mu.Lock()
	rec := d.finish()
	d.status = Disconnected
	d.mu.Unlock()

	d.logger.Info("device disconnected")
	if rec == nil {
		return nil, nil
	}
	return rec, d.persist(ctx, *rec)
}

// StartSession begins a session with fresh limbs, program runtime and
// telemetry. It requires a connection and no active session.
func (d *Device) StartSession() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.clock.Now()
	d.resolve(now)
	if d.status != Connected || d.sessionActive {
		return false
	}
	d.state = sim.NewState(d.state.Program)
	d.sessionActive = true
	d.sessionStarted = now
	d.recordingRef = ""
	d.logger.Info("session started")
	return true
}

// SetRecordingRef attaches a recording reference to the active session.
func (d *Device) SetRecordingRef(ref string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.sessionActive {
		return false
	}
	d.recordingRef = ref
	return true
}

// EndSession finalizes the active session into a record, stores it and
// evaluates achievements. Without an active session it returns nil and no
// error. The record is returned even when storing it fails.
func (d *Device) EndSession(ctx context.Context) (*models.SessionRecord, error) {
	d.mu.Lock()
	rec := d.finish()
	d.mu.Unlock()

	if rec == nil {
		return nil, nil
	}
	return rec, d.persist(ctx, *rec)
}

// finish closes the active session and resets the limbs and program.
// It returns nil without an active session. Must be called with d.mu held.
func (d *Device) finish() *models.SessionRecord {
	if !d.sessionActive {
		return nil
	}
	rec := d.buildRecord(d.clock.Now())
	d.sessionActive = false
	d.recordingRef = ""
	d.state.Limbs = sim.NewLimbs()
	d.state.Program = d.state.Program.Configure(d.state.Program.WindowStart, d.state.Program.WindowEnd, false).Reset()
	d.lastRecord = &rec
	return &rec
}

// persist stores a finished session and evaluates achievements. It runs
// without d.mu so a slow store never stalls the tick loop.
func (d *Device) persist(ctx context.Context, rec models.SessionRecord) error {
	d.logger.Info("session ended",
		"id", rec.ID,
		"duration_minutes", rec.DurationMinutes,
		"reps", rec.Reps(),
	)

	var err error
	if d.store != nil {
		if err = d.store.InsertSession(ctx, rec); err != nil {
			err = fmt.Errorf("storing session: %w", err)
			d.logger.Error("storing session", "error", err)
		}
	}
	if d.achievements != nil {
		for _, a := range d.achievements.EvaluateSession(rec) {
			d.logger.Info("achievement unlocked", "id", a.ID)
		}
	}
	return err
}

// buildRecord summarizes the active session. Must be called with d.mu held.
func (d *Device) buildRecord(now time.Time) models.SessionRecord {
	left, right := d.state.Limbs.Left, d.state.Limbs.Right
	hr, spo2, temp := d.state.Telemetry.Averages()
	minutes := int(math.Round(now.Sub(d.sessionStarted).Minutes()))
	return models.SessionRecord{
		ID:              uuid.New(),
		Date:            now.Format("2006-01-02"),
		StartedAt:       d.sessionStarted,
		EndedAt:         now,
		DurationMinutes: max(1, minutes),
		TotalReps:       models.RepTotals{Left: left.TotalReps(), Right: right.TotalReps()},
		VerticalReps:    models.RepTotals{Left: left.VerticalReps, Right: right.VerticalReps},
		HorizontalReps:  models.RepTotals{Left: left.HorizontalReps, Right: right.HorizontalReps},
		AvgHeartRate:    hr,
		AvgSpO2:         spo2,
		AvgTemperature:  temp,
		RecordingRef:    d.recordingRef,
	}
}

// LastSession returns the most recently finished session, if any.
func (d *Device) LastSession() (models.SessionRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastRecord == nil {
		return models.SessionRecord{}, false
	}
	return *d.lastRecord, true
}

// SetVerticalMode commands a limb's vertical axis. Requesting the active mode
// again turns it off. It is rejected without a session or while the
// program owns the limbs.
func (d *Device) SetVerticalMode(side sim.Side, mode sim.VerticalMode) bool {
	return d.command(sim.SetVertical{Side: side, Mode: mode})
}

// SetHorizontalMode is SetVerticalMode for the horizontal axis.
func (d *Device) SetHorizontalMode(side sim.Side, mode sim.HorizontalMode) bool {
	return d.command(sim.SetHorizontal{Side: side, Mode: mode})
}

func (d *Device) command(cmd sim.Command) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.sessionActive {
		return false
	}
	next, ok := sim.Apply(d.state, cmd, d.clock.Now())
	if ok {
		d.state = next
	}
	return ok
}

// SetScheduleConfig configures the timed-rehab program. Times are "HH:mm";
// they only take effect while the program is disabled, and only then must
// the window end after it starts.
func (d *Device) SetScheduleConfig(start, end string, enabled bool) error {
	from, err := sim.ParseTimeOfDay(start)
	if err != nil {
		return fmt.Errorf("window start: %w", err)
	}
	to, err := sim.ParseTimeOfDay(end)
	if err != nil {
		return fmt.Errorf("window end: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.state.Program.Enabled && to <= from {
		return fmt.Errorf("window end %s must be after start %s", to, from)
	}
	d.state, _ = sim.Apply(d.state, sim.ConfigureProgram{Start: from, End: to, Enabled: enabled}, d.clock.Now())
	d.logger.Info("schedule configured",
		"start", d.state.Program.WindowStart,
		"end", d.state.Program.WindowEnd,
		"enabled", d.state.Program.Enabled,
	)
	return nil
}

// Tick advances the simulation by one frame. Nothing moves without an
// active session.
func (d *Device) Tick() []sim.Event {
	d.mu.Lock()
	now := d.clock.Now()
	d.resolve(now)
	if !d.sessionActive {
		d.mu.Unlock()
		return nil
	}
	var events []sim.Event
	d.state, events = sim.Advance(d.state, now, d.env)
	d.mu.Unlock()

	for _, ev := range events {
		switch ev.Kind {
		case sim.EventRep:
			// Haptic failures never affect the session.
			if err := d.haptics.Vibrate(context.Background(), RepPattern); err != nil {
				d.logger.Debug("haptics unavailable", "error", err)
			}
		case sim.EventProgramStarted:
			d.logger.Info("program started", "step", ev.Step)
		case sim.EventPhaseChanged:
			d.logger.Debug("program phase", "step", ev.Step, "cooldown", ev.CoolingDown)
		case sim.EventProgramExpired:
			d.logger.Info("program window ended")
		}
	}
	return events
}

// Run ticks the device every interval until ctx is cancelled.
func (d *Device) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.logger.Info("simulation loop started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("simulation loop stopped")
			return
		case <-ticker.C:
			d.Tick()
		}
	}
}

// Result is the outcome of a device command. Applied is false when the
// command was refused by the device's current state. Warning reports a
// collaborator failure, such as the history store, that did not undo the
// command.
type Result struct {
	Applied bool                  `json:"applied"`
	Session *models.SessionRecord `json:"session,omitempty"`
	Warning string                `json:"warning,omitempty"`
	State   Snapshot              `json:"state"`
}

// Finished builds the Result of ending a session. A storage error becomes
// a warning next to the record.
func (d *Device) Finished(rec *models.SessionRecord, err error) Result {
	res := Result{Applied: rec != nil, Session: rec, State: d.Snapshot()}
	if err != nil {
		res.Warning = err.Error()
	}
	return res
}

// LimbView is a limb plus its combined rep count.
type LimbView struct {
	sim.LimbState
	TotalReps int `json:"total_reps"`
}

func viewOf(l sim.LimbState) LimbView {
	return LimbView{LimbState: l, TotalReps: l.TotalReps()}
}

// Snapshot is a read-only copy of the device state.
type Snapshot struct {
	Time             time.Time        `json:"time"`
	Connection       ConnectionStatus `json:"connection"`
	SessionActive    bool             `json:"session_active"`
	SessionStartedAt *time.Time       `json:"session_started_at,omitempty"`
	RecordingRef     string           `json:"recording_ref,omitempty"`
	Left             LimbView         `json:"left"`
	Right            LimbView         `json:"right"`
	Program          sim.Program      `json:"program"`
	LatestSample     *sim.Sample      `json:"latest_sample,omitempty"`
	Telemetry        []sim.Sample     `json:"telemetry"`
}

// Snapshot returns the current state.
func (d *Device) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.clock.Now()
	d.resolve(now)

	snap := Snapshot{
		Time:          now,
		Connection:    d.status,
		SessionActive: d.sessionActive,
		RecordingRef:  d.recordingRef,
		Left:          viewOf(d.state.Limbs.Left),
		Right:         viewOf(d.state.Limbs.Right),
		Program:       d.state.Program,
		Telemetry:     slices.Clone(d.state.Telemetry.Samples),
	}
	if snap.Telemetry == nil {
		snap.Telemetry = []sim.Sample{}
	}
	if d.sessionActive {
		started := d.sessionStarted
		snap.SessionStartedAt = &started
	}
	if s, ok := d.state.Telemetry.Latest(); ok {
		snap.LatestSample = &s
	}
	return snap
}

// Telemetry returns the retained vitals samples, oldest first.
func (d *Device) Telemetry() []sim.Sample {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.state.Telemetry.Samples)
}

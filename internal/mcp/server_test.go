package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/lifesuit/companion/internal/achievements"
	"github.com/lifesuit/companion/internal/device"
	"github.com/lifesuit/companion/internal/models"
	"github.com/lifesuit/companion/internal/sim"
	"github.com/lifesuit/companion/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

type localEnv struct {
	h     *handlers
	clock *sim.ManualClock
}

func newLocalEnv(t *testing.T) *localEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := storage.Open(context.Background())
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clock := sim.NewManualClock(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	tracker := achievements.NewTracker()
	dev := device.New(device.Config{
		Clock:        clock,
		Rand:         rand.New(rand.NewPCG(3, 4)),
		Store:        db,
		Achievements: tracker,
		Logger:       log,
	})
	return &localEnv{
		h:     &handlers{ctl: &Local{Device: dev, DB: db, Tracker: tracker}, log: log},
		clock: clock,
	}
}

type toolFunc func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func call(t *testing.T, fn toolFunc, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := fn(context.Background(), req)
	if err != nil {
		t.Fatalf("tool returned protocol error: %v", err)
	}
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("result has no text content")
	return ""
}

func decodeResult[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	var v T
	if err := json.Unmarshal([]byte(resultText(t, res)), &v); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return v
}

// TestToolSessionLifecycle drives a session end to end through the tools.
func TestToolSessionLifecycle(t *testing.T) {
	e := newLocalEnv(t)

	if res := decodeResult[device.Result](t, call(t, e.h.startSession, nil)); res.Applied {
		t.Error("session started while disconnected")
	}
	if res := decodeResult[device.Result](t, call(t, e.h.connectDevice, nil)); !res.Applied || res.State.Connection != device.Connecting {
		t.Fatalf("connect = %+v", res)
	}
	e.clock.Advance(device.ConnectDelay)
	if res := decodeResult[device.Result](t, call(t, e.h.startSession, nil)); !res.Applied {
		t.Fatal("start_session not applied")
	}

	res := decodeResult[device.Result](t, call(t, e.h.setHorizontalMode, map[string]any{"side": "right", "mode": "left"}))
	if !res.Applied || res.State.Right.HorizontalMode != sim.HorizontalLeft {
		t.Errorf("set_horizontal_mode = %+v", res)
	}

	end := decodeResult[device.Result](t, call(t, e.h.endSession, nil))
	if !end.Applied || end.Session == nil {
		t.Fatalf("end_session = %+v", end)
	}

	hist := decodeResult[SessionHistory](t, call(t, e.h.getSessionHistory, nil))
	if len(hist.Sessions) != 1 || hist.Sessions[0].ID != end.Session.ID {
		t.Errorf("history = %+v", hist.Sessions)
	}
	if hist.Stats == nil || hist.Stats.TotalSessions != 1 {
		t.Errorf("stats = %+v", hist.Stats)
	}

	ranged := decodeResult[SessionHistory](t, call(t, e.h.getSessionHistory, map[string]any{"start": "2026-03-02", "end": "2026-03-03"}))
	if len(ranged.Sessions) != 1 {
		t.Errorf("ranged sessions = %d, want 1", len(ranged.Sessions))
	}

	var first bool
	for _, a := range decodeResult[[]models.Achievement](t, call(t, e.h.getAchievements, nil)) {
		if a.ID == achievements.FirstSession {
			first = a.Unlocked
		}
	}
	if !first {
		t.Error("first-session not unlocked")
	}

	if res := decodeResult[device.Result](t, call(t, e.h.disconnectDevice, nil)); res.State.Connection != device.Disconnected {
		t.Errorf("disconnect = %+v", res.State.Connection)
	}
}

// TestToolArgumentErrors verifies bad arguments become tool errors rather
// than protocol errors.
func TestToolArgumentErrors(t *testing.T) {
	e := newLocalEnv(t)
	tests := []struct {
		name string
		fn   toolFunc
		args map[string]any
	}{
		{"missing side", e.h.setVerticalMode, map[string]any{"mode": "forward"}},
		{"unknown side", e.h.setVerticalMode, map[string]any{"side": "center", "mode": "forward"}},
		{"unknown vertical mode", e.h.setVerticalMode, map[string]any{"side": "left", "mode": "up"}},
		{"unknown horizontal mode", e.h.setHorizontalMode, map[string]any{"side": "left", "mode": "forward"}},
		{"malformed window", e.h.configureSchedule, map[string]any{"window_start": "7", "window_end": "08:00", "enabled": true}},
		{"missing enabled", e.h.configureSchedule, map[string]any{"window_start": "07:00", "window_end": "08:00"}},
		{"bad history date", e.h.getSessionHistory, map[string]any{"start": "last week"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := call(t, tt.fn, tt.args); !res.IsError {
				t.Errorf("expected tool error, got %s", resultText(t, res))
			}
		})
	}
}

// TestToolConfigureSchedule verifies the program window is applied.
func TestToolConfigureSchedule(t *testing.T) {
	e := newLocalEnv(t)
	res := decodeResult[device.Result](t, call(t, e.h.configureSchedule, map[string]any{
		"window_start": "06:15", "window_end": "07:45", "enabled": true,
	}))
	p := res.State.Program
	if !p.Enabled || p.WindowStart != sim.MustTimeOfDay("06:15") || p.WindowEnd != sim.MustTimeOfDay("07:45") {
		t.Errorf("program = %+v", p)
	}
}

// TestResources verifies both resources return JSON for their URI.
func TestResources(t *testing.T) {
	e := newLocalEnv(t)
	for _, tc := range []struct {
		uri string
		fn  func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error)
	}{
		{"lifesuit://state", e.h.state},
		{"lifesuit://recent_sessions", e.h.recentSessions},
	} {
		var req mcp.ReadResourceRequest
		req.Params.URI = tc.uri
		contents, err := tc.fn(context.Background(), req)
		if err != nil {
			t.Fatalf("%s: %v", tc.uri, err)
		}
		text, ok := contents[0].(mcp.TextResourceContents)
		if !ok || text.URI != tc.uri || !json.Valid([]byte(text.Text)) {
			t.Errorf("%s: contents = %+v", tc.uri, contents[0])
		}
	}
}

// TestNewRegistersTools verifies the server builds with every tool.
func TestNewRegistersTools(t *testing.T) {
	e := newLocalEnv(t)
	s := New(e.h.ctl, "test", e.h.log)
	if got := len(s.ListTools()); got != 10 {
		t.Errorf("registered tools = %d, want 10", got)
	}
}

// TestDefaultTimeRange verifies time range defaults (last 7 days) and parsing.
func TestDefaultTimeRange(t *testing.T) {
	// Both empty → defaults to last 7 days
	start, end, err := defaultTimeRange("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	diff := end.Sub(start)
	if diff.Hours() < 167 || diff.Hours() > 169 { // ~168 hours = 7 days
		t.Errorf("default range = %.0f hours, want ~168", diff.Hours())
	}

	// RFC3339
	start, _, err = defaultTimeRange("2024-06-15T10:30:00Z", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Hour() != 10 || start.Minute() != 30 {
		t.Errorf("start = %v, want 10:30", start)
	}

	// Date-only end covers the whole day
	_, end, err = defaultTimeRange("2026-03-01", "2026-03-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC); !end.Equal(want) {
		t.Errorf("end = %v, want %v", end, want)
	}

	// RFC3339 end is taken as given
	_, end, err = defaultTimeRange("", "2026-03-02T08:00:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if end.Hour() != 8 || end.Day() != 2 {
		t.Errorf("end = %v, want 2026-03-02 08:00", end)
	}

	// Invalid
	if _, _, err = defaultTimeRange("not-a-date", ""); err == nil {
		t.Error("expected error for invalid date")
	}
}

// TestToolHistoryEndDateInclusive verifies a session on the end date is
// returned.
func TestToolHistoryEndDateInclusive(t *testing.T) {
	e := newLocalEnv(t)
	call(t, e.h.connectDevice, nil)
	e.clock.Advance(device.ConnectDelay)
	call(t, e.h.startSession, nil)
	e.clock.Advance(2 * time.Minute)
	call(t, e.h.endSession, nil)

	hist := decodeResult[SessionHistory](t, call(t, e.h.getSessionHistory, map[string]any{"start": "2026-03-01", "end": "2026-03-02"}))
	if len(hist.Sessions) != 1 {
		t.Errorf("sessions = %d, want 1", len(hist.Sessions))
	}
}

// TestToolEndSessionStoreFailure verifies the session record survives a
// history store failure and the failure is reported as a warning.
func TestToolEndSessionStoreFailure(t *testing.T) {
	e := newLocalEnv(t)
	call(t, e.h.connectDevice, nil)
	e.clock.Advance(device.ConnectDelay)
	call(t, e.h.startSession, nil)
	e.h.ctl.(*Local).DB.Close()

	res := decodeResult[device.Result](t, call(t, e.h.endSession, nil))
	if !res.Applied || res.Session == nil || res.Warning == "" {
		t.Errorf("end_session = %+v, want applied with session and warning", res)
	}
}

package mcp

import (
	"context"
	"time"

	"github.com/lifesuit/companion/internal/models"
	"github.com/lifesuit/companion/internal/sim"
	"github.com/lifesuit/companion/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the last 7 days. A
// date-only end includes that whole day.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		var dateOnly bool
		end, dateOnly, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if dateOnly {
			end = end.Add(24 * time.Hour)
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, _, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -7)
	}

	return start, end, nil
}

// parseFlexTime accepts RFC3339 or YYYY-MM-DD and reports which it got.
func parseFlexTime(s string) (time.Time, bool, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, false, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, true, nil
	}
	return time.Time{}, false, err
}

// --- Tool definitions ---

var sideParam = mcp.WithString("side", mcp.Required(), mcp.Description("Which arm"), mcp.Enum("left", "right"))

var toolGetDeviceState = mcp.NewTool("get_device_state",
	mcp.WithDescription("Get the live device snapshot: connection status, session flags, per-limb modes, angles (0-110 degrees) and rep counts, timed-rehab program step/cooldown/progress, and vitals telemetry."),
)

var toolConnectDevice = mcp.NewTool("connect_device",
	mcp.WithDescription("Start connecting to the LifeSuit. The connection completes after about 500 ms; poll get_device_state to see it."),
)

var toolDisconnectDevice = mcp.NewTool("disconnect_device",
	mcp.WithDescription("Disconnect the LifeSuit. An active session is ended and saved first."),
)

var toolStartSession = mcp.NewTool("start_session",
	mcp.WithDescription("Start a rehab session. Requires a connected device and no active session. Resets limbs, rep counts and telemetry."),
)

var toolEndSession = mcp.NewTool("end_session",
	mcp.WithDescription("End the active session. Returns the session record (duration, reps per limb and axis, average vitals) and saves it to history."),
)

var toolSetVerticalMode = mcp.NewTool("set_vertical_mode",
	mcp.WithDescription("Command a limb's vertical (flexion/extension) motor. Requesting the current mode again turns it off. Refused without a session or while the timed-rehab program owns the limbs."),
	sideParam,
	mcp.WithString("mode", mcp.Required(), mcp.Description("Motor direction"), mcp.Enum("off", "forward", "reverse")),
)

var toolSetHorizontalMode = mcp.NewTool("set_horizontal_mode",
	mcp.WithDescription("Command a limb's horizontal (abduction/adduction) motor. Requesting the current mode again turns it off. Refused without a session or while the timed-rehab program owns the limbs."),
	sideParam,
	mcp.WithString("mode", mcp.Required(), mcp.Description("Motor direction"), mcp.Enum("off", "left", "right")),
)

var toolConfigureSchedule = mcp.NewTool("configure_schedule",
	mcp.WithDescription("Configure the timed-rehab program: a daily HH:mm window during which the program cycles up, down, left, right (10 s active, 5 s cooldown each). The window only changes while the program is disabled."),
	mcp.WithString("window_start", mcp.Required(), mcp.Description("Window start, HH:mm")),
	mcp.WithString("window_end", mcp.Required(), mcp.Description("Window end, HH:mm (exclusive)")),
	mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("Whether the program runs inside the window")),
)

var toolGetSessionHistory = mcp.NewTool("get_session_history",
	mcp.WithDescription("Get finished sessions with aggregate stats. Without a start date, returns the most recent sessions."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD).")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithNumber("limit", mcp.Description("Number of recent sessions when no start is given. Defaults to 20.")),
)

var toolGetAchievements = mcp.NewTool("get_achievements",
	mcp.WithDescription("List all achievements with their unlock state."),
)

// --- Tool handlers ---

func toolResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) fail(tool string, err error) (*mcp.CallToolResult, error) {
	h.log.Error("mcp "+tool, "error", err)
	return mcp.NewToolResultError(tool + " failed: " + err.Error()), nil
}

func (h *handlers) getDeviceState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := h.ctl.State(ctx)
	if err != nil {
		return h.fail("get_device_state", err)
	}
	return toolResult(snap)
}

func (h *handlers) connectDevice(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := h.ctl.Connect(ctx)
	if err != nil {
		return h.fail("connect_device", err)
	}
	return toolResult(res)
}

func (h *handlers) disconnectDevice(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := h.ctl.Disconnect(ctx)
	if err != nil {
		return h.fail("disconnect_device", err)
	}
	return toolResult(res)
}

func (h *handlers) startSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := h.ctl.StartSession(ctx)
	if err != nil {
		return h.fail("start_session", err)
	}
	return toolResult(res)
}

func (h *handlers) endSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := h.ctl.EndSession(ctx)
	if err != nil {
		return h.fail("end_session", err)
	}
	return toolResult(res)
}

func (h *handlers) setVerticalMode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	side, err := requireSide(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	modeStr, err := req.RequireString("mode")
	if err != nil {
		return mcp.NewToolResultError("mode parameter is required"), nil
	}
	mode, err := sim.ParseVerticalMode(modeStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := h.ctl.SetVerticalMode(ctx, side, mode)
	if err != nil {
		return h.fail("set_vertical_mode", err)
	}
	return toolResult(res)
}

func (h *handlers) setHorizontalMode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	side, err := requireSide(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	modeStr, err := req.RequireString("mode")
	if err != nil {
		return mcp.NewToolResultError("mode parameter is required"), nil
	}
	mode, err := sim.ParseHorizontalMode(modeStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := h.ctl.SetHorizontalMode(ctx, side, mode)
	if err != nil {
		return h.fail("set_horizontal_mode", err)
	}
	return toolResult(res)
}

func requireSide(req mcp.CallToolRequest) (sim.Side, error) {
	s, err := req.RequireString("side")
	if err != nil {
		return "", err
	}
	return sim.ParseSide(s)
}

func (h *handlers) configureSchedule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, err := req.RequireString("window_start")
	if err != nil {
		return mcp.NewToolResultError("window_start parameter is required"), nil
	}
	end, err := req.RequireString("window_end")
	if err != nil {
		return mcp.NewToolResultError("window_end parameter is required"), nil
	}
	enabled, err := req.RequireBool("enabled")
	if err != nil {
		return mcp.NewToolResultError("enabled parameter is required"), nil
	}

	res, err := h.ctl.ConfigureSchedule(ctx, start, end, enabled)
	if err != nil {
		return mcp.NewToolResultError("invalid schedule: " + err.Error()), nil
	}
	return toolResult(res)
}

// SessionHistory is the get_session_history result.
type SessionHistory struct {
	Sessions []models.SessionRecord `json:"sessions"`
	Stats    *storage.HistoryStats  `json:"stats"`
}

func (h *handlers) getSessionHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		sessions []models.SessionRecord
		err      error
	)
	if startStr := req.GetString("start", ""); startStr != "" {
		start, end, perr := defaultTimeRange(startStr, req.GetString("end", ""))
		if perr != nil {
			return mcp.NewToolResultError("invalid date format: " + perr.Error()), nil
		}
		sessions, err = h.ctl.QuerySessions(ctx, start, end)
	} else {
		sessions, err = h.ctl.RecentSessions(ctx, req.GetInt("limit", 20))
	}
	if err != nil {
		return h.fail("get_session_history", err)
	}

	stats, err := h.ctl.SessionStats(ctx)
	if err != nil {
		return h.fail("get_session_history", err)
	}
	if sessions == nil {
		sessions = []models.SessionRecord{}
	}
	return toolResult(SessionHistory{Sessions: sessions, Stats: stats})
}

func (h *handlers) getAchievements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := h.ctl.Achievements(ctx)
	if err != nil {
		return h.fail("get_achievements", err)
	}
	return toolResult(list)
}

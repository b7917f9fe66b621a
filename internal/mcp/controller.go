package mcp

import (
	"context"
	"time"

	"github.com/lifesuit/companion/internal/achievements"
	"github.com/lifesuit/companion/internal/device"
	"github.com/lifesuit/companion/internal/models"
	"github.com/lifesuit/companion/internal/sim"
	"github.com/lifesuit/companion/internal/storage"
)

// Controller is what the MCP tools operate on. Both Local (in-process
// device) and HTTPClient (remote via REST API) satisfy this interface.
type Controller interface {
	State(ctx context.Context) (device.Snapshot, error)
	Connect(ctx context.Context) (device.Result, error)
	Disconnect(ctx context.Context) (device.Result, error)
	StartSession(ctx context.Context) (device.Result, error)
	EndSession(ctx context.Context) (device.Result, error)
	SetVerticalMode(ctx context.Context, side sim.Side, mode sim.VerticalMode) (device.Result, error)
	SetHorizontalMode(ctx context.Context, side sim.Side, mode sim.HorizontalMode) (device.Result, error)
	ConfigureSchedule(ctx context.Context, start, end string, enabled bool) (device.Result, error)
	QuerySessions(ctx context.Context, start, end time.Time) ([]models.SessionRecord, error)
	RecentSessions(ctx context.Context, limit int) ([]models.SessionRecord, error)
	SessionStats(ctx context.Context) (*storage.HistoryStats, error)
	Achievements(ctx context.Context) ([]models.Achievement, error)
}

// Local drives an in-process device.
type Local struct {
	Device  *device.Device
	DB      *storage.DB
	Tracker *achievements.Tracker
}

// Compile-time checks: both controllers satisfy Controller.
var (
	_ Controller = (*Local)(nil)
	_ Controller = (*HTTPClient)(nil)
)

func (l *Local) result(applied bool) device.Result {
	return device.Result{Applied: applied, State: l.Device.Snapshot()}
}

func (l *Local) State(context.Context) (device.Snapshot, error) {
	return l.Device.Snapshot(), nil
}

func (l *Local) Connect(context.Context) (device.Result, error) {
	return l.result(l.Device.Connect()), nil
}

func (l *Local) Disconnect(ctx context.Context) (device.Result, error) {
	res := l.Device.Finished(l.Device.Disconnect(ctx))
	res.Applied = true
	return res, nil
}

func (l *Local) StartSession(context.Context) (device.Result, error) {
	return l.result(l.Device.StartSession()), nil
}

func (l *Local) EndSession(ctx context.Context) (device.Result, error) {
	return l.Device.Finished(l.Device.EndSession(ctx)), nil
}

func (l *Local) SetVerticalMode(_ context.Context, side sim.Side, mode sim.VerticalMode) (device.Result, error) {
	return l.result(l.Device.SetVerticalMode(side, mode)), nil
}

func (l *Local) SetHorizontalMode(_ context.Context, side sim.Side, mode sim.HorizontalMode) (device.Result, error) {
	return l.result(l.Device.SetHorizontalMode(side, mode)), nil
}

func (l *Local) ConfigureSchedule(_ context.Context, start, end string, enabled bool) (device.Result, error) {
	if err := l.Device.SetScheduleConfig(start, end, enabled); err != nil {
		return device.Result{}, err
	}
	return l.result(true), nil
}

func (l *Local) QuerySessions(ctx context.Context, start, end time.Time) ([]models.SessionRecord, error) {
	return l.DB.QuerySessions(ctx, start, end)
}

func (l *Local) RecentSessions(ctx context.Context, limit int) ([]models.SessionRecord, error) {
	return l.DB.RecentSessions(ctx, limit)
}

func (l *Local) SessionStats(ctx context.Context) (*storage.HistoryStats, error) {
	return l.DB.GetStats(ctx)
}

func (l *Local) Achievements(context.Context) ([]models.Achievement, error) {
	return l.Tracker.List(), nil
}

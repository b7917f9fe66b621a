package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lifesuit/companion/internal/device"
	"github.com/lifesuit/companion/internal/models"
	"github.com/lifesuit/companion/internal/sim"
	"github.com/lifesuit/companion/internal/storage"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by method and path. Verifies the HTTP client sends correct paths and bodies.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.Method+" "+r.URL.Path]
		if !ok {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestHTTPSetVerticalMode verifies the limb path and JSON body.
func TestHTTPSetVerticalMode(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/limbs/left/vertical": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["mode"] != "reverse" {
				t.Errorf("mode=%q, want reverse", body["mode"])
			}
			snap := device.Snapshot{Connection: device.Connected, SessionActive: true}
			snap.Left.VerticalMode = sim.VerticalReverse
			writeTestJSON(t, w, device.Result{Applied: true, State: snap})
		},
	})
	defer ts.Close()

	res, err := NewHTTPClient(ts.URL+"/").SetVerticalMode(context.Background(), sim.Left, sim.VerticalReverse)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Applied || res.State.Left.VerticalMode != sim.VerticalReverse {
		t.Errorf("result = %+v", res)
	}
}

// TestHTTPConfigureSchedule verifies the PUT body and API error propagation.
func TestHTTPConfigureSchedule(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"PUT /api/v1/schedule": func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				WindowStart string `json:"window_start"`
				WindowEnd   string `json:"window_end"`
				Enabled     bool   `json:"enabled"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.WindowStart == "bad" {
				w.WriteHeader(http.StatusBadRequest)
				writeTestJSON(t, w, map[string]string{"error": "window start: invalid time of day"})
				return
			}
			if !body.Enabled || body.WindowEnd != "10:00" {
				t.Errorf("body = %+v", body)
			}
			writeTestJSON(t, w, device.Result{Applied: true})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	if _, err := client.ConfigureSchedule(context.Background(), "09:00", "10:00", true); err != nil {
		t.Fatal(err)
	}
	_, err := client.ConfigureSchedule(context.Background(), "bad", "10:00", true)
	if err == nil || !strings.Contains(err.Error(), "invalid time of day") {
		t.Errorf("err = %v, want API error message", err)
	}
}

// TestHTTPSessions verifies range and recent queries send the right params.
func TestHTTPSessions(t *testing.T) {
	id := uuid.New()
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/sessions": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			switch {
			case q.Get("start") != "":
				if got := q.Get("start"); got != "2026-01-01T00:00:00Z" {
					t.Errorf("start=%q", got)
				}
			case q.Get("limit") != "5":
				t.Errorf("limit=%q, want 5", q.Get("limit"))
			}
			writeTestJSON(t, w, []models.SessionRecord{{ID: id, DurationMinutes: 4}})
		},
		"GET /api/v1/sessions/stats": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, storage.HistoryStats{TotalSessions: 3, TotalReps: 42})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	ctx := context.Background()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sessions, err := client.QuerySessions(ctx, start, start.AddDate(0, 0, 7))
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].ID != id {
		t.Errorf("sessions = %+v", sessions)
	}

	if _, err := client.RecentSessions(ctx, 5); err != nil {
		t.Fatal(err)
	}

	stats, err := client.SessionStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalSessions != 3 || stats.TotalReps != 42 {
		t.Errorf("stats = %+v", stats)
	}
}

// TestHTTPEndSession verifies the session record is decoded.
func TestHTTPEndSession(t *testing.T) {
	rec := models.SessionRecord{ID: uuid.New(), DurationMinutes: 2, TotalReps: models.RepTotals{Left: 5}}
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/session/end": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, device.Result{Applied: true, Session: &rec})
		},
	})
	defer ts.Close()

	res, err := NewHTTPClient(ts.URL).EndSession(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Session == nil || res.Session.ID != rec.ID || res.Session.TotalReps.Left != 5 {
		t.Errorf("session = %+v", res.Session)
	}
}

// TestHTTPErrorStatus verifies non-200 responses without an error body.
func TestHTTPErrorStatus(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/state": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
	})
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL).State(context.Background())
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("err = %v, want status 500", err)
	}
}

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lifesuit/companion/internal/device"
	"github.com/lifesuit/companion/internal/sim"
)

// CommandResponse is returned by every device command.
type CommandResponse = device.Result

// ModeRequest is the body of the limb mode endpoints.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// RecordingRequest is the body of POST /session/recording.
type RecordingRequest struct {
	Ref string `json:"ref"`
}

// ScheduleRequest is the body of PUT /schedule.
type ScheduleRequest struct {
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`
	Enabled     bool   `json:"enabled"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dev.Snapshot())
}

func (s *Server) respond(w http.ResponseWriter, applied bool) {
	writeJSON(w, http.StatusOK, CommandResponse{Applied: applied, State: s.dev.Snapshot()})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.dev.Connect())
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	rec, err := s.dev.Disconnect(r.Context())
	res := s.dev.Finished(rec, err)
	res.Applied = true
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.dev.StartSession())
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	rec, err := s.dev.EndSession(r.Context())
	writeJSON(w, http.StatusOK, s.dev.Finished(rec, err))
}

func (s *Server) handleRecordingRef(w http.ResponseWriter, r *http.Request) {
	var req RecordingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Ref == "" {
		writeError(w, http.StatusBadRequest, "ref is required")
		return
	}
	s.respond(w, s.dev.SetRecordingRef(req.Ref))
}

func (s *Server) handleVertical(w http.ResponseWriter, r *http.Request) {
	side, ok := parseSide(w, r)
	if !ok {
		return
	}
	var req ModeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	mode, err := sim.ParseVerticalMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respond(w, s.dev.SetVerticalMode(side, mode))
}

func (s *Server) handleHorizontal(w http.ResponseWriter, r *http.Request) {
	side, ok := parseSide(w, r)
	if !ok {
		return
	}
	var req ModeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	mode, err := sim.ParseHorizontalMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respond(w, s.dev.SetHorizontalMode(side, mode))
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.dev.SetScheduleConfig(req.WindowStart, req.WindowEnd, req.Enabled); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respond(w, true)
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	samples := s.dev.Telemetry()
	if samples == nil {
		samples = []sim.Sample{}
	}
	writeJSON(w, http.StatusOK, samples)
}

func parseSide(w http.ResponseWriter, r *http.Request) (sim.Side, bool) {
	side, err := sim.ParseSide(chi.URLParam(r, "side"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return side, true
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

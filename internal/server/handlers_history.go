package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lifesuit/companion/internal/coach"
	"github.com/lifesuit/companion/internal/models"
	"github.com/lifesuit/companion/internal/storage"
)

// FeedbackRequest is the optional body of POST /coach/feedback. Without a
// session ID the most recently finished session is used.
type FeedbackRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleQuerySessions(w http.ResponseWriter, r *http.Request) {
	var (
		sessions []models.SessionRecord
		err      error
	)
	if r.URL.Query().Get("start") == "" {
		limit := 20
		if l := r.URL.Query().Get("limit"); l != "" {
			if parsed, perr := strconv.Atoi(l); perr == nil && parsed > 0 {
				limit = parsed
			}
		}
		sessions, err = s.db.RecentSessions(r.Context(), limit)
	} else {
		start, end, perr := parseTimeRange(r)
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr.Error())
			return
		}
		sessions, err = s.db.QuerySessions(r.Context(), start, end)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []models.SessionRecord{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	rec, err := s.db.GetSession(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.achievements.List())
}

func (s *Server) handleCoachState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coach.State())
}

func (s *Server) handleCoachFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var rec models.SessionRecord
	if req.SessionID != "" {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid session id")
			return
		}
		found, err := s.db.GetSession(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		rec = *found
	} else {
		last, ok := s.dev.LastSession()
		if !ok {
			writeError(w, http.StatusConflict, coach.NoSessionMessage)
			return
		}
		rec = last
	}

	_, err := s.coach.Feedback(r.Context(), rec)
	switch {
	case errors.Is(err, coach.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, coach.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, coach.RestingMessage)
		return
	}
	writeJSON(w, http.StatusOK, s.coach.State())
}

// parseTimeRange reads start and end query parameters as RFC 3339 or
// YYYY-MM-DD. A date-only end includes that whole day.
func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			end = end.Add(24 * time.Hour)
		}
	}
	return
}

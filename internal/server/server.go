package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lifesuit/companion/internal/achievements"
	"github.com/lifesuit/companion/internal/coach"
	"github.com/lifesuit/companion/internal/device"
	"github.com/lifesuit/companion/internal/storage"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	dev          *device.Device
	db           *storage.DB
	achievements *achievements.Tracker
	coach        *coach.Coach
	whois        WhoIser
	log          *slog.Logger
	router       chi.Router
}

// New creates a new Server with all routes configured.
func New(dev *device.Device, db *storage.DB, tracker *achievements.Tracker, c *coach.Coach, log *slog.Logger) *Server {
	s := &Server{
		dev:          dev,
		db:           db,
		achievements: tracker,
		coach:        c,
		log:          log,
		router:       chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(Identity(func() WhoIser { return s.whois }))
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/me", s.handleMe)

		// Device
		r.Get("/state", s.handleState)
		r.Post("/connect", s.handleConnect)
		r.Post("/disconnect", s.handleDisconnect)
		r.Post("/session/start", s.handleStartSession)
		r.Post("/session/end", s.handleEndSession)
		r.Post("/session/recording", s.handleRecordingRef)
		r.Post("/limbs/{side}/vertical", s.handleVertical)
		r.Post("/limbs/{side}/horizontal", s.handleHorizontal)
		r.Put("/schedule", s.handleSchedule)
		r.Get("/telemetry", s.handleTelemetry)

		// History
		r.Get("/sessions", s.handleQuerySessions)
		r.Get("/sessions/stats", s.handleSessionStats)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Get("/achievements", s.handleAchievements)

		// Coach
		r.Get("/coach", s.handleCoachState)
		r.Post("/coach/feedback", s.handleCoachFeedback)
	})
}

// SetTailscale enables tailnet identity lookup for incoming requests.
// Must be called before serving.
func (s *Server) SetTailscale(whois WhoIser) {
	s.whois = whois
}

// Mount attaches an additional handler, such as the MCP endpoint, at
// pattern. It shares the server's middleware.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Handle(pattern, h)
}

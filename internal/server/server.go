// Package server exposes the journal, calendar, report, and notification
// operations over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"reverie/internal/config"
	"reverie/internal/core"
	"reverie/internal/logger"
	"reverie/internal/notify"
	"reverie/internal/store"
)

// ReportGenerator runs the report pipeline for a set of entries.
type ReportGenerator interface {
	GenerateWeekly(ctx context.Context, entries []core.JournalEntry, periodStart, periodEnd string) core.PipelineResult
}

// EventClassifier assigns an event type to a calendar event title.
type EventClassifier interface {
	Classify(ctx context.Context, title string) core.CalendarEventType
}

// EntryAnalyzer tags journal entry content with a topic and an emotion.
type EntryAnalyzer interface {
	Analyze(ctx context.Context, content string) (string, core.Emotion)
}

// NotificationDecider runs the one-shot notification pipeline.
type NotificationDecider interface {
	Decide(ctx context.Context, input notify.Input) core.NotificationDecision
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	store      *store.Store
	pipeline   ReportGenerator
	classifier EventClassifier
	analyzer   EntryAnalyzer
	notifier   NotificationDecider
	config     config.Server
	log        *slog.Logger
	access     zerolog.Logger
}

// New creates a new HTTP server instance
func New(st *store.Store, pipeline ReportGenerator, classifier EventClassifier, analyzer EntryAnalyzer, notifier NotificationDecider, cfg config.Server) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		store:      st,
		pipeline:   pipeline,
		classifier: classifier,
		analyzer:   analyzer,
		notifier:   notifier,
		config:     cfg,
		log:        logger.Get(),
		access:     zerolog.New(os.Stdout).With().Timestamp().Str("component", "http").Logger(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.accessLogger)
	s.router.Use(middleware.Recoverer)

	// Report generation makes several model calls; the request timeout has to
	// cover the whole retry loop.
	s.router.Use(middleware.Timeout(5 * time.Minute))

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

// setupRoutes configures routes for the server
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/entries", func(r chi.Router) {
			r.Post("/", s.handleCreateEntry)
			r.Get("/", s.handleListEntries)
			r.Put("/{id}", s.handleUpdateEntry)
			r.Delete("/{id}", s.handleDeleteEntry)
		})

		r.Get("/stats", s.handleStats)

		r.Route("/events", func(r chi.Router) {
			r.Post("/", s.handleCreateEvent)
			r.Get("/", s.handleListEvents)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Post("/generate", s.handleGenerateReport)
			r.Get("/latest", s.handleLatestReport)
			r.Get("/previous", s.handlePreviousReport)
		})

		r.Post("/notifications/decide", s.handleNotificationDecision)
	})
}

// accessLogger emits one structured access log line per request.
func (s *Server) accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.access.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("starting HTTP server",
		"addr", s.httpServer.Addr,
		"read_timeout", s.config.ReadTimeout,
		"write_timeout", s.config.WriteTimeout,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}

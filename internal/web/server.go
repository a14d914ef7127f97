// Package web provides the moodmix JSON API.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/justestif/moodmix/internal/analysis"
	"github.com/justestif/moodmix/internal/apperr"
	"github.com/justestif/moodmix/internal/consent"
	"github.com/justestif/moodmix/internal/history"
	"github.com/justestif/moodmix/internal/playlist"
	"github.com/justestif/moodmix/internal/ratelimit"
	"github.com/justestif/moodmix/internal/room"
	"github.com/justestif/moodmix/internal/search"
)

const shutdownTimeout = 10 * time.Second

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string
}

// Services are the application services the API exposes.
type Services struct {
	Playlists *playlist.Service
	Analysis  *analysis.Service
	Consent   *consent.Service
	History   history.Store
	Search    *search.Index
	Rooms     *room.Service
}

// Server is the HTTP server for the API.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	limiter  *ratelimit.Keyed
	logger   *slog.Logger
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, svc Services, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:   chi.NewRouter(),
		handlers: NewHandlers(svc, logger),
		logger:   logger,
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	s.setupMiddleware(cfg)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  durationOr(cfg.ReadTimeout, 15*time.Second),
		WriteTimeout: durationOr(cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:  durationOr(cfg.IdleTimeout, 60*time.Second),
	}

	return s
}

func (s *Server) setupMiddleware(cfg ServerConfig) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", deviceHeader},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	if s.limiter != nil {
		s.router.Use(rateLimit(s.limiter, s.logger))
	}
}

func (s *Server) setupRoutes() {
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, notFoundRoute, s.logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: apperr.Validation("method not allowed")}, s.logger)
	})

	s.router.Get("/healthz", s.handlers.Health)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(deviceIdentity)

		r.Post("/playlist", s.handlers.Playlist)
		r.Post("/analyze", s.handlers.Analyze)

		r.Get("/history", s.handlers.ListHistory)
		r.Delete("/history", s.handlers.ClearHistory)

		r.Route("/consent", func(r chi.Router) {
			r.Get("/", s.handlers.GetConsent)
			r.Put("/", s.handlers.PutConsent)
			r.Delete("/", s.handlers.ResetConsent)
			r.Post("/deny-all", s.handlers.DenyAllConsent)
		})

		r.Route("/room", func(r chi.Router) {
			r.Post("/join", s.handlers.JoinRoom)
			r.Post("/mood", s.handlers.SetRoomMood)
			r.Post("/leave", s.handlers.LeaveRoom)
			r.Get("/playlist", s.handlers.RoomPlaylist)
			r.Get("/{roomID}", s.handlers.GetRoom)
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", s.handlers.Catalog)
			r.Get("/search", s.handlers.SearchCatalog)
			r.Get("/moods", s.handlers.Moods)
		})
	})
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", "http://"+s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.server.Shutdown(ctx)
}

// Run starts the server and shuts it down gracefully on SIGINT, SIGTERM or
// when ctx is done.
func (s *Server) Run(ctx context.Context) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
	case <-ctx.Done():
	}
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

// Package web provides the HTTP API for the import and reconciliation
// engine: template listing and workbook download, mapping proposal,
// validation, import runs, session history, error export, and vendor
// reconciliation runs.
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lindale-isd/districtops/internal/config"
	"github.com/lindale-isd/districtops/internal/importer"
	"github.com/lindale-isd/districtops/internal/recon"
	"github.com/lindale-isd/districtops/internal/store"
	mw "github.com/lindale-isd/districtops/internal/web/middleware"
)

// Server is the HTTP server for the import API.
type Server struct {
	store   *store.Store
	runner  *importer.Runner
	adapter *recon.Adapter
	cfg     *config.Config
	logger  *slog.Logger
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server wired to the given pipeline components.
func NewServer(cfg *config.Config, st *store.Store, runner *importer.Runner, adapter *recon.Adapter, logger *slog.Logger) *Server {
	s := &Server{
		store:   st,
		runner:  runner,
		adapter: adapter,
		cfg:     cfg,
		logger:  logger,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	// Security hardening
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		// Template catalog
		r.Get("/templates", s.handleListTemplates)
		r.Get("/templates/{entityType}", s.handleGetTemplate)
		r.Get("/templates/{entityType}/workbook", s.handleDownloadWorkbook)

		// Import pipeline
		r.Route("/imports", func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				importLimiter := newRateLimiter(s.cfg.Rate.ImportLimit, time.Minute)
				r.Use(importLimiter.middleware)
			}
			r.Post("/{entityType}/mapping", s.handleProposeMapping)
			r.Post("/{entityType}/validate", s.handleValidate)
			r.Post("/{entityType}", s.handleRunImport)

			// Vendor feed reconciliation
			r.Post("/reconciliation", s.handleReconcile)
		})

		// Session history
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{sessionID}", s.handleGetSession)
		r.Get("/sessions/{sessionID}/errors.csv", s.handleExportErrors)
	})

	s.router.Get("/healthz", s.handleHealth)
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	s.logger.Info("starting server", slog.String("addr", addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
	// Start cleanup goroutine
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every minute.
func (rl *rateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{
			tokens:    rl.rate - 1, // consume one token
			lastReset: time.Now(),
		}
		return true
	}

	// Reset tokens if window has passed
	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}

	// Check if we have tokens left
	if v.tokens <= 0 {
		return false
	}

	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by IP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		// Use X-Real-IP if set (by RealIP middleware)
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			ip = realIP
		}

		if !rl.allow(ip) {
			w.Header().Set("Retry-After", "60")
			respondErrorJSON(w, importer.UserMessage{
				Code:    "RATE001",
				Message: "Too many requests",
				Action:  "Wait a minute before retrying",
			}, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Package web provides the HTTP API for the seller catalog and the product
// import wizard.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/JonMunkholm/sellerdash/internal/config"
	"github.com/JonMunkholm/sellerdash/internal/core"
	mw "github.com/JonMunkholm/sellerdash/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP server.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	stopLimiter context.CancelFunc
}

// NewServer builds the router for service.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopLimiter = cancel
		limiter := newRateLimiter(ctx, s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// The progress stream is long-lived and stays outside the timeout.
		r.Get("/vendors/{vendorID}/imports/{importID}/progress", s.handleImportProgress)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

			r.Get("/fields", s.handleListFields)
			r.Get("/template.csv", s.handleTemplateCSV)
			r.Get("/template.xlsx", s.handleTemplateXLSX)

			r.Get("/vendors/{vendorID}/catalog", s.handleCatalog)
			r.Post("/vendors/{vendorID}/catalog/status", s.handleBulkStatus)
			r.Post("/vendors/{vendorID}/catalog/selection", s.handleToggleAll)
			r.Post("/variants/check", s.handleCheckVariants)

			r.Post("/vendors/{vendorID}/imports", s.handleCreateImport)
			r.Get("/vendors/{vendorID}/imports/{importID}", s.handleImportState)
			r.Delete("/vendors/{vendorID}/imports/{importID}", s.handleDeleteImport)
			r.Post("/vendors/{vendorID}/imports/{importID}/file", s.handleImportFile)
			r.Put("/vendors/{vendorID}/imports/{importID}/mapping", s.handleImportMapping)
			r.Post("/vendors/{vendorID}/imports/{importID}/validate", s.handleImportValidate)
			r.Post("/vendors/{vendorID}/imports/{importID}/back", s.handleImportBack)
			r.Post("/vendors/{vendorID}/imports/{importID}/start", s.handleImportStart)
			r.Post("/vendors/{vendorID}/imports/{importID}/cancel", s.handleImportCancel)
			r.Post("/vendors/{vendorID}/imports/{importID}/reset", s.handleImportReset)
			r.Get("/vendors/{vendorID}/imports/{importID}/errors.csv", s.handleImportErrors)

			r.Get("/vendors/{vendorID}/presets", s.handleListPresets)
			r.Delete("/vendors/{vendorID}/presets/{presetID}", s.handleDeletePreset)
			r.Get("/vendors/{vendorID}/imports/{importID}/presets", s.handleMatchPresets)
			r.Post("/vendors/{vendorID}/imports/{importID}/presets", s.handleSavePreset)
			r.Post("/vendors/{vendorID}/imports/{importID}/presets/{presetID}/apply", s.handleApplyPreset)
		})
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	addr := s.cfg.Server.Addr()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: 0, // progress stream
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("http server listening", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopLimiter != nil {
		s.stopLimiter()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"imports":  s.service.LimiterStatus(),
		"sessions": s.service.SessionCount(),
	})
}

func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				h.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data: https:; style-src 'self' 'unsafe-inline'")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter is a fixed-window request counter per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	now      func() time.Time
}

type visitor struct {
	count       int
	windowStart time.Time
}

func newRateLimiter(ctx context.Context, rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
	}
	go rl.cleanup(ctx)
	return rl
}

func (rl *rateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if rl.now().Sub(v.windowStart) > 2*rl.window {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[ip]
	if !ok || now.Sub(v.windowStart) > rl.window {
		rl.visitors[ip] = &visitor{count: 1, windowStart: now}
		return true
	}
	if v.count >= rl.rate {
		return false
	}
	v.count++
	return true
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// RemoteAddr is already rewritten by TrustedRealIP.
		ip := r.RemoteAddr
		if !rl.allow(ip) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
				Error:   "Too many requests",
				Message: "Too many requests",
				Action:  "Please wait a moment before trying again",
				Code:    "RATE001",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the rate-limit key. TrustedRealIP leaves a bare IP when it
// trusts the peer; otherwise RemoteAddr still carries the port.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}

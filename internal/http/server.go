// Package http serves the finance tracker UI: an index page plus HTMX-style
// partials rendered from embedded templates. All state changes go through the
// application controller.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pondo/internal/app"
	"pondo/internal/cache"
	applog "pondo/internal/log"
	appweb "pondo/web"
)

type Server struct {
	http.Server
	app       *app.App
	templates *template.Template
	limiter   *rateLimiter
	log       *slog.Logger

	// Rendered summary and breakdown partials, keyed per user.
	partials *cache.Cache[string]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, application *app.App) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		app:              application,
		limiter:          newRateLimiter(),
		log:              applog.ForComponent("http"),
		partials:         cache.New[string](200, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.log.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.log.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withMiddleware(s.handleIndex))
	mux.HandleFunc("/login", s.withMiddleware(s.handleLogin))
	mux.HandleFunc("/logout", s.withMiddleware(s.handleLogout))

	mux.HandleFunc("/transactions", s.withMiddleware(s.handleAddTransaction))
	mux.HandleFunc("/transactions/delete", s.withMiddleware(s.handleDeleteTransaction))

	mux.HandleFunc("/ui/summary", s.withMiddleware(s.handleSummary))
	mux.HandleFunc("/ui/transactions", s.withMiddleware(s.handleTransactions))
	mux.HandleFunc("/ui/breakdown", s.withMiddleware(s.handleBreakdown))
	mux.HandleFunc("/ui/archive", s.withMiddleware(s.handleArchive))
	mux.HandleFunc("/ui/budgets", s.withMiddleware(s.handleBudgets))

	mux.HandleFunc("/archive/restore", s.withMiddleware(s.handleRestore))
	mux.HandleFunc("/archive/purge", s.withMiddleware(s.handlePurge))
	mux.HandleFunc("/archive/purge-all", s.withMiddleware(s.handlePurgeAll))

	mux.HandleFunc("/budgets", s.withMiddleware(s.handleSetBudget))
	mux.HandleFunc("/budgets/remove", s.withMiddleware(s.handleRemoveBudgetEntry))
	mux.HandleFunc("/budgets/clear", s.withMiddleware(s.handleClearBudget))

	mux.HandleFunc("/theme", s.withMiddleware(s.handleTheme))
	mux.HandleFunc("/export/csv", s.withMiddleware(s.handleExportCSV))

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// withMiddleware adds request IDs, security headers, rate limiting on POST,
// and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := uuid.NewString()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		if r.Method == http.MethodPost && !s.limiter.allow(clientIP) {
			s.log.WarnContext(ctx, "Rate limit exceeded",
				"request_id", requestID, "client_ip", clientIP, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.log.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.partials.CleanExpired(); cleaned > 0 {
				s.log.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// invalidatePartials drops every cached partial for the user. Called after
// any mutation.
func (s *Server) invalidatePartials(user string) {
	s.partials.Delete("summary:" + user)
	s.partials.Delete("breakdown:" + user)
}

// Shutdown stops the background cleanup goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.limiter != nil {
			s.limiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

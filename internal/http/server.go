// Package http exposes the ledger service as a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"financeflow/internal/cache"
	"financeflow/internal/core"
	"financeflow/internal/log"
	"financeflow/internal/service"
)

type Server struct {
	http.Server
	svc         *service.Service
	rateLimiter *rateLimiter

	// Per-session summary cache, invalidated on every mutation
	summaryCache *cache.LRUCache[core.Summary]

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *service.Service, cacheSize int, cacheTTL time.Duration) *Server {
	r := mux.NewRouter()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		svc:          svc,
		rateLimiter:  newRateLimiter(),
		summaryCache: cache.NewLRUCache[core.Summary](cacheSize, cacheTTL),
	}

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.withRequestLogging)

	// Credential endpoints carry the rate limit; authenticated traffic
	// is already gated by a token.
	api.HandleFunc("/register", s.withRateLimit(s.handleRegister)).Methods(http.MethodPost)
	api.HandleFunc("/login", s.withRateLimit(s.handleLogin)).Methods(http.MethodPost)
	api.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)

	api.HandleFunc("/logout", s.withAuth(s.handleLogout)).Methods(http.MethodPost)
	api.HandleFunc("/transactions", s.withAuth(s.handleListTransactions)).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.withAuth(s.handleAddTransaction)).Methods(http.MethodPost)
	api.HandleFunc("/transactions/quick", s.withAuth(s.handleQuickAdd)).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id:[0-9]+}", s.withAuth(s.handleDeleteTransaction)).Methods(http.MethodDelete)
	api.HandleFunc("/summary", s.withAuth(s.handleSummary)).Methods(http.MethodGet)
	api.HandleFunc("/budget", s.withAuth(s.handleSetBudget)).Methods(http.MethodPut)
	api.HandleFunc("/export", s.withAuth(s.handleExport)).Methods(http.MethodPost)

	return s
}

// SummaryCache exposes the summary cache for registration with a cleanup
// manager.
func (s *Server) SummaryCache() cache.Cleaner {
	return s.summaryCache
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withRequestLogging adds security headers, a request ID, and start/stop
// logging around every API request.
func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()
		clientIP := clientIP(r)

		ctx := r.Context()
		slog.InfoContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP)

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		slog.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	})
}

// withRateLimit rejects clients exceeding the per-IP request budget.
func (s *Server) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.rateLimiter.allow(ip) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, ip, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}
		next(w, r)
	}
}

// withAuth extracts the bearer token and rejects requests without one. The
// token itself is validated by the service on each operation.
func (s *Server) withAuth(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, core.ErrNoSession.Error())
			return
		}
		next(w, r, token)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// clientIP extracts the client address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

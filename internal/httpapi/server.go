// Package httpapi exposes the JSON API: account and transaction CRUD,
// statement import previews, duplicate checks, monthly stats and CSV export.
package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/export"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

type Server struct {
	http.Server
	txService      *services.TransactionService
	importService  *services.ImportService
	exporter       *export.CSVExporter
	rateLimiter    *rateLimiter
	logger         *log.Logger
	maxUploadBytes int64

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, txService *services.TransactionService, importService *services.ImportService, maxUploadBytes int64) *Server {
	mux := http.NewServeMux()

	logCfg := log.DefaultConfig()
	logCfg.Component = log.ComponentHTTP

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		txService:      txService,
		importService:  importService,
		exporter:       export.NewCSVExporter(txService),
		rateLimiter:    newRateLimiter(),
		logger:         log.New(logCfg),
		maxUploadBytes: maxUploadBytes,
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("GET /api/accounts", s.withMiddleware(s.handleListAccounts))
	mux.HandleFunc("POST /api/account", s.withMiddleware(s.handleCreateAccount))
	mux.HandleFunc("PUT /api/account/{id}", s.withMiddleware(s.handleUpdateAccount))
	mux.HandleFunc("DELETE /api/account/{id}", s.withMiddleware(s.handleDeleteAccount))

	mux.HandleFunc("GET /api/transactions", s.withMiddleware(s.handleListTransactions))
	mux.HandleFunc("PUT /api/transaction/{id}", s.withMiddleware(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transaction/{id}", s.withMiddleware(s.handleDeleteTransaction))
	mux.HandleFunc("POST /api/save-manual", s.withMiddleware(s.handleSaveManual))
	mux.HandleFunc("POST /api/save-batch", s.withMiddleware(s.handleSaveBatch))
	mux.HandleFunc("POST /api/check-duplicates", s.withMiddleware(s.handleCheckDuplicates))

	mux.HandleFunc("POST /api/pdf-preview", s.withMiddleware(s.handlePDFPreview))
	mux.HandleFunc("POST /api/ocr-identify", s.withMiddleware(s.handleOCRIdentify))

	mux.HandleFunc("GET /api/stats", s.withMiddleware(s.handleStats))
	mux.HandleFunc("GET /api/export", s.withMiddleware(s.handleExport))

	return s
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

// withMiddleware adds security headers, rate limiting and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		s.logger.InfoContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP)

		// Mutations are rate limited; reads are not.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		s.logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, duration.Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
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

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cyderes/dog-ratings-pipeline/internal/cleaning"
	"github.com/cyderes/dog-ratings-pipeline/internal/config"
	"github.com/cyderes/dog-ratings-pipeline/internal/report"
	"github.com/cyderes/dog-ratings-pipeline/internal/storage"
)

const (
	defaultLimit = 10
	maxLimit     = 1000
)

// Server serves the stored master table read-only over HTTP
type Server struct {
	config  config.ServerConfig
	storage storage.Storage
	report  *report.Report
	logger  *logrus.Logger
	server  *http.Server
}

// NewServer creates a new HTTP server. rep may be nil, in which case
// /report answers 404.
func NewServer(cfg config.ServerConfig, store storage.Storage, rep *report.Report, logger *logrus.Logger) *Server {
	s := &Server{
		config:  cfg,
		storage: store,
		report:  rep,
		logger:  logger,
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	return s
}

// Handler returns the routed handler wrapped in request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/records", s.handleRecords)
	mux.HandleFunc("/records/", s.handleRecordByID)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/report", s.handleReport)
	return logMiddleware(mux, s.logger)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleRecords pages over the master table
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit, ok := queryInt(r, "limit", defaultLimit)
	if !ok || limit < 1 {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return
	}
	limit = min(limit, maxLimit)

	offset, ok := queryInt(r, "offset", 0)
	if !ok || offset < 0 {
		http.Error(w, "Invalid offset", http.StatusBadRequest)
		return
	}

	records, err := s.storage.GetRecords(r.Context(), limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("Failed to retrieve records")
		http.Error(w, "Failed to retrieve records", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
		"limit":   limit,
		"offset":  offset,
	})
}

// handleRecordByID looks up one record by tweet id
func (s *Server) handleRecordByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := cleaning.CanonicalID(strings.TrimPrefix(r.URL.Path, "/records/"))
	if err != nil {
		http.Error(w, "Invalid tweet ID", http.StatusBadRequest)
		return
	}

	rec, err := s.storage.GetRecordByID(r.Context(), id)
	if err != nil {
		s.logger.WithError(err).WithField("tweet_id", id).Error("Failed to retrieve record")
		http.Error(w, "Failed to retrieve record", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, "Record not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleStatus reports the latest pipeline run
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status, err := s.storage.GetRunStatus(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to retrieve status")
		http.Error(w, "Failed to retrieve status", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.report == nil {
		http.Error(w, "No report available", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.report)
}

func queryInt(r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func logMiddleware(next http.Handler, logger *logrus.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   wrapped.statusCode,
			"duration": time.Since(start),
		}).Debug("API request")
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

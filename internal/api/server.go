// Package api provides the REST API for parsing reservation text and
// browsing stored parses.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pnr_parser/internal/extractor"
	"pnr_parser/internal/logging"
	"pnr_parser/internal/metrics"
	"pnr_parser/internal/pnr"
	"pnr_parser/internal/storage"
)

// maxBodyBytes bounds the size of a parse request body.
const maxBodyBytes = 1 << 20

// maxQueryLimit bounds the page size of a list request.
const maxQueryLimit = 1000

// Server provides REST API access to the parse engine and the parse log.
type Server struct {
	store       storage.Store // nil when storage is disabled
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	logger      logging.Logger
	cfg         Config
	apiKeys     map[string]bool // Simple API key auth (when enabled).
	corsOrigins map[string]bool
}

// Config holds configuration for the API server.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	AuthEnabled  bool
	APIKeys      []string // List of valid API keys.
	CORSOrigins  []string // Allowed origins; empty allows any.
}

// Option customises a Server.
type Option func(*Server)

// WithStore persists every parse to s.
func WithStore(s storage.Store) Option {
	return func(srv *Server) { srv.store = s }
}

// WithMetrics records parse metrics and serves g at /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(srv *Server) {
		srv.metrics = m
		srv.gatherer = g
	}
}

// WithLogger sets the server logger.
func WithLogger(l logging.Logger) Option {
	return func(srv *Server) { srv.logger = l }
}

// NewServer creates a new API server.
func NewServer(cfg Config, opts ...Option) *Server {
	s := &Server{
		cfg:         cfg,
		logger:      logging.NewNop(),
		apiKeys:     make(map[string]bool),
		corsOrigins: make(map[string]bool),
	}
	for _, k := range cfg.APIKeys {
		if k != "" {
			s.apiKeys[k] = true
		}
	}
	for _, o := range cfg.CORSOrigins {
		if o != "" {
			s.corsOrigins[o] = true
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run starts the HTTP server and shuts it down when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(s.cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.logger.Info("API server starting", "addr", srv.Addr, "auth", s.cfg.AuthEnabled, "storage", s.store != nil)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("API server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// Router returns the configured chi router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	// Standard middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS for browser access.
	r.Use(s.corsMiddleware)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required).
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			// Optional authentication.
			if s.cfg.AuthEnabled {
				r.Use(s.authMiddleware)
			}

			r.Post("/parse", s.handleParse)
			r.Get("/parses", s.handleListParses)
			r.Get("/parses/stats", s.handleParseStats)
			r.Get("/parses/{id}", s.handleGetParse)
		})
	})

	return r
}

// requestLogger logs one line per request through the structured logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// corsMiddleware adds CORS headers for browser access.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.corsOrigins) > 0 {
			origin = ""
			if o := r.Header.Get("Origin"); s.corsOrigins[o] {
				origin = o
				w.Header().Add("Vary", "Origin")
			}
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates API key authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check X-API-Key header first.
		apiKey := r.Header.Get("X-API-Key")

		// Fall back to Authorization: Bearer <key>.
		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		// Fall back to query parameter (for simple testing).
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}

		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"storage": s.store != nil,
	})
}

// ParseRequest is the body of POST /api/v1/parse: a submission plus an
// optional RFC 3339 reference time for the issue-date arithmetic.
type ParseRequest struct {
	pnr.Submission
	Now string `json:"now,omitempty"`
}

// ParseResponse is the JSON response for a parse.
type ParseResponse struct {
	ID     string      `json:"id,omitempty"`
	CaseID string      `json:"service_case_id,omitempty"`
	Result *pnr.Result `json:"result"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.metrics.ObserveError("decode")
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var opts []extractor.Option
	if req.Now != "" {
		now, err := time.Parse(time.RFC3339, req.Now)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid now (use RFC 3339)")
			return
		}
		opts = append(opts, extractor.WithNow(now))
	}

	start := time.Now()
	result := extractor.Parse(req.Text, opts...)
	s.metrics.ObserveParse(result, time.Since(start))

	resp := ParseResponse{Result: result}
	if s.store != nil {
		rec := storage.NewRecord(&req.Submission, result, time.Now())
		if err := s.store.Insert(r.Context(), rec); err != nil {
			s.metrics.ObserveError("store")
			s.logger.Error("failed to store parse", "error", err, "id", rec.ID)
			writeError(w, http.StatusInternalServerError, "failed to store parse")
			return
		}
		s.metrics.ObserveStored()
		resp.ID = rec.ID
		resp.CaseID = rec.CaseID
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetParse(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "storage is not configured")
		return
	}

	id := chi.URLParam(r, "id")
	rec, err := s.store.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No parse found")
		return
	}
	if err != nil {
		s.metrics.ObserveError("get")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// ListResponse is the JSON response for GET /api/v1/parses.
type ListResponse struct {
	Records []*storage.Record `json:"records"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
}

func (s *Server) handleListParses(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "storage is not configured")
		return
	}

	q := r.URL.Query()
	p := storage.QueryParams{
		RecordLocator: q.Get("record_locator"),
		TicketNumber:  q.Get("ticket_number"),
		Dialect:       q.Get("dialect"),
		FullText:      q.Get("q"),
	}

	if v := q.Get("eligible"); v != "" {
		eligible, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "eligible must be true or false")
			return
		}
		p.Eligible = &eligible
	}

	var err error
	if p.Limit, err = intParam(q.Get("limit"), storage.DefaultLimit); err != nil || p.Limit > maxQueryLimit {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
		return
	}
	if p.Offset, err = intParam(q.Get("offset"), 0); err != nil {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	records, err := s.store.Query(r.Context(), p)
	if err != nil {
		s.metrics.ObserveError("query")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*storage.Record{}
	}

	writeJSON(w, http.StatusOK, ListResponse{Records: records, Limit: p.Limit, Offset: p.Offset})
}

// StatsResponse is the JSON response for GET /api/v1/parses/stats.
type StatsResponse struct {
	Total     int64            `json:"total"`
	ByDialect map[string]int64 `json:"by_dialect"`
}

func (s *Server) handleParseStats(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "storage is not configured")
		return
	}

	counts, err := s.store.CountByDialect(r.Context())
	if err != nil {
		s.metrics.ObserveError("stats")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := StatsResponse{ByDialect: make(map[string]int64, len(counts))}
	for dialect, n := range counts {
		resp.ByDialect[dialect] = n
		resp.Total += n
	}
	writeJSON(w, http.StatusOK, resp)
}

// Helper functions.

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 || (n == 0 && def > 0) {
		return 0, errors.New("out of range")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

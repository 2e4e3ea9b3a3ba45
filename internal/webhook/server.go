// Package webhook receives SnapAPI batch callbacks and exposes the job ledger over HTTP.
package webhook

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/snapapi-go/internal/ledger"
	"github.com/sells-group/snapapi-go/internal/storage"
	"github.com/sells-group/snapapi-go/internal/store"
	"github.com/sells-group/snapapi-go/pkg/snapapi"
)

// SecretHeader carries the shared webhook secret.
const SecretHeader = "X-Webhook-Secret"

const maxBodyBytes = 32 << 20

// Config configures the receiver.
type Config struct {
	// Secret, when set, must match the X-Webhook-Secret header on callbacks.
	Secret         string
	AllowedOrigins []string
}

// Server routes webhook and ledger requests.
type Server struct {
	cfg      Config
	store    store.Store
	recorder *ledger.Recorder
	logger   *zap.Logger
	router   chi.Router
}

// New builds a Server. blobs may be nil, in which case inline capture data
// in callbacks is not persisted.
func New(st store.Store, blobs storage.Storage, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	s := &Server{
		cfg:      cfg,
		store:    st,
		recorder: ledger.New(st, blobs, logger),
		logger:   logger,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", SecretHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/webhooks/batch", s.handleBatchWebhook)
	r.Get("/jobs", s.handleListJobs)
	r.Get("/jobs/{id}", s.handleGetJob)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) authorized(r *http.Request) bool {
	if s.cfg.Secret == "" {
		return true
	}
	got := r.Header.Get(SecretHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.Secret)) == 1
}

func (s *Server) handleBatchWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid webhook secret")
		return
	}

	var res snapapi.BatchResult
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&res); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if res.JobID == "" {
		writeError(w, http.StatusBadRequest, "jobId is required")
		return
	}

	job, n, err := s.recorder.ApplyBatch(r.Context(), &res)
	if err != nil {
		s.logger.Error("batch webhook failed", zap.String("job_id", res.JobID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to record batch")
		return
	}

	s.logger.Info("batch webhook recorded",
		zap.String("job_id", job.ID),
		zap.String("remote_id", res.JobID),
		zap.String("status", job.Status),
		zap.Int64("captures", n),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"job":      job,
		"captures": n,
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.JobFilter{
		Kind:   store.JobKind(q.Get("kind")),
		Status: q.Get("status"),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	jobs, err := s.store.ListJobs(r.Context(), filter)
	if err != nil {
		s.logger.Error("list jobs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []store.Job{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := s.store.GetJob(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		s.logger.Error("get job failed", zap.String("job_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	captures, err := s.store.ListCaptures(r.Context(), job.ID)
	if err != nil {
		s.logger.Error("list captures failed", zap.String("job_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load captures")
		return
	}
	if captures == nil {
		captures = []store.Capture{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": job, "captures": captures})
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

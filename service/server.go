// Package service exposes the finder and the analysis pipeline over HTTP.
// Analyses run as background jobs held in memory; clients poll for status.
package service

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/gaurav-prasanna/ordinancepipe/core"
	"github.com/gaurav-prasanna/ordinancepipe/finder"
)

//go:embed static/*
var staticFS embed.FS

// State is a job's lifecycle state.
type State string

const (
	StatePending State = "PENDING"
	StateStarted State = "STARTED"
	StateSuccess State = "SUCCESS"
	StateFailure State = "FAILURE"
)

// Analyzer runs the pipeline for one document.
type Analyzer interface {
	Run(ctx context.Context, url string, rubric core.Rubric) (*core.Analysis, error)
}

// Finder turns a city name into an ordinance link.
type Finder interface {
	Find(ctx context.Context, city string) (*finder.Result, error)
}

// RubricSource supplies the current rubric.
type RubricSource interface {
	Rubric() (core.Rubric, error)
}

// Resolver maps a landing page to a document URL.
type Resolver interface {
	Resolve(ctx context.Context, url string) (string, error)
}

// Job is one submitted analysis.
type Job struct {
	ID        string         `json:"job_id"`
	Link      string         `json:"link"`
	State     State          `json:"state"`
	Result    *core.Analysis `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorKind core.Kind      `json:"error_kind,omitempty"`
	Created   time.Time      `json:"created"`
	Updated   time.Time      `json:"updated"`
}

// Server holds the job table and the HTTP handlers.
type Server struct {
	analyzer Analyzer
	finder   Finder
	rubrics  RubricSource
	resolver Resolver
	sem      *semaphore.Weighted
	logger   *slog.Logger

	// jobs outlive the request that submitted them.
	baseCtx context.Context
	wg      sync.WaitGroup

	mu   sync.RWMutex
	jobs map[string]*Job
}

// Option configures a Server.
type Option func(*Server)

// WithResolver resolves HTML landing pages to PDFs before analysis.
func WithResolver(r Resolver) Option {
	return func(s *Server) { s.resolver = r }
}

// WithMaxConcurrentJobs bounds how many analyses run at once.
func WithMaxConcurrentJobs(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithContext sets the context background jobs run under.
func WithContext(ctx context.Context) Option {
	return func(s *Server) { s.baseCtx = ctx }
}

// New creates a Server. f may be nil, which disables /api/zoning.
func New(a Analyzer, f Finder, rubrics RubricSource, opts ...Option) *Server {
	s := &Server{
		analyzer: a,
		finder:   f,
		rubrics:  rubrics,
		sem:      semaphore.NewWeighted(4),
		logger:   slog.Default(),
		baseCtx:  context.Background(),
		jobs:     make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	static, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /api/zoning", s.handleZoning)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/status/{id}", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	return s.logRequests(mux)
}

// Submit queues an analysis of link and returns the job id.
func (s *Server) Submit(link string) string {
	now := time.Now().UTC()
	job := &Job{
		ID:      uuid.New().String(),
		Link:    link,
		State:   StatePending,
		Created: now,
		Updated: now,
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(job.ID, link)
	s.logger.Info("service.job_submitted", "job_id", job.ID, "link", link)
	return job.ID
}

// Job returns a snapshot of the job with id.
func (s *Server) Job(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Wait blocks until every submitted job has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) run(id, link string) {
	defer s.wg.Done()
	ctx := s.baseCtx

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.finish(id, nil, err)
		return
	}
	defer s.sem.Release(1)
	s.update(id, func(j *Job) { j.State = StateStarted })

	rubric, err := s.rubrics.Rubric()
	if err != nil {
		s.finish(id, nil, err)
		return
	}
	if s.resolver != nil {
		resolved, err := s.resolver.Resolve(ctx, link)
		if err != nil {
			s.finish(id, nil, core.Ensure(err, core.KindFetch, "failed to locate PDF"))
			return
		}
		link = resolved
	}
	result, err := s.analyzer.Run(ctx, link, rubric)
	s.finish(id, result, err)
}

func (s *Server) finish(id string, result *core.Analysis, err error) {
	s.update(id, func(j *Job) {
		if err != nil {
			j.State = StateFailure
			j.Error = err.Error()
			j.ErrorKind = core.KindOf(err)
			return
		}
		j.State = StateSuccess
		j.Result = result
	})
	if err != nil {
		s.logger.Error("service.job_failed", "job_id", id, "error", err)
	} else {
		s.logger.Info("service.job_succeeded", "job_id", id)
	}
}

func (s *Server) update(id string, fn func(j *Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		fn(j)
		j.Updated = time.Now().UTC()
	}
}

func (s *Server) handleZoning(w http.ResponseWriter, r *http.Request) {
	if s.finder == nil {
		writeError(w, http.StatusNotImplemented, "finder is not configured")
		return
	}
	var req struct {
		City *string `json:"city"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.City == nil {
		writeError(w, http.StatusBadRequest, "City name is required")
		return
	}
	city := strings.TrimSpace(*req.City)
	if city == "" {
		writeError(w, http.StatusBadRequest, "City name cannot be empty")
		return
	}

	res, err := s.finder.Find(r.Context(), city)
	switch {
	case errors.Is(err, finder.ErrIncomplete):
		writeError(w, http.StatusNotFound, "Could not find zoning ordinance information")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Link string `json:"link"`
	}
	// A malformed body is treated like an empty one.
	_ = json.NewDecoder(r.Body).Decode(&req)
	link := strings.TrimSpace(req.Link)
	if link == "" {
		writeError(w, http.StatusBadRequest, "Missing 'link'")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"job_id": s.Submit(link)})
}

type statusResponse struct {
	State  State          `json:"state"`
	Result *core.Analysis `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
	Kind   core.Kind      `json:"error_kind,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.Job(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job id")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		State:  job.State,
		Result: job.Result,
		Error:  job.Error,
		Kind:   job.ErrorKind,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("service.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleIndex serves the lookup page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "index page missing")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

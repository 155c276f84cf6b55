package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-indexer/internal/logger"
)

const (
	defaultRunLimit = 20
	shutdownTimeout = 5 * time.Second
)

// Ports aggregates the driving ports the API serves.
type Ports struct {
	Sources  driving.SourceService
	Indexing driving.IndexingService

	// Search is optional; without it /v1/search answers 501.
	Search driving.SearchService

	// Metrics is optional; without it /metrics is not mounted.
	Metrics http.Handler
}

// Server is the admin HTTP API.
type Server struct {
	ports  Ports
	router chi.Router
}

// NewServer builds the router.
func NewServer(ports Ports) (*Server, error) {
	if ports.Sources == nil || ports.Indexing == nil {
		return nil, fmt.Errorf("%w: source and indexing services are required", domain.ErrInvalidInput)
	}
	s := &Server{ports: ports}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.ports.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.ports.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/sources", s.handleListSources)
		r.Post("/runs", s.handleRunAll)
		r.Get("/search", s.handleSearch)

		r.Route("/sources/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSource)
			r.Get("/status", s.handleStatus)
			r.Get("/items", s.handleItem)
			r.Get("/runs", s.handleRuns)
			r.Post("/runs", s.handleRunNow)
		})
	})
	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	defer stop()

	logger.Info("http: listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.ports.Sources.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]sourceView, len(sources))
	for i, src := range sources {
		out[i] = toSourceView(src)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	src, err := s.ports.Sources.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSourceView(*src))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.ports.Sources.Get(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	counts, err := s.ports.Indexing.ItemCounts(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	last, err := s.ports.Indexing.LastSuccessfulRun(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	view := statusView{
		SourceID: id,
		Running:  s.ports.Indexing.IsRunning(id),
		Counts:   make(map[string]int, len(counts)),
	}
	for state, n := range counts {
		view.Counts[string(state)] = n
	}
	if last != nil {
		rv := toRunView(*last)
		view.LastSuccess = &rv
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, fmt.Errorf("%w: path is required", domain.ErrInvalidInput))
		return
	}
	item, err := s.ports.Indexing.ItemStatus(r.Context(), chi.URLParam(r, "id"), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemView(*item))
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultRunLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	runs, err := s.ports.Indexing.RunHistory(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]runView, len(runs))
	for i, run := range runs {
		out[i] = toRunView(run)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRunNow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ports.Indexing.RunNow(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"source_id": id, "status": "queued"})
}

func (s *Server) handleRunAll(w http.ResponseWriter, r *http.Request) {
	if err := s.ports.Indexing.RunAll(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.ports.Search == nil {
		writeError(w, domain.ErrNotImplemented)
		return
	}
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	opts := domain.SearchOptions{Limit: limit}
	for _, id := range q["source"] {
		if id = strings.TrimSpace(id); id != "" {
			opts.SourceIDs = append(opts.SourceIDs, id)
		}
	}

	results, err := s.ports.Search.Search(r.Context(), q.Get("q"), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]searchView, len(results))
	for i, res := range results {
		out[i] = searchView{
			SourceID:   res.SourceID,
			Path:       res.Path,
			Title:      res.Title,
			ChunkIndex: res.ChunkIndex,
			Snippet:    res.Snippet,
			Score:      res.Score,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, name)
	}
	return n, nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRunInProgress), errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrServiceClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logger.Error("http: %v", err)
	}
	writeJSON(w, code, errorView{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusRecorder captures the response code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		logger.Debug("http: %s %s -> %d (%s)", r.Method, route, rec.status, time.Since(start).Round(time.Microsecond))
	})
}

package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	legacyrouter "github.com/getkin/kin-openapi/routers/legacy"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	essay "github.com/markgewhite/agentic-essay-writer"
	"github.com/markgewhite/agentic-essay-writer/internal/config"
	"github.com/markgewhite/agentic-essay-writer/internal/logging"
	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/session"
)

//go:embed openapi.yaml
var rawSpec []byte

// DefaultPollInterval is how often an event stream re-reads a run that is
// driven by another process.
const DefaultPollInterval = 2 * time.Second

// Engine is the subset of essay.Engine the server needs.
type Engine interface {
	Start(ctx context.Context, req essay.Request) (*domain.Run, error)
	Resume(ctx context.Context, runID string, observers ...session.Observer) (*domain.Run, error)
	Step(ctx context.Context, runID string) (*domain.Run, error)
	Inspect(ctx context.Context, runID string) (*domain.Run, error)
	Artifact(ctx context.Context, runID string) (domain.Artifact, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, runID string) error
}

// Server serves the run API.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	spec    *openapi3.T
	router  routers.Router
	metrics http.Handler
	logger  *slog.Logger
	poll    time.Duration

	// Background drives outlive the request that started them.
	baseCtx context.Context
	wg      sync.WaitGroup
	mu      sync.Mutex
	active  map[string]bool
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithBaseContext bounds background drives. Cancelling it interrupts them
// between steps.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Server) {
		s.baseCtx = ctx
	}
}

// WithPollInterval sets how often event streams re-read their run.
func WithPollInterval(d time.Duration) Option {
	return func(s *Server) {
		s.poll = d
	}
}

// NewServer loads and validates the embedded API contract.
func NewServer(engine Engine, opts ...Option) (*Server, error) {
	s := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
		poll:    DefaultPollInterval,
		baseCtx: context.Background(),
		active:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	loader := openapi3.NewLoader()
	spec, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI spec: %w", err)
	}
	if err := spec.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}
	router, err := legacyrouter.NewRouter(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to build OpenAPI router: %w", err)
	}
	s.spec = spec
	s.router = router
	return s, nil
}

// NewHandler creates a Server and returns its handler.
func NewHandler(engine Engine, opts ...Option) (http.Handler, error) {
	s, err := NewServer(engine, opts...)
	if err != nil {
		return nil, err
	}
	return s.Handler(), nil
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/runs", func(r chi.Router) {
		r.Use(s.validate)
		r.Get("/", s.ListRuns)
		r.Post("/", s.StartRun)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetRun)
			r.Delete("/", s.DeleteRun)
			r.Post("/resume", s.ResumeRun)
			r.Post("/step", s.StepRun)
			r.Get("/ledger", s.GetLedger)
			r.Get("/artifact", s.GetArtifact)
			r.Get("/events", s.SubscribeEvents)
		})
	})
	return r
}

// Wait blocks until every background drive has returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

// validate rejects requests that do not match the API contract.
func (s *Server) validate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, params, err := s.router.FindRoute(r)
		if err != nil {
			// Not part of the contract: let chi answer 404/405.
			next.ServeHTTP(w, r)
			return
		}
		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: params,
			Route:      route,
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			s.logger.Warn("request rejected", "path", r.URL.Path, "err", err)
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Essay Writer API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

type startBody struct {
	essay.Request `mapstructure:",squash"`
	Wait          bool `mapstructure:"wait"`
}

// StartRun handles POST /runs.
func (s *Server) StartRun(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	var body startBody
	if err := config.Decode(raw, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	run, err := s.Engine.Start(r.Context(), body.Request)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if body.Wait {
		run, err = s.Engine.Resume(r.Context(), run.ID, s.notify)
		if err != nil && run == nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, domain.SummaryOf(run))
		return
	}

	if err := s.drive(run.ID); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/runs/"+run.ID)
	writeJSON(w, http.StatusAccepted, domain.SummaryOf(run))
}

// ResumeRun handles POST /runs/{id}/resume.
func (s *Server) ResumeRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.Engine.Inspect(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if run.Status.Finished() {
		s.writeError(w, domain.ErrRunFinished)
		return
	}
	if err := s.drive(run.ID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, domain.SummaryOf(run))
}

// StepRun handles POST /runs/{id}/step.
func (s *Server) StepRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.driving(id) {
		s.writeError(w, errDriving)
		return
	}
	run, err := s.Engine.Step(r.Context(), id)
	if run == nil || errors.Is(err, domain.ErrRunFinished) {
		s.writeError(w, err)
		return
	}
	s.Streams.Broadcast(id)
	// A failed step is still a committed step: report the failed run.
	writeJSON(w, http.StatusOK, domain.SummaryOf(run))
}

// GetRun handles GET /runs/{id}. The ledger is served separately.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.Engine.Inspect(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	run.Ledger = nil
	writeJSON(w, http.StatusOK, run)
}

// DeleteRun handles DELETE /runs/{id}.
func (s *Server) DeleteRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.driving(id) {
		s.writeError(w, errDriving)
		return
	}
	if err := s.Engine.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRuns handles GET /runs.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]domain.RunSummary, 0, len(ids))
	for _, id := range ids {
		run, err := s.Engine.Inspect(r.Context(), id)
		if errors.Is(err, domain.ErrRunNotFound) {
			continue // deleted meanwhile
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		out = append(out, domain.SummaryOf(run))
	}
	writeJSON(w, http.StatusOK, out)
}

type ledgerBody struct {
	RunID   string               `json:"run_id"`
	Total   int                  `json:"total"`
	Entries []domain.LedgerEntry `json:"entries"`
}

// GetLedger handles GET /runs/{id}/ledger.
func (s *Server) GetLedger(w http.ResponseWriter, r *http.Request) {
	run, err := s.Engine.Inspect(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	ledger := run.Ledger
	if ledger == nil {
		ledger = domain.NewLedger()
	}
	entries := ledger.Since(queryInt(r, "since"))
	if role := r.URL.Query().Get("role"); role != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if string(e.Role) == role {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, ledgerBody{RunID: run.ID, Total: ledger.Len(), Entries: entries})
}

// GetArtifact handles GET /runs/{id}/artifact.
func (s *Server) GetArtifact(w http.ResponseWriter, r *http.Request) {
	art, err := s.Engine.Artifact(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, art)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "essay-http",
		"version":     essay.Version,
		"api_version": s.spec.Info.Version,
	})
}

var errDriving = errors.New("run is being driven by this server")

// drive resumes runID in the background unless it already is.
func (s *Server) drive(runID string) error {
	s.mu.Lock()
	if s.active[runID] {
		s.mu.Unlock()
		return errDriving
	}
	s.active[runID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.active, runID)
			s.mu.Unlock()
			s.Streams.Broadcast(runID)
		}()
		if _, err := s.Engine.Resume(s.baseCtx, runID, s.notify); err != nil {
			s.logger.Warn("background run stopped", "run_id", runID, "err", err)
		}
	}()
	return nil
}

func (s *Server) driving(runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[runID]
}

func (s *Server) notify(run *domain.Run) {
	s.Streams.Broadcast(run.ID)
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var cfgErr *domain.ConfigurationError
	switch {
	case errors.Is(err, domain.ErrRunNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.As(err, &cfgErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Field: cfgErr.Field})
	case errors.Is(err, domain.ErrRunFinished), errors.Is(err, domain.ErrRunLocked), errors.Is(err, errDriving):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		s.logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

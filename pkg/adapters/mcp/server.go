package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	essay "github.com/markgewhite/agentic-essay-writer"
	"github.com/markgewhite/agentic-essay-writer/internal/config"
	"github.com/markgewhite/agentic-essay-writer/internal/logging"
	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/session"
)

const (
	runsURI        = "essay://runs"
	runURITemplate = "essay://runs/{id}"
)

// Engine defines what the MCP server needs from essay.Engine.
type Engine interface {
	Start(ctx context.Context, req essay.Request) (*domain.Run, error)
	Resume(ctx context.Context, runID string, observers ...session.Observer) (*domain.Run, error)
	Step(ctx context.Context, runID string) (*domain.Run, error)
	Inspect(ctx context.Context, runID string) (*domain.Run, error)
	Artifact(ctx context.Context, runID string) (domain.Artifact, error)
	List(ctx context.Context) ([]string, error)
}

// LedgerResponse is the result of get_ledger.
type LedgerResponse struct {
	RunID   string               `json:"run_id" jsonschema_description:"The run the entries belong to"`
	Total   int                  `json:"total" jsonschema_description:"Number of steps recorded so far"`
	Entries []domain.LedgerEntry `json:"entries" jsonschema_description:"Ledger entries from the requested index"`
}

// RunsResponse is the result of list_runs.
type RunsResponse struct {
	Runs []domain.RunSummary `json:"runs" jsonschema_description:"Every stored run"`
}

// Server exposes the essay engine as an MCP server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		logger:    logger,
		mcpServer: server.NewMCPServer("essay-mcp", strings.TrimSpace(essay.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("write_essay",
		mcp.WithDescription("Write an essay on a topic. Runs the editor, researcher, writer and critic until the essay is approved or a limit is reached. Long running."),
		mcp.WithString("topic", mcp.Required(), mcp.Description("The essay topic")),
		mcp.WithString("id", mcp.Description("Run ID (optional). An existing unfinished run with this ID is resumed.")),
		mcp.WithObject("limits", mcp.Description("Iteration limits: max_editing_iterations, max_writing_iterations, max_critique_cycles, max_queries, max_results_per_query, max_essay_length")),
		mcp.WithObject("models", mcp.Description("Model per role: editor, researcher, writer, critic")),
		mcp.WithOutputSchema[domain.Artifact](),
	), mcp.NewStructuredToolHandler(s.handleWriteEssay))

	s.mcpServer.AddTool(mcp.NewTool("start_run",
		mcp.WithDescription("Create a run without executing it. Use step_run to advance it one agent at a time."),
		mcp.WithString("topic", mcp.Required(), mcp.Description("The essay topic")),
		mcp.WithString("id", mcp.Description("Run ID (optional)")),
		mcp.WithObject("limits", mcp.Description("Iteration limits")),
		mcp.WithObject("models", mcp.Description("Model per role")),
		mcp.WithOutputSchema[domain.RunSummary](),
	), mcp.NewStructuredToolHandler(s.handleStartRun))

	s.mcpServer.AddTool(mcp.NewTool("step_run",
		mcp.WithDescription("Execute exactly one agent step of a run."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Run ID")),
		mcp.WithOutputSchema[domain.RunSummary](),
	), mcp.NewStructuredToolHandler(s.handleStepRun))

	s.mcpServer.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List stored runs."),
		mcp.WithOutputSchema[RunsResponse](),
	), mcp.NewStructuredToolHandler(s.handleListRuns))

	s.mcpServer.AddTool(mcp.NewTool("get_ledger",
		mcp.WithDescription("Get the step ledger of a run: one entry per agent step with the state changes it made."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Run ID")),
		mcp.WithNumber("since", mcp.Description("First ledger index to return (default 0)")),
		mcp.WithString("role", mcp.Description("Only entries of this role"), mcp.Enum("editor", "researcher", "writer", "critic")),
		mcp.WithOutputSchema[LedgerResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetLedger))

	s.mcpServer.AddTool(mcp.NewTool("get_essay",
		mcp.WithDescription("Get the essay of a run. complete is false when the run did not finish with an approved or exhausted essay."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Run ID")),
		mcp.WithOutputSchema[domain.Artifact](),
	), mcp.NewStructuredToolHandler(s.handleGetEssay))
}

type runArgs struct {
	essay.Request `mapstructure:",squash"`
}

type ledgerArgs struct {
	ID    string `mapstructure:"id"`
	Since int    `mapstructure:"since"`
	Role  string `mapstructure:"role"`
}

type idArgs struct {
	ID string `mapstructure:"id"`
}

func (s *Server) handleWriteEssay(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (domain.Artifact, error) {
	var in runArgs
	if err := config.Decode(args, &in); err != nil {
		return domain.Artifact{}, err
	}
	run, err := s.engine.Start(ctx, in.Request)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("start failed: %w", err)
	}
	run, err = s.engine.Resume(ctx, run.ID)
	if run == nil {
		return domain.Artifact{}, fmt.Errorf("run failed: %w", err)
	}
	if err != nil {
		s.logger.Warn("MCP write_essay: run did not complete", "run_id", run.ID, "err", err)
	}
	return domain.ArtifactOf(run), nil
}

func (s *Server) handleStartRun(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (domain.RunSummary, error) {
	var in runArgs
	if err := config.Decode(args, &in); err != nil {
		return domain.RunSummary{}, err
	}
	run, err := s.engine.Start(ctx, in.Request)
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("start failed: %w", err)
	}
	return domain.SummaryOf(run), nil
}

func (s *Server) handleStepRun(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (domain.RunSummary, error) {
	var in idArgs
	if err := config.Decode(args, &in); err != nil {
		return domain.RunSummary{}, err
	}
	run, err := s.engine.Step(ctx, in.ID)
	if run == nil || errors.Is(err, domain.ErrRunFinished) {
		return domain.RunSummary{}, fmt.Errorf("step failed: %w", err)
	}
	return domain.SummaryOf(run), nil
}

func (s *Server) handleListRuns(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (RunsResponse, error) {
	ids, err := s.engine.List(ctx)
	if err != nil {
		return RunsResponse{}, err
	}
	out := RunsResponse{Runs: make([]domain.RunSummary, 0, len(ids))}
	for _, id := range ids {
		run, err := s.engine.Inspect(ctx, id)
		if errors.Is(err, domain.ErrRunNotFound) {
			continue
		}
		if err != nil {
			return RunsResponse{}, err
		}
		out.Runs = append(out.Runs, domain.SummaryOf(run))
	}
	return out, nil
}

func (s *Server) handleGetLedger(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (LedgerResponse, error) {
	var in ledgerArgs
	if err := config.Decode(args, &in); err != nil {
		return LedgerResponse{}, err
	}
	if in.Since < 0 {
		return LedgerResponse{}, fmt.Errorf("since must not be negative")
	}
	run, err := s.engine.Inspect(ctx, in.ID)
	if err != nil {
		return LedgerResponse{}, err
	}
	ledger := run.Ledger
	if ledger == nil {
		ledger = domain.NewLedger()
	}
	out := LedgerResponse{RunID: run.ID, Total: ledger.Len(), Entries: []domain.LedgerEntry{}}
	for _, e := range ledger.Since(in.Since) {
		if in.Role == "" || string(e.Role) == in.Role {
			out.Entries = append(out.Entries, e)
		}
	}
	return out, nil
}

func (s *Server) handleGetEssay(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (domain.Artifact, error) {
	var in idArgs
	if err := config.Decode(args, &in); err != nil {
		return domain.Artifact{}, err
	}
	return s.engine.Artifact(ctx, in.ID)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(runsURI, "Essay runs",
		mcp.WithResourceDescription("Summaries of every stored run"),
		mcp.WithMIMEType("application/json"),
	), s.readRuns)

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(runURITemplate, "Essay",
		mcp.WithTemplateDescription("The current essay of a run, in Markdown"),
		mcp.WithTemplateMIMEType("text/markdown"),
	), s.readEssay)
}

func (s *Server) readRuns(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	runs, err := s.handleListRuns(ctx, mcp.CallToolRequest{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	data, err := json.Marshal(runs.Runs)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      runsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) readEssay(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id := strings.TrimPrefix(uri, runsURI+"/")
	if id == uri || id == "" || strings.Contains(id, "/") {
		return nil, fmt.Errorf("invalid run URI %q", uri)
	}
	art, err := s.engine.Artifact(ctx, id)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     renderMarkdown(art),
		},
	}, nil
}

func renderMarkdown(art domain.Artifact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", art.Topic)
	if art.Thesis != "" {
		fmt.Fprintf(&b, "> %s\n\n", art.Thesis)
	}
	if !art.Complete {
		fmt.Fprintf(&b, "_Draft only: run is %s._\n\n", art.Status)
	}
	b.WriteString(art.Essay)
	b.WriteString("\n")
	return b.String()
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpAdapter "github.com/markgewhite/agentic-essay-writer/pkg/adapters/http"
	mcpAdapter "github.com/markgewhite/agentic-essay-writer/pkg/adapters/mcp"
	"github.com/markgewhite/agentic-essay-writer/pkg/observability"
)

// shutdownTimeout bounds how long in-flight requests get after a signal.
const shutdownTimeout = 5 * time.Second

// ServeOptions configure the HTTP and MCP servers.
type ServeOptions struct {
	ConfigPath string
	// Addr overrides server.addr from the configuration.
	Addr    string
	Offline bool
	Debug   bool
}

// Serve runs the HTTP API until ctx is cancelled, then drains requests and
// interrupts background drives between steps.
func Serve(ctx context.Context, opts ServeOptions) error {
	cfg, err := LoadConfig(opts.ConfigPath, opts.Debug)
	if err != nil {
		return err
	}
	addr := cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	logger := createLogger(cfg)
	metrics := observability.NewMetrics()

	stack, err := NewStack(cfg, EngineOptions{Offline: opts.Offline, Metrics: metrics, Logger: logger})
	if err != nil {
		return err
	}
	defer stack.Close()

	api, err := httpAdapter.NewServer(stack.Engine,
		httpAdapter.WithMetrics(metrics.Handler()),
		httpAdapter.WithLogger(logger),
		httpAdapter.WithBaseContext(ctx),
	)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting essay server", "address", addr, "store", cfg.Store.Kind, "offline", opts.Offline)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("Shutting down essay server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", shutdownTimeout, err)
		}
		// ctx is also the base of every background drive.
		api.Wait()
		logger.Info("Essay server stopped gracefully")
		return nil
	}
}

// MCPOptions configure the MCP server.
type MCPOptions struct {
	ServeOptions
	// Transport is stdio or sse.
	Transport string
	BaseURL   string
}

// ServeMCP exposes the engine as MCP tools on stdio or SSE.
func ServeMCP(ctx context.Context, opts MCPOptions) error {
	cfg, err := LoadConfig(opts.ConfigPath, opts.Debug)
	if err != nil {
		return err
	}
	logger := createLogger(cfg)
	stack, err := NewStack(cfg, EngineOptions{Offline: opts.Offline, Logger: logger})
	if err != nil {
		return err
	}
	defer stack.Close()

	srv := mcpAdapter.NewServer(stack.Engine, logger)
	switch opts.Transport {
	case "", "stdio":
		logger.Info("Starting essay MCP server (stdio)")
		return srv.ServeStdio()
	case "sse":
		addr := cfg.Server.Addr
		if opts.Addr != "" {
			addr = opts.Addr
		}
		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost" + addr
		}
		return srv.ServeSSE(ctx, addr, baseURL)
	default:
		return fmt.Errorf("unknown transport %q (stdio or sse)", opts.Transport)
	}
}

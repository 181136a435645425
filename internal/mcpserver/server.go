// Package mcpserver exposes the Confluence/GitHub and Jira clients as MCP
// tools and resources. Each server is served over stdio or streamable HTTP.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/rushi-auxo/fivetran-mcp/internal/config"
)

const (
	shutdownTimeout = 5 * time.Second
	endpointPath    = "/mcp"
)

// Server wraps an MCP server with its tools registered.
type Server struct {
	mcp    *server.MCPServer
	logger *slog.Logger
	tools  []string
}

func newServer(name, instructions string, lg *slog.Logger) *Server {
	if lg == nil {
		lg = slog.Default()
	}
	return &Server{
		mcp: server.NewMCPServer(
			name,
			config.Version,
			server.WithToolCapabilities(true),
			server.WithResourceCapabilities(false, false),
			server.WithInstructions(instructions),
			server.WithRecovery(),
		),
		logger: lg,
	}
}

// MCP returns the underlying server, mainly for in-process clients.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// Tools lists the registered tool names in registration order.
func (s *Server) Tools() []string { return s.tools }

func (s *Server) addTools(tools ...server.ServerTool) {
	for _, t := range tools {
		s.mcp.AddTool(t.Tool, s.logged(t.Tool.Name, t.Handler))
		s.tools = append(s.tools, t.Tool.Name)
	}
}

// logged records each tool call and whether it failed.
func (s *Server) logged(name string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		res, err := h(ctx, req)
		failed := err != nil || (res != nil && res.IsError)
		s.logger.InfoContext(ctx, "mcp: tool call", "tool", name, "failed", failed, "duration", time.Since(start))
		return res, err
	}
}

// ServeStdio runs the server over stdin/stdout until ctx is cancelled or
// stdin is closed.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(os.Stderr, "[mcp] ", log.LstdFlags))

	s.logger.InfoContext(ctx, "mcp server listening on stdio")
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("mcp stdio server: %w", err)
	}
	return nil
}

// ServeHTTP runs the server as a streamable HTTP endpoint at /mcp on addr
// until ctx is cancelled.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("mcp http server: %w", err)
	}
	return s.serveHTTP(ctx, ln)
}

func (s *Server) serveHTTP(ctx context.Context, ln net.Listener) error {
	stream := server.NewStreamableHTTPServer(s.mcp, server.WithEndpointPath(endpointPath))
	mux := http.NewServeMux()
	mux.Handle(endpointPath, stream)
	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.InfoContext(ctx, "mcp server listening on http", "addr", ln.Addr().String(), "endpoint", endpointPath)
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mcp http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.InfoContext(ctx, "mcp server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(httpSrv.Shutdown(shutdownCtx), stream.Shutdown(shutdownCtx))
	})
	return g.Wait()
}

// Serve dispatches on the configured transport.
func (s *Server) Serve(ctx context.Context, cfg config.Server) error {
	switch cfg.Transport {
	case "http":
		return s.ServeHTTP(ctx, cfg.Addr)
	default:
		return s.ServeStdio(ctx)
	}
}

package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/signalkb/internal/logger"
)

// Version is reported to clients during initialisation.
const Version = "0.1.0"

const instructions = `signalkb holds one knowledge base per company, built from scraped
LinkedIn pages, websites, news, app store listings and job boards.
Read signalkb://companies to find a company id, then call search_company for
evidence or latest_report for the structured intelligence report. Call
analyze_company only when the report is missing or stale; it is slow.`

// shutdownGrace bounds how long in-flight HTTP requests may finish.
const shutdownGrace = 5 * time.Second

// Server exposes the company knowledge bases over the Model Context Protocol.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates a server and registers the tools and resources the
// configured ports support.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports: ports,
		server: mcp.NewServer(
			&mcp.Implementation{Name: "signalkb", Version: Version},
			&mcp.ServerOptions{Instructions: instructions},
		),
	}
	s.server.AddReceivingMiddleware(logRequests)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// logRequests logs every client request at debug level.
func logRequests(next mcp.MethodHandler) mcp.MethodHandler {
	return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		start := time.Now()
		result, err := next(ctx, method, req)
		if err != nil {
			logger.Debug("mcp %s failed after %s: %v", method, time.Since(start), err)
		} else {
			logger.Debug("mcp %s took %s", method, time.Since(start))
		}
		return result, err
	}
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is
// cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Debug("MCP server listening on %s", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("MCP HTTP shutdown: %v", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Package mcpserver exposes the hook pipeline to coding agents over the
// Model Context Protocol. The server answers for one repository: agents
// can run its hooks, list what is configured and validate the pipeline
// document without shelling out to the latch CLI.
package mcpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mark3labs/latch/internal/logger"
)

// Server manages an embedded MCP HTTP server that exposes run_hooks,
// list_hooks and validate_config tools for one repository.
type Server struct {
	root     string
	cacheDir string
	jobs     int

	mcpServer *server.MCPServer
	stdServer *http.Server
	addr      string
	mu        sync.Mutex
}

// New creates an MCP server for the repository rooted at root. Clones
// and environments go through the cache at cacheDir; jobs bounds hook
// concurrency the same way `latch run --jobs` does.
func New(root, cacheDir string, jobs int) *Server {
	return &Server{
		root:     root,
		cacheDir: cacheDir,
		jobs:     jobs,
	}
}

// Start binds addr and serves the MCP endpoint at /mcp. An empty addr
// picks a random localhost port. Returns the bound address.
func (s *Server) Start(addr string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer != nil {
		return "", fmt.Errorf("server already started")
	}

	s.mcpServer = server.NewMCPServer(
		"latch",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	if err := s.registerTools(); err != nil {
		return "", fmt.Errorf("failed to register tools: %w", err)
	}

	if addr == "" {
		addr = "127.0.0.1:0"
	}
	// Pass the listener straight to Serve so the bound port cannot be
	// taken between discovery and startup.
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("bind %s: %w", addr, err)
	}
	s.addr = listener.Addr().String()

	mux := http.NewServeMux()
	mux.Handle("/mcp", server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithStateLess(true),
	))
	s.stdServer = &http.Server{Handler: mux}

	logger.Debug("Starting MCP server on %s", s.addr)
	stdServer := s.stdServer
	go func() {
		if err := stdServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("MCP server error: %v", err)
		}
	}()

	logger.Debug("MCP server ready on %s", s.addr)
	return s.addr, nil
}

// Stop stops the MCP HTTP server and cleans up resources.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer == nil {
		return nil // Already stopped
	}

	logger.Debug("Stopping MCP server")
	if err := s.stdServer.Shutdown(context.Background()); err != nil {
		logger.Warn("Error stopping MCP server: %v", err)
		return fmt.Errorf("failed to stop server: %w", err)
	}

	s.stdServer = nil
	s.mcpServer = nil
	logger.Debug("MCP server stopped")
	return nil
}

// URL returns the HTTP URL for the MCP server endpoint.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("http://%s/mcp", s.addr)
}

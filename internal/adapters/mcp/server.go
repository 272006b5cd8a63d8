// Package mcp exposes the active-document session as MCP tools over stdio.
package mcp

import (
	"context"
	"errors"
	"io"

	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/docqa/internal/core/ports"
)

const Version = "0.1.0"

var ErrMissingSession = errors.New("mcp: session is required")

type Server struct {
	session ports.SessionService
	topK    int
	mcp     *server.MCPServer
}

// NewServer registers the tools. topK is used when a caller does not pass one.
func NewServer(session ports.SessionService, topK int) (*Server, error) {
	if session == nil {
		return nil, ErrMissingSession
	}
	s := &Server{
		session: session,
		topK:    topK,
		mcp: server.NewMCPServer("docqa", Version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	return s, nil
}

// Serve speaks MCP on the given streams until ctx is cancelled or in closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

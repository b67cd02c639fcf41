// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package mcpserver exposes a shell session to agents as MCP tools over
// stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/marcelocantos/fool/internal/history"
	"github.com/marcelocantos/fool/internal/session"
)

// Tool names.
const (
	ToolRun     = "run"
	ToolHistory = "history"
)

// DefaultHistoryCount is used when the history tool is called without a count.
const DefaultHistoryCount = 10

// Server serves one session. Tool calls run one at a time.
type Server struct {
	sess *session.Session
	mcp  *server.MCPServer
	log  *zap.Logger
}

// New creates a server for sess.
func New(sess *session.Session, version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		sess: sess,
		log:  log,
		mcp: server.NewMCPServer("fool", version,
			server.WithToolCapabilities(false),
			server.WithInstructions("Run shell command lines with pipes and redirections. "+
				"Commands share one working directory, environment and alias table across calls."),
		),
	}

	s.mcp.AddTool(mcp.NewTool(ToolRun,
		mcp.WithDescription("Run one shell command line (pipes |, redirects > >> <, quotes and backslash escapes). "+
			"Returns the exit code, stdout and stderr."),
		mcp.WithString("command", mcp.Required(), mcp.Description("the command line to run")),
	), s.handleRun)

	s.mcp.AddTool(mcp.NewTool(ToolHistory,
		mcp.WithDescription("Recent commands and their outcomes, as role/content messages."),
		mcp.WithNumber("count", mcp.Description("number of recent commands (default 10)")),
	), s.handleHistory)

	return s
}

// Serve reads JSON-RPC requests from in and writes responses to out until
// ctx is cancelled or in is exhausted.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

func (s *Server) handleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(command) == "" {
		return mcp.NewToolResultError("command is empty"), nil
	}

	s.log.Debug("mcp run", zap.String("command", command))
	got := s.sess.RunCaptured(ctx, command)

	text := formatRun(got)
	if got.ExitCode != 0 {
		res := mcp.NewToolResultText(text)
		res.IsError = true
		return res, nil
	}
	return mcp.NewToolResultText(text), nil
}

func formatRun(c session.Captured) string {
	var b strings.Builder
	fmt.Fprintf(&b, "exit code: %d\n", c.ExitCode)
	if c.Stdout != "" {
		b.WriteString("stdout:\n")
		b.WriteString(c.Stdout)
		if !strings.HasSuffix(c.Stdout, "\n") {
			b.WriteByte('\n')
		}
	}
	if c.Stderr != "" {
		b.WriteString("stderr:\n")
		b.WriteString(c.Stderr)
		if !strings.HasSuffix(c.Stderr, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (s *Server) handleHistory(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count := req.GetInt("count", DefaultHistoryCount)
	if count < 0 {
		return mcp.NewToolResultError("count must not be negative"), nil
	}
	msgs := s.sess.History().FormatForAI(count)
	if msgs == nil {
		msgs = []history.Message{}
	}
	data, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

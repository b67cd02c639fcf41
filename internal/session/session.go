// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package session ties the parser, executor, history and AI assistant into
// the parse, execute and record cycle shared by every front-end.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/marcelocantos/fool/internal/ai"
	"github.com/marcelocantos/fool/internal/executor"
	"github.com/marcelocantos/fool/internal/history"
	"github.com/marcelocantos/fool/internal/pipeline"
)

// ErrAINotConfigured is reported for AI queries when no assistant is
// available.
var ErrAINotConfigured = ai.ErrNotConfigured

// Assistant answers AI queries.
type Assistant interface {
	IsConfigured() bool
	Query(ctx context.Context, query string, src ai.Source, w io.Writer) (string, error)
}

// Session runs input lines one at a time.
type Session struct {
	mu     sync.Mutex
	exec   *executor.Executor
	hist   *history.History
	prefix string
	ai     Assistant

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	log    *zap.Logger

	errStyle lipgloss.Style
}

// Option configures a Session.
type Option func(*Session)

// WithAssistant sets the AI assistant.
func WithAssistant(a Assistant) Option {
	return func(s *Session) { s.ai = a }
}

// WithStdio sets the streams used by Run.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(s *Session) {
		s.stdin = stdin
		s.stdout = stdout
		s.stderr = stderr
	}
}

// WithErrorStyle sets the style of the "Error" labels written to stderr.
func WithErrorStyle(st lipgloss.Style) Option {
	return func(s *Session) { s.errStyle = st }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// New creates a session. prefix is the AI trigger prefix.
func New(exec *executor.Executor, hist *history.History, prefix string, opts ...Option) *Session {
	s := &Session{
		exec:   exec,
		hist:   hist,
		prefix: prefix,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		log:    zap.NewNop(),

		errStyle: lipgloss.NewStyle(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// History returns the session's history store.
func (s *Session) History() *history.History {
	return s.hist
}

// Executor returns the session's executor.
func (s *Session) Executor() *executor.Executor {
	return s.exec
}

// Stderr returns the stream used for diagnostics by Run.
func (s *Session) Stderr() io.Writer {
	return s.stderr
}

// TriggerPrefix returns the AI trigger prefix.
func (s *Session) TriggerPrefix() string {
	return s.prefix
}

// Run parses and executes line, returning its exit code.
func (s *Session) Run(ctx context.Context, line string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, line, s.stdin, s.stdout, s.stderr)
}

// Captured is the result of RunCaptured.
type Captured struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// RunCaptured runs line with empty stdin and collects its output.
func (s *Session) RunCaptured(ctx context.Context, line string) Captured {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stdout, stderr bytes.Buffer
	code := s.run(ctx, line, strings.NewReader(""), &stdout, &stderr)
	return Captured{ExitCode: code, Stdout: stdout.String(), Stderr: stderr.String()}
}

func (s *Session) run(ctx context.Context, line string, stdin io.Reader, stdout, stderr io.Writer) int {
	s.exec.SetStdio(stdin, stdout, stderr)
	defer s.exec.SetStdio(s.stdin, s.stdout, s.stderr)

	r := pipeline.Parse(s.prefix, line)
	switch r.Kind {
	case pipeline.KindEmpty:
		return 0
	case pipeline.KindError:
		s.report(stderr, "Parse Error", r.Err)
		return 1
	case pipeline.KindAIQuery:
		return s.query(ctx, r.Query, stdout, stderr)
	case pipeline.KindCommands:
		return s.commands(ctx, line, r.Commands, stderr)
	}
	return 1
}

func (s *Session) commands(ctx context.Context, line string, cmds []pipeline.Command, stderr io.Writer) int {
	s.record(strings.TrimSpace(line))
	s.exec.SetHistory(s.hist.Commands())

	code := 0
	res, err := s.exec.ExecutePipeline(ctx, cmds)
	if err != nil {
		s.report(stderr, "Error", err)
		code = 1
	} else {
		code = res.ExitCode
	}
	s.finish(code, res.Stdout)
	return code
}

func (s *Session) query(ctx context.Context, q string, stdout, stderr io.Writer) int {
	if q == "" {
		fmt.Fprintf(stderr, "Usage: %s <your question>\n", s.prefix)
		return 1
	}
	s.record(s.prefix + " " + q)

	if s.ai == nil || !s.ai.IsConfigured() {
		s.report(stderr, "Error", ErrAINotConfigured)
		s.finish(1, "")
		return 1
	}

	answer, err := s.ai.Query(ctx, q, earlier{s.hist}, stdout)
	if answer != "" && !strings.HasSuffix(answer, "\n") {
		fmt.Fprintln(stdout)
	}
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			s.report(stderr, "Error", err)
		} else {
			s.report(stderr, "AI Error", err)
		}
		s.log.Warn("AI query failed", zap.Error(err))
		s.finish(1, "")
		return 1
	}
	s.finish(0, "")
	return 0
}

func (s *Session) report(w io.Writer, label string, err any) {
	fmt.Fprintf(w, "%s: %v\n", s.errStyle.Render(label), err)
}

// record adds a pending entry. Persistence failures are warnings.
func (s *Session) record(command string) {
	if err := s.hist.Add(history.NewEntry(command)); err != nil {
		s.log.Warn("history compaction failed", zap.String("path", s.hist.Path()), zap.Error(err))
	}
}

func (s *Session) finish(code int, summary string) {
	if err := s.hist.UpdateLastResult(int32(code), summary); err != nil {
		s.log.Warn("history write failed", zap.String("path", s.hist.Path()), zap.Error(err))
	}
}

// earlier presents the history without the entry for the query being
// answered, which is still pending.
type earlier struct {
	h *history.History
}

func (e earlier) FormatForAI(n int) []history.Message {
	entries := e.h.GetRecent(n + 1)
	if len(entries) > 0 {
		entries = entries[:len(entries)-1]
	}
	return history.FormatMessages(entries)
}

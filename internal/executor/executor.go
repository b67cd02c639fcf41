// Package executor turns parsed pipelines into running processes. It owns
// the session's environment map and alias table and implements the
// built-in commands.
package executor

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/marcelocantos/fool/internal/pipeline"
)

// Result is the outcome of one pipeline.
type Result struct {
	ExitCode int
	Stdout   string // bounded capture of the final output, when captured
}

// Err converts a non-zero exit code into an *ExitError.
func (r Result) Err() error {
	if r.ExitCode == 0 {
		return nil
	}
	return &ExitError{Code: r.ExitCode}
}

// Executor runs pipelines for one session. It is not safe for concurrent
// use; callers serialize access.
type Executor struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	env           map[string]string
	aliases       map[string][]string
	history       []string
	triggerPrefix string
	lastExitCode  int
	sourceDepth   int

	exit    func(int)
	log     *zap.Logger
	onSpawn func(*exec.Cmd)
}

// Option configures an Executor.
type Option func(*Executor)

// WithStdio sets the streams inherited by children and used by built-ins.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(e *Executor) {
		e.stdin = stdin
		e.stdout = stdout
		e.stderr = stderr
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// WithTriggerPrefix sets the AI trigger prefix used when sourcing files.
func WithTriggerPrefix(prefix string) Option {
	return func(e *Executor) { e.triggerPrefix = prefix }
}

// WithExitHandler replaces os.Exit for the exit built-in. A handler that
// returns makes exit report its code as an ordinary result.
func WithExitHandler(fn func(int)) Option {
	return func(e *Executor) { e.exit = fn }
}

// New creates an Executor whose environment starts as a copy of the
// process environment.
func New(opts ...Option) *Executor {
	e := &Executor{
		stdin:         os.Stdin,
		stdout:        os.Stdout,
		stderr:        os.Stderr,
		env:           make(map[string]string),
		aliases:       make(map[string][]string),
		triggerPrefix: "!",
		exit:          os.Exit,
		log:           zap.NewNop(),
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			e.env[k] = v
		}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetStdio replaces the streams used by subsequent pipelines.
func (e *Executor) SetStdio(stdin io.Reader, stdout, stderr io.Writer) {
	e.stdin = stdin
	e.stdout = stdout
	e.stderr = stderr
}

// LastExitCode returns the code of the most recent pipeline or built-in.
func (e *Executor) LastExitCode() int {
	return e.lastExitCode
}

// SetHistory replaces the command list shown by the history built-in.
func (e *Executor) SetHistory(commands []string) {
	e.history = append(e.history[:0], commands...)
}

// Getenv returns a tracked environment variable.
func (e *Executor) Getenv(key string) (string, bool) {
	v, ok := e.env[key]
	return v, ok
}

// Setenv sets a tracked variable. As a side effect the process environment
// is updated too, so that PATH lookups see the change.
func (e *Executor) Setenv(key, value string) {
	e.env[key] = value
	os.Setenv(key, value) //nolint:errcheck
}

// Unsetenv removes a tracked variable from the map and the process
// environment.
func (e *Executor) Unsetenv(key string) {
	delete(e.env, key)
	os.Unsetenv(key) //nolint:errcheck
}

// Environ returns the tracked environment as sorted KEY=VALUE pairs.
func (e *Executor) Environ() []string {
	out := make([]string, 0, len(e.env))
	for k, v := range e.env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// ExecutePipeline runs cmds. A single command naming a built-in runs in
// process; anything else is spawned. The returned error is non-nil only
// when the pipeline could not be set up; the exit code of a pipeline that
// ran is in the Result.
func (e *Executor) ExecutePipeline(ctx context.Context, cmds []pipeline.Command) (Result, error) {
	if len(cmds) == 0 {
		return Result{}, nil
	}

	var (
		res Result
		err error
	)
	if b, ok := LookupBuiltin(cmds[0].Program); ok && len(cmds) == 1 {
		res, err = e.runBuiltin(ctx, b, cmds[0])
	} else {
		res, err = e.runPipeline(ctx, cmds)
	}

	if err != nil {
		e.lastExitCode = 1
		return res, err
	}
	e.lastExitCode = res.ExitCode
	return res, nil
}

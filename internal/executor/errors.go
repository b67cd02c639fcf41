package executor

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strconv"
)

// ExitError represents a command that exited with a non-zero status.
// It carries the exit code so callers can propagate it without extra messaging.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return "exit status " + strconv.Itoa(e.Code)
}

// SpawnError reports a pipeline segment that could not be started.
type SpawnError struct {
	Program string
	Err     error
}

func (e *SpawnError) Error() string {
	if errors.Is(e.Err, exec.ErrNotFound) {
		return e.Program + ": command not found"
	}
	return fmt.Sprintf("%s: %v", e.Program, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// RedirectError reports a redirect target that could not be opened.
type RedirectError struct {
	Path string
	Err  error
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, errnoOf(e.Err))
}

func (e *RedirectError) Unwrap() error { return e.Err }

// BuiltinError is a failure inside a built-in command. Its message carries
// the built-in's name as a prefix.
type BuiltinError struct {
	Name string
	Err  error
}

func (e *BuiltinError) Error() string {
	return e.Name + ": " + e.Err.Error()
}

func (e *BuiltinError) Unwrap() error { return e.Err }

func builtinErrorf(name, format string, args ...any) error {
	return &BuiltinError{Name: name, Err: fmt.Errorf(format, args...)}
}

// errnoOf strips the op and path from a *fs.PathError, which callers
// already report themselves.
func errnoOf(err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}

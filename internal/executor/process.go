package executor

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"syscall"

	"go.uber.org/zap"

	"github.com/marcelocantos/fool/internal/pipeline"
)

// runPipeline spawns every segment, connecting them with pipes, then waits
// for all of them in order. The exit code is the last segment's.
//
// If any segment fails to start, every segment already started is killed
// and reaped before the error is returned.
func (e *Executor) runPipeline(ctx context.Context, cmds []pipeline.Command) (Result, error) {
	n := len(cmds)
	procs := make([]*exec.Cmd, 0, n)
	var (
		nextStdin *os.File // read end of the previous segment's pipe
		capture   *summary
	)

	abort := func(err error) (Result, error) {
		closeFiles(nextStdin)
		for _, p := range procs {
			p.Process.Kill() //nolint:errcheck
			p.Wait()         //nolint:errcheck
		}
		return Result{}, err
	}

	for i, c := range cmds {
		c = e.resolveAlias(c)
		if 0 < i && i < n-1 && (c.StdinRedirect != "" || c.StdoutRedirect != "") {
			e.log.Warn("redirect inside a pipeline breaks the pipe chain",
				zap.Int("segment", i+1), zap.String("program", c.Program))
		}

		cmd := exec.CommandContext(ctx, c.Program, c.Args...)
		cmd.Env = e.Environ()
		cmd.Stderr = e.stderr

		// Files the parent must close once the child holds them.
		var inherited []*os.File

		switch {
		case c.StdinRedirect != "":
			f, err := os.Open(c.StdinRedirect)
			if err != nil {
				return abort(&RedirectError{Path: c.StdinRedirect, Err: err})
			}
			cmd.Stdin = f
			inherited = append(inherited, f)
			closeFiles(nextStdin)
		case i == 0:
			cmd.Stdin = e.stdin
		case nextStdin != nil:
			cmd.Stdin = nextStdin
			inherited = append(inherited, nextStdin)
		}
		nextStdin = nil

		switch {
		case c.StdoutRedirect != "":
			f, err := openOutput(c.StdoutRedirect, c.StdoutAppend)
			if err != nil {
				closeFiles(inherited...)
				return abort(&RedirectError{Path: c.StdoutRedirect, Err: err})
			}
			cmd.Stdout = f
			inherited = append(inherited, f)
		case i == n-1:
			cmd.Stdout, capture = e.finalOutput()
		default:
			r, w, err := os.Pipe()
			if err != nil {
				closeFiles(inherited...)
				return abort(&SpawnError{Program: c.Program, Err: err})
			}
			cmd.Stdout = w
			inherited = append(inherited, w)
			nextStdin = r
		}

		if err := cmd.Start(); err != nil {
			closeFiles(inherited...)
			return abort(&SpawnError{Program: c.Program, Err: err})
		}
		closeFiles(inherited...)
		procs = append(procs, cmd)
		if e.onSpawn != nil {
			e.onSpawn(cmd)
		}
	}

	code := 0
	for i, p := range procs {
		err := p.Wait()
		if i == len(procs)-1 {
			code = exitStatus(p, err)
		}
	}
	return Result{ExitCode: code, Stdout: capture.String()}, nil
}

// openOutput opens a stdout redirect target.
func openOutput(path string, appendMode bool) (*os.File, error) {
	if appendMode {
		return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	}
	return os.Create(path)
}

// exitStatus maps a finished child to a shell exit code. Death by signal N
// reports 128+N.
func exitStatus(cmd *exec.Cmd, err error) int {
	if ps := cmd.ProcessState; ps != nil {
		if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return ps.ExitCode()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if err != nil {
		return 1
	}
	return 0
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			f.Close()
		}
	}
}

package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/marcelocantos/fool/internal/pipeline"
)

// Builtin identifies a command implemented inside the shell.
type Builtin int

const (
	BuiltinCd Builtin = iota
	BuiltinExit
	BuiltinExport
	BuiltinUnset
	BuiltinHistory
	BuiltinHelp
	BuiltinClear
	BuiltinPwd
	BuiltinAlias
	BuiltinSource
)

func (b Builtin) String() string {
	switch b {
	case BuiltinCd:
		return "cd"
	case BuiltinExit:
		return "exit"
	case BuiltinExport:
		return "export"
	case BuiltinUnset:
		return "unset"
	case BuiltinHistory:
		return "history"
	case BuiltinHelp:
		return "help"
	case BuiltinClear:
		return "clear"
	case BuiltinPwd:
		return "pwd"
	case BuiltinAlias:
		return "alias"
	case BuiltinSource:
		return "source"
	default:
		return fmt.Sprintf("builtin(%d)", int(b))
	}
}

// LookupBuiltin maps a program name to a built-in.
func LookupBuiltin(name string) (Builtin, bool) {
	switch name {
	case "cd":
		return BuiltinCd, true
	case "exit", "quit":
		return BuiltinExit, true
	case "export":
		return BuiltinExport, true
	case "unset":
		return BuiltinUnset, true
	case "history":
		return BuiltinHistory, true
	case "help":
		return BuiltinHelp, true
	case "clear":
		return BuiltinClear, true
	case "pwd":
		return BuiltinPwd, true
	case "alias":
		return BuiltinAlias, true
	case "source", ".":
		return BuiltinSource, true
	default:
		return 0, false
	}
}

// runBuiltin dispatches b. Output honours a stdout redirect on c.
func (e *Executor) runBuiltin(ctx context.Context, b Builtin, c pipeline.Command) (Result, error) {
	out, capture, closeOut, err := e.builtinOutput(c)
	if err != nil {
		return Result{}, err
	}
	defer closeOut()

	code := 0
	switch b {
	case BuiltinCd:
		err = e.cd(c.Args)
	case BuiltinExit:
		code = e.exitShell(c.Args)
	case BuiltinExport:
		err = e.export(out, c.Args)
	case BuiltinUnset:
		e.unset(c.Args)
	case BuiltinHistory:
		err = e.printHistory(out, c.Args)
	case BuiltinHelp:
		printHelp(out, e.triggerPrefix)
	case BuiltinClear:
		fmt.Fprint(out, "\x1b[2J\x1b[1;1H")
	case BuiltinPwd:
		err = pwd(out)
	case BuiltinAlias:
		code, err = e.alias(out, c.Args)
	case BuiltinSource:
		code, err = e.source(ctx, c.Args)
	default:
		err = builtinErrorf(b.String(), "not implemented")
	}
	if err != nil {
		return Result{}, err
	}
	return Result{ExitCode: code, Stdout: capture.String()}, nil
}

// builtinOutput resolves where a built-in writes: a redirect file if one
// was given, else the session's stdout.
func (e *Executor) builtinOutput(c pipeline.Command) (io.Writer, *summary, func(), error) {
	if c.StdoutRedirect == "" {
		w, s := e.finalOutput()
		if w == nil {
			w = io.Discard
		}
		return w, s, func() {}, nil
	}
	f, err := openOutput(c.StdoutRedirect, c.StdoutAppend)
	if err != nil {
		return nil, nil, nil, &RedirectError{Path: c.StdoutRedirect, Err: err}
	}
	return f, nil, func() { f.Close() }, nil
}

// exitShell hands the code to the exit handler. It only returns when the
// handler does. An argument that is not a number exits with 0.
func (e *Executor) exitShell(args []string) int {
	code := 0
	if len(args) > 0 {
		code = parseExitCode(args[0])
	}
	e.exit(code)
	return code
}

// parseExitCode parses an exit argument, wrapping it to 0-255.
func parseExitCode(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n & 0xff
}

func pwd(w io.Writer) error {
	cwd, err := os.Getwd()
	if err != nil {
		return builtinErrorf("pwd", "%v", err)
	}
	fmt.Fprintln(w, cwd)
	return nil
}

package executor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// cd changes the process working directory. OLDPWD and PWD are updated in
// both the tracked map and the process environment.
func (e *Executor) cd(args []string) error {
	target := "~"
	if len(args) > 0 {
		target = args[0]
	}

	if target == "-" {
		old, ok := e.env["OLDPWD"]
		if !ok || old == "" {
			return builtinErrorf("cd", "OLDPWD not set")
		}
		target = old
	} else {
		target = expandHome(target)
	}

	prev, prevErr := os.Getwd()
	if err := os.Chdir(target); err != nil {
		return builtinErrorf("cd", "%s: %w", target, errnoOf(err))
	}
	if prevErr == nil {
		e.Setenv("OLDPWD", prev)
	}
	if cwd, err := os.Getwd(); err == nil {
		e.Setenv("PWD", cwd)
	}
	return nil
}

// export sets KEY=VALUE pairs. A bare KEY re-exports a tracked value and is
// otherwise ignored. With no arguments the tracked environment is listed.
func (e *Executor) export(w io.Writer, args []string) error {
	if len(args) == 0 {
		for _, kv := range e.Environ() {
			k, v, _ := strings.Cut(kv, "=")
			fmt.Fprintf(w, "export %s=%s\n", k, strconv.Quote(v))
		}
		return nil
	}
	for _, arg := range args {
		key, value, hasValue := strings.Cut(arg, "=")
		if key == "" {
			return builtinErrorf("export", "`%s': not a valid identifier", arg)
		}
		if hasValue {
			e.Setenv(key, value)
		} else if v, ok := e.env[key]; ok {
			e.Setenv(key, v)
		}
	}
	return nil
}

func (e *Executor) unset(args []string) {
	for _, key := range args {
		e.Unsetenv(key)
	}
}

// expandHome expands a leading ~ or ~/ to the home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

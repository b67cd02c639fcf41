// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package rc runs the Starlark start-up script that defines aliases and
// environment variables for a session.
package rc

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Target receives the definitions made by a script.
type Target interface {
	DefineAlias(name, value string) error
	SetAlias(name string, tokens []string)
	Getenv(key string) (string, bool)
	Setenv(key, value string)
	Unsetenv(key string)
}

// Load runs the script at path against t. A missing file is not an error.
// Output from print() goes to w.
func Load(path string, t Target, w io.Writer) error {
	src, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read rc script: %w", err)
	}
	return Exec(path, src, t, w)
}

// Scripts may use top-level if/for and while loops.
var fileOptions = &syntax.FileOptions{
	TopLevelControl: true,
	While:           true,
	Set:             true,
	GlobalReassign:  true,
}

// Exec runs src as a script named filename.
func Exec(filename string, src []byte, t Target, w io.Writer) error {
	thread := &starlark.Thread{
		Name: "rc",
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Fprintln(w, msg)
		},
	}
	_, err := starlark.ExecFileOptions(fileOptions, thread, filename, src, predeclared(t))
	if err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return fmt.Errorf("rc script: %s", evalErr.Backtrace())
		}
		return fmt.Errorf("rc script: %w", err)
	}
	return nil
}

func predeclared(t Target) starlark.StringDict {
	return starlark.StringDict{
		"alias": starlark.NewBuiltin("alias", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var name string
			var value starlark.Value
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &name, &value); err != nil {
				return nil, err
			}
			switch v := value.(type) {
			case starlark.String:
				if err := t.DefineAlias(name, string(v)); err != nil {
					return nil, err
				}
			case *starlark.List:
				tokens, err := stringList(b.Name(), v)
				if err != nil {
					return nil, err
				}
				if len(tokens) == 0 {
					return nil, fmt.Errorf("%s: %s: empty token list", b.Name(), name)
				}
				t.SetAlias(name, tokens)
			default:
				return nil, fmt.Errorf("%s: value must be a string or list of strings, got %s", b.Name(), value.Type())
			}
			return starlark.None, nil
		}),
		"export": starlark.NewBuiltin("export", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var key, value string
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &key, &value); err != nil {
				return nil, err
			}
			if key == "" {
				return nil, fmt.Errorf("%s: empty name", b.Name())
			}
			t.Setenv(key, value)
			return starlark.None, nil
		}),
		"unset": starlark.NewBuiltin("unset", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var key string
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &key); err != nil {
				return nil, err
			}
			t.Unsetenv(key)
			return starlark.None, nil
		}),
		"env": starlark.NewBuiltin("env", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var key string
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &key); err != nil {
				return nil, err
			}
			if v, ok := t.Getenv(key); ok {
				return starlark.String(v), nil
			}
			return starlark.None, nil
		}),
	}
}

func stringList(fn string, l *starlark.List) ([]string, error) {
	out := make([]string, 0, l.Len())
	for i := 0; i < l.Len(); i++ {
		s, ok := starlark.AsString(l.Index(i))
		if !ok {
			return nil, fmt.Errorf("%s: element %d is %s, want string", fn, i, l.Index(i).Type())
		}
		out = append(out, s)
	}
	return out, nil
}

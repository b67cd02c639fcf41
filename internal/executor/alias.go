package executor

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/marcelocantos/fool/internal/pipeline"
)

// SetAlias defines name as a token list. An empty list removes the alias.
func (e *Executor) SetAlias(name string, tokens []string) {
	if len(tokens) == 0 {
		delete(e.aliases, name)
		return
	}
	e.aliases[name] = append([]string(nil), tokens...)
}

// DefineAlias tokenizes value with the parser's quoting rules and stores
// the result under name.
func (e *Executor) DefineAlias(name, value string) error {
	if name == "" {
		return builtinErrorf("alias", "empty alias name")
	}
	tokens, err := pipeline.SplitLiteral(value)
	if err != nil {
		return builtinErrorf("alias", "%s: %w", name, err)
	}
	if len(tokens) == 0 {
		return builtinErrorf("alias", "%s: empty value", name)
	}
	e.SetAlias(name, tokens)
	return nil
}

// Alias returns the tokens for name.
func (e *Executor) Alias(name string) ([]string, bool) {
	t, ok := e.aliases[name]
	return t, ok
}

// resolveAlias expands c's program if it names an alias. The alias's first
// token becomes the program and the rest are prepended to c's arguments.
func (e *Executor) resolveAlias(c pipeline.Command) pipeline.Command {
	tokens, ok := e.aliases[c.Program]
	if !ok || len(tokens) == 0 {
		return c
	}
	args := make([]string, 0, len(tokens)-1+len(c.Args))
	args = append(args, tokens[1:]...)
	args = append(args, c.Args...)
	c.Program = tokens[0]
	c.Args = args
	return c
}

// alias implements the alias built-in.
func (e *Executor) alias(w io.Writer, args []string) (int, error) {
	if len(args) == 0 {
		names := make([]string, 0, len(e.aliases))
		for name := range e.aliases {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			printAlias(w, name, e.aliases[name])
		}
		return 0, nil
	}

	code := 0
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if ok {
			if err := e.DefineAlias(name, value); err != nil {
				return 1, err
			}
			continue
		}
		tokens, found := e.aliases[arg]
		if !found {
			fmt.Fprintf(e.stderr, "alias: %s: not found\n", arg)
			code = 1
			continue
		}
		printAlias(w, arg, tokens)
	}
	return code, nil
}

func printAlias(w io.Writer, name string, tokens []string) {
	fmt.Fprintf(w, "alias %s='%s'\n", name, strings.Join(tokens, " "))
}

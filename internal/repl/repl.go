// Package repl is the interactive front-end: a line editor seeded from the
// history, a prompt, and handling of terminal interrupts.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/marcelocantos/fool/internal/pipeline"
	"github.com/marcelocantos/fool/internal/session"
)

// builtinNames seed tab completion.
var builtinNames = []string{
	"alias", "cd", "clear", "exit", "export", "help", "history", "pwd", "quit", "source", "unset",
}

// IsInteractive reports whether f is a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// RunScript executes each line of r in order and returns the last line's
// exit code.
func RunScript(ctx context.Context, sess *session.Session, r io.Reader) int {
	code := 0
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if ctx.Err() != nil {
			return 130
		}
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		code = sess.Run(ctx, line)
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintf(sess.Stderr(), "fool: read input: %v\n", err)
		return 1
	}
	return code
}

// Run starts the interactive loop and returns when input ends. An
// interrupt at the prompt clears the line; while a command runs it is left
// to the foreground processes.
func Run(ctx context.Context, sess *session.Session, theme Theme, version string, log *zap.Logger) int {
	if log == nil {
		log = zap.NewNop()
	}
	prefix := sess.TriggerPrefix()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 "❯ ",
		InterruptPrompt:        "^C",
		EOFPrompt:              "exit",
		HistoryLimit:           sess.History().MaxEntries(),
		DisableAutoSaveHistory: true,
		HistorySearchFold:      true,
		AutoComplete:           Completer{Prefix: prefix},
		Painter:                Painter{Theme: theme, Prefix: prefix},
	})
	if err != nil {
		log.Warn("line editor unavailable, reading plain lines", zap.Error(err))
		return RunScript(ctx, sess, os.Stdin)
	}
	defer rl.Close()

	for _, c := range sess.History().Commands() {
		rl.SaveHistory(c) //nolint:errcheck
	}

	// The shell survives SIGINT; children restore the default disposition
	// on exec and still receive it from the terminal.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	go func() {
		for range sigs {
		}
	}()
	defer func() {
		signal.Stop(sigs)
		close(sigs)
	}()

	printBanner(rl.Stdout(), theme, version, prefix)

	home, _ := os.UserHomeDir()
	username := currentUser()
	code := 0
	for {
		cwd, err := os.Getwd()
		if err != nil {
			cwd = "?"
		}
		rl.SetPrompt(theme.Prompt(username, cwd, home, code))

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(os.Stdout)
			return code
		}
		if err != nil {
			log.Error("read input", zap.Error(err))
			return 1
		}

		// An open quote continues on the next line.
		for needsMore(prefix, line) {
			rl.SetPrompt(continuationPrompt)
			more, err := rl.Readline()
			if err != nil {
				line = ""
				break
			}
			line += "\n" + more
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		rl.SaveHistory(line) //nolint:errcheck
		code = sess.Run(ctx, line)
		if ctx.Err() != nil {
			return code
		}
	}
}

const continuationPrompt = "> "

// needsMore reports whether text stops inside a quoted string.
func needsMore(prefix, text string) bool {
	r := pipeline.Parse(prefix, text)
	return r.Kind == pipeline.KindError && r.Err == pipeline.ErrUnclosedQuote
}

const bannerArt = `
  ███████╗ ██████╗  ██████╗ ██╗
  ██╔════╝██╔═══██╗██╔═══██╗██║
  █████╗  ██║   ██║██║   ██║██║
  ██╔══╝  ██║   ██║██║   ██║██║
  ██║     ╚██████╔╝╚██████╔╝███████╗
  ╚═╝      ╚═════╝  ╚═════╝ ╚══════╝
`

func printBanner(w io.Writer, theme Theme, version, prefix string) {
	fmt.Fprintln(w, theme.Banner.Render(bannerArt))
	fmt.Fprintf(w, "  %s %s\n\n", theme.Command.Render("Fool Shell"), version)
	fmt.Fprintf(w, "  Type %s for help, %s to exit\n", theme.Trigger.Render("help"), theme.Trigger.Render("exit"))
	fmt.Fprintf(w, "  Use %s to ask AI for help\n\n", theme.Operator.Render(prefix+" <question>"))
}

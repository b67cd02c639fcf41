// Package cli is the fool command line: flag parsing and mode selection
// between the REPL, scripted stdin, -c, MCP and history maintenance.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marcelocantos/fool/internal/ai"
	"github.com/marcelocantos/fool/internal/config"
	"github.com/marcelocantos/fool/internal/executor"
	"github.com/marcelocantos/fool/internal/history"
	"github.com/marcelocantos/fool/internal/mcpserver"
	"github.com/marcelocantos/fool/internal/rc"
	"github.com/marcelocantos/fool/internal/repl"
	"github.com/marcelocantos/fool/internal/session"
)

// DefaultTailCount is the number of entries shown by --history tail.
const DefaultTailCount = 20

type options struct {
	command    bool
	configPath string
	initConfig bool
	mcp        bool
	history    string
	count      int
	helpAgent  bool
	version    bool
}

// NewRootCommand builds the fool command.
func NewRootCommand(version string) *cobra.Command {
	var o options

	cmd := &cobra.Command{
		Use:   "fool [flags] [-c command words...]",
		Short: "A state-machine shell with AI hand-off",
		Long: "fool runs command lines made of pipes and redirections. Lines that start\n" +
			"with the trigger prefix (default !) are sent to an AI assistant instead.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.command && len(args) == 0 {
				return errors.New("-c requires a command line")
			}
			if !o.command && len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %s", strings.Join(args, " "))
			}
			if code := run(cmd.Context(), version, o, args, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()); code != 0 {
				return &executor.ExitError{Code: code}
			}
			return nil
		},
	}

	f := cmd.Flags()
	// Flag parsing stops at the first command word, so "-c ls -la" keeps -la.
	f.SetInterspersed(false)
	f.BoolVarP(&o.command, "command", "c", false, "run the remaining words as one command line and exit")
	f.StringVar(&o.configPath, "config", "", "config file (default ~/.config/fool/config.yaml)")
	f.BoolVar(&o.initConfig, "init-config", false, "write the default config file")
	f.BoolVar(&o.mcp, "mcp", false, "serve the shell as MCP tools on stdin/stdout")
	f.StringVar(&o.history, "history", "", "history maintenance: tail, verify or compact")
	f.IntVarP(&o.count, "count", "n", DefaultTailCount, "entries shown by --history tail")
	f.BoolVar(&o.helpAgent, "help-agent", false, "usage guide for agents driving fool over MCP")
	f.BoolVar(&o.version, "version", false, "show version")

	return cmd
}

// Execute runs the root command with args and returns the process exit
// code.
func Execute(version string, args []string) int {
	cmd := NewRootCommand(version)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		return 0
	}
	var exitErr *executor.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	fmt.Fprintf(os.Stderr, "fool: %v\n", err)
	return 2
}

func run(ctx context.Context, version string, o options, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if o.version {
		fmt.Fprintf(stdout, "fool %s\n", version)
		return 0
	}
	if o.helpAgent {
		return RunHelpAgent(stdout)
	}

	configPath := o.configPath
	if configPath == "" {
		configPath = config.ConfigPath()
	}
	configPath = config.ExpandHome(configPath)

	if o.initConfig {
		created, err := config.WriteDefault(configPath)
		if err != nil {
			fmt.Fprintf(stderr, "fool: %v\n", err)
			return 1
		}
		if created {
			fmt.Fprintf(stdout, "wrote default config to %s\n", configPath)
		} else {
			fmt.Fprintf(stdout, "config already exists at %s\n", configPath)
		}
		return 0
	}

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "fool: config: %v\n", err)
		return 1
	}

	log, err := newLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(stderr, "fool: %v\n", err)
		return 1
	}
	defer log.Sync() //nolint:errcheck

	if o.history != "" {
		return RunHistory(stdout, cfg.History.Path, cfg.History.MaxEntries, o.history, o.count)
	}

	switch {
	case o.command:
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		line := strings.Join(args, " ")
		sess := newSession(cfg, history.NewMemory(cfg.History.MaxEntries), true, stdin, stdout, stderr, log)
		return sess.Run(ctx, line)

	case o.mcp:
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		sess := newSession(cfg, history.NewMemory(cfg.History.MaxEntries), true, stdin, stdout, stderr, log)
		if err := mcpserver.New(sess, version, log).Serve(ctx, stdin, stdout); err != nil && ctx.Err() == nil {
			fmt.Fprintf(stderr, "fool: mcp: %v\n", err)
			return 1
		}
		return 0

	default:
		hist := openHistory(cfg, log, stderr)
		if f, ok := stdin.(*os.File); ok && repl.IsInteractive(f) {
			theme := repl.ThemeByName(cfg.UI.Theme)
			sess := newSession(cfg, hist, false, stdin, stdout, stderr, log, session.WithErrorStyle(theme.Error))
			return repl.Run(ctx, sess, theme, version, log)
		}
		return repl.RunScript(ctx, newSession(cfg, hist, false, stdin, stdout, stderr, log), stdin)
	}
}

// openHistory opens the persistent history, falling back to a memory-only
// store when the file cannot be used.
func openHistory(cfg *config.Config, log *zap.Logger, stderr io.Writer) *history.History {
	h, err := history.Open(cfg.History.Path, cfg.History.MaxEntries, history.WithLogger(log))
	if err != nil {
		fmt.Fprintf(stderr, "fool: history unavailable, not saving this session: %v\n", err)
		return history.NewMemory(cfg.History.MaxEntries, history.WithLogger(log))
	}
	return h
}

// newSession wires an executor, the rc script and the AI client around
// hist. With keepRunning set, the exit built-in reports its code instead of
// terminating the process.
func newSession(cfg *config.Config, hist *history.History, keepRunning bool, stdin io.Reader, stdout, stderr io.Writer, log *zap.Logger, extra ...session.Option) *session.Session {
	opts := []executor.Option{
		executor.WithStdio(stdin, stdout, stderr),
		executor.WithLogger(log),
		executor.WithTriggerPrefix(cfg.AI.TriggerPrefix),
	}
	if keepRunning {
		opts = append(opts, executor.WithExitHandler(func(int) {}))
	}
	exec := executor.New(opts...)

	if err := rc.Load(cfg.RC.Path, exec, stderr); err != nil {
		fmt.Fprintf(stderr, "fool: %v\n", err)
	}

	client := ai.New(cfg.AI)
	client.HTTPClient = ai.DefaultHTTPClient()

	sessOpts := []session.Option{
		session.WithAssistant(client),
		session.WithStdio(stdin, stdout, stderr),
		session.WithLogger(log),
	}
	return session.New(exec, hist, cfg.AI.TriggerPrefix, append(sessOpts, extra...)...)
}

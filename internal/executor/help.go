package executor

import (
	"fmt"
	"io"
	"strconv"

	"github.com/marcelocantos/fool/internal/pipeline"
)

func printHelp(w io.Writer, triggerPrefix string) {
	fmt.Fprintln(w, "fool — a state-machine shell with an AI hand-off")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "built-in commands:")
	fmt.Fprintln(w, "  cd [dir]              change directory (~ and - understood)")
	fmt.Fprintln(w, "  pwd                   print working directory")
	fmt.Fprintln(w, "  export [KEY=VAL ...]  set or list environment variables")
	fmt.Fprintln(w, "  unset KEY ...         remove environment variables")
	fmt.Fprintln(w, "  alias [name[=value]]  define or show aliases")
	fmt.Fprintln(w, "  source FILE, . FILE   run commands from a file")
	fmt.Fprintln(w, "  history [N]           show command history")
	fmt.Fprintln(w, "  clear                 clear the screen")
	fmt.Fprintln(w, "  help                  show this help")
	fmt.Fprintln(w, "  exit [code], quit     leave the shell")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "operators:")
	fmt.Fprintf(w, "  %c   pipe (stdout → stdin)\n", pipeline.OpPipe)
	fmt.Fprintf(w, "  %c   redirect stdout to file\n", pipeline.OpRedirectOut)
	fmt.Fprintf(w, "  %c%c  append stdout to file\n", pipeline.OpRedirectOut, pipeline.OpRedirectOut)
	fmt.Fprintf(w, "  %c   redirect stdin from file\n", pipeline.OpRedirectIn)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "AI mode:")
	fmt.Fprintf(w, "  %s <question>   ask the AI assistant\n", triggerPrefix)
	fmt.Fprintf(w, "  example: %s how do I find large files\n", triggerPrefix)
}

// printHistory lists the session's commands, numbered from 1. An optional
// argument limits the listing to the newest N.
func (e *Executor) printHistory(w io.Writer, args []string) error {
	if len(e.history) == 0 {
		fmt.Fprintln(w, "No history available")
		return nil
	}
	start := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return builtinErrorf("history", "%s: numeric argument required", args[0])
		}
		if n < len(e.history) {
			start = len(e.history) - n
		}
	}
	for i := start; i < len(e.history); i++ {
		fmt.Fprintf(w, "%5d  %s\n", i+1, e.history[i])
	}
	return nil
}

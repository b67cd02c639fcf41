package cli

import (
	_ "embed"
	"fmt"
	"io"

	"github.com/marcelocantos/fool/internal/mcpserver"
	"github.com/marcelocantos/fool/internal/pipeline"
)

//go:embed help_agent.md
var helpAgent string

// RunHelpAgent outputs the general usage followed by the agent guide.
func RunHelpAgent(w io.Writer) int {
	printGeneralHelp(w)
	fmt.Fprintln(w)
	fmt.Fprint(w, helpAgent)
	return 0
}

func printGeneralHelp(w io.Writer) {
	fmt.Fprintln(w, "fool: a state-machine shell with AI hand-off")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "usage:")
	fmt.Fprintln(w, "  fool                              interactive shell (or run lines from stdin)")
	fmt.Fprintln(w, "  fool -c <command line>            run one command line and exit")
	fmt.Fprintln(w, "  fool --mcp                        serve the shell as MCP tools on stdio")
	fmt.Fprintln(w, "  fool --history <tail|verify|compact> [-n N]")
	fmt.Fprintln(w, "                                    history file maintenance")
	fmt.Fprintln(w, "  fool --init-config                write the default config file")
	fmt.Fprintln(w, "  fool --version                    show version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "operators:")
	fmt.Fprintf(w, "  %c   pipe (stdout to stdin)\n", pipeline.OpPipe)
	fmt.Fprintf(w, "  %c   redirect stdout to file\n", pipeline.OpRedirectOut)
	fmt.Fprintf(w, "  %c%c  append stdout to file\n", pipeline.OpRedirectOut, pipeline.OpRedirectOut)
	fmt.Fprintf(w, "  %c   redirect stdin from file\n", pipeline.OpRedirectIn)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "MCP tools: %s, %s\n", mcpserver.ToolRun, mcpserver.ToolHistory)
}

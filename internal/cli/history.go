package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/marcelocantos/fool/internal/history"
)

// RunHistory handles the --history maintenance modes.
func RunHistory(w io.Writer, path string, maxEntries int, action string, n int) int {
	switch action {
	case "verify":
		if err := history.Verify(path); err != nil {
			fmt.Fprintf(w, "history verification FAILED: %v\n", err)
			return 1
		}
		fmt.Fprintln(w, "history file verified")
		return 0

	case "show", "tail":
		entries, err := history.Tail(path, n)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintln(w, "no history entries")
				return 0
			}
			fmt.Fprintf(w, "fool history: %v\n", err)
			return 1
		}
		if len(entries) == 0 {
			fmt.Fprintln(w, "no history entries")
			return 0
		}
		for _, e := range entries {
			fmt.Fprintln(w, formatEntry(e))
		}
		return 0

	case "compact":
		h, err := history.Open(path, maxEntries)
		if err != nil {
			fmt.Fprintf(w, "fool history: %v\n", err)
			return 1
		}
		if err := h.Compact(); err != nil {
			fmt.Fprintf(w, "fool history: %v\n", err)
			return 1
		}
		fmt.Fprintf(w, "history compacted to %d entries\n", h.Len())
		return 0

	default:
		fmt.Fprintf(w, "fool history: unknown action %q (want tail, verify or compact)\n", action)
		return 1
	}
}

// formatEntry renders one entry as "timestamp  code  command".
func formatEntry(e history.Entry) string {
	code := "-"
	if c, ok := e.Code(); ok {
		code = fmt.Sprint(c)
	}
	line := fmt.Sprintf("%s  %3s  %s", e.Timestamp.Local().Format(time.DateTime), code, e.Command)
	if e.Cwd != nil {
		line += "  (" + *e.Cwd + ")"
	}
	return strings.TrimRight(line, " ")
}

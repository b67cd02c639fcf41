package executor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/marcelocantos/fool/internal/pipeline"
)

// maxSourceDepth bounds nested source calls.
const maxSourceDepth = 16

// source runs each line of a file as if typed at the prompt. Blank lines
// and # comments are skipped; AI queries are reported and skipped. Errors
// are reported per line and do not stop the script. The last line's code
// is the result.
func (e *Executor) source(ctx context.Context, args []string) (int, error) {
	if len(args) == 0 {
		return 0, builtinErrorf("source", "usage: source <filename>")
	}
	if e.sourceDepth >= maxSourceDepth {
		return 0, builtinErrorf("source", "%s: maximum nesting depth (%d) exceeded", args[0], maxSourceDepth)
	}

	path := expandHome(args[0])
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, builtinErrorf("source", "%s: %w", path, errnoOf(err))
	}

	e.sourceDepth++
	defer func() { e.sourceDepth-- }()

	code := 0
	for i, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return 1, err
		}

		lineNo := i + 1
		r := pipeline.Parse(e.triggerPrefix, line)
		switch r.Kind {
		case pipeline.KindCommands:
			res, err := e.ExecutePipeline(ctx, r.Commands)
			if err != nil {
				fmt.Fprintf(e.stderr, "source: %s:%d: %v\n", path, lineNo, err)
				code = 1
				continue
			}
			code = res.ExitCode
		case pipeline.KindAIQuery:
			fmt.Fprintf(e.stderr, "source: %s:%d: skipping AI query\n", path, lineNo)
		case pipeline.KindError:
			fmt.Fprintf(e.stderr, "source: %s:%d: %s\n", path, lineNo, r.Err)
			code = 1
		}
	}
	return code, nil
}

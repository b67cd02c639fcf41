package executor

import (
	"io"
	"os"
	"strings"
)

// SummaryLimit bounds the captured output stored with a history entry.
const SummaryLimit = 4096

const truncatedMarker = "\n... (truncated)"

// summary keeps the first SummaryLimit bytes written to it and discards
// the rest.
type summary struct {
	buf       []byte
	truncated bool
}

func (s *summary) Write(p []byte) (int, error) {
	room := SummaryLimit - len(s.buf)
	if len(p) > room {
		s.buf = append(s.buf, p[:room]...)
		s.truncated = true
	} else {
		s.buf = append(s.buf, p...)
	}
	return len(p), nil
}

func (s *summary) String() string {
	if s == nil {
		return ""
	}
	out := strings.ToValidUTF8(string(s.buf), "")
	if s.truncated {
		out += truncatedMarker
	}
	return out
}

// finalOutput returns the writer for output that would otherwise go to the
// session's stdout. A file (terminal, pipe or regular file) is handed to the
// child as is and nothing is captured; any other writer is teed into a
// summary.
func (e *Executor) finalOutput() (io.Writer, *summary) {
	if e.stdout == nil {
		return nil, nil
	}
	if _, ok := e.stdout.(*os.File); ok {
		return e.stdout, nil
	}
	s := &summary{}
	return io.MultiWriter(e.stdout, s), s
}

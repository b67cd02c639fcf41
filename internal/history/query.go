package history

import (
	"fmt"
	"strings"
)

// GetRecent returns up to n of the newest entries, oldest first.
func (h *History) GetRecent(n int) []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n <= 0 {
		return nil
	}
	start := len(h.entries) - n
	if start < 0 {
		start = 0
	}
	out := make([]Entry, 0, len(h.entries)-start)
	for _, s := range h.entries[start:] {
		out = append(out, s.entry)
	}
	return out
}

// Commands returns every buffered command line, oldest first.
func (h *History) Commands() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, len(h.entries))
	for i, s := range h.entries {
		out[i] = s.entry.Command
	}
	return out
}

// Search returns entries whose command contains substr, oldest first.
func (h *History) Search(substr string) []Entry {
	return h.filter(func(cmd string) bool { return strings.Contains(cmd, substr) })
}

// SearchPrefix returns entries whose command starts with prefix, oldest first.
func (h *History) SearchPrefix(prefix string) []Entry {
	return h.filter(func(cmd string) bool { return strings.HasPrefix(cmd, prefix) })
}

func (h *History) filter(match func(string) bool) []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []Entry
	for _, s := range h.entries {
		if match(s.entry.Command) {
			out = append(out, s.entry)
		}
	}
	return out
}

// FormatForAI renders the n newest entries as a conversation: each command
// is a user message, followed by an assistant message with its outcome
// when the exit code is known.
func (h *History) FormatForAI(n int) []Message {
	return FormatMessages(h.GetRecent(n))
}

// FormatMessages renders entries as FormatForAI does.
func FormatMessages(entries []Entry) []Message {
	var msgs []Message
	for _, e := range entries {
		msgs = append(msgs, Message{Role: "user", Content: e.Command})
		code, ok := e.Code()
		if !ok {
			continue
		}
		content := fmt.Sprintf("(Exit Code: %d)", code)
		if e.StdoutSummary != nil && *e.StdoutSummary != "" {
			content += " Output: " + *e.StdoutSummary
		}
		msgs = append(msgs, Message{Role: "assistant", Content: content})
	}
	return msgs
}

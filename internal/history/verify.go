package history

import (
	"encoding/json"
	"fmt"
	"os"
)

// Verify reads a history file and checks that every line is a complete
// entry. Returns nil if the file is valid or absent, or an error describing
// the first bad line.
func Verify(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	for i, line := range splitLines(data) {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("line %d: invalid JSON: %w", i+1, err)
		}
		if e.Command == "" {
			return fmt.Errorf("line %d: missing command", i+1)
		}
		if e.Timestamp.IsZero() {
			return fmt.Errorf("line %d: missing timestamp", i+1)
		}
	}
	return nil
}

// Tail returns the last n readable entries from a history file.
func Tail(path string, n int) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	lines := splitLines(data)
	if n < 0 {
		n = 0
	}
	if n > len(lines) {
		n = len(lines)
	}

	entries := make([]Entry, 0, n)
	for _, line := range lines[len(lines)-n:] {
		e, ok := decodeLine(line)
		if !ok {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

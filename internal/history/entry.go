package history

import (
	"os"
	"time"
)

// Entry is one executed command line. It is created without an exit code;
// the code is attached once execution completes.
type Entry struct {
	Command       string    `json:"command"`
	ExitCode      *int32    `json:"exit_code"`                // nil until the command finishes
	Timestamp     time.Time `json:"timestamp"`                // UTC submission time
	Cwd           *string   `json:"cwd"`                      // working directory at submission
	StdoutSummary *string   `json:"stdout_summary,omitempty"` // bounded capture of the last stage
}

// NewEntry creates an entry for command stamped with the current time and
// working directory.
func NewEntry(command string) Entry {
	e := Entry{
		Command:   command,
		Timestamp: time.Now().UTC(),
	}
	if cwd, err := os.Getwd(); err == nil {
		e.Cwd = &cwd
	}
	return e
}

// Code returns the exit code and whether it is known.
func (e Entry) Code() (int32, bool) {
	if e.ExitCode == nil {
		return 0, false
	}
	return *e.ExitCode, true
}

// Message is a role/content pair handed to the AI collaborator.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// slot is a buffered entry plus its durability state. pending is true while
// the entry waits for its exit code and has not been written to disk.
type slot struct {
	entry   Entry
	pending bool
}

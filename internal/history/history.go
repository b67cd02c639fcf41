package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// DefaultMaxEntries bounds the buffer when a caller passes a non-positive size.
const DefaultMaxEntries = 10000

// History is a bounded, optionally file-backed log of executed commands.
//
// Entries reach the file in two ways: UpdateLastExitCode appends the newest
// entry once its exit code is known, and Compact rewrites the whole file
// from memory. Both hold an exclusive flock on a sidecar lock file so that
// several shells can share one history file.
type History struct {
	mu           sync.Mutex
	path         string // empty in memory-only mode
	maxEntries   int
	entries      []slot
	sinceCompact int
	log          *zap.Logger
}

// Option configures a History.
type Option func(*History)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(h *History) { h.log = l }
}

// Open creates a file-backed history at path, loading any existing entries.
// Lines that fail to parse are skipped.
func Open(path string, maxEntries int, opts ...Option) (*History, error) {
	if path == "" {
		return nil, fmt.Errorf("history: empty path")
	}
	h := newHistory(path, maxEntries, opts)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	if err := h.load(); err != nil {
		return nil, err
	}
	return h, nil
}

// NewMemory creates a history that never touches disk.
func NewMemory(maxEntries int, opts ...Option) *History {
	return newHistory("", maxEntries, opts)
}

func newHistory(path string, maxEntries int, opts []Option) *History {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	h := &History{
		path:       path,
		maxEntries: maxEntries,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Path returns the backing file path, or "" in memory-only mode.
func (h *History) Path() string {
	return h.path
}

// MaxEntries returns the buffer capacity.
func (h *History) MaxEntries() int {
	return h.maxEntries
}

func (h *History) load() error {
	data, err := os.ReadFile(h.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	skipped := 0
	for _, line := range splitLines(data) {
		e, ok := decodeLine(line)
		if !ok {
			skipped++
			continue
		}
		h.push(slot{entry: e})
	}
	if skipped > 0 {
		h.log.Warn("skipped unreadable history lines",
			zap.String("path", h.path), zap.Int("lines", skipped))
	}
	return nil
}

// push appends s, evicting the oldest entry when over capacity.
func (h *History) push(s slot) {
	if len(h.entries) == h.maxEntries {
		copy(h.entries, h.entries[1:])
		h.entries[len(h.entries)-1] = s
		return
	}
	h.entries = append(h.entries, s)
}

// Add appends e to the in-memory buffer and marks it pending; it is written
// to disk by UpdateLastExitCode. Every maxEntries additions the backing
// file is compacted. An error means only that compaction failed; the entry
// is in memory regardless.
func (h *History) Add(e Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.push(slot{entry: e, pending: true})
	h.sinceCompact++

	if h.path != "" && h.sinceCompact >= h.maxEntries {
		if err := h.compactLocked(); err != nil {
			return err
		}
		h.sinceCompact = 0
	}
	return nil
}

// UpdateLastExitCode attaches code to the newest entry and, if it is still
// pending, appends it to the backing file.
func (h *History) UpdateLastExitCode(code int32) error {
	return h.UpdateLastResult(code, "")
}

// UpdateLastResult is UpdateLastExitCode with an optional stdout summary.
func (h *History) UpdateLastResult(code int32, summary string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) == 0 {
		return nil
	}
	s := &h.entries[len(h.entries)-1]
	s.entry.ExitCode = &code
	if summary != "" {
		s.entry.StdoutSummary = &summary
	}

	if h.path == "" || !s.pending {
		return nil
	}
	if err := h.appendLine(s.entry); err != nil {
		return err
	}
	s.pending = false
	return nil
}

func (h *History) appendLine(e Entry) error {
	data, err := encodeLine(e)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}

	return withLock(lockPath(h.path), func() error {
		f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer f.Close()

		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("write history entry: %w", err)
		}
		if err := f.Sync(); err != nil {
			return fmt.Errorf("sync history: %w", err)
		}
		return nil
	})
}

// Compact rewrites the backing file to hold exactly the buffered entries,
// except a newest entry that is still pending (it is appended later by
// UpdateLastExitCode). The file is replaced by rename, so a failure leaves
// the previous file untouched. Compact is a no-op in memory-only mode.
func (h *History) Compact() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.compactLocked()
}

func (h *History) compactLocked() error {
	if h.path == "" {
		return nil
	}

	n := len(h.entries)
	var buf bytes.Buffer
	written := 0
	for i, s := range h.entries {
		if i == n-1 && s.pending {
			continue
		}
		line, err := encodeLine(s.entry)
		if err != nil {
			return fmt.Errorf("marshal history entry: %w", err)
		}
		buf.Write(line)
		written++
	}

	err := withLock(lockPath(h.path), func() error {
		return replaceFile(h.path, swapExt(h.path, ".tmp"), buf.Bytes())
	})
	if err != nil {
		return err
	}

	for i := range h.entries {
		if i == n-1 && h.entries[i].pending {
			continue
		}
		h.entries[i].pending = false
	}
	h.log.Debug("history compacted", zap.String("path", h.path), zap.Int("entries", written))
	return nil
}

// replaceFile writes data to tmp and renames it over path.
func replaceFile(path, tmp string, data []byte) (err error) {
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create temp history: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	w := bufio.NewWriter(f)
	if _, err = w.Write(data); err != nil {
		return fmt.Errorf("write temp history: %w", err)
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("flush temp history: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync temp history: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close temp history: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp history: %w", err)
	}
	return nil
}

// Len returns the number of buffered entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Last returns the newest entry.
func (h *History) Last() (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return Entry{}, false
	}
	return h.entries[len(h.entries)-1].entry, true
}

// Clear drops every entry and removes the backing file.
func (h *History) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = nil
	h.sinceCompact = 0
	if h.path == "" {
		return nil
	}
	return withLock(lockPath(h.path), func() error {
		if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove history: %w", err)
		}
		return nil
	})
}

func encodeLine(e Entry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeLine parses one serialized entry. Lines without a command are
// treated as foreign.
func decodeLine(line []byte) (Entry, bool) {
	var e Entry
	if err := json.Unmarshal(line, &e); err != nil {
		return Entry{}, false
	}
	if e.Command == "" {
		return Entry{}, false
	}
	return e, true
}

// swapExt replaces the extension of path's final element with ext. A
// leading dot does not start an extension.
func swapExt(path, ext string) string {
	base := filepath.Base(path)
	old := filepath.Ext(base)
	if old == base {
		old = ""
	}
	out := strings.TrimSuffix(path, old) + ext
	if out == path {
		out = path + ext
	}
	return out
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}

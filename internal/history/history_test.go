package history

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addRun(t *testing.T, h *History, cmd string, code int32) {
	t.Helper()
	require.NoError(t, h.Add(NewEntry(cmd)))
	require.NoError(t, h.UpdateLastExitCode(code))
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out []string
	for _, l := range splitLines(data) {
		out = append(out, string(l))
	}
	return out
}

func TestNewEntry(t *testing.T) {
	e := NewEntry("ls -la")
	assert.Equal(t, "ls -la", e.Command)
	assert.Nil(t, e.ExitCode)
	assert.Equal(t, "UTC", e.Timestamp.Location().String())
	require.NotNil(t, e.Cwd)
	wd, _ := os.Getwd()
	assert.Equal(t, wd, *e.Cwd)
}

func TestBoundedEviction(t *testing.T) {
	h := NewMemory(5)
	for i := 1; i <= 8; i++ {
		addRun(t, h, fmt.Sprintf("cmd%d", i), 0)
	}
	assert.Equal(t, 5, h.Len())
	assert.Equal(t, []string{"cmd4", "cmd5", "cmd6", "cmd7", "cmd8"}, h.Commands())
}

func TestMemoryModeNeverTouchesDisk(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	h := NewMemory(3)
	for i := 0; i < 10; i++ {
		addRun(t, h, "echo", 0)
	}
	require.NoError(t, h.Compact())
	assert.Equal(t, "", h.Path())

	ents, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, ents)
}

func TestPendingEntryNotWrittenUntilExitCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	h, err := Open(path, 100)
	require.NoError(t, err)

	require.NoError(t, h.Add(NewEntry("sleep 1")))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "pending entry should not be on disk")

	require.NoError(t, h.UpdateLastExitCode(3))
	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"command":"sleep 1"`)
	assert.Contains(t, lines[0], `"exit_code":3`)

	// A second update must not append the entry again.
	require.NoError(t, h.UpdateLastExitCode(4))
	assert.Len(t, readLines(t, path), 1)
}

func TestReloadPreservesEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "history")
	h, err := Open(path, 100)
	require.NoError(t, err)
	addRun(t, h, "echo one", 0)
	addRun(t, h, "false", 1)
	require.NoError(t, h.Add(NewEntry("echo <b>&")))
	require.NoError(t, h.UpdateLastResult(0, "<b>&\n"))

	again, err := Open(path, 100)
	require.NoError(t, err)
	got := again.GetRecent(10)
	require.Len(t, got, 3)
	assert.Equal(t, "echo one", got[0].Command)
	code, ok := got[1].Code()
	assert.True(t, ok)
	assert.Equal(t, int32(1), code)
	require.NotNil(t, got[2].StdoutSummary)
	assert.Equal(t, "<b>&\n", *got[2].StdoutSummary)

	// HTML characters are stored unescaped.
	assert.Contains(t, readLines(t, path)[2], `"command":"echo <b>&"`)
}

func TestCompactIsLossFreeAndIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	h, err := Open(path, 3)
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		addRun(t, h, fmt.Sprintf("c%d", i), int32(i))
	}
	require.NoError(t, h.Compact())
	first := readLines(t, path)
	require.NoError(t, h.Compact())
	assert.Equal(t, first, readLines(t, path))

	again, err := Open(path, 3)
	require.NoError(t, err)
	assert.Equal(t, h.Commands(), again.Commands())
	assert.Equal(t, []string{"c3", "c4", "c5"}, again.Commands())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should not survive")
}

func TestCompactSkipsPendingNewest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	h, err := Open(path, 10)
	require.NoError(t, err)
	addRun(t, h, "a", 0)
	require.NoError(t, h.Add(NewEntry("b")))
	require.NoError(t, h.Compact())
	assert.Len(t, readLines(t, path), 1)

	// The pending entry is appended exactly once when it completes.
	require.NoError(t, h.UpdateLastExitCode(0))
	again, err := Open(path, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, again.Commands())
}

func TestAddTriggersCompaction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	h, err := Open(path, 3)
	require.NoError(t, err)
	for i := 1; i <= 7; i++ {
		addRun(t, h, fmt.Sprintf("c%d", i), 0)
	}
	// Compaction after the 6th add rewrote the file to c4..c5 (c6 was
	// pending), then c6 and c7 were appended.
	again, err := Open(path, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"c4", "c5", "c6", "c7"}, again.Commands())
}

func TestLoadSkipsBadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	content := strings.Join([]string{
		`{"command":"good1","exit_code":0,"timestamp":"2026-01-02T03:04:05Z","cwd":null}`,
		`not json at all`,
		`{"exit_code":0,"timestamp":"2026-01-02T03:04:05Z"}`,
		`{"command":"good2","exit_code":null,"timestamp":"2026-01-02T03:04:06Z","cwd":"/tmp"}`,
		`{"command":"partial","exit_co`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	h, err := Open(path, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"good1", "good2"}, h.Commands())
	last, ok := h.Last()
	require.True(t, ok)
	_, known := last.Code()
	assert.False(t, known)
}

func TestConcurrentStoresDoNotInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		h, err := Open(path, 1000)
		require.NoError(t, err)
		wg.Add(1)
		go func(w int, h *History) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := h.Add(NewEntry(fmt.Sprintf("w%d-%d %s", w, i, strings.Repeat("x", 200)))); err != nil {
					t.Error(err)
					return
				}
				if err := h.UpdateLastExitCode(int32(i)); err != nil {
					t.Error(err)
					return
				}
			}
		}(w, h)
	}
	wg.Wait()

	require.NoError(t, Verify(path))
	lines := readLines(t, path)
	assert.Len(t, lines, 2*perWriter)

	merged, err := Open(path, 1000)
	require.NoError(t, err)
	assert.Equal(t, 2*perWriter, merged.Len())
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	h, err := Open(path, 10)
	require.NoError(t, err)
	addRun(t, h, "a", 0)
	require.NoError(t, h.Clear())
	assert.Equal(t, 0, h.Len())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, ok := h.Last()
	assert.False(t, ok)
}

func TestQueries(t *testing.T) {
	h := NewMemory(10)
	for _, c := range []string{"git status", "ls", "git log", "echo git"} {
		addRun(t, h, c, 0)
	}
	assert.Len(t, h.Search("git"), 3)
	pre := h.SearchPrefix("git")
	require.Len(t, pre, 2)
	assert.Equal(t, "git log", pre[1].Command)
	recent := h.GetRecent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "git log", recent[0].Command)
	assert.Len(t, h.GetRecent(100), 4)
	assert.Empty(t, h.GetRecent(0))
}

func TestFormatForAI(t *testing.T) {
	h := NewMemory(10)
	addRun(t, h, "old", 0)
	addRun(t, h, "false", 1)
	require.NoError(t, h.Add(NewEntry("ls")))
	require.NoError(t, h.UpdateLastResult(0, "a.txt"))
	require.NoError(t, h.Add(NewEntry("running")))

	msgs := h.FormatForAI(3)
	assert.Equal(t, []Message{
		{Role: "user", Content: "false"},
		{Role: "assistant", Content: "(Exit Code: 1)"},
		{Role: "user", Content: "ls"},
		{Role: "assistant", Content: "(Exit Code: 0) Output: a.txt"},
		{Role: "user", Content: "running"},
	}, msgs)
}

func TestSwapExt(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/a/history", "/a/history.lock"},
		{"/a/history.jsonl", "/a/history.lock"},
		{"/a/.history", "/a/.history.lock"},
		{"/a.d/history", "/a.d/history.lock"},
		{"/a/history.lock", "/a/history.lock.lock"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, lockPath(tt.in), tt.in)
	}
}

func TestVerifyAndTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	assert.NoError(t, Verify(path), "absent file is valid")

	h, err := Open(path, 10)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		addRun(t, h, fmt.Sprintf("c%d", i), 0)
	}
	require.NoError(t, Verify(path))

	tail, err := Tail(path, 2)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, "c2", tail[0].Command)
	assert.Equal(t, "c3", tail[1].Command)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = f.WriteString("{\"command\":\"torn\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	err = Verify(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 5")
}

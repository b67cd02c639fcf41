package repl

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// Completer completes built-in names in command position and file names
// everywhere else. AI queries get no completion.
type Completer struct {
	Prefix string
}

// Do implements readline.AutoCompleter. Candidates are the suffixes to
// append to the word under the cursor; length is that word's length.
func (c Completer) Do(line []rune, pos int) ([][]rune, int) {
	if pos > len(line) {
		pos = len(line)
	}
	head := string(line[:pos])
	if c.Prefix != "" && strings.HasPrefix(strings.TrimLeftFunc(head, unicode.IsSpace), c.Prefix) {
		return nil, 0
	}

	start := pos
	for start > 0 && !isWordBreak(line[start-1]) {
		start--
	}
	word := string(line[start:pos])

	var out []string
	if commandPosition(line[:start]) && !strings.Contains(word, "/") {
		for _, name := range builtinNames {
			if strings.HasPrefix(name, word) {
				out = append(out, name[len(word):]+" ")
			}
		}
	}
	out = append(out, completeFile(word)...)

	cands := make([][]rune, len(out))
	for i, s := range out {
		cands[i] = []rune(s)
	}
	return cands, len([]rune(word))
}

func isWordBreak(r rune) bool {
	return unicode.IsSpace(r) || r == '|' || r == '>' || r == '<'
}

// commandPosition reports whether a word following before names a
// program: it starts the line or follows a pipe.
func commandPosition(before []rune) bool {
	for i := len(before) - 1; i >= 0; i-- {
		r := before[i]
		if unicode.IsSpace(r) {
			continue
		}
		return r == '|'
	}
	return true
}

// completeFile lists directory entries matching word. Directories get a
// trailing slash, files a trailing space.
func completeFile(word string) []string {
	dir, base := "", word
	if i := strings.LastIndex(word, "/"); i >= 0 {
		dir, base = word[:i+1], word[i+1:]
	}

	readDir := dir
	switch {
	case readDir == "":
		readDir = "."
	case readDir == "~/" || strings.HasPrefix(readDir, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			readDir = filepath.Join(home, readDir[2:])
		}
	}

	entries, err := os.ReadDir(readDir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, base) {
			continue
		}
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(base, ".") {
			continue
		}
		suffix := name[len(base):]
		if isDir(filepath.Join(readDir, name), e) {
			suffix += "/"
		} else {
			suffix += " "
		}
		out = append(out, suffix)
	}
	sort.Strings(out)
	return out
}

func isDir(path string, e os.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&os.ModeSymlink != 0 {
		fi, err := os.Stat(path)
		return err == nil && fi.IsDir()
	}
	return false
}

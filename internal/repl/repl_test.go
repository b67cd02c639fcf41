package repl

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/marcelocantos/fool/internal/executor"
	"github.com/marcelocantos/fool/internal/history"
	"github.com/marcelocantos/fool/internal/session"
)

func TestAbbreviateHome(t *testing.T) {
	tests := []struct {
		cwd, home, want string
	}{
		{"/home/ada", "/home/ada", "~"},
		{"/home/ada/src/fool", "/home/ada", "~/src/fool"},
		{"/home/adam", "/home/ada", "/home/adam"},
		{"/etc", "/home/ada", "/etc"},
		{"/etc", "", "/etc"},
		{"/etc", "/", "/etc"},
	}
	for _, tt := range tests {
		if got := abbreviateHome(tt.cwd, tt.home); got != tt.want {
			t.Errorf("abbreviateHome(%q, %q) = %q, want %q", tt.cwd, tt.home, got, tt.want)
		}
	}
}

func TestPlainPrompt(t *testing.T) {
	theme := ThemeByName("plain")
	if got := theme.Prompt("ada", "/home/ada/x", "/home/ada", 0); got != "ada ~/x ❯ " {
		t.Errorf("prompt = %q", got)
	}
	if got := theme.Prompt("ada", "/tmp", "/home/ada", 1); got != "ada /tmp ❯ " {
		t.Errorf("prompt = %q", got)
	}
}

func TestDraculaPromptContainsParts(t *testing.T) {
	got := ThemeByName("dracula").Prompt("ada", "/home/ada", "/home/ada", 0)
	for _, part := range []string{"ada", "~", "❯"} {
		if !strings.Contains(got, part) {
			t.Errorf("prompt %q missing %q", got, part)
		}
	}
}

func TestRunScript(t *testing.T) {
	var stdout, stderr bytes.Buffer
	hist := history.NewMemory(10)
	exec := executor.New(executor.WithExitHandler(func(int) {}))
	sess := session.New(exec, hist, "!", session.WithStdio(strings.NewReader(""), &stdout, &stderr))

	script := "echo one\n\n   \necho 'two'\nfalse\n"
	if code := RunScript(context.Background(), sess, strings.NewReader(script)); code != 1 {
		t.Errorf("code = %d, want 1", code)
	}
	if stdout.String() != "one\ntwo\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
	if hist.Len() != 3 {
		t.Errorf("history len = %d, want 3", hist.Len())
	}

	stdout.Reset()
	if code := RunScript(context.Background(), sess, strings.NewReader("false\ntrue")); code != 0 {
		t.Errorf("code = %d, want 0", code)
	}
}

func TestRunScriptCancelled(t *testing.T) {
	hist := history.NewMemory(10)
	sess := session.New(executor.New(), hist, "!")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if code := RunScript(ctx, sess, strings.NewReader("true\n")); code != 130 {
		t.Errorf("code = %d, want 130", code)
	}
	if hist.Len() != 0 {
		t.Error("nothing should run after cancellation")
	}
}

func TestRunScriptReportsReadError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	sess := session.New(executor.New(), history.NewMemory(10), "!",
		session.WithStdio(strings.NewReader(""), &stdout, &stderr))

	input := "true\n" + strings.Repeat("x", 2<<20) + "\n"
	if code := RunScript(context.Background(), sess, strings.NewReader(input)); code != 1 {
		t.Errorf("code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "fool: read input:") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func completions(t *testing.T, c Completer, line string) ([]string, int) {
	t.Helper()
	cands, length := c.Do([]rune(line), len([]rune(line)))
	var out []string
	for _, r := range cands {
		out = append(out, string(r))
	}
	return out, length
}

func TestCompleter(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"alpha.txt", ".hidden", "alps/inner.go"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	t.Chdir(dir)
	c := Completer{Prefix: "!"}

	tests := []struct {
		line   string
		want   []string
		length int
	}{
		{"his", []string{"tory "}, 3},
		{"ls -l | his", []string{"tory "}, 3},
		{"cat al", []string{"pha.txt ", "ps/"}, 2},
		{"cat ", []string{"alpha.txt ", "alps/"}, 0},
		{"cat alps/", []string{"inner.go "}, 5},
		{"cat .h", []string{"idden "}, 2},
		{"sort <al", []string{"pha.txt ", "ps/"}, 2},
		{"cat nothing", nil, 7},
		{"! his", nil, 0},
		{"  !cat al", nil, 0},
	}
	for _, tt := range tests {
		got, length := completions(t, c, tt.line)
		if !reflect.DeepEqual(got, tt.want) || length != tt.length {
			t.Errorf("Do(%q) = %q, %d; want %q, %d", tt.line, got, length, tt.want, tt.length)
		}
	}
}

func TestHighlightSpans(t *testing.T) {
	tests := []struct {
		line string
		want []span
	}{
		{`ls -la | grep "a b" > out`, []span{
			{"ls", spanCommand}, {" ", spanPlain}, {"-la", spanFlag}, {" ", spanPlain},
			{"|", spanOperator}, {" ", spanPlain}, {"grep", spanCommand}, {" ", spanPlain},
			{`"a b"`, spanString}, {" ", spanPlain}, {">", spanOperator}, {" out", spanPlain},
		}},
		{"echo 'open", []span{{"echo", spanCommand}, {" ", spanPlain}, {"'open", spanString}}},
		{`a\ b|c`, []span{{`a\ b`, spanCommand}, {"|", spanOperator}, {"c", spanCommand}}},
		{"  ! find | big", []span{{"  ", spanPlain}, {"!", spanTrigger}, {" find | big", spanQuery}}},
		{"", nil},
	}
	for _, tt := range tests {
		got := highlightSpans("!", tt.line)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("highlightSpans(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

var ansi = regexp.MustCompile("\x1b\\[[0-9;]*m")

func TestPaintKeepsVisibleText(t *testing.T) {
	lines := []string{"", "ls -la", `grep -n "x|y" < in.txt | sort >> out`, "! what's up", "echo 'tab\there'"}
	for _, name := range []string{"plain", "dracula"} {
		p := Painter{Theme: ThemeByName(name), Prefix: "!"}
		for _, line := range lines {
			got := ansi.ReplaceAllString(string(p.Paint([]rune(line), 0)), "")
			if got != line {
				t.Errorf("%s: Paint(%q) shows %q", name, line, got)
			}
		}
	}
}

func TestNeedsMore(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"echo 'a", true},
		{`echo "a`, true},
		{"echo 'a\nb'", false},
		{"echo a", false},
		{`echo x\`, false},
		{"! it's", false},
	}
	for _, tt := range tests {
		if got := needsMore("!", tt.text); got != tt.want {
			t.Errorf("needsMore(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestBanner(t *testing.T) {
	var buf bytes.Buffer
	printBanner(&buf, ThemeByName("plain"), "v1.2.3", "?")
	out := buf.String()
	for _, part := range []string{"███████╗", "Fool Shell v1.2.3", "help", "exit", "? <question>"} {
		if !strings.Contains(out, part) {
			t.Errorf("banner missing %q:\n%s", part, out)
		}
	}
}

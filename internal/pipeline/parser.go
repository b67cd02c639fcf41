package pipeline

import (
	"strings"
	"unicode"
)

// Parse error messages. Each dangling operator gets its own message.
const (
	ErrTrailingBackslash = "Syntax error: trailing backslash"
	ErrUnclosedQuote     = "Syntax error: unclosed quote"
	ErrDanglingPipe      = "Syntax error: pipe without following command"
	ErrDanglingOut       = "Syntax error: output redirection without file"
	ErrDanglingIn        = "Syntax error: input redirection without file"
)

// Parse classifies a raw input line. A line starting with triggerPrefix is
// an AI query (the rest of the line, trimmed, is never tokenized); anything
// else runs through the command state machine. Parse has no side effects.
func Parse(triggerPrefix, line string) Result {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return emptyResult()
	}

	if triggerPrefix != "" && strings.HasPrefix(trimmed, triggerPrefix) {
		return queryResult(strings.TrimSpace(trimmed[len(triggerPrefix):]))
	}

	m := newMachine(trimmed, true)
	m.run()
	return m.finish()
}

// machine is the character-at-a-time tokenizer. With operators disabled it
// only understands whitespace, quotes and backslashes, which is what alias
// values need.
type machine struct {
	src       []rune
	i         int
	operators bool

	state State
	prev  State
	cur   strings.Builder

	cmd   Command
	cmds  []Command
	words []string
}

func newMachine(s string, operators bool) *machine {
	return &machine{src: []rune(s), operators: operators}
}

func (m *machine) peek() (rune, bool) {
	if m.i+1 < len(m.src) {
		return m.src[m.i+1], true
	}
	return 0, false
}

func (m *machine) run() {
	for m.i < len(m.src) {
		m.step(m.src[m.i])
		m.i++
	}
}

func (m *machine) step(c rune) {
	switch m.state {
	case StateIdle, StateCommandStart, StateArgument:
		m.stepWord(c)

	case StateSingleQuote:
		if c == '\'' {
			m.state = m.prev
		} else {
			m.cur.WriteRune(c)
		}

	case StateDoubleQuote:
		switch {
		case c == '"':
			m.state = m.prev
		case c == '\\':
			if next, ok := m.peek(); ok && (next == '"' || next == '\\' || next == '$') {
				m.cur.WriteRune(next)
				m.i++
			} else {
				m.cur.WriteRune(c)
			}
		default:
			m.cur.WriteRune(c)
		}

	case StateEscape:
		m.cur.WriteRune(c)
		m.state = m.prev

	case StatePipe:
		if unicode.IsSpace(c) {
			return
		}
		// The first character after a pipe opens the next command; it is
		// reprocessed so that quotes and escapes behave as anywhere else.
		m.state = StateCommandStart
		m.stepWord(c)

	case StateRedirectOut, StateRedirectAppend, StateRedirectIn:
		m.stepRedirect(c)
	}
}

func (m *machine) stepWord(c rune) {
	switch {
	case c == ' ' || c == '\t':
		if m.cur.Len() > 0 {
			m.flush()
			m.state = StateArgument
		}
	case c == '\'':
		m.enter(StateSingleQuote)
	case c == '"':
		m.enter(StateDoubleQuote)
	case c == '\\':
		m.enter(StateEscape)
	case m.operators && c == OpPipe:
		m.flush()
		if !m.cmd.IsEmpty() {
			m.cmds = append(m.cmds, m.cmd)
		}
		m.cmd = Command{}
		m.state = StatePipe
	case m.operators && c == OpRedirectOut:
		m.flush()
		if next, ok := m.peek(); ok && next == OpRedirectOut {
			m.i++
			m.state = StateRedirectAppend
		} else {
			m.state = StateRedirectOut
		}
	case m.operators && c == OpRedirectIn:
		m.flush()
		m.state = StateRedirectIn
	default:
		m.cur.WriteRune(c)
		if m.state == StateIdle {
			m.state = StateCommandStart
		}
	}
}

func (m *machine) stepRedirect(c rune) {
	switch c {
	case ' ', '\t':
		if m.cur.Len() > 0 {
			m.applyRedirect()
			m.state = StateArgument
		}
	case '\'':
		m.enter(StateSingleQuote)
	case '"':
		m.enter(StateDoubleQuote)
	case '\\':
		m.enter(StateEscape)
	default:
		m.cur.WriteRune(c)
	}
}

func (m *machine) enter(s State) {
	m.prev = m.state
	m.state = s
}

// flush moves the pending token into the current command, using the
// current state to decide between program and argument.
func (m *machine) flush() {
	m.flushAs(m.state)
}

func (m *machine) flushAs(s State) {
	if m.cur.Len() == 0 {
		return
	}
	tok := m.cur.String()
	m.cur.Reset()

	if !m.operators {
		m.words = append(m.words, tok)
		return
	}
	// A token in CommandStart always names the program, even if a stale
	// program survived from earlier state.
	if m.cmd.Program == "" || s == StateCommandStart {
		m.cmd.Program = tok
	} else {
		m.cmd.Args = append(m.cmd.Args, tok)
	}
}

// applyRedirect stores the pending token as the redirect target for the
// active redirect state.
func (m *machine) applyRedirect() {
	target := m.cur.String()
	m.cur.Reset()
	switch m.state {
	case StateRedirectOut, StateRedirectAppend:
		m.cmd.StdoutRedirect = target
		m.cmd.StdoutAppend = m.state == StateRedirectAppend
	case StateRedirectIn:
		m.cmd.StdinRedirect = target
	}
}

// finish applies end-of-input rules and produces the result.
func (m *machine) finish() Result {
	if m.cur.Len() > 0 {
		switch m.state {
		case StateRedirectOut, StateRedirectAppend, StateRedirectIn:
			m.applyRedirect()
			m.state = StateArgument
		case StateEscape:
			// Keep the content, but the state stays Escape so the
			// trailing backslash is still reported.
			m.flushAs(m.prev)
		default:
			m.flush()
		}
	}

	if !m.cmd.IsEmpty() {
		m.cmds = append(m.cmds, m.cmd)
	}

	switch m.state {
	case StateEscape:
		return errorResult(ErrTrailingBackslash)
	case StateSingleQuote, StateDoubleQuote:
		return errorResult(ErrUnclosedQuote)
	case StatePipe:
		return errorResult(ErrDanglingPipe)
	case StateRedirectOut, StateRedirectAppend:
		return errorResult(ErrDanglingOut)
	case StateRedirectIn:
		return errorResult(ErrDanglingIn)
	}

	if len(m.cmds) == 0 {
		return emptyResult()
	}
	return commandsResult(m.cmds)
}

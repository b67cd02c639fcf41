package repl

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
)

type spanKind int

const (
	spanPlain spanKind = iota
	spanCommand
	spanFlag
	spanOperator
	spanString
	spanTrigger
	spanQuery
)

type span struct {
	text string
	kind spanKind
}

// highlightSpans splits line into styled runs. Concatenating the text of
// the spans always gives back line.
func highlightSpans(prefix, line string) []span {
	trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
	if prefix != "" && strings.HasPrefix(trimmed, prefix) {
		lead := line[:len(line)-len(trimmed)]
		spans := []span{{lead, spanPlain}, {prefix, spanTrigger}, {trimmed[len(prefix):], spanQuery}}
		return dropEmpty(spans)
	}

	var (
		spans   []span
		word    strings.Builder
		quote   rune
		command = true
	)
	flushWord := func() {
		if word.Len() == 0 {
			return
		}
		w := word.String()
		kind := spanPlain
		switch {
		case strings.HasPrefix(w, "-"):
			kind = spanFlag
		case command:
			kind = spanCommand
		}
		spans = append(spans, span{w, kind})
		command = false
		word.Reset()
	}

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case quote != 0:
			word.WriteRune(c)
			if c == quote {
				spans = append(spans, span{word.String(), spanString})
				word.Reset()
				quote = 0
				command = false
			}
		case c == '\\' && i+1 < len(runes):
			word.WriteRune(c)
			word.WriteRune(runes[i+1])
			i++
		case c == '\'' || c == '"':
			flushWord()
			quote = c
			word.WriteRune(c)
		case c == '|' || c == '>' || c == '<':
			flushWord()
			spans = append(spans, span{string(c), spanOperator})
			if c == '|' {
				command = true
			}
		case unicode.IsSpace(c):
			flushWord()
			spans = append(spans, span{string(c), spanPlain})
		default:
			word.WriteRune(c)
		}
	}
	if quote != 0 {
		spans = append(spans, span{word.String(), spanString})
	} else {
		flushWord()
	}
	return mergePlain(spans)
}

func dropEmpty(spans []span) []span {
	out := spans[:0]
	for _, s := range spans {
		if s.text != "" {
			out = append(out, s)
		}
	}
	return out
}

func mergePlain(spans []span) []span {
	var out []span
	for _, s := range spans {
		if n := len(out); n > 0 && s.kind == spanPlain && out[n-1].kind == spanPlain {
			out[n-1].text += s.text
			continue
		}
		out = append(out, s)
	}
	return out
}

// Painter colours the line being edited.
type Painter struct {
	Theme  Theme
	Prefix string
}

// Paint implements readline.Painter.
func (p Painter) Paint(line []rune, _ int) []rune {
	var b strings.Builder
	for _, s := range highlightSpans(p.Prefix, string(line)) {
		if s.kind == spanPlain {
			b.WriteString(s.text)
			continue
		}
		b.WriteString(p.style(s.kind).Render(s.text))
	}
	return []rune(b.String())
}

func (p Painter) style(k spanKind) lipgloss.Style {
	switch k {
	case spanCommand:
		return p.Theme.Command
	case spanFlag:
		return p.Theme.Flag
	case spanOperator:
		return p.Theme.Operator
	case spanString:
		return p.Theme.String
	case spanTrigger:
		return p.Theme.Trigger
	}
	return p.Theme.Query
}

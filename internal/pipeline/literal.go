package pipeline

import "errors"

var (
	ErrLiteralUnclosedQuote     = errors.New("unclosed quote")
	ErrLiteralTrailingBackslash = errors.New("trailing backslash")
)

// SplitLiteral tokenizes s with the same quoting and escaping rules as Parse
// but without operators: |, > and < are ordinary characters. Alias values
// are split this way.
func SplitLiteral(s string) ([]string, error) {
	m := newMachine(s, false)
	m.run()

	switch m.state {
	case StateSingleQuote, StateDoubleQuote:
		return nil, ErrLiteralUnclosedQuote
	case StateEscape:
		return nil, ErrLiteralTrailingBackslash
	}
	m.flush()
	return m.words, nil
}

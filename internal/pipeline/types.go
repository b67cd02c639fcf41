package pipeline

import "fmt"

// Operator characters recognised outside quotes.
const (
	OpPipe        = '|'
	OpRedirectOut = '>' // doubled for append
	OpRedirectIn  = '<'
)

// State is the parser's active state. Exactly one state is active at a time;
// the quote and escape states remember the state to return to.
type State int

const (
	StateIdle State = iota
	StateCommandStart
	StateArgument
	StateSingleQuote
	StateDoubleQuote
	StatePipe
	StateRedirectOut
	StateRedirectAppend
	StateRedirectIn
	StateEscape
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateCommandStart:
		return "Command"
	case StateArgument:
		return "Argument"
	case StateSingleQuote:
		return "SingleQuote"
	case StateDoubleQuote:
		return "DoubleQuote"
	case StatePipe:
		return "Pipe"
	case StateRedirectOut:
		return "RedirectOut"
	case StateRedirectAppend:
		return "RedirectAppend"
	case StateRedirectIn:
		return "RedirectIn"
	case StateEscape:
		return "Escape"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Command is a single stage of a pipeline.
type Command struct {
	Program        string
	Args           []string
	StdinRedirect  string // file path for < redirect, empty if none
	StdoutRedirect string // file path for > or >> redirect, empty if none
	StdoutAppend   bool   // true when StdoutRedirect came from >>
}

// IsEmpty reports whether the command has no program. Empty commands are
// never appended to a pipeline.
func (c *Command) IsEmpty() bool {
	return c.Program == ""
}

// Kind discriminates the variants of Result.
type Kind int

const (
	KindEmpty Kind = iota
	KindCommands
	KindAIQuery
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindCommands:
		return "commands"
	case KindAIQuery:
		return "ai-query"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the outcome of parsing one input line: a pipeline, a
// natural-language query, nothing, or a syntax error. Only the field that
// matches Kind is meaningful.
type Result struct {
	Kind     Kind
	Commands []Command // KindCommands
	Query    string    // KindAIQuery
	Err      string    // KindError
}

func emptyResult() Result                  { return Result{Kind: KindEmpty} }
func commandsResult(cmds []Command) Result { return Result{Kind: KindCommands, Commands: cmds} }
func queryResult(q string) Result          { return Result{Kind: KindAIQuery, Query: q} }
func errorResult(msg string) Result        { return Result{Kind: KindError, Err: msg} }

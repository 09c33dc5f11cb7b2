package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Protocol errors.
var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadQuote       = errors.New("malformed quoted argument")
	ErrArgCount       = errors.New("wrong number of arguments")
	ErrBadNumber      = errors.New("malformed number")
	ErrNoDocument     = errors.New("no such open document")
	ErrNoMatch        = errors.New("no files match")
)

// Request is one parsed command line.
type Request struct {
	Seq     int
	Command string
	Args    []string
}

// Response is written as a single JSON line.
type Response struct {
	Seq       int    `json:"seq"`
	Command   string `json:"command"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Cancelled bool   `json:"cancelled"`
	Body      any    `json:"body,omitempty"`
}

// ParseRequest splits line into a command and its arguments.
func ParseRequest(seq int, line string) (Request, error) {
	args, err := splitArgs(line)
	if err != nil {
		return Request{Seq: seq}, err
	}
	if len(args) == 0 {
		return Request{Seq: seq}, ErrEmptyCommand
	}
	req := Request{Seq: seq, Command: strings.ToLower(args[0])}
	if len(args) > 1 {
		req.Args = args[1:]
	}
	return req, nil
}

func splitArgs(line string) ([]string, error) {
	var args []string
	s := strings.TrimRightFunc(line, unicode.IsSpace)
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if s == "" {
			return args, nil
		}
		if s[0] == '"' || s[0] == '`' {
			quoted, err := strconv.QuotedPrefix(s)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", ErrBadQuote, s)
			}
			arg, err := strconv.Unquote(quoted)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", ErrBadQuote, quoted)
			}
			args = append(args, arg)
			s = s[len(quoted):]
			if s != "" && !unicode.IsSpace(rune(s[0])) {
				return nil, fmt.Errorf("%w: text after closing quote", ErrBadQuote)
			}
			continue
		}
		end := strings.IndexFunc(s, unicode.IsSpace)
		if end < 0 {
			end = len(s)
		}
		args = append(args, s[:end])
		s = s[end:]
	}
}

// FormatRequest renders a command line that ParseRequest reads back as
// command and args.
func FormatRequest(command string, args ...string) string {
	var b strings.Builder
	b.WriteString(command)
	for _, a := range args {
		b.WriteByte(' ')
		if q := strconv.Quote(a); a == "" || q != `"`+a+`"` || strings.ContainsAny(a, " `") {
			b.WriteString(q)
		} else {
			b.WriteString(a)
		}
	}
	return b.String()
}

// args is a cursor over request arguments.
type args struct {
	req Request
	i   int
	err error
}

func (a *args) fail(err error) {
	if a.err == nil {
		a.err = err
	}
}

func (a *args) str(name string) string {
	if a.i >= len(a.req.Args) {
		a.fail(fmt.Errorf("%w: %s needs <%s>", ErrArgCount, a.req.Command, name))
		return ""
	}
	s := a.req.Args[a.i]
	a.i++
	return s
}

func (a *args) int(name string) int {
	s := a.str(name)
	if a.err != nil {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		a.fail(fmt.Errorf("%w: <%s> %q", ErrBadNumber, name, s))
	}
	return n
}

func (a *args) optional() (string, bool) {
	if a.i >= len(a.req.Args) {
		return "", false
	}
	s := a.req.Args[a.i]
	a.i++
	return s, true
}

func (a *args) remaining() int {
	return len(a.req.Args) - a.i
}

// done reports the first parse error, or an error if arguments are left.
func (a *args) done() error {
	if a.err != nil {
		return a.err
	}
	if a.i < len(a.req.Args) {
		return fmt.Errorf("%w: %s takes %d, got %d", ErrArgCount, a.req.Command, a.i, len(a.req.Args))
	}
	return nil
}

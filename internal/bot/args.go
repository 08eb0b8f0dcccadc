package bot

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/rl1809/guild-bag/internal/errors"
)

// Args consumes the text after a command name, left to right.
type Args struct {
	command string
	rest    string
}

func NewArgs(command, text string) *Args {
	return &Args{command: command, rest: strings.TrimSpace(text)}
}

// Raw returns what has not been consumed yet.
func (a *Args) Raw() string {
	return a.rest
}

func (a *Args) next() (string, bool) {
	if a.rest == "" {
		return "", false
	}
	end := strings.IndexFunc(a.rest, unicode.IsSpace)
	if end < 0 {
		tok := a.rest
		a.rest = ""
		return tok, true
	}
	tok := a.rest[:end]
	a.rest = strings.TrimSpace(a.rest[end:])
	return tok, true
}

// Int consumes one integer argument.
func (a *Args) Int(name string) (int, error) {
	tok, ok := a.next()
	if !ok {
		return 0, errors.MissingArgument(a.command, name)
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, errors.BadArgument(a.command, name, tok)
	}
	return n, nil
}

// IntOr consumes an optional integer argument.
func (a *Args) IntOr(name string, def int) (int, error) {
	if a.rest == "" {
		return def, nil
	}
	return a.Int(name)
}

// Rest consumes everything left as one string, as typed.
func (a *Args) Rest(name string) (string, error) {
	if a.rest == "" {
		return "", errors.MissingArgument(a.command, name)
	}
	s := a.rest
	a.rest = ""
	return s, nil
}

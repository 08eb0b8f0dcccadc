package bot

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rl1809/guild-bag/internal/core/domain"
	"github.com/rl1809/guild-bag/internal/errors"
)

// HandlerFunc runs one command and returns the reply text.
type HandlerFunc func(ctx context.Context, req domain.Request, args *Args) (string, error)

type Command struct {
	Name    string
	Handler HandlerFunc
}

// Router holds the command registry for one prefix.
type Router struct {
	prefix   string
	commands map[string]Command
	order    []string
}

func NewRouter(prefix string) *Router {
	return &Router{
		prefix:   prefix,
		commands: make(map[string]Command),
	}
}

func (r *Router) Prefix() string {
	return r.prefix
}

// Register adds cmd. Registering the same name twice panics.
func (r *Router) Register(cmd Command) {
	if _, exists := r.commands[cmd.Name]; exists {
		panic(fmt.Sprintf("bot: command %q registered twice", cmd.Name))
	}
	r.commands[cmd.Name] = cmd
	r.order = append(r.order, cmd.Name)
}

// Commands returns the registered commands in registration order.
func (r *Router) Commands() []Command {
	out := make([]Command, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.commands[name])
	}
	return out
}

// Split extracts the command name and its argument text. ok is false when
// text is not addressed to the bot.
func (r *Router) Split(text string) (name, rest string, ok bool) {
	text = strings.TrimLeftFunc(text, unicode.IsSpace)
	if !strings.HasPrefix(text, r.prefix) {
		return "", "", false
	}
	body := text[len(r.prefix):]
	end := strings.IndexFunc(body, unicode.IsSpace)
	if end < 0 {
		name, rest = body, ""
	} else {
		name, rest = body[:end], body[end:]
	}
	if name == "" {
		return "", "", false
	}
	return name, rest, true
}

// Route runs the command addressed by req.Text.
func (r *Router) Route(ctx context.Context, req domain.Request) (string, error) {
	name, rest, ok := r.Split(req.Text)
	if !ok {
		return "", nil
	}
	cmd, found := r.commands[name]
	if !found {
		return "", errors.CommandNotFound(name)
	}
	return cmd.Handler(ctx, req, NewArgs(name, rest))
}

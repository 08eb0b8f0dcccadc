package handler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rl1809/guild-bag/internal/core/domain"
)

// Console reads one message per line and prints the bot's replies.
type Console struct {
	dispatcher Submitter
	in         io.Reader
	out        io.Writer
	author     string
}

func NewConsole(dispatcher Submitter, in io.Reader, out io.Writer, author string) *Console {
	return &Console{dispatcher: dispatcher, in: in, out: out, author: author}
}

// Run returns at end of input or when ctx is done.
func (c *Console) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			reply, err := c.dispatcher.Submit(ctx, domain.Request{Author: c.author, Channel: "console", Text: line})
			if err != nil {
				return err
			}
			if reply.Content != "" {
				fmt.Fprintln(c.out, reply.Content)
			}
		}
	}
}

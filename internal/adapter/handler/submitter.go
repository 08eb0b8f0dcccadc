package handler

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/rl1809/guild-bag/internal/bot"
	"github.com/rl1809/guild-bag/internal/core/domain"
)

// Submitter is the part of bot.Dispatcher the transports need.
type Submitter interface {
	Submit(ctx context.Context, req domain.Request) (bot.Reply, error)
}

// tokenMatches compares a "Bearer <token>" header value against the shared
// token. An empty token disables the check.
func tokenMatches(header, token string) bool {
	if token == "" {
		return true
	}
	got, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}

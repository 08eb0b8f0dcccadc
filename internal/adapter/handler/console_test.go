package handler

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsole_Run(t *testing.T) {
	h := newHarness(t)

	in := strings.NewReader("$add 4 arrows\n\nnot a command\n$remove 1 arrows\n$list\n")
	var out bytes.Buffer

	require.NoError(t, NewConsole(h.dispatcher, in, &out, "console").Run(context.Background()))

	assert.Equal(t, "Added 4x arrows to the Guild's bag.\n"+
		"Removed 1x arrows from the Guild's bag.\n"+
		"```Guild Bag - Page 1/1\narrows: 3```\n", out.String())
}

func TestConsole_ClosedDispatcher(t *testing.T) {
	h := newHarness(t)
	h.dispatcher.Close()

	err := NewConsole(h.dispatcher, strings.NewReader("$h\n"), &bytes.Buffer{}, "console").Run(context.Background())
	assert.Error(t, err)
}

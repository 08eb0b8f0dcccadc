package bot

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rl1809/guild-bag/internal/adapter/storage"
	"github.com/rl1809/guild-bag/internal/core/domain"
	"github.com/rl1809/guild-bag/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func nullLogger() (*logrus.Entry, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return logrus.NewEntry(logger), hook
}

func TestArgs(t *testing.T) {
	a := NewArgs("add", "  3   Potion  of Healing  ")
	n, err := a.Int("count")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	item, err := a.Rest("item")
	require.NoError(t, err)
	assert.Equal(t, "Potion  of Healing", item)

	_, err = NewArgs("add", "three rope").Int("count")
	assert.True(t, errors.Is(err, errors.ErrCodeBadArgument))

	_, err = NewArgs("add", "").Int("count")
	assert.True(t, errors.Is(err, errors.ErrCodeMissingArgument))

	a = NewArgs("add", "3")
	_, _ = a.Int("count")
	_, err = a.Rest("item")
	assert.True(t, errors.Is(err, errors.ErrCodeMissingArgument))

	n, err = NewArgs("list", "").IntOr("page", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = NewArgs("ca", "-7").Int("amount")
	require.NoError(t, err)
	assert.Equal(t, -7, n)
}

func TestRouterSplit(t *testing.T) {
	r := NewRouter("$")

	cases := []struct {
		text, name, rest string
		ok               bool
	}{
		{"$add 3 rope", "add", " 3 rope", true},
		{"  $list", "list", "", true},
		{"$h\textra", "h", "\textra", true},
		{"hello there", "", "", false},
		{"$", "", "", false},
		{"$ add 1 rope", "", "", false},
	}
	for _, tc := range cases {
		name, rest, ok := r.Split(tc.text)
		assert.Equal(t, tc.ok, ok, tc.text)
		assert.Equal(t, tc.name, name, tc.text)
		assert.Equal(t, tc.rest, rest, tc.text)
	}
}

func TestRouterRoute(t *testing.T) {
	r := NewRouter("!")
	r.Register(Command{Name: "echo", Handler: func(ctx context.Context, req domain.Request, args *Args) (string, error) {
		return args.Rest("text")
	}})

	reply, err := r.Route(context.Background(), domain.Request{Text: "!echo  hi there"})
	require.NoError(t, err)
	assert.Equal(t, "hi there", reply)

	_, err = r.Route(context.Background(), domain.Request{Text: "!nope"})
	assert.True(t, errors.Is(err, errors.ErrCodeCommandNotFound))

	assert.Panics(t, func() { r.Register(Command{Name: "echo"}) })
	assert.Len(t, r.Commands(), 1)
}

func TestResponder(t *testing.T) {
	log, hook := nullLogger()
	resp := NewResponder("$", log)
	req := domain.Request{ID: "r-1", Text: "$add"}

	reply, ok := resp.Respond(req, errors.BadArgument("add", "count", "x"))
	assert.True(t, ok)
	assert.Equal(t, "Invalid arguments. Please check your command format.", reply)

	reply, ok = resp.Respond(req, errors.CommandNotFound("foo"))
	assert.True(t, ok)
	assert.Equal(t, "Command not found. Use $h to see available commands.", reply)

	reply, ok = resp.Respond(req, fmt.Errorf("wrapped: %w", errors.MissingArgument("add", "item")))
	assert.True(t, ok)
	assert.Equal(t, "Missing required arguments. Use $h to see command formats.", reply)

	reply, ok = resp.Respond(req, errors.Storage("save", fmt.Errorf("disk full")))
	assert.False(t, ok)
	assert.Empty(t, reply)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "r-1", hook.LastEntry().Data["request_id"])
}

func newTestDispatcher(t *testing.T, r *Router) *Dispatcher {
	t.Helper()
	log, _ := nullLogger()
	d := NewDispatcher(r, NewResponder(r.Prefix(), log), storage.NewMemoryIdempotency(time.Hour), 16, log)
	t.Cleanup(d.Close)
	return d
}

func TestDispatcher_RunsInSubmissionOrder(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	inFlight := 0

	r := NewRouter("$")
	r.Register(Command{Name: "note", Handler: func(ctx context.Context, req domain.Request, args *Args) (string, error) {
		mu.Lock()
		inFlight++
		if inFlight > 1 {
			t.Error("commands overlapped")
		}
		mu.Unlock()

		time.Sleep(time.Millisecond)

		mu.Lock()
		seen = append(seen, args.Raw())
		inFlight--
		mu.Unlock()
		return "ok", nil
	}})
	d := newTestDispatcher(t, r)

	for i := 0; i < 5; i++ {
		reply, err := d.Submit(context.Background(), domain.Request{Text: fmt.Sprintf("$note %d", i)})
		require.NoError(t, err)
		assert.Equal(t, "ok", reply.Content)
		assert.Equal(t, domain.RequestStatusDone, reply.Status)
		assert.NotEmpty(t, reply.RequestID)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := d.Submit(context.Background(), domain.Request{Text: fmt.Sprintf("$note c%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"0", "1", "2", "3", "4"}, seen[:5])
	assert.Len(t, seen, 25)
}

func TestDispatcher_DropsDuplicates(t *testing.T) {
	calls := 0
	r := NewRouter("$")
	r.Register(Command{Name: "inc", Handler: func(ctx context.Context, req domain.Request, args *Args) (string, error) {
		calls++
		return "done", nil
	}})
	d := newTestDispatcher(t, r)

	first, err := d.Submit(context.Background(), domain.Request{ID: "msg-1", Text: "$inc"})
	require.NoError(t, err)
	assert.Equal(t, "done", first.Content)

	second, err := d.Submit(context.Background(), domain.Request{ID: "msg-1", Text: "$inc"})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusDuplicate, second.Status)
	assert.Empty(t, second.Content)
	assert.Equal(t, 1, calls)
}

func TestDispatcher_ErrorsAndNonCommands(t *testing.T) {
	r := NewRouter("$")
	r.Register(Command{Name: "boom", Handler: func(ctx context.Context, req domain.Request, args *Args) (string, error) {
		panic("kaboom")
	}})
	d := newTestDispatcher(t, r)

	reply, err := d.Submit(context.Background(), domain.Request{Text: "just chatting"})
	require.NoError(t, err)
	assert.Empty(t, reply.Content)

	reply, err = d.Submit(context.Background(), domain.Request{Text: "$missing"})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusFailed, reply.Status)
	assert.Equal(t, "Command not found. Use $h to see available commands.", reply.Content)

	reply, err = d.Submit(context.Background(), domain.Request{Text: "$boom"})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusFailed, reply.Status)
	assert.Empty(t, reply.Content, "unexpected errors are not shown")

	// The worker survived the panic.
	reply, err = d.Submit(context.Background(), domain.Request{Text: "$missing"})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Content)
}

func TestDispatcher_CancelledWaitStillRuns(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	ran := make(chan struct{})
	r := NewRouter("$")
	r.Register(Command{Name: "slow", Handler: func(ctx context.Context, req domain.Request, args *Args) (string, error) {
		close(started)
		<-release
		defer close(ran)
		return "late", ctx.Err()
	}})
	d := newTestDispatcher(t, r)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := d.Submit(ctx, domain.Request{Text: "$slow"})
		errc <- err
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(release)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("queued command did not finish")
	}
}

func TestDispatcher_Closed(t *testing.T) {
	log, _ := nullLogger()
	r := NewRouter("$")
	d := NewDispatcher(r, NewResponder("$", log), nil, 1, log)
	d.Close()
	d.Close()

	_, err := d.Submit(context.Background(), domain.Request{Text: "$h"})
	assert.ErrorIs(t, err, ErrDispatcherClosed)
}

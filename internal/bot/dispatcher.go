package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/guild-bag/internal/core/domain"
	bagerrors "github.com/rl1809/guild-bag/internal/errors"
	"github.com/rl1809/guild-bag/internal/port"
)

var ErrDispatcherClosed = errors.New("dispatcher closed")

// Reply is the outcome of one request. Content is empty when nothing should
// be sent back: the message was not a command, it was a duplicate, or it
// failed with an error that is only logged.
type Reply struct {
	RequestID string
	Content   string
	Status    domain.RequestStatus
}

type job struct {
	ctx    context.Context
	req    domain.Request
	dedupe bool
	done   chan Reply
}

// Dispatcher runs commands one at a time, in the order they were submitted.
type Dispatcher struct {
	router    *Router
	responder *Responder
	dedup     port.IdempotencyRepository
	log       *logrus.Entry

	mu     sync.RWMutex
	closed bool
	queue  chan job
	wg     sync.WaitGroup
}

// NewDispatcher starts the worker. dedup may be nil to disable duplicate
// suppression.
func NewDispatcher(router *Router, responder *Responder, dedup port.IdempotencyRepository, queueSize int, log *logrus.Entry) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	d := &Dispatcher{
		router:    router,
		responder: responder,
		dedup:     dedup,
		log:       log,
		queue:     make(chan job, queueSize),
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.workerLoop()
	}()
	return d
}

// Submit queues req and waits for its reply. A request without an ID gets a
// fresh one and skips duplicate detection. Once queued, the command runs even
// if ctx is cancelled; cancellation only stops the wait.
func (d *Dispatcher) Submit(ctx context.Context, req domain.Request) (Reply, error) {
	if _, _, ok := d.router.Split(req.Text); !ok {
		return Reply{RequestID: req.ID, Status: domain.RequestStatusDone}, nil
	}

	dedupe := req.ID != ""
	if !dedupe {
		req.ID = uuid.NewString()
	}
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = time.Now()
	}
	req.Status = domain.RequestStatusPending

	j := job{ctx: context.WithoutCancel(ctx), req: req, dedupe: dedupe, done: make(chan Reply, 1)}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return Reply{}, ErrDispatcherClosed
	}
	select {
	case d.queue <- j:
		d.mu.RUnlock()
	case <-ctx.Done():
		d.mu.RUnlock()
		return Reply{}, ctx.Err()
	}

	select {
	case r := <-j.done:
		return r, nil
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Close stops accepting requests, runs everything already queued and waits
// for the worker to exit.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) workerLoop() {
	for j := range d.queue {
		j.done <- d.run(j)
	}
}

func (d *Dispatcher) run(j job) Reply {
	req := j.req
	log := d.log.WithFields(logrus.Fields{
		"request_id": req.ID,
		"author":     req.Author,
		"channel":    req.Channel,
	})

	if j.dedupe && d.dedup != nil {
		fresh, err := d.dedup.SetIdempotency(j.ctx, req.ID)
		if err != nil {
			log.WithError(err).Warn("idempotency check failed, running command anyway")
		} else if !fresh {
			log.Info("duplicate request dropped")
			return Reply{RequestID: req.ID, Status: domain.RequestStatusDuplicate}
		}
	}

	start := time.Now()
	content, err := d.safeRoute(j.ctx, req)
	log = log.WithField("duration", time.Since(start))
	if err != nil {
		reply, visible := d.responder.Respond(req, err)
		if visible {
			log.WithError(err).Debug("command rejected")
		}
		return Reply{RequestID: req.ID, Content: reply, Status: domain.RequestStatusFailed}
	}

	log.WithField("command", req.Text).Debug("command done")
	return Reply{RequestID: req.ID, Content: content, Status: domain.RequestStatusDone}
}

// safeRoute keeps a panicking handler from killing the worker.
func (d *Dispatcher) safeRoute(ctx context.Context, req domain.Request) (content string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = bagerrors.New(bagerrors.ErrCodeInternal, fmt.Sprintf("command panicked: %v", p))
		}
	}()
	return d.router.Route(ctx, req)
}

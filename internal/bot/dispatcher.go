package bot

import (
	"context"
	"log/slog"
	"sync"
)

// HandlerFunc processes one event.
type HandlerFunc func(ctx context.Context, ev Event)

// InterceptFunc sees every event on arrival, before it is queued. It may
// annotate ev; returning true consumes it.
type InterceptFunc func(ctx context.Context, ev *Event) bool

// Dispatcher queues events into per-user mailboxes. A mailbox is drained by
// one goroutine that exists only while the mailbox is non-empty.
type Dispatcher struct {
	handle    HandlerFunc
	intercept InterceptFunc

	mu        sync.Mutex
	mailboxes map[int64][]Event
	closed    bool
	wg        sync.WaitGroup
}

func NewDispatcher(handle HandlerFunc, intercept InterceptFunc) *Dispatcher {
	return &Dispatcher{
		handle:    handle,
		intercept: intercept,
		mailboxes: make(map[int64][]Event),
	}
}

// Dispatch enqueues ev for its user. It never blocks on handling. ctx is
// passed to the handler and must outlive the dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	if d.intercept != nil && d.intercept(ctx, &ev) {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		slog.Warn("dispatcher closed, dropping event",
			slog.Int64("user_id", ev.UserID),
			slog.String("kind", ev.Kind.String()),
		)
		return
	}
	box, running := d.mailboxes[ev.UserID]
	d.mailboxes[ev.UserID] = append(box, ev)
	if !running {
		d.wg.Add(1)
		go d.drain(ctx, ev.UserID)
	}
}

func (d *Dispatcher) drain(ctx context.Context, userID int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		box := d.mailboxes[userID]
		if len(box) == 0 {
			delete(d.mailboxes, userID)
			d.mu.Unlock()
			return
		}
		ev := box[0]
		box[0] = Event{}
		d.mailboxes[userID] = box[1:]
		d.mu.Unlock()

		d.run(ctx, ev)
	}
}

func (d *Dispatcher) run(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked",
				slog.Int64("user_id", ev.UserID),
				slog.String("kind", ev.Kind.String()),
				slog.Any("panic", r),
			)
		}
	}()
	d.handle(ctx, ev)
}

// Pending reports how many users have a running mailbox.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.mailboxes)
}

// Close stops accepting events and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

package event

import (
	"context"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sourcegraph/conc"

	"github.com/julianstephens/activitytracker/internal/constants"
	"github.com/julianstephens/activitytracker/internal/errors"
	"github.com/julianstephens/activitytracker/internal/logger"
)

// Wildcard subscribes a handler to every queue
const Wildcard = "*"

// Options configures a Dispatcher
type Options struct {
	// PollInterval bounds how long the idle worker sleeps without a signal.
	// Defaults to two seconds.
	PollInterval time.Duration
	Logger       *log.Logger
}

// Dispatcher owns a set of named FIFO queues and one worker that drains them
type Dispatcher struct {
	mu     sync.Mutex
	names  []string
	queues map[string][]Event
	subs   map[string][]subscription
	nextID atomic.Uint64

	// pending holds at most one token: "some queue may be non-empty"
	pending  chan struct{}
	inflight atomic.Int64
	handled  atomic.Uint64

	lifeMu  sync.Mutex
	stop    chan struct{}
	wg      *conc.WaitGroup
	running atomic.Bool

	pollInterval time.Duration
	logger       *log.Logger
}

// NewDispatcher returns a stopped dispatcher
func NewDispatcher(opts Options) *Dispatcher {
	poll := opts.PollInterval
	if poll <= 0 {
		poll = constants.DefaultPollInterval
	}
	return &Dispatcher{
		queues:       make(map[string][]Event),
		subs:         make(map[string][]subscription),
		pending:      make(chan struct{}, 1),
		pollInterval: poll,
		logger:       logger.OrDiscard(opts.Logger),
	}
}

// Publish appends e to the queue named key, creating the queue on first use,
// and wakes the worker. It never waits for delivery.
func (d *Dispatcher) Publish(key string, e Event) error {
	if key == "" {
		return errors.InvalidArgument("event queue key is empty")
	}
	e.Queue = key
	if e.At.IsZero() {
		e.At = time.Now()
	}

	d.mu.Lock()
	if _, ok := d.queues[key]; !ok {
		d.names = append(d.names, key)
		d.queues[key] = nil
	}
	d.queues[key] = append(d.queues[key], e)
	d.mu.Unlock()

	select {
	case d.pending <- struct{}{}:
	default:
	}
	return nil
}

// Subscribe registers handler for events published under key and returns
// an id for Unsubscribe
func (d *Dispatcher) Subscribe(key string, handler Handler) string {
	id := "sub-" + strconv.FormatUint(d.nextID.Add(1), 10)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs[key] = append(d.subs[key], subscription{id: id, key: key, handler: handler})
	return id
}

// SubscribeAll registers handler for every queue
func (d *Dispatcher) SubscribeAll(handler Handler) string {
	return d.Subscribe(Wildcard, handler)
}

// Unsubscribe removes a subscription, reporting whether it existed
func (d *Dispatcher) Unsubscribe(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, subs := range d.subs {
		for i, sub := range subs {
			if sub.id == id {
				d.subs[key] = append(subs[:i:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Start launches the worker. Calling Start on a running dispatcher does nothing.
func (d *Dispatcher) Start() {
	d.lifeMu.Lock()
	defer d.lifeMu.Unlock()

	if d.running.Load() {
		return
	}
	d.stop = make(chan struct{})
	d.wg = conc.NewWaitGroup()
	d.running.Store(true)

	stop := d.stop
	d.wg.Go(func() { d.run(stop) })
	d.logger.Debug("dispatcher started", "poll_interval", d.pollInterval)
}

// Stop asks the worker to exit and waits for it. A pass already in progress
// is finished first. Calling Stop on a stopped dispatcher does nothing.
func (d *Dispatcher) Stop() {
	d.lifeMu.Lock()
	defer d.lifeMu.Unlock()

	if !d.running.Load() {
		return
	}
	close(d.stop)
	d.wg.Wait()
	d.running.Store(false)
	d.logger.Debug("dispatcher stopped", "pending", d.TotalPending())
}

// Running reports whether the worker is active
func (d *Dispatcher) Running() bool {
	return d.running.Load()
}

// TotalPending counts queued events. The value is a snapshot and may be
// stale by the time the caller reads it.
func (d *Dispatcher) TotalPending() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	total := 0
	for _, q := range d.queues {
		total += len(q)
	}
	return total
}

// QueueNames lists queue keys in creation order
func (d *Dispatcher) QueueNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.names...)
}

// Handled counts events taken off a queue by the worker
func (d *Dispatcher) Handled() uint64 {
	return d.handled.Load()
}

// SubscriptionCount returns the number of active subscriptions
func (d *Dispatcher) SubscriptionCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, subs := range d.subs {
		n += len(subs)
	}
	return n
}

// WaitIdle blocks until every queue is empty and no handler is running,
// or ctx is done.
func (d *Dispatcher) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if d.TotalPending() == 0 && d.inflight.Load() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *Dispatcher) run(stop <-chan struct{}) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		// Stop wins over a pending signal
		select {
		case <-stop:
			return
		default:
		}
		select {
		case <-stop:
			return
		case <-d.pending:
		case <-ticker.C:
		}
		d.drain()
	}
}

// drain makes one pass over the queues in creation order, delivering only
// the events that were queued when the pass began. Events published during
// the pass have re-armed the pending signal and wait for the next one.
func (d *Dispatcher) drain() {
	for _, b := range d.backlog() {
		for i := 0; i < b.n; i++ {
			e, ok := d.dequeue(b.key)
			if !ok {
				break
			}
			d.dispatch(e)
			d.inflight.Add(-1)
		}
	}
}

type queueBacklog struct {
	key string
	n   int
}

func (d *Dispatcher) backlog() []queueBacklog {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]queueBacklog, 0, len(d.names))
	for _, key := range d.names {
		if n := len(d.queues[key]); n > 0 {
			out = append(out, queueBacklog{key: key, n: n})
		}
	}
	return out
}

func (d *Dispatcher) dequeue(key string) (Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := d.queues[key]
	if len(q) == 0 {
		return Event{}, false
	}
	e := q[0]
	q[0] = Event{}
	d.queues[key] = q[1:]
	d.inflight.Add(1)
	d.handled.Add(1)
	return e, true
}

func (d *Dispatcher) dispatch(e Event) {
	d.mu.Lock()
	specific := append([]subscription(nil), d.subs[e.Queue]...)
	wildcard := append([]subscription(nil), d.subs[Wildcard]...)
	d.mu.Unlock()

	if len(specific) == 0 && len(wildcard) == 0 {
		d.logger.Debug("no subscribers, event dropped", "queue", e.Queue, "type", e.Type)
		return
	}
	for _, sub := range specific {
		d.safeCall(sub.handler, e)
	}
	for _, sub := range wildcard {
		d.safeCall(sub.handler, e)
	}
}

func (d *Dispatcher) safeCall(handler Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked", "queue", e.Queue, "type", e.Type, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	handler(e)
}

package intake

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/wolfman30/cybersathi/pkg/logging"
)

// EventHandler processes a single inbound event.
type EventHandler interface {
	Handle(ctx context.Context, ev Event) error
}

// Dispatcher fans inbound events out to a fixed set of workers. Events are
// sharded by sender so one sender's events are handled in arrival order by
// a single worker.
type Dispatcher struct {
	handler EventHandler
	logger  *logging.Logger
	shards  []chan Event

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	started bool
}

// NewDispatcher creates a dispatcher with workers shards of buffer capacity each.
func NewDispatcher(handler EventHandler, workers, buffer int, logger *logging.Logger) *Dispatcher {
	if handler == nil {
		panic("intake: dispatcher handler required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 128
	}
	shards := make([]chan Event, workers)
	for i := range shards {
		shards[i] = make(chan Event, buffer)
	}
	return &Dispatcher{handler: handler, logger: logger.Component("dispatcher"), shards: shards}
}

// Start launches the workers. Handlers run with ctx.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	for i, ch := range d.shards {
		d.wg.Add(1)
		go d.run(ctx, i, ch)
	}
}

func (d *Dispatcher) run(ctx context.Context, id int, ch <-chan Event) {
	defer d.wg.Done()
	for ev := range ch {
		if err := d.handler.Handle(ctx, ev); err != nil {
			d.logger.Error("event handling failed", "error", err, "worker", id, "sender", ev.Sender, "message_id", ev.MessageID)
		}
	}
}

// Submit enqueues ev, blocking until there is room or ctx is done.
func (d *Dispatcher) Submit(ctx context.Context, ev Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.shards[d.shardFor(ev.Sender)] <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes the queues and waits for in-flight events to drain.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.shards {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) shardFor(sender string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sender))
	return int(h.Sum32() % uint32(len(d.shards)))
}

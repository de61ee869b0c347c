package messaging

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// MemoryConfig configures the in-process queue.
type MemoryConfig struct {
	// Buffer is the per-destination queue capacity. Publish blocks when full.
	Buffer int
}

// Memory is an in-process Messaging. Every destination is a single queue:
// concurrent consumers of the same source compete for messages. Nacked
// messages are requeued. Nothing survives a restart.
type Memory struct {
	buffer int
	seq    atomic.Uint64

	mu     sync.Mutex
	queues map[string]chan *delivery
	done   chan struct{}
	closed bool
}

// NewMemory constructs an in-process queue.
func NewMemory(cfg MemoryConfig) *Memory {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1024
	}

	return &Memory{
		buffer: cfg.Buffer,
		queues: map[string]chan *delivery{},
		done:   make(chan struct{}),
	}
}

// Close stops consumers and rejects further publishes.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// Publish enqueues a message, after msg.Delay when set.
func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}

	q, err := m.queue(destination)
	if err != nil {
		return err
	}

	d := m.newDelivery(destination, slices.Clone(msg.Body), slices.Clone(msg.Headers))
	if msg.Delay > 0 {
		time.AfterFunc(msg.Delay, func() {
			//nolint:errcheck // dropped only when the queue is closed
			_ = m.enqueue(context.Background(), q, d)
		})
		return nil
	}

	return m.enqueue(ctx, q, d)
}

// Consume handles messages from source until ctx is done or the queue is
// closed.
func (m *Memory) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	q, err := m.queue(source)
	if err != nil {
		return err
	}

	co := newConsumeOptions(opts...)
	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-m.done:
					return
				case d := <-q:
					//nolint:errcheck // settle errors only mean the queue closed
					_ = handle(ctx, "memory", handler, d, co.autoAck)
				}
			}
		})
	}
	wg.Wait()

	return ctx.Err()
}

func (m *Memory) queue(name string) (chan *delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	q, ok := m.queues[name]
	if !ok {
		q = make(chan *delivery, m.buffer)
		m.queues[name] = q
	}
	return q, nil
}

func (m *Memory) enqueue(ctx context.Context, q chan<- *delivery, d *delivery) error {
	select {
	case q <- d:
		return nil
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memory) newDelivery(source string, body []byte, headers []Header) *delivery {
	d := &delivery{
		id:      strconv.FormatUint(m.seq.Add(1), 10),
		source:  source,
		body:    body,
		headers: headers,
	}
	d.nack = func(context.Context) error {
		q, err := m.queue(source)
		if err != nil {
			return err
		}
		redelivered := m.newDelivery(source, body, headers)
		redelivered.id = d.id
		go func() {
			//nolint:errcheck // dropped only when the queue is closed
			_ = m.enqueue(context.Background(), q, redelivered)
		}()
		return nil
	}
	return d
}

package messaging

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/atomic"
)

// delivery is the Message implementation shared by every driver.
type delivery struct {
	id      string
	source  string
	body    []byte
	headers []Header
	ack     func(ctx context.Context) error
	nack    func(ctx context.Context) error

	settled atomic.Bool
}

func (d *delivery) ID() string     { return d.id }
func (d *delivery) Source() string { return d.source }
func (d *delivery) Body() []byte   { return d.body }

func (d *delivery) Header(key string) []byte {
	for _, h := range d.headers {
		if strings.EqualFold(h.Key, key) {
			return h.Value
		}
	}
	return nil
}

func (d *delivery) Ack(ctx context.Context) error {
	return d.settle(ctx, d.ack)
}

func (d *delivery) Nack(ctx context.Context) error {
	return d.settle(ctx, d.nack)
}

func (d *delivery) settle(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.settled.Swap(true) || fn == nil {
		return nil
	}
	return fn(ctx)
}

// handle runs the handler and settles the delivery when autoAck is set and
// the handler did not settle it itself.
func handle(ctx context.Context, kind string, handler Handler, d *delivery, autoAck bool) error {
	herr := callHandlerWithRecover(ctx, kind, func() error {
		return handler(ctx, d)
	})

	if !autoAck || d.settled.Load() {
		return nil
	}
	if herr == nil {
		return d.Ack(ctx)
	}
	return d.Nack(ctx)
}

// startWorkers drains in with n goroutines until in is closed.
func startWorkers(n int, in <-chan *delivery, fn func(*delivery)) *sync.WaitGroup {
	var wg sync.WaitGroup
	for range max(n, 1) {
		wg.Go(func() {
			for d := range in {
				fn(d)
			}
		})
	}
	return &wg
}

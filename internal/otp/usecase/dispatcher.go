package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"go.opentelemetry.io/otel/metric"
)

// Dispatcher delivers codes through the channel sender and the durable queue.
type Dispatcher struct {
	sender       repoSender
	queue        repoQueue
	settings     Settings
	deadLettered metric.Int64Counter
}

func NewDispatcher(sender repoSender, queue repoQueue, settings Settings, deadLettered metric.Int64Counter) *Dispatcher {
	return &Dispatcher{sender: sender, queue: queue, settings: settings, deadLettered: deadLettered}
}

// SendImmediate sends code once, synchronously, and reports success.
func (d *Dispatcher) SendImmediate(ctx context.Context, identity, code string) bool {
	if err := d.sender.Send(ctx, identity, code); err != nil {
		slog.WarnContext(ctx, "failed to send otp immediately", "identity", identity, "error", err)
		return false
	}
	return true
}

// ProcessAsync enqueues msg on the notification queue, retrying with
// exponential backoff up to the configured number of attempts. Once retries
// are exhausted msg goes to the dead letter queue. Failures are logged and
// never returned.
func (d *Dispatcher) ProcessAsync(ctx context.Context, msg entity.NotificationMessage) {
	d.enqueue(ctx, msg, 0)
}

// Requeue is ProcessAsync for a message that already failed delivery: the
// queued copy is delayed by the backoff step for its retry count.
func (d *Dispatcher) Requeue(ctx context.Context, msg entity.NotificationMessage) {
	d.enqueue(ctx, msg, d.settings.backoffDelay(msg.RetryCount-1))
}

// DeadLetter routes msg straight to the dead letter queue.
func (d *Dispatcher) DeadLetter(ctx context.Context, msg entity.NotificationMessage, cause error) {
	if d.deadLettered != nil {
		d.deadLettered.Add(ctx, 1)
	}

	slog.WarnContext(ctx, "routing otp notification to dead letter queue",
		"message_id", msg.ID, "identity", msg.Identity, "retry_count", msg.RetryCount, "error", cause)

	if err := d.queue.Enqueue(ctx, d.settings.DeadLetterQueue, msg, 0); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue otp notification to dead letter queue",
			"message_id", msg.ID, "identity", msg.Identity, "error", err)
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, msg entity.NotificationMessage, delay time.Duration) {
	attempt := 0
	err := retry.Do(ctx, d.backoff(), func(ctx context.Context) error {
		attempt++
		if err := d.queue.Enqueue(ctx, d.settings.NotificationQueue, msg, delay); err != nil {
			slog.WarnContext(ctx, "failed to enqueue otp notification",
				"message_id", msg.ID, "identity", msg.Identity, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		d.DeadLetter(ctx, msg, err)
	}
}

// backoff yields base * multiplier^n for retry n and stops after
// RetryMaxAttempts calls in total. A new one is needed per call.
func (d *Dispatcher) backoff() retry.Backoff {
	n := 0
	var b retry.Backoff = retry.BackoffFunc(func() (time.Duration, bool) {
		delay := d.settings.backoffDelay(n)
		n++
		return delay, false
	})
	b = retry.WithMaxRetries(uint64(d.settings.RetryMaxAttempts-1), b)
	return retry.WithMaxDuration(d.settings.maxRetryDuration(), b)
}

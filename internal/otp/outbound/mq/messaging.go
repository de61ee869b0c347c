package mq

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/messaging"
	"github.com/shandysiswandi/gootp/internal/shared/event"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

// Enqueue publishes msg to queue. When the broker has no deferred delivery
// the delay is waited out here before publishing.
func (m *Messaging) Enqueue(ctx context.Context, queue string, msg entity.NotificationMessage, delay time.Duration) (err error) {
	ctx, span := m.ins.Tracer("otp.outbound.mq").Start(ctx, "Enqueue")
	span.SetAttributes(
		attribute.String("queue", queue),
		attribute.Int("retry_count", msg.RetryCount),
		attribute.Int64("delay_ms", delay.Milliseconds()),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := json.Marshal(event.OTPNotificationMessage{
		ID:         msg.ID,
		Identity:   msg.Identity,
		Code:       msg.Code,
		RetryCount: msg.RetryCount,
	})
	if err != nil {
		return err
	}

	out := messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(msg.Identity),
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(instrument.GetCorrelationID(ctx))}},
		Delay:   delay,
	}

	err = m.client.Publish(ctx, queue, out)
	if err == nil || delay <= 0 || !errors.Is(err, messaging.ErrUnsupported) {
		return err
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}

	out.Delay = 0
	return m.client.Publish(ctx, queue, out)
}

// DecodeNotification parses a message body produced by Enqueue.
func DecodeNotification(body []byte) (entity.NotificationMessage, error) {
	var msg event.OTPNotificationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return entity.NotificationMessage{}, err
	}

	return entity.NotificationMessage{
		ID:         msg.ID,
		Identity:   msg.Identity,
		Code:       msg.Code,
		RetryCount: msg.RetryCount,
	}, nil
}

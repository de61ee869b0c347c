package inbound

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/gootp/internal/otp/outbound/mq"
	"github.com/shandysiswandi/gootp/internal/otp/usecase"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/messaging"
	"github.com/shandysiswandi/gootp/internal/pkg/uid"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc   ucConsumer
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, msg messaging.Message) context.Context {
	if cID := msg.Header(keyOfCorrelationID); len(cID) > 0 {
		return instrument.SetCorrelationID(ctx, string(cID))
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// DeliverNotification consumes the notification queue. Message bodies carry
// the plaintext code, so they are never logged.
func (h *MQHandler) DeliverNotification(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("otp.inbound.mq").Start(ctx, "DeliverNotification")
	defer span.End()

	payload, err := mq.DecodeNotification(msg.Body())
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of otp notification", "msg_id", msg.ID(), "error", err)
		return nil
	}

	slog.InfoContext(ctx, "consume: otp notification", "msg_id", msg.ID(), "notification_id", payload.ID, "retry_count", payload.RetryCount)

	if err := h.uc.DeliverNotification(ctx, usecase.DeliverNotificationInput{
		ID:         payload.ID,
		Identity:   payload.Identity,
		Code:       payload.Code,
		RetryCount: payload.RetryCount,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to deliver otp notification", "notification_id", payload.ID, "error", err)
		return err
	}

	return nil
}

// DeadLetterNotification records exhausted notifications for operators.
func (h *MQHandler) DeadLetterNotification(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("otp.inbound.mq").Start(ctx, "DeadLetterNotification")
	defer span.End()

	payload, err := mq.DecodeNotification(msg.Body())
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of dead lettered otp notification", "msg_id", msg.ID(), "error", err)
		return nil
	}

	slog.WarnContext(ctx, "otp notification dead lettered",
		"msg_id", msg.ID(),
		"notification_id", payload.ID,
		"identity", payload.Identity,
		"retry_count", payload.RetryCount,
	)

	return nil
}

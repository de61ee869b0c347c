package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/shandysiswandi/gootp/internal/pkg/idempotency"
)

type DeliverNotificationInput struct {
	ID         string `validate:"required"`
	Identity   string `validate:"required,identity"`
	Code       string `validate:"required,otpcode"`
	RetryCount int    `validate:"gte=0"`
}

// DeliverNotification sends one queued notification. A failed send is queued
// again with a higher retry count until the retry budget is spent, then it is
// dead lettered. Redelivered copies of a handled message are skipped.
func (s *Usecase) DeliverNotification(ctx context.Context, in DeliverNotificationInput) error {
	ctx, span := s.startSpan(ctx, "DeliverNotification")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "dropping invalid otp notification", "message_id", in.ID, "error", err)
		return nil
	}

	msg := entity.NotificationMessage{
		ID:         in.ID,
		Identity:   in.Identity,
		Code:       in.Code,
		RetryCount: in.RetryCount,
	}

	if s.idemp == nil {
		return s.deliver(ctx, msg)
	}

	key := fmt.Sprintf("otp:notification:%s:%d", msg.ID, msg.RetryCount)
	err := s.idemp.Exec(ctx, key, func(ctx context.Context) error {
		return s.deliver(ctx, msg)
	}, idempotency.WithLockDuration(time.Minute), idempotency.WithStateTTL(24*time.Hour))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, idempotency.ErrAlreadyCompleted),
		errors.Is(err, idempotency.ErrAlreadyInProgress),
		errors.Is(err, idempotency.ErrAlreadyFailed):
		slog.InfoContext(ctx, "skipping duplicate otp notification", "message_id", msg.ID, "retry_count", msg.RetryCount)
		return nil
	default:
		slog.ErrorContext(ctx, "failed to guard otp notification", "message_id", msg.ID, "error", err)
		return goerror.NewServer(err)
	}
}

func (s *Usecase) deliver(ctx context.Context, msg entity.NotificationMessage) error {
	err := s.sender.Send(ctx, msg.Identity, msg.Code)
	if err == nil {
		return nil
	}

	msg.RetryCount++
	if msg.RetryCount < s.settings.RetryMaxAttempts {
		slog.WarnContext(ctx, "otp notification failed, queueing retry",
			"message_id", msg.ID, "identity", msg.Identity, "retry_count", msg.RetryCount, "error", err)
		s.dispatch.Requeue(ctx, msg)
		return nil
	}

	s.dispatch.DeadLetter(ctx, msg, err)
	return nil
}

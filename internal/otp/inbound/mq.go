package inbound

import (
	"context"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shandysiswandi/gootp/internal/pkg/config"
	"github.com/shandysiswandi/gootp/internal/pkg/goroutine"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/messaging"
	"github.com/shandysiswandi/gootp/internal/pkg/uid"
	"github.com/shandysiswandi/gootp/internal/shared/event"
)

type consumer struct {
	name    string
	topic   string // destination where publisher sent message
	handler messaging.Handler
}

func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Messaging,
	uuid uid.StringID,
	uc ucConsumer,
	ins instrument.Instrumentation,
) {
	mqHandler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	notificationQueue := cfg.GetString("modules.otp.queue.notification")
	if notificationQueue == "" {
		notificationQueue = event.OTPNotificationDestination
	}
	deadLetterQueue := cfg.GetString("modules.otp.queue.dead_letter")
	if deadLetterQueue == "" {
		deadLetterQueue = event.OTPNotificationDeadLetterDestination
	}

	consumers := enabledConsumers(cfg.GetArray("modules.otp.consumer_names"), []consumer{
		{
			name:    event.OTPNotificationConsumerDelivery,
			topic:   notificationQueue,
			handler: mqHandler.DeliverNotification,
		},
		{
			name:    event.OTPNotificationConsumerDeadLetter,
			topic:   deadLetterQueue,
			handler: mqHandler.DeadLetterNotification,
		},
	})

	for _, c := range consumers {
		started := routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "Running job for handling consumer", "consumer", c.name, "topic", c.topic)
			return messenger.Consume(pCtx,
				c.topic,
				c.handler,
				messaging.WithChannel(c.name),
				messaging.WithQueueGroup(c.name),
				messaging.WithGroup(c.name),
				messaging.WithSubscription(c.name),
				messaging.WithAutoAck(true),
				messaging.WithConcurrency(10),
				messaging.WithMaxInFlight(10),
			)
		})
		if !started {
			slog.ErrorContext(ctx, "failed to start consumer", "consumer", c.name)
		}
	}
}

func enabledConsumers(names []string, all []consumer) []consumer {
	return lo.Filter(all, func(c consumer, _ int) bool {
		return lo.Contains(names, c.name)
	})
}

package inbound

import (
	"context"

	"github.com/shandysiswandi/gootp/internal/otp/usecase"
)

type ucConsumer interface {
	DeliverNotification(ctx context.Context, in usecase.DeliverNotificationInput) error
}

type uc interface {
	ucConsumer

	Generate(ctx context.Context, in usecase.GenerateInput) (*usecase.GenerateOutput, error)
	Validate(ctx context.Context, in usecase.ValidateInput) (*usecase.ValidateOutput, error)
	Revoke(ctx context.Context, in usecase.RevokeInput) (*usecase.RevokeOutput, error)
	Resend(ctx context.Context, in usecase.ResendInput) error
}

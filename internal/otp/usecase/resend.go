package usecase

import (
	"context"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
)

type ResendInput struct {
	Identity string `validate:"required,max=254,identity"`
}

// Resend queues the current ACTIVE code for delivery again. No new record is
// created. Queueing happens in the background and outlives the request.
func (s *Usecase) Resend(ctx context.Context, in ResendInput) error {
	ctx, span := s.startSpan(ctx, "Resend")
	defer span.End()

	in.Identity = entity.NormalizeIdentity(in.Identity)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	rec, err := s.lifecycle.Active(ctx, in.Identity)
	if err != nil {
		return s.mapError(ctx, "load active otp", in.Identity, err)
	}

	code, err := s.engine.Decrypt(rec.Ciphertext)
	if err != nil {
		return s.mapError(ctx, "decrypt otp code", in.Identity, err)
	}

	msg := entity.NotificationMessage{
		ID:       s.uuid.Generate(),
		Identity: in.Identity,
		Code:     code,
	}

	bg := context.WithoutCancel(ctx)
	if !s.goroutine.Go(bg, func(ctx context.Context) error {
		s.dispatch.ProcessAsync(ctx, msg)
		return nil
	}) {
		s.dispatch.ProcessAsync(bg, msg)
	}

	return nil
}

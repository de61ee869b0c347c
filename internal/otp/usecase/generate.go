package usecase

import (
	"context"
	"time"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
)

type GenerateInput struct {
	Identity string `validate:"required,max=254,identity"`
}

type GenerateOutput struct {
	RecordID  string
	Code      string
	ExpiresAt time.Time
}

// Generate issues a code for the identity, delivers it and stores it as the
// identity's ACTIVE record. Nothing is stored when delivery fails.
func (s *Usecase) Generate(ctx context.Context, in GenerateInput) (*GenerateOutput, error) {
	ctx, span := s.startSpan(ctx, "Generate")
	defer span.End()

	in.Identity = entity.NormalizeIdentity(in.Identity)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	code, delivered, err := s.generator.Generate(ctx, in.Identity)
	if err != nil {
		return nil, s.mapError(ctx, "generate otp code", in.Identity, err)
	}
	if !delivered {
		return nil, goerror.NewDeliveryFailure("OTP could not be delivered, please try again")
	}

	ciphertext, err := s.engine.Encrypt(code)
	if err != nil {
		return nil, s.mapError(ctx, "encrypt otp code", in.Identity, err)
	}

	rec := entity.NewRecord(s.uuid.Generate(), in.Identity, ciphertext, s.clock.Now())
	if err := s.lifecycle.Store(ctx, rec); err != nil {
		return nil, s.mapError(ctx, "store otp record", in.Identity, err)
	}

	s.generated.Add(ctx, 1)

	return &GenerateOutput{
		RecordID:  rec.ID,
		Code:      code,
		ExpiresAt: rec.ExpiresAt(s.settings.Expiration),
	}, nil
}

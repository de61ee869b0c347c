package usecase

import (
	"context"
	"strconv"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type ValidateInput struct {
	Identity string `validate:"required,max=254,identity"`
	Code     string `validate:"required,otpcode"`
}

type ValidateOutput struct {
	Valid bool
}

// Validate records the attempt, enforces the sliding window and checks code
// against the ACTIVE record. A wrong code gives Valid false, not an error.
func (s *Usecase) Validate(ctx context.Context, in ValidateInput) (*ValidateOutput, error) {
	ctx, span := s.startSpan(ctx, "Validate")
	defer span.End()

	in.Identity = entity.NormalizeIdentity(in.Identity)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if err := s.limiter.CheckAndRecord(ctx, in.Identity); err != nil {
		return nil, s.mapError(ctx, "check otp attempts", in.Identity, err)
	}

	valid, err := s.lifecycle.Validate(ctx, in.Identity, in.Code)
	if err != nil {
		return nil, s.mapError(ctx, "validate otp", in.Identity, err)
	}

	s.validated.Add(ctx, 1, metric.WithAttributes(attribute.String("result", strconv.FormatBool(valid))))

	return &ValidateOutput{Valid: valid}, nil
}

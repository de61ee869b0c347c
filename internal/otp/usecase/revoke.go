package usecase

import (
	"context"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
)

type RevokeInput struct {
	Identity string `validate:"required,max=254,identity"`
	Reason   string `validate:"required,max=255"`
}

type RevokeOutput struct {
	Revoked bool
}

func (s *Usecase) Revoke(ctx context.Context, in RevokeInput) (*RevokeOutput, error) {
	ctx, span := s.startSpan(ctx, "Revoke")
	defer span.End()

	in.Identity = entity.NormalizeIdentity(in.Identity)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	revoked, err := s.lifecycle.Revoke(ctx, in.Identity, in.Reason)
	if err != nil {
		return nil, s.mapError(ctx, "revoke otp", in.Identity, err)
	}

	return &RevokeOutput{Revoked: revoked}, nil
}

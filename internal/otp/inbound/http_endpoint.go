package inbound

import (
	"github.com/shandysiswandi/gootp/internal/otp/usecase"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/shandysiswandi/gootp/internal/pkg/router"
)

type HTTPEndpoint struct {
	uc uc
}

// Generate issues and sends a new OTP. The code itself is never returned.
// @Summary Generate OTP
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body GenerateRequest true "Generate payload"
// @Success 201 {object} router.successResponse{data=GenerateResponse}
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 502 {object} router.errorResponse "Delivery failure"
// @Router /api/v1/otp/generate [post]
func (h *HTTPEndpoint) Generate(r *router.Request) (any, error) {
	var req GenerateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.Generate(r.Context(), usecase.GenerateInput{Identity: req.Email})
	if err != nil {
		return nil, err
	}

	return GenerateResponse{ID: out.RecordID, ExpiresAt: out.ExpiresAt}, nil
}

// Validate checks a code against the identity's active OTP.
// @Summary Validate OTP
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body ValidateRequest true "Validate payload"
// @Success 200 {object} router.successResponse{data=ValidateResponse}
// @Failure 404 {object} router.errorResponse "No active OTP"
// @Failure 422 {object} router.errorResponse "Invalid OTP code"
// @Failure 429 {object} router.errorResponse "Too many attempts"
// @Router /api/v1/otp/validate [post]
func (h *HTTPEndpoint) Validate(r *router.Request) (any, error) {
	var req ValidateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.Validate(r.Context(), usecase.ValidateInput{Identity: req.Email, Code: req.Code})
	if err != nil {
		return nil, err
	}
	if !out.Valid {
		return nil, goerror.NewBusiness("Invalid OTP code", goerror.CodeInvalidInput)
	}

	return ValidateResponse{Valid: true}, nil
}

// Revoke moves the identity's active OTP to REVOKED with the given reason.
// It answers 200 whether or not a code was active.
// @Summary Revoke OTP
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body RevokeRequest true "Revoke payload"
// @Success 200 {object} router.successResponse{data=RevokeResponse}
// @Router /api/v1/otp/revoke [post]
func (h *HTTPEndpoint) Revoke(r *router.Request) (any, error) {
	var req RevokeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.Revoke(r.Context(), usecase.RevokeInput{Identity: req.Email, Reason: req.Reason})
	if err != nil {
		return nil, err
	}

	return RevokeResponse{Revoked: out.Revoked}, nil
}

// Resend queues the current active code for another delivery.
// @Summary Resend OTP
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body ResendRequest true "Resend payload"
// @Success 202 {object} router.successResponse{data=ResendResponse}
// @Failure 404 {object} router.errorResponse "No active OTP"
// @Router /api/v1/otp/resend [post]
func (h *HTTPEndpoint) Resend(r *router.Request) (any, error) {
	var req ResendRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.Resend(r.Context(), usecase.ResendInput{Identity: req.Email}); err != nil {
		return nil, err
	}

	return ResendResponse{}, nil
}

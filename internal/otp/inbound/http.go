package inbound

import (
	"github.com/shandysiswandi/gootp/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/v1/otp/generate", end.Generate)
	r.POST("/api/v1/otp/validate", end.Validate)
	r.POST("/api/v1/otp/revoke", end.Revoke)
	r.POST("/api/v1/otp/resend", end.Resend)
}

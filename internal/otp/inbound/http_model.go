package inbound

import (
	"net/http"
	"time"
)

type GenerateRequest struct {
	Email string `json:"email"`
}

type GenerateResponse struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (GenerateResponse) StatusCode() int { return http.StatusCreated }

func (GenerateResponse) Message() string { return "OTP has been sent" }

type ValidateRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ValidateResponse struct {
	Valid bool `json:"valid"`
}

func (ValidateResponse) Message() string { return "OTP is valid" }

type RevokeRequest struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

type RevokeResponse struct {
	Revoked bool `json:"revoked"`
}

func (r RevokeResponse) Message() string {
	if !r.Revoked {
		return "No active OTP to revoke"
	}
	return "OTP has been revoked"
}

type ResendRequest struct {
	Email string `json:"email"`
}

type ResendResponse struct{}

func (ResendResponse) StatusCode() int { return http.StatusAccepted }

func (ResendResponse) Message() string { return "OTP resend has been scheduled" }

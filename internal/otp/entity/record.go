package entity

import (
	"strings"
	"time"
)

// Record is one issued code. Only Ciphertext is stored, never the plaintext.
type Record struct {
	ID            string
	Identity      string
	Ciphertext    string
	Status        RecordStatus
	AttemptCount  int
	RevokedReason string
	RevokedAt     *time.Time
	UsedAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewRecord returns an ACTIVE record created at now.
func NewRecord(id, identity, ciphertext string, now time.Time) Record {
	return Record{
		ID:         id,
		Identity:   identity,
		Ciphertext: ciphertext,
		Status:     RecordStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ExpiresAt is the last instant at which the record may still validate.
func (r *Record) ExpiresAt(window time.Duration) time.Time {
	return r.CreatedAt.Add(window)
}

func (r *Record) Expire(now time.Time) error {
	return r.transition(RecordStatusExpired, now)
}

func (r *Record) MarkUsed(now time.Time) error {
	if err := r.transition(RecordStatusUsed, now); err != nil {
		return err
	}
	r.UsedAt = &now
	return nil
}

func (r *Record) Revoke(reason string, now time.Time) error {
	if err := r.transition(RecordStatusRevoked, now); err != nil {
		return err
	}
	r.RevokedReason = reason
	r.RevokedAt = &now
	return nil
}

// IncrementAttempt bumps the per-record attempt counter and returns it.
func (r *Record) IncrementAttempt(now time.Time) int {
	r.AttemptCount++
	r.UpdatedAt = now
	return r.AttemptCount
}

func (r *Record) transition(to RecordStatus, now time.Time) error {
	if r.Status != RecordStatusActive {
		return ErrRecordNotActive
	}
	r.Status = to
	r.UpdatedAt = now
	return nil
}

// Attempt is one validation call for an identity.
type Attempt struct {
	ID          string
	Identity    string
	AttemptedAt time.Time
}

// ValidationContext is what every validation rule sees for one attempt.
// Rules must not modify it.
type ValidationContext struct {
	Identity     string
	ProvidedCode string
	Ciphertext   string
	CreatedAt    time.Time
}

// NotificationMessage carries a plaintext code through the delivery queue.
type NotificationMessage struct {
	ID         string
	Identity   string
	Code       string
	RetryCount int
}

// NormalizeIdentity trims and lower-cases an email identity.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

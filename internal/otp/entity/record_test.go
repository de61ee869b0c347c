package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Transitions(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	later := now.Add(time.Minute)

	tests := []struct {
		name  string
		apply func(r *Record) error
		want  RecordStatus
	}{
		{name: "expire", apply: func(r *Record) error { return r.Expire(later) }, want: RecordStatusExpired},
		{name: "use", apply: func(r *Record) error { return r.MarkUsed(later) }, want: RecordStatusUsed},
		{name: "revoke", apply: func(r *Record) error { return r.Revoke("lost phone", later) }, want: RecordStatusRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRecord("id-1", "a@example.com", "cipher", now)
			require.NoError(t, tt.apply(&r))
			assert.Equal(t, tt.want, r.Status)
			assert.Equal(t, later, r.UpdatedAt)
			assert.True(t, r.Status.IsTerminal())

			// terminal statuses never change again
			assert.ErrorIs(t, r.Expire(later), ErrRecordNotActive)
			assert.ErrorIs(t, r.MarkUsed(later), ErrRecordNotActive)
			assert.ErrorIs(t, r.Revoke("again", later), ErrRecordNotActive)
			assert.Equal(t, tt.want, r.Status)
		})
	}
}

func TestRecord_Revoke_StoresReason(t *testing.T) {
	now := time.Now()
	r := NewRecord("id-1", "a@example.com", "cipher", now)

	require.NoError(t, r.Revoke("user request", now))
	assert.Equal(t, "user request", r.RevokedReason)
	require.NotNil(t, r.RevokedAt)
	assert.Equal(t, now, *r.RevokedAt)
	assert.Nil(t, r.UsedAt)
}

func TestRecord_IncrementAttempt(t *testing.T) {
	now := time.Now()
	r := NewRecord("id-1", "a@example.com", "cipher", now)

	assert.Equal(t, 1, r.IncrementAttempt(now))
	assert.Equal(t, 2, r.IncrementAttempt(now.Add(time.Second)))
	assert.Equal(t, now.Add(time.Second), r.UpdatedAt)
	assert.Equal(t, RecordStatusActive, r.Status)
}

func TestRecordStatus_String(t *testing.T) {
	assert.Equal(t, "ACTIVE", RecordStatusActive.String())
	assert.Equal(t, "USED", RecordStatusUsed.String())
	assert.Equal(t, "EXPIRED", RecordStatusExpired.String())
	assert.Equal(t, "REVOKED", RecordStatusRevoked.String())
	assert.Equal(t, "UNKNOWN", RecordStatus(42).String())
	assert.False(t, RecordStatusActive.IsTerminal())
	assert.False(t, RecordStatusUnknown.IsTerminal())
}

func TestNormalizeIdentity(t *testing.T) {
	assert.Equal(t, "a@example.com", NormalizeIdentity("  A@Example.COM \n"))
	assert.Equal(t, "", NormalizeIdentity("   "))
}

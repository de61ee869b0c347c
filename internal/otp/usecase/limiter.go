package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/clock"
	"github.com/shandysiswandi/gootp/internal/pkg/uid"
)

// AttemptLimiter counts validation calls per identity over a sliding window.
type AttemptLimiter struct {
	repo   repoAttempt
	uuid   uid.StringID
	clock  clock.Clocker
	limit  int
	window time.Duration
}

func NewAttemptLimiter(repo repoAttempt, uuid uid.StringID, clk clock.Clocker, limit int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{repo: repo, uuid: uuid, clock: clk, limit: limit, window: window}
}

// CheckAndRecord records an attempt for identity and then counts the window
// ending now. The recorded attempt is part of the count, so the call that
// crosses the limit also counts against later windows. It returns
// ErrTooManyAttempts once the count exceeds the maximum.
func (l *AttemptLimiter) CheckAndRecord(ctx context.Context, identity string) error {
	now := l.clock.Now()

	count, err := l.repo.AddAttemptAndCount(ctx, entity.Attempt{
		ID:          l.uuid.Generate(),
		Identity:    identity,
		AttemptedAt: now,
	}, now.Add(-l.window))
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}

	if count > l.limit {
		return ErrTooManyAttempts
	}

	return nil
}

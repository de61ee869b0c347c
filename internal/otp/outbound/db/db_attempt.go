package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/gootp/internal/otp/entity"
)

const (
	sqlInsertAttempt = `INSERT INTO otp_attempts (id, identity, attempted_at) VALUES ($1, $2, $3)`
	sqlCountAttempts = `SELECT count(*) FROM otp_attempts WHERE identity = $1 AND attempted_at >= $2`
)

// AddAttemptAndCount inserts and counts under the identity's attempt lock so
// concurrent attempts always observe each other.
func (s *DB) AddAttemptAndCount(ctx context.Context, attempt entity.Attempt, since time.Time) (count int, err error) {
	ctx, span := s.startSpan(ctx, "AddAttemptAndCount")
	defer func() { s.endSpan(span, err) }()

	err = s.inTx(ctx, lockClassAttempts, attempt.Identity, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, sqlInsertAttempt, attempt.ID, attempt.Identity, attempt.AttemptedAt); err != nil {
			return err
		}
		return tx.QueryRow(ctx, sqlCountAttempts, attempt.Identity, since).Scan(&count)
	})
	if err != nil {
		return 0, s.mapError(err)
	}

	return count, nil
}

package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/otp/usecase"
)

const (
	sqlFindActiveRecord = `
SELECT id, identity, ciphertext, status, attempt_count,
       COALESCE(revoked_reason, ''), revoked_at, used_at, created_at, updated_at
FROM otp_records
WHERE identity = $1 AND status = $2
FOR UPDATE`

	sqlSaveRecord = `
INSERT INTO otp_records (
    id, identity, ciphertext, status, attempt_count,
    revoked_reason, revoked_at, used_at, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
    status         = EXCLUDED.status,
    attempt_count  = EXCLUDED.attempt_count,
    revoked_reason = EXCLUDED.revoked_reason,
    revoked_at     = EXCLUDED.revoked_at,
    used_at        = EXCLUDED.used_at,
    updated_at     = EXCLUDED.updated_at
WHERE otp_records.identity = EXCLUDED.identity`
)

// InIdentityTx serializes record work per identity with a transaction-scoped
// advisory lock. Other identities are never blocked.
func (s *DB) InIdentityTx(ctx context.Context, identity string, fn func(ctx context.Context, store usecase.RecordStore) error) (err error) {
	ctx, span := s.startSpan(ctx, "InIdentityTx")
	defer func() { s.endSpan(span, err) }()

	return s.inTx(ctx, lockClassRecords, identity, func(tx pgx.Tx) error {
		return fn(ctx, &recordTx{db: s, q: tx})
	})
}

type recordTx struct {
	db *DB
	q  querier
}

func (r *recordTx) FindActiveRecord(ctx context.Context, identity string) (rec *entity.Record, err error) {
	ctx, span := r.db.startSpan(ctx, "FindActiveRecord")
	defer func() { r.db.endSpan(span, err) }()

	var (
		out       entity.Record
		revokedAt *time.Time
		usedAt    *time.Time
	)
	err = r.q.QueryRow(ctx, sqlFindActiveRecord, identity, entity.RecordStatusActive).Scan(
		&out.ID,
		&out.Identity,
		&out.Ciphertext,
		&out.Status,
		&out.AttemptCount,
		&out.RevokedReason,
		&revokedAt,
		&usedAt,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if err != nil {
		return nil, r.db.mapError(err)
	}

	out.RevokedAt = revokedAt
	out.UsedAt = usedAt
	return &out, nil
}

func (r *recordTx) SaveRecord(ctx context.Context, rec entity.Record) (err error) {
	ctx, span := r.db.startSpan(ctx, "SaveRecord")
	defer func() { r.db.endSpan(span, err) }()

	_, err = r.q.Exec(ctx, sqlSaveRecord,
		rec.ID,
		rec.Identity,
		rec.Ciphertext,
		rec.Status,
		rec.AttemptCount,
		rec.RevokedReason,
		rec.RevokedAt,
		rec.UsedAt,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	return r.db.mapError(err)
}

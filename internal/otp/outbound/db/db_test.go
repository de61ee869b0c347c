package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/otp/usecase"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("gootp_test"),
		postgres.WithUsername("gootp"),
		postgres.WithPassword("gootp"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	require.NoError(t, Migrate(ctx, pool), "migrations are idempotent")

	return NewDB(pool, instrument.NewNoop())
}

func TestDB_InIdentityTx(t *testing.T) {
	s := setupDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	identity := "a@example.com"

	t.Run("not found", func(t *testing.T) {
		err := s.InIdentityTx(ctx, identity, func(ctx context.Context, store usecase.RecordStore) error {
			_, err := store.FindActiveRecord(ctx, identity)
			return err
		})
		assert.ErrorIs(t, err, goerror.ErrNotFound)
	})

	t.Run("save and supersede", func(t *testing.T) {
		first := entity.NewRecord("r1", identity, "ct-1", now)
		require.NoError(t, s.InIdentityTx(ctx, identity, func(ctx context.Context, store usecase.RecordStore) error {
			return store.SaveRecord(ctx, first)
		}))

		second := entity.NewRecord("r2", identity, "ct-2", now.Add(time.Second))
		require.NoError(t, s.InIdentityTx(ctx, identity, func(ctx context.Context, store usecase.RecordStore) error {
			prev, err := store.FindActiveRecord(ctx, identity)
			if err != nil {
				return err
			}
			if err := prev.Expire(now.Add(time.Second)); err != nil {
				return err
			}
			if err := store.SaveRecord(ctx, *prev); err != nil {
				return err
			}
			return store.SaveRecord(ctx, second)
		}))

		require.NoError(t, s.InIdentityTx(ctx, identity, func(ctx context.Context, store usecase.RecordStore) error {
			rec, err := store.FindActiveRecord(ctx, identity)
			require.NoError(t, err)
			assert.Equal(t, "r2", rec.ID)
			assert.Equal(t, "ct-2", rec.Ciphertext)
			assert.Equal(t, entity.RecordStatusActive, rec.Status)
			assert.Nil(t, rec.UsedAt)
			return nil
		}))
	})

	t.Run("second active record conflicts", func(t *testing.T) {
		err := s.InIdentityTx(ctx, identity, func(ctx context.Context, store usecase.RecordStore) error {
			return store.SaveRecord(ctx, entity.NewRecord("r3", identity, "ct-3", now))
		})
		assert.ErrorIs(t, err, goerror.ErrConflict)
	})

	t.Run("rollback discards writes", func(t *testing.T) {
		errAbort := errors.New("abort")
		err := s.InIdentityTx(ctx, identity, func(ctx context.Context, store usecase.RecordStore) error {
			rec, err := store.FindActiveRecord(ctx, identity)
			require.NoError(t, err)
			require.NoError(t, rec.Revoke("test", now))
			require.NoError(t, store.SaveRecord(ctx, *rec))
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)

		require.NoError(t, s.InIdentityTx(ctx, identity, func(ctx context.Context, store usecase.RecordStore) error {
			rec, err := store.FindActiveRecord(ctx, identity)
			require.NoError(t, err)
			assert.Equal(t, "r2", rec.ID)
			return nil
		}))
	})

	t.Run("revoked fields round trip", func(t *testing.T) {
		require.NoError(t, s.InIdentityTx(ctx, identity, func(ctx context.Context, store usecase.RecordStore) error {
			rec, err := store.FindActiveRecord(ctx, identity)
			require.NoError(t, err)
			require.NoError(t, rec.Revoke("user request", now))
			return store.SaveRecord(ctx, *rec)
		}))

		var (
			status int16
			reason string
		)
		require.NoError(t, s.conn.QueryRow(ctx,
			`SELECT status, revoked_reason FROM otp_records WHERE id = 'r2'`).Scan(&status, &reason))
		assert.Equal(t, int16(entity.RecordStatusRevoked), status)
		assert.Equal(t, "user request", reason)
	})
}

func TestDB_InIdentityTx_Concurrent(t *testing.T) {
	s := setupDB(t)
	ctx := context.Background()
	identity := "race@example.com"
	now := time.Now().UTC()

	lc := usecase.NewLifecycle(s, usecase.RuleChain{}, fixedClock(now), 5)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := entity.NewRecord(fmt.Sprintf("c%d", i), identity, "ct", now)
			assert.NoError(t, lc.Store(ctx, rec))
		}(i)
	}
	wg.Wait()

	var active int
	require.NoError(t, s.conn.QueryRow(ctx,
		`SELECT count(*) FROM otp_records WHERE identity = $1 AND status = $2`,
		identity, entity.RecordStatusActive).Scan(&active))
	assert.Equal(t, 1, active)
}

func TestDB_AddAttemptAndCount(t *testing.T) {
	s := setupDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	window := 15 * time.Minute

	add := func(id, identity string, at time.Time) int {
		count, err := s.AddAttemptAndCount(ctx, entity.Attempt{ID: id, Identity: identity, AttemptedAt: at}, at.Add(-window))
		require.NoError(t, err)
		return count
	}

	assert.Equal(t, 1, add("a1", "a@example.com", now.Add(-20*time.Minute)))
	assert.Equal(t, 1, add("a2", "a@example.com", now), "attempts outside the window are not counted")
	assert.Equal(t, 2, add("a3", "a@example.com", now.Add(time.Second)))
	assert.Equal(t, 1, add("b1", "b@example.com", now), "identities are counted separately")

	_, err := s.AddAttemptAndCount(ctx, entity.Attempt{ID: "a3", Identity: "a@example.com", AttemptedAt: now}, now)
	assert.ErrorIs(t, err, goerror.ErrConflict)
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

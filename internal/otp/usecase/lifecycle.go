package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/clock"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
)

// Lifecycle owns every status transition of a record. Each operation runs in
// one identity-scoped transaction, so store, validate and revoke for the same
// identity are serialized while different identities proceed in parallel.
type Lifecycle struct {
	repo        repoRecord
	rules       RuleChain
	clock       clock.Clocker
	maxAttempts int
}

func NewLifecycle(repo repoRecord, rules RuleChain, clk clock.Clocker, maxAttempts int) *Lifecycle {
	return &Lifecycle{repo: repo, rules: rules, clock: clk, maxAttempts: maxAttempts}
}

// Store expires the identity's ACTIVE record, if any, and saves rec as the new
// ACTIVE one.
func (l *Lifecycle) Store(ctx context.Context, rec entity.Record) error {
	if rec.Status != entity.RecordStatusActive {
		return fmt.Errorf("store record %s: %w", rec.ID, entity.ErrRecordNotActive)
	}

	return l.repo.InIdentityTx(ctx, rec.Identity, func(ctx context.Context, store RecordStore) error {
		prev, err := store.FindActiveRecord(ctx, rec.Identity)
		if err != nil && !errors.Is(err, goerror.ErrNotFound) {
			return err
		}

		if prev != nil {
			if err := prev.Expire(l.clock.Now()); err != nil {
				return err
			}
			if err := store.SaveRecord(ctx, *prev); err != nil {
				return err
			}
		}

		return store.SaveRecord(ctx, rec)
	})
}

// Validate checks code against the identity's ACTIVE record. It returns
// goerror.ErrNotFound when there is none and ErrTooManyAttempts once the
// record's own attempt counter passes the ceiling. A rejected code is a false
// result, not an error.
func (l *Lifecycle) Validate(ctx context.Context, identity, code string) (bool, error) {
	var valid bool

	err := l.repo.InIdentityTx(ctx, identity, func(ctx context.Context, store RecordStore) error {
		rec, err := store.FindActiveRecord(ctx, identity)
		if err != nil {
			return err
		}

		now := l.clock.Now()
		if rec.IncrementAttempt(now) > l.maxAttempts {
			return ErrTooManyAttempts
		}

		ok, rejectedBy, err := l.rules.Evaluate(entity.ValidationContext{
			Identity:     identity,
			ProvidedCode: code,
			Ciphertext:   rec.Ciphertext,
			CreatedAt:    rec.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("rule %s: %w", rejectedBy, err)
		}

		switch {
		case ok:
			err = rec.MarkUsed(now)
		case rejectedBy == RuleExpiration:
			err = rec.Expire(now)
		}
		if err != nil {
			return err
		}

		valid = ok
		return store.SaveRecord(ctx, *rec)
	})
	if err != nil {
		return false, err
	}

	return valid, nil
}

// Revoke moves the identity's ACTIVE record to REVOKED. It reports false
// without error when there is nothing to revoke.
func (l *Lifecycle) Revoke(ctx context.Context, identity, reason string) (bool, error) {
	var revoked bool

	err := l.repo.InIdentityTx(ctx, identity, func(ctx context.Context, store RecordStore) error {
		rec, err := store.FindActiveRecord(ctx, identity)
		if errors.Is(err, goerror.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := rec.Revoke(reason, l.clock.Now()); err != nil {
			return err
		}

		revoked = true
		return store.SaveRecord(ctx, *rec)
	})
	if err != nil {
		return false, err
	}

	return revoked, nil
}

// Active returns the identity's ACTIVE record or goerror.ErrNotFound.
func (l *Lifecycle) Active(ctx context.Context, identity string) (*entity.Record, error) {
	var rec *entity.Record

	err := l.repo.InIdentityTx(ctx, identity, func(ctx context.Context, store RecordStore) error {
		var err error
		rec, err = store.FindActiveRecord(ctx, identity)
		return err
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// Package memory keeps records and attempts in process memory. It backs the
// service when database.driver is "memory" and is lost on restart.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/otp/usecase"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"go.opentelemetry.io/otel/trace"
)

type identityLock struct {
	mu   sync.Mutex
	refs int
}

type Store struct {
	mu       sync.Mutex
	locks    map[string]*identityLock
	records  map[string]entity.Record
	active   map[string]string // identity -> record id
	attempts map[string][]time.Time
	ins      instrument.Instrumentation
}

func NewStore(ins instrument.Instrumentation) *Store {
	return &Store{
		locks:    map[string]*identityLock{},
		records:  map[string]entity.Record{},
		active:   map[string]string{},
		attempts: map[string][]time.Time{},
		ins:      ins,
	}
}

func (s *Store) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otp.outbound.memory").Start(ctx, name)
}

// InIdentityTx holds the identity's mutex for the whole of fn. Writes are
// staged and applied only when fn succeeds.
func (s *Store) InIdentityTx(ctx context.Context, identity string, fn func(ctx context.Context, store usecase.RecordStore) error) error {
	ctx, span := s.startSpan(ctx, "InIdentityTx")
	defer span.End()

	unlock := s.lock(identity)
	defer unlock()

	tx := &tx{store: s, staged: map[string]entity.Record{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	return s.commit(identity, tx.staged)
}

func (s *Store) lock(identity string) func() {
	s.mu.Lock()
	l, ok := s.locks[identity]
	if !ok {
		l = &identityLock{}
		s.locks[identity] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, identity)
		}
		s.mu.Unlock()
	}
}

func (s *Store) commit(identity string, staged map[string]entity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	activeID := s.active[identity]
	if prev, ok := staged[activeID]; ok && prev.Status != entity.RecordStatusActive {
		activeID = ""
	}

	var next string
	for id, rec := range staged {
		if rec.Identity != identity {
			return fmt.Errorf("memory: record %s belongs to %s, not %s", id, rec.Identity, identity)
		}
		if rec.Status != entity.RecordStatusActive {
			continue
		}
		if (activeID != "" && activeID != id) || (next != "" && next != id) {
			return goerror.ErrConflict
		}
		next = id
	}

	for id, rec := range staged {
		s.records[id] = rec
	}

	switch {
	case next != "":
		s.active[identity] = next
	case activeID == "":
		delete(s.active, identity)
	}

	return nil
}

type tx struct {
	store  *Store
	staged map[string]entity.Record
}

func (t *tx) FindActiveRecord(_ context.Context, identity string) (*entity.Record, error) {
	for _, rec := range t.staged {
		if rec.Identity == identity && rec.Status == entity.RecordStatusActive {
			return &rec, nil
		}
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	id, ok := t.store.active[identity]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	if staged, ok := t.staged[id]; ok && staged.Status != entity.RecordStatusActive {
		return nil, goerror.ErrNotFound
	}

	rec := t.store.records[id]
	return &rec, nil
}

func (t *tx) SaveRecord(_ context.Context, rec entity.Record) error {
	t.staged[rec.ID] = rec
	return nil
}

// AddAttemptAndCount appends the attempt and drops everything older than since.
func (s *Store) AddAttemptAndCount(ctx context.Context, attempt entity.Attempt, since time.Time) (int, error) {
	_, span := s.startSpan(ctx, "AddAttemptAndCount")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.attempts[attempt.Identity][:0]
	for _, at := range s.attempts[attempt.Identity] {
		if !at.Before(since) {
			kept = append(kept, at)
		}
	}
	if !attempt.AttemptedAt.Before(since) {
		kept = append(kept, attempt.AttemptedAt)
	}
	s.attempts[attempt.Identity] = kept

	return len(kept), nil
}

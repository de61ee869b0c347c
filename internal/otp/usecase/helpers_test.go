package usecase

import (
	"context"
	"errors"
	"maps"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/shandysiswandi/gootp/internal/pkg/otpcrypto"
	"github.com/stretchr/testify/require"
)

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStubClock() *stubClock {
	return &stubClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type seqID struct {
	mu sync.Mutex
	n  int
}

func (s *seqID) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return "id-" + strconv.Itoa(s.n)
}

// fakeRecordRepo keeps records in memory and applies a transaction's writes
// only when its callback succeeds.
type fakeRecordRepo struct {
	mu      sync.Mutex
	records map[string]entity.Record
	txErr   error
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: map[string]entity.Record{}}
}

func (f *fakeRecordRepo) InIdentityTx(ctx context.Context, identity string, fn func(ctx context.Context, store RecordStore) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.txErr != nil {
		return f.txErr
	}

	tx := &fakeTx{base: f.records, staged: map[string]entity.Record{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	maps.Copy(f.records, tx.staged)
	return nil
}

func (f *fakeRecordRepo) get(id string) entity.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id]
}

func (f *fakeRecordRepo) byStatus(identity string, status entity.RecordStatus) []entity.Record {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []entity.Record
	for _, r := range f.records {
		if r.Identity == identity && r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

type fakeTx struct {
	base   map[string]entity.Record
	staged map[string]entity.Record
}

func (t *fakeTx) FindActiveRecord(_ context.Context, identity string) (*entity.Record, error) {
	view := maps.Clone(t.base)
	maps.Copy(view, t.staged)

	for _, r := range view {
		if r.Identity == identity && r.Status == entity.RecordStatusActive {
			return &r, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (t *fakeTx) SaveRecord(_ context.Context, rec entity.Record) error {
	t.staged[rec.ID] = rec
	return nil
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts []entity.Attempt
	err      error
}

func (f *fakeAttemptRepo) AddAttemptAndCount(_ context.Context, attempt entity.Attempt, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return 0, f.err
	}

	f.attempts = append(f.attempts, attempt)

	count := 0
	for _, a := range f.attempts {
		if a.Identity == attempt.Identity && !a.AttemptedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type mockSender struct {
	mu       sync.Mutex
	SendFunc func(ctx context.Context, identity, code string) error
	sent     []string
}

func (m *mockSender) Send(ctx context.Context, identity, code string) error {
	m.mu.Lock()
	m.sent = append(m.sent, code)
	m.mu.Unlock()

	if m.SendFunc != nil {
		return m.SendFunc(ctx, identity, code)
	}
	return nil
}

func (m *mockSender) lastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1]
}

type enqueued struct {
	queue string
	msg   entity.NotificationMessage
	delay time.Duration
}

type mockQueue struct {
	mu          sync.Mutex
	EnqueueFunc func(ctx context.Context, queue string, msg entity.NotificationMessage) error
	calls       []enqueued
}

func (m *mockQueue) Enqueue(ctx context.Context, queue string, msg entity.NotificationMessage, delay time.Duration) error {
	m.mu.Lock()
	m.calls = append(m.calls, enqueued{queue: queue, msg: msg, delay: delay})
	m.mu.Unlock()

	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(ctx, queue, msg)
	}
	return nil
}

func (m *mockQueue) snapshot() []enqueued {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]enqueued(nil), m.calls...)
}

type codeFunc func() (string, error)

func (f codeFunc) Generate() (string, error) { return f() }

func fixedCodes(codes ...string) codeFunc {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}

func newTestEngine(t *testing.T) otpcrypto.Engine {
	t.Helper()

	key, err := otpcrypto.GenerateKey()
	require.NoError(t, err)

	engine, err := otpcrypto.NewAESCBC(key)
	require.NoError(t, err)

	return engine
}

func testSettings() Settings {
	s := DefaultSettings()
	s.RetryBaseDelay = time.Millisecond
	return s
}

var errBoom = errors.New("boom")

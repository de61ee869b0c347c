package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/clock"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/shandysiswandi/gootp/internal/pkg/goroutine"
	"github.com/shandysiswandi/gootp/internal/pkg/idempotency"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/otp"
	"github.com/shandysiswandi/gootp/internal/pkg/otpcrypto"
	"github.com/shandysiswandi/gootp/internal/pkg/uid"
	"github.com/shandysiswandi/gootp/internal/pkg/validator"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

// ErrTooManyAttempts is returned when a sliding window or per-record attempt
// ceiling is exceeded.
var ErrTooManyAttempts = errors.New("otp: too many attempts")

// RecordStore reads and writes records inside one identity transaction.
// FindActiveRecord returns goerror.ErrNotFound when the identity has no
// ACTIVE record.
type RecordStore interface {
	FindActiveRecord(ctx context.Context, identity string) (*entity.Record, error)
	SaveRecord(ctx context.Context, rec entity.Record) error
}

type repoRecord interface {
	// InIdentityTx runs fn with exclusive access to identity's records and
	// commits only when fn returns nil.
	InIdentityTx(ctx context.Context, identity string, fn func(ctx context.Context, store RecordStore) error) error
}

type repoAttempt interface {
	// AddAttemptAndCount stores attempt and returns how many attempts the
	// identity has at or after since, the new one included.
	AddAttemptAndCount(ctx context.Context, attempt entity.Attempt, since time.Time) (int, error)
}

type repoSender interface {
	Send(ctx context.Context, identity, code string) error
}

type repoQueue interface {
	Enqueue(ctx context.Context, queue string, msg entity.NotificationMessage, delay time.Duration) error
}

type Usecase struct {
	settings  Settings
	lifecycle *Lifecycle
	limiter   *AttemptLimiter
	generator *Generator
	dispatch  *Dispatcher
	engine    otpcrypto.Engine
	sender    repoSender
	idemp     idempotency.Idempotency
	validator validator.Validator
	uuid      uid.StringID
	clock     clock.Clocker
	ins       instrument.Instrumentation
	goroutine *goroutine.Manager

	generated metric.Int64Counter
	validated metric.Int64Counter
}

type Dependency struct {
	Settings    Settings
	RepoRecord  repoRecord
	RepoAttempt repoAttempt
	RepoSender  repoSender
	RepoQueue   repoQueue
	Engine      otpcrypto.Engine
	Codes       otp.Generator
	Idempotency idempotency.Idempotency // optional
	Validator   validator.Validator
	UUID        uid.StringID
	Clock       clock.Clocker
	Instrument  instrument.Instrumentation
	Goroutine   *goroutine.Manager
}

// New assembles the lifecycle, limiter, generator and dispatcher. Invalid
// settings are a configuration error.
func New(dep Dependency) (*Usecase, error) {
	if err := dep.Settings.Validate(); err != nil {
		return nil, goerror.NewConfiguration(err)
	}
	if dep.Engine == nil {
		return nil, goerror.NewConfiguration(otpcrypto.ErrKeyMissing)
	}

	meter := dep.Instrument.Meter("otp.usecase")
	generated := newCounter(meter, "otp.generated", "Number of OTP codes issued")
	validated := newCounter(meter, "otp.validated", "Number of OTP validations by result")
	deadLettered := newCounter(meter, "otp.delivery.dead_lettered", "Number of notifications routed to the dead letter queue")

	dispatch := NewDispatcher(dep.RepoSender, dep.RepoQueue, dep.Settings, deadLettered)
	rules := NewRuleChain(dep.Settings.CodeLength, dep.Settings.Expiration, dep.Clock, dep.Engine)

	return &Usecase{
		settings:  dep.Settings,
		lifecycle: NewLifecycle(dep.RepoRecord, rules, dep.Clock, dep.Settings.MaxAttempts),
		limiter:   NewAttemptLimiter(dep.RepoAttempt, dep.UUID, dep.Clock, dep.Settings.MaxAttempts, dep.Settings.AttemptWindow),
		generator: NewGenerator(dep.Codes, dispatch),
		dispatch:  dispatch,
		engine:    dep.Engine,
		sender:    dep.RepoSender,
		idemp:     dep.Idempotency,
		validator: dep.Validator,
		uuid:      dep.UUID,
		clock:     dep.Clock,
		ins:       dep.Instrument,
		goroutine: dep.Goroutine,
		generated: generated,
		validated: validated,
	}, nil
}

func newCounter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		slog.Error("failed to create counter", "name", name, "error", err)
		return noop.Int64Counter{}
	}
	return c
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otp.usecase").Start(ctx, name)
}

// mapError converts lifecycle and limiter errors into goerror kinds.
func (s *Usecase) mapError(ctx context.Context, op, identity string, err error) error {
	switch {
	case errors.Is(err, goerror.ErrNotFound):
		return goerror.NewBusiness("No active OTP for this identity", goerror.CodeNotFound)
	case errors.Is(err, ErrTooManyAttempts):
		slog.WarnContext(ctx, "otp attempt limit exceeded", "op", op, "identity", identity)
		return goerror.NewBusiness("Too many attempts, try again later", goerror.CodeTooManyRequest)
	case otpcrypto.IsConfigurationError(err):
		slog.ErrorContext(ctx, "otp encryption is misconfigured", "op", op, "error", err)
		return goerror.NewConfiguration(err)
	default:
		slog.ErrorContext(ctx, "failed to "+op, "identity", identity, "error", err)
		return goerror.NewServer(err)
	}
}

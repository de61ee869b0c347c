package usecase

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/shandysiswandi/gootp/internal/pkg/goroutine"
	"github.com/shandysiswandi/gootp/internal/pkg/idempotency"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/otp"
	"github.com/shandysiswandi/gootp/internal/pkg/otpcrypto"
	"github.com/shandysiswandi/gootp/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type usecaseFixture struct {
	uc       *Usecase
	clk      *stubClock
	records  *fakeRecordRepo
	attempts *fakeAttemptRepo
	sender   *mockSender
	queue    *mockQueue
	engine   otpcrypto.Engine
}

func newUsecaseFixture(t *testing.T, mutate func(dep *Dependency)) *usecaseFixture {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	codes, err := otp.NewNumeric(6, "")
	require.NoError(t, err)

	f := &usecaseFixture{
		clk:      newStubClock(),
		records:  newFakeRecordRepo(),
		attempts: &fakeAttemptRepo{},
		sender:   &mockSender{},
		queue:    &mockQueue{},
		engine:   newTestEngine(t),
	}

	dep := Dependency{
		Settings:    testSettings(),
		RepoRecord:  f.records,
		RepoAttempt: f.attempts,
		RepoSender:  f.sender,
		RepoQueue:   f.queue,
		Engine:      f.engine,
		Codes:       codes,
		Validator:   v,
		UUID:        &seqID{},
		Clock:       f.clk,
		Instrument:  instrument.NewNoop(),
	}
	if mutate != nil {
		mutate(&dep)
	}

	f.uc, err = New(dep)
	require.NoError(t, err)

	return f
}

func codeOf(t *testing.T, err error) goerror.Code {
	t.Helper()
	code, ok := goerror.CodeOf(err)
	require.True(t, ok, "expected a goerror, got %v", err)
	return code
}

func TestNew_InvalidSettings(t *testing.T) {
	_, err := New(Dependency{Settings: Settings{}, Instrument: instrument.NewNoop()})
	assert.Equal(t, goerror.CodeConfiguration, codeOf(t, err))
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = New(Dependency{Settings: DefaultSettings(), Instrument: instrument.NewNoop()})
	assert.Equal(t, goerror.CodeConfiguration, codeOf(t, err))
	assert.ErrorIs(t, err, otpcrypto.ErrKeyMissing)
}

func TestUsecase_Generate_ThenValidate(t *testing.T) {
	ctx := context.Background()
	f := newUsecaseFixture(t, nil)

	out, err := f.uc.Generate(ctx, GenerateInput{Identity: " A@Example.com "})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9]{6}$`), out.Code)
	assert.Equal(t, out.Code, f.sender.lastCode())
	assert.Equal(t, f.clk.Now().Add(30*time.Minute), out.ExpiresAt)

	rec := f.records.get(out.RecordID)
	assert.Equal(t, entity.RecordStatusActive, rec.Status)
	assert.Equal(t, "a@example.com", rec.Identity)
	assert.NotEqual(t, out.Code, rec.Ciphertext)

	res, err := f.uc.Validate(ctx, ValidateInput{Identity: "a@example.com", Code: out.Code})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, entity.RecordStatusUsed, f.records.get(out.RecordID).Status)

	_, err = f.uc.Validate(ctx, ValidateInput{Identity: "a@example.com", Code: out.Code})
	assert.Equal(t, goerror.CodeNotFound, codeOf(t, err))
}

func TestUsecase_Generate_PrefixedCodeValidatesAndDelivers(t *testing.T) {
	ctx := context.Background()
	codes, err := otp.NewNumeric(MaxCodeLength, "AB")
	require.NoError(t, err)

	f := newUsecaseFixture(t, func(dep *Dependency) {
		dep.Settings.CodeLength = MaxCodeLength
		dep.Settings.CodePrefix = "AB"
		dep.Codes = codes
	})

	out, err := f.uc.Generate(ctx, GenerateInput{Identity: "a@example.com"})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^AB[0-9]{30}$`), out.Code)

	require.NoError(t, f.uc.DeliverNotification(ctx, DeliverNotificationInput{
		ID:       "n-1",
		Identity: "a@example.com",
		Code:     out.Code,
	}))
	assert.Equal(t, out.Code, f.sender.lastCode())

	res, err := f.uc.Validate(ctx, ValidateInput{Identity: "a@example.com", Code: out.Code})
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestNew_RejectsCodesTheValidatorRefuses(t *testing.T) {
	for _, mutate := range []func(s *Settings){
		func(s *Settings) { s.CodeLength = 8; s.CodePrefix = "OTP-" },
		func(s *Settings) { s.CodeLength = MaxCodeLength + 1 },
	} {
		settings := testSettings()
		mutate(&settings)

		_, err := New(Dependency{Settings: settings, Instrument: instrument.NewNoop()})
		assert.Equal(t, goerror.CodeConfiguration, codeOf(t, err))
		assert.ErrorIs(t, err, ErrInvalidSettings)
	}
}

func TestUsecase_Generate_SupersedesPrevious(t *testing.T) {
	ctx := context.Background()
	f := newUsecaseFixture(t, func(dep *Dependency) {
		dep.Codes = fixedCodes("111111", "222222")
	})

	first, err := f.uc.Generate(ctx, GenerateInput{Identity: "a@example.com"})
	require.NoError(t, err)
	second, err := f.uc.Generate(ctx, GenerateInput{Identity: "a@example.com"})
	require.NoError(t, err)

	assert.Equal(t, entity.RecordStatusExpired, f.records.get(first.RecordID).Status)
	assert.Len(t, f.records.byStatus("a@example.com", entity.RecordStatusActive), 1)

	res, err := f.uc.Validate(ctx, ValidateInput{Identity: "a@example.com", Code: first.Code})
	require.NoError(t, err)
	assert.False(t, res.Valid)

	res, err = f.uc.Validate(ctx, ValidateInput{Identity: "a@example.com", Code: second.Code})
	require.NoError(t, err)
	assert.True(t, res.Valid)

	_, err = f.uc.Validate(ctx, ValidateInput{Identity: "a@example.com", Code: first.Code})
	assert.Equal(t, goerror.CodeNotFound, codeOf(t, err))
}

func TestUsecase_Generate_DeliveryFailure(t *testing.T) {
	f := newUsecaseFixture(t, nil)
	f.sender.SendFunc = func(context.Context, string, string) error { return errBoom }

	out, err := f.uc.Generate(context.Background(), GenerateInput{Identity: "a@example.com"})
	assert.Nil(t, out)
	assert.Equal(t, goerror.CodeDeliveryFailed, codeOf(t, err))
	assert.Empty(t, f.records.byStatus("a@example.com", entity.RecordStatusActive))
}

func TestUsecase_Generate_InvalidIdentity(t *testing.T) {
	f := newUsecaseFixture(t, nil)

	_, err := f.uc.Generate(context.Background(), GenerateInput{Identity: "not-an-email"})
	assert.Equal(t, goerror.CodeInvalidInput, codeOf(t, err))
	assert.Empty(t, f.sender.sent)
}

func TestUsecase_Generate_CodeSourceError(t *testing.T) {
	f := newUsecaseFixture(t, func(dep *Dependency) {
		dep.Codes = codeFunc(func() (string, error) { return "", errBoom })
	})

	_, err := f.uc.Generate(context.Background(), GenerateInput{Identity: "a@example.com"})
	assert.Equal(t, goerror.CodeInternal, codeOf(t, err))
	assert.Empty(t, f.sender.sent)
}

func TestUsecase_Validate_AttemptCeiling(t *testing.T) {
	ctx := context.Background()
	f := newUsecaseFixture(t, func(dep *Dependency) {
		dep.Settings.MaxAttempts = 3
	})

	out, err := f.uc.Generate(ctx, GenerateInput{Identity: "a@example.com"})
	require.NoError(t, err)

	for range 3 {
		res, err := f.uc.Validate(ctx, ValidateInput{Identity: "a@example.com", Code: "000000"})
		require.NoError(t, err)
		assert.False(t, res.Valid)
	}

	_, err = f.uc.Validate(ctx, ValidateInput{Identity: "a@example.com", Code: out.Code})
	assert.Equal(t, goerror.CodeTooManyRequest, codeOf(t, err))
	assert.Len(t, f.attempts.attempts, 4)
}

func TestUsecase_Validate_WindowOutlivesRecord(t *testing.T) {
	ctx := context.Background()
	f := newUsecaseFixture(t, func(dep *Dependency) {
		dep.Settings.MaxAttempts = 2
	})

	out, err := f.uc.Generate(ctx, GenerateInput{Identity: "a@example.com"})
	require.NoError(t, err)
	_, err = f.uc.Validate(ctx, ValidateInput{Identity: "a@example.com", Code: "000000"})
	require.NoError(t, err)
	_, err = f.uc.Validate(ctx, ValidateInput{Identity: "a@example.com", Code: out.Code})
	require.NoError(t, err)

	// a new record does not reset the identity's sliding window
	out, err = f.uc.Generate(ctx, GenerateInput{Identity: "a@example.com"})
	require.NoError(t, err)
	_, err = f.uc.Validate(ctx, ValidateInput{Identity: "a@example.com", Code: out.Code})
	assert.Equal(t, goerror.CodeTooManyRequest, codeOf(t, err))

	// once the earlier attempts leave the window the record is usable again
	f.clk.Advance(16 * time.Minute)
	res, err := f.uc.Validate(ctx, ValidateInput{Identity: "a@example.com", Code: out.Code})
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestUsecase_Validate_InvalidInput(t *testing.T) {
	f := newUsecaseFixture(t, nil)

	_, err := f.uc.Validate(context.Background(), ValidateInput{Identity: "a@example.com"})
	assert.Equal(t, goerror.CodeInvalidInput, codeOf(t, err))
	assert.Empty(t, f.attempts.attempts)
}

func TestUsecase_Validate_StoreError(t *testing.T) {
	f := newUsecaseFixture(t, nil)
	f.attempts.err = errBoom

	_, err := f.uc.Validate(context.Background(), ValidateInput{Identity: "a@example.com", Code: "123456"})
	assert.Equal(t, goerror.CodeInternal, codeOf(t, err))
}

func TestUsecase_Revoke(t *testing.T) {
	ctx := context.Background()
	f := newUsecaseFixture(t, nil)

	res, err := f.uc.Revoke(ctx, RevokeInput{Identity: "a@example.com", Reason: "lost device"})
	require.NoError(t, err)
	assert.False(t, res.Revoked)

	out, err := f.uc.Generate(ctx, GenerateInput{Identity: "a@example.com"})
	require.NoError(t, err)

	res, err = f.uc.Revoke(ctx, RevokeInput{Identity: "A@example.com", Reason: "lost device"})
	require.NoError(t, err)
	assert.True(t, res.Revoked)

	rec := f.records.get(out.RecordID)
	assert.Equal(t, entity.RecordStatusRevoked, rec.Status)
	assert.Equal(t, "lost device", rec.RevokedReason)

	_, err = f.uc.Validate(ctx, ValidateInput{Identity: "a@example.com", Code: out.Code})
	assert.Equal(t, goerror.CodeNotFound, codeOf(t, err))

	_, err = f.uc.Revoke(ctx, RevokeInput{Identity: "a@example.com"})
	assert.Equal(t, goerror.CodeInvalidInput, codeOf(t, err))
}

func TestUsecase_Resend(t *testing.T) {
	ctx := context.Background()
	routine := goroutine.NewManager(4)
	f := newUsecaseFixture(t, func(dep *Dependency) {
		dep.Goroutine = routine
	})

	err := f.uc.Resend(ctx, ResendInput{Identity: "a@example.com"})
	assert.Equal(t, goerror.CodeNotFound, codeOf(t, err))

	out, err := f.uc.Generate(ctx, GenerateInput{Identity: "a@example.com"})
	require.NoError(t, err)

	require.NoError(t, f.uc.Resend(ctx, ResendInput{Identity: "a@example.com"}))
	require.NoError(t, routine.Wait())

	calls := f.queue.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "otp-notification-queue", calls[0].queue)
	assert.Equal(t, out.Code, calls[0].msg.Code)
	assert.Equal(t, "a@example.com", calls[0].msg.Identity)
	assert.Zero(t, calls[0].msg.RetryCount)
	assert.Len(t, f.records.byStatus("a@example.com", entity.RecordStatusActive), 1)
}

func TestUsecase_Resend_WithoutManagerRunsInline(t *testing.T) {
	ctx := context.Background()
	f := newUsecaseFixture(t, nil)

	_, err := f.uc.Generate(ctx, GenerateInput{Identity: "a@example.com"})
	require.NoError(t, err)
	require.NoError(t, f.uc.Resend(ctx, ResendInput{Identity: "a@example.com"}))

	assert.Len(t, f.queue.snapshot(), 1)
}

func TestUsecase_DeliverNotification(t *testing.T) {
	in := DeliverNotificationInput{ID: "m1", Identity: "a@example.com", Code: "123456"}

	t.Run("delivered", func(t *testing.T) {
		f := newUsecaseFixture(t, nil)
		require.NoError(t, f.uc.DeliverNotification(context.Background(), in))
		assert.Equal(t, []string{"123456"}, f.sender.sent)
		assert.Empty(t, f.queue.snapshot())
	})

	t.Run("failure is queued again", func(t *testing.T) {
		f := newUsecaseFixture(t, nil)
		f.sender.SendFunc = func(context.Context, string, string) error { return errBoom }

		require.NoError(t, f.uc.DeliverNotification(context.Background(), in))

		calls := f.queue.snapshot()
		require.Len(t, calls, 1)
		assert.Equal(t, "otp-notification-queue", calls[0].queue)
		assert.Equal(t, 1, calls[0].msg.RetryCount)
		assert.Equal(t, time.Millisecond, calls[0].delay)
	})

	t.Run("last failure is dead lettered", func(t *testing.T) {
		f := newUsecaseFixture(t, nil)
		f.sender.SendFunc = func(context.Context, string, string) error { return errBoom }

		last := in
		last.RetryCount = 2
		require.NoError(t, f.uc.DeliverNotification(context.Background(), last))

		calls := f.queue.snapshot()
		require.Len(t, calls, 1)
		assert.Equal(t, "otp-notification-dlq", calls[0].queue)
		assert.Equal(t, 3, calls[0].msg.RetryCount)
	})

	t.Run("invalid payload is dropped", func(t *testing.T) {
		f := newUsecaseFixture(t, nil)
		require.NoError(t, f.uc.DeliverNotification(context.Background(), DeliverNotificationInput{ID: "m1"}))
		assert.Empty(t, f.sender.sent)
	})
}

func TestUsecase_DeliverNotification_SkipsDuplicates(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newUsecaseFixture(t, func(dep *Dependency) {
		dep.Idempotency = idempotency.New(client)
	})

	in := DeliverNotificationInput{ID: "m1", Identity: "a@example.com", Code: "123456"}
	require.NoError(t, f.uc.DeliverNotification(context.Background(), in))
	require.NoError(t, f.uc.DeliverNotification(context.Background(), in))
	assert.Len(t, f.sender.sent, 1)

	// a retry of the same message is a different delivery
	in.RetryCount = 1
	require.NoError(t, f.uc.DeliverNotification(context.Background(), in))
	assert.Len(t, f.sender.sent, 2)

	mr.Close()
	in.RetryCount = 2
	err := f.uc.DeliverNotification(context.Background(), in)
	assert.Equal(t, goerror.CodeInternal, codeOf(t, err))
}

package inbound

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/gootp/internal/otp/usecase"
	"github.com/shandysiswandi/gootp/internal/pkg/config"
	"github.com/shandysiswandi/gootp/internal/pkg/goroutine"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/messaging"
	"github.com/shandysiswandi/gootp/internal/pkg/uid"
	"github.com/shandysiswandi/gootp/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	body    []byte
	headers map[string][]byte
}

func (m *fakeMessage) ID() string { return "m1" }
func (m *fakeMessage) Source() string { return event.OTPNotificationDestination }
func (m *fakeMessage) Body() []byte { return m.body }
func (m *fakeMessage) Header(key string) []byte { return m.headers[key] }
func (m *fakeMessage) Ack(context.Context) error { return nil }
func (m *fakeMessage) Nack(context.Context) error { return nil }

func newHandler(uc ucConsumer) *MQHandler {
	return &MQHandler{uc: uc, uuid: uid.NewUUID(), ins: instrument.NewNoop()}
}

func TestMQHandler_DeliverNotification(t *testing.T) {
	var got usecase.DeliverNotificationInput
	var gotCID string
	h := newHandler(&mockUsecase{
		DeliverNotificationFunc: func(ctx context.Context, in usecase.DeliverNotificationInput) error {
			got = in
			gotCID = instrument.GetCorrelationID(ctx)
			return nil
		},
	})

	err := h.DeliverNotification(context.Background(), &fakeMessage{
		body:    []byte(`{"id":"n1","identity":"a@example.com","code":"123456","retry_count":2}`),
		headers: map[string][]byte{"cID": []byte("corr-1")},
	})
	require.NoError(t, err)
	assert.Equal(t, usecase.DeliverNotificationInput{ID: "n1", Identity: "a@example.com", Code: "123456", RetryCount: 2}, got)
	assert.Equal(t, "corr-1", gotCID)
}

func TestMQHandler_DeliverNotification_GeneratesCorrelationID(t *testing.T) {
	var gotCID string
	h := newHandler(&mockUsecase{
		DeliverNotificationFunc: func(ctx context.Context, _ usecase.DeliverNotificationInput) error {
			gotCID = instrument.GetCorrelationID(ctx)
			return nil
		},
	})

	require.NoError(t, h.DeliverNotification(context.Background(), &fakeMessage{body: []byte(`{"id":"n1"}`)}))
	assert.NotEmpty(t, gotCID)
}

func TestMQHandler_DeliverNotification_BadBodyIsDropped(t *testing.T) {
	called := false
	h := newHandler(&mockUsecase{
		DeliverNotificationFunc: func(context.Context, usecase.DeliverNotificationInput) error {
			called = true
			return nil
		},
	})

	assert.NoError(t, h.DeliverNotification(context.Background(), &fakeMessage{body: []byte("not json")}))
	assert.False(t, called)
}

func TestMQHandler_DeliverNotification_UsecaseError(t *testing.T) {
	errBoom := errors.New("boom")
	h := newHandler(&mockUsecase{
		DeliverNotificationFunc: func(context.Context, usecase.DeliverNotificationInput) error { return errBoom },
	})

	err := h.DeliverNotification(context.Background(), &fakeMessage{body: []byte(`{"id":"n1"}`)})
	assert.ErrorIs(t, err, errBoom)
}

func TestMQHandler_DeadLetterNotification(t *testing.T) {
	h := newHandler(&mockUsecase{})

	assert.NoError(t, h.DeadLetterNotification(context.Background(), &fakeMessage{body: []byte(`{"id":"n1","retry_count":3}`)}))
	assert.NoError(t, h.DeadLetterNotification(context.Background(), &fakeMessage{body: []byte("{")}))
}

func TestEnabledConsumers(t *testing.T) {
	all := []consumer{{name: "a"}, {name: "b"}, {name: "c"}}

	assert.Empty(t, enabledConsumers(nil, all))
	assert.Equal(t, []consumer{{name: "a"}, {name: "c"}}, enabledConsumers([]string{"c", "a", "x"}, all))
}

func TestRegisterMQConsumer_EndToEnd(t *testing.T) {
	cfg, err := config.NewViperFromBytes("yaml", []byte(`
modules:
  otp:
    consumer_names: otp_notification_delivery
    queue:
      notification: test-queue
`))
	require.NoError(t, err)

	delivered := make(chan usecase.DeliverNotificationInput, 1)
	uc := &mockUsecase{
		DeliverNotificationFunc: func(_ context.Context, in usecase.DeliverNotificationInput) error {
			delivered <- in
			return nil
		},
	}

	broker := messaging.NewMemory(messaging.MemoryConfig{})
	routine := goroutine.NewManager(4)
	ctx, cancel := context.WithCancel(context.Background())

	RegisterMQConsumer(ctx, cfg, routine, broker, uid.NewUUID(), uc, instrument.NewNoop())

	require.NoError(t, broker.Publish(ctx, "test-queue", messaging.OutgoingMessage{
		Body: []byte(`{"id":"n1","identity":"a@example.com","code":"123456","retry_count":0}`),
	}))

	select {
	case in := <-delivered:
		assert.Equal(t, "n1", in.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not consumed")
	}

	cancel()
	require.NoError(t, broker.Close())
	_ = routine.Wait()
}

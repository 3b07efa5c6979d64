package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"bakery-storefront/config"
	"bakery-storefront/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ackRecorder struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (a *ackRecorder) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *ackRecorder) Nack(tag uint64, _, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *ackRecorder) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.acked), len(a.nacked)
}

func delivery(t *testing.T, ack amqp.Acknowledger, tag uint64, body any) amqp.Delivery {
	t.Helper()
	raw, ok := body.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: raw}
}

func TestProcessOrderMessage(t *testing.T) {
	ack := &ackRecorder{}
	var handled []int64
	handler := HandlerFunc(func(_ context.Context, e models.OrderEvent) error {
		if e.OrderID == 13 {
			return errors.New("refresh failed")
		}
		handled = append(handled, e.OrderID)
		return nil
	})
	ctx := context.Background()

	processOrderMessage(ctx, delivery(t, ack, 1, models.OrderEvent{OrderID: 5, Type: models.OrderEventStatusUpdated}), handler)
	processOrderMessage(ctx, delivery(t, ack, 2, []byte("5|created")), handler)
	processOrderMessage(ctx, delivery(t, ack, 3, models.OrderEvent{OrderID: 13, Type: models.OrderEventCreated}), handler)
	processOrderMessage(ctx, delivery(t, ack, 4, models.OrderEvent{OrderID: 6, Type: "payment_check"}), handler)

	assert.Equal(t, []int64{5}, handled)
	assert.Equal(t, []uint64{1, 4}, ack.acked)
	assert.Equal(t, []uint64{2, 3}, ack.nacked)
}

func TestProcessOrderMessage_RecoversFromPanic(t *testing.T) {
	ack := &ackRecorder{}
	handler := HandlerFunc(func(context.Context, models.OrderEvent) error { panic("boom") })

	assert.NotPanics(t, func() {
		processOrderMessage(context.Background(), delivery(t, ack, 9, models.OrderEvent{OrderID: 1, Type: models.OrderEventCreated}), handler)
	})
	assert.Equal(t, []uint64{9}, ack.nacked)
}

type fakeConsumer struct {
	queues map[string]chan amqp.Delivery
}

func (f *fakeConsumer) Consume(queue, _ string, _, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	ch, ok := f.queues[queue]
	if !ok {
		return nil, errors.New("no such queue")
	}
	return ch, nil
}

func TestStartOrderConsumer(t *testing.T) {
	cfg := &config.Config{OrderQueue: "orders_queue", DeadLetterQueue: "dead_letter_queue"}
	orders := make(chan amqp.Delivery, 1)
	dead := make(chan amqp.Delivery, 1)
	consumer := &fakeConsumer{queues: map[string]chan amqp.Delivery{
		"orders_queue":      orders,
		"dead_letter_queue": dead,
	}}

	got := make(chan models.OrderEvent, 1)
	handler := HandlerFunc(func(_ context.Context, e models.OrderEvent) error {
		got <- e
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, StartOrderConsumer(ctx, consumer, cfg, handler))

	ack := &ackRecorder{}
	orders <- delivery(t, ack, 1, models.OrderEvent{OrderID: 7, Type: models.OrderEventCreated})
	dead <- delivery(t, ack, 2, []byte("garbage"))

	select {
	case e := <-got:
		assert.Equal(t, int64(7), e.OrderID)
	case <-time.After(time.Second):
		t.Fatal("event not dispatched")
	}
	require.Eventually(t, func() bool {
		acked, _ := ack.counts()
		return acked == 2
	}, time.Second, 5*time.Millisecond)
}

func TestStartOrderConsumer_NoQueue(t *testing.T) {
	err := StartOrderConsumer(context.Background(), &fakeConsumer{}, &config.Config{OrderQueue: "missing"}, HandlerFunc(nil))
	assert.Error(t, err)
}

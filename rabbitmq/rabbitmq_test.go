package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"bakery-storefront/config"
	"bakery-storefront/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	msg      amqp.Publishing
}

type fakeChannel struct {
	exchanges  map[string]string
	queues     map[string]amqp.Table
	bindings   []string
	published  []published
	publishErr error
	closed     bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{exchanges: map[string]string{}, queues: map[string]amqp.Table{}}
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	f.exchanges[name] = kind
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, args amqp.Table) (amqp.Queue, error) {
	f.queues[name] = args
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	f.bindings = append(f.bindings, exchange+"->"+name)
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, _ string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange: exchange, msg: msg})
	return nil
}

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return nil, errors.New("not used")
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		OrderExchange:   "orders_exchange",
		OrderQueue:      "orders_queue",
		DeadLetterQueue: "dead_letter_queue",
		MaxPriority:     10,
	}
}

func TestSetupQueues(t *testing.T) {
	ch := newFakeChannel()
	r := NewWithChannel(ch, testConfig())
	require.NoError(t, r.SetupQueues())

	assert.Equal(t, "fanout", ch.exchanges["orders_exchange"])
	assert.Equal(t, "direct", ch.exchanges["dead_letter_queue_exchange"])
	args := ch.queues["orders_queue"]
	assert.Equal(t, 10, args["x-max-priority"])
	assert.Equal(t, "dead_letter_queue_exchange", args["x-dead-letter-exchange"])
	assert.Contains(t, ch.bindings, "orders_exchange->orders_queue")
	assert.Contains(t, ch.bindings, "dead_letter_queue_exchange->dead_letter_queue")
}

func TestPriority(t *testing.T) {
	assert.Equal(t, uint8(5), Priority(models.OrderEvent{Status: models.OrderStatusPlaced, Total: decimal.NewFromInt(40)}))
	assert.Equal(t, uint8(8), Priority(models.OrderEvent{Status: models.OrderStatusCanceled, Total: decimal.NewFromInt(40)}))
	assert.Equal(t, uint8(9), Priority(models.OrderEvent{Status: models.OrderStatusPlaced, Total: decimal.NewFromInt(1200)}))
	assert.Equal(t, uint8(5), Priority(models.OrderEvent{Status: models.OrderStatusComplete, Total: decimal.NewFromInt(1000)}))
}

func TestPublishOrderEvent(t *testing.T) {
	ch := newFakeChannel()
	r := NewWithChannel(ch, testConfig())

	event := models.OrderEvent{
		OrderID:  5,
		UserID:   2,
		Type:     models.OrderEventStatusUpdated,
		Status:   models.OrderStatusCanceled,
		Total:    decimal.NewFromInt(44),
		Occurred: time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, r.PublishOrderEvent(context.Background(), event))
	require.Len(t, ch.published, 1)

	p := ch.published[0]
	assert.Equal(t, "orders_exchange", p.exchange)
	assert.Equal(t, uint8(8), p.msg.Priority)
	assert.Equal(t, amqp.Persistent, p.msg.DeliveryMode)
	assert.Equal(t, "status_updated", p.msg.Type)
	assert.NotEmpty(t, p.msg.MessageId)

	var decoded models.OrderEvent
	require.NoError(t, json.Unmarshal(p.msg.Body, &decoded))
	assert.Equal(t, int64(5), decoded.OrderID)
	assert.True(t, decoded.Total.Equal(event.Total))

	ch.publishErr = errors.New("channel closed")
	assert.Error(t, r.PublishOrderEvent(context.Background(), event))

	require.NoError(t, r.Close())
	assert.True(t, ch.closed)
}

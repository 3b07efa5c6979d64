package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"bakery-storefront/config"
	"bakery-storefront/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer is the subset of *amqp.Channel used to subscribe to queues.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Handler reacts to an order event, typically by refreshing a view.
type Handler interface {
	HandleOrderEvent(ctx context.Context, event models.OrderEvent) error
}

type HandlerFunc func(ctx context.Context, event models.OrderEvent) error

func (f HandlerFunc) HandleOrderEvent(ctx context.Context, event models.OrderEvent) error {
	return f(ctx, event)
}

// StartOrderConsumer subscribes to the order queue and its dead-letter queue
// and dispatches until ctx is done or the channel closes.
func StartOrderConsumer(ctx context.Context, ch Consumer, cfg *config.Config, handler Handler) error {
	// 消费主订单队列
	msgs, err := ch.Consume(cfg.OrderQueue, "storefront", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register order consumer: %w", err)
	}
	go consume(ctx, msgs, func(msg amqp.Delivery) { processOrderMessage(ctx, msg, handler) })

	// 消费死信队列
	dlqMsgs, err := ch.Consume(cfg.DeadLetterQueue, "storefront-dlq", false, false, false, false, nil)
	if err != nil {
		log.Printf("Failed to register DLQ consumer: %v", err)
		return nil
	}
	go consume(ctx, dlqMsgs, processDeadLetterMessage)
	return nil
}

func consume(ctx context.Context, msgs <-chan amqp.Delivery, process func(amqp.Delivery)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			process(msg)
		}
	}
}

func processOrderMessage(ctx context.Context, msg amqp.Delivery, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in message processing: %v", r)
			_ = msg.Nack(false, false)
		}
	}()

	var event models.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil || event.OrderID == 0 {
		log.Printf("Invalid order event: %s", msg.Body)
		// 拒绝消息，不重新入队
		_ = msg.Nack(false, false)
		return
	}

	log.Printf("Processing order event: ID=%d, Type=%s", event.OrderID, event.Type)
	switch event.Type {
	case models.OrderEventCreated, models.OrderEventStatusUpdated:
		if err := handler.HandleOrderEvent(ctx, event); err != nil {
			log.Printf("Failed to handle %s event for order %d: %v", event.Type, event.OrderID, err)
			_ = msg.Nack(false, false)
			return
		}
	default:
		log.Printf("Unknown event type: %s", event.Type)
	}

	if err := msg.Ack(false); err != nil {
		log.Printf("Failed to ack order event %d: %v", event.OrderID, err)
	}
}

func processDeadLetterMessage(msg amqp.Delivery) {
	log.Printf("Received dead letter: %s", msg.Body)
	_ = msg.Ack(false)
}

// Package queue_publisher publishes allocation domain events to
// RabbitMQ.  Errors are logged and returned so callers can treat the
// broker as best-effort: a failed publish never fails the request
// that triggered it.
package queue_publisher

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/tavolo/restaurant-seat-allocation/internal/queue"
)

// PublishAllocationEvent sends one event to the allocation.events
// queue.  A fresh connection is dialed per publish; allocation
// transitions are staff-paced, so connection churn is negligible and
// the service never holds a broker connection it is not using.
// Messages are persistent so they survive a broker restart, and
// OccurredAt is stamped here when the caller left it empty.
func PublishAllocationEvent(ctx context.Context, event queue.AllocationEvent) error {
    if event.OccurredAt == "" {
        event.OccurredAt = time.Now().UTC().Format(time.RFC3339)
    }

    conn, err := amqp.Dial(queue.BrokerURL())
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Idempotent declare; durable so events survive broker restarts.
    if _, err := ch.QueueDeclare(queue.QueueName, true, false, false, false, nil); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    // Default exchange, routing key = queue name.
    if err := ch.PublishWithContext(ctx, "", queue.QueueName, false, false, pub); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
        return err
    }
    return nil
}

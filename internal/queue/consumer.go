// Package queue contains the allocation event contract and the
// background consumer that listens on the allocation.events queue and
// appends an audit line per event to logs/allocation.log.
package queue

import (
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

const (
    auditLogDir  = "logs"
    auditLogFile = "allocation.log"

    prefetch   = 50
    maxBackoff = 30 * time.Second
)

// StartAllocationConsumer runs the consumer until the process exits.
// It dials the broker, declares the durable allocation.events queue
// and consumes with manual acks; broker failures trigger a reconnect
// with exponential backoff instead of taking the server down, and a
// message that cannot be processed is rejected without requeue so one
// bad payload cannot wedge the queue.
func StartAllocationConsumer() error {
    url := BrokerURL()

    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Printf("allocation-consumer: dial broker: %v; retrying in %s", err, backoff)
            time.Sleep(backoff)
            if backoff < maxBackoff {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        if err := consumeLoop(conn); err != nil {
            log.Printf("allocation-consumer: consume loop ended: %v; reconnecting", err)
            time.Sleep(2 * time.Second)
        }
    }
}

func consumeLoop(conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(prefetch, 0, false); err != nil {
        log.Printf("allocation-consumer: set QoS failed: %v", err)
    }

    if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(QueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := handleMessage(d.Body); err != nil {
            log.Printf("allocation-consumer: handle message failed: %v", err)
            _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

func handleMessage(body []byte) error {
    var ev AllocationEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := os.MkdirAll(auditLogDir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", auditLogDir, err)
    }
    f, err := os.OpenFile(filepath.Join(auditLogDir, auditLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(auditLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// auditLine renders one event as a single human-readable line.
// Reserved events describe the window being taken; released events
// additionally say which terminal status freed the seats.
func auditLine(ev AllocationEvent) string {
    seats := "[]"
    if len(ev.SeatLabels) > 0 {
        seats = "[" + strings.Join(ev.SeatLabels, ",") + "]"
    }
    switch ev.Kind {
    case KindReleased:
        return fmt.Sprintf("[%s] released | occupant=%s/%s | via=%s | window=%s..%s | seats=%s\n",
            ev.OccurredAt, ev.OccupantType, ev.OccupantRef, ev.Status, ev.StartsAt, ev.EndsAt, seats)
    case KindReserved:
        return fmt.Sprintf("[%s] reserved | occupant=%s/%s | window=%s..%s | seats=%s\n",
            ev.OccurredAt, ev.OccupantType, ev.OccupantRef, ev.StartsAt, ev.EndsAt, seats)
    default:
        return fmt.Sprintf("[%s] %s | occupant=%s/%s | status=%s | window=%s..%s | seats=%s\n",
            ev.OccurredAt, ev.Kind, ev.OccupantType, ev.OccupantRef, ev.Status, ev.StartsAt, ev.EndsAt, seats)
    }
}

// Package service provides adapters from the ledger to outside systems.
// The queue publisher sends domain events to RabbitMQ; errors are logged
// and returned so callers can ignore failures without interrupting the
// main request flow.
package service

import (
    "context"
    "encoding/json"
    "log/slog"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/parking-lot-admin/internal/config"
    q "github.com/iliyamo/parking-lot-admin/internal/queue"
)

// dialTimeout bounds how long a publish may wait for the broker.  A slow
// broker must not hold up an HTTP response for long.
const dialTimeout = 2 * time.Second

// AMQPPublisher publishes booking events to a durable RabbitMQ queue.  It
// dials per publish; bookings are low-volume, so a pooled connection is not
// worth its reconnect bookkeeping.
type AMQPPublisher struct {
    url   string
    queue string
    log   *slog.Logger
}

// NewAMQPPublisher returns a publisher for cfg.  It does not connect until
// the first Publish.
func NewAMQPPublisher(cfg config.QueueConfig, log *slog.Logger) *AMQPPublisher {
    return &AMQPPublisher{url: cfg.URL, queue: cfg.Queue, log: log}
}

// Publish sends ev as a persistent JSON message routed to the configured
// queue.  It never panics; any error is logged and returned.
func (p *AMQPPublisher) Publish(ctx context.Context, ev q.BookingEvent) error {
    conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
    if err != nil {
        p.log.Warn("rabbitmq: dial failed", "err", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.log.Warn("rabbitmq: channel open failed", "err", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        p.queue, // name
        true,    // durable
        false,   // autoDelete
        false,   // exclusive
        false,   // noWait
        nil,     // args
    ); err != nil {
        p.log.Warn("rabbitmq: queue declare failed", "err", err)
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        p.log.Warn("rabbitmq: marshal event failed", "err", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Type:         ev.Type,
        MessageId:    ev.BookingID + ":" + ev.Type,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",      // default exchange
        p.queue, // routing key = queue name
        false,   // mandatory
        false,   // immediate
        pub,
    ); err != nil {
        p.log.Warn("rabbitmq: publish failed", "err", err)
        return err
    }
    return nil
}

// NopPublisher drops every event.  It is used when QUEUE_ENABLED is off.
type NopPublisher struct{}

// Publish implements the ledger's event sink and always succeeds.
func (NopPublisher) Publish(context.Context, q.BookingEvent) error { return nil }

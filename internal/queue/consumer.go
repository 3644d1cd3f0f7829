package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    "github.com/cenkalti/backoff/v4"
    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// DefaultLogPath is where the consumer appends one line per event.
var DefaultLogPath = filepath.Join("logs", "reservations.log")

// Consumer listens to the reservation queue and appends every event to a
// line-oriented log file.
type Consumer struct {
    url     string
    logPath string
    logger  *zap.Logger
}

// NewConsumer returns a consumer for the broker at url writing to logPath.
func NewConsumer(url, logPath string, logger *zap.Logger) *Consumer {
    if url == "" {
        url = DefaultURL
    }
    if logPath == "" {
        logPath = DefaultLogPath
    }
    if logger == nil {
        logger = zap.NewNop()
    }
    return &Consumer{url: url, logPath: logPath, logger: logger.Named("consumer")}
}

// Run connects, declares the queue and consumes until ctx is cancelled.
// Broken connections are re-dialled with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
    b := backoff.NewExponentialBackOff()
    b.InitialInterval = time.Second
    b.MaxInterval = 30 * time.Second
    b.MaxElapsedTime = 0

    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            wait := b.NextBackOff()
            c.logger.Warn("dial failed", zap.Error(err), zap.Duration("retry_in", wait))
            if !sleep(ctx, wait) {
                return ctx.Err()
            }
            continue
        }
        b.Reset()

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.logger.Warn("consume loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.logger.Warn("set QoS failed", zap.Error(err))
    }
    if _, err := ch.QueueDeclare(ReservationQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(ReservationQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.Handle(d.Body); err != nil {
                c.logger.Error("handle message failed", zap.Error(err))
                _ = d.Nack(false, false) // do not requeue, avoids a poison loop
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// Handle decodes one message body and appends it to the log file.
func (c *Consumer) Handle(body []byte) error {
    var ev ReservationEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" || ev.ReservationID == 0 {
        return errors.New("event without type or reservation id")
    }
    if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLine renders an event as a single log line.
func FormatLine(ev ReservationEvent) string {
    return fmt.Sprintf("[%s] %s | reservation_id=%d | user_id=%d | restaurant_id=%d | restaurant=%q | party=%d | at=%s | status=%s\n",
        ev.OccurredAt, ev.Type, ev.ReservationID, ev.UserID, ev.RestaurantID, ev.RestaurantName,
        ev.PartySize, ev.ReservedAt, ev.Status)
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/media-catalog/internal/logging"
)

// outboxMu serialises appends from the consumer and the log transport.
var outboxMu sync.Mutex

// AppendToOutbox writes ev to the outbox file as a single line, creating
// the file and its directory when missing.
func AppendToOutbox(path string, ev ConfirmationCodeEvent) error {
    outboxMu.Lock()
    defer outboxMu.Unlock()

    if dir := filepath.Dir(path); dir != "." {
        if err := os.MkdirAll(dir, 0o755); err != nil {
            return fmt.Errorf("mkdir outbox dir: %w", err)
        }
    }
    f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
    if err != nil {
        return fmt.Errorf("open outbox: %w", err)
    }
    defer f.Close()

    line := fmt.Sprintf("[%s] from=%q to=%q subject=%q | confirmation_code %s\n",
        ev.IssuedAt, ev.From, ev.To, ev.Subject, ev.Code)
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write outbox: %w", err)
    }
    return nil
}

// StartMailConsumer connects to the broker at url, declares the mail queue
// (durable) and appends each message to the outbox file at outboxPath.  It
// reconnects with exponential backoff until ctx is cancelled, then returns
// ctx.Err().  Malformed messages are rejected without requeue.
func StartMailConsumer(ctx context.Context, url, outboxPath string) error {
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(url)
        if err != nil {
            logging.Warn().Err(err).Dur("retry_in", backoff).Msg("mail-consumer: dial failed")
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, outboxPath)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        logging.Warn().Err(err).Msg("mail-consumer: consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
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

func consumeLoop(ctx context.Context, conn *amqp.Connection, outboxPath string) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        logging.Warn().Err(err).Msg("mail-consumer: set QoS failed")
    }
    if _, err := ch.QueueDeclare(MailQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(MailQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    logging.Info().Str("queue", MailQueueName).Msg("mail-consumer: consuming")
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := handleMessage(d.Body, outboxPath); err != nil {
                logging.Error().Err(err).Msg("mail-consumer: handle message failed")
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func handleMessage(body []byte, outboxPath string) error {
    var ev ConfirmationCodeEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.To == "" || ev.Code == "" {
        return errors.New("message without recipient or code")
    }
    return AppendToOutbox(outboxPath, ev)
}

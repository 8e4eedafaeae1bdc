package service

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sony/gobreaker/v2"

    "github.com/iliyamo/media-catalog/internal/logging"
    "github.com/iliyamo/media-catalog/internal/metrics"
    q "github.com/iliyamo/media-catalog/internal/queue"
)

// CodeSender delivers a confirmation code to an address.  Implementations
// must be safe for concurrent use.
type CodeSender interface {
    SendCode(ctx context.Context, to, subject, code string) error
}

func newEvent(from, to, subject, code string) q.ConfirmationCodeEvent {
    return q.ConfirmationCodeEvent{
        From:     from,
        To:       to,
        Subject:  subject,
        Code:     code,
        IssuedAt: time.Now().UTC().Format(time.RFC3339),
    }
}

// AMQPSender publishes confirmation mails to the mail queue.  Each publish
// dials the broker; a circuit breaker stops dialling after repeated
// failures so a dead broker does not slow down every registration.
type AMQPSender struct {
    url  string
    from string
    cb   *gobreaker.CircuitBreaker[struct{}]
}

// NewAMQPSender returns a sender publishing to the broker at url.
func NewAMQPSender(url, from string) *AMQPSender {
    st := gobreaker.Settings{
        Name:        "mail-publisher",
        MaxRequests: 1,
        Timeout:     30 * time.Second,
        ReadyToTrip: func(c gobreaker.Counts) bool {
            return c.ConsecutiveFailures >= 3
        },
        OnStateChange: func(name string, from, to gobreaker.State) {
            metrics.MailBreakerState.Set(float64(to))
            logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
                Msg("circuit breaker state changed")
        },
    }
    return &AMQPSender{url: url, from: from, cb: gobreaker.NewCircuitBreaker[struct{}](st)}
}

// SendCode publishes one ConfirmationCodeEvent as a persistent message.
func (s *AMQPSender) SendCode(ctx context.Context, to, subject, code string) error {
    _, err := s.cb.Execute(func() (struct{}, error) {
        return struct{}{}, s.publish(ctx, newEvent(s.from, to, subject, code))
    })
    if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
        err = fmt.Errorf("mail publisher unavailable: %w", err)
    }
    metrics.RecordMail("amqp", err)
    return err
}

func (s *AMQPSender) publish(ctx context.Context, event q.ConfirmationCodeEvent) error {
    conn, err := amqp.Dial(s.url)
    if err != nil {
        return fmt.Errorf("rabbitmq dial: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("rabbitmq channel: %w", err)
    }
    defer func() { _ = ch.Close() }()

    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(q.MailQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("rabbitmq queue declare: %w", err)
    }

    body, err := json.Marshal(event)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", q.MailQueueName, false, false, pub); err != nil {
        return fmt.Errorf("rabbitmq publish: %w", err)
    }
    return nil
}

// OutboxSender writes confirmation mails straight to the outbox file.  It
// is the MAIL_TRANSPORT=log transport for local runs without a broker.
type OutboxSender struct {
    path string
    from string
}

func NewOutboxSender(path, from string) *OutboxSender {
    return &OutboxSender{path: path, from: from}
}

func (s *OutboxSender) SendCode(_ context.Context, to, subject, code string) error {
    err := q.AppendToOutbox(s.path, newEvent(s.from, to, subject, code))
    metrics.RecordMail("log", err)
    return err
}

// Package queue defines the mail messages exchanged over RabbitMQ and the
// consumer that delivers them to the mail outbox.
package queue

// MailQueueName is the durable queue confirmation mails are published to.
const MailQueueName = "mail.confirmation_code"

// Subjects used for confirmation mails.
const (
    SubjectRegistration = "Registration by e-mail"
    SubjectNewCode      = "a new confirmation_code"
)

// ConfirmationCodeEvent carries one confirmation mail.  It holds everything
// the consumer needs to render the message without touching the database.
type ConfirmationCodeEvent struct {
    From     string `json:"from"`
    To       string `json:"to"`
    Subject  string `json:"subject"`
    Code     string `json:"confirmation_code"`
    IssuedAt string `json:"issued_at"` // RFC 3339, UTC
}

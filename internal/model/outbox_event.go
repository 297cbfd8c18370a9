package model

import "time"

type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusSent    OutboxStatus = "sent"
)

func (s OutboxStatus) String() string {
	return string(s)
}

// OutboxEvent is a webhook-accepted payment event waiting to be published
// onto the stream by the relay worker.
type OutboxEvent struct {
	ID        string       `db:"id"`       // ULID
	EventID   string       `db:"event_id"` // provider event id, unique
	Payload   []byte       `db:"payload"`  // serialized PaymentEvent
	Status    OutboxStatus `db:"status"`
	CreatedAt time.Time    `db:"created_at"`
	SentAt    *time.Time   `db:"sent_at"`
}

package model

import "time"

type InboxStatus string

const (
	InboxStatusPending    InboxStatus = "pending"
	InboxStatusProcessing InboxStatus = "processing"
	InboxStatusCompleted  InboxStatus = "completed"
	InboxStatusFailed     InboxStatus = "failed"
)

func (s InboxStatus) String() string {
	return string(s)
}

func (s InboxStatus) Valid() bool {
	return s == InboxStatusPending || s == InboxStatusProcessing ||
		s == InboxStatusCompleted || s == InboxStatusFailed
}

// Terminal reports whether the status may never change again.
func (s InboxStatus) Terminal() bool {
	return s == InboxStatusCompleted || s == InboxStatusFailed
}

func ParseInboxStatus(raw string) (InboxStatus, bool) {
	s := InboxStatus(raw)
	return s, s.Valid()
}

// InboxEvent is the durable record of every event seen on the stream,
// keyed by the event id (inbox pattern).
type InboxEvent struct {
	EventID    string      `db:"event_id"`
	RawPayload string      `db:"raw_payload"`
	Status     InboxStatus `db:"status"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

package model

import "time"

// PaymentRecord is the finalized payment row persisted in
// payment_event_records, keyed by event id.
type PaymentRecord struct {
	EventID   string    `db:"event_id"`
	Amount    int64     `db:"amount"`
	Currency  string    `db:"currency"`
	Method    string    `db:"method"`
	Status    string    `db:"status"`
	EventAt   time.Time `db:"event_at"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// PaymentRecordFrom derives the persisted form from a validated event.
func PaymentRecordFrom(ev PaymentEvent) PaymentRecord {
	return PaymentRecord{
		EventID:  ev.ID,
		Amount:   ev.Amount,
		Currency: ev.Currency,
		Method:   ev.Method,
		Status:   ev.Status.String(),
		EventAt:  ev.EventAt,
	}
}

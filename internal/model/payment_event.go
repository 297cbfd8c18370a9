package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

// ParsePaymentStatus maps the wire value onto the typed enum.
func ParsePaymentStatus(raw string) (PaymentStatus, bool) {
	s := PaymentStatus(raw)
	return s, s.Valid()
}

var (
	ErrMissingFields = errors.New("all fields are required")
	ErrInvalidStatus = errors.New("invalid status")
)

// PaymentEvent is the validated domain form of a payment lifecycle event.
// Construct via NewPaymentEvent; a zero PaymentEvent is never valid.
type PaymentEvent struct {
	ID       string        `json:"id"`
	Amount   int64         `json:"amount"`
	Currency string        `json:"currency"`
	Method   string        `json:"method"`
	Status   PaymentStatus `json:"status"`
	EventAt  time.Time     `json:"eventAt"`
}

// NewPaymentEvent validates all fields and returns either a fully populated
// event or an error. Validation is all-or-nothing. EventAt is parsed as
// RFC3339 and normalized to UTC.
func NewPaymentEvent(id string, amount int64, currency, method, status, eventAt string) (PaymentEvent, error) {
	if strings.TrimSpace(id) == "" ||
		amount <= 0 ||
		strings.TrimSpace(currency) == "" ||
		strings.TrimSpace(method) == "" ||
		strings.TrimSpace(status) == "" ||
		strings.TrimSpace(eventAt) == "" {
		return PaymentEvent{}, ErrMissingFields
	}

	st, ok := ParsePaymentStatus(status)
	if !ok {
		return PaymentEvent{}, ErrInvalidStatus
	}

	ts, err := time.Parse(time.RFC3339, eventAt)
	if err != nil {
		return PaymentEvent{}, fmt.Errorf("invalid eventAt: %w", err)
	}

	return PaymentEvent{
		ID:       id,
		Amount:   amount,
		Currency: currency,
		Method:   method,
		Status:   st,
		EventAt:  ts.UTC(),
	}, nil
}

package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/paymentops/payment-processor/internal/model"
)

// PaymentsRepository persists finalized payment records.
type PaymentsRepository interface {
	// Upsert writes the record, keyed by event_id. Re-writing the same event
	// id is a no-op, which keeps retried processing batches safe.
	Upsert(ctx context.Context, rec model.PaymentRecord) error
	GetByEventID(ctx context.Context, eventID string) (*model.PaymentRecord, error)
}

type PaymentsRepositoryImpl struct {
	db *sqlx.DB
}

func NewPaymentsRepository(db *sqlx.DB) *PaymentsRepositoryImpl {
	return &PaymentsRepositoryImpl{db: db}
}

func (r *PaymentsRepositoryImpl) Upsert(ctx context.Context, rec model.PaymentRecord) error {
	const q = `
		INSERT INTO payment_event_records
		    (event_id, amount, currency, method, status, event_at, created_at, updated_at)
		VALUES
		    ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (event_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, q,
		rec.EventID, rec.Amount, rec.Currency, rec.Method, rec.Status, rec.EventAt,
	)
	return err
}

func (r *PaymentsRepositoryImpl) GetByEventID(ctx context.Context, eventID string) (*model.PaymentRecord, error) {
	const q = `
		SELECT event_id, amount, currency, method, status, event_at, created_at, updated_at
		FROM payment_event_records
		WHERE event_id = $1
	`
	var rec model.PaymentRecord
	if err := r.db.GetContext(ctx, &rec, q, eventID); err != nil {
		return nil, err
	}
	return &rec, nil
}

package repository

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/paymentops/payment-processor/internal/model"
)

// ErrDuplicateEvent reports that an event with the same provider event id
// was already accepted.
var ErrDuplicateEvent = errors.New("duplicate event")

// OutboxRepository persists webhook-accepted events until the relay worker
// publishes them onto the stream.
type OutboxRepository interface {
	Insert(ctx context.Context, ev model.OutboxEvent) error
	FetchPending(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkSent(ctx context.Context, id string) error
}

type OutboxRepositoryImpl struct {
	db *sqlx.DB
}

func NewOutboxRepository(db *sqlx.DB) *OutboxRepositoryImpl {
	return &OutboxRepositoryImpl{db: db}
}

func (r *OutboxRepositoryImpl) Insert(ctx context.Context, ev model.OutboxEvent) error {
	const q = `
		INSERT INTO outbox_events (id, event_id, payload, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`
	// payload column is text; []byte would be sent as bytea
	res, err := r.db.ExecContext(ctx, q, ev.ID, ev.EventID, string(ev.Payload), model.OutboxStatusPending.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicateEvent
	}
	return nil
}

func (r *OutboxRepositoryImpl) FetchPending(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	const q = `
		SELECT id, event_id, payload, status, created_at, sent_at
		FROM outbox_events
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	var events []model.OutboxEvent
	if err := r.db.SelectContext(ctx, &events, q, model.OutboxStatusPending.String(), limit); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *OutboxRepositoryImpl) MarkSent(ctx context.Context, id string) error {
	const q = `
		UPDATE outbox_events
		SET status = $1, sent_at = NOW()
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, q, model.OutboxStatusSent.String(), id)
	return err
}

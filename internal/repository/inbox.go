package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/paymentops/payment-processor/internal/model"
)

// InboxRepository defines persistence for the inbox_events table.
type InboxRepository interface {
	// TryInsert writes a new inbox row. A row with the same event_id already
	// present is not an error; the return value reports whether a row was
	// actually written.
	TryInsert(ctx context.Context, ev model.InboxEvent) (bool, error)
	// DequeuePending returns up to limit pending rows, oldest first.
	DequeuePending(ctx context.Context, limit int) ([]model.InboxEvent, error)
	// MarkCompleted and MarkFailed apply a terminal status. Both are no-ops
	// when the row is absent or already terminal. The failure reason is
	// advisory and surfaces in logs only.
	MarkCompleted(ctx context.Context, eventID string) error
	MarkFailed(ctx context.Context, eventID string, reason string) error
	// FlushStatuses applies a batch of terminal transitions in one
	// transaction.
	FlushStatuses(ctx context.Context, completed, failed []string) error
}

type InboxRepositoryImpl struct {
	db *sqlx.DB
}

func NewInboxRepository(db *sqlx.DB) *InboxRepositoryImpl {
	return &InboxRepositoryImpl{db: db}
}

func (r *InboxRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

// TryInsert relies on the primary key for idempotency: ON CONFLICT DO
// NOTHING absorbs duplicate event ids without an error, regardless of how
// many workers race on the same id.
func (r *InboxRepositoryImpl) TryInsert(ctx context.Context, ev model.InboxEvent) (bool, error) {
	const q = `
		INSERT INTO inbox_events (event_id, raw_payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (event_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, q, ev.EventID, ev.RawPayload, model.InboxStatusPending.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *InboxRepositoryImpl) DequeuePending(ctx context.Context, limit int) ([]model.InboxEvent, error) {
	const q = `
		SELECT event_id, raw_payload, status, created_at, updated_at
		FROM inbox_events
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	var events []model.InboxEvent
	if err := r.db.SelectContext(ctx, &events, q, model.InboxStatusPending.String(), limit); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *InboxRepositoryImpl) MarkCompleted(ctx context.Context, eventID string) error {
	return r.setTerminal(ctx, nil, eventID, model.InboxStatusCompleted)
}

func (r *InboxRepositoryImpl) MarkFailed(ctx context.Context, eventID string, _ string) error {
	return r.setTerminal(ctx, nil, eventID, model.InboxStatusFailed)
}

// setTerminal guards against leaving a terminal state: only pending or
// processing rows transition.
func (r *InboxRepositoryImpl) setTerminal(ctx context.Context, tx *sqlx.Tx, eventID string, status model.InboxStatus) error {
	const q = `
		UPDATE inbox_events
		SET status = $1, updated_at = NOW()
		WHERE event_id = $2 AND status IN ($3, $4)
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			status.String(), eventID,
			model.InboxStatusPending.String(), model.InboxStatusProcessing.String(),
		)
		return err
	})
}

// FlushStatuses commits a whole processing batch at once.
func (r *InboxRepositoryImpl) FlushStatuses(ctx context.Context, completed, failed []string) error {
	if len(completed) == 0 && len(failed) == 0 {
		return nil
	}
	return r.withTx(ctx, nil, func(tx *sqlx.Tx) error {
		if err := r.batchSetTerminal(ctx, tx, completed, model.InboxStatusCompleted); err != nil {
			return err
		}
		return r.batchSetTerminal(ctx, tx, failed, model.InboxStatusFailed)
	})
}

func (r *InboxRepositoryImpl) batchSetTerminal(ctx context.Context, tx *sqlx.Tx, ids []string, status model.InboxStatus) error {
	if len(ids) == 0 {
		return nil
	}
	const base = `
		UPDATE inbox_events
		SET status = ?, updated_at = NOW()
		WHERE event_id IN (?) AND status IN (?, ?)
	`
	query, args, err := sqlx.In(base,
		status.String(), ids,
		model.InboxStatusPending.String(), model.InboxStatusProcessing.String(),
	)
	if err != nil {
		return err
	}
	query = r.db.Rebind(query)
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/paymentops/payment-processor/internal/metrics"
	"github.com/paymentops/payment-processor/internal/model"
	"github.com/paymentops/payment-processor/internal/repository"
	"go.uber.org/zap"
)

// Processor converts pending inbox rows into payment records.
//
// Statuses for a batch are buffered in memory and committed with a single
// FlushStatuses call. A crash mid-batch can leave records pending with the
// payment record already written; the record upsert is idempotent on
// event_id, so the retried batch converges.
type Processor struct {
	Inbox    repository.InboxRepository
	Payments repository.PaymentsRepository

	BatchSize int           // pending rows fetched per batch, default 10
	IdleWait  time.Duration // 0 = drain and exit when nothing is pending
	Log       *zap.Logger
}

func NewProcessor(inbox repository.InboxRepository, payments repository.PaymentsRepository, log *zap.Logger) *Processor {
	return &Processor{
		Inbox:     inbox,
		Payments:  payments,
		BatchSize: 10,
		Log:       log,
	}
}

// Run drains pending rows batch by batch. In daemon mode (IdleWait > 0) it
// keeps polling until ctx is cancelled.
func (w *Processor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := w.RunOnce(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}

		if w.IdleWait <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.IdleWait):
		}
	}
}

// RunOnce processes a single batch and reports how many rows it handled.
// One bad record never aborts the batch: it is marked failed and the rest
// proceed.
func (w *Processor) RunOnce(ctx context.Context) (int, error) {
	if w.BatchSize <= 0 {
		w.BatchSize = 10
	}

	events, err := w.Inbox.DequeuePending(ctx, w.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("dequeue pending: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	var completed, failed []string
	for _, ie := range events {
		if err := w.processOne(ctx, ie); err != nil {
			metrics.EventsTotal.WithLabelValues("failed").Inc()
			w.Log.Warn("inbox event failed",
				zap.String("event_id", ie.EventID),
				zap.Error(err))
			failed = append(failed, ie.EventID)
			continue
		}
		metrics.EventsTotal.WithLabelValues("completed").Inc()
		w.Log.Info("inbox event completed", zap.String("event_id", ie.EventID))
		completed = append(completed, ie.EventID)
	}

	if err := w.Inbox.FlushStatuses(ctx, completed, failed); err != nil {
		return 0, fmt.Errorf("flush statuses: %w", err)
	}
	return len(events), nil
}

func (w *Processor) processOne(ctx context.Context, ie model.InboxEvent) error {
	var ev model.PaymentEvent
	if err := json.Unmarshal([]byte(ie.RawPayload), &ev); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if ev.ID == "" {
		return errors.New("payload missing event id")
	}

	if err := w.Payments.Upsert(ctx, model.PaymentRecordFrom(ev)); err != nil {
		return fmt.Errorf("persist payment record: %w", err)
	}
	return nil
}

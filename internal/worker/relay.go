package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/paymentops/payment-processor/internal/metrics"
	"github.com/paymentops/payment-processor/internal/model"
	"github.com/paymentops/payment-processor/internal/repository"
	"go.uber.org/zap"
)

// StreamPublisher appends an event to the stream and returns the entry id.
type StreamPublisher interface {
	Publish(ctx context.Context, ev model.PaymentEvent) (string, error)
}

// Relay publishes pending outbox rows onto the stream. Rows that fail to
// publish stay pending and are retried on the next pass; the processor's
// inbox deduplicates any double publish.
type Relay struct {
	Outbox    repository.OutboxRepository
	Publisher StreamPublisher

	BatchSize int
	IdleWait  time.Duration
	Log       *zap.Logger
}

func NewRelay(outbox repository.OutboxRepository, publisher StreamPublisher, log *zap.Logger) *Relay {
	return &Relay{
		Outbox:    outbox,
		Publisher: publisher,
		BatchSize: 50,
		Log:       log,
	}
}

func (w *Relay) Run(ctx context.Context) error {
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

// RunOnce publishes one batch of pending outbox rows and reports how many
// were sent.
func (w *Relay) RunOnce(ctx context.Context) (int, error) {
	if w.BatchSize <= 0 {
		w.BatchSize = 50
	}

	rows, err := w.Outbox.FetchPending(ctx, w.BatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, row := range rows {
		var ev model.PaymentEvent
		if err := json.Unmarshal(row.Payload, &ev); err != nil {
			// payload was written by us after validation; treat corruption
			// as an operator problem, not a crash
			w.Log.Error("unreadable outbox payload",
				zap.String("outbox_id", row.ID),
				zap.Error(err))
			continue
		}

		entryID, err := w.Publisher.Publish(ctx, ev)
		if err != nil {
			w.Log.Warn("publish failed, row stays pending",
				zap.String("event_id", row.EventID),
				zap.Error(err))
			continue
		}

		if err := w.Outbox.MarkSent(ctx, row.ID); err != nil {
			return sent, err
		}

		metrics.EventsTotal.WithLabelValues("published").Inc()
		w.Log.Info("outbox event published",
			zap.String("event_id", row.EventID),
			zap.String("entry_id", entryID))
		sent++
	}
	return sent, nil
}

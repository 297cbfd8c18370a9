package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/paymentops/payment-processor/internal/metrics"
	"github.com/paymentops/payment-processor/internal/model"
	"github.com/paymentops/payment-processor/internal/repository"
	"go.uber.org/zap"
)

// EventSource yields validated payment events from the stream.
type EventSource interface {
	Dequeue(ctx context.Context) (*model.PaymentEvent, error)
}

// Ingest pulls events from the stream and records them in the inbox.
//
// A run is bounded by MaxMessages so the process can be deployed as a
// short-lived job. When the stream is empty the loop either drains and
// exits (IdleWait == 0) or sleeps and polls again (daemon mode).
type Ingest struct {
	Source EventSource
	Inbox  repository.InboxRepository

	MaxMessages int           // per-run insert cap, default 100
	IdleWait    time.Duration // 0 = drain and exit on empty stream
	Log         *zap.Logger
}

func NewIngest(source EventSource, inbox repository.InboxRepository, log *zap.Logger) *Ingest {
	return &Ingest{
		Source:      source,
		Inbox:       inbox,
		MaxMessages: 100,
		Log:         log,
	}
}

// Run blocks until the cap is reached, the stream drains (drain mode), or
// ctx is cancelled. Transport and store faults end the run with an error;
// duplicates do not.
func (w *Ingest) Run(ctx context.Context) error {
	if w.MaxMessages <= 0 {
		w.MaxMessages = 100
	}

	processed := 0
	for processed < w.MaxMessages {
		select {
		case <-ctx.Done():
			w.Log.Info("ingest cancelled", zap.Int("processed", processed))
			return nil
		default:
		}

		ev, err := w.Source.Dequeue(ctx)
		if err != nil {
			return fmt.Errorf("dequeue: %w", err)
		}

		if ev == nil {
			if w.IdleWait <= 0 {
				break
			}
			select {
			case <-ctx.Done():
				w.Log.Info("ingest cancelled", zap.Int("processed", processed))
				return nil
			case <-time.After(w.IdleWait):
			}
			continue
		}

		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", ev.ID, err)
		}

		inserted, err := w.Inbox.TryInsert(ctx, model.InboxEvent{
			EventID:    ev.ID,
			RawPayload: string(payload),
			Status:     model.InboxStatusPending,
		})
		if err != nil {
			return fmt.Errorf("inbox insert %s: %w", ev.ID, err)
		}
		if !inserted {
			metrics.EventsTotal.WithLabelValues("duplicate").Inc()
			w.Log.Warn("skipping duplicate event", zap.String("event_id", ev.ID))
			continue
		}

		metrics.EventsTotal.WithLabelValues("ingested").Inc()
		w.Log.Info("inbox event recorded", zap.String("event_id", ev.ID))
		processed++
	}

	w.Log.Info("ingest run complete", zap.Int("processed", processed))
	return nil
}

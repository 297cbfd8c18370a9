package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/paymentops/payment-processor/internal/model"
	"github.com/paymentops/payment-processor/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func pendingRow(t *testing.T, inbox *fakeInbox, ev *model.PaymentEvent) {
	t.Helper()
	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	inserted, err := inbox.TryInsert(context.Background(), model.InboxEvent{
		EventID:    ev.ID,
		RawPayload: string(payload),
		Status:     model.InboxStatusPending,
	})
	require.NoError(t, err)
	require.True(t, inserted)
}

func TestProcessor_PerRecordIsolation(t *testing.T) {
	inbox := newFakeInbox()
	payments := newFakePayments()

	pendingRow(t, inbox, paidEvent("evt-1"))
	_, err := inbox.TryInsert(context.Background(), model.InboxEvent{
		EventID:    "evt-2",
		RawPayload: "{{{ not json",
		Status:     model.InboxStatusPending,
	})
	require.NoError(t, err)
	pendingRow(t, inbox, paidEvent("evt-3"))

	w := worker.NewProcessor(inbox, payments, zap.NewNop())

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, model.InboxStatusCompleted, inbox.status("evt-1"))
	assert.Equal(t, model.InboxStatusFailed, inbox.status("evt-2"))
	assert.Equal(t, model.InboxStatusCompleted, inbox.status("evt-3"))

	assert.Equal(t, 1, inbox.flushCalls)
	assert.ElementsMatch(t, []string{"evt-1", "evt-3"}, inbox.lastCompleted)
	assert.ElementsMatch(t, []string{"evt-2"}, inbox.lastFailed)

	assert.Contains(t, payments.records, "evt-1")
	assert.NotContains(t, payments.records, "evt-2")
	assert.Contains(t, payments.records, "evt-3")
}

func TestProcessor_UpsertErrorMarksRecordFailed(t *testing.T) {
	inbox := newFakeInbox()
	payments := newFakePayments()
	payments.upsertErr["evt-2"] = errors.New("disk full")

	pendingRow(t, inbox, paidEvent("evt-1"))
	pendingRow(t, inbox, paidEvent("evt-2"))

	w := worker.NewProcessor(inbox, payments, zap.NewNop())

	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.InboxStatusCompleted, inbox.status("evt-1"))
	assert.Equal(t, model.InboxStatusFailed, inbox.status("evt-2"))
}

func TestProcessor_EmptyBatchNoFlush(t *testing.T) {
	inbox := newFakeInbox()
	payments := newFakePayments()

	w := worker.NewProcessor(inbox, payments, zap.NewNop())

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, inbox.flushCalls)
}

func TestProcessor_FlushErrorPropagates(t *testing.T) {
	inbox := newFakeInbox()
	inbox.flushErr = errors.New("tx aborted")
	payments := newFakePayments()

	pendingRow(t, inbox, paidEvent("evt-1"))

	w := worker.NewProcessor(inbox, payments, zap.NewNop())

	_, err := w.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush statuses")
}

func TestProcessor_RunDrainsAllBatches(t *testing.T) {
	inbox := newFakeInbox()
	payments := newFakePayments()

	for _, id := range []string{"evt-1", "evt-2", "evt-3"} {
		pendingRow(t, inbox, paidEvent(id))
	}

	w := worker.NewProcessor(inbox, payments, zap.NewNop())
	w.BatchSize = 2 // forces two passes

	require.NoError(t, w.Run(context.Background()))

	for _, id := range []string{"evt-1", "evt-2", "evt-3"} {
		assert.Equal(t, model.InboxStatusCompleted, inbox.status(id))
	}
	assert.Equal(t, 2, inbox.flushCalls)
}

// Full pipeline: stream entry ingested, then processed into a payment
// record with identical fields.
func TestPipeline_IngestThenProcess(t *testing.T) {
	inbox := newFakeInbox()
	payments := newFakePayments()

	ev, err := model.NewPaymentEvent("evt-1", 1000, "USD", "card", "paid", "2024-04-01T10:00:00Z")
	require.NoError(t, err)

	delivered := false
	src := sourceFunc(func(ctx context.Context) (*model.PaymentEvent, error) {
		if delivered {
			return nil, nil
		}
		delivered = true
		return &ev, nil
	})

	ing := worker.NewIngest(src, inbox, zap.NewNop())
	require.NoError(t, ing.Run(context.Background()))
	require.Equal(t, model.InboxStatusPending, inbox.status("evt-1"))

	proc := worker.NewProcessor(inbox, payments, zap.NewNop())
	require.NoError(t, proc.Run(context.Background()))

	assert.Equal(t, model.InboxStatusCompleted, inbox.status("evt-1"))

	rec, err := payments.GetByEventID(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "evt-1", rec.EventID)
	assert.Equal(t, int64(1000), rec.Amount)
	assert.Equal(t, "USD", rec.Currency)
	assert.Equal(t, "card", rec.Method)
	assert.Equal(t, "paid", rec.Status)
	assert.True(t, rec.EventAt.Equal(time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)))
}

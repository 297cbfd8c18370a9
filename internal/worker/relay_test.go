package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/paymentops/payment-processor/internal/model"
	"github.com/paymentops/payment-processor/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func outboxRow(t *testing.T, outbox *fakeOutbox, rowID string, ev *model.PaymentEvent) {
	t.Helper()
	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, outbox.Insert(context.Background(), model.OutboxEvent{
		ID:      rowID,
		EventID: ev.ID,
		Payload: payload,
		Status:  model.OutboxStatusPending,
	}))
}

func TestRelay_PublishesAndMarksSent(t *testing.T) {
	outbox := newFakeOutbox()
	pub := newFakePublisher()

	outboxRow(t, outbox, "row-1", paidEvent("evt-1"))
	outboxRow(t, outbox, "row-2", paidEvent("evt-2"))

	w := worker.NewRelay(outbox, pub, zap.NewNop())

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Len(t, pub.published, 2)
	assert.Equal(t, model.OutboxStatusSent, outbox.rows["row-1"].Status)
	assert.Equal(t, model.OutboxStatusSent, outbox.rows["row-2"].Status)
}

func TestRelay_PublishFailureLeavesRowPending(t *testing.T) {
	outbox := newFakeOutbox()
	pub := newFakePublisher()
	pub.failFor["evt-1"] = errors.New("stream unavailable")

	outboxRow(t, outbox, "row-1", paidEvent("evt-1"))
	outboxRow(t, outbox, "row-2", paidEvent("evt-2"))

	w := worker.NewRelay(outbox, pub, zap.NewNop())

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, model.OutboxStatusPending, outbox.rows["row-1"].Status)
	assert.Equal(t, model.OutboxStatusSent, outbox.rows["row-2"].Status)
	assert.Len(t, pub.published, 1)
	assert.Equal(t, "evt-2", pub.published[0].ID)
}

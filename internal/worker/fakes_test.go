package worker_test

import (
	"context"
	"fmt"

	"github.com/paymentops/payment-processor/internal/model"
)

// sourceFunc adapts a function to the EventSource interface.
type sourceFunc func(ctx context.Context) (*model.PaymentEvent, error)

func (f sourceFunc) Dequeue(ctx context.Context) (*model.PaymentEvent, error) {
	return f(ctx)
}

// fakeInbox is an in-memory InboxRepository.
type fakeInbox struct {
	rows  map[string]*model.InboxEvent
	order []string

	inserts        int
	flushCalls     int
	insertErr      error
	flushErr       error
	lastCompleted  []string
	lastFailed     []string
	failureReasons map[string]string
}

func newFakeInbox() *fakeInbox {
	return &fakeInbox{
		rows:           make(map[string]*model.InboxEvent),
		failureReasons: make(map[string]string),
	}
}

func (f *fakeInbox) TryInsert(_ context.Context, ev model.InboxEvent) (bool, error) {
	if f.insertErr != nil {
		return false, f.insertErr
	}
	if _, ok := f.rows[ev.EventID]; ok {
		return false, nil
	}
	row := ev
	f.rows[ev.EventID] = &row
	f.order = append(f.order, ev.EventID)
	f.inserts++
	return true, nil
}

func (f *fakeInbox) DequeuePending(_ context.Context, limit int) ([]model.InboxEvent, error) {
	var out []model.InboxEvent
	for _, id := range f.order {
		if len(out) >= limit {
			break
		}
		if row := f.rows[id]; row.Status == model.InboxStatusPending {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeInbox) MarkCompleted(_ context.Context, eventID string) error {
	f.setStatus(eventID, model.InboxStatusCompleted)
	return nil
}

func (f *fakeInbox) MarkFailed(_ context.Context, eventID string, reason string) error {
	f.setStatus(eventID, model.InboxStatusFailed)
	f.failureReasons[eventID] = reason
	return nil
}

func (f *fakeInbox) FlushStatuses(_ context.Context, completed, failed []string) error {
	f.flushCalls++
	if f.flushErr != nil {
		return f.flushErr
	}
	f.lastCompleted = completed
	f.lastFailed = failed
	for _, id := range completed {
		f.setStatus(id, model.InboxStatusCompleted)
	}
	for _, id := range failed {
		f.setStatus(id, model.InboxStatusFailed)
	}
	return nil
}

func (f *fakeInbox) setStatus(eventID string, status model.InboxStatus) {
	row, ok := f.rows[eventID]
	if !ok || row.Status.Terminal() {
		return
	}
	row.Status = status
}

func (f *fakeInbox) status(eventID string) model.InboxStatus {
	if row, ok := f.rows[eventID]; ok {
		return row.Status
	}
	return ""
}

// fakePayments is an in-memory PaymentsRepository.
type fakePayments struct {
	records   map[string]model.PaymentRecord
	upsertErr map[string]error
}

func newFakePayments() *fakePayments {
	return &fakePayments{
		records:   make(map[string]model.PaymentRecord),
		upsertErr: make(map[string]error),
	}
}

func (f *fakePayments) Upsert(_ context.Context, rec model.PaymentRecord) error {
	if err := f.upsertErr[rec.EventID]; err != nil {
		return err
	}
	if _, ok := f.records[rec.EventID]; ok {
		return nil // idempotent on event_id
	}
	f.records[rec.EventID] = rec
	return nil
}

func (f *fakePayments) GetByEventID(_ context.Context, eventID string) (*model.PaymentRecord, error) {
	rec, ok := f.records[eventID]
	if !ok {
		return nil, fmt.Errorf("payment record %s not found", eventID)
	}
	return &rec, nil
}

// fakeOutbox is an in-memory OutboxRepository.
type fakeOutbox struct {
	rows  map[string]*model.OutboxEvent
	order []string
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{rows: make(map[string]*model.OutboxEvent)}
}

func (f *fakeOutbox) Insert(_ context.Context, ev model.OutboxEvent) error {
	row := ev
	f.rows[ev.ID] = &row
	f.order = append(f.order, ev.ID)
	return nil
}

func (f *fakeOutbox) FetchPending(_ context.Context, limit int) ([]model.OutboxEvent, error) {
	var out []model.OutboxEvent
	for _, id := range f.order {
		if len(out) >= limit {
			break
		}
		if row := f.rows[id]; row.Status == model.OutboxStatusPending {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeOutbox) MarkSent(_ context.Context, id string) error {
	if row, ok := f.rows[id]; ok {
		row.Status = model.OutboxStatusSent
	}
	return nil
}

// fakePublisher records published events and can fail selectively.
type fakePublisher struct {
	published []model.PaymentEvent
	failFor   map[string]error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{failFor: make(map[string]error)}
}

func (f *fakePublisher) Publish(_ context.Context, ev model.PaymentEvent) (string, error) {
	if err := f.failFor[ev.ID]; err != nil {
		return "", err
	}
	f.published = append(f.published, ev)
	return fmt.Sprintf("0-%d", len(f.published)), nil
}

package intake

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/paymentops/payment-processor/internal/model"
	"github.com/paymentops/payment-processor/internal/repository"
	"github.com/paymentops/payment-processor/internal/util"
)

// Service accepts validated payment events from the webhook and stores them
// in the outbox for the relay worker to publish.
type Service struct {
	outbox repository.OutboxRepository
}

func New(outbox repository.OutboxRepository) *Service {
	return &Service{outbox: outbox}
}

// Accept serializes the event and writes an outbox row keyed by the
// provider event id. Returns repository.ErrDuplicateEvent when the same
// event id was accepted before, and the outbox row id otherwise.
func (s *Service) Accept(ctx context.Context, ev model.PaymentEvent) (string, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	row := model.OutboxEvent{
		ID:      util.New(),
		EventID: ev.ID,
		Payload: payload,
		Status:  model.OutboxStatusPending,
	}
	if err := s.outbox.Insert(ctx, row); err != nil {
		return "", err
	}
	return row.ID, nil
}

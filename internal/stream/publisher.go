package stream

import (
	"context"
	"strconv"
	"time"

	"github.com/paymentops/payment-processor/internal/model"
	"github.com/redis/go-redis/v9"
)

// Publisher appends payment events to the stream as flat field maps,
// the same encoding Source reads back.
type Publisher struct {
	rdb   *redis.Client
	queue string
}

func NewPublisher(rdb *redis.Client, queue string) *Publisher {
	return &Publisher{rdb: rdb, queue: queue}
}

// Publish XADDs the event and returns the generated entry id.
func (p *Publisher) Publish(ctx context.Context, ev model.PaymentEvent) (string, error) {
	return p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.queue,
		Values: map[string]interface{}{
			"id":       ev.ID,
			"amount":   strconv.FormatInt(ev.Amount, 10),
			"currency": ev.Currency,
			"method":   ev.Method,
			"status":   ev.Status.String(),
			"eventAt":  ev.EventAt.UTC().Format(time.RFC3339),
		},
	}).Result()
}

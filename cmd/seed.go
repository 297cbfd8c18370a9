package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/paymentops/payment-processor/internal/config"
	"github.com/paymentops/payment-processor/internal/db"
	"github.com/paymentops/payment-processor/internal/model"
	"github.com/paymentops/payment-processor/internal/stream"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the stream with demo payment events",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		rdb, err := db.NewRedisClient(db.RedisOpts{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer func() { _ = rdb.Close() }()

		pub := stream.NewPublisher(rdb, cfg.Stream.Queue)

		log.Println(">> Seeding demo payment events...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		for i, ev := range demoEvents() {
			entryID, err := pub.Publish(ctx, ev)
			if err != nil {
				return fmt.Errorf("publish demo event %d: %w", i, err)
			}
			log.Printf("   %s -> %s", ev.ID, entryID)
		}

		log.Println(">> Seed completed ✅")
		return nil
	},
}

// demoEvents returns 5 deterministic demo payment events.
func demoEvents() []model.PaymentEvent {
	base := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	statuses := []model.PaymentStatus{
		model.PaymentStatusPaid,
		model.PaymentStatusPaid,
		model.PaymentStatusFailed,
		model.PaymentStatusCancelled,
		model.PaymentStatusPaid,
	}
	methods := []string{"card", "card", "paypal", "bank_transfer", "card"}

	events := make([]model.PaymentEvent, 0, len(statuses))
	for i := range statuses {
		events = append(events, model.PaymentEvent{
			ID:       fmt.Sprintf("evt-demo-%d", i+1),
			Amount:   int64(1000 * (i + 1)),
			Currency: "USD",
			Method:   methods[i],
			Status:   statuses[i],
			EventAt:  base.Add(time.Duration(i) * time.Minute),
		})
	}
	return events
}

package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/paymentops/payment-processor/internal/config"
	"github.com/paymentops/payment-processor/internal/db"
	"github.com/paymentops/payment-processor/internal/logger"
	"github.com/paymentops/payment-processor/internal/metrics"
	"github.com/paymentops/payment-processor/internal/repository"
	"github.com/paymentops/payment-processor/internal/stream"
	"github.com/paymentops/payment-processor/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Publish pending outbox events onto the stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level)
		metrics.MustRegister(prometheus.DefaultRegisterer)

		pg, err := db.NewPostgresConnection(cfg.Postgres.DSN, db.PostgresOpts{
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Postgres.ConnMaxIdleTime,
			PingTimeout:     cfg.Postgres.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("postgres connect: %w", err)
		}
		defer pg.Close()

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

		outboxRepo := repository.NewOutboxRepository(pg)
		pub := stream.NewPublisher(rdb, cfg.Stream.Queue)

		w := worker.NewRelay(outboxRepo, pub, logger.Log)
		if cfg.Relay.BatchSize > 0 {
			w.BatchSize = cfg.Relay.BatchSize
		}
		w.IdleWait = cfg.Relay.IdleWait

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Printf(">> relay started queue=%s batchSize=%d idleWait=%s",
			cfg.Stream.Queue, w.BatchSize, w.IdleWait)

		return w.Run(ctx)
	},
}

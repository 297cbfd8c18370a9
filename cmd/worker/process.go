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
	"github.com/paymentops/payment-processor/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Convert pending inbox events into payment records",
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

		inboxRepo := repository.NewInboxRepository(pg)
		paymentsRepo := repository.NewPaymentsRepository(pg)

		w := worker.NewProcessor(inboxRepo, paymentsRepo, logger.Log)
		if cfg.Processor.BatchSize > 0 {
			w.BatchSize = cfg.Processor.BatchSize
		}
		w.IdleWait = cfg.Processor.IdleWait

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Printf(">> processor started batchSize=%d idleWait=%s", w.BatchSize, w.IdleWait)

		return w.Run(ctx)
	},
}

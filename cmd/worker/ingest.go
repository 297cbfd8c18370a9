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
	"github.com/paymentops/payment-processor/internal/util"
	"github.com/paymentops/payment-processor/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Pull payment events from the stream into the inbox",
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

		// each process gets its own consumer identity inside the group
		consumer := cfg.Stream.Consumer
		if consumer == "" {
			consumer = "consumer-" + util.New()
		}

		source := stream.NewSource(rdb, stream.SourceOpts{
			Queue:        cfg.Stream.Queue,
			Group:        cfg.Stream.Group,
			Consumer:     consumer,
			ReadCount:    cfg.Stream.ReadCount,
			BlockTimeout: cfg.Stream.BlockTimeout,
		}, logger.Log)

		inboxRepo := repository.NewInboxRepository(pg)

		w := worker.NewIngest(source, inboxRepo, logger.Log)
		if cfg.Ingest.MaxMessages > 0 {
			w.MaxMessages = cfg.Ingest.MaxMessages
		}
		w.IdleWait = cfg.Ingest.IdleWait

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Printf(">> ingest started queue=%s group=%s consumer=%s cap=%d",
			cfg.Stream.Queue, cfg.Stream.Group, consumer, w.MaxMessages)

		return w.Run(ctx)
	},
}

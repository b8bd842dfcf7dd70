package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/quarterfold/suppliersync/internal/config"
	"github.com/quarterfold/suppliersync/internal/logging"
	"github.com/quarterfold/suppliersync/internal/migrate"
	"github.com/quarterfold/suppliersync/internal/notify"
	"github.com/quarterfold/suppliersync/internal/recon"
	"github.com/quarterfold/suppliersync/internal/state"
	syncpkg "github.com/quarterfold/suppliersync/internal/sync"
	"github.com/quarterfold/suppliersync/internal/worker"
)

func main() {
	cfg := config.Load()
	logger := logging.NewStdLogger("worker-service ")

	logger.Printf("ENV=%q STATE_BACKEND=%q PLATFORM=%q DB_DSN_set=%v",
		cfg.Env, cfg.StateBackend, cfg.Platform, cfg.MySQLDSN != "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	factoryRes, err := state.NewStore(ctx, state.FactoryConfig{
		Backend:  cfg.StateBackend,
		MySQLDSN: cfg.MySQLDSN,
	})
	if err != nil {
		logger.Printf("state store init failed: %v", err)
		os.Exit(1)
	}
	store := factoryRes.Store

	if cfg.RunMigrations && factoryRes.DB != nil {
		if err := migrate.ApplyDir(ctx, factoryRes.DB, cfg.MigrationsDir); err != nil {
			logger.Printf("migrations failed: %v", err)
			os.Exit(1)
		}
		logger.Printf("migrations applied from %s", cfg.MigrationsDir)
	}

	var dispatcher notify.Dispatcher
	if cfg.SQSPusherURL == "" {
		logger.Printf("SQS_PUSHER_URL not set, queue sends are buffered in memory")
		dispatcher = notify.NewMemoryDispatcher()
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.SQSRegion))
		if err != nil {
			logger.Printf("aws config load failed: %v", err)
			os.Exit(1)
		}
		dispatcher = notify.NewSQSDispatcher(awssqs.NewFromConfig(awsCfg), notify.SQSConfig{
			PusherURL:          cfg.SQSPusherURL,
			InventoryPusherURL: cfg.SQSInventoryPusherURL,
			Platform:           cfg.Platform,
			ClientID:           cfg.ClientID,
		}, logging.NewStdLogger("sqs "))
	}

	propagator := syncpkg.NewPropagator(store, dispatcher, cfg.Platform, cfg.GeneratedSKUPrefix, logger)
	processor := recon.NewProcessor(store, propagator, logger)

	r := worker.Runner{
		Store:       store,
		Processor:   processor,
		Logger:      logger,
		PollEvery:   time.Duration(cfg.WorkerPollMs) * time.Millisecond,
		MaxPerClaim: 10,
	}

	go func() {
		logger.Printf("starting (env=%s)", cfg.Env)

		err := r.Run(ctx)
		if err != nil && err != context.Canceled {
			logger.Printf("worker stopped: %v", err)
			os.Exit(1)
		}
	}()

	waitForShutdown(logger, cancel)
}

func waitForShutdown(logger interface{ Printf(string, ...any) }, cancel func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Printf("shutdown signal received")
	cancel()
	logger.Printf("shutdown complete")
}

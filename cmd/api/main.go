package main

import (
	"context"
	"crypto/rsa"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/quarterfold/suppliersync/internal/api/auth"
	"github.com/quarterfold/suppliersync/internal/api/handlers"
	"github.com/quarterfold/suppliersync/internal/api/middleware"
	"github.com/quarterfold/suppliersync/internal/api/supplierctx"
	"github.com/quarterfold/suppliersync/internal/config"
	"github.com/quarterfold/suppliersync/internal/domain"
	"github.com/quarterfold/suppliersync/internal/inventory"
	"github.com/quarterfold/suppliersync/internal/logging"
	"github.com/quarterfold/suppliersync/internal/migrate"
	"github.com/quarterfold/suppliersync/internal/notify"
	"github.com/quarterfold/suppliersync/internal/recon"
	"github.com/quarterfold/suppliersync/internal/state"
	syncpkg "github.com/quarterfold/suppliersync/internal/sync"
)

func main() {
	cfg := config.Load()
	logger := logging.NewStdLogger("api-service ")

	logger.Printf("ENV=%q STATE_BACKEND=%q PLATFORM=%q DB_DSN_set=%v",
		cfg.Env, cfg.StateBackend, cfg.Platform, cfg.MySQLDSN != "")

	ctx := context.Background()

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

	var pubKey *rsa.PublicKey
	if !isDev(cfg.Env) || os.Getenv("JWT_PUBLIC_KEY_PEM") != "" {
		pubKey, err = auth.LoadRSAPublicKeyFromEnv("JWT_PUBLIC_KEY_PEM")
		if err != nil {
			logger.Printf("load public key failed: %v", err)
			os.Exit(1)
		}
	}

	dispatcher := newDispatcher(ctx, cfg, logger)

	propagator := syncpkg.NewPropagator(store, dispatcher, cfg.Platform, cfg.GeneratedSKUPrefix, logger)
	processor := recon.NewProcessor(store, propagator, logger)
	resolver := inventory.NewResolver(store, cfg.Platform, logger)

	if isDev(cfg.Env) && strings.EqualFold(cfg.StateBackend, "memory") {
		seedDevSupplier(ctx, store, logger)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	chain := func(h http.Handler, idempotent bool) http.Handler {
		if idempotent {
			h = middleware.IdempotencyMiddleware{Store: store, Next: h}
		}
		h = middleware.AuthMiddleware{Env: cfg.Env, PublicKey: pubKey, Next: h}
		return middleware.SupplierMiddleware{Env: cfg.Env, Next: h}
	}

	mux.Handle("/v1/products/batch", chain(handlers.BatchSubmitHandler{
		Store:     store,
		Processor: processor,
	}, true))

	batchesHandler := handlers.BatchesHandler{Store: store}
	mux.Handle("/v1/batches", chain(batchesHandler, false))
	mux.Handle("/v1/batches/", chain(batchesHandler, false))

	mux.Handle("/v1/inventory/adjustments", chain(handlers.AdjustmentsHandler{
		Store:    store,
		Resolver: resolver,
	}, true))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Printf("starting (env=%s) on %s", cfg.Env, server.Addr)

		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			logger.Printf("server error: %v", err)
			os.Exit(1)
		}
	}()

	waitForShutdown(logger, server)
}

func newDispatcher(ctx context.Context, cfg config.Config, logger interface{ Printf(string, ...any) }) notify.Dispatcher {
	if cfg.SQSPusherURL == "" {
		logger.Printf("SQS_PUSHER_URL not set, queue sends are buffered in memory")
		return notify.NewMemoryDispatcher()
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.SQSRegion))
	if err != nil {
		logger.Printf("aws config load failed: %v", err)
		os.Exit(1)
	}

	return notify.NewSQSDispatcher(awssqs.NewFromConfig(awsCfg), notify.SQSConfig{
		PusherURL:          cfg.SQSPusherURL,
		InventoryPusherURL: cfg.SQSInventoryPusherURL,
		Platform:           cfg.Platform,
		ClientID:           cfg.ClientID,
	}, logging.NewStdLogger("sqs "))
}

// seedDevSupplier gives the memory backend a usable supplier so local curl
// sessions work without a provisioning step.
func seedDevSupplier(ctx context.Context, store state.Store, logger interface{ Printf(string, ...any) }) {
	t := true
	err := store.PutSupplier(ctx, domain.Supplier{
		ID:   supplierctx.DefaultSupplierID,
		Name: "Dev Supplier",
		Config: domain.SupplierConfig{
			Currency:          "usd",
			UpdatePrices:      true,
			CatalogSyncImages: true,
			ProductsSyncSettings: &domain.SyncSettings{
				ImmutableVariantKey: &t,
				HasPricing:          true,
				HasInventory:        true,
			},
		},
	})
	if err != nil {
		logger.Printf("seed dev supplier failed: %v", err)
		return
	}
	logger.Printf("seeded dev supplier %q", supplierctx.DefaultSupplierID)
}

func isDev(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), "dev")
}

func waitForShutdown(logger interface{ Printf(string, ...any) }, server *http.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Printf("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = server.Shutdown(ctx)
	logger.Printf("shutdown complete")
}

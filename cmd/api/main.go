package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"custody-bridge/config"
	httpHandler "custody-bridge/internal/adapter/http/handler"
	"custody-bridge/internal/adapter/messaging/kafka"
	"custody-bridge/internal/adapter/storage/memory"
	pgStorage "custody-bridge/internal/adapter/storage/postgres"
	redisStorage "custody-bridge/internal/adapter/storage/redis"
	"custody-bridge/internal/core/ports"
	"custody-bridge/internal/metrics"
	"custody-bridge/internal/service"
	"custody-bridge/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// storage groups the driver-specific pieces the services are built from.
type storage struct {
	registry   ports.RegistryRepository
	custody    ports.CustodyRepository
	events     ports.EventRepository
	ledger     ports.ItemLedger
	transactor ports.DBTransactor
	health     ports.HealthChecker
	close      func()
}

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	if !common.IsHexAddress(cfg.Bridge.ProcessorAddress) || !common.IsHexAddress(cfg.Bridge.VaultAddress) {
		log.Fatal().
			Str("processor", cfg.Bridge.ProcessorAddress).
			Str("vault", cfg.Bridge.VaultAddress).
			Msg("Bridge addresses must be 0x-prefixed hex addresses")
	}
	processor := common.HexToAddress(cfg.Bridge.ProcessorAddress)
	vault := common.HexToAddress(cfg.Bridge.VaultAddress)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Bridge.Storage).
		Str("processor", processor.Hex()).
		Msg("Starting Custody Bridge")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, err := openStorage(ctx, cfg, vault, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer store.close()

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	nonceStore := redisStorage.NewNonceStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)
	sigSvc := service.NewHMACSignatureService()

	// Event sinks
	var sinks []ports.EventSink
	if cfg.Events.HasSink(config.SinkRedis) {
		sinks = append(sinks, redisStorage.NewEventStream(rdb, cfg.Events.RedisStream))
	}
	if cfg.Events.HasSink(config.SinkKafka) {
		pub, err := kafka.NewPublisher(cfg.Kafka, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Kafka publisher")
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}
	if cfg.Events.HasSink(config.SinkWebhook) {
		sinks = append(sinks, service.NewWebhookSink(
			cfg.Events.WebhookURL,
			cfg.Events.WebhookSecret,
			sigSvc,
			&http.Client{Timeout: 10 * time.Second},
			log,
		))
	}
	for _, s := range sinks {
		log.Info().Str("sink", s.Name()).Msg("Event sink enabled")
	}

	// Initialize business services
	eventSvc := service.NewEventService(store.events, sinks, m, log)
	registrySvc := service.NewRegistryService(store.registry, store.events, eventSvc, store.transactor, processor, m, log)
	vaultSvc := service.NewVaultService(store.custody, store.ledger, registrySvc, store.events, eventSvc, store.transactor, processor, vault, m, log)

	callers, err := service.NewCallerDirectory(cfg.Callers)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load caller credentials")
	}

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		RegistrySvc:    registrySvc,
		VaultSvc:       vaultSvc,
		EventSvc:       eventSvc,
		Callers:        callers,
		Processor:      processor,
		SigSvc:         sigSvc,
		NonceStore:     nonceStore,
		RateLimitStore: rateLimitStore,
		RateLimits:     cfg.RateLimit,
		HealthCheckers: []ports.HealthChecker{store.health, redisStorage.NewHealthCheck(rdb)},
		Metrics:        m,
		Gatherer:       reg,
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		if err := eventSvc.Wait(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Event deliveries still in flight at shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server exited with error")
		return
	}
	log.Info().Msg("Server exited")
}

func openStorage(ctx context.Context, cfg *config.Config, vault common.Address, log zerolog.Logger) (*storage, error) {
	if cfg.Bridge.Storage == config.StorageMemory {
		log.Warn().Msg("Using in-memory storage, state is lost on restart")
		s := memory.NewStore()
		return &storage{
			registry:   memory.NewRegistryRepo(s),
			custody:    memory.NewCustodyRepo(s),
			events:     memory.NewEventRepo(s),
			ledger:     memory.NewLedger(s).PresumeCustodian(vault),
			transactor: s,
			health:     s,
			close:      func() {},
		}, nil
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := pgStorage.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info().Msg("PostgreSQL connected, schema applied")

	ledger := pgStorage.NewItemLedger(pool)
	if cfg.Bridge.PresumeCustodian {
		ledger.PresumeCustodian(vault)
		log.Info().Str("vault", vault.Hex()).Msg("Items without a recorded owner are presumed held by the vault")
	}

	return &storage{
		registry:   pgStorage.NewRegistryRepo(pool),
		custody:    pgStorage.NewCustodyRepo(pool),
		events:     pgStorage.NewEventRepo(pool),
		ledger:     ledger,
		transactor: pgStorage.NewTransactor(pool),
		health:     pgStorage.NewHealthCheck(pool),
		close:      pool.Close,
	}, nil
}

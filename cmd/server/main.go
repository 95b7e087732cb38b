package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kevin07696/billing-service/internal/adapters/lock"
	"github.com/kevin07696/billing-service/internal/adapters/postgres"
	"github.com/kevin07696/billing-service/internal/adapters/queue"
	"github.com/kevin07696/billing-service/internal/adapters/stripe"
	"github.com/kevin07696/billing-service/internal/config"
	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/kevin07696/billing-service/internal/domain/ports"
	cronHandler "github.com/kevin07696/billing-service/internal/handlers/cron"
	subscriptionHandler "github.com/kevin07696/billing-service/internal/handlers/subscription"
	"github.com/kevin07696/billing-service/internal/mediator"
	"github.com/kevin07696/billing-service/internal/scheduler"
	"github.com/kevin07696/billing-service/internal/services/billing"
	"github.com/kevin07696/billing-service/internal/services/directory"
	subscriptionService "github.com/kevin07696/billing-service/internal/services/subscription"
	"github.com/kevin07696/billing-service/pkg/logging"
	"github.com/kevin07696/billing-service/pkg/middleware"
	"github.com/kevin07696/billing-service/pkg/observability"
	"github.com/kevin07696/billing-service/pkg/shutdown"
)

const chargeWorkerName = "charge-worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logger.Level, cfg.Logger.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting billing service",
		ports.Int("port", cfg.Server.Port),
		ports.String("queue_backend", cfg.Queue.Backend),
		ports.Bool("scheduler_enabled", cfg.Billing.SchedulerEnabled),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("Billing service stopped with errors", ports.Err(err))
		os.Exit(1)
	}
}

// run wires every component and blocks until shutdown. Components are
// registered with the shutdown manager in dependency order so they stop
// in reverse.
func run(cfg *config.Config, logger *logging.ZapLogger) error {
	ctx, cancel := context.WithCancel(context.Background())
	sm := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)
	sm.RegisterNoErr("background-tasks", cancel)

	health := observability.NewHealthChecker()

	dbPool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		cancel()
		return fmt.Errorf("initialize database: %w", err)
	}
	sm.RegisterNoErr("database", dbPool.Close)
	health.Register("database", dbPool.Ping)
	postgres.StartPoolMonitoring(ctx, dbPool, 30*time.Second, logger)

	locker, err := initLocker(ctx, cfg, logger, health, sm)
	if err != nil {
		_ = sm.Shutdown()
		return fmt.Errorf("initialize locker: %w", err)
	}

	wmLogger := logging.NewWatermillLogger(logger)
	publisher, subscriber, err := initTransport(cfg, wmLogger, sm)
	if err != nil {
		_ = sm.Shutdown()
		return fmt.Errorf("initialize queue transport: %w", err)
	}

	deps, err := initDependencies(dbPool, locker, publisher, cfg, logger)
	if err != nil {
		_ = sm.Shutdown()
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	if cfg.Stripe.SecretKey != "" {
		router, err := initChargeWorker(deps, publisher, subscriber, cfg, wmLogger, logger)
		if err != nil {
			_ = sm.Shutdown()
			return fmt.Errorf("initialize charge worker: %w", err)
		}
		go func() {
			if err := router.Run(ctx); err != nil {
				logger.Error("Message router stopped", ports.Err(err))
				cancel()
			}
		}()
		sm.RegisterCloser("message-router", router)
	} else {
		logger.Warn("Stripe secret key not set; charge worker disabled, charges stay queued")
	}

	rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger)
	sm.RegisterNoErr("rate-limiter", rateLimiter.Shutdown)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           newHTTPHandler(deps, rateLimiter),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", ports.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", ports.Err(err))
			cancel()
		}
	}()
	sm.Register("http-server", httpServer.Shutdown)

	metricsServer := observability.NewMetricsServer(":"+strconv.Itoa(cfg.Server.MetricsPort), health, logger)
	if err := metricsServer.Start(); err != nil {
		_ = sm.Shutdown()
		return fmt.Errorf("start metrics server: %w", err)
	}
	sm.Register("metrics-server", metricsServer.Shutdown)

	if cfg.Billing.SchedulerEnabled {
		sched := scheduler.New(logger, cfg.Billing.RunTimeout)
		if err := sched.Register(cfg.Billing.Schedule, deps.chargeJob); err != nil {
			_ = sm.Shutdown()
			return fmt.Errorf("schedule charge job: %w", err)
		}
		sched.Start()
		sm.Register("scheduler", sched.Stop)

		for _, entry := range sched.Entries() {
			logger.Info("Scheduled job",
				ports.String("job", entry.Name),
				ports.String("spec", entry.Spec),
				ports.Time("next_run", entry.Next),
			)
		}
	}

	return sm.WaitForShutdown(ctx)
}

// dependencies holds the wired application services
type dependencies struct {
	subscriptionHandler *subscriptionHandler.Handler
	billingCronHandler  *cronHandler.BillingHandler
	chargeJob           *billing.ChargeSubscriptionJob
	chargeRepo          ports.ChargeRepository
	bus                 *mediator.Bus
}

func initDatabase(ctx context.Context, cfg *config.Config, logger ports.Logger) (*pgxpool.Pool, error) {
	dbCfg := postgres.DefaultConfig(cfg.Database.ConnectionString())
	dbCfg.MaxConns = cfg.Database.MaxConns
	dbCfg.MinConns = cfg.Database.MinConns

	pool, err := postgres.NewPool(ctx, dbCfg, logger)
	if err != nil {
		return nil, err
	}

	if err := postgres.Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// initLocker returns a redis locker shared across replicas, or an in-process
// locker when no redis URL is configured
func initLocker(
	ctx context.Context,
	cfg *config.Config,
	logger ports.Logger,
	health *observability.HealthChecker,
	sm *shutdown.Manager,
) (ports.Locker, error) {
	if cfg.Redis.URL == "" {
		logger.Warn("REDIS_URL not set; using in-process locks, run a single replica")
		return lock.NewMemoryLocker(), nil
	}

	rdb, err := lock.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		return nil, err
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	sm.RegisterCloser("redis", rdb)
	health.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})

	logger.Info("Redis locker initialized")
	return lock.NewRedisLocker(rdb, logger), nil
}

// initTransport opens the publisher and subscriber for the configured queue backend
func initTransport(
	cfg *config.Config,
	wmLogger watermill.LoggerAdapter,
	sm *shutdown.Manager,
) (message.Publisher, message.Subscriber, error) {
	switch cfg.Queue.Backend {
	case queue.BackendKafka:
		kafkaCfg := queue.KafkaConfig{
			Brokers:       cfg.Queue.Brokers,
			ConsumerGroup: cfg.Queue.ConsumerGroup,
		}
		publisher, err := queue.NewKafkaPublisher(kafkaCfg, wmLogger)
		if err != nil {
			return nil, nil, err
		}
		sm.RegisterCloser("kafka-publisher", publisher)

		subscriber, err := queue.NewKafkaSubscriber(kafkaCfg, wmLogger)
		if err != nil {
			return nil, nil, err
		}
		sm.RegisterCloser("kafka-subscriber", subscriber)
		return publisher, subscriber, nil
	default:
		pubSub := queue.NewMemoryPubSub(wmLogger)
		sm.RegisterCloser("memory-pubsub", pubSub)
		return pubSub, pubSub, nil
	}
}

func initDependencies(
	dbPool *pgxpool.Pool,
	locker ports.Locker,
	publisher message.Publisher,
	cfg *config.Config,
	logger ports.Logger,
) (*dependencies, error) {
	subRepo := postgres.NewSubscriptionRepository(dbPool)
	planRepo := postgres.NewSubscriptionPlanRepository(dbPool)
	directoryRepo := postgres.NewDirectoryRepository(dbPool)
	chargeRepo := postgres.NewChargeRepository(dbPool)

	bus := mediator.NewBus()
	updateHandler := subscriptionService.NewUpdateHandler(subRepo, planRepo, logger,
		subscriptionService.WithLocker(locker, cfg.Billing.LockTTL),
	)
	if err := updateHandler.Register(bus); err != nil {
		return nil, err
	}
	if err := directory.NewHandlers(directoryRepo, logger).Register(bus); err != nil {
		return nil, err
	}

	subSvc := subscriptionService.NewService(subRepo, planRepo, bus, logger)

	queues := queue.NewFactory(queue.SharedPublisher(publisher), logger)
	chargeJob := billing.NewChargeSubscriptionJob(subRepo, planRepo, queues, logger,
		billing.WithLease(locker),
		billing.WithJobConfig(billing.JobConfig{
			PageSize:  cfg.Billing.PageSize,
			Attempts:  cfg.Queue.Attempts,
			QueueName: cfg.Queue.Topic,
			LeaseTTL:  cfg.Billing.LeaseTTL,
		}),
	)

	if cfg.Server.CronSecret == "" {
		logger.Warn("CRON_SECRET not set; the charge trigger endpoint rejects every request")
	}

	return &dependencies{
		subscriptionHandler: subscriptionHandler.NewHandler(subSvc, logger),
		billingCronHandler:  cronHandler.NewBillingHandler(chargeJob, logger, cfg.Server.CronSecret, cfg.Billing.RunTimeout),
		chargeJob:           chargeJob,
		chargeRepo:          chargeRepo,
		bus:                 bus,
	}, nil
}

// initChargeWorker subscribes the charge worker to the charge topic
func initChargeWorker(
	deps *dependencies,
	publisher message.Publisher,
	subscriber message.Subscriber,
	cfg *config.Config,
	wmLogger watermill.LoggerAdapter,
	logger ports.Logger,
) (*queue.Router, error) {
	routerCfg := queue.DefaultRouterConfig()
	routerCfg.Attempts = cfg.Queue.Attempts
	routerCfg.PoisonTopic = cfg.Queue.PoisonTopic

	router, err := queue.NewRouter(routerCfg, publisher, wmLogger, logger)
	if err != nil {
		return nil, err
	}

	gateway := stripe.NewGateway(cfg.Stripe.SecretKey, logger)
	worker := billing.NewChargeWorker(deps.chargeRepo, gateway, deps.bus, logger)
	router.AddHandler(chargeWorkerName, cfg.Queue.Topic, subscriber,
		queue.JSONHandler(domain.ChargeActiveSubscriptionMessage, worker.Process, logger),
	)

	logger.Info("Charge worker registered",
		ports.String("topic", cfg.Queue.Topic),
		ports.Int("attempts", routerCfg.Attempts),
	)
	return router, nil
}

// newHTTPHandler mounts the subscription API and the rate limited cron endpoints
func newHTTPHandler(deps *dependencies, rateLimiter *middleware.RateLimiter) http.Handler {
	cronMux := http.NewServeMux()
	deps.billingCronHandler.Routes(cronMux)

	apiMux := http.NewServeMux()
	deps.subscriptionHandler.Routes(apiMux)

	mux := http.NewServeMux()
	mux.Handle("/cron/", observability.HTTPMiddleware("cron", rateLimiter.Middleware(cronMux)))
	mux.Handle("/", observability.HTTPMiddleware("api", apiMux))
	return mux
}

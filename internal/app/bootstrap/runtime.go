package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Collinsarusei/giftme-sub000/internal/adapters/cache"
	eventadapter "github.com/Collinsarusei/giftme-sub000/internal/adapters/events"
	"github.com/Collinsarusei/giftme-sub000/internal/adapters/gateway"
	grpcadapter "github.com/Collinsarusei/giftme-sub000/internal/adapters/grpc"
	httpadapter "github.com/Collinsarusei/giftme-sub000/internal/adapters/http"
	"github.com/Collinsarusei/giftme-sub000/internal/adapters/memory"
	"github.com/Collinsarusei/giftme-sub000/internal/adapters/postgres"
	"github.com/Collinsarusei/giftme-sub000/internal/adapters/scheduler"
	"github.com/Collinsarusei/giftme-sub000/internal/adapters/security"
	"github.com/Collinsarusei/giftme-sub000/internal/application"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"gorm.io/gorm"
)

// Ledger is the storage and service layer without any network listeners.
// The CLI uses it directly; Runtime wraps it with servers and workers.
type Ledger struct {
	Config  Config
	Logger  *slog.Logger
	DB      *gorm.DB
	Repos   postgres.Repositories
	Service *application.Service

	sqlDB   *sql.DB
	redis   *redis.Client
	closers []io.Closer
}

func (l *Ledger) Ping(ctx context.Context) error {
	if err := l.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if l.redis != nil {
		if err := l.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (l *Ledger) Close() {
	for _, closer := range l.closers {
		_ = closer.Close()
	}
	if l.redis != nil {
		_ = l.redis.Close()
	}
	_ = l.sqlDB.Close()
}

func NewLogger(cfg Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", cfg.ServiceID)
}

// OpenLedger connects storage and builds the application service. migrate
// controls whether the schema is brought up to date first.
func OpenLedger(ctx context.Context, cfg Config, logger *slog.Logger, migrate bool) (*Ledger, error) {
	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}
	ledger := &Ledger{Config: cfg, Logger: logger, DB: db, sqlDB: sqlDB}

	var pending ports.PendingPaymentStore
	if cfg.RedisURL != "" {
		client, redisErr := cache.Connect(ctx, cfg.RedisURL)
		if redisErr != nil {
			ledger.Close()
			return nil, redisErr
		}
		ledger.redis = client
		pending = cache.NewRedisPendingPaymentStore(client)
	} else {
		if gateway.IsProduction(cfg.Environment) {
			ledger.Close()
			return nil, errors.New("missing REDIS_URL: pending push payments need a durable store")
		}
		logger.WarnContext(ctx, "redis not configured, pending push payments are kept in memory",
			"module", "bootstrap",
			"layer", "app",
			"operation", "open_ledger",
			"outcome", "degraded",
		)
		pending = memory.NewPendingPaymentStore()
	}

	gateways, err := buildGateways(cfg, logger)
	if err != nil {
		ledger.Close()
		return nil, err
	}

	alerts := []ports.AlertPublisher{eventadapter.NewLoggingAlerter(logger)}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaAlerter, alertErr := eventadapter.NewKafkaAlerter(cfg.KafkaBrokers, cfg.KafkaTopicAlerts)
		if alertErr != nil {
			logger.WarnContext(ctx, "kafka alerter disabled, alerts are logged only", "error", alertErr)
		} else {
			alerts = append(alerts, kafkaAlerter)
			ledger.closers = append(ledger.closers, kafkaAlerter)
		}
	}

	ledger.Repos = postgres.NewRepositories(db)
	ledger.Service = application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:       cfg.ServiceID,
			PlatformFeeBps:    cfg.PlatformFeeBps,
			DefaultCurrency:   cfg.DefaultCurrency,
			DefaultGateway:    cfg.DefaultGateway,
			TransferFees:      cfg.TransferFees(),
			GatewayTimeout:    cfg.GatewayTimeout,
			PendingPaymentTTL: cfg.PendingPaymentTTL,
			IdempotencyTTL:    cfg.IdempotencyTTL,
			ReserveAttempts:   cfg.ReserveAttempts,
			SweepBatchSize:    cfg.SweepBatchSize,
		},
		Logger:         logger,
		Events:         ledger.Repos.Events,
		Gifts:          ledger.Repos.Gifts,
		Fees:           ledger.Repos.Fees,
		DeveloperGifts: ledger.Repos.DeveloperGifts,
		Payouts:        ledger.Repos.Payouts,
		Outbox:         ledger.Repos.Outbox,
		Pending:        pending,
		Idempotency:    ledger.Repos.Idempotency,
		Gateways:       gateways,
		Alerts:         eventadapter.NewFanoutAlerter(alerts...),
	})
	return ledger, nil
}

func buildGateways(cfg Config, logger *slog.Logger) ([]ports.PayoutGateway, error) {
	out := make([]ports.PayoutGateway, 0, len(cfg.Gateways))
	for _, gw := range cfg.Gateways {
		provider, err := gateway.NewHTTPGateway(gateway.HTTPGatewayConfig{
			Name:       gw.Name,
			BaseURL:    gw.BaseURL,
			SecretKey:  gw.SecretKey,
			HTTPClient: &http.Client{Timeout: cfg.GatewayTimeout},
		})
		if err != nil {
			return nil, err
		}
		if !cfg.SandboxFallback {
			out = append(out, provider)
			continue
		}
		sandboxed, err := gateway.NewSandboxFallback(provider, cfg.Environment, logger)
		if err != nil {
			return nil, err
		}
		out = append(out, sandboxed)
	}
	return out, nil
}

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	ledger     *Ledger
	httpServer *http.Server
	grpcServer *grpc.Server
	health     *grpcadapter.HealthReporter
	outbox     *eventadapter.OutboxWorker
	sweeps     *scheduler.Manager
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	ledger, err := OpenLedger(ctx, cfg, logger, true)
	if err != nil {
		return nil, err
	}

	auth, webhooks, err := buildSecurity(ctx, cfg, logger)
	if err != nil {
		ledger.Close()
		return nil, err
	}
	handler := httpadapter.NewHandler(ledger.Service, logger, webhooks)
	router := httpadapter.NewRouter(handler, auth, func(r *http.Request) error { return ledger.Ping(r.Context()) })
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	health := grpcadapter.RegisterHealth(grpcServer, ledger.Ping, logger, 15*time.Second)

	publisher := ports.EventPublisher(eventadapter.NewLoggingPublisher(logger))
	var closers []io.Closer
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.TopicByEvent())
		if pubErr != nil {
			logger.WarnContext(ctx, "kafka publisher disabled, using logging publisher", "error", pubErr)
		} else {
			publisher = kafkaPublisher
			closers = append(closers, kafkaPublisher)
		}
	}
	outbox := eventadapter.NewOutboxWorker(logger, ledger.Repos.Outbox, publisher, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	sweeps, err := scheduler.NewManager(ledger.Service, logger, cfg.SweepInterval)
	if err != nil {
		ledger.Close()
		return nil, err
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		ledger:     ledger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		health:     health,
		outbox:     outbox,
		sweeps:     sweeps,
		cleanupFn: func(context.Context) {
			for _, closer := range closers {
				_ = closer.Close()
			}
			ledger.Close()
		},
	}, nil
}

// buildSecurity wires the request authenticators. Each one left unconfigured
// rejects its requests rather than letting them through.
func buildSecurity(ctx context.Context, cfg Config, logger *slog.Logger) (httpadapter.Auth, httpadapter.Webhooks, error) {
	var auth httpadapter.Auth
	switch {
	case cfg.JWTPublicKeyPEM != "":
		verifier, err := security.NewRS256Verifier(cfg.JWTPublicKeyPEM, cfg.JWTIssuer)
		if err != nil {
			return auth, httpadapter.Webhooks{}, err
		}
		auth.Tokens = verifier
	case cfg.JWTSecret != "":
		verifier, err := security.NewHS256Verifier(cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			return auth, httpadapter.Webhooks{}, err
		}
		auth.Tokens = verifier
	default:
		logger.WarnContext(ctx, "no JWT key configured, organizer requests will be rejected",
			"module", "bootstrap", "layer", "app", "operation", "build_security", "outcome", "degraded")
	}
	if len(cfg.OperatorKeys) > 0 {
		keyring, err := security.NewOperatorKeyring(cfg.OperatorKeys)
		if err != nil {
			return auth, httpadapter.Webhooks{}, err
		}
		auth.Operators = keyring
	}

	var webhooks httpadapter.Webhooks
	if cfg.CardWebhookSecret != "" {
		verifier, err := security.NewSHA512Verifier(cfg.CardWebhookSecret)
		if err != nil {
			return auth, webhooks, err
		}
		webhooks.Card = verifier
	}
	if cfg.PushWebhookSecret != "" {
		verifier, err := security.NewSHA256Verifier(cfg.PushWebhookSecret)
		if err != nil {
			return auth, webhooks, err
		}
		webhooks.Push = verifier
	}
	if cfg.PayoutWebhookSecret != "" {
		verifier, err := security.NewSHA512Verifier(cfg.PayoutWebhookSecret)
		if err != nil {
			return auth, webhooks, err
		}
		webhooks.Payout = verifier
	}
	return auth, webhooks, nil
}

func Build(ctx context.Context, configPath string) (*Runtime, error) {
	return NewRuntime(ctx, configPath)
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		r.cleanupFn(context.Background())
		return err
	}
	errCh := make(chan error, 2)

	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()
	go r.health.Run(ctx)

	r.logger.InfoContext(ctx, "api started",
		"module", "bootstrap",
		"layer", "app",
		"operation", "run_api",
		"outcome", "success",
		"http_port", r.cfg.HTTPPort,
		"grpc_port", r.cfg.GRPCPort,
	)
	select {
	case <-ctx.Done():
	case err := <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure", "error", err)
	}
	r.health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

// RunWorker drains the outbox and runs the expiry sweep until interrupted.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)

	go func() {
		if err := r.outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	if err := r.sweeps.Start(ctx); err != nil {
		r.cleanupFn(context.Background())
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}
	if err := r.sweeps.Shutdown(); err != nil {
		r.logger.ErrorContext(ctx, "scheduler shutdown failed", "error", err)
	}
	r.cleanupFn(context.Background())
	return runErr
}

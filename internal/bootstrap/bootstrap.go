package bootstrap

import (
	"context"
	"fmt"

	"fxpay-service/internal/application"
	"fxpay-service/internal/config"
	"fxpay-service/internal/infrastructure/cache"
	"fxpay-service/internal/infrastructure/execution"
	"fxpay-service/internal/infrastructure/logx"
	"fxpay-service/internal/infrastructure/pg"
	"fxpay-service/internal/infrastructure/provider"
	redisstore "fxpay-service/internal/infrastructure/redis"
	"fxpay-service/internal/infrastructure/worker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Repos struct {
	Quotes   application.QuoteRepo
	Payments application.PaymentRepo
	Audit    application.AuditRepo
	UoW      application.UnitOfWork
	Ping     func(ctx context.Context) error
}

// BuildRepos connects to Postgres, runs migrations and wires the repos
// around a shared transaction boundary.
func BuildRepos(ctx context.Context, cfg config.Config) (Repos, func(), error) {
	log := logx.L()
	if cfg.DatabaseURL == "" {
		return Repos{}, func() {}, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return Repos{}, func() {}, err
	}
	if err := pg.RunMigrations(ctx, db); err != nil {
		db.Close()
		return Repos{}, func() {}, err
	}
	cleanup := func() {
		log.Info("closing pg")
		db.Close()
	}
	return Repos{
		Quotes:   pg.NewQuoteRepo(db),
		Payments: pg.NewPaymentRepo(db),
		Audit:    pg.NewAuditRepo(db),
		UoW:      &pg.UnitOfWork{Pool: db.Pool},
		Ping:     db.Ping,
	}, cleanup, nil
}

// BuildCache selects the rate cache backend. Redis shares quotes across
// replicas; memory is the single-process default.
func BuildCache(cfg config.Config) (application.RateCache, func(), error) {
	switch cfg.CacheBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		c := cache.NewRedis(client, cfg.RateCacheTTL, cfg.SymbolCacheTTL)
		return c, func() { _ = client.Close() }, nil
	case "", "memory":
		return cache.NewMemory(cfg.RateCacheTTL, cfg.SymbolCacheTTL), func() {}, nil
	default:
		return nil, func() {}, fmt.Errorf("unsupported CACHE_BACKEND=%q", cfg.CacheBackend)
	}
}

// BuildRateSource picks the active source: the live API when a key is
// configured, the mock otherwise. The mock also terminates the fallback
// chain in both setups.
func BuildRateSource(cfg config.Config) (active, fallback application.RateSource, symbols application.SymbolSource) {
	mock := provider.NewMock()
	if cfg.FXAPIKey == "" {
		logx.L().Info("fx source: mock (no FX_API_KEY configured)")
		return mock, mock, mock
	}
	live := &provider.FixerAPI{
		BaseURL: cfg.FXAPIBase,
		APIKey:  cfg.FXAPIKey,
		Pivot:   cfg.FXPivot,
	}
	logx.L().Info("fx source: live", zap.String("base", cfg.FXAPIBase), zap.String("pivot", cfg.FXPivot))
	return live, mock, live
}

// BuildIdempotency returns the redis-backed store, or the noop store when
// Redis is not configured for this deployment.
func BuildIdempotency(cfg config.Config) (application.IdempotencyStore, func()) {
	if cfg.RedisAddr == "" {
		return application.NoopIdempotency{}, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return redisstore.New(client, cfg.RedisTTL), func() { _ = client.Close() }
}

// BuildExecution selects the payment execution provider: the HTTP client
// when a base URL is configured, else the in-process fake.
func BuildExecution(cfg config.Config) application.ExecutionProvider {
	if cfg.ExecAPIBase == "" {
		logx.L().Info("execution provider: fake (no EXEC_API_BASE configured)")
		return execution.NewFake()
	}
	return execution.NewClient(cfg.ExecAPIBase, cfg.ExecAPIKey, cfg.RequestTimeout)
}

type Services struct {
	Quotes   *application.QuoteService
	Payments *application.PaymentService
}

func BuildServices(cfg config.Config, repos Repos, rateCache application.RateCache) Services {
	active, fallback, symbols := BuildRateSource(cfg)
	quotes := application.NewQuoteService(
		rateCache, active, fallback, repos.Quotes, repos.Audit, repos.UoW,
		cfg.QuoteTTL, cfg.RequestTimeout,
		application.WithSymbolSource(symbols),
		application.WithQuoteLogger(logx.L()),
	)
	payments := application.NewPaymentService(
		repos.Payments, repos.Quotes, repos.Audit, repos.UoW,
		application.PercentFee(cfg.FeePct),
		application.WithPaymentLogger(logx.L()),
		application.WithSingleUseQuotes(cfg.QuoteReuse == "single"),
	)
	return Services{Quotes: quotes, Payments: payments}
}

func BuildWorker(cfg config.Config, payments *application.PaymentService) application.Worker {
	return &worker.ExecWorker{
		Payments:   payments,
		Provider:   BuildExecution(cfg),
		PollEvery:  cfg.WorkerPoll,
		BatchLimit: cfg.WorkerBatchSize,
		Log:        logx.L(),
	}
}

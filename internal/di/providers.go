package di

import (
	"context"
	"fmt"
	"time"

	"TradePilot/internal/domain/repository"
	"TradePilot/internal/domain/service"
	"TradePilot/internal/handler/api"
	"TradePilot/internal/middleware"
	internalrepo "TradePilot/internal/repository"
	"TradePilot/internal/service/cookie"
	"TradePilot/internal/service/llm"
	"TradePilot/internal/service/ratelimit"
	"TradePilot/internal/service/wallet"
	"TradePilot/internal/service/zapper"
	"TradePilot/internal/usecase"
	"TradePilot/pkg/cache"
	pkgch "TradePilot/pkg/clickhouse"
	"TradePilot/pkg/config"
	xhttp "TradePilot/pkg/http"
	pkgkafka "TradePilot/pkg/kafka"
	"TradePilot/pkg/logger"
	"TradePilot/pkg/metrics"
	"TradePilot/pkg/queue"
	"TradePilot/pkg/server"

	"github.com/cloudwego/eino/components/model"
	"github.com/redis/go-redis/v9"
)

const initTimeout = 15 * time.Second

// CacheBackend is the shared store for response caching and distributed locks.
type CacheBackend interface {
	cache.Service
	repository.Locker
}

// ProvideLogger builds the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideStore opens the configured storage driver and applies migrations.
func ProvideStore(cfg *config.Config, lgr *logger.Logger) (repository.Store, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	var (
		store repository.Store
		err   error
	)
	switch cfg.Storage.Driver {
	case "clickhouse":
		var client *pkgch.Client
		client, err = pkgch.NewClient(ctx,
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		store, err = internalrepo.NewClickHouseStore(ctx, client)
		if err != nil {
			_ = client.Close()
		}
	default:
		store, err = internalrepo.OpenSQLiteStore(ctx, cfg.Storage.SQLitePath)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}

	lgr.Info("store ready", logger.String("driver", cfg.Storage.Driver))
	cleanup := func() {
		if err := store.Close(); err != nil {
			lgr.Warn("close store", logger.Error(err))
		}
	}
	return store, cleanup, nil
}

// ProvideRedisClient connects to Redis when redis.addr is set, nil otherwise.
func ProvideRedisClient(cfg *config.Config, lgr *logger.Logger) (*redis.Client, func(), error) {
	if cfg.Redis.Addr == "" {
		lgr.Warn("redis not configured, using in-process cache, locks and queue")
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

func ProvideCacheBackend(cfg *config.Config, client *redis.Client) CacheBackend {
	if client == nil {
		return cache.NewMemoryCache()
	}
	return cache.NewRedisCache(client, cache.WithPrefix(cfg.Redis.Prefix))
}

func ProvideLocker(b CacheBackend) repository.Locker { return b }

func ProvideCacheService(b CacheBackend) cache.Service { return b }

// ProvideKafkaProducer creates a Kafka producer, nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithLinger(cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideTradeEventPublisher publishes ledger events to Kafka through a redelivery
// relay when a producer exists.
func ProvideTradeEventPublisher(producer *pkgkafka.Producer, cfg *config.Config, m repository.Metrics, lgr *logger.Logger) (repository.TradeEventPublisher, func()) {
	if producer == nil {
		return internalrepo.NopTradeEventPublisher{}, func() {}
	}
	relay := middleware.NewEventRelay(
		internalrepo.NewKafkaTradeEventPublisher(producer, cfg.Kafka.Topics.TradeEvents),
		m,
		lgr.With(logger.String("component", "event_relay")),
		middleware.WithBufferSize(cfg.Kafka.Producer.RelayBuffer),
		middleware.WithSendTimeout(cfg.Kafka.Producer.WriteTimeout),
	)
	relay.Start()
	return relay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		relay.Stop(ctx)
	}
}

// LogShipping marks that error logs are aggregated and shipped, when enabled.
type LogShipping struct{ Enabled bool }

// ProvideLogShipping attaches the log collector to lgr when log.collect is enabled and
// Kafka is available.
func ProvideLogShipping(cfg *config.Config, lgr *logger.Logger, producer *pkgkafka.Producer) (LogShipping, func()) {
	if !cfg.Log.Collect.Enabled || producer == nil || cfg.Kafka.Topics.Logs == "" {
		return LogShipping{}, func() {}
	}
	lgr.AddCollector(&logger.CollectionConfig{
		TimeInterval:   cfg.Log.Collect.Interval,
		CountThreshold: cfg.Log.Collect.Threshold,
		Topic:          cfg.Kafka.Topics.Logs,
		Publisher:      internalrepo.NewKafkaLogPublisher(producer),
	})
	return LogShipping{Enabled: true}, lgr.RemoveCollector
}

func ProvideMarketData(cfg *config.Config, lgr *logger.Logger, c cache.Service, m repository.Metrics) service.MarketDataGateway {
	return cookie.New(cfg.Cookie.BaseURL, cfg.Cookie.APIKey, lgr.With(logger.String("component", "cookie")),
		cookie.WithCache(c, cfg.Cookie.CacheTTL),
		cookie.WithRateLimit(cfg.Cookie.RPS),
		cookie.WithTimeout(cfg.Cookie.Timeout),
		cookie.WithMetrics(m),
	)
}

func ProvidePortfolio(cfg *config.Config, lgr *logger.Logger, m repository.Metrics) service.PortfolioProvider {
	return zapper.New(cfg.Zapper.URL, cfg.Zapper.APIKey, cfg.Zapper.WalletAddress, lgr.With(logger.String("component", "zapper")),
		zapper.WithTimeout(cfg.Zapper.Timeout),
		zapper.WithMetrics(m),
	)
}

func ProvideChatModel(cfg *config.Config) (model.ToolCallingChatModel, error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	return llm.NewChatModel(ctx, llm.ModelConfig{
		BaseURL:   cfg.LLM.BaseURL,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
	})
}

func ProvideGenerator(cm model.ToolCallingChatModel, m repository.Metrics, lgr *logger.Logger) *llm.Generator {
	return llm.NewGenerator(cm, m, lgr.With(logger.String("component", "llm")))
}

func ProvideRecommendationGenerator(g *llm.Generator) service.RecommendationGenerator { return g }

func ProvideAnalyst(g *llm.Generator) service.Analyst { return g }

func ProvideDigestWriter(g *llm.Generator) service.DigestWriter { return g }

func ProvideWalletClient(cfg *config.Config, m repository.Metrics) *wallet.Client {
	return wallet.NewClient(cfg.Wallet.BaseURL, cfg.Wallet.APIKey, cfg.Wallet.NetworkID,
		wallet.WithTimeout(cfg.Wallet.Timeout),
		wallet.WithMetrics(m),
	)
}

func ProvideBalances(c *wallet.Client) service.BalanceProvider { return c }

func ProvideWalletAgent(cfg *config.Config, cm model.ToolCallingChatModel, c *wallet.Client, lgr *logger.Logger) (service.WalletAgent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	return wallet.NewAgent(ctx, cm, c, cfg.Wallet.MaxSteps, lgr.With(logger.String("component", "wallet")))
}

// ProvideLedger builds the ledger. The trade lock outlives the execution ceiling so a
// running trade is never swept.
func ProvideLedger(
	cfg *config.Config,
	store repository.Store,
	events repository.TradeEventPublisher,
	locker repository.Locker,
	m repository.Metrics,
	lgr *logger.Logger,
) *usecase.Ledger {
	var opts []usecase.LedgerOption
	if cfg.Wallet.ExecutionTimeout > 0 {
		opts = append(opts, usecase.WithTradeLockTTL(cfg.Wallet.ExecutionTimeout+5*time.Minute))
	}
	return usecase.NewLedger(store, events, locker, m, lgr.With(logger.String("component", "ledger")), opts...)
}

func ProvideExecutor(cfg *config.Config, ledger *usecase.Ledger, agent service.WalletAgent, lgr *logger.Logger) *usecase.Executor {
	return usecase.NewExecutor(ledger, agent, cfg.Wallet.ExecutionTimeout, lgr.With(logger.String("component", "executor")))
}

func ProvideExecuteTradeJob(ledger *usecase.Ledger, executor *usecase.Executor, lgr *logger.Logger) *usecase.ExecuteTradeJob {
	return usecase.NewExecuteTradeJob(ledger, executor, lgr)
}

func queueConfig(cfg *config.Config) *queue.Config {
	return &queue.Config{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}
}

// ProvideQueue is the serving queue: Redis-backed when Redis is configured so trades
// survive restarts, in-process otherwise.
func ProvideQueue(cfg *config.Config, lgr *logger.Logger, client *redis.Client, job *usecase.ExecuteTradeJob) queue.Queue {
	var q queue.Queue
	if client != nil {
		q = queue.NewRedisQueue(lgr, queueConfig(cfg), client, queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
	} else {
		q = queue.NewLocalQueue(lgr, queueConfig(cfg))
	}
	q.Register(job)
	return q
}

// ProvideLocalQueue is the one-shot CLI queue; the command waits for it to drain.
func ProvideLocalQueue(cfg *config.Config, lgr *logger.Logger, job *usecase.ExecuteTradeJob) *queue.LocalQueue {
	q := queue.NewLocalQueue(lgr, queueConfig(cfg))
	q.Register(job)
	return q
}

func ProvideTradeSubmitter(ledger *usecase.Ledger, q queue.Queue, lgr *logger.Logger) *usecase.TradeSubmitter {
	return usecase.NewTradeSubmitter(ledger, q, lgr)
}

func ProvideTrader(
	cfg *config.Config,
	store repository.Store,
	gen service.RecommendationGenerator,
	balances service.BalanceProvider,
	portfolio service.PortfolioProvider,
	submitter *usecase.TradeSubmitter,
	locker repository.Locker,
	m repository.Metrics,
	lgr *logger.Logger,
) *usecase.Trader {
	return usecase.NewTrader(usecase.TraderConfig{
		AgentLimit:   cfg.Trader.AgentLimit,
		Sizing:       cfg.Trader.Sizing,
		CycleBudget:  cfg.CycleBudgetDecimal(),
		MaxFraction:  cfg.MaxFractionDecimal(),
		CycleTimeout: cfg.Trader.CycleTimeout,
		LockTTL:      cfg.Trader.LockTTL,
	}, store, gen, balances, portfolio, submitter, locker, m, lgr.With(logger.String("workflow", "trader")))
}

func ProvideManager(
	cfg *config.Config,
	store repository.Store,
	portfolio service.PortfolioProvider,
	gen service.RecommendationGenerator,
	submitter *usecase.TradeSubmitter,
	locker repository.Locker,
	m repository.Metrics,
	lgr *logger.Logger,
) *usecase.Manager {
	return usecase.NewManager(store, portfolio, gen, submitter, locker, m, lgr.With(logger.String("workflow", "manager")),
		cfg.Trader.CycleTimeout, cfg.Trader.LockTTL)
}

func ProvideAnalystWorkflow(
	cfg *config.Config,
	gateway service.MarketDataGateway,
	analyst service.Analyst,
	store repository.Store,
	m repository.Metrics,
	lgr *logger.Logger,
) *usecase.AnalystWorkflow {
	return usecase.NewAnalystWorkflow(gateway, analyst, store, m, lgr.With(logger.String("workflow", "analyst")),
		cfg.Analyst.Contracts, cfg.Cookie.PostsWindow)
}

func ProvideSweeper(cfg *config.Config, ledger *usecase.Ledger, store repository.Store, lgr *logger.Logger) *usecase.Sweeper {
	return usecase.NewSweeper(ledger, store, cfg.Sweep.PendingTimeout, lgr.With(logger.String("workflow", "sweep")))
}

func ProvideDigestWorkflow(store repository.Store, writer service.DigestWriter, lgr *logger.Logger) *usecase.DigestWorkflow {
	return usecase.NewDigestWorkflow(store, store, store, writer, lgr.With(logger.String("workflow", "digest")))
}

func ProvideTradeStream(lgr *logger.Logger) *api.TradeStream {
	return api.NewTradeStream(lgr.With(logger.String("component", "stream")))
}

// ProvideKafkaConsumer creates the trade-event consumer, nil when kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, lgr *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(lgr.With(logger.String("component", "kafka")),
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithHook(pkgkafka.TraceHook())
	return consumer, nil
}

func ProvideTradeEventsHandler(cfg *config.Config, stream *api.TradeStream, m repository.Metrics) *usecase.TradeEventsHandler {
	return usecase.NewTradeEventsHandler(cfg.Kafka.Topics.TradeEvents, stream, m)
}

func ProvideHTTPHandler(
	cfg *config.Config,
	lgr *logger.Logger,
	store repository.Store,
	trader *usecase.Trader,
	manager *usecase.Manager,
	analyst *usecase.AnalystWorkflow,
	submitter *usecase.TradeSubmitter,
	sweeper *usecase.Sweeper,
	digest *usecase.DigestWorkflow,
	stream *api.TradeStream,
) xhttp.Handler {
	hl := lgr.With(logger.String("component", "http"))
	return xhttp.Handlers{
		api.NewHealthHandler(hl, map[string]api.Checker{"store": store}),
		api.NewWorkflowHandler(hl, trader, manager, analyst, submitter, sweeper, digest, cfg.Cron.Secret),
		api.NewRecordsHandler(hl, store, store, store, analyst, digest),
		stream,
	}
}

func ProvideHTTPServer(cfg *config.Config, lgr *logger.Logger, handler xhttp.Handler) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		xhttp.WithMetricsPath(metricsPath(cfg)),
	}
	if cfg.Server.RateLimit.RPS > 0 {
		opts = append(opts, xhttp.WithRateLimiter(ratelimit.New(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)))
	}
	return xhttp.NewServer(lgr.With(logger.String("component", "http")), handler, opts...)
}

func metricsPath(cfg *config.Config) string {
	if !cfg.Metrics.Enabled {
		return ""
	}
	if cfg.Metrics.Path == "" {
		return "/metrics"
	}
	return cfg.Metrics.Path
}

// ProvideApp creates the serving application.
func ProvideApp(
	cfg *config.Config,
	lgr *logger.Logger,
	httpServer *xhttp.Server,
	q queue.Queue,
	consumer *pkgkafka.Consumer,
	events *usecase.TradeEventsHandler,
	sweeper *usecase.Sweeper,
	_ LogShipping,
) *server.App {
	return server.New(server.Options{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		SweepInterval:   cfg.Sweep.Interval,
	}, lgr, httpServer, q, consumer, sweeper, events)
}

// Runtime is what one-shot CLI commands need: the workflows plus an in-process queue
// they can wait on.
type Runtime struct {
	Log     *logger.Logger
	Store   repository.Store
	Queue   *queue.LocalQueue
	Trader  *usecase.Trader
	Manager *usecase.Manager
	Analyst *usecase.AnalystWorkflow
	Sweeper *usecase.Sweeper
	Digest  *usecase.DigestWorkflow
}

func ProvideRuntime(
	lgr *logger.Logger,
	store repository.Store,
	q *queue.LocalQueue,
	trader *usecase.Trader,
	manager *usecase.Manager,
	analyst *usecase.AnalystWorkflow,
	sweeper *usecase.Sweeper,
	digest *usecase.DigestWorkflow,
	_ LogShipping,
) *Runtime {
	return &Runtime{
		Log:     lgr,
		Store:   store,
		Queue:   q,
		Trader:  trader,
		Manager: manager,
		Analyst: analyst,
		Sweeper: sweeper,
		Digest:  digest,
	}
}

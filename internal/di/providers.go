package di

import (
	"fmt"

	"gorm.io/gorm"

	"AlertEngine/internal/domain/models"
	"AlertEngine/internal/domain/repository"
	"AlertEngine/internal/evaluator"
	"AlertEngine/internal/handler/api"
	"AlertEngine/internal/pricedata"
	internalrepo "AlertEngine/internal/repository"
	"AlertEngine/internal/service/ratelimit"
	"AlertEngine/internal/usecase"
	"AlertEngine/pkg/cache"
	pkgch "AlertEngine/pkg/clickhouse"
	"AlertEngine/pkg/config"
	"AlertEngine/pkg/database"
	xhttp "AlertEngine/pkg/http"
	pkgkafka "AlertEngine/pkg/kafka"
	applogger "AlertEngine/pkg/logger"
	"AlertEngine/pkg/metrics"
	"AlertEngine/pkg/server"
)

// ProvideLogger builds the root logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideDatabase opens Postgres and migrates the alert tables when enabled.
func ProvideDatabase(cfg *config.Config, l *applogger.Logger) (*gorm.DB, func(), error) {
	db, err := database.Open(cfg, l)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, &models.AlertRule{}, &models.AlertEvent{}); err != nil {
			_ = database.Close(db)
			return nil, nil, err
		}
		l.Info("postgres-migrated")
	}
	cleanup := func() {
		if err := database.Close(db); err != nil {
			l.Warn("postgres-close-failed", applogger.Error(err))
		}
	}
	return db, cleanup, nil
}

func ProvideStore(db *gorm.DB) repository.Store {
	return internalrepo.NewGormStore(db)
}

func ProvideRuleStore(store repository.Store) repository.RuleStore {
	return store.Rules()
}

// ProvideRedisCache connects to Redis when enabled and returns nil otherwise.
func ProvideRedisCache(cfg *config.Config, l *applogger.Logger) (*cache.RedisCache, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisEndpoint(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisDatabase(cfg.Redis.DB, cfg.Redis.Password),
		cache.WithRedisPoolSize(cfg.Redis.PoolSize, cfg.Redis.MinIdle),
		cache.WithRedisNamespace(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	l.Info("redis-connected", applogger.String("host", cfg.Redis.Host), applogger.Int("port", cfg.Redis.Port))
	cleanup := func() {
		if err := rc.Close(); err != nil {
			l.Warn("redis-close-failed", applogger.Error(err))
		}
	}
	return rc, cleanup, nil
}

// ProvideCache layers memory over Redis when Redis is available.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) (cache.Service, func()) {
	local := []cache.MemoryOption{
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
		cache.WithSweepInterval(cfg.Cache.SweepInterval),
	}
	if rc == nil {
		mc := cache.NewMemoryCache(local...)
		return mc, func() { _ = mc.Close() }
	}
	lc := cache.NewLayeredCache(rc,
		cache.WithLocalTTL(cfg.Redis.LocalTTL),
		cache.WithLocalMemory(local...))
	return lc, func() { _ = lc.Close() }
}

// ProvideCycleLock uses the cache lock. Without Redis it only guards this process.
func ProvideCycleLock(c cache.Service) repository.CycleLock {
	return c
}

func ProvideRuleState(c cache.Service, l *applogger.Logger) repository.RuleStateCache {
	return usecase.NewRuleStateStore(c, l)
}

func ProvideRateLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideTokenSource resolves bearer tokens for the price and notification services.
func ProvideTokenSource(cfg *config.Config, l *applogger.Logger) pricedata.TokenSource {
	var sa *pricedata.ServiceAccountTokenProvider
	if cfg.Price.Auth.EnableServiceAccount && cfg.Price.Auth.Issuer != "" {
		sa = pricedata.NewServiceAccountTokenProvider(cfg, l)
	}
	return pricedata.NewTokenPolicy(cfg, sa)
}

func ProvidePriceClient(cfg *config.Config, tokens pricedata.TokenSource, limiter *ratelimit.Limiter, rec *metrics.Recorder, l *applogger.Logger) *pricedata.Client {
	return pricedata.NewClient(cfg, tokens, limiter, rec, l)
}

// ProvideClickHouseClient connects only when ClickHouse is the history source.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if cfg.Price.Source != "clickhouse" {
		return nil, func() {}, nil
	}
	ch := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithEndpoint(ch.Host, ch.Port, ch.UseHTTP),
		pkgch.WithLogin(ch.Database, ch.User, ch.Password),
		pkgch.WithPool(ch.MaxOpenConns, ch.MaxIdleConns),
		pkgch.WithQueryLimits(ch.DialTimeout, ch.ReadTimeout, ch.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	l.Info("clickhouse-connected", applogger.String("database", ch.Database))
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse-close-failed", applogger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideHistoricalSource picks the candle source named by price.source.
func ProvideHistoricalSource(cfg *config.Config, pc *pricedata.Client, ch *pkgch.Client, l *applogger.Logger) repository.HistoricalSource {
	if ch != nil {
		return internalrepo.NewCHCandleSource(ch, cfg.ClickHouse.Database, l)
	}
	return pc
}

// ProvideKafkaProducer creates a producer only for the kafka notification transport.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if cfg.Notification.Transport != "kafka" {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithKeyedPartitioning(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	cleanup := func() {
		if err := producer.Close(); err != nil {
			l.Warn("kafka-producer-close-failed", applogger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideNotificationSink returns nil for transport none, which disables delivery.
func ProvideNotificationSink(cfg *config.Config, tokens pricedata.TokenSource, producer *pkgkafka.Producer, l *applogger.Logger) repository.NotificationSink {
	switch cfg.Notification.Transport {
	case "http":
		return internalrepo.NewHTTPNotificationSink(cfg, tokens, l)
	case "kafka":
		return internalrepo.NewKafkaNotificationSink(producer, cfg.Kafka.AlertTopic, cfg.Notification.TemplateKey)
	default:
		l.Info("notification-delivery-disabled")
		return nil
	}
}

func ProvideRegistry() (*evaluator.Registry, error) {
	return evaluator.NewRegistry(evaluator.DefaultBindings()...)
}

func ProvideCatalog(reg *evaluator.Registry) *evaluator.Catalog {
	return evaluator.NewCatalog(reg)
}

func ProvideDispatcher(reg *evaluator.Registry) *evaluator.Dispatcher {
	return evaluator.NewDispatcher(reg, evaluator.NewParamsValidator())
}

func ProvideGroupFetcher(source repository.HistoricalSource, cfg *config.Config, rec *metrics.Recorder, l *applogger.Logger) *usecase.GroupFetcher {
	return usecase.NewGroupFetcher(source, cfg, rec, l)
}

func ProvideRuleRunner(d *evaluator.Dispatcher, rec *metrics.Recorder, l *applogger.Logger) *usecase.RuleRunner {
	return usecase.NewRuleRunner(d, rec, l)
}

func ProvideEventSink(store repository.Store, notifier repository.NotificationSink, state repository.RuleStateCache, rec *metrics.Recorder, l *applogger.Logger) *usecase.EventSink {
	return usecase.NewEventSink(store, notifier, state, rec, l)
}

func ProvideOrchestrator(
	rules repository.RuleStore,
	fetcher *usecase.GroupFetcher,
	runner *usecase.RuleRunner,
	sink *usecase.EventSink,
	cfg *config.Config,
	rec *metrics.Recorder,
	l *applogger.Logger,
) *usecase.CycleOrchestrator {
	return usecase.NewCycleOrchestrator(rules, fetcher, runner, sink, cfg, rec, l)
}

func ProvideScheduler(orch *usecase.CycleOrchestrator, lock repository.CycleLock, cfg *config.Config, rec *metrics.Recorder, l *applogger.Logger) *usecase.Scheduler {
	return usecase.NewScheduler(orch, lock, cfg, rec, l)
}

func ProvideOpsHandler(l *applogger.Logger, sched *usecase.Scheduler, catalog *evaluator.Catalog, pc *pricedata.Client) *api.OpsHandler {
	return api.NewOpsHandler(l, sched, catalog, pc)
}

func ProvideHTTPServer(cfg *config.Config, h *api.OpsHandler, l *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer(
		xhttp.WithRoutes(h),
		xhttp.WithListenAddr(cfg.Server.Host, cfg.Server.Port),
		xhttp.WithSlowRequestThreshold(cfg.Server.SlowRequest),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins...),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l),
	)
}

// ProvideKafkaConsumer creates a consumer only when a rule-created topic is configured.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if cfg.Kafka.RuleCreatedTopic == "" || len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	c := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(c.GroupID),
		pkgkafka.WithConsumerPool(c.Workers, c.BufferSize),
		pkgkafka.WithConsumerRetry(c.RetryMax, c.BackoffMin, c.BackoffMax),
		pkgkafka.WithConsumerDLQ(c.DLQTopic),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

func ProvideWatchlistHandler(cfg *config.Config, pc *pricedata.Client, l *applogger.Logger) *usecase.WatchlistHandler {
	return usecase.NewWatchlistHandler(cfg.Kafka.RuleCreatedTopic, pc, l)
}

// ProvideApp assembles the application lifecycle.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	sched *usecase.Scheduler,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	wh *usecase.WatchlistHandler,
) *server.App {
	app := server.New(l, sched, srv, consumer, cfg.Server.ShutdownTimeout)
	if consumer != nil {
		app.Consume(wh)
	}
	return app
}

package di

import (
	"context"
	"fmt"
	"time"

	drepo "QuotePulse/internal/domain/repository"
	"QuotePulse/internal/handler/api"
	"QuotePulse/internal/handler/ws"
	internalrepo "QuotePulse/internal/repository"
	"QuotePulse/internal/service/auth"
	"QuotePulse/internal/service/fanout"
	"QuotePulse/internal/service/providers"
	"QuotePulse/internal/usecase"
	"QuotePulse/pkg/cache"
	pkgch "QuotePulse/pkg/clickhouse"
	"QuotePulse/pkg/config"
	xhttp "QuotePulse/pkg/http"
	pkgkafka "QuotePulse/pkg/kafka"
	applogger "QuotePulse/pkg/logger"
	"QuotePulse/pkg/metrics"
	"QuotePulse/pkg/server"
)

// ProvideLogger creates the application logger from configuration.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideRedisCache creates the shared Redis connection and cache.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideBus creates the Redis pub/sub quote bus.
func ProvideBus(rc *cache.RedisCache, log *applogger.Logger) drepo.Bus {
	return internalrepo.NewRedisBus(rc.Client(), log)
}

// ProvideRegistry creates the fleet-wide symbol registry.
func ProvideRegistry(rc *cache.RedisCache, log *applogger.Logger) drepo.SymbolRegistry {
	return internalrepo.NewRedisRegistry(rc.Client(), log)
}

// ProvideQuoteCache creates the short-TTL quote cache. The TTL tracks
// the refresh interval so entries outlive one tick but not two.
func ProvideQuoteCache(rc *cache.RedisCache, cfg *config.Config) drepo.QuoteCache {
	return internalrepo.NewQuoteCache(rc, 2*cfg.Refresh.Interval)
}

// ProvideQuoteProviders assembles the ranked provider chain. Providers
// without an API key are left out; the simulated feed always backstops
// an empty chain.
func ProvideQuoteProviders(cfg *config.Config) []drepo.QuoteProvider {
	var chain []drepo.QuoteProvider
	if cfg.Providers.Finnhub.APIKey != "" {
		chain = append(chain, providers.NewFinnhub(
			cfg.Providers.Finnhub.APIKey,
			cfg.Providers.Finnhub.BaseURL,
			cfg.Providers.Timeout,
		))
	}
	if cfg.Providers.AlphaVantage.APIKey != "" {
		chain = append(chain, providers.NewAlphaVantage(
			cfg.Providers.AlphaVantage.APIKey,
			cfg.Providers.AlphaVantage.BaseURL,
			cfg.Providers.Timeout,
		))
	}
	return chain
}

// ProvideSearcher exposes instrument search when Finnhub is configured.
func ProvideSearcher(cfg *config.Config) drepo.InstrumentSearcher {
	if cfg.Providers.Finnhub.APIKey == "" {
		return nil
	}
	return providers.NewFinnhub(
		cfg.Providers.Finnhub.APIKey,
		cfg.Providers.Finnhub.BaseURL,
		cfg.Providers.Timeout,
	)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when no
// host is configured.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.ClickHouse.Host == "" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideInstrumentStore creates the instrument metadata store, or nil
// when ClickHouse is not configured.
func ProvideInstrumentStore(chClient *pkgch.Client) (drepo.InstrumentStore, error) {
	if chClient == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := internalrepo.NewClickHouseInstruments(ctx, chClient)
	if err != nil {
		return nil, fmt.Errorf("instrument store: %w", err)
	}
	return store, nil
}

// ProvideHistorySink creates the configured archive backend, or nil
// when archiving is disabled.
func ProvideHistorySink(cfg *config.Config, chClient *pkgch.Client) (drepo.HistorySink, error) {
	switch cfg.History.Backend {
	case "kafka":
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.History.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.History.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.History.Kafka.RequiredAcks),
			pkgkafka.WithMaxAttempts(cfg.History.Kafka.MaxAttempts),
			pkgkafka.WithBatch(cfg.History.Kafka.BatchSize, cfg.History.Kafka.Linger),
			pkgkafka.WithTimeouts(cfg.History.Kafka.WriteTimeout, cfg.History.Kafka.ReadTimeout),
			pkgkafka.WithAsync(cfg.History.Kafka.Async),
			pkgkafka.WithHashByKey(true),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		return internalrepo.NewKafkaHistory(producer, cfg.History.Kafka.Topic), nil

	case "clickhouse":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sink, err := internalrepo.NewClickHouseHistory(ctx, chClient)
		if err != nil {
			return nil, fmt.Errorf("clickhouse history: %w", err)
		}
		return sink, nil

	default:
		return nil, nil
	}
}

// ProvideQuoteService creates the quote resolution chain.
func ProvideQuoteService(
	chain []drepo.QuoteProvider,
	searcher drepo.InstrumentSearcher,
	instruments drepo.InstrumentStore,
	m drepo.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.QuoteService {
	return usecase.NewQuoteService(chain, searcher, instruments, m, log,
		usecase.WithProviderBudget(cfg.Providers.Rate.Capacity, cfg.Providers.Rate.RefillPerSec),
	)
}

// ProvideFanout creates the subscription and fan-out manager.
func ProvideFanout(bus drepo.Bus, registry drepo.SymbolRegistry, m drepo.Metrics, log *applogger.Logger) *fanout.Manager {
	return fanout.New(bus, registry, m, log)
}

// ProvideRefresher creates the refresh scheduler.
func ProvideRefresher(
	quotes *usecase.QuoteService,
	fan *fanout.Manager,
	qc drepo.QuoteCache,
	history drepo.HistorySink,
	registry drepo.SymbolRegistry,
	m drepo.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.Refresher {
	return usecase.NewRefresher(quotes, fan, qc, history, registry, m, log,
		usecase.WithInterval(cfg.Refresh.Interval),
		usecase.WithBatchSize(cfg.Refresh.BatchSize),
		usecase.WithGrace(cfg.Refresh.Grace),
	)
}

// ProvideVerifier creates the static token verifier.
func ProvideVerifier(cfg *config.Config) drepo.TokenVerifier {
	return auth.NewStaticVerifier(cfg.Auth.Tokens)
}

// ProvideQuoteHandler creates the REST handler.
func ProvideQuoteHandler(quotes *usecase.QuoteService, qc drepo.QuoteCache, log *applogger.Logger) *api.QuoteHandler {
	return api.NewQuoteHandler(quotes, qc, log)
}

// ProvideWSHandler creates the streaming handler.
func ProvideWSHandler(
	fan *fanout.Manager,
	verifier drepo.TokenVerifier,
	quotes *usecase.QuoteService,
	qc drepo.QuoteCache,
	log *applogger.Logger,
) *ws.Handler {
	return ws.NewHandler(fan, verifier, quotes, qc, log)
}

// ProvideHTTPServer creates the Echo server with every handler's routes
// registered.
func ProvideHTTPServer(cfg *config.Config, log *applogger.Logger, qh *api.QuoteHandler, wh *ws.Handler) *xhttp.Server {
	return xhttp.NewServer([]xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(log),
	}, qh, wh)
}

// ProvideApp assembles the application lifecycle.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	fan *fanout.Manager,
	refresher *usecase.Refresher,
	bus drepo.Bus,
	history drepo.HistorySink,
	chClient *pkgch.Client,
	srv *xhttp.Server,
) *server.App {
	return server.New(cfg, log, fan, refresher, bus, history, chClient, srv)
}

package di

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"StockPulse/internal/domain/repository"
	"StockPulse/internal/fetch"
	"StockPulse/internal/handler/api"
	"StockPulse/internal/source"
	"StockPulse/internal/usecase"
	"StockPulse/pkg/cache"
	"StockPulse/pkg/config"
	xhttp "StockPulse/pkg/http"
	"StockPulse/pkg/http/middleware"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/metrics"
	"StockPulse/pkg/server"
)

// ProvideLogger creates the application logger from config, falling
// back to console info.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Format == "" {
		lc.Format = "console"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	return applogger.New(lc)
}

// ProvideHTTPClient creates the shared upstream HTTP client. The
// per-source timeout is enforced by the orchestrator, so the client
// itself only carries a generous ceiling.
func ProvideHTTPClient() *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(60 * time.Second))
}

// ProvideCache creates the series and breaker-state store: layered
// memory-over-redis when redis is configured, otherwise in-process
// memory only.
func ProvideCache(cfg *config.Config, log *applogger.Logger) (cache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		log.Info("cache: using in-memory store")
		return cache.NewMemoryCache(), nil
	}

	host, portStr, err := net.SplitHostPort(cfg.Cache.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr %q: %w", cfg.Cache.Redis.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port %q: %w", portStr, err)
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	log.Info("cache: redis connected", applogger.String("addr", cfg.Cache.Redis.Addr))
	return cache.NewLayeredCache(rc), nil
}

// ProvideMetrics creates the Prometheus recorder, or a no-op when
// metrics are disabled.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return repository.NopMetrics{}
	}
	return metrics.New()
}

// ProvideRegistry builds the production source catalog with any
// per-source tuning from config applied.
func ProvideRegistry(client *xhttp.Client, cfg *config.Config) (*source.Registry, error) {
	overrides := make(map[string]source.Override, len(cfg.Fetcher.Sources))
	for name, o := range cfg.Fetcher.Sources {
		overrides[name] = source.Override{
			Priority:    o.Priority,
			MinInterval: o.MinInterval,
			MaxRetries:  o.MaxRetries,
			Timeout:     o.Timeout,
			Disabled:    o.Disabled,
		}
	}
	return source.BuildRegistry(client, overrides)
}

// ProvideBreakerSet creates the per-source circuit breakers with
// write-through state persistence.
func ProvideBreakerSet(cfg *config.Config, store cache.Service, log *applogger.Logger) *fetch.BreakerSet {
	return fetch.NewBreakerSet(fetch.BreakerConfig{
		FailureThreshold: cfg.Fetcher.Breaker.FailureThreshold,
		RecoveryTimeout:  cfg.Fetcher.Breaker.RecoveryTimeout,
		HalfOpenMaxCalls: cfg.Fetcher.Breaker.HalfOpenMaxCalls,
		SuccessThreshold: cfg.Fetcher.Breaker.SuccessThreshold,
	}, store, log)
}

// ProvideOrchestrator assembles the fetch pipeline.
func ProvideOrchestrator(
	reg *source.Registry,
	breakers *fetch.BreakerSet,
	log *applogger.Logger,
	m repository.Metrics,
	cfg *config.Config,
) *fetch.Orchestrator {
	opts := []fetch.Option{
		fetch.WithMetrics(m),
		fetch.WithRetryPolicy(fetch.RetryPolicy{
			MaxRetries:     cfg.Fetcher.Retry.MaxRetries,
			BaseDelay:      cfg.Fetcher.Retry.BaseDelay,
			MaxDelay:       cfg.Fetcher.Retry.MaxDelay,
			RateLimitBase:  cfg.Fetcher.Retry.RateLimitBase,
			DisconnectBase: cfg.Fetcher.Retry.DisconnectBase,
		}),
	}
	if cfg.Fetcher.OverallTimeout > 0 {
		opts = append(opts, fetch.WithOverallTimeout(cfg.Fetcher.OverallTimeout))
	}
	return fetch.New(reg, breakers, log, opts...)
}

// ProvideAnalysis creates the analysis use case.
func ProvideAnalysis(
	orch *fetch.Orchestrator,
	store cache.Service,
	log *applogger.Logger,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.Analysis {
	opts := []usecase.AnalysisOption{usecase.WithMetrics(m)}
	if cfg.Racing() {
		opts = append(opts, usecase.WithRacing(cfg.Fetcher.Concurrency))
	}
	return usecase.NewAnalysis(orch, store, log, opts...)
}

// ProvideHandler creates the HTTP handler with bearer auth on the
// fetch-triggering routes.
func ProvideHandler(log *applogger.Logger, analysis *usecase.Analysis, cfg *config.Config) xhttp.Handler {
	return api.NewAnalysisHandler(log, analysis, middleware.BearerAuth(cfg.Auth.Token))
}

// ProvideApp assembles the application and registers closable
// resources.
func ProvideApp(cfg *config.Config, log *applogger.Logger, handler xhttp.Handler, store cache.Service) *server.App {
	app := server.New(cfg, log, handler)
	if closer, ok := store.(io.Closer); ok {
		app.AddCloser(closer)
	}
	return app
}

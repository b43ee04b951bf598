package di

import (
	"fmt"

	"MoexPull/internal/domain/repository"
	"MoexPull/internal/handler/api"
	"MoexPull/internal/service/histcache"
	"MoexPull/internal/service/moex"
	"MoexPull/internal/service/securities"
	"MoexPull/internal/usecase"
	pkgcache "MoexPull/pkg/cache"
	"MoexPull/pkg/config"
	xhttp "MoexPull/pkg/http"
	applogger "MoexPull/pkg/logger"
	"MoexPull/pkg/metrics"
	"MoexPull/pkg/server"
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates the Prometheus recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideFeed creates the MOEX ISS candle feed client.
func ProvideFeed(cfg *config.Config, logger *applogger.Logger) repository.Feed {
	return moex.New(moex.Config{
		BaseURL:          cfg.Moex.BaseURL,
		Engine:           cfg.Moex.Engine,
		Market:           cfg.Moex.Market,
		Board:            cfg.Moex.Board,
		UserAgent:        cfg.Moex.UserAgent,
		Timeout:          cfg.Moex.RequestTimeout,
		RateCapacity:     cfg.Moex.Rate.Capacity,
		RateRefillPerSec: cfg.Moex.Rate.RefillPerSec,
	}, logger)
}

// ProvideHistoryStore creates the on-disk candle cache.
func ProvideHistoryStore(cfg *config.Config, m repository.Metrics, logger *applogger.Logger) repository.HistoryStore {
	return histcache.New(cfg.History.Dir, m, logger)
}

// ProvideHistoryLoader creates the paginated feed loader.
func ProvideHistoryLoader(cfg *config.Config, feed repository.Feed, m repository.Metrics, logger *applogger.Logger) *usecase.HistoryLoader {
	return usecase.NewHistoryLoader(feed, m, logger, cfg.Moex.PageSize, cfg.Moex.MaxPages)
}

// ProvideHistoryUseCase assembles the read pipeline.
func ProvideHistoryUseCase(cfg *config.Config, loader *usecase.HistoryLoader, store repository.HistoryStore, m repository.Metrics, logger *applogger.Logger) *usecase.HistoryUseCase {
	return usecase.NewHistoryUseCase(loader, store, m, logger, cfg.History.DefaultPeriodYears)
}

// ProvideSearchCache picks the cache backend for securities lookups: Redis
// (behind an in-process L1) when configured, plain memory otherwise.
func ProvideSearchCache(cfg *config.Config, logger *applogger.Logger) pkgcache.Service {
	if !cfg.Securities.Redis.Enabled {
		return pkgcache.NewMemoryCache()
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Securities.Redis.Host),
		pkgcache.WithRedisPort(cfg.Securities.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Securities.Redis.Password),
		pkgcache.WithRedisDB(cfg.Securities.Redis.DB),
	)
	if err != nil {
		logger.Warn("redis unavailable, falling back to memory cache", applogger.Error(err))
		return pkgcache.NewMemoryCache()
	}
	return pkgcache.NewLayeredCache(rc)
}

// ProvideSecuritiesDirectory creates the instrument directory.
func ProvideSecuritiesDirectory(cfg *config.Config, c pkgcache.Service, logger *applogger.Logger) *securities.Directory {
	return securities.NewDirectory(cfg.Securities.File, c, cfg.Securities.CacheTTL, logger)
}

// ProvideHandler creates the HTTP handler surface.
func ProvideHandler(logger *applogger.Logger, uc *usecase.HistoryUseCase, dir *securities.Directory) xhttp.Handler {
	return api.NewHistoryHandler(logger, uc, dir)
}

// ProvideApp assembles the application.
func ProvideApp(cfg *config.Config, logger *applogger.Logger, handler xhttp.Handler, dir *securities.Directory) *server.App {
	return server.New(cfg, logger, handler, dir)
}

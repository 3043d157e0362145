package main

import (
	"MacroLens/internal/cache"
	"MacroLens/internal/collector"
	"MacroLens/internal/config"
	"MacroLens/internal/httpx"
	"MacroLens/internal/model"
	"MacroLens/internal/recorder"
	"MacroLens/internal/resolver"

	"go.uber.org/zap"
)

// app holds the long-lived components shared by every command.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	cache    *cache.Cache
	disk     *cache.DiskStore
	registry *collector.Registry
	recorder recorder.Recorder
	resolver *resolver.Resolver
}

func newApp(cfg *config.Config, logger *zap.Logger) *app {
	a := &app{cfg: cfg, logger: logger}

	stores := []cache.Store{cache.NewMemoryStore(cfg.Cache.MemoryEntries, cfg.Cache.MetadataTTL)}
	disk, err := cache.NewDiskStore(cfg.Cache.Dir, cfg.Cache.CompressionLevel, logger)
	if err != nil {
		// another process may hold the badger lock; memory still works
		logger.Warn("disk cache unavailable, using memory only", zap.String("dir", cfg.Cache.Dir), zap.Error(err))
	} else {
		a.disk = disk
		stores = append(stores, disk)
	}
	a.cache = cache.New(cfg.Cache.DataTTL, cfg.Cache.MetadataTTL, logger, stores...)

	a.registry = buildRegistry(cfg, a.cache, logger)

	a.recorder = recorder.NewNoopRecorder()
	if cfg.RecorderEnabled() {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		} else {
			a.recorder = sr
		}
	}

	a.resolver = resolver.New(a.registry, a.recorder, logger)
	return a
}

// buildRegistry creates one HTTP client per provider so throttling and
// logging stay per provider, all sharing the response cache.
func buildRegistry(cfg *config.Config, c *cache.Cache, logger *zap.Logger) *collector.Registry {
	client := func(name string, p config.Provider) *httpx.Client {
		retry := httpx.DefaultRetryConfig()
		retry.MaxAttempts = cfg.HTTP.MaxAttempts
		return httpx.New(httpx.Options{
			Timeout:           cfg.HTTP.Timeout,
			ProxyURL:          cfg.Proxy,
			UserAgent:         cfg.HTTP.UserAgent,
			RequestsPerMinute: p.RequestsPerMinute,
			Retry:             retry,
			Cache:             c,
			Logger:            logger.With(zap.String("provider", name)),
		})
	}

	p := cfg.Providers
	reg := collector.NewRegistry()
	if !p.DataCommons.Disabled {
		reg.Register(collector.NewDataCommonsFetcher(p.DataCommons.BaseURL, p.DataCommons.APIKey, client("datacommons", p.DataCommons)))
	}
	if !p.DataMapper.Disabled {
		reg.Register(collector.NewDataMapperFetcher(p.DataMapper.BaseURL, client("imf_datamapper", p.DataMapper)))
	}
	if !p.SDMX.Disabled {
		reg.Register(collector.NewSDMXFetcher(p.SDMX.BaseURL, client("imf_sdmx", p.SDMX)))
	}
	if !p.REST.Disabled {
		reg.Register(collector.NewRESTFetcher(p.REST.BaseURL, client("imf_rest", p.REST)))
	}
	if !p.AlphaVantage.Disabled {
		if p.AlphaVantage.APIKey == "" {
			logger.Info("alphavantage disabled: no api key")
		} else {
			reg.Register(collector.NewAlphaVantageFetcher(p.AlphaVantage.BaseURL, p.AlphaVantage.APIKey, client("alphavantage", p.AlphaVantage)))
		}
	}
	if !p.Yahoo.Disabled {
		reg.Register(collector.NewYahooFetcher(p.Yahoo.BaseURL, client("yahoo", p.Yahoo)))
	}
	return reg
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		a.logger.Warn("close recorder", zap.Error(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("close cache", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// alphaVantage returns the registered Alpha Vantage fetcher, which also
// serves company overviews.
func (a *app) alphaVantage() (*collector.AlphaVantageFetcher, bool) {
	f, ok := a.registry.Get(model.SourceAlphaVantage)
	if !ok {
		return nil, false
	}
	av, ok := f.(*collector.AlphaVantageFetcher)
	return av, ok
}

// dataMapper returns the registered DataMapper fetcher, which also serves
// cross-country snapshots.
func (a *app) dataMapper() (*collector.DataMapperFetcher, bool) {
	f, ok := a.registry.Get(model.SourceIMFDataMapper)
	if !ok {
		return nil, false
	}
	dm, ok := f.(*collector.DataMapperFetcher)
	return dm, ok
}

// Package app wires configured providers into the services shared by the
// server and the command-line tools.
package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"marketquotes/internal/config"
	"marketquotes/internal/httpx"
	"marketquotes/internal/hydrate"
	"marketquotes/internal/markets"
	"marketquotes/internal/names"
	"marketquotes/internal/news"
	"marketquotes/internal/provider"
	"marketquotes/internal/provider/alpaca"
	"marketquotes/internal/provider/cache"
	"marketquotes/internal/provider/fmp"
	"marketquotes/internal/provider/fmpadapter"
	"marketquotes/internal/provider/offline"
	"marketquotes/internal/provider/ratelimit"
	"marketquotes/internal/provider/yahoo"
	"marketquotes/internal/provider/yahooadapter"
	"marketquotes/internal/resolver"
	"marketquotes/internal/screener"
)

const (
	retryAttempts = 3
	retryBackoff  = 250 * time.Millisecond
)

type App struct {
	Config   config.Config
	Log      logrus.FieldLogger
	Resolver *resolver.Resolver
	Markets  *markets.Service
	Screener *screener.Service
	News     *news.Service
	Offline  *offline.Snapshot
	// Chain lists the provider names in resolution order.
	Chain []string

	closers []func() error
}

// New builds every service from cfg. Sources without credentials are left
// out; the offline snapshot always closes the chain.
func New(cfg config.Config, log logrus.FieldLogger) (*App, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	a := &App{Config: cfg, Log: log, Offline: offline.Default()}

	timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second
	httpClient := httpx.New(timeout)

	store, err := a.store(cfg.Cache)
	if err != nil {
		return nil, err
	}

	var (
		chain       []provider.Provider
		summaries   []provider.SummaryProvider
		collections markets.Collections
		pages       screener.Pages
		sources     []news.Source
	)

	var yc *yahoo.Client
	if cfg.Yahoo.Enabled {
		opts := []yahoo.ClientOption{yahoo.WithHTTPClient(httpClient), yahoo.WithRetry(retryAttempts, retryBackoff)}
		if cfg.Yahoo.BaseURL != "" {
			opts = append(opts, yahoo.WithBaseURL(cfg.Yahoo.BaseURL))
		}
		yc, err = yahoo.NewClient(opts...)
		if err != nil {
			return nil, fmt.Errorf("yahoo client: %w", err)
		}
		ya := yahooadapter.New(yahooadapter.Config{MaxConcurrency: cfg.Yahoo.MaxConcurrency}, yc, log)
		tb := tokenBucket(cfg.Yahoo.MaxRequestsPerMinute, cfg.Yahoo.Burst)

		var p provider.Provider = ya
		if tb != nil {
			p = &ratelimit.TokenBucketProvider{P: p, TB: tb}
		} else if cfg.Yahoo.MinRequestIntervalMs > 0 {
			p = &ratelimit.MinInterval{P: p, Interval: time.Duration(cfg.Yahoo.MinRequestIntervalMs) * time.Millisecond}
		}
		if cfg.Yahoo.CacheTTLSeconds > 0 {
			p = &cache.Provider{P: p, TTL: seconds(cfg.Yahoo.CacheTTLSeconds), Store: store, Log: log}
		}
		chain = append(chain, p)

		var sp provider.SummaryProvider = ya
		if tb != nil {
			sp = &ratelimit.TokenBucketSummaryProvider{P: sp, TB: tb}
		}
		if cfg.Yahoo.SummaryCacheTTLSeconds > 0 {
			sp = &cache.SummaryProvider{P: sp, TTL: seconds(cfg.Yahoo.SummaryCacheTTLSeconds), Store: store, Log: log}
		}
		summaries = append(summaries, sp)
		pages = yc
		sources = append(sources, news.YahooSource{Client: yc})
	}

	fopts := []fmp.ClientOption{fmp.WithHTTPClient(httpClient), fmp.WithRetry(retryAttempts, retryBackoff)}
	if cfg.FMP.BaseURL != "" {
		fopts = append(fopts, fmp.WithBaseURL(cfg.FMP.BaseURL))
	}
	fc, err := fmp.NewClient(cfg.FMP.APIKey, fopts...)
	if err != nil {
		return nil, fmt.Errorf("fmp client: %w", err)
	}
	if fc.Enabled() {
		fa := fmpadapter.New(fmpadapter.Config{MaxConcurrency: cfg.FMP.MaxConcurrency}, fc, log)
		var p provider.Provider = fa
		var sp provider.SummaryProvider = fa
		if cfg.FMP.CacheTTLSeconds > 0 {
			p = &cache.Provider{P: p, TTL: seconds(cfg.FMP.CacheTTLSeconds), Store: store, Log: log}
			sp = &cache.SummaryProvider{P: sp, TTL: seconds(cfg.FMP.CacheTTLSeconds), Store: store, Log: log}
		}
		chain = append(chain, p)
		summaries = append(summaries, sp)
		collections = fa
		// FMP headlines lead the news waterfall.
		sources = append([]news.Source{news.FMPSource{Client: fc}}, sources...)
	} else {
		log.Info("FMP_API_KEY not set; fmp disabled")
	}

	if cfg.AlpacaEnabled() {
		ac := alpaca.NewClient(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)
		chain = append(chain, alpaca.New(alpaca.Config{Feed: marketdata.Feed(cfg.Alpaca.Feed)}, ac, log))
		sources = append(sources, news.AlpacaSource{Client: ac})
	}

	chain = append(chain, a.Offline)
	for _, p := range chain {
		a.Chain = append(a.Chain, p.Name())
	}

	a.Resolver = resolver.New(chain,
		resolver.WithSummaryProviders(summaries...),
		resolver.WithOffline(a.Offline),
		resolver.WithNames(names.Default()),
		resolver.WithHydrator(hydrate.New(a.Offline)),
		resolver.WithLogger(log),
		resolver.WithStageTimeout(timeout),
	)
	a.Markets = markets.NewService(collections, a.Resolver, log)
	a.Screener = screener.NewService(pages, a.Resolver, a.Offline.Symbols(), log)
	a.News = news.NewService(log, sources...)
	return a, nil
}

func (a *App) store(cfg config.Cache) (cache.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return cache.NewMemoryStore(cfg.MaxItems), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, rdb.Close)
		return cache.NewRedisStore(rdb, cfg.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// DisplayMaxAge is the configured freshness bound for extended-hours prices.
func (a *App) DisplayMaxAge() time.Duration {
	return seconds(a.Config.Display.MaxAgeSec)
}

// Close releases connections opened by New.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// tokenBucket returns nil when rpm is not positive.
func tokenBucket(rpm, burst int) *ratelimit.TokenBucket {
	if rpm <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return ratelimit.NewTokenBucket(float64(rpm)/60.0, burst)
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

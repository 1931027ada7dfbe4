// Package alpaca adapts Alpaca market-data snapshots into quotes. It is the
// last live source and only handles plain US equity tickers.
package alpaca

import (
	"context"
	"strings"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/guregu/null/v6"
	"github.com/sirupsen/logrus"

	"marketquotes/internal/normalize"
	"marketquotes/internal/provider"
	"marketquotes/internal/quote"
)

// Client is the subset of marketdata.Client used here.
type Client interface {
	GetSnapshots(symbols []string, req marketdata.GetSnapshotRequest) (map[string]*marketdata.Snapshot, error)
	GetNews(req marketdata.GetNewsRequest) ([]marketdata.News, error)
}

// NewClient builds a market-data client. dataURL may be empty.
func NewClient(apiKey, apiSecret, dataURL string) *marketdata.Client {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return marketdata.NewClient(opts)
}

type Config struct {
	Name string // display name, default: alpaca
	// Feed selects the SIP or IEX feed; empty uses the account default.
	Feed marketdata.Feed
	// MaxConcurrency bounds per-symbol retries after a failed batch.
	MaxConcurrency int
}

type Adapter struct {
	cfg    Config
	client Client
	log    logrus.FieldLogger
}

func New(cfg Config, client Client, log logrus.FieldLogger) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "alpaca"
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Adapter{cfg: cfg, client: client, log: log.WithField("provider", cfg.Name)}
}

func (a *Adapter) Name() string { return a.cfg.Name }

// Client returns the underlying market-data client.
func (a *Adapter) Client() Client { return a.client }

// Fetch answers plain equity tickers from snapshots. Indices, futures and
// currency pairs are skipped without a request.
func (a *Adapter) Fetch(ctx context.Context, symbols []string) (map[string]quote.Quote, error) {
	// alpaca ticker -> requested symbol
	tickers := make(map[string]string)
	var batch []string
	for _, s := range normalize.UniqueSymbols(symbols) {
		t, ok := Ticker(s)
		if !ok {
			continue
		}
		tickers[t] = s
		batch = append(batch, t)
	}

	return provider.FetchBatched(ctx, batch, a.cfg.MaxConcurrency,
		func(ctx context.Context, batch []string) (map[string]quote.Quote, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			snaps, err := a.client.GetSnapshots(batch, marketdata.GetSnapshotRequest{Feed: a.cfg.Feed})
			if err != nil {
				return nil, err
			}
			out := make(map[string]quote.Quote, len(snaps))
			for t, snap := range snaps {
				sym, ok := tickers[strings.ToUpper(t)]
				if !ok {
					continue
				}
				q, ok := MapSnapshot(sym, snap)
				if !ok {
					continue
				}
				q.Source = a.cfg.Name
				out[sym] = q
			}
			return out, nil
		},
		func(err error) {
			a.log.WithError(err).WithField("symbols", len(batch)).Warn("snapshot batch failed; retrying per symbol")
		},
	)
}

// Ticker converts a Yahoo-style symbol to Alpaca's form. Symbols with index,
// futures or currency markers are not supported.
func Ticker(symbol string) (string, bool) {
	if symbol == "" || strings.ContainsAny(symbol, "^=") {
		return "", false
	}
	return strings.ReplaceAll(symbol, "-", "."), true
}

// MapSnapshot converts a snapshot. ok is false when it carries no price.
func MapSnapshot(symbol string, s *marketdata.Snapshot) (q quote.Quote, ok bool) {
	if s == nil {
		return quote.Quote{}, false
	}
	q = quote.Quote{
		Symbol:   symbol,
		Currency: null.StringFrom(quote.DefaultCurrency),
	}
	if s.LatestTrade != nil {
		q.RegularMarketPrice = normalize.AsFiniteNumber(s.LatestTrade.Price)
		if !s.LatestTrade.Timestamp.IsZero() {
			q.RegularMarketTime = null.IntFrom(s.LatestTrade.Timestamp.Unix())
		}
	}
	if b := s.DailyBar; b != nil {
		q.RegularMarketOpen = normalize.AsFiniteNumber(b.Open)
		q.RegularMarketDayHigh = normalize.AsFiniteNumber(b.High)
		q.RegularMarketDayLow = normalize.AsFiniteNumber(b.Low)
		q.RegularMarketVolume = normalize.AsFiniteNumber(float64(b.Volume))
		if !q.RegularMarketPrice.Valid {
			q.RegularMarketPrice = normalize.AsFiniteNumber(b.Close)
		}
	}
	if b := s.PrevDailyBar; b != nil {
		q.RegularMarketPreviousClose = normalize.AsFiniteNumber(b.Close)
	}
	if !q.RegularMarketPrice.Valid {
		return quote.Quote{}, false
	}
	if prev := q.RegularMarketPreviousClose; prev.Valid && prev.Float64 != 0 {
		change := q.RegularMarketPrice.Float64 - prev.Float64
		q.RegularMarketChange = null.FloatFrom(change)
		q.RegularMarketChangePercent = normalize.Finite(null.FloatFrom(change / prev.Float64 * 100))
	}
	return q.WithPrePostFlag(), true
}

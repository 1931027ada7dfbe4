// Package yahooadapter maps Yahoo Finance payloads onto quote.Quote and
// exposes them as the primary Provider.
package yahooadapter

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"marketquotes/internal/normalize"
	"marketquotes/internal/provider"
	"marketquotes/internal/quote"
)

// Client is the subset of the Yahoo client the adapter needs.
type Client interface {
	Quote(ctx context.Context, symbols []string) ([]map[string]any, error)
	QuoteSummary(ctx context.Context, symbol string, modules ...string) (map[string]any, error)
}

type Config struct {
	Name string // display name, default: yahoo
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
		cfg.Name = "yahoo"
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Adapter{cfg: cfg, client: client, log: log.WithField("provider", cfg.Name)}
}

func (a *Adapter) Name() string { return a.cfg.Name }

// Fetch tries one batch request. When it fails, every symbol is retried on
// its own, concurrently. Only symbols Yahoo answered are returned.
func (a *Adapter) Fetch(ctx context.Context, symbols []string) (map[string]quote.Quote, error) {
	symbols = normalize.UniqueSymbols(symbols)
	return provider.FetchBatched(ctx, symbols, a.cfg.MaxConcurrency,
		func(ctx context.Context, batch []string) (map[string]quote.Quote, error) {
			raws, err := a.client.Quote(ctx, batch)
			if err != nil {
				return nil, err
			}
			out := make(map[string]quote.Quote, len(batch))
			a.collect(out, batch, raws)
			return out, nil
		},
		func(err error) {
			a.log.WithError(err).WithField("symbols", len(symbols)).Warn("batch quote failed; retrying per symbol")
		},
	)
}

// collect keeps records for requested symbols. A record echoing a symbol
// with "-" and "." swapped (BRK-B for BRK.B) is stored under the requested
// spelling.
func (a *Adapter) collect(out map[string]quote.Quote, requested []string, raws []map[string]any) {
	want := make(map[string]string, len(requested)*2)
	for _, s := range requested {
		for _, alias := range []string{strings.ReplaceAll(s, ".", "-"), strings.ReplaceAll(s, "-", ".")} {
			if _, taken := want[alias]; !taken {
				want[alias] = s
			}
		}
		want[s] = s
	}
	for _, raw := range raws {
		q := MapQuote(raw)
		sym, ok := want[q.Symbol]
		if !ok {
			continue
		}
		if _, done := out[sym]; done && q.Symbol != sym {
			continue
		}
		q.Symbol = sym
		q.Source = a.cfg.Name
		out[sym] = q
	}
}

// FetchSummary loads summaryDetail, defaultKeyStatistics and summaryProfile.
func (a *Adapter) FetchSummary(ctx context.Context, symbol string) (*quote.Summary, error) {
	symbol = normalize.Symbol(symbol)
	if symbol == "" {
		return nil, provider.ErrNotFound
	}
	raw, err := a.client.QuoteSummary(ctx, symbol)
	if err != nil {
		return nil, err
	}
	s := MapSummary(raw)
	if s.IsEmpty() {
		return nil, provider.ErrNotFound
	}
	return &s, nil
}

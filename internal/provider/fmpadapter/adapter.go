// Package fmpadapter exposes Financial Modeling Prep as the secondary
// Provider and SummaryProvider.
package fmpadapter

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"marketquotes/internal/normalize"
	"marketquotes/internal/provider"
	"marketquotes/internal/provider/fmp"
	"marketquotes/internal/quote"
)

// Client is the subset of the FMP client the adapter needs.
type Client interface {
	Quotes(ctx context.Context, symbols []string) ([]fmp.Quote, error)
	Profile(ctx context.Context, symbol string) (*fmp.Profile, error)
	Collection(ctx context.Context, path string) ([]fmp.Quote, error)
}

type Config struct {
	Name string // display name, default: fmp
	// MaxConcurrency bounds per-symbol retries after a failed batch.
	MaxConcurrency int
}

type Adapter struct {
	cfg      Config
	client   Client
	log      logrus.FieldLogger
	disabled atomic.Bool
}

func New(cfg Config, client Client, log logrus.FieldLogger) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "fmp"
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

// Disabled reports whether the adapter has seen a missing API key. Once
// set it stays set for the life of the process.
func (a *Adapter) Disabled() bool { return a.disabled.Load() }

func (a *Adapter) check(err error) error {
	if errors.Is(err, fmp.ErrDisabled) && a.disabled.CompareAndSwap(false, true) {
		a.log.Warn("FMP_API_KEY is not set; fmp disabled")
	}
	return err
}

// Fetch requests every symbol in one quote call, falling back to single
// symbol calls when the batch fails.
func (a *Adapter) Fetch(ctx context.Context, symbols []string) (map[string]quote.Quote, error) {
	if a.Disabled() {
		return map[string]quote.Quote{}, fmp.ErrDisabled
	}
	symbols = normalize.UniqueSymbols(symbols)
	return provider.FetchBatched(ctx, symbols, a.cfg.MaxConcurrency,
		func(ctx context.Context, batch []string) (map[string]quote.Quote, error) {
			if a.Disabled() {
				return nil, fmp.ErrDisabled
			}
			rows, err := a.client.Quotes(ctx, batch)
			if err != nil {
				return nil, a.check(err)
			}
			want := make(map[string]struct{}, len(batch))
			for _, s := range batch {
				want[s] = struct{}{}
			}
			out := make(map[string]quote.Quote, len(rows))
			for _, row := range rows {
				q := MapQuote(row)
				if _, ok := want[q.Symbol]; !ok {
					continue
				}
				q.Source = a.cfg.Name
				out[q.Symbol] = q
			}
			return out, nil
		},
		func(err error) {
			if !errors.Is(err, fmp.ErrDisabled) {
				a.log.WithError(err).WithField("symbols", len(symbols)).Warn("batch quote failed; retrying per symbol")
			}
		},
	)
}

// FetchSummary combines the quote with the company profile. A failing
// profile only drops the profile-derived fields.
func (a *Adapter) FetchSummary(ctx context.Context, symbol string) (*quote.Summary, error) {
	if a.Disabled() {
		return nil, fmp.ErrDisabled
	}
	symbol = normalize.Symbol(symbol)
	if symbol == "" {
		return nil, provider.ErrNotFound
	}

	var (
		rows    []fmp.Quote
		profile *fmp.Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = a.client.Quotes(gctx, []string{symbol})
		return a.check(err)
	})
	g.Go(func() error {
		p, err := a.client.Profile(gctx, symbol)
		if err != nil {
			a.log.WithError(err).WithField("symbol", symbol).Debug("profile unavailable")
			return nil
		}
		profile = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, provider.ErrNotFound
	}
	s := MapSummary(MapQuote(rows[0]), profile)
	return &s, nil
}

// Collection fetches a bulk list such as "quotes/index" mapped to quotes.
func (a *Adapter) Collection(ctx context.Context, path string) ([]quote.Quote, error) {
	if a.Disabled() {
		return nil, fmp.ErrDisabled
	}
	rows, err := a.client.Collection(ctx, path)
	if err != nil {
		return nil, a.check(err)
	}
	out := make([]quote.Quote, 0, len(rows))
	for _, row := range rows {
		q := MapQuote(row)
		if q.Symbol == "" {
			continue
		}
		q.Source = a.cfg.Name
		out = append(out, q)
	}
	return out, nil
}

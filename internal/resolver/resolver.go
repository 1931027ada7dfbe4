// Package resolver turns symbols into quotes by walking an ordered chain of
// providers. Its public methods never fail: a symbol no source can answer
// resolves to a placeholder.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guregu/null/v6"
	"github.com/sirupsen/logrus"

	"marketquotes/internal/aggregate"
	"marketquotes/internal/hydrate"
	"marketquotes/internal/names"
	"marketquotes/internal/normalize"
	"marketquotes/internal/provider"
	"marketquotes/internal/quote"
)

// Offline is the snapshot used for hydration and summary fallback.
type Offline interface {
	Quote(symbol string) (quote.Quote, bool)
	Summary(symbol string) (quote.Summary, bool)
}

type Resolver struct {
	chain     []provider.Provider
	summaries []provider.SummaryProvider
	offline   Offline
	names     *names.Resolver
	hydrator  *hydrate.Hydrator
	log       logrus.FieldLogger
	timeout   time.Duration
}

type Option func(*Resolver)

// WithSummaryProviders sets the sources tried, in order, by GetQuoteSummary.
func WithSummaryProviders(ps ...provider.SummaryProvider) Option {
	return func(r *Resolver) { r.summaries = ps }
}

// WithOffline sets the snapshot used by hydration and as the summary
// fallback. It does not add the snapshot to the quote chain.
func WithOffline(o Offline) Option {
	return func(r *Resolver) { r.offline = o }
}

func WithNames(n *names.Resolver) Option {
	return func(r *Resolver) { r.names = n }
}

// WithHydrator replaces the hydrator built from the offline snapshot.
func WithHydrator(h *hydrate.Hydrator) Option {
	return func(r *Resolver) { r.hydrator = h }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Resolver) { r.log = log }
}

// WithStageTimeout bounds each provider call. Zero means no extra bound.
func WithStageTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// New builds a resolver over chain, tried in order for every symbol.
func New(chain []provider.Provider, opts ...Option) *Resolver {
	r := &Resolver{chain: chain}
	for _, opt := range opts {
		opt(r)
	}
	if r.names == nil {
		r.names = names.Default()
	}
	if r.hydrator == nil {
		r.hydrator = hydrate.New(r.offline)
	}
	if r.log == nil {
		r.log = logrus.StandardLogger()
	}
	return r
}

// GetQuote resolves a single symbol.
func (r *Resolver) GetQuote(ctx context.Context, symbol string) quote.Quote {
	out := r.GetQuotes(ctx, []string{symbol})
	if sym := normalize.Symbol(symbol); sym != "" {
		return out[sym]
	}
	return out[symbol]
}

// GetQuotes returns exactly one entry per distinct normalized input. Inputs
// that normalize to nothing are keyed, and placeheld, verbatim.
func (r *Resolver) GetQuotes(ctx context.Context, symbols []string) map[string]quote.Quote {
	out := make(map[string]quote.Quote, len(symbols))
	for _, s := range symbols {
		if normalize.Symbol(s) == "" {
			out[s] = r.placeholder(s)
		}
	}

	pending := normalize.UniqueSymbols(symbols)
	for _, p := range r.chain {
		if len(pending) == 0 {
			break
		}
		got := r.fetch(ctx, p, pending)
		next := pending[:0:0]
		for _, sym := range pending {
			q, ok := got[sym]
			if !ok {
				next = append(next, sym)
				continue
			}
			if q.Source == "" {
				q.Source = p.Name()
			}
			out[sym] = r.finalize(sym, q)
		}
		pending = next
	}

	for _, sym := range pending {
		out[sym] = r.placeholder(sym)
	}
	return out
}

// fetch calls one provider, converting errors and panics into "no data".
func (r *Resolver) fetch(ctx context.Context, p provider.Provider, symbols []string) (got map[string]quote.Quote) {
	name := p.Name()
	log := r.log.WithFields(logrus.Fields{"provider": name, "symbols": symbols})
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("error", fmt.Sprint(rec)).Error("provider panicked")
			got = nil
		}
	}()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	start := time.Now()
	got, err := p.Fetch(ctx, symbols)
	if err != nil {
		entry := log.WithField("error", err.Error())
		if errors.Is(err, context.Canceled) {
			entry.Debug("provider fetch canceled")
		} else {
			entry.Warn("provider fetch failed")
		}
	}
	log.WithFields(logrus.Fields{"resolved": len(got), "elapsed": time.Since(start)}).Debug("provider fetch")
	return got
}

// finalize applies hydration, name fallbacks and defaults to a resolved quote.
func (r *Resolver) finalize(sym string, q quote.Quote) quote.Quote {
	q.Symbol = sym
	q = r.safeHydrate(sym, q, nil)
	q = r.names.ApplyCompanyNameFallbacks(q)
	if !normalize.String(q.Currency).Valid {
		q.Currency = null.StringFrom(quote.DefaultCurrency)
	}
	return q.WithPrePostFlag()
}

func (r *Resolver) safeHydrate(sym string, q quote.Quote, known *quote.Summary) (out quote.Quote) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithFields(logrus.Fields{"symbol": sym, "error": fmt.Sprint(rec)}).Error("hydration panicked")
			out = q
		}
	}()
	return r.hydrator.Hydrate(sym, q, known)
}

func (r *Resolver) placeholder(symbol string) quote.Quote {
	return r.names.ApplyCompanyNameFallbacks(quote.Placeholder(symbol, ""))
}

// GetQuoteSummary tries the summary providers in order, then the offline
// snapshot, then a summary derived from the resolved quote. With nothing
// anywhere it returns an empty Summary.
func (r *Resolver) GetQuoteSummary(ctx context.Context, symbol string) quote.Summary {
	sym := normalize.Symbol(symbol)
	if sym == "" {
		return quote.Summary{}
	}
	for _, p := range r.summaries {
		if s := r.fetchSummary(ctx, p, sym); s != nil && !s.IsEmpty() {
			return *s
		}
	}
	if r.offline != nil {
		if s, ok := r.offline.Summary(sym); ok {
			return s
		}
	}
	if s, ok := aggregate.SummaryFromQuote(r.GetQuote(ctx, sym)); ok {
		return s
	}
	return quote.Summary{}
}

func (r *Resolver) fetchSummary(ctx context.Context, p provider.SummaryProvider, sym string) (s *quote.Summary) {
	log := r.log.WithFields(logrus.Fields{"provider": p.Name(), "symbol": sym})
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("error", fmt.Sprint(rec)).Error("summary provider panicked")
			s = nil
		}
	}()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	s, err := p.FetchSummary(ctx, sym)
	if err != nil {
		if !errors.Is(err, provider.ErrNotFound) {
			log.WithField("error", err.Error()).Warn("summary fetch failed")
		}
		return nil
	}
	return s
}

// HydrateWithSummary re-runs hydration on q with an already fetched summary.
func (r *Resolver) HydrateWithSummary(symbol string, q quote.Quote, s *quote.Summary) quote.Quote {
	return r.safeHydrate(normalize.Symbol(symbol), q, s)
}

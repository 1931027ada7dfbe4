// Package cache decorates providers with a per-symbol TTL cache. Values are
// stored encoded, so every hit decodes into a fresh copy.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"marketquotes/internal/normalize"
	"marketquotes/internal/provider"
	"marketquotes/internal/quote"
)

// Provider caches results per symbol for a TTL.
// It requests only missing symbols from the underlying provider and
// combines cached + fresh results.
type Provider struct {
	P     provider.Provider
	TTL   time.Duration
	Store Store
	Log   logrus.FieldLogger
}

func (c *Provider) Name() string { return c.P.Name() }

func (c *Provider) key(symbol string) string { return "quote:" + c.P.Name() + ":" + symbol }

// Fetch returns quotes for requested symbols using cache when valid.
func (c *Provider) Fetch(ctx context.Context, symbols []string) (map[string]quote.Quote, error) {
	if c.Store == nil || c.TTL <= 0 {
		return c.P.Fetch(ctx, symbols)
	}

	out := make(map[string]quote.Quote, len(symbols))
	var missing []string
	for _, s := range normalize.UniqueSymbols(symbols) {
		if q, ok := c.get(ctx, c.key(s)); ok {
			out[s] = q
			continue
		}
		missing = append(missing, s)
	}

	// If everything is cached, return quickly
	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := c.P.Fetch(ctx, missing)
	if err != nil {
		// If we have at least some cached data, return it rather than failing entirely
		if len(out) > 0 {
			return out, nil
		}
		return out, err
	}
	for sym, q := range fresh {
		out[sym] = q
		c.set(ctx, c.key(sym), q)
	}
	return out, nil
}

func (c *Provider) get(ctx context.Context, key string) (quote.Quote, bool) {
	var q quote.Quote
	return q, load(ctx, c.Store, c.Log, key, &q)
}

func (c *Provider) set(ctx context.Context, key string, q quote.Quote) {
	save(ctx, c.Store, c.Log, key, q, c.TTL)
}

// SummaryProvider caches fundamentals per symbol. Errors are not cached.
type SummaryProvider struct {
	P     provider.SummaryProvider
	TTL   time.Duration
	Store Store
	Log   logrus.FieldLogger
}

func (c *SummaryProvider) Name() string { return c.P.Name() }

func (c *SummaryProvider) FetchSummary(ctx context.Context, symbol string) (*quote.Summary, error) {
	if c.Store == nil || c.TTL <= 0 {
		return c.P.FetchSummary(ctx, symbol)
	}
	key := "summary:" + c.P.Name() + ":" + normalize.Symbol(symbol)
	var s quote.Summary
	if load(ctx, c.Store, c.Log, key, &s) {
		return &s, nil
	}
	fresh, err := c.P.FetchSummary(ctx, symbol)
	if err != nil || fresh == nil {
		return fresh, err
	}
	save(ctx, c.Store, c.Log, key, fresh, c.TTL)
	return fresh, nil
}

func load(ctx context.Context, store Store, log logrus.FieldLogger, key string, out any) bool {
	b, ok, err := store.Get(ctx, key)
	if err != nil {
		if log != nil {
			log.WithError(err).WithField("key", key).Debug("cache read failed")
		}
		return false
	}
	if !ok {
		return false
	}
	return json.Unmarshal(b, out) == nil
}

func save(ctx context.Context, store Store, log logrus.FieldLogger, key string, v any, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err == nil {
		err = store.Set(ctx, key, b, ttl)
	}
	if err != nil && log != nil {
		log.WithError(err).WithField("key", key).Debug("cache write failed")
	}
}

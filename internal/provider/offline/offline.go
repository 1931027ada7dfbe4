// Package offline serves the embedded last-known-good snapshot used when
// every live source fails.
package offline

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/guregu/null/v6"

	"marketquotes/internal/names"
	"marketquotes/internal/normalize"
	"marketquotes/internal/quote"
)

// Name is the Source value stamped on offline quotes.
const Name = "offline"

// SnapshotTime is assumed for seeds without a regularMarketTime.
var SnapshotTime = time.Date(2024, time.January, 5, 20, 0, 0, 0, time.UTC)

var (
	//go:embed data/quotes.json
	quotesJSON []byte
	//go:embed data/summaries.json
	summariesJSON []byte
)

// Snapshot is an immutable symbol-keyed table. Accessors return copies.
type Snapshot struct {
	quotes    map[string]quote.Quote
	summaries map[string]quote.Summary
	symbols   []string
}

var defaultSnapshot = sync.OnceValue(func() *Snapshot {
	s, err := Load(quotesJSON, summariesJSON, names.Default())
	if err != nil {
		panic(fmt.Sprintf("offline: embedded snapshot: %v", err))
	}
	return s
})

// Default returns the embedded snapshot, parsed on first use.
func Default() *Snapshot { return defaultSnapshot() }

// Load parses quote and summary tables keyed by symbol. Seeds missing a
// timestamp or currency get defaults, and names go through r.
func Load(quotesData, summariesData []byte, r *names.Resolver) (*Snapshot, error) {
	var rawQuotes map[string]quote.Quote
	if err := json.Unmarshal(quotesData, &rawQuotes); err != nil {
		return nil, fmt.Errorf("decoding quotes: %w", err)
	}
	var rawSummaries map[string]quote.Summary
	if len(summariesData) > 0 {
		if err := json.Unmarshal(summariesData, &rawSummaries); err != nil {
			return nil, fmt.Errorf("decoding summaries: %w", err)
		}
	}

	s := &Snapshot{
		quotes:    make(map[string]quote.Quote, len(rawQuotes)),
		summaries: make(map[string]quote.Summary, len(rawSummaries)),
	}
	for key, q := range rawQuotes {
		sym := normalize.Symbol(key)
		if sym == "" {
			continue
		}
		q.Symbol = sym
		if !q.RegularMarketTime.Valid {
			q.RegularMarketTime = null.IntFrom(SnapshotTime.Unix())
		}
		if !normalize.String(q.Currency).Valid {
			q.Currency = null.StringFrom(quote.DefaultCurrency)
		}
		if r != nil {
			q = r.ApplyCompanyNameFallbacks(q)
		}
		q.Source = Name
		s.quotes[sym] = q.WithPrePostFlag()
		s.symbols = append(s.symbols, sym)
	}
	for key, sum := range rawSummaries {
		if sym := normalize.Symbol(key); sym != "" {
			s.summaries[sym] = sum
		}
	}
	slices.Sort(s.symbols)
	return s, nil
}

// Quote returns a copy of the seed for symbol.
func (s *Snapshot) Quote(symbol string) (quote.Quote, bool) {
	q, ok := s.quotes[normalize.Symbol(symbol)]
	return q, ok
}

// Summary returns a deep copy of the stored summary for symbol.
func (s *Snapshot) Summary(symbol string) (quote.Summary, bool) {
	sum, ok := s.summaries[normalize.Symbol(symbol)]
	if !ok {
		return quote.Summary{}, false
	}
	return sum.Clone(), true
}

// Symbols lists every seeded quote symbol in sorted order.
func (s *Snapshot) Symbols() []string { return slices.Clone(s.symbols) }

// Name implements provider.Provider.
func (s *Snapshot) Name() string { return Name }

// Fetch answers whatever the snapshot knows. It never fails.
func (s *Snapshot) Fetch(_ context.Context, symbols []string) (map[string]quote.Quote, error) {
	out := make(map[string]quote.Quote, len(symbols))
	for _, sym := range normalize.UniqueSymbols(symbols) {
		if q, ok := s.quotes[sym]; ok {
			out[sym] = q
		}
	}
	return out, nil
}

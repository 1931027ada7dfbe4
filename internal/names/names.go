// Package names resolves display company names for tickers.
package names

import (
	_ "embed"
	"encoding/json"
	"strings"
	"sync"

	"github.com/guregu/null/v6"

	"marketquotes/internal/quote"
)

//go:embed data/company-names.json
var curatedJSON []byte

//go:embed data/tickers.json
var tickersJSON []byte

// Ticker is one row of the bulk ticker table.
type Ticker struct {
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// Resolver maps normalized symbols to company names. It is immutable after
// construction and safe for concurrent use.
type Resolver struct {
	names map[string]string
}

// NewResolver registers curated names first so they win over the bulk
// table. Both register "-"/"." aliases without overriding existing keys.
func NewResolver(curated map[string]string, tickers []Ticker) *Resolver {
	r := &Resolver{names: make(map[string]string, len(curated)+len(tickers)*2)}
	for sym, name := range curated {
		r.register(sym, name)
	}
	for _, t := range tickers {
		r.register(t.Ticker, t.Title)
	}
	return r
}

var defaultResolver = sync.OnceValue(func() *Resolver {
	var curated map[string]string
	if err := json.Unmarshal(curatedJSON, &curated); err != nil {
		panic("names: embedded company-names.json: " + err.Error())
	}
	var tickers []Ticker
	if err := json.Unmarshal(tickersJSON, &tickers); err != nil {
		panic("names: embedded tickers.json: " + err.Error())
	}
	return NewResolver(curated, tickers)
})

// Default returns the resolver built from the embedded tables.
func Default() *Resolver { return defaultResolver() }

func (r *Resolver) register(symbol, name string) {
	key := quote.NormalizeSymbol(symbol)
	name = strings.TrimSpace(name)
	if key == "" || name == "" {
		return
	}
	r.setIfAbsent(key, name)
	if strings.Contains(key, "-") {
		r.setIfAbsent(strings.ReplaceAll(key, "-", "."), name)
	}
	if strings.Contains(key, ".") {
		r.setIfAbsent(strings.ReplaceAll(key, ".", "-"), name)
	}
}

func (r *Resolver) setIfAbsent(key, name string) {
	if _, ok := r.names[key]; !ok {
		r.names[key] = name
	}
}

// Lookup returns the mapped name for symbol, if any.
func (r *Resolver) Lookup(symbol string) (string, bool) {
	key := quote.NormalizeSymbol(symbol)
	if key == "" {
		return "", false
	}
	name, ok := r.names[key]
	return name, ok
}

// ResolveCompanyName returns the mapped name for symbol, otherwise the
// first non-empty candidate that does not merely echo the symbol.
func (r *Resolver) ResolveCompanyName(symbol string, candidates ...string) null.String {
	if name, ok := r.Lookup(symbol); ok {
		return null.StringFrom(name)
	}
	key := quote.NormalizeSymbol(symbol)
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if key != "" && strings.ToUpper(c) == key {
			continue
		}
		return null.StringFrom(c)
	}
	return null.String{}
}

// ApplyCompanyNameFallbacks returns a copy of q whose short and long names
// are both set: each falls back to the other and finally to the symbol.
func (r *Resolver) ApplyCompanyNameFallbacks(q quote.Quote, extra ...string) quote.Quote {
	short, long := nameOf(q.ShortName), nameOf(q.LongName)

	longCands := make([]string, 0, len(extra)+2)
	longCands = append(longCands, long)
	longCands = append(longCands, extra...)
	longCands = append(longCands, short)

	shortCands := make([]string, 0, len(extra)+2)
	shortCands = append(shortCands, short)
	shortCands = append(shortCands, extra...)
	shortCands = append(shortCands, long)

	resolvedLong := r.ResolveCompanyName(q.Symbol, longCands...)
	resolvedShort := r.ResolveCompanyName(q.Symbol, shortCands...)

	var fallback null.String
	if sym := strings.TrimSpace(q.Symbol); sym != "" {
		fallback = null.StringFrom(sym)
	}

	q.ShortName = firstValid(resolvedShort, resolvedLong, fallback)
	q.LongName = firstValid(resolvedLong, resolvedShort, fallback)
	return q
}

// ResolveCompanyName uses the default resolver.
func ResolveCompanyName(symbol string, candidates ...string) null.String {
	return Default().ResolveCompanyName(symbol, candidates...)
}

// ApplyCompanyNameFallbacks uses the default resolver.
func ApplyCompanyNameFallbacks(q quote.Quote, extra ...string) quote.Quote {
	return Default().ApplyCompanyNameFallbacks(q, extra...)
}

func nameOf(s null.String) string {
	if !s.Valid {
		return ""
	}
	return s.String
}

func firstValid(values ...null.String) null.String {
	for _, v := range values {
		if v.Valid {
			return v
		}
	}
	return null.String{}
}

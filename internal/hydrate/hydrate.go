// Package hydrate backfills fundamentals on resolved quotes.
package hydrate

import (
	"marketquotes/internal/aggregate"
	"marketquotes/internal/normalize"
	"marketquotes/internal/quote"
)

// Offline is the read-only snapshot consulted after the known summary.
type Offline interface {
	Quote(symbol string) (quote.Quote, bool)
	Summary(symbol string) (quote.Summary, bool)
}

// Hydrator fills missing fields, chiefly trailingPE and trailingEps.
// The zero value only uses the known summary and P/E derivation.
type Hydrator struct {
	offline Offline
}

func New(offline Offline) *Hydrator {
	return &Hydrator{offline: offline}
}

// complete reports whether both headline fundamentals are usable.
func complete(q quote.Quote) bool {
	return normalize.ValidPE(q.TrailingPE) && normalize.ValidEPS(q.TrailingEps)
}

// Hydrate returns q with missing fields backfilled from, in order: known,
// the offline summary, the offline quote, and finally price / EPS. The
// offline quote fills session fields (changes, market state, pre/post)
// only when q has no price of its own. Present
// values are never overwritten and every step is skipped once P/E and EPS
// are both valid, so applying Hydrate twice equals applying it once.
func (h *Hydrator) Hydrate(symbol string, q quote.Quote, known *quote.Summary) quote.Quote {
	if complete(q) {
		return q
	}
	sym := normalize.Symbol(symbol)

	if known != nil {
		q = ApplySummary(q, *known)
		if complete(q) {
			return q
		}
	}

	var (
		offlineQuote quote.Quote
		hasOffline   bool
	)
	if h != nil && h.offline != nil && sym != "" {
		if s, ok := h.offline.Summary(sym); ok {
			q = ApplySummary(q, s)
			if complete(q) {
				return q
			}
		}
		if offlineQuote, hasOffline = h.offline.Quote(sym); hasOffline {
			// A quote with its own price keeps its session fields; the
			// snapshot only lends reference data.
			if normalize.Finite(q.RegularMarketPrice).Valid {
				q = aggregate.FillReference(q, offlineQuote)
			} else {
				q = aggregate.FillMissing(q, offlineQuote)
			}
			if !normalize.ValidPE(q.TrailingPE) && normalize.ValidPE(offlineQuote.TrailingPE) {
				q.TrailingPE = offlineQuote.TrailingPE
			}
			if !normalize.ValidEPS(q.TrailingEps) && normalize.ValidEPS(offlineQuote.TrailingEps) {
				q.TrailingEps = offlineQuote.TrailingEps
			}
			if complete(q) {
				return q
			}
		}
	}

	if normalize.ValidPE(q.TrailingPE) {
		return q
	}
	price := q.RegularMarketPrice
	if !normalize.Finite(price).Valid && hasOffline {
		price = offlineQuote.RegularMarketPrice
	}
	if pe := normalize.PE(price, q.TrailingEps); pe.Valid {
		q.TrailingPE = pe
	}
	return q
}

// ApplySummary fills absent quote fields from a summary. A non-positive
// P/E and a zero EPS count as absent on both sides.
func ApplySummary(q quote.Quote, s quote.Summary) quote.Quote {
	if d := s.SummaryDetail; d != nil {
		if !normalize.ValidPE(q.TrailingPE) && normalize.ValidPE(d.TrailingPE) {
			q.TrailingPE = normalize.Finite(d.TrailingPE)
		}
		q.RegularMarketOpen = normalize.PreferFloat(q.RegularMarketOpen, d.Open)
		q.RegularMarketDayHigh = normalize.PreferFloat(q.RegularMarketDayHigh, d.DayHigh)
		q.RegularMarketDayLow = normalize.PreferFloat(q.RegularMarketDayLow, d.DayLow)
		q.RegularMarketVolume = normalize.PreferFloat(q.RegularMarketVolume, d.Volume)
		q.MarketCap = normalize.PreferFloat(q.MarketCap, d.MarketCap)
		q.FiftyTwoWeekHigh = normalize.PreferFloat(q.FiftyTwoWeekHigh, d.FiftyTwoWeekHigh)
		q.FiftyTwoWeekLow = normalize.PreferFloat(q.FiftyTwoWeekLow, d.FiftyTwoWeekLow)
		q.AverageDailyVolume3Month = normalize.PreferFloat(q.AverageDailyVolume3Month, d.AverageVolume)
	}
	if k := s.DefaultKeyStatistics; k != nil {
		if !normalize.ValidEPS(q.TrailingEps) && normalize.ValidEPS(k.TrailingEps) {
			q.TrailingEps = normalize.Finite(k.TrailingEps)
		}
	}
	return q
}

// Package aggregate merges quotes field by field and projects them into
// summary and screener shapes.
package aggregate

import (
	"github.com/guregu/null/v6"

	"marketquotes/internal/normalize"
	"marketquotes/internal/quote"
)

// FillMissing returns base with every null field taken from fallback.
// Symbol and Source always come from base. Neither input is modified.
func FillMissing(base, fallback quote.Quote) quote.Quote {
	out := base
	floats := floatFields(&fallback)
	for i, dst := range floatFields(&out) {
		if !normalize.Finite(*dst).Valid {
			*dst = normalize.Finite(*floats[i])
		}
	}
	strs := stringFields(&fallback)
	for i, dst := range stringFields(&out) {
		if !normalize.String(*dst).Valid {
			*dst = normalize.String(*strs[i])
		}
	}
	ints := intFields(&fallback)
	for i, dst := range intFields(&out) {
		if !dst.Valid {
			*dst = *ints[i]
		}
	}
	return out.WithPrePostFlag()
}

// FillReference is FillMissing restricted to fields that do not depend on
// the trading session: names, currency, exchange, 52-week range, average
// volume, market cap, EPS and P/E. Day prices, changes, market state and
// the pre/post triples stay as base has them.
func FillReference(base, fallback quote.Quote) quote.Quote {
	out := base
	out.ShortName = normalize.PreferString(base.ShortName, fallback.ShortName)
	out.LongName = normalize.PreferString(base.LongName, fallback.LongName)
	out.Currency = normalize.PreferString(base.Currency, fallback.Currency)
	out.FullExchangeName = normalize.PreferString(base.FullExchangeName, fallback.FullExchangeName)

	out.AverageDailyVolume3Month = normalize.PreferFloat(base.AverageDailyVolume3Month, fallback.AverageDailyVolume3Month)
	out.FiftyTwoWeekLow = normalize.PreferFloat(base.FiftyTwoWeekLow, fallback.FiftyTwoWeekLow)
	out.FiftyTwoWeekHigh = normalize.PreferFloat(base.FiftyTwoWeekHigh, fallback.FiftyTwoWeekHigh)
	out.MarketCap = normalize.PreferFloat(base.MarketCap, fallback.MarketCap)
	out.TrailingEps = normalize.PreferFloat(base.TrailingEps, fallback.TrailingEps)
	out.TrailingPE = normalize.PreferFloat(base.TrailingPE, fallback.TrailingPE)
	return out.WithPrePostFlag()
}

func floatFields(q *quote.Quote) []*null.Float {
	return []*null.Float{
		&q.RegularMarketPrice, &q.RegularMarketChange, &q.RegularMarketChangePercent,
		&q.RegularMarketOpen, &q.RegularMarketDayLow, &q.RegularMarketDayHigh,
		&q.RegularMarketPreviousClose, &q.RegularMarketVolume,
		&q.AverageDailyVolume3Month, &q.FiftyTwoWeekLow, &q.FiftyTwoWeekHigh,
		&q.MarketCap, &q.TrailingEps, &q.TrailingPE,
		&q.PostMarketPrice, &q.PostMarketChange, &q.PostMarketChangePercent,
		&q.PreMarketPrice, &q.PreMarketChange, &q.PreMarketChangePercent,
	}
}

func stringFields(q *quote.Quote) []*null.String {
	return []*null.String{&q.ShortName, &q.LongName, &q.Currency, &q.MarketState, &q.FullExchangeName}
}

func intFields(q *quote.Quote) []*null.Int {
	return []*null.Int{&q.RegularMarketTime, &q.PostMarketTime, &q.PreMarketTime}
}

// SummaryFromQuote derives a summary from quote fields alone. ok is false
// when the quote carries no market data.
func SummaryFromQuote(q quote.Quote) (quote.Summary, bool) {
	if !q.HasData() {
		return quote.Summary{}, false
	}
	return quote.Summary{
		SummaryDetail: &quote.SummaryDetail{
			Open:             q.RegularMarketOpen,
			DayHigh:          q.RegularMarketDayHigh,
			DayLow:           q.RegularMarketDayLow,
			Volume:           q.RegularMarketVolume,
			TrailingPE:       q.TrailingPE,
			MarketCap:        q.MarketCap,
			FiftyTwoWeekHigh: q.FiftyTwoWeekHigh,
			FiftyTwoWeekLow:  q.FiftyTwoWeekLow,
			AverageVolume:    q.AverageDailyVolume3Month,
		},
		DefaultKeyStatistics: &quote.KeyStatistics{TrailingEps: q.TrailingEps},
	}, true
}

// ScreenerFromQuote projects q into a screener row keyed by symbol.
func ScreenerFromQuote(symbol string, q quote.Quote) quote.ScreenerQuote {
	return quote.ScreenerQuote{
		Symbol:                     symbol,
		ShortName:                  q.ShortName,
		LongName:                   q.LongName,
		RegularMarketPrice:         q.RegularMarketPrice,
		RegularMarketChange:        q.RegularMarketChange,
		RegularMarketChangePercent: q.RegularMarketChangePercent,
		RegularMarketVolume:        q.RegularMarketVolume,
		AverageDailyVolume3Month:   q.AverageDailyVolume3Month,
		MarketCap:                  q.MarketCap,
		EpsTrailingTwelveMonths:    q.TrailingEps,
		TrailingPE:                 q.TrailingPE,
	}
}

// MergeScreener prefers the live quote field by field and keeps the base
// row's value where the quote has none. The symbol stays the base's.
func MergeScreener(base quote.ScreenerQuote, q quote.Quote) quote.ScreenerQuote {
	live := ScreenerFromQuote(base.Symbol, q)
	return quote.ScreenerQuote{
		Symbol:                     base.Symbol,
		ShortName:                  normalize.PreferString(live.ShortName, base.ShortName),
		LongName:                   normalize.PreferString(live.LongName, base.LongName),
		RegularMarketPrice:         normalize.PreferFloat(live.RegularMarketPrice, base.RegularMarketPrice),
		RegularMarketChange:        normalize.PreferFloat(live.RegularMarketChange, base.RegularMarketChange),
		RegularMarketChangePercent: normalize.PreferFloat(live.RegularMarketChangePercent, base.RegularMarketChangePercent),
		RegularMarketVolume:        normalize.PreferFloat(live.RegularMarketVolume, base.RegularMarketVolume),
		AverageDailyVolume3Month:   normalize.PreferFloat(live.AverageDailyVolume3Month, base.AverageDailyVolume3Month),
		MarketCap:                  normalize.PreferFloat(live.MarketCap, base.MarketCap),
		EpsTrailingTwelveMonths:    normalize.PreferFloat(live.EpsTrailingTwelveMonths, base.EpsTrailingTwelveMonths),
		TrailingPE:                 normalize.PreferFloat(live.TrailingPE, base.TrailingPE),
	}
}

// LatestBySymbol collapses quotes by symbol keeping the newest
// regularMarketTime. For equal or missing timestamps, later input wins.
func LatestBySymbol(quotes []quote.Quote) map[string]quote.Quote {
	latest := make(map[string]quote.Quote, len(quotes))
	for _, q := range quotes {
		sym := normalize.Symbol(q.Symbol)
		if sym == "" {
			continue
		}
		q.Symbol = sym
		if cur, ok := latest[sym]; ok && cur.RegularMarketTime.Valid && q.RegularMarketTime.Valid &&
			q.RegularMarketTime.Int64 < cur.RegularMarketTime.Int64 {
			continue
		}
		latest[sym] = q
	}
	return latest
}

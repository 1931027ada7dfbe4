// Package quote holds the canonical market snapshot shared by every source
// adapter and consumer.
package quote

import (
	"strings"

	"github.com/guregu/null/v6"
)

// DefaultCurrency is assumed when an upstream omits the currency.
const DefaultCurrency = "USD"

// SourcePlaceholder marks a quote that no source could answer.
const SourcePlaceholder = "placeholder"

// Quote is the normalized per-symbol snapshot. Only Symbol is guaranteed;
// every other field may be null. Quote contains value types only, so a
// plain assignment yields an independent copy.
type Quote struct {
	Symbol           string      `json:"symbol"`
	ShortName        null.String `json:"shortName"`
	LongName         null.String `json:"longName"`
	Currency         null.String `json:"currency"`
	MarketState      null.String `json:"marketState"`
	FullExchangeName null.String `json:"fullExchangeName"`

	RegularMarketPrice         null.Float `json:"regularMarketPrice"`
	RegularMarketChange        null.Float `json:"regularMarketChange"`
	RegularMarketChangePercent null.Float `json:"regularMarketChangePercent"`
	RegularMarketOpen          null.Float `json:"regularMarketOpen"`
	RegularMarketDayLow        null.Float `json:"regularMarketDayLow"`
	RegularMarketDayHigh       null.Float `json:"regularMarketDayHigh"`
	RegularMarketPreviousClose null.Float `json:"regularMarketPreviousClose"`
	RegularMarketVolume        null.Float `json:"regularMarketVolume"`
	RegularMarketTime          null.Int   `json:"regularMarketTime"`

	AverageDailyVolume3Month null.Float `json:"averageDailyVolume3Month"`
	FiftyTwoWeekLow          null.Float `json:"fiftyTwoWeekLow"`
	FiftyTwoWeekHigh         null.Float `json:"fiftyTwoWeekHigh"`
	MarketCap                null.Float `json:"marketCap"`
	TrailingEps              null.Float `json:"trailingEps"`
	TrailingPE               null.Float `json:"trailingPE"`

	PostMarketPrice         null.Float `json:"postMarketPrice"`
	PostMarketChange        null.Float `json:"postMarketChange"`
	PostMarketChangePercent null.Float `json:"postMarketChangePercent"`
	PostMarketTime          null.Int   `json:"postMarketTime"`

	PreMarketPrice         null.Float `json:"preMarketPrice"`
	PreMarketChange        null.Float `json:"preMarketChange"`
	PreMarketChangePercent null.Float `json:"preMarketChangePercent"`
	PreMarketTime          null.Int   `json:"preMarketTime"`

	HasPrePostMarketData bool `json:"hasPrePostMarketData"`

	// Source names the adapter that produced the record.
	Source string `json:"source,omitempty"`
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Placeholder returns a quote carrying only the symbol and a best-effort
// display name.
func Placeholder(symbol string, name string) Quote {
	q := Quote{
		Symbol:   symbol,
		Currency: null.StringFrom(DefaultCurrency),
		Source:   SourcePlaceholder,
	}
	if name = strings.TrimSpace(name); name != "" {
		q.ShortName = null.StringFrom(name)
		q.LongName = null.StringFrom(name)
	}
	return q
}

// HasData reports whether any market field carries a value.
func (q Quote) HasData() bool {
	for _, f := range q.numbers() {
		if f.Valid {
			return true
		}
	}
	return false
}

// WithPrePostFlag recomputes HasPrePostMarketData.
func (q Quote) WithPrePostFlag() Quote {
	q.HasPrePostMarketData = q.PostMarketPrice.Valid || q.PreMarketPrice.Valid
	return q
}

func (q Quote) numbers() []null.Float {
	return []null.Float{
		q.RegularMarketPrice, q.RegularMarketChange, q.RegularMarketChangePercent,
		q.RegularMarketOpen, q.RegularMarketDayLow, q.RegularMarketDayHigh,
		q.RegularMarketPreviousClose, q.RegularMarketVolume,
		q.AverageDailyVolume3Month, q.FiftyTwoWeekLow, q.FiftyTwoWeekHigh,
		q.MarketCap, q.TrailingEps, q.TrailingPE,
		q.PostMarketPrice, q.PostMarketChange, q.PostMarketChangePercent,
		q.PreMarketPrice, q.PreMarketChange, q.PreMarketChangePercent,
	}
}

package yahooadapter

import (
	"github.com/guregu/null/v6"

	"marketquotes/internal/normalize"
	"marketquotes/internal/quote"
)

// MapQuote converts one v7 quote record. Missing or malformed fields stay
// null; the record never fails as a whole.
func MapQuote(raw map[string]any) quote.Quote {
	sym, _ := raw["symbol"].(string)
	num := func(key string) null.Float { return normalize.ToNumber(raw[key]) }

	q := quote.Quote{
		Symbol:           normalize.Symbol(sym),
		ShortName:        normalize.String(raw["shortName"]),
		LongName:         normalize.String(raw["longName"]),
		Currency:         normalize.String(raw["currency"]),
		MarketState:      normalize.String(raw["marketState"]),
		FullExchangeName: normalize.String(raw["fullExchangeName"]),

		RegularMarketPrice:         num("regularMarketPrice"),
		RegularMarketChange:        num("regularMarketChange"),
		RegularMarketChangePercent: num("regularMarketChangePercent"),
		RegularMarketOpen:          num("regularMarketOpen"),
		RegularMarketDayLow:        num("regularMarketDayLow"),
		RegularMarketDayHigh:       num("regularMarketDayHigh"),
		RegularMarketPreviousClose: num("regularMarketPreviousClose"),
		RegularMarketVolume:        num("regularMarketVolume"),
		RegularMarketTime:          normalize.Int(raw["regularMarketTime"]),

		AverageDailyVolume3Month: num("averageDailyVolume3Month"),
		FiftyTwoWeekLow:          num("fiftyTwoWeekLow"),
		FiftyTwoWeekHigh:         num("fiftyTwoWeekHigh"),
		MarketCap:                num("marketCap"),
		TrailingEps:              normalize.PreferFloat(num("epsTrailingTwelveMonths"), num("trailingEps")),

		PostMarketPrice:         num("postMarketPrice"),
		PostMarketChange:        num("postMarketChange"),
		PostMarketChangePercent: num("postMarketChangePercent"),
		PostMarketTime:          normalize.Int(raw["postMarketTime"]),

		PreMarketPrice:         num("preMarketPrice"),
		PreMarketChange:        num("preMarketChange"),
		PreMarketChangePercent: num("preMarketChangePercent"),
		PreMarketTime:          normalize.Int(raw["preMarketTime"]),
	}
	q.TrailingPE = normalize.PreferPE(num("trailingPE"), q.RegularMarketPrice, q.TrailingEps)
	return q.WithPrePostFlag()
}

// MapSummary converts a quoteSummary result. Sections missing upstream
// stay nil.
func MapSummary(raw map[string]any) quote.Summary {
	var s quote.Summary
	if m, ok := raw["summaryDetail"].(map[string]any); ok {
		num := func(key string) null.Float { return normalize.ToNumber(m[key]) }
		s.SummaryDetail = &quote.SummaryDetail{
			Open:             num("open"),
			DayHigh:          num("dayHigh"),
			DayLow:           num("dayLow"),
			Volume:           num("volume"),
			TrailingPE:       num("trailingPE"),
			MarketCap:        num("marketCap"),
			FiftyTwoWeekHigh: num("fiftyTwoWeekHigh"),
			FiftyTwoWeekLow:  num("fiftyTwoWeekLow"),
			AverageVolume:    num("averageVolume"),
			DividendYield:    num("dividendYield"),
			Beta:             num("beta"),
		}
	}
	if m, ok := raw["defaultKeyStatistics"].(map[string]any); ok {
		s.DefaultKeyStatistics = &quote.KeyStatistics{TrailingEps: normalize.ToNumber(m["trailingEps"])}
	}
	if m, ok := raw["summaryProfile"].(map[string]any); ok {
		s.SummaryProfile = &quote.SummaryProfile{
			LongBusinessSummary: normalize.String(m["longBusinessSummary"]),
			Sector:              normalize.String(m["sector"]),
			Industry:            normalize.PreferString(normalize.String(m["industryDisp"]), normalize.String(m["industry"])),
			Country:             normalize.String(m["country"]),
			FullTimeEmployees:   normalize.Int(m["fullTimeEmployees"]),
			Website:             normalize.String(m["website"]),
		}
	}
	return s
}

package fmpadapter

import (
	"github.com/guregu/null/v6"

	"marketquotes/internal/normalize"
	"marketquotes/internal/provider/fmp"
	"marketquotes/internal/quote"
)

func num(p *float64) null.Float { return normalize.Finite(null.FloatFromPtr(p)) }

func str(p *string) null.String {
	if p == nil {
		return null.String{}
	}
	return normalize.String(*p)
}

// MapQuote converts one FMP quote row.
func MapQuote(r fmp.Quote) quote.Quote {
	sym := normalize.Symbol(r.Symbol)
	q := quote.Quote{
		Symbol:           sym,
		ShortName:        normalize.Name(str(r.Name), sym),
		Currency:         str(r.Currency),
		FullExchangeName: str(r.Exchange),

		RegularMarketPrice:         num(r.Price),
		RegularMarketChange:        num(r.Change),
		RegularMarketChangePercent: num(r.ChangesPercentage),
		RegularMarketOpen:          num(r.Open),
		RegularMarketDayLow:        num(r.DayLow),
		RegularMarketDayHigh:       num(r.DayHigh),
		RegularMarketPreviousClose: num(r.PreviousClose),
		RegularMarketVolume:        num(r.Volume),
		RegularMarketTime:          null.IntFromPtr(r.Timestamp),

		AverageDailyVolume3Month: num(r.AvgVolume),
		FiftyTwoWeekLow:          num(r.YearLow),
		FiftyTwoWeekHigh:         num(r.YearHigh),
		MarketCap:                num(r.MarketCap),
		TrailingEps:              num(r.EPS),

		PostMarketPrice:         num(r.PostMarketPrice),
		PostMarketChange:        num(r.PostMarketChange),
		PostMarketChangePercent: num(r.PostMarketChangePercent),
		PreMarketPrice:          num(r.PreMarketPrice),
		PreMarketChange:         num(r.PreMarketChange),
		PreMarketChangePercent:  num(r.PreMarketChangePercent),
	}
	q.TrailingPE = normalize.PreferPE(num(r.PE), q.RegularMarketPrice, q.TrailingEps)
	return q.WithPrePostFlag()
}

// MapSummary builds a summary from a mapped quote and an optional profile.
// The dividend yield is lastDiv / price when both are present.
func MapSummary(q quote.Quote, p *fmp.Profile) quote.Summary {
	s := quote.Summary{
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
	}
	if p == nil {
		return s
	}
	s.SummaryDetail.Beta = num(p.Beta)
	if div, price := num(p.LastDiv), q.RegularMarketPrice; div.Valid && div.Float64 != 0 && price.Valid && price.Float64 != 0 {
		s.SummaryDetail.DividendYield = normalize.Finite(null.FloatFrom(div.Float64 / price.Float64))
	}
	s.SummaryProfile = &quote.SummaryProfile{
		LongBusinessSummary: str(p.Description),
		Sector:              str(p.Sector),
		Industry:            str(p.Industry),
		Country:             str(p.Country),
		FullTimeEmployees:   normalize.Int(p.FullTimeEmployees),
		Website:             str(p.Website),
	}
	return s
}

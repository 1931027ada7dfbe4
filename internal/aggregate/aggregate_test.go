package aggregate

import (
	"math"
	"testing"

	"github.com/guregu/null/v6"

	"marketquotes/internal/quote"
)

func TestFillMissing_OnlyFillsNulls(t *testing.T) {
	base := quote.Quote{
		Symbol:             "AAPL",
		RegularMarketPrice: null.FloatFrom(190),
		TrailingPE:         null.FloatFrom(math.NaN()),
		Source:             "yahoo",
	}
	fallback := quote.Quote{
		Symbol:             "XXX",
		ShortName:          null.StringFrom("Apple Inc."),
		RegularMarketPrice: null.FloatFrom(185.92),
		TrailingPE:         null.FloatFrom(30.33),
		PostMarketPrice:    null.FloatFrom(186.4),
		PostMarketTime:     null.IntFrom(1704499200),
		Source:             "offline",
	}

	got := FillMissing(base, fallback)

	if got.Symbol != "AAPL" || got.Source != "yahoo" {
		t.Fatalf("identity changed: %+v", got)
	}
	if got.RegularMarketPrice.Float64 != 190 {
		t.Fatalf("valid price overwritten: %v", got.RegularMarketPrice)
	}
	if got.TrailingPE.Float64 != 30.33 {
		t.Fatalf("NaN P/E not replaced: %v", got.TrailingPE)
	}
	if got.ShortName.String != "Apple Inc." || got.PostMarketTime.Int64 != 1704499200 {
		t.Fatalf("missing fields not filled: %+v", got)
	}
	if !got.HasPrePostMarketData {
		t.Fatalf("pre/post flag not recomputed")
	}
	if base.ShortName.Valid || !math.IsNaN(base.TrailingPE.Float64) {
		t.Fatalf("base mutated: %+v", base)
	}
}

func TestSummaryFromQuote(t *testing.T) {
	if _, ok := SummaryFromQuote(quote.Placeholder("ZZZZ", "")); ok {
		t.Fatalf("placeholder must not yield a summary")
	}

	q := quote.Quote{
		Symbol:                   "KO",
		RegularMarketOpen:        null.FloatFrom(59.5),
		AverageDailyVolume3Month: null.FloatFrom(1.2e7),
		TrailingEps:              null.FloatFrom(2.5),
	}
	s, ok := SummaryFromQuote(q)
	if !ok {
		t.Fatalf("want summary")
	}
	if s.SummaryDetail.Open.Float64 != 59.5 || s.SummaryDetail.AverageVolume.Float64 != 1.2e7 {
		t.Fatalf("unexpected detail: %+v", s.SummaryDetail)
	}
	if s.DefaultKeyStatistics.TrailingEps.Float64 != 2.5 || s.SummaryProfile != nil {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestMergeScreener_PrefersLive(t *testing.T) {
	base := quote.ScreenerQuote{
		Symbol:             "NVDA",
		ShortName:          null.StringFrom("NVIDIA"),
		RegularMarketPrice: null.FloatFrom(480),
		MarketCap:          null.FloatFrom(1.18e12),
	}
	live := quote.Quote{
		Symbol:             "NVDA",
		RegularMarketPrice: null.FloatFrom(490.97),
		TrailingPE:         null.FloatFrom(64.6),
	}

	got := MergeScreener(base, live)

	if got.RegularMarketPrice.Float64 != 490.97 {
		t.Fatalf("live price not preferred: %v", got.RegularMarketPrice)
	}
	if got.MarketCap.Float64 != 1.18e12 || got.ShortName.String != "NVIDIA" {
		t.Fatalf("base fields lost: %+v", got)
	}
	if got.TrailingPE.Float64 != 64.6 {
		t.Fatalf("live P/E missing: %v", got.TrailingPE)
	}
}

func TestLatestBySymbol_NewestWins(t *testing.T) {
	in := []quote.Quote{
		{Symbol: "^gspc", RegularMarketPrice: null.FloatFrom(1), RegularMarketTime: null.IntFrom(200)},
		{Symbol: "^GSPC", RegularMarketPrice: null.FloatFrom(2), RegularMarketTime: null.IntFrom(100)},
		{Symbol: "^DJI", RegularMarketPrice: null.FloatFrom(3)},
		{Symbol: "^DJI", RegularMarketPrice: null.FloatFrom(4)},
		{Symbol: " "},
	}

	out := LatestBySymbol(in)

	if len(out) != 2 {
		t.Fatalf("want 2, got %d: %+v", len(out), out)
	}
	if out["^GSPC"].RegularMarketPrice.Float64 != 1 {
		t.Fatalf("older row won: %+v", out["^GSPC"])
	}
	if out["^DJI"].RegularMarketPrice.Float64 != 4 {
		t.Fatalf("later input should win without timestamps: %+v", out["^DJI"])
	}
}

func TestFillReference_LeavesSessionFields(t *testing.T) {
	base := quote.Quote{Symbol: "AAPL", RegularMarketPrice: null.FloatFrom(230), Source: "yahoo"}
	fallback := quote.Quote{
		Symbol:              "AAPL",
		ShortName:           null.StringFrom("Apple Inc."),
		MarketState:         null.StringFrom("CLOSED"),
		RegularMarketChange: null.FloatFrom(-1.2),
		MarketCap:           null.FloatFrom(2.9e12),
		TrailingEps:         null.FloatFrom(6.13),
		PreMarketPrice:      null.FloatFrom(184),
		PreMarketTime:       null.IntFrom(1704445200),
	}

	got := FillReference(base, fallback)

	if got.ShortName.String != "Apple Inc." || got.MarketCap.Float64 != 2.9e12 || got.TrailingEps.Float64 != 6.13 {
		t.Fatalf("reference fields not filled: %+v", got)
	}
	if got.MarketState.Valid || got.RegularMarketChange.Valid || got.PreMarketPrice.Valid || got.PreMarketTime.Valid {
		t.Fatalf("session fields copied: %+v", got)
	}
	if got.HasPrePostMarketData || got.Source != "yahoo" {
		t.Fatalf("unexpected flag or source: %+v", got)
	}
}

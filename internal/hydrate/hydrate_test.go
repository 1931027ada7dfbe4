package hydrate_test

import (
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/require"

	"marketquotes/internal/hydrate"
	"marketquotes/internal/quote"
)

type fakeOffline struct {
	quotes    map[string]quote.Quote
	summaries map[string]quote.Summary
	lookups   int
}

func (f *fakeOffline) Quote(symbol string) (quote.Quote, bool) {
	f.lookups++
	q, ok := f.quotes[symbol]
	return q, ok
}

func (f *fakeOffline) Summary(symbol string) (quote.Summary, bool) {
	f.lookups++
	s, ok := f.summaries[symbol]
	return s.Clone(), ok
}

func TestHydrate_DerivesPE(t *testing.T) {
	t.Parallel()

	h := hydrate.New(&fakeOffline{})
	q := quote.Quote{Symbol: "AAPL", RegularMarketPrice: null.FloatFrom(150), TrailingEps: null.FloatFrom(10)}

	got := h.Hydrate("AAPL", q, nil)

	require.InDelta(t, 15.0, got.TrailingPE.Float64, 1e-9)
}

func TestHydrate_ZeroEPSLeavesPENull(t *testing.T) {
	t.Parallel()

	h := hydrate.New(&fakeOffline{})
	q := quote.Quote{Symbol: "XYZ", RegularMarketPrice: null.FloatFrom(150), TrailingEps: null.FloatFrom(0)}

	got := h.Hydrate("XYZ", q, nil)

	require.False(t, got.TrailingPE.Valid)
	require.Equal(t, 0.0, got.TrailingEps.Float64)
}

func TestHydrate_NegativeEPSLeavesPENull(t *testing.T) {
	t.Parallel()

	q := quote.Quote{Symbol: "XYZ", RegularMarketPrice: null.FloatFrom(150), TrailingEps: null.FloatFrom(-3)}

	got := (*hydrate.Hydrator)(nil).Hydrate("XYZ", q, nil)

	require.False(t, got.TrailingPE.Valid)
}

func TestHydrate_Order(t *testing.T) {
	t.Parallel()

	// Arrange: the known summary has EPS only, offline has P/E and a price
	offline := &fakeOffline{
		summaries: map[string]quote.Summary{"MSFT": {
			SummaryDetail:        &quote.SummaryDetail{TrailingPE: null.FloatFrom(37.66), Beta: null.FloatFrom(0.9)},
			DefaultKeyStatistics: &quote.KeyStatistics{TrailingEps: null.FloatFrom(9.94)},
		}},
	}
	known := &quote.Summary{
		SummaryDetail:        &quote.SummaryDetail{Volume: null.FloatFrom(22_500_000)},
		DefaultKeyStatistics: &quote.KeyStatistics{TrailingEps: null.FloatFrom(10)},
	}
	q := quote.Quote{Symbol: "MSFT", RegularMarketPrice: null.FloatFrom(400)}

	// Act
	got := hydrate.New(offline).Hydrate("msft", q, known)

	// Assert: known EPS wins, P/E comes from the offline summary
	require.InDelta(t, 10.0, got.TrailingEps.Float64, 1e-9)
	require.InDelta(t, 37.66, got.TrailingPE.Float64, 1e-9)
	require.InDelta(t, 22_500_000.0, got.RegularMarketVolume.Float64, 1e-9)
	require.InDelta(t, 400.0, got.RegularMarketPrice.Float64, 1e-9)
}

func TestHydrate_OfflineQuoteFillsAbsentOnly(t *testing.T) {
	t.Parallel()

	offline := &fakeOffline{quotes: map[string]quote.Quote{"KO": {
		Symbol:              "KO",
		RegularMarketPrice:  null.FloatFrom(59),
		RegularMarketVolume: null.FloatFrom(1e7),
		TrailingEps:         null.FloatFrom(2.36),
	}}}
	q := quote.Quote{Symbol: "KO", RegularMarketVolume: null.FloatFrom(5e6)}

	got := hydrate.New(offline).Hydrate("KO", q, nil)

	require.InDelta(t, 5e6, got.RegularMarketVolume.Float64, 1e-9)
	require.InDelta(t, 59.0, got.RegularMarketPrice.Float64, 1e-9)
	require.InDelta(t, 2.36, got.TrailingEps.Float64, 1e-9)
	require.InDelta(t, 25.0, got.TrailingPE.Float64, 1e-9)
}

func TestHydrate_SkipsLookupsWhenComplete(t *testing.T) {
	t.Parallel()

	offline := &fakeOffline{}
	q := quote.Quote{Symbol: "AAPL", TrailingPE: null.FloatFrom(30), TrailingEps: null.FloatFrom(6)}

	got := hydrate.New(offline).Hydrate("AAPL", q, nil)

	require.Equal(t, q, got)
	require.Zero(t, offline.lookups)
}

func TestHydrate_Idempotent(t *testing.T) {
	t.Parallel()

	offline := &fakeOffline{
		quotes: map[string]quote.Quote{"NFLX": {Symbol: "NFLX", RegularMarketPrice: null.FloatFrom(485), MarketCap: null.FloatFrom(2.1e11)}},
		summaries: map[string]quote.Summary{"NFLX": {
			DefaultKeyStatistics: &quote.KeyStatistics{TrailingEps: null.FloatFrom(0)},
		}},
	}
	h := hydrate.New(offline)
	cases := []quote.Quote{
		{Symbol: "NFLX"},
		{Symbol: "NFLX", TrailingEps: null.FloatFrom(11.2)},
		{Symbol: "NFLX", RegularMarketPrice: null.FloatFrom(-1), TrailingEps: null.FloatFrom(11.2)},
		{Symbol: "ZZZZ", RegularMarketPrice: null.FloatFrom(10), TrailingPE: null.FloatFrom(-5)},
	}

	for _, q := range cases {
		once := h.Hydrate(q.Symbol, q, nil)
		twice := h.Hydrate(q.Symbol, once, nil)
		require.Equal(t, once, twice)
	}
}

func TestHydrate_LivePriceKeepsSessionFields(t *testing.T) {
	t.Parallel()

	// Arrange: a live index quote against a stale closed-session snapshot
	offline := &fakeOffline{quotes: map[string]quote.Quote{"^GSPC": {
		Symbol:                     "^GSPC",
		LongName:                   null.StringFrom("S&P 500"),
		MarketState:                null.StringFrom("CLOSED"),
		RegularMarketPrice:         null.FloatFrom(4697.24),
		RegularMarketChange:        null.FloatFrom(8.56),
		RegularMarketChangePercent: null.FloatFrom(0.1826),
		RegularMarketTime:          null.IntFrom(1704488400),
		FiftyTwoWeekHigh:           null.FloatFrom(4793.3),
		PostMarketPrice:            null.FloatFrom(4699.1),
		PostMarketTime:             null.IntFrom(1704499200),
	}}}
	live := quote.Quote{
		Symbol:             "^GSPC",
		RegularMarketPrice: null.FloatFrom(6100),
		RegularMarketTime:  null.IntFrom(1760630400),
		Source:             "fmp",
	}

	// Act
	got := hydrate.New(offline).Hydrate("^GSPC", live, nil)

	// Assert
	require.InDelta(t, 6100.0, got.RegularMarketPrice.Float64, 1e-9)
	require.Equal(t, int64(1760630400), got.RegularMarketTime.Int64)
	require.False(t, got.RegularMarketChange.Valid)
	require.False(t, got.RegularMarketChangePercent.Valid)
	require.False(t, got.MarketState.Valid)
	require.False(t, got.PostMarketPrice.Valid)
	require.False(t, got.PostMarketTime.Valid)
	require.False(t, got.HasPrePostMarketData)
	require.Equal(t, "S&P 500", got.LongName.String)
	require.InDelta(t, 4793.3, got.FiftyTwoWeekHigh.Float64, 1e-9)
	require.Equal(t, "fmp", got.Source)
}

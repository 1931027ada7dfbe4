package markets

import (
	"slices"
	"strings"
)

// SourceType selects how an instrument is looked up.
type SourceType string

const (
	// SourceCollection reads a row from a bulk collection such as quotes/index.
	SourceCollection SourceType = "collection"
	// SourceQuote resolves the symbol through the quote chain.
	SourceQuote SourceType = "quote"
)

// SourceRef is one lookup attempt for an instrument.
type SourceRef struct {
	Type   SourceType `json:"type"`
	Path   string     `json:"path,omitempty"`
	Symbol string     `json:"symbol"`
}

// Instrument is one overview tile.
type Instrument struct {
	Symbol    string `json:"symbol"`
	ShortName string `json:"shortName"`
	// NewsSymbol is used for headlines when the instrument itself has
	// little coverage, as with futures.
	NewsSymbol string      `json:"newsSymbol,omitempty"`
	Sources    []SourceRef `json:"sources"`
}

// Session names an instrument table.
type Session string

const (
	SessionPre     Session = "pre"
	SessionRegular Session = "regular"
)

func sources(path, collectionSymbol, quoteSymbol string) []SourceRef {
	return []SourceRef{
		{Type: SourceCollection, Path: path, Symbol: collectionSymbol},
		{Type: SourceQuote, Symbol: quoteSymbol},
	}
}

func instrument(symbol, name, path, collectionSymbol, newsSymbol string) Instrument {
	return Instrument{
		Symbol:     symbol,
		ShortName:  name,
		NewsSymbol: newsSymbol,
		Sources:    sources(path, collectionSymbol, symbol),
	}
}

var (
	commodities = []Instrument{
		instrument("CL=F", "Crude Oil", "quotes/commodity", "CL=F", ""),
		instrument("GC=F", "Gold", "quotes/commodity", "GC=F", ""),
		instrument("SI=F", "Silver", "quotes/commodity", "SI=F", ""),
		instrument("EURUSD=X", "EUR/USD", "quotes/forex", "EURUSD", ""),
		instrument("^TNX", "10 Year Bond", "quotes/treasury", "^TNX", ""),
		instrument("BTC-USD", "Bitcoin", "quotes/crypto", "BTCUSD", ""),
	}

	preMarket = append([]Instrument{
		instrument("ES=F", "S&P 500 Futures", "quotes/futures", "ES=F", "^GSPC"),
		instrument("NQ=F", "NASDAQ Futures", "quotes/futures", "NQ=F", "^IXIC"),
		instrument("YM=F", "Dow Jones Futures", "quotes/futures", "YM=F", "^DJI"),
		instrument("RTY=F", "Russell 2000 Futures", "quotes/futures", "RTY=F", "^RUT"),
	}, commodities...)

	regular = append([]Instrument{
		instrument("^GSPC", "S&P 500", "quotes/index", "^GSPC", ""),
		instrument("^IXIC", "NASDAQ", "quotes/index", "^IXIC", ""),
		instrument("^DJI", "Dow Jones", "quotes/index", "^DJI", ""),
		instrument("^RUT", "Russell 2000", "quotes/index", "^RUT", ""),
	}, commodities...)
)

// Instruments returns a copy of the table for session. Anything other than
// "pre" selects the regular table.
func Instruments(session Session) []Instrument {
	src := regular
	if Session(strings.ToLower(strings.TrimSpace(string(session)))) == SessionPre {
		src = preMarket
	}
	out := make([]Instrument, len(src))
	for i, in := range src {
		in.Sources = slices.Clone(in.Sources)
		out[i] = in
	}
	return out
}

// NewsSymbol maps an instrument symbol to the ticker used for headlines.
// Unknown symbols map to themselves.
func NewsSymbol(symbol string) string {
	for _, table := range [][]Instrument{preMarket, regular} {
		for _, in := range table {
			if in.Symbol == symbol && in.NewsSymbol != "" {
				return in.NewsSymbol
			}
		}
	}
	return symbol
}

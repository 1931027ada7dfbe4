package quote

import "github.com/guregu/null/v6"

// Summary holds the fundamentals used to backfill a quote. A nil section
// means the source had nothing for it; the zero Summary is valid.
type Summary struct {
	SummaryDetail        *SummaryDetail  `json:"summaryDetail,omitempty"`
	DefaultKeyStatistics *KeyStatistics  `json:"defaultKeyStatistics,omitempty"`
	SummaryProfile       *SummaryProfile `json:"summaryProfile,omitempty"`
}

type SummaryDetail struct {
	Open             null.Float `json:"open"`
	DayHigh          null.Float `json:"dayHigh"`
	DayLow           null.Float `json:"dayLow"`
	Volume           null.Float `json:"volume"`
	TrailingPE       null.Float `json:"trailingPE"`
	MarketCap        null.Float `json:"marketCap"`
	FiftyTwoWeekHigh null.Float `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow  null.Float `json:"fiftyTwoWeekLow"`
	AverageVolume    null.Float `json:"averageVolume"`
	DividendYield    null.Float `json:"dividendYield"`
	Beta             null.Float `json:"beta"`
}

type KeyStatistics struct {
	TrailingEps null.Float `json:"trailingEps"`
}

type SummaryProfile struct {
	LongBusinessSummary null.String `json:"longBusinessSummary"`
	Sector              null.String `json:"sector"`
	Industry            null.String `json:"industryDisp"`
	Country             null.String `json:"country"`
	FullTimeEmployees   null.Int    `json:"fullTimeEmployees"`
	Website             null.String `json:"website"`
}

// IsEmpty reports whether every section is absent.
func (s Summary) IsEmpty() bool {
	return s.SummaryDetail == nil && s.DefaultKeyStatistics == nil && s.SummaryProfile == nil
}

// Clone returns a copy that shares no section pointers with s.
func (s Summary) Clone() Summary {
	var out Summary
	if s.SummaryDetail != nil {
		d := *s.SummaryDetail
		out.SummaryDetail = &d
	}
	if s.DefaultKeyStatistics != nil {
		k := *s.DefaultKeyStatistics
		out.DefaultKeyStatistics = &k
	}
	if s.SummaryProfile != nil {
		p := *s.SummaryProfile
		out.SummaryProfile = &p
	}
	return out
}

// ScreenerQuote is the tabular projection of a quote.
type ScreenerQuote struct {
	Symbol                     string      `json:"symbol"`
	ShortName                  null.String `json:"shortName"`
	LongName                   null.String `json:"longName"`
	RegularMarketPrice         null.Float  `json:"regularMarketPrice"`
	RegularMarketChange        null.Float  `json:"regularMarketChange"`
	RegularMarketChangePercent null.Float  `json:"regularMarketChangePercent"`
	RegularMarketVolume        null.Float  `json:"regularMarketVolume"`
	AverageDailyVolume3Month   null.Float  `json:"averageDailyVolume3Month"`
	MarketCap                  null.Float  `json:"marketCap"`
	EpsTrailingTwelveMonths    null.Float  `json:"epsTrailingTwelveMonths"`
	TrailingPE                 null.Float  `json:"trailingPE"`
}

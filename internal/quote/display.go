package quote

import (
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"marketquotes/internal/normalize"
)

// DisplaySource names the session a displayed price came from.
type DisplaySource string

const (
	DisplayRegular DisplaySource = "regular"
	DisplayPre     DisplaySource = "pre"
	DisplayPost    DisplaySource = "post"
)

// DefaultDisplayMaxAge bounds how old an extended-hours print may be and
// still count as fresh when the market state is unknown.
const DefaultDisplayMaxAge = 8 * time.Hour

// DisplayMetrics is the price triple chosen for presentation.
type DisplayMetrics struct {
	Price         null.Float    `json:"price"`
	Change        null.Float    `json:"change"`
	ChangePercent null.Float    `json:"changePercent"`
	Source        DisplaySource `json:"source"`
}

// ResolveDisplayMetrics picks the regular, pre or post market triple to show.
func ResolveDisplayMetrics(q Quote) DisplayMetrics {
	return ResolveDisplayMetricsAt(q, time.Now(), DefaultDisplayMaxAge)
}

// ResolveDisplayMetricsAt is ResolveDisplayMetrics with an explicit clock
// and freshness window.
//
// Preference order: market state (POST/AFTER, then PRE), freshness of
// extended-hours prints when the state is unknown, the regular session,
// then any extended-hours print at all.
func ResolveDisplayMetricsAt(q Quote, now time.Time, maxAge time.Duration) DisplayMetrics {
	if maxAge <= 0 {
		maxAge = DefaultDisplayMaxAge
	}
	state := ""
	if q.MarketState.Valid {
		state = strings.ToUpper(strings.TrimSpace(q.MarketState.String))
	}

	regularPrice := normalize.Finite(q.RegularMarketPrice)
	postPrice := normalize.Finite(q.PostMarketPrice)
	prePrice := normalize.Finite(q.PreMarketPrice)

	fresh := func(ts null.Int) bool {
		if !ts.Valid {
			return false
		}
		return now.Unix()-ts.Int64 <= int64(maxAge/time.Second)
	}

	prefersPost := (state != "" && (strings.HasPrefix(state, "POST") || strings.HasPrefix(state, "AFTER"))) ||
		(state == "" && postPrice.Valid && fresh(q.PostMarketTime))
	prefersPre := (state != "" && strings.HasPrefix(state, "PRE")) ||
		(state == "" && prePrice.Valid && fresh(q.PreMarketTime))

	switch {
	case postPrice.Valid && prefersPost:
		return extended(postPrice, q.PostMarketChange, q.PostMarketChangePercent, regularPrice, DisplayPost)
	case prePrice.Valid && prefersPre:
		return extended(prePrice, q.PreMarketChange, q.PreMarketChangePercent, regularPrice, DisplayPre)
	case regularPrice.Valid:
		return DisplayMetrics{
			Price:         regularPrice,
			Change:        normalize.Finite(q.RegularMarketChange),
			ChangePercent: normalize.Finite(q.RegularMarketChangePercent),
			Source:        DisplayRegular,
		}
	case postPrice.Valid:
		return extended(postPrice, q.PostMarketChange, q.PostMarketChangePercent, normalize.PreferFloat(prePrice, regularPrice), DisplayPost)
	case prePrice.Valid:
		return extended(prePrice, q.PreMarketChange, q.PreMarketChangePercent, regularPrice, DisplayPre)
	}
	return DisplayMetrics{Source: DisplayRegular}
}

func extended(price, change, percent, reference null.Float, source DisplaySource) DisplayMetrics {
	change = normalize.Finite(change)
	if !change.Valid && reference.Valid {
		change = null.FloatFrom(price.Float64 - reference.Float64)
	}
	percent = normalize.Finite(percent)
	if !percent.Valid && change.Valid && reference.Valid && reference.Float64 != 0 {
		percent = null.FloatFrom(change.Float64 / reference.Float64 * 100)
	}
	return DisplayMetrics{Price: price, Change: change, ChangePercent: percent, Source: source}
}

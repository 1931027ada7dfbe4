// Package screener pages through Yahoo predefined screeners and enriches
// the rows through the quote chain.
package screener

import (
	"context"
	"errors"

	"github.com/guregu/null/v6"
	"github.com/sirupsen/logrus"

	"marketquotes/internal/aggregate"
	"marketquotes/internal/normalize"
	"marketquotes/internal/provider/offline"
	"marketquotes/internal/provider/yahoo"
	"marketquotes/internal/provider/yahooadapter"
	"marketquotes/internal/quote"
)

const (
	ItemsPerPage = 40
	MaxPages     = 25

	FallbackTitle       = "Live screener data temporarily unavailable"
	FallbackDescription = "Live screener results are currently unavailable. Showing placeholder symbols instead."
)

var errNoQuotes = errors.New("screener: no quotes returned")

// Pages fetches one screener page.
type Pages interface {
	Screener(ctx context.Context, scrID string, start, count int) (*yahoo.ScreenerPage, error)
}

// Quotes resolves symbols through the quote chain.
type Quotes interface {
	GetQuotes(ctx context.Context, symbols []string) map[string]quote.Quote
}

// Result is a screener table.
type Result struct {
	ID            string                `json:"id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	CanonicalName string                `json:"canonicalName"`
	Quotes        []quote.ScreenerQuote `json:"quotes"`
	Start         int                   `json:"start"`
	Count         int                   `json:"count"`
	Total         int                   `json:"total"`
}

type Service struct {
	pages    Pages
	quotes   Quotes
	fallback []string
	log      logrus.FieldLogger
}

// NewService builds a screener. fallback lists the symbols shown when the
// live screener fails; pages may be nil to always use them.
func NewService(pages Pages, quotes Quotes, fallback []string, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{pages: pages, quotes: quotes, fallback: fallback, log: log.WithField("component", "screener")}
}

// Results returns up to count rows of screener id; count <= 0 means as
// many as the page limit allows. It never fails: on any upstream error the
// fallback symbols are returned instead.
func (s *Service) Results(ctx context.Context, id string, count int) Result {
	res, err := s.live(ctx, id, count)
	if err == nil {
		return res
	}
	s.log.WithError(err).WithField("screener", id).Warn("failed to fetch screener stocks")
	return s.fallbackResult(ctx, id, count)
}

func (s *Service) live(ctx context.Context, id string, count int) (Result, error) {
	if s.pages == nil {
		return Result{}, errNoQuotes
	}
	desired := count
	if desired <= 0 {
		desired = ItemsPerPage * MaxPages
	}

	var (
		rows   []quote.ScreenerQuote
		seen   = make(map[string]struct{})
		first  *yahoo.ScreenerPage
		start  int
		total  = -1
		pageNo int
	)
	for len(rows) < desired && pageNo < MaxPages && (total < 0 || start < total) {
		size := min(ItemsPerPage, desired-len(rows))
		page, err := s.pages.Screener(ctx, id, start, size)
		if err != nil {
			return Result{}, err
		}
		if first == nil {
			first = page
		}
		for _, raw := range page.Quotes {
			row := Row(raw)
			if row.Symbol == "" {
				continue
			}
			if _, dup := seen[row.Symbol]; dup {
				continue
			}
			seen[row.Symbol] = struct{}{}
			rows = append(rows, row)
			if len(rows) >= desired {
				break
			}
		}

		received := len(page.Quotes)
		if page.Total != nil {
			total = *page.Total
		} else if total < 0 {
			total = received
		}
		if received == 0 {
			break
		}
		start += received
		pageNo++
	}
	if first == nil || len(rows) == 0 {
		return Result{}, errNoQuotes
	}

	rows = s.enrich(ctx, rows)
	res := Result{
		ID:            first.ID,
		Title:         first.Title,
		Description:   first.Description,
		CanonicalName: first.CanonicalName,
		Quotes:        rows,
		Count:         len(rows),
		Total:         max(len(rows), total),
	}
	if res.ID == "" {
		res.ID = id
	}
	if res.CanonicalName == "" {
		res.CanonicalName = id
	}
	if res.Title == "" {
		res.Title = "Market data unavailable"
	}
	return res, nil
}

// Row converts a raw screener record. Missing P/E is derived from price and
// trailing EPS.
func Row(raw map[string]any) quote.ScreenerQuote {
	q := yahooadapter.MapQuote(raw)
	row := aggregate.ScreenerFromQuote(q.Symbol, q)
	row.ShortName = normalize.PreferString(q.ShortName, q.LongName, null.NewString(q.Symbol, q.Symbol != ""))
	return row
}

func (s *Service) enrich(ctx context.Context, rows []quote.ScreenerQuote) []quote.ScreenerQuote {
	if s.quotes == nil {
		return rows
	}
	symbols := make([]string, len(rows))
	for i, r := range rows {
		symbols[i] = r.Symbol
	}
	live := s.quotes.GetQuotes(ctx, symbols)
	out := make([]quote.ScreenerQuote, len(rows))
	for i, r := range rows {
		q, ok := live[r.Symbol]
		if !ok || !isLive(q) {
			out[i] = r
			continue
		}
		out[i] = aggregate.MergeScreener(r, q)
	}
	return out
}

// isLive reports whether q came from an upstream rather than the offline
// snapshot or a placeholder. Only live quotes may overwrite screener rows.
func isLive(q quote.Quote) bool {
	return q.Source != quote.SourcePlaceholder && q.Source != offline.Name
}

func (s *Service) fallbackResult(ctx context.Context, id string, count int) Result {
	symbols := s.fallback
	if count > 0 && count < len(symbols) {
		symbols = symbols[:count]
	}
	var live map[string]quote.Quote
	if s.quotes != nil && len(symbols) > 0 {
		live = s.quotes.GetQuotes(ctx, symbols)
	}
	rows := make([]quote.ScreenerQuote, 0, len(symbols))
	for _, sym := range symbols {
		q, ok := live[normalize.Symbol(sym)]
		if !ok {
			q = quote.Placeholder(sym, sym)
		}
		rows = append(rows, aggregate.ScreenerFromQuote(sym, q))
	}
	return Result{
		ID:            id,
		Title:         FallbackTitle,
		Description:   FallbackDescription,
		CanonicalName: id,
		Quotes:        rows,
		Count:         len(rows),
		Total:         len(rows),
	}
}

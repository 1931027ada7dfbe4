// Package markets builds the overview tiles shown above the quote pages.
package markets

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"marketquotes/internal/aggregate"
	"marketquotes/internal/normalize"
	"marketquotes/internal/quote"
)

// Collections fetches bulk quote lists by path.
type Collections interface {
	Collection(ctx context.Context, path string) ([]quote.Quote, error)
}

// Quotes resolves symbols through the quote chain.
type Quotes interface {
	GetQuotes(ctx context.Context, symbols []string) map[string]quote.Quote
}

type Service struct {
	collections Collections
	quotes      Quotes
	log         logrus.FieldLogger
}

// NewService builds the overview service. collections may be nil when no
// bulk source is configured.
func NewService(collections Collections, quotes Quotes, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{collections: collections, quotes: quotes, log: log.WithField("component", "markets")}
}

// Snapshot returns one quote per instrument, in order. Each instrument
// takes the first source that has data; otherwise it gets a placeholder
// carrying its name.
func (s *Service) Snapshot(ctx context.Context, instruments []Instrument) []quote.Quote {
	paths := make(map[string]struct{})
	var symbols []string
	for _, in := range instruments {
		for _, src := range in.Sources {
			switch src.Type {
			case SourceCollection:
				paths[src.Path] = struct{}{}
			case SourceQuote:
				symbols = append(symbols, src.Symbol)
			}
		}
	}

	var (
		mu     sync.Mutex
		lookup = make(map[string]map[string]quote.Quote, len(paths))
		quotes map[string]quote.Quote
	)
	var g errgroup.Group
	if s.collections != nil {
		for path := range paths {
			g.Go(func() error {
				rows, err := s.collections.Collection(ctx, path)
				if err != nil {
					s.log.WithError(err).WithField("path", path).Warn("failed to load collection")
				}
				bySymbol := aggregate.LatestBySymbol(rows)
				mu.Lock()
				lookup[path] = bySymbol
				mu.Unlock()
				return nil
			})
		}
	}
	if len(symbols) > 0 && s.quotes != nil {
		g.Go(func() error {
			quotes = s.quotes.GetQuotes(ctx, symbols)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]quote.Quote, 0, len(instruments))
	for _, in := range instruments {
		out = append(out, resolve(in, lookup, quotes))
	}
	return out
}

func resolve(in Instrument, lookup map[string]map[string]quote.Quote, quotes map[string]quote.Quote) quote.Quote {
	for _, src := range in.Sources {
		var (
			q  quote.Quote
			ok bool
		)
		switch src.Type {
		case SourceCollection:
			q, ok = lookup[src.Path][normalize.Symbol(src.Symbol)]
		case SourceQuote:
			q, ok = quotes[normalize.Symbol(src.Symbol)]
			ok = ok && q.Source != quote.SourcePlaceholder
		}
		if ok {
			return override(q, in)
		}
	}
	return quote.Placeholder(in.Symbol, in.ShortName)
}

func override(q quote.Quote, in Instrument) quote.Quote {
	q.Symbol = in.Symbol
	name := normalize.PreferString(normalize.String(in.ShortName), q.ShortName)
	if !name.Valid {
		name = normalize.String(in.Symbol)
	}
	q.ShortName = name
	q.LongName = normalize.PreferString(q.LongName, name)
	return q.WithPrePostFlag()
}

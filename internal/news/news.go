// Package news fetches headlines for a symbol from the first source that
// has any.
package news

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"marketquotes/internal/normalize"
)

// DefaultLimit is used when the caller asks for no particular count.
const DefaultLimit = 5

// Article is one headline.
type Article struct {
	ID                  string    `json:"id"`
	UUID                string    `json:"uuid"`
	Title               string    `json:"title"`
	Link                string    `json:"link"`
	Publisher           string    `json:"publisher"`
	ProviderPublishTime time.Time `json:"providerPublishTime"`
	PublishedAt         string    `json:"published_at"`
	Source              string    `json:"source"`
}

// Source is one headline provider.
type Source interface {
	Name() string
	Headlines(ctx context.Context, symbol string, limit int) ([]Article, error)
}

type Service struct {
	sources []Source
	log     logrus.FieldLogger
}

func NewService(log logrus.FieldLogger, sources ...Source) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{sources: sources, log: log.WithField("component", "news")}
}

// Headlines walks the sources in order and returns the first non-empty
// list, trimmed to limit. Failures are logged; the result may be empty but
// is never nil.
func (s *Service) Headlines(ctx context.Context, symbol string, limit int) []Article {
	symbol = normalize.Symbol(symbol)
	if limit <= 0 {
		limit = DefaultLimit
	}
	if symbol == "" {
		return []Article{}
	}
	for _, src := range s.sources {
		articles, err := s.try(ctx, src, symbol, limit)
		if err != nil {
			s.log.WithFields(logrus.Fields{"provider": src.Name(), "symbol": symbol, "error": err.Error()}).Warn("news fetch failed")
			continue
		}
		if len(articles) == 0 {
			continue
		}
		if len(articles) > limit {
			articles = articles[:limit]
		}
		for i := range articles {
			if articles[i].Source == "" {
				articles[i].Source = src.Name()
			}
		}
		return articles
	}
	return []Article{}
}

func (s *Service) try(ctx context.Context, src Source, symbol string, limit int) (articles []Article, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return src.Headlines(ctx, symbol, limit)
}

// parseTime accepts RFC 3339 and FMP's "2006-01-02 15:04:05" form.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, time.DateTime} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

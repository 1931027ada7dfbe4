package news

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"marketquotes/internal/provider/alpaca"
	"marketquotes/internal/provider/fmp"
	"marketquotes/internal/provider/yahoo"
)

// FMPClient is the subset of the FMP client used for news.
type FMPClient interface {
	StockNews(ctx context.Context, ticker string, limit int) ([]fmp.Article, error)
}

type FMPSource struct{ Client FMPClient }

func (FMPSource) Name() string { return "fmp" }

func (s FMPSource) Headlines(ctx context.Context, symbol string, limit int) ([]Article, error) {
	items, err := s.Client.StockNews(ctx, symbol, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Article, 0, len(items))
	for _, a := range items {
		if strings.TrimSpace(a.Title) == "" || a.URL == "" {
			continue
		}
		out = append(out, Article{
			ID:                  a.URL,
			UUID:                a.URL,
			Title:               a.Title,
			Link:                a.URL,
			Publisher:           a.Site,
			ProviderPublishTime: parseTime(a.PublishedDate),
			PublishedAt:         a.PublishedDate,
		})
	}
	return out, nil
}

// YahooClient is the subset of the Yahoo client used for news.
type YahooClient interface {
	SearchNews(ctx context.Context, query string, newsCount int) ([]yahoo.NewsItem, error)
}

type YahooSource struct{ Client YahooClient }

func (YahooSource) Name() string { return "yahoo" }

func (s YahooSource) Headlines(ctx context.Context, symbol string, limit int) ([]Article, error) {
	items, err := s.Client.SearchNews(ctx, symbol, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Article, 0, len(items))
	for _, n := range items {
		if strings.TrimSpace(n.Title) == "" {
			continue
		}
		var published time.Time
		if n.ProviderPublishTime > 0 {
			published = time.Unix(n.ProviderPublishTime, 0).UTC()
		}
		out = append(out, Article{
			ID:                  n.UUID,
			UUID:                n.UUID,
			Title:               n.Title,
			Link:                n.Link,
			Publisher:           n.Publisher,
			ProviderPublishTime: published,
			PublishedAt:         formatTime(published),
		})
	}
	return out, nil
}

// AlpacaSource reads the Alpaca news API. The client call takes no context,
// so cancellation is only checked before the request.
type AlpacaSource struct{ Client alpaca.Client }

func (AlpacaSource) Name() string { return "alpaca" }

func (s AlpacaSource) Headlines(ctx context.Context, symbol string, limit int) ([]Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ticker, ok := alpaca.Ticker(symbol)
	if !ok {
		return nil, nil
	}
	items, err := s.Client.GetNews(marketdata.GetNewsRequest{
		Symbols:    []string{ticker},
		TotalLimit: limit,
		Sort:       marketdata.SortDesc,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Article, 0, len(items))
	for _, n := range items {
		id := strconv.Itoa(n.ID)
		out = append(out, Article{
			ID:                  id,
			UUID:                id,
			Title:               n.Headline,
			Link:                n.URL,
			Publisher:           n.Source,
			ProviderPublishTime: n.CreatedAt.UTC(),
			PublishedAt:         formatTime(n.CreatedAt),
		})
	}
	return out, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

package fmp

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Quote is one row of the quote and collection endpoints.
type Quote struct {
	Symbol                  string   `json:"symbol"`
	Name                    *string  `json:"name,omitempty"`
	Price                   *float64 `json:"price,omitempty"`
	Change                  *float64 `json:"change,omitempty"`
	ChangesPercentage       *float64 `json:"changesPercentage,omitempty"`
	DayLow                  *float64 `json:"dayLow,omitempty"`
	DayHigh                 *float64 `json:"dayHigh,omitempty"`
	YearLow                 *float64 `json:"yearLow,omitempty"`
	YearHigh                *float64 `json:"yearHigh,omitempty"`
	MarketCap               *float64 `json:"marketCap,omitempty"`
	Volume                  *float64 `json:"volume,omitempty"`
	AvgVolume               *float64 `json:"avgVolume,omitempty"`
	Open                    *float64 `json:"open,omitempty"`
	PreviousClose           *float64 `json:"previousClose,omitempty"`
	EPS                     *float64 `json:"eps,omitempty"`
	PE                      *float64 `json:"pe,omitempty"`
	Exchange                *string  `json:"exchange,omitempty"`
	Currency                *string  `json:"currency,omitempty"`
	Timestamp               *int64   `json:"timestamp,omitempty"`
	PostMarketPrice         *float64 `json:"postMarketPrice,omitempty"`
	PostMarketChange        *float64 `json:"postMarketChange,omitempty"`
	PostMarketChangePercent *float64 `json:"postMarketChangePercent,omitempty"`
	PreMarketPrice          *float64 `json:"preMarketPrice,omitempty"`
	PreMarketChange         *float64 `json:"preMarketChange,omitempty"`
	PreMarketChangePercent  *float64 `json:"preMarketChangePercent,omitempty"`
}

// Profile is one row of the company profile endpoint.
type Profile struct {
	Symbol      string   `json:"symbol"`
	Beta        *float64 `json:"beta,omitempty"`
	LastDiv     *float64 `json:"lastDiv,omitempty"`
	Website     *string  `json:"website,omitempty"`
	Description *string  `json:"description,omitempty"`
	Sector      *string  `json:"sector,omitempty"`
	Industry    *string  `json:"industry,omitempty"`
	Country     *string  `json:"country,omitempty"`
	// FullTimeEmployees arrives as a number or a numeric string.
	FullTimeEmployees any `json:"fullTimeEmployees,omitempty"`
}

// Article is one stock news item.
type Article struct {
	Symbol        string `json:"symbol"`
	PublishedDate string `json:"publishedDate"`
	Title         string `json:"title"`
	Image         string `json:"image,omitempty"`
	Site          string `json:"site,omitempty"`
	Text          string `json:"text,omitempty"`
	URL           string `json:"url"`
}

// Quotes fetches quote/{A,B,...} in one request.
func (c *Client) Quotes(ctx context.Context, symbols []string) ([]Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	escaped := make([]string, len(symbols))
	for i, s := range symbols {
		escaped[i] = url.PathEscape(s)
	}
	var out []Quote
	if err := c.get(ctx, "quote/"+strings.Join(escaped, ","), nil, &out); err != nil {
		return nil, fmt.Errorf("fmp quote: %w", err)
	}
	return out, nil
}

// Collection fetches a bulk quote list such as "quotes/index".
func (c *Client) Collection(ctx context.Context, path string) ([]Quote, error) {
	var out []Quote
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, fmt.Errorf("fmp collection %s: %w", path, err)
	}
	return out, nil
}

// Profile fetches the company profile. A missing profile is (nil, nil).
func (c *Client) Profile(ctx context.Context, symbol string) (*Profile, error) {
	var out []Profile
	if err := c.get(ctx, "profile/"+url.PathEscape(symbol), nil, &out); err != nil {
		return nil, fmt.Errorf("fmp profile: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

// StockNews fetches the latest articles for one ticker.
func (c *Client) StockNews(ctx context.Context, ticker string, limit int) ([]Article, error) {
	q := url.Values{"tickers": {ticker}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []Article
	if err := c.get(ctx, "stock_news", q, &out); err != nil {
		return nil, fmt.Errorf("fmp news: %w", err)
	}
	return out, nil
}

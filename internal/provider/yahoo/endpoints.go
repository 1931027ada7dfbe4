package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SummaryModules are requested from quoteSummary by default.
var SummaryModules = []string{"summaryDetail", "defaultKeyStatistics", "summaryProfile"}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *apiError) err() error {
	if e == nil {
		return nil
	}
	return fmt.Errorf("yahoo: %s: %s", e.Code, e.Description)
}

// Quote fetches raw quote records for symbols in one batch request.
func (c *Client) Quote(ctx context.Context, symbols []string) ([]map[string]any, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	var body struct {
		QuoteResponse struct {
			Result []map[string]any `json:"result"`
			Error  *apiError        `json:"error"`
		} `json:"quoteResponse"`
	}
	query := url.Values{"symbols": []string{strings.Join(symbols, ",")}}
	if err := c.get(ctx, "v7/finance/quote", query, &body); err != nil {
		return nil, fmt.Errorf("quote %s: %w", strings.Join(symbols, ","), err)
	}
	if err := body.QuoteResponse.Error.err(); err != nil {
		return nil, err
	}
	return body.QuoteResponse.Result, nil
}

// QuoteSummary fetches the requested modules for one symbol. Module values
// keep Yahoo's {"raw": x, "fmt": "..."} wrappers.
func (c *Client) QuoteSummary(ctx context.Context, symbol string, modules ...string) (map[string]any, error) {
	if len(modules) == 0 {
		modules = SummaryModules
	}
	var body struct {
		QuoteSummary struct {
			Result []map[string]any `json:"result"`
			Error  *apiError        `json:"error"`
		} `json:"quoteSummary"`
	}
	query := url.Values{
		"modules": []string{strings.Join(modules, ",")},
		"region":  []string{"US"},
		"lang":    []string{"en-US"},
	}
	if err := c.get(ctx, "v10/finance/quoteSummary/"+url.PathEscape(symbol), query, &body); err != nil {
		return nil, fmt.Errorf("quoteSummary %s: %w", symbol, err)
	}
	if err := body.QuoteSummary.Error.err(); err != nil {
		return nil, err
	}
	if len(body.QuoteSummary.Result) == 0 || body.QuoteSummary.Result[0] == nil {
		return nil, ErrNoResult
	}
	return body.QuoteSummary.Result[0], nil
}

// ScreenerPage is one page of a predefined screener.
type ScreenerPage struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	CanonicalName string           `json:"canonicalName"`
	Start         *int             `json:"start"`
	Count         *int             `json:"count"`
	Total         *int             `json:"total"`
	Quotes        []map[string]any `json:"quotes"`
}

// Screener fetches one page of the predefined screener scrID.
func (c *Client) Screener(ctx context.Context, scrID string, start, count int) (*ScreenerPage, error) {
	var body struct {
		Finance struct {
			Result []*ScreenerPage `json:"result"`
			Error  *apiError       `json:"error"`
		} `json:"finance"`
	}
	query := url.Values{
		"scrIds": []string{scrID},
		"count":  []string{strconv.Itoa(count)},
		"start":  []string{strconv.Itoa(start)},
		"region": []string{"US"},
		"lang":   []string{"en-US"},
	}
	if err := c.get(ctx, "v1/finance/screener/predefined/saved", query, &body); err != nil {
		return nil, fmt.Errorf("screener %s: %w", scrID, err)
	}
	if err := body.Finance.Error.err(); err != nil {
		return nil, err
	}
	if len(body.Finance.Result) == 0 || body.Finance.Result[0] == nil {
		return nil, ErrNoResult
	}
	return body.Finance.Result[0], nil
}

// NewsItem is a headline from the search endpoint.
type NewsItem struct {
	UUID                string `json:"uuid"`
	Title               string `json:"title"`
	Publisher           string `json:"publisher"`
	Link                string `json:"link"`
	ProviderPublishTime int64  `json:"providerPublishTime"`
}

// SearchNews returns up to newsCount headlines matching query.
func (c *Client) SearchNews(ctx context.Context, query string, newsCount int) ([]NewsItem, error) {
	var body struct {
		News []NewsItem `json:"news"`
	}
	q := url.Values{
		"q":                []string{query},
		"quotesCount":      []string{"1"},
		"newsCount":        []string{strconv.Itoa(newsCount)},
		"enableFuzzyQuery": []string{"true"},
	}
	if err := c.get(ctx, "v1/finance/search", q, &body); err != nil {
		return nil, fmt.Errorf("search %s: %w", query, err)
	}
	return body.News, nil
}

package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/sirupsen/logrus/hooks/test"

	"marketquotes/internal/markets"
	"marketquotes/internal/news"
	"marketquotes/internal/normalize"
	"marketquotes/internal/quote"
	"marketquotes/internal/screener"
)

type fakeQuotes struct {
	rows  map[string]quote.Quote
	calls [][]string
	panic bool
}

func (f *fakeQuotes) GetQuote(ctx context.Context, symbol string) quote.Quote {
	return f.GetQuotes(ctx, []string{symbol})[normalize.Symbol(symbol)]
}

func (f *fakeQuotes) GetQuotes(_ context.Context, symbols []string) map[string]quote.Quote {
	if f.panic {
		panic("boom")
	}
	f.calls = append(f.calls, symbols)
	out := make(map[string]quote.Quote, len(symbols))
	for _, s := range symbols {
		sym := normalize.Symbol(s)
		if q, ok := f.rows[sym]; ok {
			out[sym] = q
			continue
		}
		out[sym] = quote.Placeholder(sym, "")
	}
	return out
}

func (f *fakeQuotes) GetQuoteSummary(context.Context, string) quote.Summary {
	return quote.Summary{}
}

type fakeMarkets struct{ got []markets.Instrument }

func (f *fakeMarkets) Snapshot(_ context.Context, in []markets.Instrument) []quote.Quote {
	f.got = in
	out := make([]quote.Quote, len(in))
	for i, x := range in {
		out[i] = quote.Placeholder(x.Symbol, x.ShortName)
	}
	return out
}

type fakeScreener struct{}

func (fakeScreener) Results(_ context.Context, id string, count int) screener.Result {
	return screener.Result{ID: id, Count: count}
}

type fakeNews struct{ symbol string }

func (f *fakeNews) Headlines(_ context.Context, symbol string, _ int) []news.Article {
	f.symbol = symbol
	return []news.Article{}
}

func newTestServer(quotes *fakeQuotes, now time.Time, maxAge time.Duration) (*server, *fakeMarkets, *fakeNews) {
	log, _ := test.NewNullLogger()
	m := &fakeMarkets{}
	n := &fakeNews{}
	return &server{
		quotes:   quotes,
		markets:  m,
		screener: fakeScreener{},
		news:     n,
		maxAge:   maxAge,
		log:      log,
		now:      func() time.Time { return now },
	}, m, n
}

func do(t *testing.T, s *server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rr := httptest.NewRecorder()
	s.handler().ServeHTTP(rr, req)
	return rr
}

func TestQuotes_RequestOrderAndDedupe(t *testing.T) {
	t.Parallel()

	fq := &fakeQuotes{rows: map[string]quote.Quote{
		"AAPL": {Symbol: "AAPL", RegularMarketPrice: null.FloatFrom(150), Source: "yahoo"},
		"MSFT": {Symbol: "MSFT", RegularMarketPrice: null.FloatFrom(410), Source: "fmp"},
	}}
	s, _, _ := newTestServer(fq, time.Now(), 0)

	rr := do(t, s, http.MethodGet, "/api/quotes?symbols=msft,%20AAPL,MSFT", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp quotesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Quotes) != 2 || resp.Quotes[0].Quote.Symbol != "MSFT" || resp.Quotes[1].Quote.Symbol != "AAPL" {
		t.Fatalf("unexpected rows: %+v", resp.Quotes)
	}
	if resp.Quotes[0].Display.Price.Float64 != 410 || resp.Quotes[0].Display.Source != quote.DisplayRegular {
		t.Fatalf("unexpected display: %+v", resp.Quotes[0].Display)
	}
	if len(fq.calls) != 1 {
		t.Fatalf("want one resolver call, got %d", len(fq.calls))
	}
}

func TestQuotes_PostValidation(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(&fakeQuotes{}, time.Now(), 0)

	if rr := do(t, s, http.MethodPost, "/api/quotes", `{"symbols":[]}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("empty: status=%d", rr.Code)
	}
	if rr := do(t, s, http.MethodPost, "/api/quotes", `{"tickers":["AAPL"]}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: status=%d", rr.Code)
	}
	many := `{"symbols":["` + strings.Repeat(`A","`, maxSymbols) + `B"]}`
	if rr := do(t, s, http.MethodPost, "/api/quotes", many); rr.Code != http.StatusBadRequest {
		t.Fatalf("too many: status=%d", rr.Code)
	}
	if rr := do(t, s, http.MethodPost, "/api/quotes", `{"symbols":["aapl"]}`); rr.Code != http.StatusOK {
		t.Fatalf("valid: status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr := do(t, s, http.MethodPut, "/api/quotes", `{}`); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("put: status=%d", rr.Code)
	}
}

func TestQuote_DisplayUsesConfiguredMaxAge(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 5, 22, 0, 0, 0, time.UTC)
	fq := &fakeQuotes{rows: map[string]quote.Quote{"AAPL": {
		Symbol:             "AAPL",
		RegularMarketPrice: null.FloatFrom(100),
		PostMarketPrice:    null.FloatFrom(101),
		PostMarketTime:     null.IntFrom(now.Add(-time.Hour).Unix()),
	}}}

	for _, tt := range []struct {
		maxAge time.Duration
		want   quote.DisplaySource
	}{
		{2 * time.Hour, quote.DisplayPost},
		{30 * time.Minute, quote.DisplayRegular},
	} {
		s, _, _ := newTestServer(fq, now, tt.maxAge)
		rr := do(t, s, http.MethodGet, "/api/quote/aapl", "")
		var resp quoteResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Display.Source != tt.want {
			t.Fatalf("maxAge=%s: source=%s want %s", tt.maxAge, resp.Display.Source, tt.want)
		}
	}
}

func TestMarkets_Session(t *testing.T) {
	t.Parallel()

	s, m, _ := newTestServer(&fakeQuotes{}, time.Now(), 0)

	if rr := do(t, s, http.MethodGet, "/api/markets?session=overnight", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad session: status=%d", rr.Code)
	}
	rr := do(t, s, http.MethodGet, "/api/markets?session=PRE", "")
	var resp marketsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Session != markets.SessionPre || len(resp.Quotes) != len(markets.Instruments(markets.SessionPre)) {
		t.Fatalf("unexpected: session=%s rows=%d", resp.Session, len(resp.Quotes))
	}
	if m.got[0].Symbol != "ES=F" {
		t.Fatalf("want futures first, got %s", m.got[0].Symbol)
	}
}

func TestNews_FuturesMapToIndex(t *testing.T) {
	t.Parallel()

	s, _, n := newTestServer(&fakeQuotes{}, time.Now(), 0)

	rr := do(t, s, http.MethodGet, "/api/news/es=f?limit=3", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if n.symbol != "^GSPC" {
		t.Fatalf("news asked for %q", n.symbol)
	}
	if rr := do(t, s, http.MethodGet, "/api/news/AAPL?limit=many", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: status=%d", rr.Code)
	}
}

func TestScreener_Count(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(&fakeQuotes{}, time.Now(), 0)

	rr := do(t, s, http.MethodGet, "/api/screener/day_gainers?count=7", "")
	var resp screener.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != "day_gainers" || resp.Count != 7 {
		t.Fatalf("unexpected: %+v", resp)
	}
}

func TestMiddleware_RecoverGzipCORS(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(&fakeQuotes{panic: true}, time.Now(), 0)

	// panics become 500s
	if rr := do(t, s, http.MethodGet, "/api/quotes?symbols=AAPL", ""); rr.Code != http.StatusInternalServerError {
		t.Fatalf("panic: status=%d", rr.Code)
	}

	// gzip when accepted
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	s.handler().ServeHTTP(rr, req)
	if rr.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("missing gzip header: %v", rr.Header())
	}
	zr, err := gzip.NewReader(rr.Body)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	body, _ := io.ReadAll(zr)
	if !strings.Contains(string(body), "ok") {
		t.Fatalf("body=%q", body)
	}

	// CORS preflight
	req = httptest.NewRequest(http.MethodOptions, "/api/quotes", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr = httptest.NewRecorder()
	s.handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent || rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight: status=%d headers=%v", rr.Code, rr.Header())
	}
}

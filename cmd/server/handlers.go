package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"marketquotes/internal/markets"
	"marketquotes/internal/news"
	"marketquotes/internal/normalize"
	"marketquotes/internal/quote"
	"marketquotes/internal/screener"
)

const maxSymbols = 1000

type quoteService interface {
	GetQuote(ctx context.Context, symbol string) quote.Quote
	GetQuotes(ctx context.Context, symbols []string) map[string]quote.Quote
	GetQuoteSummary(ctx context.Context, symbol string) quote.Summary
}

type marketsService interface {
	Snapshot(ctx context.Context, instruments []markets.Instrument) []quote.Quote
}

type screenerService interface {
	Results(ctx context.Context, id string, count int) screener.Result
}

type newsService interface {
	Headlines(ctx context.Context, symbol string, limit int) []news.Article
}

type server struct {
	quotes   quoteService
	markets  marketsService
	screener screenerService
	news     newsService
	maxAge   time.Duration
	timeout  time.Duration
	log      logrus.FieldLogger
	now      func() time.Time
}

type quoteResponse struct {
	Quote   quote.Quote          `json:"quote"`
	Display quote.DisplayMetrics `json:"display"`
}

type quotesResponse struct {
	Quotes []quoteResponse `json:"quotes"`
}

type marketsResponse struct {
	Session markets.Session `json:"session"`
	Quotes  []quote.Quote   `json:"quotes"`
}

type newsResponse struct {
	Symbol string         `json:"symbol"`
	News   []news.Article `json:"news"`
}

func (s *server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/quote/{symbol}", s.handleQuote).Methods(http.MethodGet)
	api.HandleFunc("/quotes", s.handleGetQuotes).Methods(http.MethodGet)
	api.HandleFunc("/quotes", s.handlePostQuotes).Methods(http.MethodPost)
	api.HandleFunc("/summary/{symbol}", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/markets", s.handleMarkets).Methods(http.MethodGet)
	api.HandleFunc("/screener/{id}", s.handleScreener).Methods(http.MethodGet)
	api.HandleFunc("/news/{symbol}", s.handleNews).Methods(http.MethodGet)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

func (s *server) context(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.timeout)
}

func (s *server) display(q quote.Quote) quoteResponse {
	return quoteResponse{Quote: q, Display: quote.ResolveDisplayMetricsAt(q, s.now(), s.maxAge)}
}

func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if normalize.Symbol(symbol) == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}
	ctx, cancel := s.context(r)
	defer cancel()
	writeJSON(w, http.StatusOK, s.display(s.quotes.GetQuote(ctx, symbol)))
}

func (s *server) handleGetQuotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("symbols")
	if strings.TrimSpace(q) == "" {
		writeError(w, http.StatusBadRequest, "missing symbols query param")
		return
	}
	s.writeQuotes(w, r, splitCSV(q))
}

type postBody struct {
	Symbols []string `json:"symbols"`
}

func (s *server) handlePostQuotes(w http.ResponseWriter, r *http.Request) {
	var b postBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(b.Symbols) == 0 {
		writeError(w, http.StatusBadRequest, "symbols cannot be empty")
		return
	}
	s.writeQuotes(w, r, b.Symbols)
}

// writeQuotes answers in request order, one row per distinct symbol.
func (s *server) writeQuotes(w http.ResponseWriter, r *http.Request, symbols []string) {
	if len(symbols) > maxSymbols {
		writeError(w, http.StatusBadRequest, "too many symbols (max 1000)")
		return
	}
	ctx, cancel := s.context(r)
	defer cancel()
	got := s.quotes.GetQuotes(ctx, symbols)

	resp := quotesResponse{Quotes: make([]quoteResponse, 0, len(got))}
	seen := make(map[string]struct{}, len(symbols))
	for _, raw := range symbols {
		key := normalize.Symbol(raw)
		if key == "" {
			key = raw
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if q, ok := got[key]; ok {
			resp.Quotes = append(resp.Quotes, s.display(q))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleSummary(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if normalize.Symbol(symbol) == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}
	ctx, cancel := s.context(r)
	defer cancel()
	writeJSON(w, http.StatusOK, s.quotes.GetQuoteSummary(ctx, symbol))
}

func (s *server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	session := markets.Session(strings.ToLower(r.URL.Query().Get("session")))
	switch session {
	case "":
		session = markets.SessionRegular
	case markets.SessionPre, markets.SessionRegular:
	default:
		writeError(w, http.StatusBadRequest, "session must be pre or regular")
		return
	}
	ctx, cancel := s.context(r)
	defer cancel()
	writeJSON(w, http.StatusOK, marketsResponse{
		Session: session,
		Quotes:  s.markets.Snapshot(ctx, markets.Instruments(session)),
	})
}

func (s *server) handleScreener(w http.ResponseWriter, r *http.Request) {
	count, ok := intParam(r, "count")
	if !ok {
		writeError(w, http.StatusBadRequest, "count must be an integer")
		return
	}
	ctx, cancel := s.context(r)
	defer cancel()
	writeJSON(w, http.StatusOK, s.screener.Results(ctx, mux.Vars(r)["id"], count))
}

func (s *server) handleNews(w http.ResponseWriter, r *http.Request) {
	symbol := normalize.Symbol(mux.Vars(r)["symbol"])
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}
	limit, ok := intParam(r, "limit")
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	ctx, cancel := s.context(r)
	defer cancel()
	target := markets.NewsSymbol(symbol)
	writeJSON(w, http.StatusOK, newsResponse{Symbol: target, News: s.news.Headlines(ctx, target, limit)})
}

// intParam returns 0 for an absent parameter.
func intParam(r *http.Request, key string) (int, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Command offline_export refreshes the embedded offline snapshot by
// resolving its symbols through the live chain. It writes the quote table
// and a summary table derived from the exported quotes.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"marketquotes/internal/aggregate"
	"marketquotes/internal/app"
	"marketquotes/internal/config"
	"marketquotes/internal/logging"
	"marketquotes/internal/normalize"
	"marketquotes/internal/provider/offline"
	"marketquotes/internal/quote"
)

// Quotes resolves a batch of symbols.
type Quotes interface {
	GetQuotes(ctx context.Context, symbols []string) map[string]quote.Quote
}

// Summaries is the current summary table, consulted for fields a quote
// cannot supply.
type Summaries interface {
	Summary(symbol string) (quote.Summary, bool)
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "offline_export",
		Usage: "regenerate the offline quote and summary tables from live sources",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "symbols-file", Usage: "JSON file whose keys are extra symbols"},
			&cli.StringFlag{Name: "symbols", Usage: "comma-separated extra symbols"},
			&cli.StringFlag{Name: "out", Usage: "quote table output path", Value: "quotes.json"},
			&cli.StringFlag{Name: "summaries-out", Usage: "summary table output path", Value: "summaries.json"},
			&cli.StringFlag{Name: "config", Usage: "path to config file", EnvVars: []string{"CONFIG_FILE"}},
			&cli.IntFlag{Name: "batch", Usage: "symbols per resolver call", Value: 50},
			&cli.IntFlag{Name: "timeout", Usage: "overall timeout seconds", Value: 120},
			&cli.BoolFlag{Name: "keep-offline", Usage: "keep the current seed for symbols no live source answered", Value: true},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logging.NewWithOutput(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("wiring: %w", err)
	}
	defer a.Close()

	symbols := a.Offline.Symbols()
	if path := c.String("symbols-file"); path != "" {
		keys, err := readKeys(path)
		if err != nil {
			return fmt.Errorf("read symbols: %w", err)
		}
		symbols = append(symbols, keys...)
	}
	symbols = append(symbols, strings.Split(c.String("symbols"), ",")...)
	symbols = normalize.UniqueSymbols(symbols)
	log.WithField("symbols", len(symbols)).Info("exporting")

	ctx, cancel := context.WithTimeout(c.Context, time.Duration(c.Int("timeout"))*time.Second)
	defer cancel()
	rows := export(ctx, a.Resolver, symbols, c.Int("batch"), c.Bool("keep-offline"), log)
	sums := summaries(rows, a.Offline)

	outPath, sumPath := c.String("out"), c.String("summaries-out")
	if err := write(outPath, rows); err != nil {
		return err
	}
	if err := write(sumPath, sums); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"rows":          len(rows),
		"summaries":     len(sums),
		"out":           outPath,
		"summaries_out": sumPath,
	}).Info("done")
	return nil
}

// export resolves symbols in batches and keeps rows with live data. Offline
// seeds are kept only when keepOffline is set; placeholders never are.
func export(ctx context.Context, quotes Quotes, symbols []string, batchSize int, keepOffline bool, log logrus.FieldLogger) map[string]quote.Quote {
	if batchSize <= 0 {
		batchSize = 50
	}
	out := make(map[string]quote.Quote, len(symbols))
	for batch := range slices.Chunk(symbols, batchSize) {
		got := quotes.GetQuotes(ctx, batch)
		live := 0
		for _, sym := range batch {
			q, ok := got[sym]
			if !ok || q.Source == quote.SourcePlaceholder {
				continue
			}
			if q.Source == offline.Name && !keepOffline {
				continue
			}
			if q.Source != offline.Name {
				live++
			}
			q.Source = ""
			out[sym] = q
		}
		log.WithFields(logrus.Fields{"batch": len(batch), "live": live}).Info("batch resolved")
	}
	return out
}

// summaries derives a summary per exported row and lays it over the current
// one, so the profile and fields quotes do not carry survive the refresh.
func summaries(rows map[string]quote.Quote, current Summaries) map[string]quote.Summary {
	out := make(map[string]quote.Summary, len(rows))
	for sym, q := range rows {
		derived, ok := aggregate.SummaryFromQuote(q)
		if !ok {
			continue
		}
		var prev quote.Summary
		if current != nil {
			prev, _ = current.Summary(sym)
		}
		out[sym] = mergeSummary(derived, prev)
	}
	return out
}

// mergeSummary prefers derived values and falls back to prev per field.
func mergeSummary(derived, prev quote.Summary) quote.Summary {
	out := prev.Clone()
	if d := derived.SummaryDetail; d != nil {
		p := out.SummaryDetail
		if p == nil {
			p = &quote.SummaryDetail{}
		}
		p.Open = normalize.PreferFloat(d.Open, p.Open)
		p.DayHigh = normalize.PreferFloat(d.DayHigh, p.DayHigh)
		p.DayLow = normalize.PreferFloat(d.DayLow, p.DayLow)
		p.Volume = normalize.PreferFloat(d.Volume, p.Volume)
		p.TrailingPE = normalize.PreferFloat(d.TrailingPE, p.TrailingPE)
		p.MarketCap = normalize.PreferFloat(d.MarketCap, p.MarketCap)
		p.FiftyTwoWeekHigh = normalize.PreferFloat(d.FiftyTwoWeekHigh, p.FiftyTwoWeekHigh)
		p.FiftyTwoWeekLow = normalize.PreferFloat(d.FiftyTwoWeekLow, p.FiftyTwoWeekLow)
		p.AverageVolume = normalize.PreferFloat(d.AverageVolume, p.AverageVolume)
		out.SummaryDetail = p
	}
	if k := derived.DefaultKeyStatistics; k != nil {
		p := out.DefaultKeyStatistics
		if p == nil {
			p = &quote.KeyStatistics{}
		}
		p.TrailingEps = normalize.PreferFloat(k.TrailingEps, p.TrailingEps)
		out.DefaultKeyStatistics = p
	}
	return out
}

// write emits v as indented JSON, in the embedded snapshot's format.
func write(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	bw := bufio.NewWriterSize(f, 1<<20)
	enc := json.NewEncoder(bw)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return bw.Flush()
}

func readKeys(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

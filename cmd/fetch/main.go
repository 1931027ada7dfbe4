// Command fetch resolves quotes, summaries, market overviews and headlines
// from the command line and prints them as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"marketquotes/internal/app"
	"marketquotes/internal/config"
	"marketquotes/internal/logging"
	"marketquotes/internal/markets"
	"marketquotes/internal/normalize"
	"marketquotes/internal/quote"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:  "fetch",
		Usage: "resolve market data through the configured provider chain",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to config file", EnvVars: []string{"CONFIG_FILE"}},
			&cli.IntFlag{Name: "timeout", Usage: "request timeout seconds", Value: 15},
			&cli.StringFlag{Name: "log-level", Usage: "override the configured log level"},
		},
		Commands: []*cli.Command{
			{
				Name:      "quote",
				Usage:     "resolve one or more symbols",
				ArgsUsage: "SYMBOL [SYMBOL...]",
				Action: withApp(out, func(ctx context.Context, a *app.App, c *cli.Context) (any, error) {
					symbols := splitArgs(c.Args().Slice())
					if len(symbols) == 0 {
						return nil, errors.New("at least one symbol is required")
					}
					got := a.Resolver.GetQuotes(ctx, symbols)
					rows := make([]quoteRow, 0, len(got))
					for _, sym := range symbols {
						if q, ok := got[sym]; ok {
							rows = append(rows, quoteRow{
								Quote:   q,
								Display: quote.ResolveDisplayMetricsAt(q, time.Now(), a.DisplayMaxAge()),
							})
						}
					}
					return rows, nil
				}),
			},
			{
				Name:      "summary",
				Usage:     "fundamentals for one symbol",
				ArgsUsage: "SYMBOL",
				Action: withApp(out, func(ctx context.Context, a *app.App, c *cli.Context) (any, error) {
					if c.NArg() != 1 {
						return nil, errors.New("exactly one symbol is required")
					}
					return a.Resolver.GetQuoteSummary(ctx, c.Args().First()), nil
				}),
			},
			{
				Name:      "news",
				Usage:     "latest headlines for a symbol",
				ArgsUsage: "SYMBOL",
				Flags:     []cli.Flag{&cli.IntFlag{Name: "limit", Value: 5}},
				Action: withApp(out, func(ctx context.Context, a *app.App, c *cli.Context) (any, error) {
					if c.NArg() != 1 {
						return nil, errors.New("exactly one symbol is required")
					}
					target := markets.NewsSymbol(normalize.Symbol(c.Args().First()))
					return a.News.Headlines(ctx, target, c.Int("limit")), nil
				}),
			},
			{
				Name:  "markets",
				Usage: "index, futures and commodity overview",
				Flags: []cli.Flag{&cli.StringFlag{Name: "session", Value: string(markets.SessionRegular), Usage: "pre or regular"}},
				Action: withApp(out, func(ctx context.Context, a *app.App, c *cli.Context) (any, error) {
					return a.Markets.Snapshot(ctx, markets.Instruments(markets.Session(c.String("session")))), nil
				}),
			},
			{
				Name:      "screener",
				Usage:     "rows of a predefined screener",
				ArgsUsage: "ID",
				Flags:     []cli.Flag{&cli.IntFlag{Name: "count", Value: 25}},
				Action: withApp(out, func(ctx context.Context, a *app.App, c *cli.Context) (any, error) {
					if c.NArg() != 1 {
						return nil, errors.New("exactly one screener id is required")
					}
					return a.Screener.Results(ctx, c.Args().First(), c.Int("count")), nil
				}),
			},
		},
	}
}

type quoteRow struct {
	Quote   quote.Quote          `json:"quote"`
	Display quote.DisplayMetrics `json:"display"`
}

type actionFunc func(ctx context.Context, a *app.App, c *cli.Context) (any, error)

// withApp loads config, wires the services and prints fn's result.
func withApp(out io.Writer, fn actionFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if t := c.Int("timeout"); t > 0 {
			cfg.Server.RequestTimeoutSec = t
		}
		if lvl := c.String("log-level"); lvl != "" {
			cfg.Log.Level = lvl
		}
		log := logging.NewWithOutput(os.Stderr, cfg.Log.Level, cfg.Log.Format)

		a, err := app.New(cfg, log)
		if err != nil {
			return fmt.Errorf("wiring: %w", err)
		}
		defer a.Close()
		log.WithField("chain", a.Chain).Debug("quote chain ready")

		ctx, cancel := context.WithTimeout(c.Context, time.Duration(cfg.Server.RequestTimeoutSec*4)*time.Second)
		defer cancel()
		v, err := fn(ctx, a, c)
		if err != nil {
			return err
		}
		return printJSON(out, v)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// splitArgs accepts both "AAPL MSFT" and "AAPL,MSFT".
func splitArgs(args []string) []string {
	var parts []string
	for _, a := range args {
		parts = append(parts, strings.Split(a, ",")...)
	}
	return normalize.UniqueSymbols(parts)
}

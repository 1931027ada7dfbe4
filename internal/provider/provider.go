package provider

import (
	"context"
	"errors"

	"marketquotes/internal/quote"
)

// ErrNotFound is returned when a source has no data for a symbol.
var ErrNotFound = errors.New("symbol not found")

// Provider is one quote source in the resolution chain. Fetch returns
// quotes keyed by normalized symbol; symbols it cannot answer are absent.
//
//go:generate mockgen -package=resolver_test -destination=../resolver/mock_provider_test.go marketquotes/internal/provider Provider
type Provider interface {
	Name() string
	Fetch(ctx context.Context, symbols []string) (map[string]quote.Quote, error)
}

// SummaryProvider supplies fundamentals for a single symbol.
type SummaryProvider interface {
	Name() string
	FetchSummary(ctx context.Context, symbol string) (*quote.Summary, error)
}

// Func adapts a plain function to Provider.
type Func struct {
	ID string
	Fn func(ctx context.Context, symbols []string) (map[string]quote.Quote, error)
}

func (f Func) Name() string { return f.ID }

func (f Func) Fetch(ctx context.Context, symbols []string) (map[string]quote.Quote, error) {
	return f.Fn(ctx, symbols)
}

package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"marketquotes/internal/quote"
)

// BatchFunc fetches quotes for a set of symbols in one upstream call.
type BatchFunc func(ctx context.Context, symbols []string) (map[string]quote.Quote, error)

// FetchBatched calls fetch once for all symbols. If that call fails, each
// symbol is retried on its own with at most limit calls in flight, so no
// symbol is dropped without a single-item attempt. onBatchErr, if set,
// observes the batch failure. An error is returned only when no symbol
// could be fetched.
func FetchBatched(ctx context.Context, symbols []string, limit int, fetch BatchFunc, onBatchErr func(error)) (map[string]quote.Quote, error) {
	out := make(map[string]quote.Quote, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	batch, batchErr := fetch(ctx, symbols)
	if batchErr == nil {
		for k, v := range batch {
			out[k] = v
		}
		return out, nil
	}
	if onBatchErr != nil {
		onBatchErr(batchErr)
	}
	if len(symbols) == 1 {
		return out, batchErr
	}

	if limit <= 0 {
		limit = 8
	}
	var (
		mu   sync.Mutex
		errs = []error{batchErr}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, sym := range symbols {
		g.Go(func() error {
			got, err := fetch(gctx, []string{sym})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", sym, err))
				return nil
			}
			for k, v := range got {
				out[k] = v
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(out) == 0 {
		return out, errors.Join(errs...)
	}
	return out, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"QuotePulse/internal/domain/models"
	drepo "QuotePulse/internal/domain/repository"
	"QuotePulse/pkg/cache"
)

const (
	quoteKeyPrefix  = "quote:"
	defaultQuoteTTL = 10 * time.Second
)

// QuoteCache stores the latest quote per symbol with a TTL of roughly
// twice the refresh interval, so an on-demand read between ticks reuses
// the scheduler's result instead of spending a provider call.
type QuoteCache struct {
	cache cache.Service
	ttl   time.Duration
}

var _ drepo.QuoteCache = (*QuoteCache)(nil)

// NewQuoteCache wraps a cache service as a quote cache. ttl <= 0 falls
// back to the default.
func NewQuoteCache(c cache.Service, ttl time.Duration) *QuoteCache {
	if ttl <= 0 {
		ttl = defaultQuoteTTL
	}
	return &QuoteCache{cache: c, ttl: ttl}
}

// Get returns the cached quote or drepo.ErrCacheMiss.
func (q *QuoteCache) Get(ctx context.Context, symbol string) (*models.Quote, error) {
	var quote models.Quote
	if err := q.cache.Get(ctx, quoteKeyPrefix+symbol, &quote); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, drepo.ErrCacheMiss
		}
		return nil, err
	}
	return &quote, nil
}

// Set stores the quote under its own symbol.
func (q *QuoteCache) Set(ctx context.Context, quote *models.Quote) error {
	return q.cache.Set(ctx, quoteKeyPrefix+quote.Symbol, quote, q.ttl)
}

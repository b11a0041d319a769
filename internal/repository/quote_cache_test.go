package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuotePulse/internal/domain/models"
	drepo "QuotePulse/internal/domain/repository"
	"QuotePulse/pkg/cache"
)

func TestQuoteCache_RoundTrip(t *testing.T) {
	qc := NewQuoteCache(cache.NewMemoryCache(), time.Minute)
	ctx := context.Background()

	q := &models.Quote{Symbol: "AAPL", Price: 180.5, PreviousClose: 179, DataSource: models.SourceFinnhub, IsRealTime: true}
	q.FillDerived()
	require.NoError(t, qc.Set(ctx, q))

	got, err := qc.Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, q.Price, got.Price)
	assert.Equal(t, q.Change, got.Change)
	assert.Equal(t, q.DataSource, got.DataSource)
}

func TestQuoteCache_MissMapsToDomainError(t *testing.T) {
	qc := NewQuoteCache(cache.NewMemoryCache(), time.Minute)

	_, err := qc.Get(context.Background(), "MSFT")

	assert.ErrorIs(t, err, drepo.ErrCacheMiss)
}

func TestQuoteCache_KeysPerSymbol(t *testing.T) {
	qc := NewQuoteCache(cache.NewMemoryCache(), time.Minute)
	ctx := context.Background()

	a := &models.Quote{Symbol: "AAPL", Price: 180}
	m := &models.Quote{Symbol: "MSFT", Price: 420}
	require.NoError(t, qc.Set(ctx, a))
	require.NoError(t, qc.Set(ctx, m))

	got, err := qc.Get(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 420.0, got.Price)
}

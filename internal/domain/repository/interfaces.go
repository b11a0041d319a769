package repository

import (
	"context"
	"errors"

	"QuotePulse/internal/domain/models"
)

// QuoteProvider is one ranked external market data source. A provider
// gets exactly one attempt per resolution; any error advances the chain.
type QuoteProvider interface {
	Name() string
	Source() models.DataSource
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
}

// InstrumentSearcher finds instruments matching a free-text query.
// Search is advisory: implementations return an error, callers degrade
// to an empty result.
type InstrumentSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
}

// Bus is the process-shared publish/subscribe fabric. One channel per
// symbol; Run blocks relaying incoming messages until ctx is done.
type Bus interface {
	Subscribe(ctx context.Context, symbol string) error
	Unsubscribe(ctx context.Context, symbol string) error
	Publish(ctx context.Context, symbol string, payload []byte) error
	Run(ctx context.Context, onMessage func(symbol string, payload []byte))
	Close() error
}

// SymbolRegistry records which symbols have at least one listener
// anywhere in the fleet. Each instance owns its own expiring membership
// entry; ActiveSymbols unions entries of all live instances, so one
// instance dropping a symbol never hides another instance's interest.
type SymbolRegistry interface {
	Add(ctx context.Context, symbol string) error
	Remove(ctx context.Context, symbol string) error
	Heartbeat(ctx context.Context) error
	ActiveSymbols(ctx context.Context) ([]string, error)
}

// ErrCacheMiss is returned by QuoteCache when no fresh entry exists.
var ErrCacheMiss = errors.New("quote cache: miss")

// QuoteCache holds the most recently refreshed quote per symbol with a
// short TTL so on-demand reads skip redundant provider calls.
type QuoteCache interface {
	Get(ctx context.Context, symbol string) (*models.Quote, error)
	Set(ctx context.Context, q *models.Quote) error
}

// InstrumentStore persists instrument metadata discovered via search.
// BySymbol returns (nil, nil) when the symbol is unknown.
type InstrumentStore interface {
	Upsert(ctx context.Context, ins *models.Instrument) error
	BySymbol(ctx context.Context, symbol string) (*models.Instrument, error)
}

// HistorySink archives refreshed quotes for offline analytics. Archive
// failures are logged by callers and never block the publish path.
type HistorySink interface {
	Archive(ctx context.Context, q *models.Quote) error
	Close() error
}

// QuoteFetcher resolves a quote for a symbol. The resolution chain
// guarantees a structurally valid quote for any input.
type QuoteFetcher interface {
	GetQuote(ctx context.Context, symbol string) *models.Quote
}

// QuotePublisher fans a freshly fetched quote out to every interested
// listener across the fleet.
type QuotePublisher interface {
	Publish(ctx context.Context, symbol string, q *models.Quote) error
}

// ErrInvalidToken rejects authentication with a bad or expired token.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenVerifier authenticates connection and request tokens.
type TokenVerifier interface {
	Verify(token string) (*models.Identity, error)
}

// Metrics records domain-level observability signals.
type Metrics interface {
	RecordQuote(source, symbol string)
	RecordRefreshTick(succeeded, failed int)
	RecordActiveSymbols(n int)
	RecordListeners(n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

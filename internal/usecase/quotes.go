package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"QuotePulse/internal/domain/models"
	drepo "QuotePulse/internal/domain/repository"
	"QuotePulse/internal/service/gbm"
	"QuotePulse/internal/service/ratelimit"
	applogger "QuotePulse/pkg/logger"
)

// simStep is the fixed time increment of one simulated tick, in years:
// one minute out of a 252-day, 6.5-hour trading calendar.
const simStep = 1.0 / (252 * 6.5 * 60)

const defaultSearchLimit = 10

// QuoteService resolves quotes by walking ranked providers and falling
// back to a GBM simulation that never fails. Each instance owns its own
// simulation state; instances do not converge on simulated paths.
type QuoteService struct {
	providers   []drepo.QuoteProvider
	searcher    drepo.InstrumentSearcher
	instruments drepo.InstrumentStore
	limiter     *ratelimit.Limiter
	metrics     drepo.Metrics
	log         *applogger.Logger

	rateCapacity float64
	rateRefill   float64

	// simMu guards both the rng and lastPrice; the generator source is
	// not safe for concurrent draws.
	simMu     sync.Mutex
	rng       gbm.Source
	lastPrice map[string]float64
}

// QuoteServiceOption configures QuoteService.
type QuoteServiceOption func(*QuoteService)

// WithRandom injects the generator's random source. Tests pin it to a
// fixed source to make simulated paths exactly reproducible.
func WithRandom(src gbm.Source) QuoteServiceOption {
	return func(s *QuoteService) {
		s.rng = src
	}
}

// WithProviderBudget sets the shared token-bucket budget applied to
// each real provider.
func WithProviderBudget(capacity, refillPerSec float64) QuoteServiceOption {
	return func(s *QuoteService) {
		s.rateCapacity = capacity
		s.rateRefill = refillPerSec
	}
}

// NewQuoteService creates a quote resolution chain over the given
// ranked providers. searcher and instruments may be nil.
func NewQuoteService(
	providers []drepo.QuoteProvider,
	searcher drepo.InstrumentSearcher,
	instruments drepo.InstrumentStore,
	metrics drepo.Metrics,
	log *applogger.Logger,
	opts ...QuoteServiceOption,
) *QuoteService {
	s := &QuoteService{
		providers:    providers,
		searcher:     searcher,
		instruments:  instruments,
		limiter:      ratelimit.New(),
		metrics:      metrics,
		log:          log,
		rateCapacity: 30,
		rateRefill:   0.5,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		lastPrice:    make(map[string]float64),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// providerResult is the outcome of one provider attempt: either a quote
// or the named reason the attempt failed.
type providerResult struct {
	quote  *models.Quote
	reason string
}

// GetQuote resolves a quote for symbol. It never fails: every provider
// gets exactly one attempt in rank order, and when all of them fail the
// simulated feed answers.
func (s *QuoteService) GetQuote(ctx context.Context, symbol string) *models.Quote {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	start := time.Now()

	for _, p := range s.providers {
		res := s.tryProvider(ctx, p, symbol)
		if res.quote != nil {
			s.metrics.RecordQuote(p.Name(), symbol)
			s.metrics.RecordLatency("get_quote", time.Since(start).Seconds())
			return res.quote
		}
		s.log.Debug("provider failed, advancing chain",
			applogger.String("provider", p.Name()),
			applogger.String("symbol", symbol),
			applogger.String("reason", res.reason),
		)
	}

	q := s.simulate(symbol)
	s.metrics.RecordQuote(string(models.SourceSimulated), symbol)
	s.metrics.RecordLatency("get_quote", time.Since(start).Seconds())
	return q
}

func (s *QuoteService) tryProvider(ctx context.Context, p drepo.QuoteProvider, symbol string) providerResult {
	if !s.limiter.Allow(p.Name(), s.rateCapacity, s.rateRefill) {
		s.metrics.RecordError("provider_rate_limited")
		return providerResult{reason: "rate budget exhausted"}
	}

	q, err := p.Quote(ctx, symbol)
	if err != nil {
		s.metrics.RecordError("provider_" + p.Name())
		return providerResult{reason: err.Error()}
	}
	return providerResult{quote: q}
}

// simulate advances the symbol's simulated path one step and returns
// the resulting quote. The new price becomes the seed of the next call,
// so consecutive simulated quotes form a continuous path for the life
// of the process.
func (s *QuoteService) simulate(symbol string) *models.Quote {
	params := gbm.Params(symbol)

	s.simMu.Lock()
	seed, ok := s.lastPrice[symbol]
	if !ok || seed <= 0 {
		seed = params.BasePrice
	}
	if seed <= 0 {
		// Non-positive base price is a configuration defect; fall back
		// to the documented default rather than crash.
		seed = gbm.DefaultParams.BasePrice
	}

	price := gbm.NextPrice(s.rng, seed, params.Drift, params.Volatility, simStep)

	open := seed * (1 + (s.rng.Float64()-0.5)*0.004)
	high := max(open, price) * (1 + s.rng.Float64()*0.002)
	low := min(open, price) * (1 - s.rng.Float64()*0.002)
	volume := 100_000 + int64(s.rng.Float64()*900_000)

	s.lastPrice[symbol] = price
	s.simMu.Unlock()

	q := &models.Quote{
		Symbol:        symbol,
		Price:         price,
		High:          high,
		Low:           low,
		Open:          open,
		PreviousClose: seed,
		Volume:        volume,
		Timestamp:     time.Now().UTC(),
		DataSource:    models.SourceSimulated,
		IsRealTime:    false,
	}
	q.FillDerived()
	return q
}

// GetQuotes resolves quotes for a batch of symbols concurrently,
// preserving input order. Empty and oversized batches are rejected
// before any dispatch.
func (s *QuoteService) GetQuotes(ctx context.Context, symbols []string) ([]*models.Quote, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("symbols batch is empty")
	}
	if len(symbols) > models.MaxBatchSymbols {
		return nil, fmt.Errorf("symbols batch exceeds %d entries", models.MaxBatchSymbols)
	}

	quotes := make([]*models.Quote, len(symbols))
	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			quotes[i] = s.GetQuote(ctx, sym)
		}(i, sym)
	}
	wg.Wait()

	return quotes, nil
}

// Search finds instruments matching query through a single provider
// call. Search is advisory: any failure degrades to an empty result.
// Hits are opportunistically persisted to the instrument store.
func (s *QuoteService) Search(ctx context.Context, query string, limit int) []models.SearchResult {
	if s.searcher == nil {
		return nil
	}
	if limit <= 0 || limit > defaultSearchLimit {
		limit = defaultSearchLimit
	}

	results, err := s.searcher.Search(ctx, query, limit)
	if err != nil {
		s.log.Warn("instrument search failed", applogger.String("query", query), applogger.Error(err))
		s.metrics.RecordError("search")
		return nil
	}

	if s.instruments != nil {
		for _, r := range results {
			ins := &models.Instrument{Symbol: r.Symbol, Name: r.Description}
			if err := s.instruments.Upsert(ctx, ins); err != nil {
				s.log.Warn("instrument upsert failed",
					applogger.String("symbol", r.Symbol), applogger.Error(err))
			}
		}
	}
	return results
}

package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	drepo "QuotePulse/internal/domain/repository"
	applogger "QuotePulse/pkg/logger"
)

// Refresher periodically re-resolves quotes for every symbol with
// active listeners anywhere in the fleet, publishes the results and
// archives them. Each tick handles at most BatchSize symbols; a
// rotating offset guarantees every active symbol is eventually
// refreshed even when the active set exceeds the per-tick cap.
type Refresher struct {
	fetcher   drepo.QuoteFetcher
	publisher drepo.QuotePublisher
	cache     drepo.QuoteCache
	history   drepo.HistorySink
	registry  drepo.SymbolRegistry
	metrics   drepo.Metrics
	log       *applogger.Logger

	interval  time.Duration
	batchSize int
	grace     time.Duration

	offset  int
	running atomic.Bool
	ticking atomic.Bool

	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithInterval overrides the tick period.
func WithInterval(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithBatchSize overrides the per-tick symbol cap.
func WithBatchSize(n int) RefresherOption {
	return func(r *Refresher) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithGrace overrides how long Shutdown waits for in-flight work.
func WithGrace(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d > 0 {
			r.grace = d
		}
	}
}

// NewRefresher builds a refresh scheduler. history may be nil when
// archiving is disabled.
func NewRefresher(
	fetcher drepo.QuoteFetcher,
	publisher drepo.QuotePublisher,
	cache drepo.QuoteCache,
	history drepo.HistorySink,
	registry drepo.SymbolRegistry,
	metrics drepo.Metrics,
	log *applogger.Logger,
	opts ...RefresherOption,
) *Refresher {
	r := &Refresher{
		fetcher:   fetcher,
		publisher: publisher,
		cache:     cache,
		history:   history,
		registry:  registry,
		metrics:   metrics,
		log:       log,
		interval:  5 * time.Second,
		batchSize: 5,
		grace:     time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the tick loop. Calling Start on a running Refresher
// is a no-op.
func (r *Refresher) Start(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		return
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.log.Info("refresher started",
			applogger.Duration("interval", r.interval),
			applogger.Int("batch_size", r.batchSize))

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.tick(ctx)
			}
		}
	}()
}

// Stop cancels the tick loop without waiting for in-flight refreshes.
func (r *Refresher) Stop() {
	if !r.running.CompareAndSwap(true, false) {
		return
	}
	r.cancel()
	<-r.done
}

// Shutdown stops the loop and waits up to the configured grace period
// for in-flight symbol refreshes to finish.
func (r *Refresher) Shutdown() {
	r.Stop()

	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(r.grace):
		r.log.Warn("refresher shutdown grace elapsed with work in flight")
	}
}

// tick refreshes one batch. Ticks are single-flight: if the previous
// tick is still running, this one is skipped rather than stacked.
func (r *Refresher) tick(ctx context.Context) {
	if !r.ticking.CompareAndSwap(false, true) {
		r.log.Debug("refresh tick skipped, previous still running")
		return
	}
	defer r.ticking.Store(false)

	if err := r.registry.Heartbeat(ctx); err != nil {
		r.log.Warn("registry heartbeat failed", applogger.Error(err))
		r.metrics.RecordError("registry_heartbeat")
	}

	symbols, err := r.registry.ActiveSymbols(ctx)
	if err != nil {
		r.log.Error("active symbol read failed", applogger.Error(err))
		r.metrics.RecordError("registry_read")
		return
	}
	r.metrics.RecordActiveSymbols(len(symbols))
	if len(symbols) == 0 {
		return
	}

	batch := r.selectBatch(symbols)
	start := time.Now()

	var succeeded, failed atomic.Int64
	var batchWG sync.WaitGroup
	for _, sym := range batch {
		batchWG.Add(1)
		r.wg.Add(1)
		go func(symbol string) {
			defer batchWG.Done()
			defer r.wg.Done()
			if r.refreshSymbol(ctx, symbol) {
				succeeded.Add(1)
			} else {
				failed.Add(1)
			}
		}(sym)
	}
	batchWG.Wait()

	r.metrics.RecordRefreshTick(int(succeeded.Load()), int(failed.Load()))
	r.metrics.RecordLatency("refresh_tick", time.Since(start).Seconds())
	r.log.Debug("refresh tick complete",
		applogger.Int("batch", len(batch)),
		applogger.Int("active", len(symbols)),
		applogger.Int64("succeeded", succeeded.Load()),
		applogger.Int64("failed", failed.Load()))
}

// refreshSymbol resolves, publishes, caches and archives one symbol.
// Failures are contained: one bad symbol never aborts the batch.
func (r *Refresher) refreshSymbol(ctx context.Context, symbol string) bool {
	q := r.fetcher.GetQuote(ctx, symbol)
	if q == nil {
		r.metrics.RecordError("refresh_fetch")
		return false
	}

	ok := true
	if err := r.publisher.Publish(ctx, symbol, q); err != nil {
		r.log.Warn("refresh publish failed", applogger.String("symbol", symbol), applogger.Error(err))
		r.metrics.RecordError("refresh_publish")
		ok = false
	}
	if err := r.cache.Set(ctx, q); err != nil {
		r.log.Warn("refresh cache write failed", applogger.String("symbol", symbol), applogger.Error(err))
		r.metrics.RecordError("refresh_cache")
	}
	if r.history != nil {
		if err := r.history.Archive(ctx, q); err != nil {
			r.log.Warn("refresh archive failed", applogger.String("symbol", symbol), applogger.Error(err))
			r.metrics.RecordError("refresh_archive")
		}
	}
	return ok
}

// selectBatch picks up to batchSize symbols starting at the rotating
// offset, wrapping around the active set.
func (r *Refresher) selectBatch(symbols []string) []string {
	n := len(symbols)
	if n == 0 {
		return nil
	}

	size := r.batchSize
	if size > n {
		size = n
	}

	start := r.offset % n
	batch := make([]string, 0, size)
	for i := 0; i < size; i++ {
		batch = append(batch, symbols[(start+i)%n])
	}
	r.offset = (start + size) % n
	return batch
}

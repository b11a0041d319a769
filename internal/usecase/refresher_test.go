package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuotePulse/internal/domain/models"
	applogger "QuotePulse/pkg/logger"
)

type stubFetcher struct {
	mu      sync.Mutex
	fetched []string
}

func (f *stubFetcher) GetQuote(_ context.Context, symbol string) *models.Quote {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, symbol)
	q := &models.Quote{Symbol: symbol, Price: 100, PreviousClose: 99, DataSource: models.SourceSimulated}
	q.FillDerived()
	return q
}

func (f *stubFetcher) symbols() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int)
	for _, s := range f.fetched {
		out[s]++
	}
	return out
}

type stubPublisher struct {
	mu        sync.Mutex
	published []string
	failFor   map[string]bool
}

func (p *stubPublisher) Publish(_ context.Context, symbol string, _ *models.Quote) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFor[symbol] {
		return fmt.Errorf("publish %s: broken pipe", symbol)
	}
	p.published = append(p.published, symbol)
	return nil
}

type stubQuoteCache struct {
	mu  sync.Mutex
	set []string
}

func (c *stubQuoteCache) Get(context.Context, string) (*models.Quote, error) {
	return nil, fmt.Errorf("not implemented")
}

func (c *stubQuoteCache) Set(_ context.Context, q *models.Quote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set = append(c.set, q.Symbol)
	return nil
}

type stubHistory struct {
	mu       sync.Mutex
	archived []string
}

func (h *stubHistory) Archive(_ context.Context, q *models.Quote) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.archived = append(h.archived, q.Symbol)
	return nil
}

func (h *stubHistory) Close() error { return nil }

type stubRegistry struct {
	active     []string
	heartbeats int
}

func (r *stubRegistry) Add(context.Context, string) error    { return nil }
func (r *stubRegistry) Remove(context.Context, string) error { return nil }

func (r *stubRegistry) Heartbeat(context.Context) error {
	r.heartbeats++
	return nil
}

func (r *stubRegistry) ActiveSymbols(context.Context) ([]string, error) {
	return r.active, nil
}

type tickMetrics struct {
	nopMetrics
	mu    sync.Mutex
	ticks [][2]int
}

func (m *tickMetrics) RecordRefreshTick(succeeded, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks = append(m.ticks, [2]int{succeeded, failed})
}

func TestTick_EmptyActiveSetIsNoop(t *testing.T) {
	fetcher := &stubFetcher{}
	reg := &stubRegistry{}
	r := NewRefresher(fetcher, &stubPublisher{}, &stubQuoteCache{}, nil, reg, nopMetrics{}, applogger.Nop())

	r.tick(context.Background())

	assert.Empty(t, fetcher.fetched)
	assert.Equal(t, 1, reg.heartbeats)
}

func TestTick_CapsBatchSize(t *testing.T) {
	fetcher := &stubFetcher{}
	reg := &stubRegistry{active: []string{"A", "B", "C", "D", "E", "F", "G", "H"}}
	r := NewRefresher(fetcher, &stubPublisher{}, &stubQuoteCache{}, nil, reg, nopMetrics{}, applogger.Nop(),
		WithBatchSize(5))

	r.tick(context.Background())

	assert.Len(t, fetcher.fetched, 5)
}

func TestTick_RotationEventuallyCoversEverySymbol(t *testing.T) {
	fetcher := &stubFetcher{}
	reg := &stubRegistry{active: []string{"A", "B", "C", "D", "E", "F", "G", "H"}}
	r := NewRefresher(fetcher, &stubPublisher{}, &stubQuoteCache{}, nil, reg, nopMetrics{}, applogger.Nop(),
		WithBatchSize(5))

	r.tick(context.Background())
	r.tick(context.Background())

	got := fetcher.symbols()
	for _, sym := range reg.active {
		assert.GreaterOrEqual(t, got[sym], 1, "symbol %s never refreshed", sym)
	}
}

func TestTick_PublishesCachesAndArchives(t *testing.T) {
	pub := &stubPublisher{}
	qc := &stubQuoteCache{}
	hist := &stubHistory{}
	reg := &stubRegistry{active: []string{"AAPL"}}
	r := NewRefresher(&stubFetcher{}, pub, qc, hist, reg, nopMetrics{}, applogger.Nop())

	r.tick(context.Background())

	assert.Equal(t, []string{"AAPL"}, pub.published)
	assert.Equal(t, []string{"AAPL"}, qc.set)
	assert.Equal(t, []string{"AAPL"}, hist.archived)
}

func TestTick_OneFailureDoesNotAbortBatch(t *testing.T) {
	pub := &stubPublisher{failFor: map[string]bool{"BAD": true}}
	reg := &stubRegistry{active: []string{"AAPL", "BAD", "MSFT"}}
	m := &tickMetrics{}
	r := NewRefresher(&stubFetcher{}, pub, &stubQuoteCache{}, nil, reg, m, applogger.Nop())

	r.tick(context.Background())

	assert.ElementsMatch(t, []string{"AAPL", "MSFT"}, pub.published)
	require.Len(t, m.ticks, 1)
	assert.Equal(t, [2]int{2, 1}, m.ticks[0])
}

func TestSelectBatch_WrapsAroundActiveSet(t *testing.T) {
	r := NewRefresher(&stubFetcher{}, &stubPublisher{}, &stubQuoteCache{}, nil, &stubRegistry{},
		nopMetrics{}, applogger.Nop(), WithBatchSize(3))
	symbols := []string{"A", "B", "C", "D"}

	assert.Equal(t, []string{"A", "B", "C"}, r.selectBatch(symbols))
	assert.Equal(t, []string{"D", "A", "B"}, r.selectBatch(symbols))
	assert.Equal(t, []string{"C", "D", "A"}, r.selectBatch(symbols))
}

func TestSelectBatch_SmallSetReturnsEverything(t *testing.T) {
	r := NewRefresher(&stubFetcher{}, &stubPublisher{}, &stubQuoteCache{}, nil, &stubRegistry{},
		nopMetrics{}, applogger.Nop(), WithBatchSize(5))

	assert.Equal(t, []string{"A", "B"}, r.selectBatch([]string{"A", "B"}))
	assert.Nil(t, r.selectBatch(nil))
}

func TestStartStop_Idempotent(t *testing.T) {
	reg := &stubRegistry{}
	r := NewRefresher(&stubFetcher{}, &stubPublisher{}, &stubQuoteCache{}, nil, reg,
		nopMetrics{}, applogger.Nop(), WithInterval(10*time.Millisecond))

	ctx := context.Background()
	r.Start(ctx)
	r.Start(ctx) // second start is a no-op

	time.Sleep(35 * time.Millisecond)
	r.Stop()
	r.Stop() // second stop is a no-op

	assert.GreaterOrEqual(t, reg.heartbeats, 1)
}

func TestShutdown_WaitsForInFlightWork(t *testing.T) {
	reg := &stubRegistry{active: []string{"AAPL"}}
	r := NewRefresher(&stubFetcher{}, &stubPublisher{}, &stubQuoteCache{}, nil, reg,
		nopMetrics{}, applogger.Nop(), WithInterval(5*time.Millisecond), WithGrace(time.Second))

	r.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	r.Shutdown()
}

// Package fanout multiplexes per-symbol listener interest across
// connections and process instances. It keeps at most one upstream bus
// subscription per symbol per process regardless of how many local
// listeners share it, and mirrors local liveness into the fleet-wide
// symbol registry.
package fanout

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"QuotePulse/internal/domain/models"
	drepo "QuotePulse/internal/domain/repository"
	applogger "QuotePulse/pkg/logger"
)

// Listener is one locally connected consumer of price updates.
// Delivery is best-effort: Send must never block.
type Listener interface {
	ID() string
	Send(event string, payload []byte)
}

// Manager is the per-process subscription and fan-out hub.
type Manager struct {
	bus      drepo.Bus
	registry drepo.SymbolRegistry
	metrics  drepo.Metrics
	log      *applogger.Logger

	mu sync.Mutex
	// interest counts local listeners per symbol; a symbol is present
	// iff its count is positive.
	interest   map[string]int
	listeners  map[string]map[Listener]struct{}
	byListener map[Listener]map[string]struct{}
}

// New creates a fan-out manager over the given bus and registry.
func New(bus drepo.Bus, registry drepo.SymbolRegistry, metrics drepo.Metrics, log *applogger.Logger) *Manager {
	return &Manager{
		bus:        bus,
		registry:   registry,
		metrics:    metrics,
		log:        log,
		interest:   make(map[string]int),
		listeners:  make(map[string]map[Listener]struct{}),
		byListener: make(map[Listener]map[string]struct{}),
	}
}

// Start launches the bus relay loop. It returns immediately; the loop
// runs until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	go m.bus.Run(ctx, m.relay)
}

// Subscribe registers l's interest in symbol. The first local listener
// for a symbol creates the upstream bus subscription and the registry
// entry; later listeners only bump the count. Idempotent per listener.
func (m *Manager) Subscribe(ctx context.Context, l Listener, symbol string) (string, error) {
	sym, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if subs := m.byListener[l]; subs != nil {
		if _, already := subs[sym]; already {
			return sym, nil
		}
	}

	if m.byListener[l] == nil {
		m.byListener[l] = make(map[string]struct{})
		m.metrics.RecordListeners(len(m.byListener))
	}
	m.byListener[l][sym] = struct{}{}

	if m.listeners[sym] == nil {
		m.listeners[sym] = make(map[Listener]struct{})
	}
	m.listeners[sym][l] = struct{}{}

	m.interest[sym]++
	if m.interest[sym] == 1 {
		if err := m.bus.Subscribe(ctx, sym); err != nil {
			m.log.Error("bus subscribe failed", applogger.String("symbol", sym), applogger.Error(err))
			m.metrics.RecordError("bus_subscribe")
		}
		if err := m.registry.Add(ctx, sym); err != nil {
			m.log.Error("registry add failed", applogger.String("symbol", sym), applogger.Error(err))
			m.metrics.RecordError("registry_add")
		}
	}

	return sym, nil
}

// Unsubscribe drops l's interest in symbol. When the last local
// listener leaves, the upstream subscription is torn down and this
// instance's registry contribution removed.
func (m *Manager) Unsubscribe(ctx context.Context, l Listener, symbol string) (string, error) {
	sym, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	subs := m.byListener[l]
	if subs == nil {
		return sym, nil
	}
	if _, ok := subs[sym]; !ok {
		return sym, nil
	}

	delete(subs, sym)
	delete(m.listeners[sym], l)
	m.releaseInterest(ctx, sym)
	return sym, nil
}

// Drop removes all of l's subscriptions; called when a connection
// closes.
func (m *Manager) Drop(ctx context.Context, l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for sym := range m.byListener[l] {
		delete(m.listeners[sym], l)
		m.releaseInterest(ctx, sym)
	}
	delete(m.byListener, l)
	m.metrics.RecordListeners(len(m.byListener))
}

// releaseInterest decrements the symbol count; callers hold m.mu.
func (m *Manager) releaseInterest(ctx context.Context, sym string) {
	m.interest[sym]--
	if m.interest[sym] > 0 {
		return
	}

	delete(m.interest, sym)
	delete(m.listeners, sym)

	if err := m.bus.Unsubscribe(ctx, sym); err != nil {
		m.log.Error("bus unsubscribe failed", applogger.String("symbol", sym), applogger.Error(err))
		m.metrics.RecordError("bus_unsubscribe")
	}
	if err := m.registry.Remove(ctx, sym); err != nil {
		m.log.Error("registry remove failed", applogger.String("symbol", sym), applogger.Error(err))
		m.metrics.RecordError("registry_remove")
	}
}

// Subscriptions returns the symbols l is currently registered for,
// sorted for stable output.
func (m *Manager) Subscriptions(l Listener) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.byListener[l]))
	for sym := range m.byListener[l] {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Publish serializes a quote and publishes it on the symbol's bus
// channel. Every instance holding at least one local listener for the
// symbol receives and relays it.
func (m *Manager) Publish(ctx context.Context, symbol string, q *models.Quote) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return m.bus.Publish(ctx, symbol, payload)
}

// ActiveSymbols reads the fleet-wide registry: every symbol with at
// least one listener on any instance. This is the refresh scheduler's
// sole signal of what needs refreshing.
func (m *Manager) ActiveSymbols(ctx context.Context) ([]string, error) {
	return m.registry.ActiveSymbols(ctx)
}

// relay delivers a bus payload verbatim to every local listener
// registered for the symbol. A slow listener drops its own message and
// never blocks the rest.
func (m *Manager) relay(symbol string, payload []byte) {
	m.mu.Lock()
	targets := make([]Listener, 0, len(m.listeners[symbol]))
	for l := range m.listeners[symbol] {
		targets = append(targets, l)
	}
	m.mu.Unlock()

	for _, l := range targets {
		l.Send(models.EventPriceUpdate, payload)
	}
}

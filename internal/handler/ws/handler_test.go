package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuotePulse/internal/domain/models"
	drepo "QuotePulse/internal/domain/repository"
	"QuotePulse/internal/service/fanout"
	applogger "QuotePulse/pkg/logger"
)

const testToken = "stream-token"

type stubVerifier struct{}

func (stubVerifier) Verify(token string) (*models.Identity, error) {
	if token == testToken {
		return &models.Identity{Subject: "tester"}, nil
	}
	return nil, drepo.ErrInvalidToken
}

type stubBus struct{}

func (stubBus) Subscribe(context.Context, string) error       { return nil }
func (stubBus) Unsubscribe(context.Context, string) error     { return nil }
func (stubBus) Publish(context.Context, string, []byte) error { return nil }
func (stubBus) Run(context.Context, func(string, []byte))     {}
func (stubBus) Close() error                                  { return nil }

type stubRegistry struct{}

func (stubRegistry) Add(context.Context, string) error               { return nil }
func (stubRegistry) Remove(context.Context, string) error            { return nil }
func (stubRegistry) Heartbeat(context.Context) error                 { return nil }
func (stubRegistry) ActiveSymbols(context.Context) ([]string, error) { return nil, nil }

type nopMetrics struct{}

func (nopMetrics) RecordQuote(string, string)    {}
func (nopMetrics) RecordRefreshTick(int, int)    {}
func (nopMetrics) RecordActiveSymbols(int)       {}
func (nopMetrics) RecordListeners(int)           {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}

type stubFetcher struct {
	calls atomic.Int32
}

func (f *stubFetcher) GetQuote(_ context.Context, symbol string) *models.Quote {
	f.calls.Add(1)
	q := &models.Quote{
		Symbol:        symbol,
		Price:         101.5,
		PreviousClose: 100,
		Timestamp:     time.Now(),
		DataSource:    models.SourceSimulated,
	}
	q.FillDerived()
	return q
}

type stubCache struct {
	mu     sync.Mutex
	quotes map[string]*models.Quote
}

func newStubCache() *stubCache {
	return &stubCache{quotes: make(map[string]*models.Quote)}
}

func (c *stubCache) Get(_ context.Context, symbol string) (*models.Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.quotes[symbol]
	if !ok {
		return nil, drepo.ErrCacheMiss
	}
	return q, nil
}

func (c *stubCache) Set(_ context.Context, q *models.Quote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[q.Symbol] = q
	return nil
}

func newTestServer(t *testing.T, fetcher drepo.QuoteFetcher, cache drepo.QuoteCache) *httptest.Server {
	t.Helper()
	m := fanout.New(stubBus{}, stubRegistry{}, nopMetrics{}, applogger.Nop())
	h := NewHandler(m, stubVerifier{}, fetcher, cache, applogger.Nop())
	e := echo.New()
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) models.WSEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev models.WSEvent
	require.NoError(t, json.Unmarshal(raw, &ev))
	return ev
}

func TestServe_RejectsBadTokenBeforeUpgrade(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{}, newStubCache())

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=wrong"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Nil(t, conn)
}

func TestServe_SubscribeAcksUppercaseAndPushesCurrentPrice(t *testing.T) {
	fetcher := &stubFetcher{}
	srv := newTestServer(t, fetcher, newStubCache())
	conn := dial(t, srv, testToken)

	require.NoError(t, conn.WriteJSON(models.WSRequest{Action: models.ActionSubscribe, Symbol: "aapl"}))

	ev := readEvent(t, conn)
	require.Equal(t, models.EventSubscribed, ev.Type)
	var ack models.WSSymbolAck
	require.NoError(t, json.Unmarshal(ev.Data, &ack))
	assert.Equal(t, "AAPL", ack.Symbol)

	ev = readEvent(t, conn)
	require.Equal(t, models.EventPriceUpdate, ev.Type)
	var q models.Quote
	require.NoError(t, json.Unmarshal(ev.Data, &q))
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, 101.5, q.Price)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestServe_PushesCachedQuoteWithoutFetching(t *testing.T) {
	fetcher := &stubFetcher{}
	cache := newStubCache()
	cached := &models.Quote{Symbol: "MSFT", Price: 777, PreviousClose: 770, DataSource: models.SourceFinnhub}
	cached.FillDerived()
	require.NoError(t, cache.Set(context.Background(), cached))

	srv := newTestServer(t, fetcher, cache)
	conn := dial(t, srv, testToken)

	require.NoError(t, conn.WriteJSON(models.WSRequest{Action: models.ActionSubscribe, Symbol: "MSFT"}))

	ev := readEvent(t, conn)
	require.Equal(t, models.EventSubscribed, ev.Type)

	ev = readEvent(t, conn)
	require.Equal(t, models.EventPriceUpdate, ev.Type)
	var q models.Quote
	require.NoError(t, json.Unmarshal(ev.Data, &q))
	assert.Equal(t, 777.0, q.Price)
	assert.Equal(t, int32(0), fetcher.calls.Load())
}

func TestServe_MalformedFrameAnswersErrorAndKeepsConnection(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{}, newStubCache())
	conn := dial(t, srv, testToken)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	ev := readEvent(t, conn)
	require.Equal(t, models.EventError, ev.Type)
	var werr models.WSError
	require.NoError(t, json.Unmarshal(ev.Data, &werr))
	assert.Equal(t, "malformed request", werr.Message)

	// the connection stays usable after the bad frame
	require.NoError(t, conn.WriteJSON(models.WSRequest{Action: models.ActionGetSubscriptions}))
	ev = readEvent(t, conn)
	require.Equal(t, models.EventSubscriptions, ev.Type)
	var subs models.WSSubscriptions
	require.NoError(t, json.Unmarshal(ev.Data, &subs))
	assert.Empty(t, subs.Symbols)
}

func TestServe_InvalidSymbolAnswersError(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{}, newStubCache())
	conn := dial(t, srv, testToken)

	require.NoError(t, conn.WriteJSON(models.WSRequest{Action: models.ActionSubscribe, Symbol: "not a symbol"}))

	ev := readEvent(t, conn)
	assert.Equal(t, models.EventError, ev.Type)
}

func TestServe_UnknownActionAnswersError(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{}, newStubCache())
	conn := dial(t, srv, testToken)

	require.NoError(t, conn.WriteJSON(models.WSRequest{Action: "bogus"}))

	ev := readEvent(t, conn)
	require.Equal(t, models.EventError, ev.Type)
	var werr models.WSError
	require.NoError(t, json.Unmarshal(ev.Data, &werr))
	assert.Contains(t, werr.Message, "unknown action")
}

func TestClient_SendAfterCloseIsSilentDrop(t *testing.T) {
	c := newClient(nil, &models.Identity{Subject: "tester"}, applogger.Nop())

	c.close()

	require.NotPanics(t, func() {
		c.Send(models.EventPriceUpdate, []byte(`{"symbol":"AAPL"}`))
	})
	assert.Empty(t, c.send)
	require.NotPanics(t, c.close)
}

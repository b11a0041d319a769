package api

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuotePulse/internal/domain/models"
	internalrepo "QuotePulse/internal/repository"
	"QuotePulse/internal/usecase"
	"QuotePulse/pkg/cache"
	applogger "QuotePulse/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordQuote(string, string)    {}
func (nopMetrics) RecordRefreshTick(int, int)    {}
func (nopMetrics) RecordActiveSymbols(int)       {}
func (nopMetrics) RecordListeners(int)           {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*echo.Echo, *internalrepo.QuoteCache) {
	t.Helper()

	quotes := usecase.NewQuoteService(nil, nil, nil, nopMetrics{}, applogger.Nop(),
		usecase.WithRandom(rand.New(rand.NewSource(42))))
	qc := internalrepo.NewQuoteCache(cache.NewMemoryCache(), 0)

	e := echo.New()
	NewQuoteHandler(quotes, qc, applogger.Nop()).RegisterRoutes(e)
	return e, qc
}

func doGet(e *echo.Echo, target string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestGetQuote_SimulatedFallback(t *testing.T) {
	e, _ := newTestServer(t)

	rec, env := doGet(e, "/api/quote/aapl")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, http.StatusOK, env.Status)

	var q models.Quote
	require.NoError(t, json.Unmarshal(env.Data, &q))
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, models.SourceSimulated, q.DataSource)
	assert.False(t, q.IsRealTime)
	assert.True(t, q.Valid())
}

func TestGetQuote_ServesFromCache(t *testing.T) {
	e, qc := newTestServer(t)

	cached := &models.Quote{Symbol: "AAPL", Price: 12345, PreviousClose: 12000, DataSource: models.SourceFinnhub, IsRealTime: true}
	cached.FillDerived()
	require.NoError(t, qc.Set(httptest.NewRequest(http.MethodGet, "/", nil).Context(), cached))

	_, env := doGet(e, "/api/quote/AAPL")

	var q models.Quote
	require.NoError(t, json.Unmarshal(env.Data, &q))
	assert.Equal(t, 12345.0, q.Price, "a cache hit must skip resolution")
	assert.Equal(t, models.SourceFinnhub, q.DataSource)
}

func TestGetQuote_RejectsOverlongSymbol(t *testing.T) {
	_, env := doGet(mustE(t), "/api/quote/THISISTOOLONGFORATICKER")
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestGetQuote_RejectsInvalidCharacters(t *testing.T) {
	_, env := doGet(mustE(t), "/api/quote/AA%20PL")
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestGetQuotes_BatchPreservesOrder(t *testing.T) {
	_, env := doGet(mustE(t), "/api/quotes?symbols=MSFT,aapl")

	require.Equal(t, http.StatusOK, env.Status)
	var list struct {
		Rows  []models.Quote `json:"rows"`
		Total int64          `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Equal(t, int64(2), list.Total)
	assert.Equal(t, "MSFT", list.Rows[0].Symbol)
	assert.Equal(t, "AAPL", list.Rows[1].Symbol)
}

func TestGetQuotes_MissingSymbolsRejected(t *testing.T) {
	_, env := doGet(mustE(t), "/api/quotes")
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestGetQuotes_EmptyEntryRejected(t *testing.T) {
	_, env := doGet(mustE(t), "/api/quotes?symbols=AAPL,,MSFT")
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestSearch_NoSearcherReturnsEmptyList(t *testing.T) {
	_, env := doGet(mustE(t), "/api/search?q=apple")

	require.Equal(t, http.StatusOK, env.Status)
	var list struct {
		Rows  []models.SearchResult `json:"rows"`
		Total int64                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Empty(t, list.Rows)
	assert.Zero(t, list.Total)
}

func TestHealth(t *testing.T) {
	rec, _ := doGet(mustE(t), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func mustE(t *testing.T) *echo.Echo {
	e, _ := newTestServer(t)
	return e
}

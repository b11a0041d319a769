package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuotePulse/internal/domain/models"
)

func finnhubServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFinnhubQuote_Success(t *testing.T) {
	srv := finnhubServer(t, `{"c":185.5,"d":2.1,"dp":1.15,"h":186.2,"l":183.1,"o":184.0,"pc":183.4,"t":1700000000}`)
	p := NewFinnhub("key", srv.URL, time.Second)

	q, err := p.Quote(context.Background(), "AAPL")

	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, 185.5, q.Price)
	assert.Equal(t, models.SourceFinnhub, q.DataSource)
	assert.True(t, q.IsRealTime)
	assert.InDelta(t, 185.5-183.4, q.Change, 1e-9)
	assert.True(t, q.Valid())
}

func TestFinnhubQuote_AllZeroMeansUnknownSymbol(t *testing.T) {
	srv := finnhubServer(t, `{"c":0,"d":0,"dp":0,"h":0,"l":0,"o":0,"pc":0,"t":0}`)
	p := NewFinnhub("key", srv.URL, time.Second)

	_, err := p.Quote(context.Background(), "NOPE")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown symbol")
}

func TestFinnhubQuote_MissingAPIKey(t *testing.T) {
	p := NewFinnhub("", "http://localhost", time.Second)
	_, err := p.Quote(context.Background(), "AAPL")
	assert.Error(t, err)
}

func TestFinnhubQuote_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	p := NewFinnhub("key", srv.URL, time.Second)

	_, err := p.Quote(context.Background(), "AAPL")
	assert.Error(t, err)
}

func TestFinnhubSearch_CapsResults(t *testing.T) {
	srv := finnhubServer(t, `{"count":3,"result":[
		{"description":"APPLE INC","displaySymbol":"AAPL","symbol":"AAPL","type":"Common Stock"},
		{"description":"APPLE HOSPITALITY","displaySymbol":"APLE","symbol":"APLE","type":"REIT"},
		{"description":"APPLOVIN CORP","displaySymbol":"APP","symbol":"APP","type":"Common Stock"}]}`)
	p := NewFinnhub("key", srv.URL, time.Second)

	results, err := p.Search(context.Background(), "apple", 2)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "AAPL", results[0].Symbol)
	assert.Equal(t, "APPLE INC", results[0].Description)
}

func TestAlphaVantageQuote_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Global Quote":{
			"01. symbol":"AAPL","02. open":"184.00","03. high":"186.20",
			"04. low":"183.10","05. price":"185.50","06. volume":"51234567",
			"08. previous close":"183.40"}}`))
	}))
	t.Cleanup(srv.Close)
	p := NewAlphaVantage("key", srv.URL, time.Second)

	q, err := p.Quote(context.Background(), "AAPL")

	require.NoError(t, err)
	assert.Equal(t, 185.5, q.Price)
	assert.Equal(t, int64(51234567), q.Volume)
	assert.Equal(t, models.SourceAlphaVantage, q.DataSource)
	assert.InDelta(t, (185.5-183.4)/183.4*100, q.ChangePercent, 1e-9)
}

func TestAlphaVantageQuote_EmptyObjectMeansUnknownSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Global Quote":{}}`))
	}))
	t.Cleanup(srv.Close)
	p := NewAlphaVantage("key", srv.URL, time.Second)

	_, err := p.Quote(context.Background(), "NOPE")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown symbol")
}

func TestAlphaVantageQuote_BadPriceRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Global Quote":{"05. price":"not-a-number"}}`))
	}))
	t.Cleanup(srv.Close)
	p := NewAlphaVantage("key", srv.URL, time.Second)

	_, err := p.Quote(context.Background(), "AAPL")
	assert.Error(t, err)
}

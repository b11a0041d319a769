// Package providers holds the ranked external market data sources the
// quote resolution chain walks before falling back to simulation.
package providers

import (
	"context"
	"fmt"
	"time"

	"QuotePulse/internal/domain/models"
	xhttp "QuotePulse/pkg/http"
)

// Finnhub is the primary real-time quote provider.
type Finnhub struct {
	apiKey  string
	baseURL string
	http    *xhttp.Client
}

// NewFinnhub creates a Finnhub provider. timeout caps each attempt.
func NewFinnhub(apiKey, baseURL string, timeout time.Duration) *Finnhub {
	return &Finnhub{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func (f *Finnhub) Name() string { return "finnhub" }

func (f *Finnhub) Source() models.DataSource { return models.SourceFinnhub }

type fhQuote struct {
	C  float64 `json:"c"`  // current price
	D  float64 `json:"d"`  // change
	DP float64 `json:"dp"` // change percent
	H  float64 `json:"h"`
	L  float64 `json:"l"`
	O  float64 `json:"o"`
	PC float64 `json:"pc"` // previous close
	T  int64   `json:"t"`  // unix seconds
}

// Quote fetches one real-time quote. Finnhub answers unknown symbols
// with HTTP 200 and all-zero fields; that signature is a failure here.
func (f *Finnhub) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if f.apiKey == "" {
		return nil, fmt.Errorf("finnhub: api key not configured")
	}

	var resp fhQuote
	err := f.http.SendAndParse(ctx, &xhttp.RequestOptions{
		URL: f.baseURL + "/quote",
		QueryParams: map[string]string{
			"symbol": symbol,
			"token":  f.apiKey,
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("finnhub quote %s: %w", symbol, err)
	}

	if resp.C == 0 && resp.H == 0 && resp.L == 0 && resp.O == 0 && resp.PC == 0 {
		return nil, fmt.Errorf("finnhub quote %s: unknown symbol", symbol)
	}

	q := &models.Quote{
		Symbol:        symbol,
		Price:         resp.C,
		High:          resp.H,
		Low:           resp.L,
		Open:          resp.O,
		PreviousClose: resp.PC,
		Timestamp:     time.Now().UTC(),
		DataSource:    models.SourceFinnhub,
		IsRealTime:    true,
	}
	q.FillDerived()

	if !q.Valid() {
		return nil, fmt.Errorf("finnhub quote %s: invalid payload", symbol)
	}
	return q, nil
}

type fhSearchResponse struct {
	Count  int `json:"count"`
	Result []struct {
		Description   string `json:"description"`
		DisplaySymbol string `json:"displaySymbol"`
		Symbol        string `json:"symbol"`
		Type          string `json:"type"`
	} `json:"result"`
}

// Search finds instruments matching a free-text query, at most limit
// results.
func (f *Finnhub) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	if f.apiKey == "" {
		return nil, fmt.Errorf("finnhub: api key not configured")
	}

	var resp fhSearchResponse
	err := f.http.SendAndParse(ctx, &xhttp.RequestOptions{
		URL: f.baseURL + "/search",
		QueryParams: map[string]string{
			"q":     query,
			"token": f.apiKey,
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("finnhub search %q: %w", query, err)
	}

	out := make([]models.SearchResult, 0, limit)
	for _, r := range resp.Result {
		if len(out) >= limit {
			break
		}
		out = append(out, models.SearchResult{
			Symbol:      r.Symbol,
			Description: r.Description,
		})
	}
	return out, nil
}

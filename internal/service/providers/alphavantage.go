package providers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"QuotePulse/internal/domain/models"
	xhttp "QuotePulse/pkg/http"
)

// AlphaVantage is the secondary quote provider. Its GLOBAL_QUOTE
// endpoint reports delayed end-of-day style data as strings.
type AlphaVantage struct {
	apiKey  string
	baseURL string
	http    *xhttp.Client
}

// NewAlphaVantage creates an Alpha Vantage provider.
func NewAlphaVantage(apiKey, baseURL string, timeout time.Duration) *AlphaVantage {
	return &AlphaVantage{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func (a *AlphaVantage) Name() string { return "alphavantage" }

func (a *AlphaVantage) Source() models.DataSource { return models.SourceAlphaVantage }

type avGlobalQuote struct {
	Quote struct {
		Symbol        string `json:"01. symbol"`
		Open          string `json:"02. open"`
		High          string `json:"03. high"`
		Low           string `json:"04. low"`
		Price         string `json:"05. price"`
		Volume        string `json:"06. volume"`
		PreviousClose string `json:"08. previous close"`
	} `json:"Global Quote"`
}

// Quote fetches one quote. Unknown symbols come back as an empty
// "Global Quote" object.
func (a *AlphaVantage) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("alphavantage: api key not configured")
	}

	var resp avGlobalQuote
	err := a.http.SendAndParse(ctx, &xhttp.RequestOptions{
		URL: a.baseURL + "/query",
		QueryParams: map[string]string{
			"function": "GLOBAL_QUOTE",
			"symbol":   symbol,
			"apikey":   a.apiKey,
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("alphavantage quote %s: %w", symbol, err)
	}

	if strings.TrimSpace(resp.Quote.Price) == "" {
		return nil, fmt.Errorf("alphavantage quote %s: unknown symbol", symbol)
	}

	price, err := strconv.ParseFloat(resp.Quote.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("alphavantage quote %s: bad price %q", symbol, resp.Quote.Price)
	}
	open := parseFloatDefault(resp.Quote.Open, 0)
	high := parseFloatDefault(resp.Quote.High, 0)
	low := parseFloatDefault(resp.Quote.Low, 0)
	prevClose := parseFloatDefault(resp.Quote.PreviousClose, 0)
	volume, _ := strconv.ParseInt(strings.TrimSpace(resp.Quote.Volume), 10, 64)

	q := &models.Quote{
		Symbol:        symbol,
		Price:         price,
		High:          high,
		Low:           low,
		Open:          open,
		PreviousClose: prevClose,
		Volume:        volume,
		Timestamp:     time.Now().UTC(),
		DataSource:    models.SourceAlphaVantage,
		IsRealTime:    true,
	}
	q.FillDerived()

	if !q.Valid() {
		return nil, fmt.Errorf("alphavantage quote %s: invalid payload", symbol)
	}
	return q, nil
}

func parseFloatDefault(s string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return v
}
